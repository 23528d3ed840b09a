// Package postgres реализует соединение database.Handle поверх pgx.
// Уровень изоляции и флаг "только чтение" транслируются в pgx.TxOptions;
// сгенерированные значения возвращаются предложением RETURNING, вложенные
// транзакционные области выполняются через точки сохранения.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/x-research-team/dao-framework/dao/database"
)

// Handle — это реализация database.Handle для PostgreSQL. Экземпляр
// принадлежит одной логической единице работы и не предназначен для
// конкурентного использования.
type Handle struct {
	pool     *pgxpool.Pool
	querier  Querier
	tx       pgx.Tx
	readOnly bool
}

// NewHandle создает соединение поверх пула pool.
func NewHandle(pool *pgxpool.Pool) *Handle {
	return &Handle{
		pool:    pool,
		querier: pool,
	}
}

// Update создает изменяющий оператор.
func (h *Handle) Update(sql string, args ...any) database.Update {
	return &update{handle: h, sql: sql, args: args}
}

// Query создает выбирающий оператор.
func (h *Handle) Query(sql string, args ...any) database.Query {
	return &query{handle: h, sql: sql, args: args}
}

// InTransaction сообщает, открыта ли в данный момент транзакция.
func (h *Handle) InTransaction() bool {
	return h.tx != nil
}

// ReadOnly возвращает текущее значение флага "только чтение".
func (h *Handle) ReadOnly() bool {
	return h.readOnly
}

// SetReadOnly устанавливает флаг "только чтение" для последующих транзакций.
func (h *Handle) SetReadOnly(readOnly bool) {
	h.readOnly = readOnly
}

// Transact выполняет fn внутри транзакции с запрошенным уровнем изоляции.
// Внутри уже открытой транзакции открывается точка сохранения.
func (h *Handle) Transact(ctx context.Context, level database.IsolationLevel, fn database.TxFunc) (any, error) {
	var (
		tx  pgx.Tx
		err error
	)

	if h.tx != nil {
		tx, err = h.tx.Begin(ctx)
	} else {
		accessMode := pgx.ReadWrite
		if h.readOnly {
			accessMode = pgx.ReadOnly
		}
		tx, err = h.pool.BeginTx(ctx, pgx.TxOptions{
			IsoLevel:   isoLevel(level),
			AccessMode: accessMode,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть транзакцию: %w", err)
	}

	child := &Handle{
		pool:     h.pool,
		querier:  tx,
		tx:       tx,
		readOnly: h.readOnly,
	}

	value, err := fn(ctx, child)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return value, nil
}

// update — это изменяющий оператор поверх pgx.
type update struct {
	handle *Handle
	sql    string
	args   []any
}

// Execute выполняет оператор и возвращает количество затронутых строк.
func (u *update) Execute(ctx context.Context) (int64, error) {
	tag, err := u.handle.querier.Exec(ctx, u.sql, u.args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ExecuteReturning выполняет оператор с предложением RETURNING и возвращает
// последовательность сгенерированных строк.
func (u *update) ExecuteReturning(ctx context.Context, columns ...string) (database.Rows, error) {
	rows, err := u.handle.querier.Query(ctx, returningClause(u.sql, columns), u.args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

// query — это выбирающий оператор поверх pgx.
type query struct {
	handle *Handle
	sql    string
	args   []any
}

// Execute выполняет оператор и возвращает последовательность строк.
func (q *query) Execute(ctx context.Context) (database.Rows, error) {
	rows, err := q.handle.querier.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

// pgxRows адаптирует pgx.Rows к database.Rows.
type pgxRows struct {
	rows pgx.Rows
}

// Columns возвращает имена столбцов результата.
func (r *pgxRows) Columns() ([]string, error) {
	descriptions := r.rows.FieldDescriptions()
	names := make([]string, len(descriptions))
	for i, fd := range descriptions {
		names[i] = fd.Name
	}
	return names, nil
}

// Next продвигает последовательность к следующей строке.
func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

// Scan считывает значения текущей строки.
func (r *pgxRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

// Err возвращает ошибку, возникшую при итерации.
func (r *pgxRows) Err() error {
	return r.rows.Err()
}

// Close освобождает ресурсы последовательности.
func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}

// returningClause добавляет к оператору предложение RETURNING для
// перечисленных столбцов (по умолчанию для всех).
func returningClause(sql string, columns []string) string {
	selected := "*"
	if len(columns) > 0 {
		selected = strings.Join(columns, ", ")
	}
	return sql + " RETURNING " + selected
}

// isoLevel транслирует уровень изоляции в представление pgx.
func isoLevel(level database.IsolationLevel) pgx.TxIsoLevel {
	switch level {
	case database.LevelReadUncommitted:
		return pgx.ReadUncommitted
	case database.LevelReadCommitted:
		return pgx.ReadCommitted
	case database.LevelRepeatableRead:
		return pgx.RepeatableRead
	case database.LevelSerializable:
		return pgx.Serializable
	default:
		return ""
	}
}

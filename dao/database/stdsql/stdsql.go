// Package stdsql реализует соединение database.Handle поверх database/sql,
// что позволяет выполнять привязанные методы на любом драйвере стандартной
// библиотеки. Уровень изоляции и флаг "только чтение" транслируются в
// sql.TxOptions; сгенерированные значения возвращаются предложением RETURNING.
package stdsql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/x-research-team/dao-framework/dao/database"
)

// executor абстрагирует *sql.DB и *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Handle — это реализация database.Handle поверх database/sql. Экземпляр
// принадлежит одной логической единице работы и не предназначен для
// конкурентного использования.
type Handle struct {
	db       *sql.DB
	tx       *sql.Tx
	readOnly bool
}

// NewHandle создает соединение поверх db.
func NewHandle(db *sql.DB) *Handle {
	return &Handle{db: db}
}

// executor возвращает активную транзакцию либо само соединение.
func (h *Handle) executor() executor {
	if h.tx != nil {
		return h.tx
	}
	return h.db
}

// Update создает изменяющий оператор.
func (h *Handle) Update(query string, args ...any) database.Update {
	return &update{handle: h, sql: query, args: args}
}

// Query создает выбирающий оператор.
func (h *Handle) Query(query string, args ...any) database.Query {
	return &stdQuery{handle: h, sql: query, args: args}
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
// database/sql не поддерживает точки сохранения, поэтому вложенная область
// выполняется в рамках уже открытой транзакции.
func (h *Handle) Transact(ctx context.Context, level database.IsolationLevel, fn database.TxFunc) (any, error) {
	if h.tx != nil {
		return fn(ctx, h)
	}

	tx, err := h.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: isoLevel(level),
		ReadOnly:  h.readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть транзакцию: %w", err)
	}

	child := &Handle{
		db:       h.db,
		tx:       tx,
		readOnly: h.readOnly,
	}

	value, err := fn(ctx, child)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return value, nil
}

// update — это изменяющий оператор поверх database/sql.
type update struct {
	handle *Handle
	sql    string
	args   []any
}

// Execute выполняет оператор и возвращает количество затронутых строк.
func (u *update) Execute(ctx context.Context) (int64, error) {
	result, err := u.handle.executor().ExecContext(ctx, u.sql, u.args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExecuteReturning выполняет оператор с предложением RETURNING и возвращает
// последовательность сгенерированных строк. *sql.Rows уже удовлетворяет
// контракту database.Rows.
func (u *update) ExecuteReturning(ctx context.Context, columns ...string) (database.Rows, error) {
	return u.handle.executor().QueryContext(ctx, returningClause(u.sql, columns), u.args...)
}

// stdQuery — это выбирающий оператор поверх database/sql.
type stdQuery struct {
	handle *Handle
	sql    string
	args   []any
}

// Execute выполняет оператор и возвращает последовательность строк.
func (q *stdQuery) Execute(ctx context.Context) (database.Rows, error) {
	return q.handle.executor().QueryContext(ctx, q.sql, q.args...)
}

// returningClause добавляет к оператору предложение RETURNING для
// перечисленных столбцов (по умолчанию для всех).
func returningClause(query string, columns []string) string {
	selected := "*"
	if len(columns) > 0 {
		selected = strings.Join(columns, ", ")
	}
	return query + " RETURNING " + selected
}

// isoLevel транслирует уровень изоляции в представление database/sql.
func isoLevel(level database.IsolationLevel) sql.IsolationLevel {
	switch level {
	case database.LevelReadUncommitted:
		return sql.LevelReadUncommitted
	case database.LevelReadCommitted:
		return sql.LevelReadCommitted
	case database.LevelRepeatableRead:
		return sql.LevelRepeatableRead
	case database.LevelSerializable:
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

package stdsql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/dao-framework/dao/database"
)

// newMock создает соединение поверх замоканного database/sql с точным
// сравнением текста операторов.
func newMock(t *testing.T) (*Handle, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err, "Создание мока не должно вызывать ошибку")
	t.Cleanup(func() { _ = db.Close() })

	return NewHandle(db), mock
}

// Тест изменяющего оператора: возвращается количество затронутых строк.
func TestUpdate_Execute(t *testing.T) {
	t.Parallel()

	h, mock := newMock(t)
	mock.ExpectExec("insert into videos (id, supported_platforms) values ($1, $2)").
		WithArgs(6, "11000").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := h.Update("insert into videos (id, supported_platforms) values ($1, $2)", 6, "11000").
		Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), affected, "Оператор должен вернуть количество затронутых строк")
	assert.NoError(t, mock.ExpectationsWereMet(), "Все ожидания мока должны быть выполнены")
}

// Тест оператора с возвратом сгенерированных значений: к тексту добавляется
// предложение RETURNING с перечисленными столбцами.
func TestUpdate_ExecuteReturning(t *testing.T) {
	t.Parallel()

	h, mock := newMock(t)
	mock.ExpectQuery("insert into videos (supported_platforms) values ($1) RETURNING id").
		WithArgs("00001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	rows, err := h.Update("insert into videos (supported_platforms) values ($1)", "00001").
		ExecuteReturning(context.Background(), "id")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next(), "Сгенерированная строка должна присутствовать")
	var id int64
	require.NoError(t, rows.Scan(&id))
	assert.Equal(t, int64(42), id, "Сгенерированное значение должно быть считано")
	assert.NoError(t, mock.ExpectationsWereMet(), "Все ожидания мока должны быть выполнены")
}

// Тест выбирающего оператора.
func TestQuery_Execute(t *testing.T) {
	t.Parallel()

	h, mock := newMock(t)
	mock.ExpectQuery("select supported_platforms from videos where id = $1").
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"supported_platforms"}).AddRow("11000"))

	rows, err := h.Query("select supported_platforms from videos where id = $1", 6).
		Execute(context.Background())
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var platforms string
	require.NoError(t, rows.Scan(&platforms))
	assert.Equal(t, "11000", platforms)
	assert.NoError(t, mock.ExpectationsWereMet(), "Все ожидания мока должны быть выполнены")
}

// Тест транзакционной области: операторы выполняются внутри транзакции,
// успешное завершение фиксирует ее.
func TestTransact_Commit(t *testing.T) {
	t.Parallel()

	h, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("delete from videos where id = $1").
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	value, err := h.Transact(context.Background(), database.LevelSerializable,
		func(ctx context.Context, tx database.Handle) (any, error) {
			assert.True(t, tx.InTransaction(), "Внутри области транзакция должна быть открыта")
			return tx.Update("delete from videos where id = $1", 6).Execute(ctx)
		})

	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
	assert.False(t, h.InTransaction(), "Внешнее соединение должно остаться вне транзакции")
	assert.NoError(t, mock.ExpectationsWereMet(), "Все ожидания мока должны быть выполнены")
}

// Тест отката: ошибка из функции области откатывает транзакцию и
// возвращается вызывающему без изменений.
func TestTransact_RollbackOnError(t *testing.T) {
	t.Parallel()

	h, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("нарушение ограничения")
	_, err := h.Transact(context.Background(), database.LevelDefault,
		func(ctx context.Context, tx database.Handle) (any, error) {
			return nil, boom
		})

	require.ErrorIs(t, err, boom, "Ошибка области должна вернуться без изменений")
	assert.NoError(t, mock.ExpectationsWereMet(), "Все ожидания мока должны быть выполнены")
}

// Тест вложенной области: database/sql не поддерживает точки сохранения,
// поэтому вложенная область выполняется в уже открытой транзакции.
func TestTransact_Nested(t *testing.T) {
	t.Parallel()

	h, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := h.Transact(context.Background(), database.LevelDefault,
		func(ctx context.Context, outer database.Handle) (any, error) {
			return outer.Transact(ctx, database.LevelDefault,
				func(ctx context.Context, inner database.Handle) (any, error) {
					assert.Same(t, outer, inner, "Вложенная область должна выполняться на том же соединении")
					return nil, nil
				})
		})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "Все ожидания мока должны быть выполнены")
}

// Тест флага "только чтение": значение переносится в параметры транзакции.
func TestTransact_ReadOnly(t *testing.T) {
	t.Parallel()

	h, mock := newMock(t)
	h.SetReadOnly(true)
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := h.Transact(context.Background(), database.LevelDefault,
		func(ctx context.Context, tx database.Handle) (any, error) {
			assert.True(t, tx.ReadOnly(), "Дочернее соединение должно унаследовать флаг")
			return nil, nil
		})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "Все ожидания мока должны быть выполнены")
}

// Тест построения предложения RETURNING.
func TestReturningClause(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "insert into t (a) values ($1) RETURNING id, name",
		returningClause("insert into t (a) values ($1)", []string{"id", "name"}))
	assert.Equal(t, "insert into t (a) values ($1) RETURNING *",
		returningClause("insert into t (a) values ($1)", nil),
		"Без явных столбцов должны возвращаться все")
}

// Тест трансляции уровней изоляции.
func TestIsoLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sql.LevelDefault, isoLevel(database.LevelDefault))
	assert.Equal(t, sql.LevelReadUncommitted, isoLevel(database.LevelReadUncommitted))
	assert.Equal(t, sql.LevelReadCommitted, isoLevel(database.LevelReadCommitted))
	assert.Equal(t, sql.LevelRepeatableRead, isoLevel(database.LevelRepeatableRead))
	assert.Equal(t, sql.LevelSerializable, isoLevel(database.LevelSerializable))
}

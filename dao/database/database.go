// Package database определяет абстракции над соединением с базой данных,
// транзакциями и выполнением SQL-операторов. Пакет не содержит собственной
// логики выполнения: конкретные реализации (pgx, database/sql) живут в
// подпакетах postgres и stdsql и могут подменяться без изменения кода,
// использующего привязки.
package database

import "context"

// IsolationLevel определяет уровень изоляции транзакционной области.
type IsolationLevel int

const (
	// LevelDefault делегирует выбор уровня изоляции драйверу базы данных.
	LevelDefault IsolationLevel = iota
	LevelReadUncommitted
	LevelReadCommitted
	LevelRepeatableRead
	LevelSerializable
)

// String возвращает строковое представление уровня изоляции.
func (l IsolationLevel) String() string {
	switch l {
	case LevelDefault:
		return "default"
	case LevelReadUncommitted:
		return "read uncommitted"
	case LevelReadCommitted:
		return "read committed"
	case LevelRepeatableRead:
		return "repeatable read"
	case LevelSerializable:
		return "serializable"
	default:
		return "unknown"
	}
}

// Rows представляет собой лениво вычисляемую последовательность строк
// результата. Потребитель обязан вызвать Close на каждом пути выхода,
// включая ошибочные.
type Rows interface {
	// Columns возвращает имена столбцов результата.
	Columns() ([]string, error)

	// Next продвигает последовательность к следующей строке.
	Next() bool

	// Scan считывает значения текущей строки в указатели назначения.
	Scan(dest ...any) error

	// Err возвращает ошибку, возникшую при итерации.
	Err() error

	// Close освобождает ресурсы, связанные с последовательностью.
	Close() error
}

// Update представляет собой подготовленный к выполнению изменяющий
// SQL-оператор. Текст оператора и аргументы фиксируются при создании;
// шаблонизация и привязка типов аргументов находятся вне этого пакета.
type Update interface {
	// Execute выполняет оператор и возвращает количество затронутых строк.
	Execute(ctx context.Context) (int64, error)

	// ExecuteReturning выполняет оператор в режиме возврата сгенерированных
	// значений (столбцы columns, по умолчанию все) и возвращает ленивую
	// последовательность строк.
	ExecuteReturning(ctx context.Context, columns ...string) (Rows, error)
}

// Query представляет собой подготовленный к выполнению выбирающий SQL-оператор.
type Query interface {
	// Execute выполняет оператор и возвращает ленивую последовательность строк.
	Execute(ctx context.Context) (Rows, error)
}

// TxFunc — это функция, выполняемая внутри транзакционной области.
// Переданный ей Handle привязан к открытой транзакции.
type TxFunc func(ctx context.Context, h Handle) (any, error)

// Handle определяет контракт логического соединения с базой данных.
// Экземпляр принадлежит одной логической единице работы и не предназначен
// для конкурентного использования несколькими горутинами.
type Handle interface {
	// Update создает изменяющий оператор с заданным текстом и аргументами.
	Update(sql string, args ...any) Update

	// Query создает выбирающий оператор с заданным текстом и аргументами.
	Query(sql string, args ...any) Query

	// InTransaction сообщает, открыта ли в данный момент транзакция.
	InTransaction() bool

	// ReadOnly возвращает текущее значение флага "только чтение".
	ReadOnly() bool

	// SetReadOnly устанавливает флаг "только чтение". Флаг применяется к
	// транзакциям, открываемым после установки.
	SetReadOnly(readOnly bool)

	// Transact выполняет fn внутри транзакции с запрошенным уровнем изоляции.
	// Возврат ошибки из fn откатывает транзакцию, иначе она фиксируется.
	Transact(ctx context.Context, level IsolationLevel, fn TxFunc) (any, error)
}

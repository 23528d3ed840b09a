// Package contract определяет явные дескрипторы контрактов доступа к данным:
// описание метода (имя, объявленный тип возврата, текст оператора) и набор
// декларативных маркеров, прикрепленных к методу или к самому контракту.
// Дескрипторы строятся один раз, до фазы привязки, и являются единственным
// источником метаданных для всего конвейера: после построения дескриптора
// никакая дальнейшая интроспекция не выполняется.
package contract

import (
	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dao-framework/dao/database"
	"github.com/x-research-team/dao-framework/dao/mapper"
)

// Void — это объявленный тип возврата для изменяющих методов, которым
// количество затронутых строк не нужно.
type Void struct{}

// TransactionMarker содержит параметры транзакционного маркера:
// уровень изоляции и флаг "только чтение".
type TransactionMarker struct {
	Level    database.IsolationLevel
	ReadOnly bool
}

// Reducer — это стертая по типам функция свёртки последовательности строк.
// Строго типизированная версия задаётся опцией WithReducer.
type Reducer func(acc any, row any) any

// Markers перечисляет декларативные маркеры, обнаруженные на методе или
// на объявляющем контракте. Структура заполняется опциями при построении
// дескриптора и далее не изменяется.
type Markers struct {
	// Update выбирает изменяющий вариант обработчика.
	Update bool

	// Query выбирает выбирающий вариант обработчика.
	Query bool

	// GeneratedKeys включает режим возврата сгенерированных значений.
	GeneratedKeys bool

	// KeyColumns перечисляет столбцы, возвращаемые в режиме GeneratedKeys.
	// Пустой список означает "все столбцы".
	KeyColumns []string

	// RowMapper — явная стратегия отображения, перекрывающая типо-зависимую.
	RowMapper mapper.RowMapper

	// Reducer — маркер свёртки результата.
	Reducer Reducer

	// SingleValue помечает тип возврата квалификатором "одиночное значение".
	SingleValue bool

	// Transaction — транзакционный маркер; nil, если маркер отсутствует.
	Transaction *TransactionMarker

	// MapperRegistrations перечисляет типы стратегий отображения,
	// подлежащие регистрации конфигуратором.
	MapperRegistrations []reflect.Type
}

// Option применяет один декларативный маркер к набору маркеров.
type Option func(*Markers)

// Method — это неизменяемый дескриптор одного объявленного метода контракта.
type Method struct {
	// Name — имя метода в объявляющем контракте.
	Name string

	// SQL — расположенный текст оператора, выполняемого методом.
	SQL string

	// ReturnType — объявленный обобщенный тип возврата метода.
	ReturnType reflect.Type

	// Markers — маркеры, прикрепленные к методу.
	Markers Markers
}

// NewMethod создает дескриптор метода с объявленным типом возврата R.
func NewMethod[R any](name, sql string, opts ...Option) *Method {
	m := &Method{
		Name:       name,
		SQL:        sql,
		ReturnType: reflect.TypeOf((*R)(nil)).Elem(),
	}
	for _, opt := range opts {
		opt(&m.Markers)
	}
	return m
}

// Contract — это дескриптор объявляющего контракта: имя и маркеры уровня типа.
type Contract struct {
	// Name — имя контракта, используемое в диагностике.
	Name string

	// Markers — маркеры, прикрепленные к контракту целиком.
	Markers Markers
}

// New создает дескриптор контракта с маркерами уровня типа.
func New(name string, opts ...Option) *Contract {
	c := &Contract{Name: name}
	for _, opt := range opts {
		opt(&c.Markers)
	}
	return c
}

// WithUpdate помечает метод как изменяющий ("выполнить и отчитаться").
func WithUpdate() Option {
	return func(m *Markers) {
		m.Update = true
	}
}

// WithQuery помечает метод как выбирающий.
func WithQuery() Option {
	return func(m *Markers) {
		m.Query = true
	}
}

// WithGeneratedKeys включает режим возврата сгенерированных значений
// для перечисленных столбцов (пустой список — все столбцы).
func WithGeneratedKeys(columns ...string) Option {
	return func(m *Markers) {
		m.GeneratedKeys = true
		m.KeyColumns = columns
	}
}

// WithRowMapper задает явную стратегию отображения строк для метода.
func WithRowMapper(rm mapper.RowMapper) Option {
	return func(m *Markers) {
		m.RowMapper = rm
	}
}

// WithReducer задает свёртку результата: последовательность отображенных строк
// сворачивается функцией fn, начиная с нулевого значения типа R.
func WithReducer[R any](fn func(acc R, row any) R) Option {
	return func(m *Markers) {
		m.Reducer = func(acc any, row any) any {
			return fn(acc.(R), row)
		}
	}
}

// WithSingleValue добавляет квалификатор "одиночное значение" к типу возврата.
func WithSingleValue() Option {
	return func(m *Markers) {
		m.SingleValue = true
	}
}

// WithTransaction прикрепляет транзакционный маркер с уровнем изоляции level
// и флагом readOnly. Допустим как на методе, так и на контракте.
func WithTransaction(level database.IsolationLevel, readOnly bool) Option {
	return func(m *Markers) {
		m.Transaction = &TransactionMarker{Level: level, ReadOnly: readOnly}
	}
}

// WithMapperRegistration объявляет тип стратегии отображения, экземпляр
// которого должен быть зарегистрирован в общем реестре на фазе привязки.
func WithMapperRegistration(mapperType reflect.Type) Option {
	return func(m *Markers) {
		m.MapperRegistrations = append(m.MapperRegistrations, mapperType)
	}
}

package handler

import (
	"context"
	"fmt"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dao-framework/dao/config"
	"github.com/x-research-team/dao-framework/dao/contract"
	"github.com/x-research-team/dao-framework/dao/database"
	"github.com/x-research-team/dao-framework/dao/mapper"
	"github.com/x-research-team/dao-framework/dao/result"
)

// updateMode перечисляет формы возврата изменяющего обработчика.
type updateMode int

const (
	// modeCount возвращает количество затронутых строк (или отбрасывает его).
	modeCount updateMode = iota
	// modeBoolean возвращает true, если затронута хотя бы одна строка.
	modeBoolean
	// modeKeys возвращает адаптированную последовательность сгенерированных значений.
	modeKeys
)

// updateHandler — это изменяющий вариант обработчика: выполняет оператор и
// отчитывается о результате согласно объявленной форме возврата.
type updateHandler[R any] struct {
	sql        string
	mode       updateMode
	returnType reflect.Type
	keyColumns []string
	returner   result.Returner[R]
	rowMapper  mapper.RowMapper
	diag       diagnostic
}

// NewUpdate строит изменяющий обработчик для метода m контракта c,
// классифицируя объявленный тип возврата. Несовместимые маркеры и
// неподдерживаемые типы возврата отвергаются здесь, на фазе привязки.
func NewUpdate[R any](c *contract.Contract, m *contract.Method) (Handler[R], error) {
	diag := diagnosticFor(c, m)

	// Взаимное исключение проверяется раньше любой другой классификации.
	if m.Markers.Reducer != nil {
		return nil, fmt.Errorf("%s: маркер свёртки результата несовместим с изменяющим методом", diag)
	}
	if err := checkDeclaredType[R](m, diag); err != nil {
		return nil, err
	}

	qt := contract.ResolveQualifiedType(c, m)
	h := &updateHandler[R]{
		sql:        m.SQL,
		returnType: m.ReturnType,
		diag:       diag,
	}

	switch {
	case m.Markers.GeneratedKeys:
		returner, err := result.ForType[R](qt, m.Markers)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", diag, err)
		}
		h.mode = modeKeys
		h.keyColumns = m.Markers.KeyColumns
		h.returner = returner
		h.rowMapper = m.Markers.RowMapper
	case isNumeric(m.ReturnType) || isVoid(m.ReturnType):
		h.mode = modeCount
	case isBoolean(m.ReturnType):
		h.mode = modeBoolean
	default:
		return nil, fmt.Errorf(
			"%s: метод помечен как изменяющий и должен возвращать Void, bool или числовой тип, но возвращает %s",
			diag, qt)
	}

	return h, nil
}

// Warm распространяет прогрев на принадлежащую обработчику стратегию
// адаптации результата и заранее разрешает стратегию отображения строк.
func (h *updateHandler[R]) Warm(reg *config.Registry) error {
	if h.returner == nil {
		return nil
	}
	if err := h.returner.Warm(reg); err != nil {
		return fmt.Errorf("%s: %w", h.diag, err)
	}

	rowMapper, err := resolveRowMapper(reg, h.rowMapper, h.returner.MappedType(), h.diag)
	if err != nil {
		return err
	}
	h.rowMapper = rowMapper
	return nil
}

// Invoke выполняет оператор и производит значение объявленной формы.
func (h *updateHandler[R]) Invoke(ctx context.Context, handle database.Handle, args ...any) (R, error) {
	var zero R

	update := handle.Update(h.sql, args...)

	switch h.mode {
	case modeKeys:
		rows, err := update.ExecuteReturning(ctx, h.keyColumns...)
		if err != nil {
			return zero, err
		}
		return h.returner.Adapt(rows, h.rowMapper)

	case modeBoolean:
		affected, err := update.Execute(ctx)
		if err != nil {
			return zero, err
		}
		return reflect.ValueOf(affected > 0).Convert(h.returnType).Interface().(R), nil

	default:
		affected, err := update.Execute(ctx)
		if err != nil {
			return zero, err
		}
		if isVoid(h.returnType) {
			return zero, nil
		}
		return reflect.ValueOf(affected).Convert(h.returnType).Interface().(R), nil
	}
}

// diagnostic идентифицирует метод в сообщениях об ошибках привязки.
type diagnostic string

func (d diagnostic) String() string { return string(d) }

// diagnosticFor строит идентификатор "не удалось построить контракт X: метод Y".
func diagnosticFor(c *contract.Contract, m *contract.Method) diagnostic {
	contractName := "<анонимный контракт>"
	if c != nil {
		contractName = c.Name
	}
	return diagnostic(fmt.Sprintf("не удалось построить контракт %s: метод %s", contractName, m.Name))
}

// checkDeclaredType сверяет параметр типа R с типом возврата дескриптора.
func checkDeclaredType[R any](m *contract.Method, diag diagnostic) error {
	declared := reflect.TypeOf((*R)(nil)).Elem()
	if m.ReturnType != declared {
		return fmt.Errorf("%s: дескриптор объявляет тип возврата %s, а привязка запрошена для %s",
			diag, m.ReturnType, declared)
	}
	return nil
}

// resolveRowMapper возвращает явную стратегию отображения, если она задана
// маркером, иначе разрешает типо-зависимую из реестра.
func resolveRowMapper(reg *config.Registry, explicit mapper.RowMapper, mapped reflect.Type, diag diagnostic) (mapper.RowMapper, error) {
	if explicit != nil {
		return explicit, nil
	}
	if mapped == nil {
		return nil, fmt.Errorf("%s: свёртка результата требует явной стратегии отображения строк", diag)
	}

	rowMapper, err := config.Get[config.RowMappers](reg).Resolve(mapped)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", diag, err)
	}
	return rowMapper, nil
}

// isNumeric сообщает, является ли тип числовым.
func isNumeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// isBoolean сообщает, является ли тип логическим.
func isBoolean(t reflect.Type) bool {
	return t.Kind() == reflect.Bool
}

// isVoid сообщает, объявлен ли метод без полезного значения возврата.
func isVoid(t reflect.Type) bool {
	return t == reflect.TypeOf(contract.Void{})
}

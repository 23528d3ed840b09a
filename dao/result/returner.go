// Package result реализует стратегии адаптации ленивой последовательности
// строк к объявленной форме возврата метода: одиночное значение, опциональное
// значение (указатель), коллекция или пользовательская свёртка. Каждая
// стратегия потребляет последовательность строго в соответствии с контрактом
// кардинальности своей формы и гарантированно закрывает последовательность
// на каждом пути выхода, включая ошибочные.
package result

import (
	"errors"
	"fmt"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dao-framework/dao/config"
	"github.com/x-research-team/dao-framework/dao/contract"
	"github.com/x-research-team/dao-framework/dao/database"
	"github.com/x-research-team/dao-framework/dao/mapper"
)

var (
	// ErrNoRows возвращается одиночной формой, когда последовательность
	// не произвела ни одной строки.
	ErrNoRows = errors.New("последовательность не вернула ни одной строки для одиночного результата")

	// ErrTooManyRows возвращается одиночной и опциональной формами, когда
	// последовательность произвела больше одной строки.
	ErrTooManyRows = errors.New("последовательность вернула больше одной строки")
)

// Returner — это стратегия адаптации последовательности строк к объявленной
// форме возврата R. Экземпляр неизменяем и безопасен для конкурентного
// использования.
type Returner[R any] interface {
	// MappedType возвращает тип, отображаемый из одной строки, либо nil,
	// если форма не навязывает тип строки (свёртка).
	MappedType() reflect.Type

	// Warm выполняет предварительные проверки возможностей стратегии.
	Warm(reg *config.Registry) error

	// Adapt потребляет последовательность rows, отображая строки стратегией
	// rm, и производит значение формы R. Последовательность закрывается на
	// каждом пути выхода.
	Adapt(rows database.Rows, rm mapper.RowMapper) (R, error)
}

// ForType выбирает стратегию адаптации для квалифицированного типа qt и
// маркеров метода: свёртка при маркере свёртки, одиночная форма при
// квалификаторе "одиночное значение", коллекция для срезов, опциональная
// форма для указателей, иначе одиночная форма.
func ForType[R any](qt contract.QualifiedType, markers contract.Markers) (Returner[R], error) {
	if markers.Reducer != nil {
		return &reducedReturner[R]{fn: markers.Reducer}, nil
	}
	if qt.Has(contract.SingleValue) {
		return &singleReturner[R]{mapped: qt.Type}, nil
	}

	switch qt.Type.Kind() {
	case reflect.Slice:
		return &collectionReturner[R]{slice: qt.Type, mapped: qt.Type.Elem()}, nil
	case reflect.Ptr:
		return &optionalReturner[R]{mapped: qt.Type}, nil
	default:
		return &singleReturner[R]{mapped: qt.Type}, nil
	}
}

// singleReturner адаптирует ровно одну строку: ноль строк и больше одной
// строки являются ошибками.
type singleReturner[R any] struct {
	mapped reflect.Type
}

func (r *singleReturner[R]) MappedType() reflect.Type { return r.mapped }

func (r *singleReturner[R]) Warm(*config.Registry) error { return nil }

func (r *singleReturner[R]) Adapt(rows database.Rows, rm mapper.RowMapper) (R, error) {
	var zero R
	defer closeRows(rows)

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, ErrNoRows
	}

	value, err := rm.MapRow(rows)
	if err != nil {
		return zero, err
	}

	if rows.Next() {
		return zero, ErrTooManyRows
	}
	if err := rows.Err(); err != nil {
		return zero, err
	}

	return as[R](value)
}

// optionalReturner адаптирует ноль или одну строку: отсутствие строк дает
// нулевое значение (nil для указателя).
type optionalReturner[R any] struct {
	mapped reflect.Type
}

func (r *optionalReturner[R]) MappedType() reflect.Type { return r.mapped }

func (r *optionalReturner[R]) Warm(*config.Registry) error { return nil }

func (r *optionalReturner[R]) Adapt(rows database.Rows, rm mapper.RowMapper) (R, error) {
	var zero R
	defer closeRows(rows)

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, nil
	}

	value, err := rm.MapRow(rows)
	if err != nil {
		return zero, err
	}

	if rows.Next() {
		return zero, ErrTooManyRows
	}
	if err := rows.Err(); err != nil {
		return zero, err
	}

	return as[R](value)
}

// collectionReturner адаптирует последовательность целиком в срез.
type collectionReturner[R any] struct {
	slice  reflect.Type
	mapped reflect.Type
}

func (r *collectionReturner[R]) MappedType() reflect.Type { return r.mapped }

func (r *collectionReturner[R]) Warm(*config.Registry) error { return nil }

func (r *collectionReturner[R]) Adapt(rows database.Rows, rm mapper.RowMapper) (R, error) {
	var zero R
	defer closeRows(rows)

	collected := reflect.MakeSlice(r.slice, 0, 8)
	for rows.Next() {
		value, err := rm.MapRow(rows)
		if err != nil {
			return zero, err
		}
		element := reflect.ValueOf(value)
		if !element.Type().AssignableTo(r.mapped) {
			return zero, fmt.Errorf("стратегия отображения вернула %T вместо %s", value, r.mapped)
		}
		collected = reflect.Append(collected, element)
	}
	if err := rows.Err(); err != nil {
		return zero, err
	}

	return as[R](collected.Interface())
}

// reducedReturner сворачивает последовательность пользовательской функцией,
// начиная с нулевого значения R.
type reducedReturner[R any] struct {
	fn contract.Reducer
}

func (r *reducedReturner[R]) MappedType() reflect.Type { return nil }

// Warm проверяет, что функция свёртки задана.
func (r *reducedReturner[R]) Warm(*config.Registry) error {
	if r.fn == nil {
		return errors.New("функция свёртки результата не задана")
	}
	return nil
}

func (r *reducedReturner[R]) Adapt(rows database.Rows, rm mapper.RowMapper) (R, error) {
	var zero R
	defer closeRows(rows)

	acc := any(zero)
	for rows.Next() {
		value, err := rm.MapRow(rows)
		if err != nil {
			return zero, err
		}
		acc = r.fn(acc, value)
	}
	if err := rows.Err(); err != nil {
		return zero, err
	}

	return as[R](acc)
}

// as приводит отображенное значение к объявленной форме R.
func as[R any](value any) (R, error) {
	typed, ok := value.(R)
	if !ok {
		var zero R
		return zero, fmt.Errorf("стратегия отображения вернула %T вместо %s",
			value, reflect.TypeOf((*R)(nil)).Elem())
	}
	return typed, nil
}

// closeRows закрывает последовательность, не маскируя основную ошибку.
func closeRows(rows database.Rows) {
	_ = rows.Close()
}

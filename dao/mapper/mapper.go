// Package mapper определяет стратегии отображения строк результата в значения
// Go. Помимо интерфейса RowMapper пакет содержит две встроенные стратегии:
// отображение в структуру по тегам `db` (с нечувствительным к регистру
// сопоставлением имен столбцов и полей) и отображение одиночного столбца в
// скалярное значение. Встроенные стратегии используются как типо-зависимый
// запасной вариант, когда явная стратегия не зарегистрирована.
package mapper

import (
	"fmt"
	"strings"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dao-framework/dao/database"
)

// RowMapper определяет стратегию отображения текущей строки последовательности
// в значение отображаемого типа. Реализация не должна продвигать
// последовательность: позиционирование выполняет вызывающая сторона.
type RowMapper interface {
	// MappedType возвращает тип значения, которое производит стратегия.
	MappedType() reflect.Type

	// MapRow отображает текущую строку последовательности rows в значение.
	MapRow(rows database.Rows) (any, error)
}

// ForType синтезирует типо-зависимую стратегию отображения для типа t:
// структуры отображаются по столбцам, скалярные типы — по первому столбцу.
// Возвращает ошибку, если для типа нет подходящей встроенной стратегии.
func ForType(t reflect.Type) (RowMapper, error) {
	elem := t
	for elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	switch elem.Kind() {
	case reflect.Struct:
		return &structMapper{typ: t, elem: elem}, nil
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return &scalarMapper{typ: t, elem: elem}, nil
	default:
		return nil, fmt.Errorf("не удалось синтезировать стратегию отображения для типа %s", t)
	}
}

// scalarMapper отображает первый столбец строки в значение скалярного типа
// или указателя на него.
type scalarMapper struct {
	typ  reflect.Type
	elem reflect.Type
}

// MappedType возвращает отображаемый тип.
func (m *scalarMapper) MappedType() reflect.Type {
	return m.typ
}

// MapRow считывает первый столбец текущей строки.
func (m *scalarMapper) MapRow(rows database.Rows) (any, error) {
	dest := reflect.New(m.elem)
	if err := rows.Scan(dest.Interface()); err != nil {
		return nil, fmt.Errorf("не удалось считать скалярное значение типа %s: %w", m.elem, err)
	}
	if m.typ.Kind() == reflect.Ptr {
		return dest.Interface(), nil
	}
	return dest.Elem().Interface(), nil
}

// structMapper отображает строку в структуру: поле выбирается по тегу `db`,
// иначе по имени без учета регистра. Лишние столбцы игнорируются.
type structMapper struct {
	typ  reflect.Type
	elem reflect.Type
}

// MappedType возвращает отображаемый тип.
func (m *structMapper) MappedType() reflect.Type {
	return m.typ
}

// MapRow отображает текущую строку в новый экземпляр структуры.
func (m *structMapper) MapRow(rows database.Rows) (any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить имена столбцов: %w", err)
	}

	value := reflect.New(m.elem).Elem()
	index := fieldIndex(m.elem)

	dest := make([]any, len(columns))
	for i, column := range columns {
		if fi, ok := index[strings.ToLower(column)]; ok {
			dest[i] = value.Field(fi).Addr().Interface()
		} else {
			// Неизвестный столбец считываем в пустышку.
			dest[i] = new(any)
		}
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("не удалось отобразить строку в %s: %w", m.elem, err)
	}

	if m.typ.Kind() == reflect.Ptr {
		result := reflect.New(m.elem)
		result.Elem().Set(value)
		return result.Interface(), nil
	}
	return value.Interface(), nil
}

// fieldIndex строит соответствие "имя столбца → индекс поля" для типа структуры.
func fieldIndex(t reflect.Type) map[string]int {
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // неэкспортируемое поле
		}
		name := field.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		index[strings.ToLower(name)] = i
	}
	return index
}

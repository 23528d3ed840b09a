package config

import (
	"fmt"
	"sync"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dao-framework/dao/mapper"
)

// RowMappers — это возможность реестра, хранящая зарегистрированные стратегии
// отображения строк, ключом служит отображаемый тип. Регистрация — это
// операция "добавить или заменить": повторная регистрация стратегии для того
// же типа замещает предыдущую и не порождает дубликатов.
type RowMappers struct {
	byType map[reflect.Type]mapper.RowMapper
	mu     sync.RWMutex
}

// Register регистрирует стратегию rm для ее отображаемого типа.
func (m *RowMappers) Register(rm mapper.RowMapper) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byType == nil {
		m.byType = make(map[reflect.Type]mapper.RowMapper)
	}
	m.byType[rm.MappedType()] = rm
}

// For возвращает зарегистрированную стратегию для типа t.
func (m *RowMappers) For(t reflect.Type) (mapper.RowMapper, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rm, ok := m.byType[t]
	return rm, ok
}

// Resolve возвращает стратегию отображения для типа t: зарегистрированную,
// если она есть, иначе — синтезированную типо-зависимую.
func (m *RowMappers) Resolve(t reflect.Type) (mapper.RowMapper, error) {
	if rm, ok := m.For(t); ok {
		return rm, nil
	}

	rm, err := mapper.ForType(t)
	if err != nil {
		return nil, fmt.Errorf("стратегия отображения для типа %s не зарегистрирована: %w", t, err)
	}
	return rm, nil
}

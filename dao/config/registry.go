// Package config реализует общий набор конфигурации фазы привязки:
// потокобезопасный реестр, ключом в котором служит возможность (capability),
// и конфигураторы — единицы, изменяющие реестр в ответ на декларативный маркер.
// Реестр изменяется только во время привязки и читается обработчиками во
// время выполнения.
package config

import (
	"sync"

	"github.com/goccy/go-reflect"
)

// Registry — это типобезопасный реестр возможностей. Каждая возможность
// существует в реестре в единственном экземпляре и создается лениво при
// первом обращении.
type Registry struct {
	capabilities map[reflect.Type]any
	mu           sync.RWMutex
}

// NewRegistry создает новый пустой реестр возможностей.
func NewRegistry() *Registry {
	return &Registry{
		capabilities: make(map[reflect.Type]any),
	}
}

// Get возвращает экземпляр возможности T из реестра r, создавая его при
// первом обращении. Повторные обращения возвращают тот же экземпляр.
func Get[T any](r *Registry) *T {
	key := reflect.TypeOf((*T)(nil))

	r.mu.RLock()
	capability, exists := r.capabilities[key]
	r.mu.RUnlock()

	if exists {
		return capability.(*T)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if capability, exists := r.capabilities[key]; exists {
		return capability.(*T)
	}

	instance := new(T)
	r.capabilities[key] = instance
	return instance
}

// Package binding — это корень композиции конвейера привязки: он разрешает
// для каждого объявленного метода, какие конфигураторы применить, какой
// вариант обработчика построить и какими декораторами его обернуть, и
// кеширует полученную стратегию на время жизни контракта. Разрешение
// выполняется энергично на фазе регистрации ("прогрев"), поэтому ошибки
// конфигурации всплывают при старте, а не при первом вызове.
package binding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dao-framework/dao/config"
	"github.com/x-research-team/dao-framework/dao/contract"
	"github.com/x-research-team/dao-framework/dao/database"
	"github.com/x-research-team/dao-framework/dao/handler"
	"github.com/x-research-team/dao-framework/dao/transaction"
)

// Binder хранит состояние привязки одного контракта: общий набор
// конфигурации и кеш построенных привязок. Регистрация методов должна
// выполняться последовательно на фазе настройки; построенные привязки
// безопасны для конкурентных вызовов.
type Binder struct {
	contract *contract.Contract
	registry *config.Registry
	bindings map[string]any
	options  *options
	mu       sync.RWMutex
}

// NewBinder создает связыватель для контракта c и сразу применяет
// конфигураторы маркеров уровня типа.
func NewBinder(c *contract.Contract, opts ...Option) (*Binder, error) {
	o := &options{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	b := &Binder{
		contract: c,
		registry: config.NewRegistry(),
		bindings: make(map[string]any),
		options:  o,
	}

	for _, mapperType := range c.Markers.MapperRegistrations {
		if err := config.NewRegisterRowMapper(mapperType).ConfigureForType(b.registry, c); err != nil {
			return nil, fmt.Errorf("не удалось построить контракт %s: %w", c.Name, err)
		}
	}

	return b, nil
}

// Config возвращает общий набор конфигурации контракта.
func (b *Binder) Config() *config.Registry {
	return b.registry
}

// Binding — это неизменяемая, кешированная стратегия вызова одного метода:
// квалифицированный тип возврата плюс обработчик с примененной цепочкой
// декораторов.
type Binding[R any] struct {
	method  *contract.Method
	qtype   contract.QualifiedType
	handler handler.Handler[R]
}

// QualifiedType возвращает разрешенный квалифицированный тип возврата метода.
func (b *Binding[R]) QualifiedType() contract.QualifiedType {
	return b.qtype
}

// Invoke выполняет привязанную стратегию на живом соединении h.
func (b *Binding[R]) Invoke(ctx context.Context, h database.Handle, args ...any) (R, error) {
	return b.handler.Invoke(ctx, h, args...)
}

// Register разрешает и кеширует привязку метода m с объявленным типом
// возврата R. Разрешение выполняется ровно один раз на метод; повторная
// регистрация того же имени — это ошибка.
func Register[R any](b *Binder, m *contract.Method) (*Binding[R], error) {
	declared := reflect.TypeOf((*R)(nil)).Elem()
	if m.ReturnType != declared {
		return nil, fmt.Errorf("не удалось построить контракт %s: метод %s объявляет тип возврата %s, а привязка запрошена для %s",
			b.contract.Name, m.Name, m.ReturnType, declared)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.bindings[m.Name]; exists {
		return nil, fmt.Errorf("метод %s.%s уже привязан", b.contract.Name, m.Name)
	}

	// Конфигураторы маркеров уровня метода выполняются один раз, до
	// построения обработчика.
	for _, mapperType := range m.Markers.MapperRegistrations {
		if err := config.NewRegisterRowMapper(mapperType).ConfigureForMethod(b.registry, b.contract, m); err != nil {
			return nil, fmt.Errorf("не удалось построить контракт %s: метод %s: %w", b.contract.Name, m.Name, err)
		}
	}

	base, err := newBase[R](b.contract, m)
	if err != nil {
		return nil, err
	}

	// Прогрев: проверки возможностей и разрешение стратегий отображения
	// выполняются энергично, до первого вызова.
	if err := base.Warm(b.registry); err != nil {
		return nil, err
	}

	decorated, err := decorate(b, m, base)
	if err != nil {
		return nil, err
	}

	bound := &Binding[R]{
		method:  m,
		qtype:   contract.ResolveQualifiedType(b.contract, m),
		handler: decorated,
	}
	b.bindings[m.Name] = bound
	return bound, nil
}

// Lookup возвращает кешированную привязку метода name с типом возврата R.
func Lookup[R any](b *Binder, name string) (*Binding[R], error) {
	b.mu.RLock()
	bound, exists := b.bindings[name]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("метод %s.%s не привязан", b.contract.Name, name)
	}

	typed, ok := bound.(*Binding[R])
	if !ok {
		return nil, fmt.Errorf("привязка метода %s.%s существует с другим типом возврата", b.contract.Name, name)
	}
	return typed, nil
}

// newBase выбирает вариант обработчика по маркерам метода. Ровно один из
// маркеров Update и Query обязан присутствовать.
func newBase[R any](c *contract.Contract, m *contract.Method) (handler.Handler[R], error) {
	switch {
	case m.Markers.Update && m.Markers.Query:
		return nil, fmt.Errorf("не удалось построить контракт %s: метод %s помечен и как изменяющий, и как выбирающий",
			c.Name, m.Name)
	case m.Markers.Update:
		return handler.NewUpdate[R](c, m)
	case m.Markers.Query:
		return handler.NewQuery[R](c, m)
	default:
		return nil, fmt.Errorf("не удалось построить контракт %s: метод %s не помечен ни как изменяющий, ни как выбирающий",
			c.Name, m.Name)
	}
}

// decorate применяет цепочку декораторов: логирование, метрики, трассировка
// снаружи, транзакционная область — ближе всего к базовому обработчику.
func decorate[R any](b *Binder, m *contract.Method, base handler.Handler[R]) (handler.Handler[R], error) {
	decorators := []handler.Decorator[R]{
		handler.NewLoggingDecorator[R](b.options.logger, b.contract.Name, m.Name),
		handler.NewMetricsDecorator[R](b.options.meterProvider, b.contract.Name, m.Name),
		handler.NewTracingDecorator[R](b.options.tracerProvider, b.contract.Name, m.Name),
	}

	if m.Markers.Transaction != nil || b.contract.Markers.Transaction != nil {
		txDecorator, err := transaction.Decorator[R](b.contract, m)
		if err != nil {
			return nil, fmt.Errorf("не удалось построить контракт %s: %w", b.contract.Name, err)
		}
		decorators = append(decorators, txDecorator)
	}

	return handler.Decorate(base, decorators...), nil
}

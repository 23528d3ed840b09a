// Package handler определяет исполняемую стратегию, привязанную к одному
// объявленному методу контракта, и декораторы, добавляющие сквозное поведение
// вокруг нее. Вариант стратегии (изменяющий, выбирающий) выбирается один раз
// на фазе привязки; во время вызова никакой инспекции типов не происходит.
package handler

import (
	"context"

	"github.com/x-research-team/dao-framework/dao/config"
	"github.com/x-research-team/dao-framework/dao/database"
)

// Handler — это исполняемая стратегия метода с объявленным типом возврата R.
// После построения и прогрева экземпляр неизменяем и безопасен для
// конкурентных вызовов.
type Handler[R any] interface {
	// Warm выполняет отложенные до фазы привязки проверки и разрешения:
	// ошибки конфигурации всплывают здесь, а не при первом вызове.
	Warm(reg *config.Registry) error

	// Invoke выполняет стратегию на живом соединении h с аргументами вызова.
	Invoke(ctx context.Context, h database.Handle, args ...any) (R, error)
}

// Func — это функциональная форма тела обработчика.
type Func[R any] func(ctx context.Context, h database.Handle, args ...any) (R, error)

// Decorator оборачивает базовый обработчик дополнительным поведением,
// не изменяя его контракт.
type Decorator[R any] func(next Handler[R]) Handler[R]

// Decorate применяет цепочку декораторов к базовому обработчику.
// Первый декоратор списка оказывается самым внешним.
func Decorate[R any](base Handler[R], decorators ...Decorator[R]) Handler[R] {
	h := base
	for i := len(decorators) - 1; i >= 0; i-- {
		h = decorators[i](h)
	}
	return h
}

// Wrap создает обработчик с телом invoke, делегирующий Warm обработчику next.
// Это стандартный способ построения декораторов.
func Wrap[R any](next Handler[R], invoke Func[R]) Handler[R] {
	return &wrapped[R]{next: next, invoke: invoke}
}

// wrapped — это обработчик-обертка, построенный через Wrap.
type wrapped[R any] struct {
	next   Handler[R]
	invoke Func[R]
}

// Warm делегирует прогрев обернутому обработчику.
func (w *wrapped[R]) Warm(reg *config.Registry) error {
	return w.next.Warm(reg)
}

// Invoke выполняет тело обертки.
func (w *wrapped[R]) Invoke(ctx context.Context, h database.Handle, args ...any) (R, error) {
	return w.invoke(ctx, h, args...)
}

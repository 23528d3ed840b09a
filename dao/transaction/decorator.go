// Package transaction реализует декоратор, исполняющий привязанный метод
// внутри транзакционной области. Транзакционный маркер ищется сначала на
// методе, затем на объявляющем контракте; из маркера извлекаются уровень
// изоляции и флаг "только чтение".
package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/x-research-team/dao-framework/dao/contract"
	"github.com/x-research-team/dao-framework/dao/database"
	"github.com/x-research-team/dao-framework/dao/handler"
)

// ErrNestedReadWrite возвращается при попытке выполнить вложенную транзакцию
// чтения-записи внутри активной транзакции только для чтения. Конфликт
// фатален и никогда не понижается до чтения молча.
var ErrNestedReadWrite = errors.New(
	"попытка выполнить вложенную транзакцию чтения-записи внутри транзакции только для чтения")

// Decorator строит транзакционный декоратор для метода m контракта c.
// Отсутствие транзакционного маркера и на методе, и на контракте — это
// ошибка конфигурации: декоратор прикрепляется только когда область запрошена.
func Decorator[R any](c *contract.Contract, m *contract.Method) (handler.Decorator[R], error) {
	marker := m.Markers.Transaction
	if marker == nil && c != nil {
		marker = c.Markers.Transaction
	}
	if marker == nil {
		contractName := "<анонимный контракт>"
		if c != nil {
			contractName = c.Name
		}
		return nil, fmt.Errorf("транзакционный маркер не найден для метода %s.%s", contractName, m.Name)
	}

	level := marker.Level
	readOnly := marker.ReadOnly

	return func(next handler.Handler[R]) handler.Handler[R] {
		return handler.Wrap(next, func(ctx context.Context, h database.Handle, args ...any) (R, error) {
			var zero R

			// Вход: конфликт вложенности проверяется до любой мутации.
			if h.InTransaction() && h.ReadOnly() && !readOnly {
				return zero, ErrNestedReadWrite
			}

			// Переключение флага при необходимости; восстановление прежнего
			// значения выполняется безусловно, в том числе при ошибке
			// обернутого вызова.
			if flip := readOnly != h.ReadOnly(); flip {
				h.SetReadOnly(readOnly)
				defer h.SetReadOnly(!readOnly)
			}

			value, err := h.Transact(ctx, level, func(ctx context.Context, th database.Handle) (any, error) {
				return next.Invoke(ctx, th, args...)
			})
			if err != nil {
				return zero, err
			}

			typed, ok := value.(R)
			if !ok {
				return zero, fmt.Errorf("транзакционная область вернула %T вместо объявленного типа", value)
			}
			return typed, nil
		})
	}, nil
}

package handler

import (
	"context"
	"fmt"

	"github.com/x-research-team/dao-framework/dao/config"
	"github.com/x-research-team/dao-framework/dao/contract"
	"github.com/x-research-team/dao-framework/dao/database"
	"github.com/x-research-team/dao-framework/dao/mapper"
	"github.com/x-research-team/dao-framework/dao/result"
)

// queryHandler — это выбирающий вариант обработчика: выполняет оператор в
// режиме возврата строк и адаптирует последовательность к объявленной форме.
type queryHandler[R any] struct {
	sql       string
	returner  result.Returner[R]
	rowMapper mapper.RowMapper
	diag      diagnostic
}

// NewQuery строит выбирающий обработчик для метода m контракта c.
// Маркер сгенерированных значений допустим только на изменяющих методах
// и отвергается здесь на фазе привязки.
func NewQuery[R any](c *contract.Contract, m *contract.Method) (Handler[R], error) {
	diag := diagnosticFor(c, m)

	if m.Markers.GeneratedKeys {
		return nil, fmt.Errorf("%s: маркер сгенерированных значений допустим только на изменяющем методе", diag)
	}
	if err := checkDeclaredType[R](m, diag); err != nil {
		return nil, err
	}

	qt := contract.ResolveQualifiedType(c, m)
	returner, err := result.ForType[R](qt, m.Markers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", diag, err)
	}

	return &queryHandler[R]{
		sql:       m.SQL,
		returner:  returner,
		rowMapper: m.Markers.RowMapper,
		diag:      diag,
	}, nil
}

// Warm распространяет прогрев на стратегию адаптации результата и заранее
// разрешает стратегию отображения строк.
func (h *queryHandler[R]) Warm(reg *config.Registry) error {
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

// Invoke выполняет оператор и адаптирует последовательность строк.
func (h *queryHandler[R]) Invoke(ctx context.Context, handle database.Handle, args ...any) (R, error) {
	var zero R

	rows, err := handle.Query(h.sql, args...).Execute(ctx)
	if err != nil {
		return zero, err
	}
	return h.returner.Adapt(rows, h.rowMapper)
}

package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/x-research-team/dao-framework/dao/database"
)

const (
	instrumentationName    = "github.com/x-research-team/dao-framework/dao/handler"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "dao."
)

// NewLoggingDecorator создает декоратор логирования вызовов привязанного
// метода. Каждому вызову присваивается уникальный идентификатор.
func NewLoggingDecorator[R any](logger *slog.Logger, contractName, methodName string) Decorator[R] {
	if logger == nil {
		return noopDecorator[R]()
	}

	return func(next Handler[R]) Handler[R] {
		return Wrap(next, func(ctx context.Context, h database.Handle, args ...any) (result R, err error) {
			invocationID := uuid.NewString()
			logger.Debug("вызов привязанного метода",
				slog.String("contract", contractName),
				slog.String("method", methodName),
				slog.String("invocation_id", invocationID),
			)

			startTime := time.Now()
			defer func() {
				duration := time.Since(startTime)
				if err != nil {
					logger.Error("ошибка вызова привязанного метода",
						slog.String("contract", contractName),
						slog.String("method", methodName),
						slog.String("invocation_id", invocationID),
						slog.Any("error", err),
						slog.Duration("duration", duration),
					)
				}
			}()

			return next.Invoke(ctx, h, args...)
		})
	}
}

// NewMetricsDecorator создает декоратор сбора метрик OpenTelemetry.
func NewMetricsDecorator[R any](provider metric.MeterProvider, contractName, methodName string) Decorator[R] {
	if provider == nil {
		return noopDecorator[R]()
	}

	meter := provider.Meter(instrumentationName)

	invokeCounter, err := meter.Int64Counter(
		metricKeyPrefix+"invoke.count",
		metric.WithDescription("Количество вызовов привязанных методов"),
		metric.WithUnit("{invocations}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик invoke.count: %v", err))
	}

	invokeDurationHist, err := meter.Float64Histogram(
		metricKeyPrefix+"invoke.duration",
		metric.WithDescription("Длительность вызова привязанного метода"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать гистограмму invoke.duration: %v", err))
	}

	return func(next Handler[R]) Handler[R] {
		return Wrap(next, func(ctx context.Context, h database.Handle, args ...any) (R, error) {
			startTime := time.Now()
			result, err := next.Invoke(ctx, h, args...)
			duration := float64(time.Since(startTime).Milliseconds())

			status := "success"
			if err != nil {
				status = "error"
			}

			attributes := metric.WithAttributes(
				attribute.String("dao.contract", contractName),
				attribute.String("dao.method", methodName),
				attribute.String("status", status),
			)
			invokeCounter.Add(ctx, 1, attributes)
			invokeDurationHist.Record(ctx, duration, attributes)

			return result, err
		})
	}
}

// NewTracingDecorator создает декоратор трассировки OpenTelemetry:
// на каждый вызов открывается спан, ошибки записываются в него.
func NewTracingDecorator[R any](provider trace.TracerProvider, contractName, methodName string) Decorator[R] {
	if provider == nil {
		return noopDecorator[R]()
	}

	tracer := provider.Tracer(
		instrumentationName,
		trace.WithInstrumentationVersion(instrumentationVersion),
	)
	spanName := fmt.Sprintf("%s.%s invoke", contractName, methodName)

	return func(next Handler[R]) Handler[R] {
		return Wrap(next, func(ctx context.Context, h database.Handle, args ...any) (result R, err error) {
			ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
			defer func() {
				if err != nil {
					span.RecordError(err)
				}
				span.End()
			}()

			return next.Invoke(ctx, h, args...)
		})
	}
}

// noopDecorator возвращает декоратор, не изменяющий обработчик.
func noopDecorator[R any]() Decorator[R] {
	return func(next Handler[R]) Handler[R] {
		return next
	}
}

package binding

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// options содержит неэкспортируемую конфигурацию связывателя.
type options struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option определяет тип для функциональных опций связывателя.
type Option func(*options)

// WithLogger возвращает опцию, которая устанавливает логгер для декоратора
// логирования вызовов.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracerProvider возвращает опцию, которая устанавливает провайдер
// трассировки для декоратора вызовов.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = provider
	}
}

// WithMeterProvider возвращает опцию, которая устанавливает провайдер метрик
// для декоратора вызовов.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = provider
	}
}

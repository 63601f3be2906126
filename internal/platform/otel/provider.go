// Package otel configures opt-in trace export for the services.
package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/wrenfold/roundtable/internal/platform/config"
)

// traceEnv carries the env-driven trace export settings.
type traceEnv struct {
	Endpoint string `env:"ROUNDTABLE_OTEL_ENDPOINT"`
	Enabled  string `env:"ROUNDTABLE_OTEL_ENABLED"`
}

// Setup initialises trace export for one service. Export is opt-in: without
// ROUNDTABLE_OTEL_ENDPOINT, or with ROUNDTABLE_OTEL_ENABLED set to "false",
// no global provider is registered and the returned shutdown is a no-op.
// Callers defer the shutdown to flush pending spans.
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	var cfg traceEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return noop, err
	}
	if strings.EqualFold(cfg.Enabled, "false") || cfg.Endpoint == "" {
		return noop, nil
	}

	provider, err := newProvider(ctx, cfg.Endpoint, serviceName)
	if err != nil {
		return noop, err
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return provider.Shutdown, nil
}

// newProvider builds a batching OTLP HTTP provider named for the service.
func newProvider(ctx context.Context, endpoint, serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

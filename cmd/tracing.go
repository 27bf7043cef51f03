package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/sells-group/floodrisk/internal/config"
)

// initTracing installs an OTLP/HTTP tracer provider when an endpoint is
// configured. The returned func flushes and stops it.
func initTracing(ctx context.Context, tc config.TraceConfig) (func(context.Context) error, error) {
	if tc.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(tc.Endpoint)}
	if tc.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "tracing: create exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", tc.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)

	zap.L().Debug("tracing enabled", zap.String("endpoint", tc.Endpoint))
	return tp.Shutdown, nil
}

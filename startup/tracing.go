package startup

import (
	"context"

	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "rental_service"

type tracerProvider interface {
	trace.TracerProvider
	Shutdown(ctx context.Context) error
}

type noopProvider struct {
	trace.TracerProvider
}

func (noopProvider) Shutdown(context.Context) error { return nil }

// newTracerProvider exports to jaeger, or traces nowhere when address is empty.
func newTracerProvider(address string) (tracerProvider, error) {
	if address == "" {
		return noopProvider{trace.NewNoopTracerProvider()}, nil
	}
	exp, err := newExporter(address)
	if err != nil {
		return nil, err
	}
	return newTraceProvider(exp)
}

func newExporter(address string) (*jaeger.Exporter, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(address)))
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func newTraceProvider(exp sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	), nil
}

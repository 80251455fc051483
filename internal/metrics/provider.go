package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// MeterName is the instrumentation scope used for realtime instruments.
const MeterName = "homeservices-realtime"

// Shutdown flushes and stops an installed meter provider.
type Shutdown func(context.Context) error

// NewProvider installs an SDK meter provider exporting over OTLP/gRPC when
// endpoint is set. The exporter reads OTEL_EXPORTER_OTLP_* from the
// environment. With no endpoint the global provider is returned unchanged.
func NewProvider(ctx context.Context, endpoint, serviceName string) (metric.MeterProvider, Shutdown, error) {
	if endpoint == "" {
		return otel.GetMeterProvider(), func(context.Context) error { return nil }, nil
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}
	mp, err := newMeterProvider(ctx, serviceName, sdkmetric.NewPeriodicReader(exporter))
	if err != nil {
		return nil, nil, err
	}
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}

func newMeterProvider(ctx context.Context, serviceName string, reader sdkmetric.Reader) (*sdkmetric.MeterProvider, error) {
	if serviceName == "" {
		serviceName = MeterName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	), nil
}

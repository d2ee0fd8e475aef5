package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is used for every span of a run. It resolves through the global
// provider, so it is a no-op until InitTracing installs an exporter.
var Tracer trace.Tracer = otel.Tracer("nameres")

type TracingConfig struct {
	Endpoint    string
	ServiceName string
	SampleRatio float64
	Insecure    bool
}

// InitTracing installs an OTLP/gRPC exporter when an endpoint is set. The
// returned function flushes and shuts the provider down.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return func(context.Context) error { return nil }, nil
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	provider := NewProvider(cfg, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(2*time.Second)))
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer("nameres")
	return provider.Shutdown, nil
}

// NewProvider builds a provider with the service resource and sampler of
// cfg. Tests pass a syncer such as tracetest's in-memory exporter.
func NewProvider(cfg TracingConfig, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	name := cfg.ServiceName
	if name == "" {
		name = "nameres"
	}
	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}
	return sdktrace.NewTracerProvider(append(base, opts...)...)
}

package observability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitTracing installs the global tracer provider. The W3C propagator is
// installed even when export is off so the gateway still relays traceparent
// from clients to upstreams.
func InitTracing(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	var tpOpts []sdktrace.TracerProviderOption
	if cfg.OTELTracingEnabled {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
		if cfg.OTELExporterOTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", err)
		}
		res, err := serviceResource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create trace resource: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
	}
	tpOpts = append(tpOpts, sdktrace.WithSampler(traceSampler(cfg)))

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	if cfg.OTELTracingEnabled {
		logger.Info("otel tracing initialized", "endpoint", cfg.OTELExporterOTLPEndpoint, "sampling_ratio", cfg.OTELTraceSamplingRatio)
	} else {
		logger.Info("otel tracing disabled")
	}
	return tp, nil
}

// traceSampler honours the caller's sampling decision and applies the
// configured ratio to new root spans.
func traceSampler(cfg *config.Config) sdktrace.Sampler {
	if !cfg.OTELTracingEnabled {
		return sdktrace.NeverSample()
	}
	switch ratio := cfg.OTELTraceSamplingRatio; {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

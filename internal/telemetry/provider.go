package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider owns the tracer provider exporting spans over OTLP/HTTP.
// A nil *Provider is a valid no-op, so callers never need to branch on
// whether telemetry is configured.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
	cfg    *Config
}

// Init sets up span export for the given config. A nil config returns
// a nil provider and no error.
func Init(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg == nil {
		log.Debug().Msg("No telemetry token configured, spans disabled")
		return nil, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.BaseURL+"/v1/traces"),
		otlptracehttp.WithHeaders(map[string]string{"Authorization": cfg.Token}),
	)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, attrs...),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxQueueSize(100),
			sdktrace.WithMaxExportBatchSize(50),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
	)
	otel.SetTracerProvider(tp)

	if cfg.Debug {
		log.Info().Str("endpoint", cfg.BaseURL+"/v1/traces").Msg("Telemetry initialized")
	}

	return &Provider{
		tp:     tp,
		tracer: tp.Tracer("openfleet-telemetry"),
		cfg:    cfg,
	}, nil
}

// Tracer returns the process tracer, or nil when telemetry is off.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return nil
	}
	return p.tracer
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if err := p.tp.ForceFlush(ctx); err != nil {
		log.Warn().Err(err).Msg("Telemetry flush failed")
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

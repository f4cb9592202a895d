// Package observability configures OpenTelemetry tracing for the server.
//
// Spans come from three places: otelgin for HTTP requests, the gorm tracing
// plugin for SQL, and the services themselves (one span per voting
// operation). They are exported over OTLP/gRPC and every span carries the
// conference the process serves as a resource attribute.
package observability

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-cfp-voting/internal/config"
)

// ConferenceKey tags every span with the conference the process serves.
const ConferenceKey = attribute.Key("cfp.conference")

// Test seams.
var (
	newOTLPClient = otlptracegrpc.NewClient

	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newServiceResourceFn = func(ctx context.Context, attrs ...attribute.KeyValue) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(attrs...))
	}
)

// SetupTracing installs a global tracer provider exporting to cfg.Endpoint
// and the W3C trace-context and baggage propagators. It returns the
// provider's shutdown, which flushes pending spans. With tracing disabled, or
// on error, the globals are left untouched.
func SetupTracing(ctx context.Context, cfg config.OTELConfig, version, conference string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	tp, err := newProvider(ctx, cfg, resourceAttrs(cfg.ServiceName, version, conference))
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	log.Info().
		Str("endpoint", cfg.Endpoint).
		Bool("insecure", cfg.Insecure).
		Float64("sample_ratio", clampRatio(cfg.SampleRatio)).
		Str("conference", conference).
		Msg("tracing enabled")
	return tp.Shutdown, nil
}

func newProvider(ctx context.Context, cfg config.OTELConfig, attrs []attribute.KeyValue) (*sdktrace.TracerProvider, error) {
	exp, err := newOTLPExporterFn(ctx, newOTLPClient(exporterOptions(cfg)...))
	if err != nil {
		return nil, err
	}
	res, err := newServiceResourceFn(ctx, attrs...)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	), nil
}

// exporterOptions dials cfg.Endpoint in plaintext when cfg.Insecure and with
// system-root TLS otherwise.
func exporterOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	transport := otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, ""))
	if cfg.Insecure {
		transport = otlptracegrpc.WithInsecure()
	}
	return []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint), transport}
}

// resourceAttrs describes this process. The conference attribute is omitted
// when empty.
func resourceAttrs(service, version, conference string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(service),
		semconv.ServiceVersion(version),
	}
	if conference != "" {
		attrs = append(attrs, ConferenceKey.String(conference))
	}
	return attrs
}

// clampRatio bounds a sampling ratio to [0, 1].
func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

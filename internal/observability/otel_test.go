package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/tbourn/go-cfp-voting/internal/config"
)

// keepGlobals restores the OTel globals when the test ends.
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func enabled(name string) config.OTELConfig {
	return config.OTELConfig{Enabled: true, Insecure: true, Endpoint: "localhost:4317", ServiceName: name, SampleRatio: 1}
}

func TestSetupTracing_DisabledLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	cfg := enabled("cfp-voting")
	cfg.Enabled = false
	shutdown, err := SetupTracing(context.Background(), cfg, "v0", "GopherCon")
	if err != nil || shutdown == nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("disabled tracing replaced the provider")
	}
}

func TestSetupTracing_InstallsProvider(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name string
		ctx  context.Context
		cfg  func() config.OTELConfig
	}{
		{"insecure", context.Background(), func() config.OTELConfig { return enabled("cfp-insecure") }},
		{"tls", context.Background(), func() config.OTELConfig {
			c := enabled("cfp-tls")
			c.Insecure = false
			return c
		}},
		{"canceled setup context", canceled, func() config.OTELConfig { return enabled("cfp-canceled") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keepGlobals(t)
			shutdown, err := SetupTracing(tc.ctx, tc.cfg(), "v1.2.3", "GopherCon")
			if err != nil {
				t.Fatalf("SetupTracing: %v", err)
			}
			if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
				t.Fatalf("provider = %T", otel.GetTracerProvider())
			}

			ctx, span := otel.Tracer("voting").Start(context.Background(), "SelectCandidate")
			carrier := propagation.MapCarrier{}
			otel.GetTextMapPropagator().Inject(ctx, carrier)
			span.End()
			if carrier.Get("traceparent") == "" {
				t.Fatalf("traceparent not injected: %v", carrier)
			}

			sctx, stop := context.WithTimeout(context.Background(), 250*time.Millisecond)
			defer stop()
			_ = shutdown(sctx)
		})
	}
}

func TestSetupTracing_SeamFailuresLeaveGlobals(t *testing.T) {
	origExp, origRes := newOTLPExporterFn, newServiceResourceFn
	t.Cleanup(func() { newOTLPExporterFn, newServiceResourceFn = origExp, origRes })

	cases := []struct {
		name  string
		patch func()
	}{
		{"exporter", func() {
			newOTLPExporterFn = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
				return nil, errors.New("boom-exporter")
			}
		}},
		{"resource", func() {
			newServiceResourceFn = func(context.Context, ...attribute.KeyValue) (*resource.Resource, error) {
				return nil, errors.New("boom-resource")
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keepGlobals(t)
			newOTLPExporterFn, newServiceResourceFn = origExp, origRes
			tc.patch()

			tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
			if _, err := SetupTracing(context.Background(), enabled("cfp"), "v0", ""); err == nil {
				t.Fatal("expected error")
			}
			if otel.GetTracerProvider() != tp || otel.GetTextMapPropagator() != prop {
				t.Fatal("globals changed on failure")
			}
		})
	}
}

func Test_resourceAttrs(t *testing.T) {
	got := resourceAttrs("cfp-voting", "v1", "GopherCon")
	want := []attribute.KeyValue{
		semconv.ServiceName("cfp-voting"),
		semconv.ServiceVersion("v1"),
		ConferenceKey.String("GopherCon"),
	}
	if len(got) != len(want) {
		t.Fatalf("attrs = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("attr %d = %v; want %v", i, got[i], want[i])
		}
	}
	if n := len(resourceAttrs("cfp-voting", "v1", "")); n != 2 {
		t.Fatalf("empty conference must be omitted, got %d attrs", n)
	}
}

func Test_exporterOptions(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		cfg := enabled("cfp")
		cfg.Insecure = insecure
		if n := len(exporterOptions(cfg)); n != 2 {
			t.Fatalf("insecure=%v: %d options", insecure, n)
		}
	}
}

func Test_clampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0: 0, 0.25: 0.25, 1: 1, 7: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v) = %v; want %v", in, got, want)
		}
	}
}

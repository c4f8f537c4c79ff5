package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracingConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("SIM_TRACING_ENABLED", "")
	t.Setenv("SIM_TRACING_EXPORTER", "")
	t.Setenv("SIM_TRACING_SERVICE_NAME", "")
	t.Setenv("SIM_TRACING_SAMPLE_RATIO", "2.5")

	cfg := TracingConfigFromEnv()
	if cfg.Enabled {
		t.Fatalf("tracing should be disabled by default")
	}
	if cfg.Exporter != "stdout" || cfg.ServiceName != "gene-expression-sim" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("out-of-range ratio should fall back to 1, got %v", cfg.SampleRatio)
	}
}

func TestTracingConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("SIM_TRACING_ENABLED", "TRUE")
	t.Setenv("SIM_TRACING_EXPORTER", "OTLP")
	t.Setenv("SIM_TRACING_SERVICE_NAME", "lab")
	t.Setenv("SIM_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("SIM_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	want := TracingConfig{Enabled: true, ServiceName: "lab", Exporter: "otlp", Endpoint: "collector:4317", SampleRatio: 0.25}
	if cfg != want {
		t.Fatalf("config = %+v, want %+v", cfg, want)
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	ShutdownWithTimeout(context.Background(), shutdown, nil)
	ShutdownWithTimeout(context.Background(), nil, nil)
}

func TestInitTracingStdoutWritesSpans(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Scenario:    "two-gene",
		Output:      &out,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	_, span := otel.Tracer("test").Start(context.Background(), "SimulationEngine.Step")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(out.String(), "SimulationEngine.Step") || !strings.Contains(out.String(), "two-gene") {
		t.Fatalf("stdout exporter output missing span or scenario:\n%s", out.String())
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "carrier-pigeon", SampleRatio: 1}, nil)
	if err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}

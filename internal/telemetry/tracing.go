package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps the process-global OTel trace/meter providers wired to
// stdout exporters. It exists for local inspection only (see the
// OTEL_TRACES_ENABLED config flag); identityd does not emit custom spans
// beyond the SDK's own defaults, matching the development-only scope named
// in the external interfaces.
type Tracing struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// SetupStdout installs stdout-backed trace and metric providers as the
// process-global OTel providers, writing to w (typically stdout or a
// dev-mode log file). Call Shutdown to flush and detach them.
func SetupStdout(w io.Writer) (*Tracing, error) {
	traceExp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: create stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))
	otel.SetTracerProvider(tp)

	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create stdout metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
	otel.SetMeterProvider(mp)

	return &Tracing{tracerProvider: tp, meterProvider: mp}, nil
}

// Tracer returns a tracer from the global provider.
func (t *Tracing) Tracer(name string) trace.Tracer {
	return t.tracerProvider.Tracer(name)
}

// Meter returns a meter from the global provider.
func (t *Tracing) Meter(name string) metric.Meter {
	return t.meterProvider.Meter(name)
}

// Shutdown flushes and detaches the trace/meter providers.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		return err
	}
	return t.meterProvider.Shutdown(ctx)
}

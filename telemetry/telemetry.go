// Package telemetry records lint runs as OpenTelemetry spans and metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/corymhall/jxalsp/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pulumi/pulumi/sdk/v3/go/common/util/contract"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scope = "github.com/corymhall/jxalsp"

var ErrUnknownExporter = errors.New("unknown telemetry exporter")

// Telemetry holds the instruments of the server. The zero value is not
// usable; use Noop or Init.
type Telemetry struct {
	tracer   trace.Tracer
	runs     metric.Int64Counter
	stale    metric.Int64Counter
	issues   metric.Int64Histogram
	duration metric.Float64Histogram

	handler  http.Handler
	shutdown []func(context.Context) error
}

// Noop returns a Telemetry that records nothing.
func Noop() *Telemetry {
	t, err := newTelemetry(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	contract.AssertNoErrorf(err, "creating noop instruments")
	return t
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*Telemetry, error) {
	meter := mp.Meter(scope)
	t := &Telemetry{tracer: tp.Tracer(scope)}
	var err error
	if t.runs, err = meter.Int64Counter("jxalsp_lint_runs",
		metric.WithDescription("Lint runs by provider, mode and outcome")); err != nil {
		return nil, err
	}
	if t.stale, err = meter.Int64Counter("jxalsp_lint_stale_results",
		metric.WithDescription("Lint results discarded because a newer run already finished")); err != nil {
		return nil, err
	}
	if t.issues, err = meter.Int64Histogram("jxalsp_lint_issues",
		metric.WithDescription("Issues reported per lint run")); err != nil {
		return nil, err
	}
	if t.duration, err = meter.Float64Histogram("jxalsp_lint_duration",
		metric.WithDescription("Duration of lint runs"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return t, nil
}

// Init sets up the exporter named by cfg and installs the providers as the
// otel globals. Call Shutdown on the result before exiting.
func Init(_ context.Context, cfg config.Telemetry, version string) (*Telemetry, error) {
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "jxalsp"),
		attribute.String("service.version", version),
	)

	switch cfg.Exporter {
	case "", "none":
		return Noop(), nil

	case "prometheus":
		reg := prometheus.NewRegistry()
		exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(exporter))
		t, err := newTelemetry(tracenoop.NewTracerProvider(), mp)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		t.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		t.shutdown = append(t.shutdown, mp.Shutdown)
		if cfg.Addr != "" {
			t.serve(cfg.Addr)
		}
		return t, nil

	case "stdout":
		w, closeFn, err := openOutput(cfg.File)
		if err != nil {
			return nil, err
		}
		spanExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		)
		t, err := newTelemetry(tp, mp)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		t.shutdown = append(t.shutdown, tp.Shutdown, mp.Shutdown, func(context.Context) error { return closeFn() })
		return t, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}
}

// openOutput opens the stdout exporter destination. Standard output carries
// the protocol stream, so the default is standard error.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening telemetry file: %w", err)
	}
	return f, f.Close, nil
}

func (t *Telemetry) serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			otel.Handle(fmt.Errorf("metrics endpoint: %w", err))
		}
	}()
	t.shutdown = append(t.shutdown, srv.Shutdown)
}

// Handler returns the Prometheus scrape handler, or nil when Prometheus is
// not the exporter.
func (t *Telemetry) Handler() http.Handler {
	return t.handler
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		errs = append(errs, fn(ctx))
	}
	t.shutdown = nil
	return errors.Join(errs...)
}

// StartRun opens the span of one lint run.
func (t *Telemetry) StartRun(ctx context.Context, provider, mode, uri string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "lint",
		trace.WithAttributes(
			attribute.String("lint.provider", provider),
			attribute.String("lint.mode", mode),
			attribute.String("lint.uri", uri),
		),
	)
}

// Outcome of a lint run as recorded in metrics.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeError  Outcome = "error"
	OutcomeStale  Outcome = "stale"
	OutcomeClosed Outcome = "closed"
	// OutcomeOff is a result that arrived after linting was turned off.
	OutcomeOff Outcome = "off"
	// OutcomeCancelled is a run cancelled before it finished, for example
	// on shutdown.
	OutcomeCancelled Outcome = "cancelled"
)

// EndRun records a finished run and ends its span.
func (t *Telemetry) EndRun(ctx context.Context, span trace.Span, provider, mode string, started time.Time, issues int, outcome Outcome, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("mode", mode),
		attribute.String("outcome", string(outcome)),
	)
	t.runs.Add(ctx, 1, attrs)
	t.duration.Record(ctx, time.Since(started).Seconds(), attrs)
	if outcome == OutcomeStale {
		t.stale.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
	}
	if outcome == OutcomeOK {
		t.issues.Record(ctx, int64(issues), metric.WithAttributes(attribute.String("provider", provider)))
	}

	span.SetAttributes(
		attribute.Int("lint.issue_count", issues),
		attribute.String("lint.outcome", string(outcome)),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

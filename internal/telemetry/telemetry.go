package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/ppiankov/factlens"

// Telemetry owns the tracer, the meter and the exporters behind them
type Telemetry struct {
	tracer        trace.Tracer
	metrics       *Metrics
	shutdownFuncs []func(context.Context) error
}

// New builds telemetry from configuration.
// Tracing is exported over OTLP/HTTP only when an endpoint is set and metrics
// are served for Prometheus only when a port is set; otherwise no-op providers
// are used.
func New(ctx context.Context, cfg model.TelemetryConfig, version string) (*Telemetry, error) {
	res, err := newResource(cfg, version)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	t := &Telemetry{}

	var tp trace.TracerProvider = tracenoop.NewTracerProvider()
	if cfg.OTLPEndpoint != "" {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithTimeout(10 * time.Second),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		sdkTP := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		)
		otel.SetTracerProvider(sdkTP)
		t.shutdownFuncs = append(t.shutdownFuncs, sdkTP.Shutdown)
		tp = sdkTP
	}

	var mp metric.MeterProvider = metricnoop.NewMeterProvider()
	if cfg.PrometheusPort > 0 {
		promExporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		sdkMP := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(promExporter),
		)
		otel.SetMeterProvider(sdkMP)
		t.shutdownFuncs = append(t.shutdownFuncs, sdkMP.Shutdown)
		mp = sdkMP

		server, err := serveMetrics(cfg.PrometheusPort)
		if err != nil {
			return nil, err
		}
		t.shutdownFuncs = append(t.shutdownFuncs, server.Shutdown)
	}

	if err := t.init(tp, mp, version); err != nil {
		return nil, err
	}
	return t, nil
}

// NewWithProviders builds telemetry on caller-supplied providers
func NewWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Telemetry, error) {
	t := &Telemetry{}
	if err := t.init(tp, mp, ""); err != nil {
		return nil, err
	}
	return t, nil
}

// Noop returns telemetry that records nothing
func Noop() *Telemetry {
	t, _ := NewWithProviders(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	return t
}

func (t *Telemetry) init(tp trace.TracerProvider, mp metric.MeterProvider, version string) error {
	t.tracer = tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(version))
	m, err := NewMetrics(mp.Meter(instrumentationName, metric.WithInstrumentationVersion(version)))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}
	t.metrics = m
	return nil
}

func newResource(cfg model.TelemetryConfig, version string) (*resource.Resource, error) {
	hostname, _ := os.Hostname()
	name := cfg.ServiceName
	if name == "" {
		name = "factlens"
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
			attribute.String("host.name", hostname),
		),
	)
}

func serveMetrics(port int) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("listen on metrics port %d: %w", port, err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			otel.Handle(fmt.Errorf("metrics server: %w", err))
		}
	}()
	return server, nil
}

// Metrics returns the recorder for pipeline counters
func (t *Telemetry) Metrics() *Metrics {
	if t == nil {
		return nil
	}
	return t.metrics
}

// StartSpan starts a span carrying the given attributes
func (t *Telemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Shutdown flushes exporters and stops the metrics endpoint
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	for _, fn := range t.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

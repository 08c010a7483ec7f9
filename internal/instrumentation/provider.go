package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the OpenTelemetry meter and tracer providers and the
// metrics recorder built on them. A disabled provider still hands out a
// no-op recorder, so callers never branch on configuration.
//
// There is no stdout exporter: stdout carries the MCP stdio transport and
// must stay free of telemetry.
type Provider struct {
	config  Config
	meters  *metric.MeterProvider
	tracers *sdktrace.TracerProvider
	metrics *Metrics
	enabled bool
}

// NewProvider builds a provider from the given configuration and installs
// it as the global OpenTelemetry provider pair.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{config: cfg, metrics: &Metrics{}}, nil
	}

	res, err := newTelemetryResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	reader, err := newMetricReader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	meters := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(reader),
	)

	tracers, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, errors.Join(err, meters.Shutdown(ctx))
	}

	recorder, err := NewMetrics(meters.Meter(cfg.ServiceName), cfg.DetailedLabels)
	if err != nil {
		err = fmt.Errorf("building metrics recorder: %w", err)
		return nil, errors.Join(err, meters.Shutdown(ctx), tracers.Shutdown(ctx))
	}

	otel.SetMeterProvider(meters)
	otel.SetTracerProvider(tracers)

	return &Provider{
		config:  cfg,
		meters:  meters,
		tracers: tracers,
		metrics: recorder,
		enabled: true,
	}, nil
}

// newTelemetryResource describes this process to the telemetry backend.
// The instance id is the hostname when one is available.
func newTelemetryResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if hostname, err := os.Hostname(); err == nil {
		attrs = append(attrs, semconv.ServiceInstanceID(hostname))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

// newMetricReader selects the metrics export path. Prometheus is a pull
// reader scraped through the metrics server; OTLP pushes periodically.
func newMetricReader(ctx context.Context, cfg Config) (metric.Reader, error) {
	switch cfg.MetricsExporter {
	case ExporterPrometheus:
		reader, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("building prometheus reader: %w", err)
		}
		return reader, nil

	case ExporterOTLP:
		if cfg.OTLPEndpoint == "" {
			return nil, fmt.Errorf("metrics exporter %q needs OTEL_EXPORTER_OTLP_ENDPOINT", ExporterOTLP)
		}
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("building otlp metric exporter: %w", err)
		}
		return metric.NewPeriodicReader(exporter), nil

	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", cfg.MetricsExporter)
	}
}

// newTracerProvider selects the trace export path. "none" still installs a
// provider so span contexts flow into audit logs, it just never samples.
func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if cfg.TracingExporter == ExporterNone {
		return sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		), nil
	}
	if cfg.TracingExporter != ExporterOTLP {
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.TracingExporter)
	}
	if cfg.OTLPEndpoint == "" {
		return nil, fmt.Errorf("tracing exporter %q needs OTEL_EXPORTER_OTLP_ENDPOINT", ExporterOTLP)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		// Spans carry mailbox metadata; unencrypted export is for local
		// collectors only.
		slog.Warn("exporting traces over unencrypted OTLP",
			"endpoint", cfg.OTLPEndpoint)
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("building otlp trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(cfg.TraceSamplingRate),
		)),
	), nil
}

// Metrics returns the metrics recorder. It is never nil.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Tracer returns a tracer for creating spans, a no-op one when
// instrumentation is off.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tracers == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tracers.Tracer(name)
}

// Shutdown flushes pending telemetry. Safe to call on a disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meters != nil {
		if err := p.meters.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if p.tracers != nil {
		if err := p.tracers.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled reports whether instrumentation was configured on.
func (p *Provider) Enabled() bool {
	return p.enabled
}

package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records pipeline stage timings through OpenTelemetry,
// exported in Prometheus format. A nil or zero value records nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	stageCounter  otelmetric.Int64Counter
	stageDuration otelmetric.Float64Histogram
}

type options struct {
	registerer promclient.Registerer
	global     bool
}

type Option func(*options)

// WithRegisterer exports into reg instead of the default registry.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// AsGlobal installs the provider as the process-wide meter provider.
func AsGlobal() Option {
	return func(o *options) { o.global = true }
}

func New(serviceName string, opts ...Option) (*Observability, error) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	exporterOpts := []prometheus.Option{}
	if cfg.registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(cfg.registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	if cfg.global {
		otel.SetMeterProvider(provider)
	}
	meter := provider.Meter(serviceName)

	stageCounter, err := meter.Int64Counter(
		"agent.stage.count",
		otelmetric.WithDescription("Number of pipeline stages entered"),
	)
	if err != nil {
		return &Observability{}, err
	}

	stageDuration, err := meter.Float64Histogram(
		"agent.stage.duration",
		otelmetric.WithDescription("Pipeline stage duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return &Observability{}, err
	}

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
	}, nil
}

// RecordStage records one completed stage and its outcome.
func (o *Observability) RecordStage(ctx context.Context, stage string, duration time.Duration, outcome string) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	)
	if o.stageCounter != nil {
		o.stageCounter.Add(ctx, 1, attrs)
	}
	if o.stageDuration != nil {
		o.stageDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}

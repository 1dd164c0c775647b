package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OpenTelemetry meter. Instruments are exported
// through the prometheus registry handed to New, so they show up on the
// same /metrics endpoint as the promauto collectors.
type Observability struct {
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	scoreCounter   otelmetric.Int64Counter
	transitions    otelmetric.Int64Counter
	requestLatency otelmetric.Float64Histogram
}

func New(serviceName string, reg promclient.Registerer) (*Observability, error) {
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)
	o := &Observability{meterProvider: provider, meter: meter}

	if o.jobCounter, err = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	); err != nil {
		return nil, err
	}
	if o.jobDuration, err = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if o.scoreCounter, err = meter.Int64Counter(
		"readiness.scores",
		otelmetric.WithDescription("Readiness scores computed per level"),
	); err != nil {
		return nil, err
	}
	if o.transitions, err = meter.Int64Counter(
		"navigation.transitions",
		otelmetric.WithDescription("Navigation state changes per operation"),
	); err != nil {
		return nil, err
	}
	if o.requestLatency, err = meter.Float64Histogram(
		"http.server.duration",
		otelmetric.WithDescription("HTTP request duration"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Noop returns an Observability whose Record methods do nothing.
func Noop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordScore(ctx context.Context, level string) {
	if o == nil || o.scoreCounter == nil {
		return
	}
	o.scoreCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("level", level)))
}

func (o *Observability) RecordTransition(ctx context.Context, operation string) {
	if o == nil || o.transitions == nil {
		return
	}
	o.transitions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("operation", operation)))
}

func (o *Observability) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if o == nil || o.requestLatency == nil {
		return
	}
	o.requestLatency.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

func (o *Observability) Shutdown() error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}

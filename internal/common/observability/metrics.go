package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider     *metric.MeterProvider
	meter             otelmetric.Meter
	listingCounter    otelmetric.Int64Counter
	submissionCounter otelmetric.Int64Counter
	formDuration      otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	listingCounter, _ := meter.Int64Counter(
		"listings.processed",
		otelmetric.WithDescription("Number of job listings processed, by action taken"),
	)

	submissionCounter, _ := meter.Int64Counter(
		"applications.completed",
		otelmetric.WithDescription("Number of application flows completed, by outcome"),
	)

	formDuration, _ := meter.Float64Histogram(
		"form.duration",
		otelmetric.WithDescription("Form completion duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:     provider,
		meter:             meter,
		listingCounter:    listingCounter,
		submissionCounter: submissionCounter,
		formDuration:      formDuration,
	}
}

// RecordListing counts one processed listing. action is one of
// skipped_quota, skipped_irrelevant, skipped_applied, attempted, error.
func (o *Observability) RecordListing(ctx context.Context, action string) {
	if o.listingCounter != nil {
		o.listingCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("action", action),
		))
	}
}

// RecordOutcome counts one finished form flow. outcome is "submitted" or the
// abandonment reason.
func (o *Observability) RecordOutcome(ctx context.Context, outcome string) {
	if o.submissionCounter != nil {
		o.submissionCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordFormDuration(ctx context.Context, duration time.Duration, outcome string) {
	if o.formDuration != nil {
		o.formDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}

package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ConversationTurnsTotal  metric.Int64Counter
	FallbacksTotal          metric.Int64Counter
	ExternalCallErrorsTotal metric.Int64Counter
	PlanDurationSeconds     metric.Float64Histogram
	PlanWarningsTotal       metric.Int64Counter
	VisitsScheduledTotal    metric.Int64Counter
	DbQueryDurationSeconds  metric.Float64Histogram
	DbQueryErrorsTotal      metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once from the global MeterProvider. It must
// run after the provider is installed for the instruments to be exported.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("trip-itinerary-planner")
		m := &AppMetrics{}
		var err error

		m.ConversationTurnsTotal, err = meter.Int64Counter(
			"conversation_turns_total",
			metric.WithDescription("Conversation turns processed"),
			metric.WithUnit("{turn}"),
		)
		must("conversation_turns_total", err)

		m.FallbacksTotal, err = meter.Int64Counter(
			"llm_fallbacks_total",
			metric.WithDescription("Rule-based fallbacks taken after an LLM failure"),
			metric.WithUnit("{fallback}"),
		)
		must("llm_fallbacks_total", err)

		m.ExternalCallErrorsTotal, err = meter.Int64Counter(
			"external_call_errors_total",
			metric.WithDescription("Failed calls to external collaborators"),
			metric.WithUnit("{error}"),
		)
		must("external_call_errors_total", err)

		m.PlanDurationSeconds, err = meter.Float64Histogram(
			"plan_duration_seconds",
			metric.WithDescription("Duration of planTrip requests in seconds"),
			metric.WithUnit("s"),
		)
		must("plan_duration_seconds", err)

		m.PlanWarningsTotal, err = meter.Int64Counter(
			"plan_warnings_total",
			metric.WithDescription("Warnings attached to returned itineraries"),
			metric.WithUnit("{warning}"),
		)
		must("plan_warnings_total", err)

		m.VisitsScheduledTotal, err = meter.Int64Counter(
			"visits_scheduled_total",
			metric.WithDescription("Visits placed by the scheduler"),
			metric.WithUnit("{visit}"),
		)
		must("visits_scheduled_total", err)

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		must("db_query_duration_seconds", err)

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		must("db_query_errors_total", err)

		appMetrics = m
	})
}

func must(name string, err error) {
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
}

// Get returns the process-wide instruments, creating them on first use. Without an
// installed MeterProvider they are no-ops, which keeps tests free of setup.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

// RecordFallback counts a deterministic fallback taken by component.
func RecordFallback(ctx context.Context, component, reason string) {
	Get().FallbacksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("reason", reason),
	))
}

// RecordExternalError counts a failed call to an external collaborator.
func RecordExternalError(ctx context.Context, service string) {
	Get().ExternalCallErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("service", service)))
}

// RecordDBQuery observes one repository query.
func RecordDBQuery(ctx context.Context, query string, start time.Time, err error) {
	m := Get()
	attrs := metric.WithAttributes(attribute.String("query", query))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

// Package telemetry provides Prometheus metrics and OpenTelemetry tracing for
// the scheduler.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

const serviceName = "h3-scheduler"

// Metrics holds all scheduler Prometheus metrics.
type Metrics struct {
	// Scheduling metrics
	SchedulesTotal  *prometheus.CounterVec
	ExpansionLength prometheus.Histogram

	// Sweep metrics
	SweepRuns      *prometheus.CounterVec
	SweepItems     *prometheus.CounterVec
	SweepDuration  prometheus.Histogram
	SweepLastRun   prometheus.Gauge
	NotifyFailures prometheus.Counter
	TriggerSkipped prometheus.Counter
}

// Provider wraps the tracer and metrics.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewProvider registers metrics on reg. Pass nil for the default registry.
func NewProvider(reg *prometheus.Registry) *Provider {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  initMetrics(promauto.With(registerer)),
		gatherer: gatherer,
	}
}

// Handler serves /metrics.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func initMetrics(f promauto.Factory) *Metrics {
	m := &Metrics{}
	initSchedulingMetrics(f, m)
	initSweepMetrics(f, m)
	return m
}

func initSchedulingMetrics(f promauto.Factory, m *Metrics) {
	m.SchedulesTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_schedules_total",
		Help: "Scheduling attempts by operation and outcome",
	}, []string{"operation", "outcome"})

	m.ExpansionLength = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_recurrence_occurrences",
		Help:    "Occurrences generated per recurring request",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

func initSweepMetrics(f promauto.Factory, m *Metrics) {
	m.SweepRuns = f.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_sweep_runs_total",
		Help: "Sweep invocations by result",
	}, []string{"result"})

	m.SweepItems = f.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_sweep_items_total",
		Help: "Items processed by sweeps, by resulting status",
	}, []string{"status"})

	m.SweepDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_sweep_duration_seconds",
		Help:    "Wall time of one sweep",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	m.SweepLastRun = f.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_sweep_last_run_timestamp_seconds",
		Help: "Unix time of the last completed sweep",
	})

	m.NotifyFailures = f.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_notify_failures_total",
		Help: "Publish announcements that could not be delivered",
	})

	m.TriggerSkipped = f.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_trigger_skipped_total",
		Help: "Cron ticks skipped because another replica held the sweep lock",
	})
}

// RecordSchedule counts one scheduling attempt.
func (p *Provider) RecordSchedule(operation, outcome string) {
	p.Metrics.SchedulesTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveExpansion records how many occurrences a rule produced.
func (p *Provider) ObserveExpansion(n int) {
	p.Metrics.ExpansionLength.Observe(float64(n))
}

// RecordSweep records a completed sweep. A nil result counts as an error run.
func (p *Provider) RecordSweep(result *domain.SweepResult, duration time.Duration) {
	p.Metrics.SweepDuration.Observe(duration.Seconds())
	if result == nil {
		p.Metrics.SweepRuns.WithLabelValues("error").Inc()
		return
	}
	p.Metrics.SweepRuns.WithLabelValues("ok").Inc()
	p.Metrics.SweepItems.WithLabelValues(string(domain.SweepPublished)).Add(float64(result.PublishedCount))
	p.Metrics.SweepItems.WithLabelValues(string(domain.SweepFailed)).Add(float64(result.FailedCount))
	p.Metrics.SweepItems.WithLabelValues(string(domain.SweepSkipped)).Add(float64(result.SkippedCount))
	p.Metrics.SweepLastRun.Set(float64(result.Timestamp.Unix()))
}

// RecordNotifyFailure counts an undelivered announcement.
func (p *Provider) RecordNotifyFailure() {
	p.Metrics.NotifyFailures.Inc()
}

// RecordTriggerSkipped counts a cron tick that lost the lock.
func (p *Provider) RecordTriggerSkipped() {
	p.Metrics.TriggerSkipped.Inc()
}

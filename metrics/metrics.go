// Package metrics records search, ranking and webhook activity as
// Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poiesic/findorigin/pipeline"
	"github.com/poiesic/findorigin/search"
)

const namespace = "findorigin"

// Recorder implements search.Monitor and pipeline.Observer on a private
// registry, so several recorders can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	providerAttempts *prometheus.CounterVec
	providerResults  *prometheus.CounterVec
	providerSkipped  *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	searchExhausted  prometheus.Counter

	stageDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	notifyFailed  *prometheus.CounterVec

	updates *prometheus.CounterVec
}

var (
	_ search.Monitor    = (*Recorder)(nil)
	_ pipeline.Observer = (*Recorder)(nil)
)

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		providerAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Total number of search provider calls",
			},
			[]string{"provider"},
		),
		providerResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_outcomes_total",
				Help:      "Search provider calls by outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_skipped_total",
				Help:      "Search providers skipped for missing credentials",
			},
			[]string{"provider"},
		),
		providerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_duration_seconds",
				Help:      "Duration of search provider calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		searchExhausted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_exhausted_total",
				Help:      "Queries for which every provider failed or returned nothing",
			},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent reaching each pipeline state",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"state"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Completed pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
		),
		notifyFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_failures_total",
				Help:      "Notifications that could not be delivered",
			},
			[]string{"kind"},
		),
		updates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_updates_total",
				Help:      "Telegram webhook updates by disposition",
			},
			[]string{"disposition"},
		),
	}
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ProviderSkipped(provider string) {
	r.providerSkipped.WithLabelValues(provider).Inc()
}

func (r *Recorder) ProviderAttempt(provider, _ string) {
	r.providerAttempts.WithLabelValues(provider).Inc()
}

func (r *Recorder) ProviderSucceeded(provider string, results int, elapsed time.Duration) {
	outcome := "results"
	if results == 0 {
		outcome = "empty"
	}
	r.providerResults.WithLabelValues(provider, outcome).Inc()
	r.providerDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (r *Recorder) ProviderFailed(provider string, err error, elapsed time.Duration) {
	outcome := "error"
	if errors.Is(err, search.ErrProviderTimeout) {
		outcome = "timeout"
	}
	r.providerResults.WithLabelValues(provider, outcome).Inc()
	r.providerDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (r *Recorder) Exhausted(_ string) {
	r.searchExhausted.Inc()
}

func (r *Recorder) StageFinished(state pipeline.State, elapsed time.Duration) {
	r.stageDuration.WithLabelValues(string(state)).Observe(elapsed.Seconds())
}

func (r *Recorder) RunFinished(outcome pipeline.Outcome, elapsed time.Duration) {
	r.runs.WithLabelValues(string(outcome)).Inc()
	r.runDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) NotificationFailed(kind pipeline.NotificationKind) {
	r.notifyFailed.WithLabelValues(string(kind)).Inc()
}

// Webhook update dispositions.
const (
	UpdateAccepted  = "accepted"
	UpdateDuplicate = "duplicate"
	UpdateIgnored   = "ignored"
	UpdateRejected  = "rejected"
)

// UpdateReceived counts a webhook update by how it was handled.
func (r *Recorder) UpdateReceived(disposition string) {
	r.updates.WithLabelValues(disposition).Inc()
}

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Polling metrics
	CyclesTotal       *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	MentionsFetched   prometheus.Counter
	MentionsSelected  prometheus.Counter
	RateLimitSleeps   prometheus.Counter
	RateLimitSleepSec prometheus.Histogram

	// Pipeline metrics
	PipelineResults *prometheus.CounterVec
	Suggestions     *prometheus.CounterVec
	Deploys         *prometheus.CounterVec
	Replies         *prometheus.CounterVec

	// Latency metrics
	ExternalCallLatency *prometheus.HistogramVec
	DeployConfirmation  prometheus.Histogram

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil registerer uses the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "mention_token_bot"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Total number of poll cycles by result",
		}, []string{"result"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds, excluding sleep",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		MentionsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "mentions_fetched_total",
			Help:      "Total number of mentions returned by the mentions API",
		}),
		MentionsSelected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "mentions_selected_total",
			Help:      "Total number of mentions handed to the pipeline",
		}),
		RateLimitSleeps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "rate_limit_sleeps_total",
			Help:      "Total number of sleeps caused by rate limiting",
		}),
		RateLimitSleepSec: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "rate_limit_sleep_seconds",
			Help:      "Rate-limit sleep durations in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900},
		}),

		PipelineResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "results_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		Suggestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "suggestions_total",
			Help:      "Total number of suggestions by outcome",
		}, []string{"outcome"}),
		Deploys: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "deploys_total",
			Help:      "Total number of deploy attempts by outcome",
		}, []string{"outcome"}),
		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "replies_total",
			Help:      "Total number of replies by outcome",
		}, []string{"outcome"}),

		ExternalCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "call_latency_seconds",
			Help:      "External call latency in seconds by target",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
		DeployConfirmation: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "deploy_confirmation_seconds",
			Help:      "Time from deploy submission to resolved token address",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),

		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last cycle that did not fail",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// Outcome labels shared by pipeline counters.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeFallback = "fallback"
	OutcomeSkipped  = "skipped"
)

// Targets for RecordExternalCall.
const (
	TargetMentions   = "mentions"
	TargetPost       = "post"
	TargetCompletion = "completion"
	TargetRegistry   = "registry"
	TargetDeploy     = "deploy"
	TargetReply      = "reply"
)

// RecordCycle records the result and duration of one poll cycle.
func RecordCycle(result string, d time.Duration, fetched int) {
	DefaultMetrics.CyclesTotal.WithLabelValues(result).Inc()
	DefaultMetrics.CycleDuration.Observe(d.Seconds())
	DefaultMetrics.MentionsFetched.Add(float64(fetched))
}

// RecordMentionsSelected increments the selected mentions counter.
func RecordMentionsSelected(n int) {
	DefaultMetrics.MentionsSelected.Add(float64(n))
}

// RecordRateLimitSleep records a sleep caused by a 429.
func RecordRateLimitSleep(d time.Duration) {
	DefaultMetrics.RateLimitSleeps.Inc()
	DefaultMetrics.RateLimitSleepSec.Observe(d.Seconds())
}

// RecordPipelineResult records the final status of one pipeline run.
func RecordPipelineResult(status string) {
	DefaultMetrics.PipelineResults.WithLabelValues(status).Inc()
}

// RecordSuggestion records a suggestion outcome.
func RecordSuggestion(outcome string) {
	DefaultMetrics.Suggestions.WithLabelValues(outcome).Inc()
}

// RecordDeploy records a deploy outcome and, on success, its confirmation time.
func RecordDeploy(outcome string, d time.Duration) {
	DefaultMetrics.Deploys.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		DefaultMetrics.DeployConfirmation.Observe(d.Seconds())
	}
}

// RecordReply records a reply outcome.
func RecordReply(outcome string) {
	DefaultMetrics.Replies.WithLabelValues(outcome).Inc()
}

// RecordExternalCall records the latency of one call to an external collaborator.
func RecordExternalCall(target string, d time.Duration) {
	DefaultMetrics.ExternalCallLatency.WithLabelValues(target).Observe(d.Seconds())
}

// MarkCycleSuccess sets the last successful cycle timestamp.
func MarkCycleSuccess(t time.Time) {
	DefaultMetrics.LastSuccessfulCycle.Set(float64(t.Unix()))
}

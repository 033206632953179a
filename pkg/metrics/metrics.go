// Package metrics provides Prometheus instrumentation for composite routers.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder groups the router metrics registered against one registerer.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	// SelectionsTotal counts successful sub-attempts per candidate.
	SelectionsTotal *prometheus.CounterVec
	// FailuresTotal counts failed sub-attempts per candidate and eligibility.
	FailuresTotal *prometheus.CounterVec
	// AggregatedTotal counts logical calls that exhausted every candidate.
	AggregatedTotal prometheus.Counter
	// SubattemptsPerCall tracks how many candidates one logical call touched.
	SubattemptsPerCall prometheus.Histogram
	// EstimatedCostUSD accumulates estimated spend per candidate.
	EstimatedCostUSD *prometheus.CounterVec
}

// NewRecorder registers the router metrics with reg. Passing nil registers
// against prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		SelectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelmux_selections_total",
				Help: "Total number of successful sub-attempts by candidate.",
			},
			[]string{"candidate"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelmux_subattempt_failures_total",
				Help: "Total number of failed sub-attempts by candidate and retry eligibility.",
			},
			[]string{"candidate", "eligible"},
		),
		AggregatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "modelmux_aggregated_failures_total",
				Help: "Total number of logical calls that failed on every candidate.",
			},
		),
		SubattemptsPerCall: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "modelmux_subattempts_per_call",
				Help:    "Number of sub-attempts made per logical call.",
				Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
			},
		),
		EstimatedCostUSD: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelmux_estimated_cost_usd_total",
				Help: "Estimated spend in USD by candidate.",
			},
			[]string{"candidate"},
		),
	}
}

// RecordSelection records a successful sub-attempt.
func (r *Recorder) RecordSelection(candidate string) {
	if r == nil {
		return
	}
	r.SelectionsTotal.WithLabelValues(candidate).Inc()
}

// RecordFailure records a failed sub-attempt.
func (r *Recorder) RecordFailure(candidate string, eligible bool) {
	if r == nil {
		return
	}
	r.FailuresTotal.WithLabelValues(candidate, strconv.FormatBool(eligible)).Inc()
}

// RecordAggregated records a logical call that exhausted every candidate.
func (r *Recorder) RecordAggregated() {
	if r == nil {
		return
	}
	r.AggregatedTotal.Inc()
}

// ObserveSubattempts records the sub-attempt count of one logical call.
func (r *Recorder) ObserveSubattempts(n int) {
	if r == nil {
		return
	}
	r.SubattemptsPerCall.Observe(float64(n))
}

// RecordCost adds an estimated amount spent on candidate.
func (r *Recorder) RecordCost(candidate string, usd float64) {
	if r == nil || usd <= 0 {
		return
	}
	r.EstimatedCostUSD.WithLabelValues(candidate).Add(usd)
}

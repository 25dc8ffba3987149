package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for analysis jobs and ladder tiers.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Jobs records per-job and per-tier analysis metrics. A nil *Jobs, or one
// built without a registerer, records nothing.
type Jobs struct {
	duration *prometheus.HistogramVec
	results  *prometheus.CounterVec
	tiers    *prometheus.CounterVec
}

// NewJobs registers the analysis metrics on the provided registerer.
func NewJobs(reg prometheus.Registerer) *Jobs {
	if reg == nil {
		return &Jobs{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adspy_job_duration_seconds",
		Help:    "Wall-clock duration of one ad analysis job.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"ad_type"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adspy_job_results_total",
		Help: "Finished analysis jobs by ad type and outcome.",
	}, []string{"ad_type", "outcome"})
	tiers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adspy_tier_attempts_total",
		Help: "Video ladder tier attempts by tier and outcome.",
	}, []string{"tier", "outcome"})
	reg.MustRegister(duration, results, tiers)
	return &Jobs{duration: duration, results: results, tiers: tiers}
}

// ObserveJob records the duration and outcome of one job.
func (j *Jobs) ObserveJob(adType, outcome string, d time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	adType = normalizeLabel(adType)
	j.duration.WithLabelValues(adType).Observe(d.Seconds())
	j.results.WithLabelValues(adType, normalizeLabel(outcome)).Inc()
}

// IncTier counts one attempt of a ladder tier.
func (j *Jobs) IncTier(tier, outcome string) {
	if j == nil || j.tiers == nil {
		return
	}
	j.tiers.WithLabelValues(normalizeLabel(tier), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	reportsServedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteer_service",
		Subsystem: "reports",
		Name:      "served_total",
		Help:      "Number of participation reports assembled, labeled by benefit tier.",
	}, []string{"tier"})

	certificateOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteer_service",
		Subsystem: "certificates",
		Name:      "eligibility_checks_total",
		Help:      "Number of certificate eligibility checks, labeled by outcome.",
	}, []string{"outcome"})

	certificateRenderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "volunteer_service",
		Subsystem: "certificates",
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering certificate documents.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"result"})

	participationPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "volunteer_service",
		Subsystem: "persistence",
		Name:      "last_participation_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent participation write committed to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(reportsServedCounter, certificateOutcomeCounter, certificateRenderDuration, participationPersistGauge)
}

// RecordReportServed counts an assembled report.
func RecordReportServed(tier string) {
	reportsServedCounter.WithLabelValues(tier).Inc()
}

// RecordCertificateOutcome counts a gate decision (eligible, rejected, not_found).
func RecordCertificateOutcome(outcome string) {
	certificateOutcomeCounter.WithLabelValues(outcome).Inc()
}

// ObserveCertificateRender records how long a render took and whether it succeeded.
func ObserveCertificateRender(elapsed time.Duration, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	certificateRenderDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

// RecordParticipationPersisted updates the persistence watermark gauge.
func RecordParticipationPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	participationPersistGauge.Set(float64(ts.Unix()))
}

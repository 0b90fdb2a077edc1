package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DLQ entry outcomes, used as the "outcome" label.
const (
	dlqOutcomeRequeued    = "requeued"
	dlqOutcomeRetry       = "retry_scheduled"
	dlqOutcomeQuarantined = "quarantined"
)

var (
	dlqEntriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteer_service",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled, by outcome and participation event type.",
	}, []string{"outcome", "event_type"})

	dlqBacklogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "volunteer_service",
		Subsystem: "dlq",
		Name:      "pending_entries",
		Help:      "DLQ entries that are neither replayed nor quarantined.",
	})
)

func init() {
	prometheus.MustRegister(dlqEntriesCounter, dlqBacklogGauge)
}

func recordDLQOutcome(entry dlqEntry, outcome string) {
	dlqEntriesCounter.WithLabelValues(outcome, entry.EventType).Inc()
}

// updateBacklogGauge leaves the previous value in place when the count fails.
func updateBacklogGauge(ctx context.Context, pool *pgxpool.Pool) {
	var pending int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&pending); err != nil {
		return
	}
	dlqBacklogGauge.Set(float64(pending))
}

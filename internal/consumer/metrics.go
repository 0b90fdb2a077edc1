package consumer

import "github.com/prometheus/client_golang/prometheus"

// Record outcomes, used as the "outcome" label.
const (
	outcomeHandled      = "handled"
	outcomeHandlerError = "handler_error"
	outcomeUndecodable  = "undecodable"
)

var (
	recordsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteer_service",
		Subsystem: "consumer",
		Name:      "records_total",
		Help:      "Kafka records read, by outcome and participation event type.",
	}, []string{"outcome", "event_type"})

	duplicateCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteer_service",
		Subsystem: "consumer",
		Name:      "duplicate_records_total",
		Help:      "Redelivered records already present in participation_event_log.",
	})

	lastEventGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "volunteer_service",
		Subsystem: "consumer",
		Name:      "last_event_timestamp_seconds",
		Help:      "Kafka timestamp of the most recently handled participation event.",
	})
)

func init() {
	prometheus.MustRegister(recordsCounter, duplicateCounter, lastEventGauge)
}

func recordProcessed(msg Message) {
	recordsCounter.WithLabelValues(outcomeHandled, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastEventGauge.Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	recordsCounter.WithLabelValues(outcomeHandlerError, msg.EventType).Inc()
}

func recordDecodeError() {
	recordsCounter.WithLabelValues(outcomeUndecodable, "").Inc()
}

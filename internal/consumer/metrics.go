package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	handledCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bjjpoints",
		Subsystem: "consumer",
		Name:      "changes_handled_total",
		Help:      "Ledger change events handled and committed.",
	}, []string{"event_type", "scope"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bjjpoints",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Ledger change events left uncommitted after a handler error.",
	}, []string{"event_type", "scope"})

	malformedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bjjpoints",
		Subsystem: "consumer",
		Name:      "malformed_records_total",
		Help:      "Records skipped because they lacked framing or an event_type header.",
	})

	// changeLag is the delay between the outbox publish and the consumer commit.
	changeLag = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bjjpoints",
		Subsystem: "consumer",
		Name:      "change_lag_seconds",
		Help:      "Seconds from publish to commit for ledger change events.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"scope"})
)

func init() {
	prometheus.MustRegister(handledCounter, handlerErrorCounter, malformedCounter, changeLag)
}

func recordHandled(msg Message, now time.Time) {
	scope := string(msg.Scope)
	handledCounter.WithLabelValues(msg.EventType, scope).Inc()
	if !msg.Timestamp.IsZero() && now.After(msg.Timestamp) {
		changeLag.WithLabelValues(scope).Observe(now.Sub(msg.Timestamp).Seconds())
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.EventType, string(msg.Scope)).Inc()
}

func recordMalformed() {
	malformedCounter.Inc()
}

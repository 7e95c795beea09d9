package outbox

import "github.com/prometheus/client_golang/prometheus"

// Change counters carry the event type and leaderboard scope so a stalled
// roster feed shows up separately from self-scope traffic.
var (
	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bjjpoints",
		Subsystem: "outbox",
		Name:      "changes_published_total",
		Help:      "Ledger change events published to Kafka.",
	}, []string{"event_type", "scope"})

	deadLetteredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bjjpoints",
		Subsystem: "outbox",
		Name:      "changes_dead_lettered_total",
		Help:      "Ledger change events moved to outbox_dlq after a failed publish.",
	}, []string{"event_type", "scope"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bjjpoints",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent claiming, publishing and marking one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(publishedCounter, deadLetteredCounter, batchDuration)
}

func recordPublished(messages []Message) {
	for _, msg := range messages {
		publishedCounter.WithLabelValues(msg.EventType, msg.Scope).Inc()
	}
}

func recordDeadLettered(msg Message) {
	deadLetteredCounter.WithLabelValues(msg.EventType, msg.Scope).Inc()
}

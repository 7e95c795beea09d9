package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"example.com/bjjpoints/internal/events"
)

// Replay outcomes recorded by the DLQ manager.
const (
	outcomeRequeued    = "requeued"
	outcomeRetry       = "retry_scheduled"
	outcomeQuarantined = "quarantined"
)

var (
	replayOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bjjpoints",
		Subsystem: "dlq",
		Name:      "replay_outcomes_total",
		Help:      "Dead-lettered ledger changes handled by the DLQ manager, by outcome.",
	}, []string{"outcome", "event_type", "scope"})

	backlogGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bjjpoints",
		Subsystem: "dlq",
		Name:      "backlog_changes",
		Help:      "Dead-lettered ledger changes still awaiting replay, per scope.",
	}, []string{"scope"})
)

func init() {
	prometheus.MustRegister(replayOutcomeCounter, backlogGauge)
}

func recordReplay(entry dlqEntry, outcome string) {
	replayOutcomeCounter.WithLabelValues(outcome, entry.EventType, entry.Scope).Inc()
}

// updateBacklogGauge recomputes the per-scope backlog; scopes that drained are reset to zero.
func updateBacklogGauge(ctx context.Context, pool *pgxpool.Pool) {
	rows, err := pool.Query(ctx, `SELECT scope, COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL GROUP BY scope`)
	if err != nil {
		return
	}
	defer rows.Close()

	counts := map[string]float64{}
	for rows.Next() {
		var scope string
		var count int
		if err := rows.Scan(&scope, &count); err != nil {
			return
		}
		counts[scope] = float64(count)
	}
	if rows.Err() != nil {
		return
	}

	backlogGauge.Reset()
	for _, scope := range []events.Scope{events.ScopeSelf, events.ScopeRoster} {
		backlogGauge.WithLabelValues(string(scope)).Set(counts[string(scope)])
	}
}

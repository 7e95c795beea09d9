package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bjjpoints",
		Subsystem: "ledger",
		Name:      "activities_recorded_total",
		Help:      "Number of activities recorded, labelled by type.",
	}, []string{"type"})
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bjjpoints",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted to Postgres.",
	})
	openSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bjjpoints",
		Subsystem: "auth",
		Name:      "open_sessions",
		Help:      "Number of sessions currently open on this instance.",
	})
	promotionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bjjpoints",
		Subsystem: "ledger",
		Name:      "promotions_total",
		Help:      "Number of belt promotions, labelled by the new belt.",
	}, []string{"belt"})
	streamSubscribersGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bjjpoints",
		Subsystem: "realtime",
		Name:      "subscribers",
		Help:      "Number of open leaderboard subscriptions per scope.",
	}, []string{"scope"})
	refreshDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bjjpoints",
		Subsystem: "realtime",
		Name:      "refresh_duration_seconds",
		Help:      "Time spent reloading a leaderboard snapshot.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"scope"})
	refreshDiscardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bjjpoints",
		Subsystem: "realtime",
		Name:      "refresh_discarded_total",
		Help:      "Refresh results dropped because a newer refresh had already been published.",
	}, []string{"scope"})
)

func init() {
	prometheus.MustRegister(
		activityRecordedTotal,
		activityPersistGauge,
		openSessionsGauge,
		promotionsTotal,
		streamSubscribersGauge,
		refreshDuration,
		refreshDiscardedTotal,
	)
}

// RecordActivity counts a recorded activity.
func RecordActivity(activityType string, ts time.Time) {
	activityRecordedTotal.WithLabelValues(activityType).Inc()
	RecordActivityPersisted(ts)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// SetOpenSessions updates the session gauge.
func SetOpenSessions(n int) {
	openSessionsGauge.Set(float64(n))
}

// RecordPromotion counts a belt promotion.
func RecordPromotion(belt string) {
	promotionsTotal.WithLabelValues(belt).Inc()
}

// AddSubscribers adjusts the subscriber gauge of a scope.
func AddSubscribers(scope string, delta int) {
	streamSubscribersGauge.WithLabelValues(scope).Add(float64(delta))
}

// ObserveRefresh records the duration of a leaderboard reload.
func ObserveRefresh(scope string, d time.Duration) {
	refreshDuration.WithLabelValues(scope).Observe(d.Seconds())
}

// RecordRefreshDiscarded counts a stale refresh result.
func RecordRefreshDiscarded(scope string) {
	refreshDiscardedTotal.WithLabelValues(scope).Inc()
}

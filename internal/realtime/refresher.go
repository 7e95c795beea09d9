package realtime

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/observability"
)

// Loader computes the current leaderboard of a scope.
type Loader func(ctx context.Context, scope events.Scope) ([]ledger.LeaderboardEntry, error)

// Refresher reloads leaderboards after changes and publishes them to the hub. When refreshes of
// one scope overlap, the one started last wins; results of older loads are discarded.
type Refresher struct {
	load    Loader
	hub     *Hub
	group   singleflight.Group
	seq     atomic.Uint64
	timeout time.Duration
	now     func() time.Time
	logger  *log.Logger
	wg      sync.WaitGroup
}

// RefresherOption configures optional behaviour for the Refresher.
type RefresherOption func(*Refresher)

// WithTimeout bounds background refreshes triggered by Notify.
func WithTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock sets the clock that decides the current leaderboard year. It should
// carry the ledger's time zone so the year rolls over at local midnight.
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger overrides the logger used to report refresh failures.
func WithLogger(logger *log.Logger) RefresherOption {
	return func(r *Refresher) {
		r.logger = logger
	}
}

// NewRefresher constructs a Refresher publishing into hub.
func NewRefresher(load Loader, hub *Hub, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		load:    load,
		hub:     hub,
		timeout: 10 * time.Second,
		now:     time.Now,
		logger:  log.New(log.Writer(), "[realtime] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Refresher) reload(ctx context.Context, scope events.Scope) func() (interface{}, error) {
	return func() (interface{}, error) {
		seq := r.seq.Add(1)
		year := r.now().Year()
		start := time.Now()
		entries, err := r.load(ctx, scope)
		observability.ObserveRefresh(string(scope), time.Since(start))
		if err != nil {
			return Snapshot{}, err
		}

		snap := Snapshot{Scope: scope, Seq: seq, Year: year, Entries: entries, RefreshedAt: r.now().UTC()}
		if !r.hub.Publish(snap) {
			observability.RecordRefreshDiscarded(string(scope))
			if latest, ok := r.hub.Last(scope); ok {
				return latest, nil
			}
		}
		return snap, nil
	}
}

// Refresh starts a new load of the scope, superseding any load already in flight.
func (r *Refresher) Refresh(ctx context.Context, scope events.Scope) (Snapshot, error) {
	key := string(scope)
	r.group.Forget(key)
	v, err, _ := r.group.Do(key, r.reload(ctx, scope))
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Snapshot returns the latest published snapshot, loading one when the scope has none yet.
// Concurrent first reads share a single load. A snapshot summed over an earlier year is
// replaced by a fresh load, which subscribers receive like any other refresh.
func (r *Refresher) Snapshot(ctx context.Context, scope events.Scope) (Snapshot, error) {
	if snap, ok := r.hub.Last(scope); ok {
		if snap.Year == r.now().Year() {
			return snap, nil
		}
		return r.Refresh(ctx, scope)
	}
	v, err, _ := r.group.Do(string(scope), r.reload(ctx, scope))
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Notify schedules a background refresh for the scope of the change.
func (r *Refresher) Notify(ctx context.Context, change events.Change) {
	if !change.Scope.Valid() {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if _, err := r.Refresh(ctx, change.Scope); err != nil {
			r.logger.Printf("refresh %s after %s failed: %v", change.Scope, change.Type, err)
		}
	}()
}

// Wait blocks until background refreshes have finished.
func (r *Refresher) Wait() {
	r.wg.Wait()
}

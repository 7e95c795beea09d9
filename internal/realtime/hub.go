// Package realtime keeps leaderboard snapshots current and fans them out to subscribers.
package realtime

import (
	"context"
	"sync"
	"time"

	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/observability"
)

// Snapshot is one published leaderboard state. Seq increases with every refresh start and
// Year is the calendar year the entries were summed over.
type Snapshot struct {
	Scope       events.Scope
	Seq         uint64
	Year        int
	Entries     []ledger.LeaderboardEntry
	RefreshedAt time.Time
}

// Hub fans snapshots out to subscribers of a scope. Slow subscribers only ever see the latest snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[events.Scope]map[*Subscription]struct{}
	last   map[events.Scope]Snapshot
	closed bool
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[events.Scope]map[*Subscription]struct{}),
		last: make(map[events.Scope]Snapshot),
	}
}

// Subscription receives snapshots for one scope until closed.
type Subscription struct {
	scope events.Scope
	hub   *Hub
	ch    chan Snapshot
	once  sync.Once
}

// Updates returns the snapshot channel. It is closed when the subscription ends.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Scope returns the subscribed scope.
func (s *Subscription) Scope() events.Scope {
	return s.scope
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Subscribe registers a subscriber. The latest snapshot, if any, is delivered immediately and the
// subscription ends when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, scope events.Scope) *Subscription {
	sub := &Subscription{scope: scope, hub: h, ch: make(chan Snapshot, 1)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}
	if h.subs[scope] == nil {
		h.subs[scope] = make(map[*Subscription]struct{})
	}
	h.subs[scope][sub] = struct{}{}
	observability.AddSubscribers(string(scope), 1)
	if snap, ok := h.last[scope]; ok {
		sub.ch <- snap
	}
	h.mu.Unlock()

	context.AfterFunc(ctx, sub.Close)
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[sub.scope]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	observability.AddSubscribers(string(sub.scope), -1)
}

// Publish stores and fans out a snapshot. Snapshots not newer than the last published one for the
// scope are dropped and Publish reports false.
func (h *Hub) Publish(snap Snapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if prev, ok := h.last[snap.Scope]; ok && snap.Seq <= prev.Seq {
		return false
	}
	h.last[snap.Scope] = snap

	for sub := range h.subs[snap.Scope] {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
	}
	return true
}

// Last returns the most recent snapshot of a scope.
func (h *Hub) Last(scope events.Scope) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap, ok := h.last[scope]
	return snap, ok
}

// Subscribers returns the number of open subscriptions for a scope.
func (h *Hub) Subscribers(scope events.Scope) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[scope])
}

// Close ends every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for scope, set := range h.subs {
		for sub := range set {
			close(sub.ch)
			observability.AddSubscribers(string(scope), -1)
		}
		delete(h.subs, scope)
	}
}

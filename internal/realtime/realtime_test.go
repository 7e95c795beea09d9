package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/persistence/memory"
)

func board(name string, points int) []ledger.LeaderboardEntry {
	return []ledger.LeaderboardEntry{{Rank: 1, SubjectID: name, Name: name, Points: points}}
}

func TestHubDeliversLatestSnapshot(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := hub.Subscribe(ctx, events.ScopeSelf)
	require.True(t, hub.Publish(Snapshot{Scope: events.ScopeSelf, Seq: 1, Entries: board("a", 1)}))
	require.True(t, hub.Publish(Snapshot{Scope: events.ScopeSelf, Seq: 2, Entries: board("a", 2)}))
	require.False(t, hub.Publish(Snapshot{Scope: events.ScopeSelf, Seq: 2, Entries: board("a", 9)}))

	// the subscriber never read, so only the newest snapshot is queued
	snap := <-sub.Updates()
	require.Equal(t, uint64(2), snap.Seq)
	select {
	case extra := <-sub.Updates():
		t.Fatalf("unexpected extra snapshot %d", extra.Seq)
	default:
	}

	late := hub.Subscribe(ctx, events.ScopeSelf)
	require.Equal(t, uint64(2), (<-late.Updates()).Seq)

	other := hub.Subscribe(ctx, events.ScopeRoster)
	select {
	case <-other.Updates():
		t.Fatal("roster subscriber must not see self snapshots")
	default:
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	sub := hub.Subscribe(ctx, events.ScopeRoster)
	require.Equal(t, 1, hub.Subscribers(events.ScopeRoster))

	cancel()
	require.Eventually(t, func() bool {
		return hub.Subscribers(events.ScopeRoster) == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-sub.Updates()
	require.False(t, open)
	sub.Close()

	require.True(t, hub.Publish(Snapshot{Scope: events.ScopeRoster, Seq: 1}))
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(context.Background(), events.ScopeSelf)
	hub.Close()

	_, open := <-sub.Updates()
	require.False(t, open)
	require.False(t, hub.Publish(Snapshot{Scope: events.ScopeSelf, Seq: 1}))

	after := hub.Subscribe(context.Background(), events.ScopeSelf)
	_, open = <-after.Updates()
	require.False(t, open)
	after.Close()
}

func TestRefreshLastStartedWins(t *testing.T) {
	hub := NewHub()

	var calls atomic.Int32
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	load := func(ctx context.Context, scope events.Scope) ([]ledger.LeaderboardEntry, error) {
		if calls.Add(1) == 1 {
			close(firstStarted)
			<-releaseFirst
			return board("stale", 1), nil
		}
		return board("fresh", 2), nil
	}
	refresher := NewRefresher(load, hub)

	var wg sync.WaitGroup
	wg.Add(1)
	var slow Snapshot
	go func() {
		defer wg.Done()
		var err error
		slow, err = refresher.Refresh(context.Background(), events.ScopeSelf)
		require.NoError(t, err)
	}()

	<-firstStarted
	fast, err := refresher.Refresh(context.Background(), events.ScopeSelf)
	require.NoError(t, err)
	require.Equal(t, "fresh", fast.Entries[0].Name)

	close(releaseFirst)
	wg.Wait()

	last, ok := hub.Last(events.ScopeSelf)
	require.True(t, ok)
	require.Equal(t, "fresh", last.Entries[0].Name)
	require.Equal(t, "fresh", slow.Entries[0].Name, "stale result is replaced by the published snapshot")
	require.Equal(t, int32(2), calls.Load())
}

func TestSnapshotSharesFirstLoad(t *testing.T) {
	hub := NewHub()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context, scope events.Scope) ([]ledger.LeaderboardEntry, error) {
		calls.Add(1)
		<-release
		return board("a", 5), nil
	}
	refresher := NewRefresher(load, hub)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := refresher.Snapshot(context.Background(), events.ScopeRoster)
			require.NoError(t, err)
			require.Equal(t, 5, snap.Entries[0].Points)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.LessOrEqual(t, calls.Load(), int32(5))
	_, err := refresher.Snapshot(context.Background(), events.ScopeRoster)
	require.NoError(t, err)
	before := calls.Load()
	_, err = refresher.Snapshot(context.Background(), events.ScopeRoster)
	require.NoError(t, err)
	require.Equal(t, before, calls.Load(), "cached snapshot must not reload")
}

func TestNotifyRefreshesInBackground(t *testing.T) {
	hub := NewHub()
	var failing atomic.Bool
	load := func(ctx context.Context, scope events.Scope) ([]ledger.LeaderboardEntry, error) {
		if failing.Load() {
			return nil, errors.New("db down")
		}
		return board(string(scope), 3), nil
	}
	refresher := NewRefresher(load, hub, WithTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, events.ScopeRoster)

	// a cancelled request context must not abort the refresh
	cancelled, cancelReq := context.WithCancel(context.Background())
	cancelReq()
	refresher.Notify(cancelled, events.Change{Type: events.TypeAthleteChanged, Scope: events.ScopeRoster})
	refresher.Notify(context.Background(), events.Change{Scope: events.Scope("unknown")})
	refresher.Wait()

	snap := <-sub.Updates()
	require.Equal(t, "roster", snap.Entries[0].Name)

	failing.Store(true)
	refresher.Notify(context.Background(), events.Change{Scope: events.ScopeRoster})
	refresher.Wait()
	last, ok := hub.Last(events.ScopeRoster)
	require.True(t, ok)
	require.Equal(t, snap.Seq, last.Seq)

	cancel()
}

type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestSnapshotReloadsWhenYearChanges(t *testing.T) {
	clock := &movableClock{now: time.Date(2026, time.December, 31, 20, 0, 0, 0, time.UTC)}
	var calls atomic.Int32
	load := func(ctx context.Context, scope events.Scope) ([]ledger.LeaderboardEntry, error) {
		calls.Add(1)
		return board("a", clock.Now().Year()), nil
	}
	refresher := NewRefresher(load, NewHub(), WithClock(clock.Now))
	ctx := context.Background()

	first, err := refresher.Snapshot(ctx, events.ScopeRoster)
	require.NoError(t, err)
	require.Equal(t, 2026, first.Year)
	_, err = refresher.Snapshot(ctx, events.ScopeRoster)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	clock.Set(time.Date(2027, time.January, 1, 0, 0, 1, 0, time.UTC))
	next, err := refresher.Snapshot(ctx, events.ScopeRoster)
	require.NoError(t, err)
	require.Equal(t, 2027, next.Year)
	require.Greater(t, next.Seq, first.Seq)
	require.Equal(t, 2027, next.Entries[0].Points)
	require.Equal(t, int32(2), calls.Load())
}

func TestLeaderboardEmptiesAtNewYear(t *testing.T) {
	ctx := context.Background()
	clock := &movableClock{now: time.Date(2026, time.December, 31, 18, 0, 0, 0, time.UTC)}
	svc := domain.NewService(memory.NewStore(),
		domain.WithClock(clock.Now),
		domain.WithPasswordCost(bcrypt.MinCost),
	)
	hub := NewHub()
	refresher := NewRefresher(svc.Leaderboard, hub, WithClock(clock.Now))

	_, err := svc.Register(ctx, domain.RegisterInput{Email: "ana@example.com", Password: "secret1", FullName: "Ana", Belt: "white"})
	require.NoError(t, err)
	session, _, err := svc.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.RecordSelfActivity(ctx, session, ledger.Tournament)
	require.NoError(t, err)

	before, err := refresher.Snapshot(ctx, events.ScopeSelf)
	require.NoError(t, err)
	require.Len(t, before.Entries, 1)
	require.Equal(t, 50, before.Entries[0].Points)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sub := hub.Subscribe(subCtx, events.ScopeSelf)

	clock.Set(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC))
	after, err := refresher.Snapshot(ctx, events.ScopeSelf)
	require.NoError(t, err)
	require.Empty(t, after.Entries)
	require.Equal(t, 2027, after.Year)

	pushed := <-sub.Updates()
	require.Equal(t, after.Seq, pushed.Seq, "subscribers should receive the rolled-over board")
}

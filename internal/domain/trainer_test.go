package domain_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/persistence/memory"
)

func intPtr(v int) *int { return &v }

func TestCreateAndUpdateAthlete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "  "})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Ana", BirthYear: 1850})
	require.ErrorIs(t, err, domain.ErrValidation)

	athlete, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Ana", Belt: "blue", BirthYear: 1998})
	require.NoError(t, err)
	require.Equal(t, ledger.Blue, athlete.Belt)
	require.True(t, athlete.Active)

	name := "Ana Lima"
	inactive := false
	updated, err := f.svc.UpdateAthlete(ctx, "coach", athlete.ID, domain.AthletePatch{Name: &name, Active: &inactive})
	require.NoError(t, err)
	require.Equal(t, "Ana Lima", updated.Name)
	require.False(t, updated.Active)
	require.Equal(t, 1998, updated.BirthYear)

	active, err := f.svc.ListAthletes(ctx, false)
	require.NoError(t, err)
	require.Empty(t, active)
	all, err := f.svc.ListAthletes(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = f.svc.UpdateAthlete(ctx, "coach", "missing", domain.AthletePatch{Name: &name})
	require.ErrorIs(t, err, domain.ErrNotFound)

	for _, change := range f.notifier.snapshot() {
		require.Equal(t, events.ScopeRoster, change.Scope)
		require.Equal(t, events.TypeAthleteChanged, change.Type)
	}
}

func TestLogEntryPointRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	athlete, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Ana"})
	require.NoError(t, err)

	penalty, err := f.svc.LogEntry(ctx, domain.LogEntryInput{AthleteID: athlete.ID, Type: ledger.Penalty, RecordedBy: "coach"})
	require.NoError(t, err)
	require.Equal(t, -10, penalty.Points)
	require.Equal(t, "Strafe", penalty.Note)

	custom, err := f.svc.LogEntry(ctx, domain.LogEntryInput{
		AthleteID: athlete.ID,
		Type:      ledger.Tournament,
		Points:    intPtr(30),
		Date:      time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC),
		Note:      "Regional open, silver",
	})
	require.NoError(t, err)
	require.Equal(t, 30, custom.Points)
	require.Equal(t, "Regional open, silver", custom.Note)

	cases := []domain.LogEntryInput{
		{AthleteID: athlete.ID, Type: ledger.Penalty, Points: intPtr(5)},
		{AthleteID: athlete.ID, Type: ledger.Training, Points: intPtr(-1)},
		{AthleteID: athlete.ID, Type: ledger.Misconduct, Points: intPtr(0)},
		{AthleteID: athlete.ID, Type: ledger.ActivityType("sparring")},
		{AthleteID: athlete.ID, Type: ledger.Training, Date: f.now.AddDate(0, 0, 3)},
	}
	for _, input := range cases {
		_, err := f.svc.LogEntry(ctx, input)
		require.ErrorIs(t, err, domain.ErrValidation, "input %+v", input)
	}

	_, err = f.svc.LogEntry(ctx, domain.LogEntryInput{AthleteID: "missing", Type: ledger.Training})
	require.ErrorIs(t, err, domain.ErrNotFound)

	detail, err := f.svc.AthleteDetail(ctx, athlete.ID)
	require.NoError(t, err)
	require.Equal(t, 20, detail.Summary.TotalPoints)
	require.Len(t, detail.History, 2)
}

func TestPromote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	athlete, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Ana", Belt: "purple"})
	require.NoError(t, err)

	_, err = f.svc.Promote(ctx, "coach", athlete.ID)
	require.ErrorIs(t, err, domain.ErrNotBeltReady)

	for i := 0; i < 4; i++ {
		_, err = f.svc.LogEntry(ctx, domain.LogEntryInput{AthleteID: athlete.ID, Type: ledger.Tournament})
		require.NoError(t, err)
	}
	_, err = f.svc.LogEntry(ctx, domain.LogEntryInput{AthleteID: athlete.ID, Type: ledger.Training, Points: intPtr(5)})
	require.NoError(t, err)

	promoted, err := f.svc.Promote(ctx, "coach", athlete.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.Brown, promoted.Belt)

	stored, err := f.store.GetAthlete(ctx, athlete.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.Brown, stored.Belt)
}

func TestPromoteCountsOnlyCurrentYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	athlete, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Caio", Belt: "white"})
	require.NoError(t, err)

	lastYear := time.Date(2025, time.December, 20, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err = f.svc.LogEntry(ctx, domain.LogEntryInput{AthleteID: athlete.ID, Type: ledger.Tournament, Date: lastYear})
		require.NoError(t, err)
	}

	_, err = f.svc.Promote(ctx, "coach", athlete.ID)
	require.ErrorIs(t, err, domain.ErrNotBeltReady)
}

// pausingStore holds the first armed GetAthlete after its read until release is closed.
type pausingStore struct {
	*memory.Store
	armed   atomic.Bool
	paused  chan struct{}
	release chan struct{}
}

func (p *pausingStore) GetAthlete(ctx context.Context, id string) (*domain.Athlete, error) {
	a, err := p.Store.GetAthlete(ctx, id)
	if p.armed.CompareAndSwap(true, false) {
		close(p.paused)
		<-p.release
	}
	return a, err
}

func TestPatchDuringPromotionKeepsNewBelt(t *testing.T) {
	ctx := context.Background()
	store := &pausingStore{Store: memory.NewStore(), paused: make(chan struct{}), release: make(chan struct{})}
	now := time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)
	svc := domain.NewService(store, domain.WithClock(func() time.Time { return now }))

	athlete, err := svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Ana", Belt: "white"})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = svc.LogEntry(ctx, domain.LogEntryInput{AthleteID: athlete.ID, Type: ledger.Tournament})
		require.NoError(t, err)
	}

	store.armed.Store(true)
	name := "Ana Souza"
	var (
		wg       sync.WaitGroup
		patched  *domain.Athlete
		patchErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		patched, patchErr = svc.UpdateAthlete(ctx, "coach", athlete.ID, domain.AthletePatch{Name: &name})
	}()

	<-store.paused
	promoted, err := svc.Promote(ctx, "coach", athlete.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.Blue, promoted.Belt)

	close(store.release)
	wg.Wait()
	require.NoError(t, patchErr)
	require.Equal(t, "Ana Souza", patched.Name)
	require.Equal(t, ledger.Blue, patched.Belt)

	stored, err := store.GetAthlete(ctx, athlete.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.Blue, stored.Belt)
	require.Equal(t, "Ana Souza", stored.Name)
}

func TestPromoteRejectsStaleBelt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	athlete, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Ana", Belt: "white"})
	require.NoError(t, err)

	_, err = f.store.PromoteAthlete(ctx, athlete.ID, ledger.Blue, ledger.Purple, "coach")
	require.ErrorIs(t, err, domain.ErrBeltChanged)
	_, err = f.store.PromoteAthlete(ctx, "missing", ledger.White, ledger.Blue, "coach")
	require.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := f.store.GetAthlete(ctx, athlete.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.White, stored.Belt)
}

func TestPromoteBlackBeltIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	athlete, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Prof", Belt: "black"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.svc.LogEntry(ctx, domain.LogEntryInput{AthleteID: athlete.ID, Type: ledger.Tournament})
		require.NoError(t, err)
	}

	_, err = f.svc.Promote(ctx, "coach", athlete.ID)
	require.ErrorIs(t, err, domain.ErrNotBeltReady)
}

func TestRosterIncludesAthletesWithoutEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Ana"})
	require.NoError(t, err)
	bruno, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Bruno"})
	require.NoError(t, err)
	idle, err := f.svc.CreateAthlete(ctx, "coach", domain.AthleteInput{Name: "Zoe"})
	require.NoError(t, err)

	_, err = f.svc.LogEntry(ctx, domain.LogEntryInput{AthleteID: ana.ID, Type: ledger.Training})
	require.NoError(t, err)
	_, err = f.svc.LogEntry(ctx, domain.LogEntryInput{AthleteID: bruno.ID, Type: ledger.Tournament})
	require.NoError(t, err)

	rows, err := f.svc.Roster(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, bruno.ID, rows[0].Athlete.ID)
	require.Equal(t, 1, rows[0].Rank)
	require.Equal(t, idle.ID, rows[2].Athlete.ID)
	require.Zero(t, rows[2].Summary.TotalPoints)

	board, err := f.svc.RosterLeaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 3)
	require.Equal(t, "Bruno", board[0].Name)
	require.Equal(t, "Zoe", board[2].Name)

	// self-service entries never show up on the roster
	f.register(t, "ana@example.com", "Ana Self")
	session := f.login(t, "ana@example.com")
	_, err = f.svc.RecordSelfActivity(ctx, session, ledger.Tournament)
	require.NoError(t, err)
	board, err = f.svc.Leaderboard(ctx, events.ScopeRoster)
	require.NoError(t, err)
	require.Len(t, board, 3)
	require.Equal(t, 50, board[0].Points)
}

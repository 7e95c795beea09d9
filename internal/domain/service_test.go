package domain_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/persistence/memory"
)

type recordingNotifier struct {
	mu      sync.Mutex
	changes []events.Change
}

func (r *recordingNotifier) Notify(_ context.Context, change events.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recordingNotifier) snapshot() []events.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Change, len(r.changes))
	copy(out, r.changes)
	return out
}

type fixture struct {
	svc      *domain.Service
	store    *memory.Store
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC),
	}
	f.svc = domain.NewService(f.store,
		domain.WithClock(func() time.Time { return f.now }),
		domain.WithNotifier(f.notifier),
		domain.WithPasswordCost(bcrypt.MinCost),
		domain.WithTrainerEmails("coach@example.com"),
	)
	return f
}

func (f *fixture) register(t *testing.T, email, name string) *domain.Profile {
	t.Helper()
	profile, err := f.svc.Register(context.Background(), domain.RegisterInput{
		Email:    email,
		Password: "secret1",
		FullName: name,
		Belt:     "white",
	})
	require.NoError(t, err)
	return profile
}

func (f *fixture) login(t *testing.T, email string) *domain.Session {
	t.Helper()
	session, _, err := f.svc.Login(context.Background(), email, "secret1")
	require.NoError(t, err)
	return session
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profile := f.register(t, " Ana@Example.com ", "Ana")
	require.Equal(t, "ana@example.com", profile.Email)
	require.False(t, profile.IsTrainer)

	_, err := f.svc.Register(ctx, domain.RegisterInput{Email: "ana@example.com", Password: "secret1", FullName: "Other"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = f.svc.Register(ctx, domain.RegisterInput{Email: "bo@example.com", Password: "123", FullName: "Bo"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Register(ctx, domain.RegisterInput{Email: "bo@example.com", Password: "secret1", FullName: "Bo", Belt: "orange"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = f.svc.Login(ctx, "ana@example.com", "wrong-password")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	session, loggedIn, err := f.svc.Login(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, profile.ID, loggedIn.ID)

	got, err := f.svc.Session(session.ID)
	require.NoError(t, err)
	require.Same(t, session, got)

	require.NoError(t, f.svc.Logout(session.ID))
	_, err = f.svc.Session(session.ID)
	require.ErrorIs(t, err, domain.ErrSessionClosed)
	require.ErrorIs(t, f.svc.Logout(session.ID), domain.ErrSessionClosed)
}

func TestTrainerEmailsGrantRole(t *testing.T) {
	f := newFixture(t)
	profile := f.register(t, "coach@example.com", "Coach")
	require.True(t, profile.IsTrainer)

	session := f.login(t, "coach@example.com")
	require.True(t, session.IsTrainer)
}

func TestProfileIsRebuiltWhenMissing(t *testing.T) {
	f := newFixture(t)
	profile := f.register(t, "carla@example.com", "Carla")
	f.store.DeleteProfile(profile.ID)

	rebuilt, err := f.svc.Profile(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Equal(t, "carla", rebuilt.FullName)
	require.Equal(t, ledger.White, rebuilt.Belt)

	stored, err := f.store.GetProfile(context.Background(), profile.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	_, err = f.svc.Profile(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordAndUndo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ana@example.com", "Ana")
	session := f.login(t, "ana@example.com")

	_, err := f.svc.UndoLast(ctx, session)
	require.ErrorIs(t, err, domain.ErrNothingToUndo)

	_, err = f.svc.RecordSelfActivity(ctx, session, ledger.Penalty)
	require.ErrorIs(t, err, domain.ErrValidation)

	first, err := f.svc.RecordSelfActivity(ctx, session, ledger.Training)
	require.NoError(t, err)
	require.Equal(t, 1, first.Points)
	require.Equal(t, "Training", first.Note)

	second, err := f.svc.RecordSelfActivity(ctx, session, ledger.Tournament)
	require.NoError(t, err)
	require.Equal(t, 50, second.Points)
	require.True(t, session.CanUndo())

	undone, err := f.svc.UndoLast(ctx, session)
	require.NoError(t, err)
	require.Equal(t, second.ID, undone.ID)
	require.False(t, session.CanUndo())

	// only the most recent entry is revertible
	_, err = f.svc.UndoLast(ctx, session)
	require.ErrorIs(t, err, domain.ErrNothingToUndo)

	dashboard, err := f.svc.Dashboard(ctx, session.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, dashboard.Summary.TotalPoints)
	require.Len(t, dashboard.History, 1)
	require.Equal(t, first.ID, dashboard.History[0].ID)

	changes := f.notifier.snapshot()
	require.Len(t, changes, 3)
	require.Equal(t, events.TypeActivityDeleted, changes[2].Type)
	require.Equal(t, events.ScopeSelf, changes[2].Scope)
}

func TestUndoIsPerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ana@example.com", "Ana")
	phone := f.login(t, "ana@example.com")
	laptop := f.login(t, "ana@example.com")

	_, err := f.svc.RecordSelfActivity(ctx, phone, ledger.Training)
	require.NoError(t, err)

	_, err = f.svc.UndoLast(ctx, laptop)
	require.ErrorIs(t, err, domain.ErrNothingToUndo)
	_, err = f.svc.UndoLast(ctx, phone)
	require.NoError(t, err)
}

func TestDashboardAndHistoryPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ana@example.com", "Ana")
	session := f.login(t, "ana@example.com")

	for i := 0; i < 5; i++ {
		f.now = f.now.Add(time.Minute)
		_, err := f.svc.RecordSelfActivity(ctx, session, ledger.Training)
		require.NoError(t, err)
	}

	dashboard, err := f.svc.Dashboard(ctx, session.UserID)
	require.NoError(t, err)
	require.Equal(t, 5, dashboard.Summary.Trainings)
	require.Equal(t, 187, dashboard.Summary.TrainingsRemaining)
	require.Equal(t, 5, dashboard.Summary.TrainingsThisWeek)
	require.Equal(t, 1, dashboard.Summary.Streak)

	page, cursor, err := f.svc.History(ctx, session.UserID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, cursor)
	require.True(t, page[0].OccurredAt.After(page[1].OccurredAt))

	seen := map[string]bool{page[0].ID: true, page[1].ID: true}
	for cursor != nil {
		page, cursor, err = f.svc.History(ctx, session.UserID, cursor, 2)
		require.NoError(t, err)
		for _, a := range page {
			require.False(t, seen[a.ID], "duplicate %s", a.ID)
			seen[a.ID] = true
		}
	}
	require.Len(t, seen, 5)
}

func TestSelfLeaderboardOmitsInactiveProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ana@example.com", "Ana")
	f.register(t, "bruno@example.com", "Bruno")
	f.register(t, "idle@example.com", "Idle")

	ana := f.login(t, "ana@example.com")
	bruno := f.login(t, "bruno@example.com")

	_, err := f.svc.RecordSelfActivity(ctx, ana, ledger.Training)
	require.NoError(t, err)
	_, err = f.svc.RecordSelfActivity(ctx, bruno, ledger.Tournament)
	require.NoError(t, err)

	board, err := f.svc.SelfLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	require.Equal(t, "Bruno", board[0].Name)
	require.Equal(t, 50, board[0].Points)
	require.Equal(t, "Ana", board[1].Name)
	require.Equal(t, 2, board[1].Rank)

	top, err := f.svc.SelfLeaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)

	_, err = f.svc.Leaderboard(ctx, events.Scope("nope"))
	require.ErrorIs(t, err, domain.ErrValidation)
}

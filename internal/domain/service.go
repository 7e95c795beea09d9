// Package domain defines the points-ledger workflows for athletes and trainers.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/observability"
)

const (
	// MinPasswordLength mirrors the sign-up form rule.
	MinPasswordLength = 6
	// HistoryLimit caps the history shown on dashboards.
	HistoryLimit = 30
	// LeaderboardLimit is the default number of leaderboard rows.
	LeaderboardLimit = 10
)

// Service orchestrates ledger workflows.
type Service struct {
	store        Store
	sessions     *SessionStore
	notifier     ChangeNotifier
	now          func() time.Time
	loc          *time.Location
	passwordCost int
	trainers     map[string]struct{}
	logger       *log.Logger
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the location that defines calendar years and weeks.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithNotifier registers the receiver of committed changes.
func WithNotifier(n ChangeNotifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithPasswordCost overrides the bcrypt cost.
func WithPasswordCost(cost int) Option {
	return func(s *Service) {
		s.passwordCost = cost
	}
}

// WithTrainerEmails grants the trainer role to accounts registered with one of the emails.
func WithTrainerEmails(emails ...string) Option {
	return func(s *Service) {
		for _, email := range emails {
			if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
				s.trainers[email] = struct{}{}
			}
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		sessions:     NewSessionStore(),
		notifier:     noopNotifier{},
		now:          time.Now,
		loc:          time.UTC,
		passwordCost: bcrypt.DefaultCost,
		trainers:     make(map[string]struct{}),
		logger:       log.New(log.Writer(), "[domain] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time in the service location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Location returns the location that defines calendar years and weeks.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) notify(ctx context.Context, change events.Change) {
	s.notifier.Notify(ctx, change)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// RegisterInput captures the sign-up form.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Belt     string
}

// Register creates credentials and a profile.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.FullName)
	if email == "" || name == "" || input.Password == "" {
		return nil, validationError("name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationError("invalid email address")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, validationError("password must be at least %d characters", MinPasswordLength)
	}
	belt := ledger.White
	if strings.TrimSpace(input.Belt) != "" {
		parsed, ok := ledger.ParseBelt(input.Belt)
		if !ok {
			return nil, validationError("unknown belt %q", input.Belt)
		}
		belt = parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.passwordCost)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	profile := Profile{
		ID:        uuid.NewString(),
		FullName:  name,
		Email:     email,
		Belt:      belt,
		CreatedAt: now,
	}
	if _, ok := s.trainers[email]; ok {
		profile.IsTrainer = true
	}
	creds := Credentials{
		UserID:       profile.ID,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := s.store.CreateAccount(ctx, creds, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, *Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, validationError("email and password are required")
	}

	creds, err := s.store.CredentialsByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if creds == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(creds.PasswordHash, []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	profile, err := s.Profile(ctx, creds.UserID)
	if err != nil {
		return nil, nil, err
	}

	session := s.sessions.Open(profile.ID, profile.IsTrainer, s.Now())
	observability.SetOpenSessions(s.sessions.Len())
	return session, profile, nil
}

// Logout closes a session.
func (s *Service) Logout(sessionID string) error {
	if !s.sessions.Close(sessionID) {
		return ErrSessionClosed
	}
	observability.SetOpenSessions(s.sessions.Len())
	return nil
}

// Session returns an open session.
func (s *Service) Session(id string) (*Session, error) {
	return s.sessions.Get(id)
}

// Profile loads a profile, rebuilding it from the credentials when the row is missing.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	creds, err := s.store.CredentialsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, ErrNotFound
	}

	name, _, _ := strings.Cut(creds.Email, "@")
	rebuilt := Profile{
		ID:        userID,
		FullName:  name,
		Email:     creds.Email,
		Belt:      ledger.White,
		CreatedAt: s.Now(),
	}
	if err := s.store.UpsertProfile(ctx, rebuilt); err != nil {
		return nil, err
	}
	s.logger.Printf("rebuilt missing profile for user %s", userID)
	return &rebuilt, nil
}

// RecordSelfActivity logs a training or tournament for the session owner and remembers it for undo.
func (s *Service) RecordSelfActivity(ctx context.Context, session *Session, activityType ledger.ActivityType) (*ledger.Activity, error) {
	if activityType != ledger.Training && activityType != ledger.Tournament {
		return nil, validationError("self-service entries must be training or tournament")
	}

	activity := ledger.Activity{
		ID:         uuid.NewString(),
		SubjectID:  session.UserID,
		Type:       activityType,
		Points:     activityType.DefaultPoints(),
		OccurredAt: s.Now(),
		Note:       activityType.Label(),
		RecordedBy: session.UserID,
	}
	if err := s.store.CreateActivity(ctx, events.ScopeSelf, activity); err != nil {
		return nil, err
	}

	session.rememberActivity(activity.ID)
	observability.RecordActivity(string(activity.Type), activity.OccurredAt)
	s.notify(ctx, events.Change{Type: events.TypeActivityRecorded, SubjectID: activity.SubjectID, Scope: events.ScopeSelf})
	return &activity, nil
}

// UndoLast deletes the most recent entry created in this session.
func (s *Service) UndoLast(ctx context.Context, session *Session) (*ledger.Activity, error) {
	id, ok := session.takeLastActivity()
	if !ok {
		return nil, ErrNothingToUndo
	}

	deleted, err := s.store.DeleteActivity(ctx, events.ScopeSelf, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNothingToUndo
		}
		session.restoreActivity(id)
		return nil, err
	}

	s.notify(ctx, events.Change{Type: events.TypeActivityDeleted, SubjectID: deleted.SubjectID, Scope: events.ScopeSelf})
	return deleted, nil
}

// Dashboard computes the current-year statistics of a profile.
func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	activities, _, err := s.store.ListBySubject(ctx, userID, ledger.YearStart(now), nil, 0)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Profile: *profile,
		Summary: ledger.Summarize(activities, profile.Belt, now),
		History: head(activities, HistoryLimit),
	}, nil
}

// History pages through a subject's current-year activities, newest first.
func (s *Service) History(ctx context.Context, subjectID string, cursor *Cursor, limit int) ([]ledger.Activity, *Cursor, error) {
	if limit <= 0 || limit > 100 {
		limit = HistoryLimit
	}
	return s.store.ListBySubject(ctx, subjectID, ledger.YearStart(s.Now()), cursor, limit)
}

// SelfLeaderboard ranks profiles with current-year activity. Profiles without entries are omitted.
func (s *Service) SelfLeaderboard(ctx context.Context, limit int) ([]ledger.LeaderboardEntry, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	activities, err := s.store.ListSince(ctx, events.ScopeSelf, ledger.YearStart(s.Now()))
	if err != nil {
		return nil, err
	}

	roster := make([]ledger.Subject, 0, len(profiles))
	for _, p := range profiles {
		roster = append(roster, p.Subject())
	}
	return head(ledger.BuildLeaderboard(ledger.OnlyWithActivity, roster, activities), limit), nil
}

// Leaderboard returns the leaderboard of a scope.
func (s *Service) Leaderboard(ctx context.Context, scope events.Scope) ([]ledger.LeaderboardEntry, error) {
	switch scope {
	case events.ScopeSelf:
		return s.SelfLeaderboard(ctx, LeaderboardLimit)
	case events.ScopeRoster:
		return s.RosterLeaderboard(ctx)
	default:
		return nil, validationError("unknown scope %q", scope)
	}
}

func head[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

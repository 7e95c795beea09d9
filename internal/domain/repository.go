package domain

import (
	"context"
	"time"

	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
)

// AccountRepository persists credentials and self-service profiles.
type AccountRepository interface {
	// CreateAccount stores credentials and profile atomically. Duplicate emails yield ErrEmailTaken.
	CreateAccount(ctx context.Context, creds Credentials, profile Profile) error
	CredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	CredentialsByUser(ctx context.Context, userID string) (*Credentials, error)
	// GetProfile returns nil without error when the profile row is missing.
	GetProfile(ctx context.Context, id string) (*Profile, error)
	UpsertProfile(ctx context.Context, profile Profile) error
	ListProfiles(ctx context.Context) ([]Profile, error)
}

// AthleteRepository persists the trainer roster.
type AthleteRepository interface {
	CreateAthlete(ctx context.Context, athlete Athlete) error
	// UpdateAthlete writes name, email, birth year and active flag and returns the stored
	// athlete. The belt is never written here; only PromoteAthlete moves it.
	UpdateAthlete(ctx context.Context, athlete Athlete, changedBy string) (*Athlete, error)
	// PromoteAthlete sets the belt to `to` only while it still equals `from`, returning
	// ErrBeltChanged otherwise.
	PromoteAthlete(ctx context.Context, id string, from, to ledger.Belt, changedBy string) (*Athlete, error)
	// GetAthlete returns ErrNotFound when the athlete does not exist.
	GetAthlete(ctx context.Context, id string) (*Athlete, error)
	ListAthletes(ctx context.Context, includeInactive bool) ([]Athlete, error)
}

// ActivityRepository persists activities. Writes also record a change event for delivery.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, scope events.Scope, activity ledger.Activity) error
	// DeleteActivity removes an activity; ErrNotFound when it does not exist.
	DeleteActivity(ctx context.Context, scope events.Scope, id string) (*ledger.Activity, error)
	// ListBySubject returns activities since the given instant, newest first. A non-positive
	// limit returns everything.
	ListBySubject(ctx context.Context, subjectID string, since time.Time, cursor *Cursor, limit int) ([]ledger.Activity, *Cursor, error)
	// ListSince returns every activity of the scope since the given instant, oldest first.
	ListSince(ctx context.Context, scope events.Scope, since time.Time) ([]ledger.Activity, error)
}

// Store bundles the repositories the service depends on.
type Store interface {
	AccountRepository
	AthleteRepository
	ActivityRepository
}

// ChangeNotifier is informed after every committed write.
type ChangeNotifier interface {
	Notify(ctx context.Context, change events.Change)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, events.Change) {}

// Package memory provides an in-process store for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
)

type scopedActivity struct {
	scope    events.Scope
	activity ledger.Activity
}

// Store implements domain.Store in memory.
type Store struct {
	mu          sync.RWMutex
	credentials map[string]domain.Credentials
	emails      map[string]string
	profiles    map[string]domain.Profile
	athletes    map[string]domain.Athlete
	activities  map[string]scopedActivity
}

var _ domain.Store = (*Store)(nil)

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		credentials: make(map[string]domain.Credentials),
		emails:      make(map[string]string),
		profiles:    make(map[string]domain.Profile),
		athletes:    make(map[string]domain.Athlete),
		activities:  make(map[string]scopedActivity),
	}
}

// CreateAccount implements domain.AccountRepository.
func (s *Store) CreateAccount(ctx context.Context, creds domain.Credentials, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(creds.Email)
	if _, ok := s.emails[email]; ok {
		return domain.ErrEmailTaken
	}
	s.emails[email] = creds.UserID
	s.credentials[creds.UserID] = creds
	s.profiles[profile.ID] = profile
	return nil
}

// CredentialsByEmail implements domain.AccountRepository.
func (s *Store) CredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	creds := s.credentials[id]
	return &creds, nil
}

// CredentialsByUser implements domain.AccountRepository.
func (s *Store) CredentialsByUser(ctx context.Context, userID string) (*domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds, ok := s.credentials[userID]
	if !ok {
		return nil, nil
	}
	return &creds, nil
}

// GetProfile implements domain.AccountRepository.
func (s *Store) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[id]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

// UpsertProfile implements domain.AccountRepository.
func (s *Store) UpsertProfile(ctx context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
	return nil
}

// DeleteProfile removes a profile row while keeping the credentials.
func (s *Store) DeleteProfile(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
}

// ListProfiles implements domain.AccountRepository.
func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

// CreateAthlete implements domain.AthleteRepository.
func (s *Store) CreateAthlete(ctx context.Context, athlete domain.Athlete) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.athletes[athlete.ID] = athlete
	return nil
}

// UpdateAthlete implements domain.AthleteRepository. The stored belt is kept.
func (s *Store) UpdateAthlete(ctx context.Context, athlete domain.Athlete, changedBy string) (*domain.Athlete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.athletes[athlete.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	stored.Name = athlete.Name
	stored.Email = athlete.Email
	stored.BirthYear = athlete.BirthYear
	stored.Active = athlete.Active
	s.athletes[athlete.ID] = stored
	return &stored, nil
}

// PromoteAthlete implements domain.AthleteRepository.
func (s *Store) PromoteAthlete(ctx context.Context, id string, from, to ledger.Belt, changedBy string) (*domain.Athlete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.athletes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if stored.Belt != from {
		return nil, domain.ErrBeltChanged
	}
	stored.Belt = to
	s.athletes[id] = stored
	return &stored, nil
}

// GetAthlete implements domain.AthleteRepository.
func (s *Store) GetAthlete(ctx context.Context, id string) (*domain.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	athlete, ok := s.athletes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &athlete, nil
}

// ListAthletes implements domain.AthleteRepository.
func (s *Store) ListAthletes(ctx context.Context, includeInactive bool) ([]domain.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Athlete, 0, len(s.athletes))
	for _, a := range s.athletes {
		if a.Active || includeInactive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// CreateActivity implements domain.ActivityRepository.
func (s *Store) CreateActivity(ctx context.Context, scope events.Scope, activity ledger.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[activity.ID] = scopedActivity{scope: scope, activity: activity}
	return nil
}

// DeleteActivity implements domain.ActivityRepository.
func (s *Store) DeleteActivity(ctx context.Context, scope events.Scope, id string) (*ledger.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.activities[id]
	if !ok || entry.scope != scope {
		return nil, domain.ErrNotFound
	}
	delete(s.activities, id)
	return &entry.activity, nil
}

// ListBySubject implements domain.ActivityRepository.
func (s *Store) ListBySubject(ctx context.Context, subjectID string, since time.Time, cursor *domain.Cursor, limit int) ([]ledger.Activity, *domain.Cursor, error) {
	s.mu.RLock()
	matches := make([]ledger.Activity, 0)
	for _, entry := range s.activities {
		a := entry.activity
		if a.SubjectID != subjectID || a.OccurredAt.Before(since) {
			continue
		}
		matches = append(matches, a)
	}
	s.mu.RUnlock()

	sortNewestFirst(matches)

	if cursor != nil {
		idx := 0
		for idx < len(matches) && !olderThan(matches[idx], *cursor) {
			idx++
		}
		matches = matches[idx:]
	}

	if limit <= 0 || len(matches) <= limit {
		return matches, nil, nil
	}
	page := matches[:limit]
	last := page[len(page)-1]
	return page, &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}, nil
}

// ListSince implements domain.ActivityRepository.
func (s *Store) ListSince(ctx context.Context, scope events.Scope, since time.Time) ([]ledger.Activity, error) {
	s.mu.RLock()
	out := make([]ledger.Activity, 0)
	for _, entry := range s.activities {
		if entry.scope == scope && !entry.activity.OccurredAt.Before(since) {
			out = append(out, entry.activity)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func sortNewestFirst(activities []ledger.Activity) {
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].OccurredAt.Equal(activities[j].OccurredAt) {
			return activities[i].ID > activities[j].ID
		}
		return activities[i].OccurredAt.After(activities[j].OccurredAt)
	})
}

// olderThan reports whether a sorts strictly after the cursor position.
func olderThan(a ledger.Activity, c domain.Cursor) bool {
	if a.OccurredAt.Equal(c.OccurredAt) {
		return a.ID < c.ID
	}
	return a.OccurredAt.Before(c.OccurredAt)
}

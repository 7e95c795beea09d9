package domain

import (
	"time"

	"example.com/bjjpoints/internal/ledger"
)

// Profile is a self-service user. Trainers are profiles with IsTrainer set.
type Profile struct {
	ID        string
	FullName  string
	Email     string
	Belt      ledger.Belt
	IsTrainer bool
	CreatedAt time.Time
}

// Subject converts the profile for leaderboard lookups.
func (p Profile) Subject() ledger.Subject {
	return ledger.Subject{ID: p.ID, Name: p.FullName, Belt: p.Belt}
}

// Credentials holds the login secret for a profile.
type Credentials struct {
	UserID       string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Athlete is a roster member managed by a trainer.
type Athlete struct {
	ID        string
	Name      string
	Email     string
	Belt      ledger.Belt
	BirthYear int
	Active    bool
	CreatedBy string
	CreatedAt time.Time
}

// Subject converts the athlete for leaderboard lookups.
func (a Athlete) Subject() ledger.Subject {
	return ledger.Subject{ID: a.ID, Name: a.Name, Belt: a.Belt}
}

// Cursor models the history pagination token.
type Cursor struct {
	OccurredAt time.Time
	ID         string
}

// Dashboard is the self-service home screen.
type Dashboard struct {
	Profile Profile
	Summary ledger.Summary
	History []ledger.Activity
}

// RosterRow is one athlete on the trainer dashboard.
type RosterRow struct {
	Rank    int
	Athlete Athlete
	Summary ledger.Summary
}

// AthleteDetail is the trainer's view of a single athlete.
type AthleteDetail struct {
	Athlete Athlete
	Summary ledger.Summary
	History []ledger.Activity
}

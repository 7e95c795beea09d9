// Package events defines the change-event payloads shared by the outbox, consumers and realtime fan-out.
package events

import "time"

// Scope names the leaderboard a change belongs to.
type Scope string

const (
	// ScopeSelf covers self-service profiles.
	ScopeSelf Scope = "self"
	// ScopeRoster covers trainer-managed athletes.
	ScopeRoster Scope = "roster"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeSelf || s == ScopeRoster
}

// Event type names as written to the outbox and Kafka headers.
const (
	TypeActivityRecorded = "activity.recorded"
	TypeActivityDeleted  = "activity.deleted"
	TypeAthleteChanged   = "athlete.changed"
)

// ActivityRecorded is emitted when an activity row is inserted.
type ActivityRecorded struct {
	ActivityID string    `json:"activity_id"`
	SubjectID  string    `json:"subject_id"`
	Scope      Scope     `json:"scope"`
	Type       string    `json:"type"`
	Points     int       `json:"points"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordedBy string    `json:"recorded_by"`
}

// ActivityDeleted is emitted when an activity is undone.
type ActivityDeleted struct {
	ActivityID string    `json:"activity_id"`
	SubjectID  string    `json:"subject_id"`
	Scope      Scope     `json:"scope"`
	DeletedAt  time.Time `json:"deleted_at"`
}

// Change is the minimal notification consumed by leaderboard refreshers.
type Change struct {
	Type      string
	SubjectID string
	Scope     Scope
}

package events

import "time"

// AthleteChanged is emitted when a roster athlete is created, edited or promoted.
type AthleteChanged struct {
	AthleteID string    `json:"athlete_id"`
	Name      string    `json:"name"`
	Belt      string    `json:"belt"`
	Active    bool      `json:"active"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

package ledger

import "time"

// ActivityType categorises a point-granting or point-deducting event.
type ActivityType string

const (
	Training   ActivityType = "training"
	Tournament ActivityType = "tournament"
	Penalty    ActivityType = "penalty"
	Misconduct ActivityType = "misconduct"
)

type activityInfo struct {
	label         string
	defaultPoints int
}

var activityTable = map[ActivityType]activityInfo{
	Training:   {label: "Training", defaultPoints: 1},
	Tournament: {label: "Turnier", defaultPoints: 50},
	Penalty:    {label: "Strafe", defaultPoints: -10},
	Misconduct: {label: "Fehlverhalten", defaultPoints: -25},
}

// ActivityTypes lists the known categories.
func ActivityTypes() []ActivityType {
	return []ActivityType{Training, Tournament, Penalty, Misconduct}
}

// Valid reports whether the type is one of the known categories.
func (t ActivityType) Valid() bool {
	_, ok := activityTable[t]
	return ok
}

// Label returns the display label, or the raw value for unknown types.
func (t ActivityType) Label() string {
	if info, ok := activityTable[t]; ok {
		return info.label
	}
	return string(t)
}

// DefaultPoints returns the points granted (or deducted) when no explicit value is given.
func (t ActivityType) DefaultPoints() int {
	return activityTable[t].defaultPoints
}

// Deducts reports whether the type subtracts points.
func (t ActivityType) Deducts() bool {
	return activityTable[t].defaultPoints < 0
}

// Activity is a single dated, typed, point-valued event attributed to one subject.
type Activity struct {
	ID         string
	SubjectID  string
	Type       ActivityType
	Points     int
	OccurredAt time.Time
	Note       string
	RecordedBy string
}

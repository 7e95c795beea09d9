package ledger

import (
	"sort"
	"time"
)

const (
	// AnnualSessionCap is the yearly training budget: 4 sessions a week for 48 weeks.
	AnnualSessionCap = 192
	// DefaultStreakLookback bounds how many weeks ComputeStreak inspects.
	DefaultStreakLookback = 52
	// UnknownSubjectName is shown for leaderboard subjects without a profile.
	UnknownSubjectName = "Unbekannt"
)

// TotalPoints sums the points of all activities. Deductions subtract.
func TotalPoints(activities []Activity) int {
	total := 0
	for _, a := range activities {
		total += a.Points
	}
	return total
}

// CountByType counts activities of the given type.
func CountByType(activities []Activity, t ActivityType) int {
	count := 0
	for _, a := range activities {
		if a.Type == t {
			count++
		}
	}
	return count
}

// TrainingsRemaining returns how many sessions are left of the yearly budget.
func TrainingsRemaining(trainingCount, cap int) int {
	if remaining := cap - trainingCount; remaining > 0 {
		return remaining
	}
	return 0
}

// ProgressPercent returns totalPoints as a percentage of cap, clamped to [0, 100].
func ProgressPercent(totalPoints, cap int) float64 {
	if cap <= 0 || totalPoints <= 0 {
		return 0
	}
	pct := float64(totalPoints) / float64(cap) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// IsBeltReady reports whether the points reach the promotion threshold of a belt that has a successor.
func IsBeltReady(totalPoints int, belt Belt) bool {
	if _, ok := belt.Next(); !ok {
		return false
	}
	return totalPoints >= belt.Threshold()
}

// WeekStart returns Monday 00:00 of the ISO week containing ref, in ref's location.
func WeekStart(ref time.Time) time.Time {
	weekday := int(ref.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	y, m, d := ref.Date()
	return time.Date(y, m, d-(weekday-1), 0, 0, 0, 0, ref.Location())
}

func inWeek(t, start time.Time) bool {
	return !t.Before(start) && t.Before(start.AddDate(0, 0, 7))
}

// TrainingsThisWeek counts trainings inside the week containing ref.
func TrainingsThisWeek(activities []Activity, ref time.Time) int {
	start := WeekStart(ref)
	count := 0
	for _, a := range activities {
		if a.Type == Training && inWeek(a.OccurredAt, start) {
			count++
		}
	}
	return count
}

// ComputeStreak counts consecutive weeks with at least one training, walking back from the
// week containing ref. At most maxWeeks weeks are inspected; a non-positive value means
// DefaultStreakLookback.
func ComputeStreak(activities []Activity, ref time.Time, maxWeeks int) int {
	if maxWeeks <= 0 {
		maxWeeks = DefaultStreakLookback
	}

	trainings := make([]time.Time, 0, len(activities))
	for _, a := range activities {
		if a.Type == Training {
			trainings = append(trainings, a.OccurredAt)
		}
	}
	if len(trainings) == 0 {
		return 0
	}

	streak := 0
	start := WeekStart(ref)
	for i := 0; i < maxWeeks; i++ {
		found := false
		for _, t := range trainings {
			if inWeek(t, start) {
				found = true
				break
			}
		}
		if !found {
			break
		}
		streak++
		start = start.AddDate(0, 0, -7)
	}
	return streak
}

// ForYear keeps the activities that occurred in the given calendar year of loc.
func ForYear(activities []Activity, year int, loc *time.Location) []Activity {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if a.OccurredAt.In(loc).Year() == year {
			out = append(out, a)
		}
	}
	return out
}

// YearStart returns January 1st 00:00 of ref's year in ref's location.
func YearStart(ref time.Time) time.Time {
	return time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
}

// Subject identifies a leaderboard participant.
type Subject struct {
	ID   string
	Name string
	Belt Belt
}

// ProfileLookup resolves display data for a subject ID.
type ProfileLookup func(subjectID string) (Subject, bool)

// LeaderboardEntry is one aggregated row.
type LeaderboardEntry struct {
	Rank      int
	SubjectID string
	Name      string
	Belt      Belt
	Points    int
}

// AggregateLeaderboard sums points per subject, resolves names via lookup and sorts by
// points descending. Subjects appear only if they have activities; ties keep first-seen order.
func AggregateLeaderboard(activities []Activity, lookup ProfileLookup) []LeaderboardEntry {
	index := make(map[string]int)
	entries := make([]LeaderboardEntry, 0)
	for _, a := range activities {
		i, ok := index[a.SubjectID]
		if !ok {
			entry := LeaderboardEntry{SubjectID: a.SubjectID, Name: UnknownSubjectName, Belt: White}
			if lookup != nil {
				if subject, found := lookup(a.SubjectID); found {
					entry.Name = subject.Name
					entry.Belt = subject.Belt
				}
			}
			i = len(entries)
			index[a.SubjectID] = i
			entries = append(entries, entry)
		}
		entries[i].Points += a.Points
	}
	rank(entries)
	return entries
}

// RosterPolicy decides which subjects a leaderboard contains.
type RosterPolicy int

const (
	// OnlyWithActivity lists subjects that have at least one activity in the scanned set.
	OnlyWithActivity RosterPolicy = iota
	// IncludeRoster lists every roster subject, with zero points when it has no activity.
	// Activities of subjects outside the roster are ignored.
	IncludeRoster
)

// BuildLeaderboard aggregates activities according to policy. The roster doubles as the
// profile lookup.
func BuildLeaderboard(policy RosterPolicy, roster []Subject, activities []Activity) []LeaderboardEntry {
	byID := make(map[string]Subject, len(roster))
	for _, s := range roster {
		byID[s.ID] = s
	}

	if policy == OnlyWithActivity {
		return AggregateLeaderboard(activities, func(id string) (Subject, bool) {
			s, ok := byID[id]
			return s, ok
		})
	}

	index := make(map[string]int, len(roster))
	entries := make([]LeaderboardEntry, 0, len(roster))
	for _, s := range roster {
		if _, dup := index[s.ID]; dup {
			continue
		}
		index[s.ID] = len(entries)
		entries = append(entries, LeaderboardEntry{SubjectID: s.ID, Name: s.Name, Belt: s.Belt})
	}
	for _, a := range activities {
		if i, ok := index[a.SubjectID]; ok {
			entries[i].Points += a.Points
		}
	}
	rank(entries)
	return entries
}

func rank(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// Summary bundles the derived statistics shown on an athlete dashboard.
type Summary struct {
	Year               int
	TotalPoints        int
	Trainings          int
	Tournaments        int
	Penalties          int
	Misconducts        int
	ProgressPercent    float64
	TrainingsRemaining int
	Belt               Belt
	NextBelt           *Belt
	BeltReady          bool
	TrainingsThisWeek  int
	Streak             int
}

// Summarize computes the dashboard statistics for the calendar year of now. Activities from
// other years are ignored.
func Summarize(activities []Activity, belt Belt, now time.Time) Summary {
	current := ForYear(activities, now.Year(), now.Location())
	total := TotalPoints(current)
	trainings := CountByType(current, Training)

	summary := Summary{
		Year:               now.Year(),
		TotalPoints:        total,
		Trainings:          trainings,
		Tournaments:        CountByType(current, Tournament),
		Penalties:          CountByType(current, Penalty),
		Misconducts:        CountByType(current, Misconduct),
		ProgressPercent:    ProgressPercent(total, AnnualSessionCap),
		TrainingsRemaining: TrainingsRemaining(trainings, AnnualSessionCap),
		Belt:               belt,
		BeltReady:          IsBeltReady(total, belt),
		TrainingsThisWeek:  TrainingsThisWeek(current, now),
		Streak:             ComputeStreak(current, now, DefaultStreakLookback),
	}
	if next, ok := belt.Next(); ok {
		summary.NextBelt = &next
	}
	return summary
}

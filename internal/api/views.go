package api

import (
	"errors"
	"strings"
	"time"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/realtime"
)

// ClientConfigResponse is the body of /config.json.
type ClientConfigResponse struct {
	SupabaseURL     string `json:"supabaseUrl"`
	SupabaseAnonKey string `json:"supabaseAnonKey"`
}

// RegisterRequest is the payload for POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Belt     string `json:"belt"`
}

// Validate ensures every sign-up field was filled in.
func (r RegisterRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Email) == "":
		return errors.New("email is required")
	case r.Password == "":
		return errors.New("password is required")
	case strings.TrimSpace(r.FullName) == "":
		return errors.New("fullName is required")
	case strings.TrimSpace(r.Belt) == "":
		return errors.New("belt is required")
	}
	return nil
}

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token of a new session.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Profile   ProfileView `json:"profile"`
}

// RecordActivityRequest is the payload for POST /v1/me/activities.
type RecordActivityRequest struct {
	Type string `json:"type"`
}

// AthleteRequest is the payload for POST /v1/athletes.
type AthleteRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Belt      string `json:"belt"`
	BirthYear int    `json:"birthYear"`
}

// AthletePatchRequest is the payload for PATCH /v1/athletes/{id}. Omitted fields stay unchanged.
type AthletePatchRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	BirthYear *int    `json:"birthYear"`
	Active    *bool   `json:"active"`
}

// LogEntryRequest is the payload for POST /v1/athletes/{id}/entries. Date accepts YYYY-MM-DD or RFC 3339.
type LogEntryRequest struct {
	Type   string `json:"type"`
	Points *int   `json:"points"`
	Date   string `json:"date"`
	Note   string `json:"note"`
}

func (r LogEntryRequest) parseDate(loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(r.Date)
	if raw == "" {
		return time.Time{}, nil
	}
	if day, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD or RFC 3339")
	}
	return ts, nil
}

// ProfileView exposes a self-service profile.
type ProfileView struct {
	ID        string      `json:"id"`
	FullName  string      `json:"fullName"`
	Email     string      `json:"email"`
	Belt      ledger.Belt `json:"belt"`
	BeltLabel string      `json:"beltLabel"`
	IsTrainer bool        `json:"isTrainer"`
}

// SummaryView exposes the statistics of one subject.
type SummaryView struct {
	Year               int          `json:"year"`
	TotalPoints        int          `json:"totalPoints"`
	Trainings          int          `json:"trainings"`
	Tournaments        int          `json:"tournaments"`
	Penalties          int          `json:"penalties"`
	Misconducts        int          `json:"misconducts"`
	ProgressPercent    float64      `json:"progressPercent"`
	TrainingsRemaining int          `json:"trainingsRemaining"`
	Belt               ledger.Belt  `json:"belt"`
	NextBelt           *ledger.Belt `json:"nextBelt,omitempty"`
	NextBeltLabel      string       `json:"nextBeltLabel,omitempty"`
	BeltReady          bool         `json:"beltReady"`
	TrainingsThisWeek  int          `json:"trainingsThisWeek"`
	Streak             int          `json:"streak"`
}

// ActivityView exposes one ledger entry.
type ActivityView struct {
	ID         string              `json:"id"`
	SubjectID  string              `json:"subjectId"`
	Type       ledger.ActivityType `json:"type"`
	Label      string              `json:"label"`
	Points     int                 `json:"points"`
	OccurredAt time.Time           `json:"occurredAt"`
	Note       string              `json:"note,omitempty"`
	RecordedBy string              `json:"recordedBy,omitempty"`
}

// DashboardResponse is the body of GET /v1/me.
type DashboardResponse struct {
	Profile ProfileView    `json:"profile"`
	Summary SummaryView    `json:"summary"`
	History []ActivityView `json:"history"`
	CanUndo bool           `json:"canUndo"`
}

// RecordActivityResponse is returned after a self-service entry.
type RecordActivityResponse struct {
	Activity ActivityView `json:"activity"`
	CanUndo  bool         `json:"canUndo"`
}

// HistoryResponse packages a page of history.
type HistoryResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// LeaderboardEntryView is one leaderboard row.
type LeaderboardEntryView struct {
	Rank      int         `json:"rank"`
	SubjectID string      `json:"subjectId"`
	Name      string      `json:"name"`
	Belt      ledger.Belt `json:"belt"`
	BeltLabel string      `json:"beltLabel"`
	Points    int         `json:"points"`
}

// LeaderboardResponse is the body of GET /v1/leaderboard and of stream events.
type LeaderboardResponse struct {
	Scope       string                 `json:"scope"`
	Seq         uint64                 `json:"seq,omitempty"`
	RefreshedAt *time.Time             `json:"refreshedAt,omitempty"`
	Entries     []LeaderboardEntryView `json:"entries"`
}

// AthleteView exposes a roster athlete.
type AthleteView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email,omitempty"`
	Belt      ledger.Belt `json:"belt"`
	BeltLabel string      `json:"beltLabel"`
	BirthYear int         `json:"birthYear,omitempty"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"createdAt"`
}

// AthleteDetailResponse is the body of GET /v1/athletes/{id}.
type AthleteDetailResponse struct {
	Athlete AthleteView    `json:"athlete"`
	Summary SummaryView    `json:"summary"`
	History []ActivityView `json:"history"`
}

// RosterRowView is one row of the trainer roster.
type RosterRowView struct {
	Rank    int         `json:"rank"`
	Athlete AthleteView `json:"athlete"`
	Summary SummaryView `json:"summary"`
}

// RosterResponse is the body of GET /v1/roster.
type RosterResponse struct {
	Year int             `json:"year"`
	Rows []RosterRowView `json:"rows"`
}

func toProfileView(p domain.Profile) ProfileView {
	return ProfileView{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		Belt:      p.Belt,
		BeltLabel: p.Belt.Label(),
		IsTrainer: p.IsTrainer,
	}
}

func toSummaryView(s ledger.Summary) SummaryView {
	view := SummaryView{
		Year:               s.Year,
		TotalPoints:        s.TotalPoints,
		Trainings:          s.Trainings,
		Tournaments:        s.Tournaments,
		Penalties:          s.Penalties,
		Misconducts:        s.Misconducts,
		ProgressPercent:    s.ProgressPercent,
		TrainingsRemaining: s.TrainingsRemaining,
		Belt:               s.Belt,
		NextBelt:           s.NextBelt,
		BeltReady:          s.BeltReady,
		TrainingsThisWeek:  s.TrainingsThisWeek,
		Streak:             s.Streak,
	}
	if s.NextBelt != nil {
		view.NextBeltLabel = s.NextBelt.Label()
	}
	return view
}

func toActivityView(a ledger.Activity) ActivityView {
	return ActivityView{
		ID:         a.ID,
		SubjectID:  a.SubjectID,
		Type:       a.Type,
		Label:      a.Type.Label(),
		Points:     a.Points,
		OccurredAt: a.OccurredAt,
		Note:       a.Note,
		RecordedBy: a.RecordedBy,
	}
}

func toActivityViews(activities []ledger.Activity) []ActivityView {
	out := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		out = append(out, toActivityView(a))
	}
	return out
}

func toLeaderboardEntries(entries []ledger.LeaderboardEntry) []LeaderboardEntryView {
	out := make([]LeaderboardEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardEntryView{
			Rank:      e.Rank,
			SubjectID: e.SubjectID,
			Name:      e.Name,
			Belt:      e.Belt,
			BeltLabel: e.Belt.Label(),
			Points:    e.Points,
		})
	}
	return out
}

func toSnapshotResponse(scope string, snap realtime.Snapshot, limit int) LeaderboardResponse {
	entries := snap.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	refreshed := snap.RefreshedAt
	return LeaderboardResponse{
		Scope:       scope,
		Seq:         snap.Seq,
		RefreshedAt: &refreshed,
		Entries:     toLeaderboardEntries(entries),
	}
}

func toAthleteView(a domain.Athlete) AthleteView {
	return AthleteView{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Belt:      a.Belt,
		BeltLabel: a.Belt.Label(),
		BirthYear: a.BirthYear,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

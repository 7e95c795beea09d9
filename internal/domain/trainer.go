package domain

import (
	"context"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/observability"
)

// AthleteInput captures the roster form.
type AthleteInput struct {
	Name      string
	Email     string
	Belt      string
	BirthYear int
}

// AthletePatch updates selected roster fields. Nil fields are left untouched.
type AthletePatch struct {
	Name      *string
	Email     *string
	BirthYear *int
	Active    *bool
}

// LogEntryInput captures a trainer-recorded entry. A nil Points uses the type default and a
// zero Date means now.
type LogEntryInput struct {
	AthleteID  string
	Type       ledger.ActivityType
	Points     *int
	Date       time.Time
	Note       string
	RecordedBy string
}

func (s *Service) validBirthYear(year int) bool {
	return year == 0 || (year >= 1900 && year <= s.Now().Year())
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", validationError("invalid email address")
	}
	return email, nil
}

// CreateAthlete adds an athlete to the roster.
func (s *Service) CreateAthlete(ctx context.Context, trainerID string, input AthleteInput) (*Athlete, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	belt := ledger.White
	if strings.TrimSpace(input.Belt) != "" {
		parsed, ok := ledger.ParseBelt(input.Belt)
		if !ok {
			return nil, validationError("unknown belt %q", input.Belt)
		}
		belt = parsed
	}
	if !s.validBirthYear(input.BirthYear) {
		return nil, validationError("birth year %d out of range", input.BirthYear)
	}

	athlete := Athlete{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Belt:      belt,
		BirthYear: input.BirthYear,
		Active:    true,
		CreatedBy: trainerID,
		CreatedAt: s.Now(),
	}
	if err := s.store.CreateAthlete(ctx, athlete); err != nil {
		return nil, err
	}
	s.notify(ctx, events.Change{Type: events.TypeAthleteChanged, SubjectID: athlete.ID, Scope: events.ScopeRoster})
	return &athlete, nil
}

// UpdateAthlete applies a patch to a roster entry.
func (s *Service) UpdateAthlete(ctx context.Context, trainerID, athleteID string, patch AthletePatch) (*Athlete, error) {
	athlete, err := s.store.GetAthlete(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, validationError("name is required")
		}
		athlete.Name = name
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		athlete.Email = email
	}
	if patch.BirthYear != nil {
		if !s.validBirthYear(*patch.BirthYear) {
			return nil, validationError("birth year %d out of range", *patch.BirthYear)
		}
		athlete.BirthYear = *patch.BirthYear
	}
	if patch.Active != nil {
		athlete.Active = *patch.Active
	}

	updated, err := s.store.UpdateAthlete(ctx, *athlete, trainerID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, events.Change{Type: events.TypeAthleteChanged, SubjectID: updated.ID, Scope: events.ScopeRoster})
	return updated, nil
}

// ListAthletes returns the roster ordered by name.
func (s *Service) ListAthletes(ctx context.Context, includeInactive bool) ([]Athlete, error) {
	return s.store.ListAthletes(ctx, includeInactive)
}

// LogEntry records any activity type for a roster athlete. Explicit points must carry the sign
// of the type: deductions negative, everything else positive.
func (s *Service) LogEntry(ctx context.Context, input LogEntryInput) (*ledger.Activity, error) {
	if !input.Type.Valid() {
		return nil, validationError("unknown activity type %q", input.Type)
	}
	athlete, err := s.store.GetAthlete(ctx, input.AthleteID)
	if err != nil {
		return nil, err
	}
	if !athlete.Active {
		return nil, validationError("athlete %s is inactive", athlete.ID)
	}

	points := input.Type.DefaultPoints()
	if input.Points != nil {
		points = *input.Points
		switch {
		case points == 0:
			return nil, validationError("points must not be zero")
		case input.Type.Deducts() && points > 0:
			return nil, validationError("%s entries must deduct points", input.Type)
		case !input.Type.Deducts() && points < 0:
			return nil, validationError("%s entries must award points", input.Type)
		}
	}

	occurredAt := input.Date
	if occurredAt.IsZero() {
		occurredAt = s.Now()
	}
	if occurredAt.After(s.Now().Add(24 * time.Hour)) {
		return nil, validationError("entry date lies in the future")
	}

	note := strings.TrimSpace(input.Note)
	if note == "" {
		note = input.Type.Label()
	}

	activity := ledger.Activity{
		ID:         uuid.NewString(),
		SubjectID:  athlete.ID,
		Type:       input.Type,
		Points:     points,
		OccurredAt: occurredAt,
		Note:       note,
		RecordedBy: input.RecordedBy,
	}
	if err := s.store.CreateActivity(ctx, events.ScopeRoster, activity); err != nil {
		return nil, err
	}
	s.notify(ctx, events.Change{Type: events.TypeActivityRecorded, SubjectID: athlete.ID, Scope: events.ScopeRoster})
	return &activity, nil
}

// Promote moves a belt-ready athlete to the next belt.
func (s *Service) Promote(ctx context.Context, trainerID, athleteID string) (*Athlete, error) {
	athlete, err := s.store.GetAthlete(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	activities, _, err := s.store.ListBySubject(ctx, athlete.ID, ledger.YearStart(now), nil, 0)
	if err != nil {
		return nil, err
	}
	current := ledger.ForYear(activities, now.Year(), s.loc)
	if !ledger.IsBeltReady(ledger.TotalPoints(current), athlete.Belt) {
		return nil, ErrNotBeltReady
	}
	next, ok := athlete.Belt.Next()
	if !ok {
		return nil, ErrNotBeltReady
	}

	promoted, err := s.store.PromoteAthlete(ctx, athlete.ID, athlete.Belt, next, trainerID)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("athlete %s promoted from %s to %s by %s", promoted.ID, athlete.Belt, next, trainerID)
	observability.RecordPromotion(next.String())
	s.notify(ctx, events.Change{Type: events.TypeAthleteChanged, SubjectID: promoted.ID, Scope: events.ScopeRoster})
	return promoted, nil
}

// AthleteDetail returns the statistics and history of one athlete.
func (s *Service) AthleteDetail(ctx context.Context, athleteID string) (*AthleteDetail, error) {
	athlete, err := s.store.GetAthlete(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	activities, _, err := s.store.ListBySubject(ctx, athlete.ID, ledger.YearStart(now), nil, 0)
	if err != nil {
		return nil, err
	}
	return &AthleteDetail{
		Athlete: *athlete,
		Summary: ledger.Summarize(activities, athlete.Belt, now),
		History: head(activities, HistoryLimit),
	}, nil
}

// Roster returns every active athlete with current-year statistics, ranked by points.
// Athletes without entries are listed with zero points.
func (s *Service) Roster(ctx context.Context) ([]RosterRow, error) {
	athletes, err := s.store.ListAthletes(ctx, false)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	activities, err := s.store.ListSince(ctx, events.ScopeRoster, ledger.YearStart(now))
	if err != nil {
		return nil, err
	}

	bySubject := make(map[string][]ledger.Activity, len(athletes))
	for _, a := range activities {
		bySubject[a.SubjectID] = append(bySubject[a.SubjectID], a)
	}

	rows := make([]RosterRow, 0, len(athletes))
	for _, athlete := range athletes {
		rows = append(rows, RosterRow{
			Athlete: athlete,
			Summary: ledger.Summarize(bySubject[athlete.ID], athlete.Belt, now),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Summary.TotalPoints > rows[j].Summary.TotalPoints
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// RosterLeaderboard ranks every active athlete, including those without entries.
func (s *Service) RosterLeaderboard(ctx context.Context) ([]ledger.LeaderboardEntry, error) {
	athletes, err := s.store.ListAthletes(ctx, false)
	if err != nil {
		return nil, err
	}
	activities, err := s.store.ListSince(ctx, events.ScopeRoster, ledger.YearStart(s.Now()))
	if err != nil {
		return nil, err
	}

	active := make(map[string]struct{}, len(athletes))
	roster := make([]ledger.Subject, 0, len(athletes))
	for _, a := range athletes {
		active[a.ID] = struct{}{}
		roster = append(roster, a.Subject())
	}
	filtered := activities[:0:0]
	for _, a := range activities {
		if _, ok := active[a.SubjectID]; ok {
			filtered = append(filtered, a)
		}
	}
	return ledger.BuildLeaderboard(ledger.IncludeRoster, roster, filtered), nil
}

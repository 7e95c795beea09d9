package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
)

const athleteColumns = `id, name, email, belt, birth_year, active, created_by, created_at`

func scanAthlete(row pgx.Row) (domain.Athlete, error) {
	var (
		a    domain.Athlete
		belt string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &belt, &a.BirthYear, &a.Active, &a.CreatedBy, &a.CreatedAt); err != nil {
		return domain.Athlete{}, err
	}
	a.Belt = ledger.BeltOrWhite(belt)
	return a, nil
}

func athleteChanged(a domain.Athlete, changedBy string, at time.Time) outboxRecord {
	return outboxRecord{
		AggregateType: "athlete",
		AggregateID:   a.ID,
		EventType:     events.TypeAthleteChanged,
		Scope:         events.ScopeRoster,
		SubjectID:     a.ID,
		Payload: events.AthleteChanged{
			AthleteID: a.ID,
			Name:      a.Name,
			Belt:      a.Belt.String(),
			Active:    a.Active,
			ChangedBy: changedBy,
			ChangedAt: at,
		},
	}
}

// CreateAthlete inserts an athlete and records an athlete.changed event.
func (r *Repository) CreateAthlete(ctx context.Context, athlete domain.Athlete) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO athletes (`+athleteColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			athlete.ID, athlete.Name, athlete.Email, athlete.Belt.String(), athlete.BirthYear, athlete.Active, athlete.CreatedBy, athlete.CreatedAt,
		); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, athleteChanged(athlete, athlete.CreatedBy, athlete.CreatedAt))
	})
}

// UpdateAthlete writes the profile fields and records an athlete.changed event. The belt
// column is left alone so a concurrent promotion survives.
func (r *Repository) UpdateAthlete(ctx context.Context, athlete domain.Athlete, changedBy string) (*domain.Athlete, error) {
	var updated domain.Athlete
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		a, err := scanAthlete(tx.QueryRow(ctx,
			`UPDATE athletes SET name = $2, email = $3, birth_year = $4, active = $5, updated_by = $6, updated_at = $7
             WHERE id = $1
             RETURNING `+athleteColumns,
			athlete.ID, athlete.Name, athlete.Email, athlete.BirthYear, athlete.Active, changedBy, now,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		updated = a
		return r.insertOutbox(ctx, tx, athleteChanged(a, changedBy, now))
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// PromoteAthlete moves the belt from `from` to `to` in a single conditional update.
func (r *Repository) PromoteAthlete(ctx context.Context, id string, from, to ledger.Belt, changedBy string) (*domain.Athlete, error) {
	var promoted domain.Athlete
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		a, err := scanAthlete(tx.QueryRow(ctx,
			`UPDATE athletes SET belt = $3, updated_by = $4, updated_at = $5
             WHERE id = $1 AND belt = $2
             RETURNING `+athleteColumns,
			id, from.String(), to.String(), changedBy, now,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM athletes WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domain.ErrNotFound
			}
			return domain.ErrBeltChanged
		}
		if err != nil {
			return err
		}
		promoted = a
		return r.insertOutbox(ctx, tx, athleteChanged(a, changedBy, now))
	})
	if err != nil {
		return nil, err
	}
	return &promoted, nil
}

// GetAthlete returns domain.ErrNotFound when the athlete does not exist.
func (r *Repository) GetAthlete(ctx context.Context, id string) (*domain.Athlete, error) {
	a, err := scanAthlete(r.pool.QueryRow(ctx, `SELECT `+athleteColumns+` FROM athletes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListAthletes returns the roster ordered by name.
func (r *Repository) ListAthletes(ctx context.Context, includeInactive bool) ([]domain.Athlete, error) {
	query := `SELECT ` + athleteColumns + ` FROM athletes`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Athlete, 0)
	for rows.Next() {
		a, err := scanAthlete(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

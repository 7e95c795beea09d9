package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/observability"
)

const activityColumns = `id, subject_id, type, points, occurred_at, note, recorded_by`

func scanActivity(row pgx.Row) (ledger.Activity, error) {
	var (
		a   ledger.Activity
		typ string
	)
	if err := row.Scan(&a.ID, &a.SubjectID, &typ, &a.Points, &a.OccurredAt, &a.Note, &a.RecordedBy); err != nil {
		return ledger.Activity{}, err
	}
	a.Type = ledger.ActivityType(typ)
	return a, nil
}

// CreateActivity persists the activity and records an activity.recorded event inside a single transaction.
func (r *Repository) CreateActivity(ctx context.Context, scope events.Scope, activity ledger.Activity) error {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO activities (id, scope, subject_id, type, points, occurred_at, note, recorded_by)
             VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			activity.ID, string(scope), activity.SubjectID, string(activity.Type), activity.Points, activity.OccurredAt, activity.Note, activity.RecordedBy,
		); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, outboxRecord{
			AggregateType: "activity",
			AggregateID:   activity.ID,
			EventType:     events.TypeActivityRecorded,
			Scope:         scope,
			SubjectID:     activity.SubjectID,
			DedupeKey:     fmt.Sprintf("%s:%s", activity.ID, events.TypeActivityRecorded),
			Payload: events.ActivityRecorded{
				ActivityID: activity.ID,
				SubjectID:  activity.SubjectID,
				Scope:      scope,
				Type:       string(activity.Type),
				Points:     activity.Points,
				OccurredAt: activity.OccurredAt,
				RecordedBy: activity.RecordedBy,
			},
		})
	})
	if err != nil {
		return err
	}
	observability.RecordActivityPersisted(activity.OccurredAt)
	return nil
}

// DeleteActivity removes an activity of the scope and records an activity.deleted event.
func (r *Repository) DeleteActivity(ctx context.Context, scope events.Scope, id string) (*ledger.Activity, error) {
	var deleted ledger.Activity
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		a, err := scanActivity(tx.QueryRow(ctx,
			`DELETE FROM activities WHERE id = $1 AND scope = $2 RETURNING `+activityColumns,
			id, string(scope),
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		deleted = a
		return r.insertOutbox(ctx, tx, outboxRecord{
			AggregateType: "activity",
			AggregateID:   a.ID,
			EventType:     events.TypeActivityDeleted,
			Scope:         scope,
			SubjectID:     a.SubjectID,
			DedupeKey:     fmt.Sprintf("%s:%s", a.ID, events.TypeActivityDeleted),
			Payload: events.ActivityDeleted{
				ActivityID: a.ID,
				SubjectID:  a.SubjectID,
				Scope:      scope,
				DeletedAt:  time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// ListBySubject returns activities for a subject ordered newest first.
func (r *Repository) ListBySubject(ctx context.Context, subjectID string, since time.Time, cursor *domain.Cursor, limit int) ([]ledger.Activity, *domain.Cursor, error) {
	args := []interface{}{subjectID, since}
	query := `SELECT ` + activityColumns + ` FROM activities WHERE subject_id = $1 AND occurred_at >= $2`

	if cursor != nil {
		args = append(args, cursor.OccurredAt, cursor.ID)
		query += fmt.Sprintf(` AND (occurred_at, id) < ($%d, $%d)`, len(args)-1, len(args))
	}

	query += ` ORDER BY occurred_at DESC, id DESC`
	if limit > 0 {
		// one extra row tells whether another page exists
		args = append(args, limit+1)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]ledger.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if limit > 0 && len(results) > limit {
		results = results[:limit]
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}
	}
	return results, nextCursor, nil
}

// ListSince returns all activities of a scope since the given instant, oldest first.
func (r *Repository) ListSince(ctx context.Context, scope events.Scope, since time.Time) ([]ledger.Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE scope = $1 AND occurred_at >= $2 ORDER BY occurred_at, id`,
		string(scope), since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]ledger.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

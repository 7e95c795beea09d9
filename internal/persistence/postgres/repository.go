package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/events"
)

// DefaultChangeTopic is the Kafka topic change events are routed to.
const DefaultChangeTopic = "activity_changes"

const uniqueViolation = "23505"

// Repository provides Postgres-backed persistence for accounts, athletes, activities and outbox events.
type Repository struct {
	pool  *pgxpool.Pool
	topic string
}

var _ domain.Store = (*Repository)(nil)

// Option configures optional behaviour for the Repository.
type Option func(*Repository)

// WithChangeTopic overrides the topic written to outbox rows.
func WithChangeTopic(topic string) Option {
	return func(r *Repository) {
		if topic != "" {
			r.topic = topic
		}
	}
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool, topic: DefaultChangeTopic}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// outboxRecord is one change event written next to the row it describes.
type outboxRecord struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Scope         events.Scope
	SubjectID     string
	DedupeKey     string
	Payload       any
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	SchemaSuffix   string
	PartitionKeyFn func(outboxRecord) string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeActivityRecorded: {
		SchemaSuffix: "activity-recorded-value",
		PartitionKeyFn: func(r outboxRecord) string {
			return fmt.Sprintf("%s:%s", r.Scope, r.SubjectID)
		},
	},
	events.TypeActivityDeleted: {
		SchemaSuffix: "activity-deleted-value",
		PartitionKeyFn: func(r outboxRecord) string {
			return fmt.Sprintf("%s:%s", r.Scope, r.SubjectID)
		},
	},
	events.TypeAthleteChanged: {
		SchemaSuffix: "athlete-changed-value",
		PartitionKeyFn: func(r outboxRecord) string {
			return fmt.Sprintf("%s:%s", r.Scope, r.AggregateID)
		},
	},
}

// SchemaSubject returns the registry subject for an event type on the given topic.
func SchemaSubject(topic, eventType string) (string, error) {
	meta, ok := eventCatalog[eventType]
	if !ok {
		return "", fmt.Errorf("unknown event type: %s", eventType)
	}
	return fmt.Sprintf("%s-%s", topic, meta.SchemaSuffix), nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, record outboxRecord) error {
	body, err := json.Marshal(record.Payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[record.EventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", record.EventType)
	}
	subject, err := SchemaSubject(r.topic, record.EventType)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, scope, subject_id, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err = tx.Exec(ctx, stmt,
		record.AggregateType,
		record.AggregateID,
		record.EventType,
		r.topic,
		subject,
		meta.PartitionKeyFn(record),
		string(record.Scope),
		record.SubjectID,
		body,
		nullIfEmpty(record.DedupeKey),
	)
	return err
}

// withTx runs fn inside a transaction, committing on success.
func (r *Repository) withTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PersistenceHandler writes consumed change events into Postgres as an audit log.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// Handle stores the event payload in the activity_event_log table. Redelivered records are ignored.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	_, err := h.pool.Exec(ctx,
		`INSERT INTO activity_event_log (event_type, scope, subject_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		string(msg.Scope),
		msg.SubjectID,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	return err
}

package consumer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

// PersistenceHandler appends consumed events to participation_event_log.
// Redelivered records are ignored by their (topic, partition, offset).
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// Handle stores the event payload.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	received := msg.Timestamp
	if received.IsZero() {
		received = nowUTC()
	}

	tag, err := h.pool.Exec(ctx,
		`INSERT INTO participation_event_log (event_type, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		[]byte(msg.Payload),
		received,
	)
	if err != nil {
		return errors.Wrapf(err, "logging %s at %s/%d/%d", msg.EventType, msg.Topic, msg.Partition, msg.Offset)
	}
	if tag.RowsAffected() == 0 {
		duplicateCounter.Inc()
	}
	return nil
}

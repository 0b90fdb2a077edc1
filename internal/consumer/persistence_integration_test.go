//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/volunteer/internal/events"
	"example.com/volunteer/internal/persistence/postgres/pgtest"
)

func TestPersistenceHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t, ctx)

	handler := NewPersistenceHandler(pool)

	payload := json.RawMessage(`{"activity_id":10,"user_id":7}`)
	msg := Message{
		EventType:     events.TypeParticipationRegistered,
		SchemaID:      42,
		SchemaSubject: "participation_registered-value",
		Topic:         events.TopicParticipation,
		Partition:     0,
		Offset:        5,
		Payload:       payload,
		Timestamp:     time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC),
	}

	before := testutil.ToFloat64(duplicateCounter)
	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg), "redelivery is ignored")
	require.InDelta(t, before+1, testutil.ToFloat64(duplicateCounter), 0.0001)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM participation_event_log`).Scan(&count))
	require.Equal(t, 1, count)

	var storedPayload []byte
	require.NoError(t, pool.QueryRow(ctx, `SELECT payload FROM participation_event_log LIMIT 1`).Scan(&storedPayload))
	require.JSONEq(t, string(payload), string(storedPayload))
}

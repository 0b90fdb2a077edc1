package outbox

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"example.com/volunteer/internal/events"
)

func TestDeliverFramesAndGroupsByTopic(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	dispatcher := newTestDispatcher(producer, registry)

	messages := []Message{
		testMessage(1, events.TypeParticipationRegistered, events.TopicParticipation),
		testMessage(2, events.TypeParticipationUpdated, "audit_events"),
		testMessage(3, events.TypeParticipationRemoved, events.TopicParticipation),
	}

	require.NoError(t, dispatcher.deliver(context.Background(), messages))

	require.Len(t, producer.writes, 2)
	assert.Equal(t, events.TopicParticipation, producer.writes[0].topic)
	assert.Len(t, producer.writes[0].messages, 2)
	assert.Equal(t, "audit_events", producer.writes[1].topic)

	first := producer.writes[0].messages[0]
	assert.Equal(t, []byte("7"), first.Key)
	assert.Equal(t, byte(0), first.Value[0])
	assert.Equal(t, uint32(42), binary.BigEndian.Uint32(first.Value[1:5]))
	assert.JSONEq(t, `{"user_id":7}`, string(first.Value[5:]))

	headers := map[string]string{}
	for _, h := range first.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, events.TypeParticipationRegistered, headers[HeaderEventType])
	assert.Equal(t, events.TypeParticipationRegistered+"-value", headers[HeaderSchemaSubject])
	assert.Equal(t, "1", headers[HeaderEventID])

	third := producer.writes[0].messages[1]
	assert.Equal(t, "3", headerValue(third, HeaderEventID))
}

func TestDeliverCachesSchemaIDs(t *testing.T) {
	registry := &stubRegistry{id: 5}
	dispatcher := newTestDispatcher(&stubProducer{}, registry)

	messages := []Message{
		testMessage(1, events.TypeParticipationRegistered, events.TopicParticipation),
		testMessage(2, events.TypeParticipationRegistered, events.TopicParticipation),
	}
	require.NoError(t, dispatcher.deliver(context.Background(), messages))
	require.NoError(t, dispatcher.deliver(context.Background(), messages[:1]))

	assert.Len(t, registry.calls, 1)
}

func TestDeliverRejectsUnknownEventType(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{}
	dispatcher := newTestDispatcher(producer, registry)

	err := dispatcher.deliver(context.Background(), []Message{testMessage(9, "participation.archived", events.TopicParticipation)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema metadata for event_type=participation.archived")
	assert.Empty(t, producer.writes)
	assert.Empty(t, registry.calls)
}

func TestDeliverPropagatesFailures(t *testing.T) {
	t.Run("registry", func(t *testing.T) {
		dispatcher := newTestDispatcher(&stubProducer{}, &stubRegistry{err: errors.New("registry down")})
		err := dispatcher.deliver(context.Background(), []Message{testMessage(1, events.TypeParticipationRemoved, events.TopicParticipation)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "registry down")
	})

	t.Run("producer", func(t *testing.T) {
		dispatcher := newTestDispatcher(&stubProducer{err: errors.New("broker unavailable")}, &stubRegistry{id: 3})
		err := dispatcher.deliver(context.Background(), []Message{testMessage(1, events.TypeParticipationRemoved, events.TopicParticipation)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "write 1 messages to "+events.TopicParticipation)
	})
}

func TestEncodeWireFormat(t *testing.T) {
	frame := encodeWireFormat(258, []byte(`{}`))
	assert.Equal(t, []byte{0, 0, 0, 1, 2, '{', '}'}, frame)
}

func TestBackoffDelay(t *testing.T) {
	manager := NewDLQManager(nil, nil, 3, time.Second)

	assert.Equal(t, time.Second, manager.backoffDelay(0))
	assert.Equal(t, time.Second, manager.backoffDelay(1))
	assert.Equal(t, 4*time.Second, manager.backoffDelay(3))
	assert.Equal(t, time.Hour, manager.backoffDelay(20))
	assert.Equal(t, time.Hour, manager.backoffDelay(64))
}

func newTestDispatcher(producer messageWriter, registry schemaRegistrar) *Dispatcher {
	return &Dispatcher{
		producer: producer,
		registry: registry,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) },
	}
}

func testMessage(id int64, eventType, topic string) Message {
	return Message{
		EventID:       id,
		AggregateType: events.AggregateParticipation,
		AggregateID:   "10:7",
		EventType:     eventType,
		Topic:         topic,
		SchemaSubject: eventType + "-value",
		PartitionKey:  "7",
		Payload:       []byte(`{"user_id":7}`),
	}
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: copied})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []string
}

func (s *stubRegistry) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, subject)
	if s.err != nil {
		return 0, s.err
	}
	if s.id == 0 {
		s.id = 1
	}
	return s.id, nil
}

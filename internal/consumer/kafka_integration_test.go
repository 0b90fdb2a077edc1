//go:build integration

package consumer

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap/zaptest"

	"example.com/volunteer/internal/events"
	"example.com/volunteer/internal/outbox"
)

func TestProcessorConsumesProducedEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.5.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             events.TopicParticipation,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
	require.NoError(t, conn.Close())

	payload := []byte(`{"event_id":"e1","activity_id":10,"user_id":7,"hours_realized":"3","completed":true,"occurred_at":"2026-10-18T10:00:00Z"}`)
	value := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(value[1:5], 11)
	copy(value[5:], payload)

	producer := outbox.NewKafkaProducer(brokers)
	defer producer.Close()
	require.NoError(t, producer.WriteMessages(ctx, events.TopicParticipation, kafka.Message{
		Key:   []byte("7"),
		Value: value,
		Headers: []kafka.Header{
			{Key: outbox.HeaderEventType, Value: []byte(events.TypeParticipationRegistered)},
			{Key: outbox.HeaderSchemaSubject, Value: []byte("participation_registered-value")},
			{Key: outbox.HeaderEventID, Value: []byte("1")},
		},
	}))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     "volunteer-consumer-test",
		Topic:       events.TopicParticipation,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	defer reader.Close()

	received := make(chan Message, 1)
	var once sync.Once
	handler := Chain(
		ParticipationLogger(zaptest.NewLogger(t)),
		HandlerFunc(func(_ context.Context, msg Message) error {
			once.Do(func() { received <- msg })
			return nil
		}),
	)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- NewProcessor(reader, handler, WithLogger(zaptest.NewLogger(t))).Run(runCtx) }()

	select {
	case msg := <-received:
		assert.Equal(t, events.TypeParticipationRegistered, msg.EventType)
		assert.Equal(t, 11, msg.SchemaID)
		assert.Equal(t, int64(1), msg.EventID)
		assert.Equal(t, "7", msg.Key)
		assert.JSONEq(t, string(payload), string(msg.Payload))
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	stop()
	require.ErrorIs(t, <-done, context.Canceled)
}

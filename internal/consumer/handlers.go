package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"example.com/volunteer/internal/events"
)

// Chain runs handlers in order and stops at the first error.
func Chain(handlers ...Handler) Handler {
	return HandlerFunc(func(ctx context.Context, msg Message) error {
		for _, h := range handlers {
			if err := h.Handle(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// ErrUnknownEvent is returned for event types this service does not publish.
var ErrUnknownEvent = errors.New("unknown event type")

// ParticipationLogger decodes participation payloads and logs one line per
// change. It fails on unknown types and malformed payloads.
func ParticipationLogger(logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return HandlerFunc(func(_ context.Context, msg Message) error {
		var (
			activityID, userID int64
			fields             []zap.Field
		)
		switch msg.EventType {
		case events.TypeParticipationRegistered:
			var ev events.ParticipationRegistered
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				return fmt.Errorf("decode %s: %w", msg.EventType, err)
			}
			activityID, userID = ev.ActivityID, ev.UserID
			fields = append(fields, zap.String("hours_realized", ev.HoursRealized), zap.Bool("completed", ev.Completed))
		case events.TypeParticipationUpdated:
			var ev events.ParticipationUpdated
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				return fmt.Errorf("decode %s: %w", msg.EventType, err)
			}
			activityID, userID = ev.ActivityID, ev.UserID
			fields = append(fields, zap.String("hours_realized", ev.HoursRealized), zap.Bool("completed", ev.Completed))
		case events.TypeParticipationRemoved:
			var ev events.ParticipationRemoved
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				return fmt.Errorf("decode %s: %w", msg.EventType, err)
			}
			activityID, userID = ev.ActivityID, ev.UserID
		default:
			return fmt.Errorf("%w: %s", ErrUnknownEvent, msg.EventType)
		}

		logger.Info("participation event",
			append([]zap.Field{
				zap.String("event_type", msg.EventType),
				zap.Int64("activity_id", activityID),
				zap.Int64("user_id", userID),
				zap.Int64("offset", msg.Offset),
			}, fields...)...,
		)
		return nil
	})
}

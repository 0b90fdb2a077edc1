// Package events defines the payloads published for participation changes.
package events

import "time"

// Event types written to the outbox.
const (
	TypeParticipationRegistered = "participation.registered"
	TypeParticipationUpdated    = "participation.updated"
	TypeParticipationRemoved    = "participation.removed"
)

// TopicParticipation carries every participation event, keyed by user id.
const TopicParticipation = "participation_events"

// AggregateParticipation is the outbox aggregate_type of participation rows.
const AggregateParticipation = "participation"

// ParticipationRegistered is emitted when a user is registered against an activity.
type ParticipationRegistered struct {
	EventID       string    `json:"event_id"`
	ActivityID    int64     `json:"activity_id"`
	UserID        int64     `json:"user_id"`
	HoursRealized string    `json:"hours_realized"`
	Completed     bool      `json:"completed"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ParticipationUpdated carries the record state after an update.
type ParticipationUpdated struct {
	EventID        string     `json:"event_id"`
	ActivityID     int64      `json:"activity_id"`
	UserID         int64      `json:"user_id"`
	HoursRealized  string     `json:"hours_realized"`
	Completed      bool       `json:"completed"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// ParticipationRemoved is emitted when a participation record is deleted.
type ParticipationRemoved struct {
	EventID    string    `json:"event_id"`
	ActivityID int64     `json:"activity_id"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

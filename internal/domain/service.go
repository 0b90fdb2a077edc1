// Package domain defines the participation model and the benefit rules of the
// volunteer service: hour aggregation, tier classification, report assembly and
// the certificate eligibility gate.
package domain

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParticipationStore captures persistence operations. Implementations return
// (nil, nil) for lookups that find nothing and may return ErrAlreadyRegistered
// or a wrapped ErrNotFound from writes.
type ParticipationStore interface {
	CompletedParticipation(ctx context.Context, userID int64) ([]ParticipationRow, error)
	AggregateHours(ctx context.Context, userID int64) (*HoursAggregate, error)

	InsertParticipation(ctx context.Context, p Participation) error
	ModifyParticipation(ctx context.Context, activityID, userID int64, mutate func(*Participation)) (*Participation, error)
	DeleteParticipation(ctx context.Context, activityID, userID int64) (bool, error)
	ListParticipants(ctx context.Context, activityID int64, cursor *Cursor, limit int) ([]Participant, *Cursor, error)
	ListUserParticipation(ctx context.Context, userID int64) ([]UserParticipation, error)
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRandom overrides the source of the verification code suffix. The
// function must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Service) {
		s.intn = intn
	}
}

// Service orchestrates participation workflows.
type Service struct {
	store    ParticipationStore
	renderer CertificateRenderer
	now      func() time.Time
	intn     func(int) int
}

// NewService constructs a Service.
func NewService(store ParticipationStore, renderer CertificateRenderer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		renderer: renderer,
		now:      func() time.Time { return time.Now().UTC() },
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseID parses a positive integer identifier taken from a path or body.
func ParseID(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalidInput("%s is required", field)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidInput("%s must be a positive integer", field)
	}
	return id, nil
}

// RegisterParticipationInput captures the payload from the API layer.
type RegisterParticipationInput struct {
	ActivityID    int64
	UserID        int64
	HoursRealized decimal.Decimal
	Completed     bool
}

// RegisterParticipation records a user against an activity. Registering the
// same pair twice fails with ErrAlreadyRegistered.
func (s *Service) RegisterParticipation(ctx context.Context, input RegisterParticipationInput) (*Participation, error) {
	if input.ActivityID <= 0 || input.UserID <= 0 {
		return nil, invalidInput("activity id and user id must be positive integers")
	}
	if input.HoursRealized.IsNegative() {
		return nil, invalidInput("hours realized must not be negative")
	}

	now := s.now()
	record := Participation{
		ActivityID:    input.ActivityID,
		UserID:        input.UserID,
		HoursRealized: input.HoursRealized,
		Completed:     input.Completed,
		RegisteredAt:  now,
		UpdatedAt:     now,
	}
	if record.Completed {
		record.CompletionDate = now
	}

	if err := s.store.InsertParticipation(ctx, record); err != nil {
		return nil, storeFailure("insert participation", err)
	}
	return &record, nil
}

// UpdateParticipation applies a partial update to hours and/or completion.
func (s *Service) UpdateParticipation(ctx context.Context, activityID, userID int64, patch ParticipationPatch) (*Participation, error) {
	if activityID <= 0 || userID <= 0 {
		return nil, invalidInput("activity id and user id must be positive integers")
	}
	if patch.Empty() {
		return nil, invalidInput("nothing to update")
	}
	if patch.HoursRealized != nil && patch.HoursRealized.IsNegative() {
		return nil, invalidInput("hours realized must not be negative")
	}

	now := s.now()
	updated, err := s.store.ModifyParticipation(ctx, activityID, userID, func(p *Participation) {
		p.Apply(patch, now)
	})
	if err != nil {
		return nil, storeFailure("update participation", err)
	}
	if updated == nil {
		return nil, notFound("participation not found")
	}
	return updated, nil
}

// RemoveParticipation deletes a participation record.
func (s *Service) RemoveParticipation(ctx context.Context, activityID, userID int64) error {
	if activityID <= 0 || userID <= 0 {
		return invalidInput("activity id and user id must be positive integers")
	}
	deleted, err := s.store.DeleteParticipation(ctx, activityID, userID)
	if err != nil {
		return storeFailure("delete participation", err)
	}
	if !deleted {
		return notFound("participation not found")
	}
	return nil
}

// ListParticipants returns the participants of an activity with cursor pagination.
func (s *Service) ListParticipants(ctx context.Context, activityID int64, cursor *Cursor, limit int) ([]Participant, *Cursor, error) {
	if activityID <= 0 {
		return nil, nil, invalidInput("activity id must be a positive integer")
	}
	if limit <= 0 {
		return nil, nil, invalidInput("limit must be a positive integer")
	}
	participants, next, err := s.store.ListParticipants(ctx, activityID, cursor, limit)
	if err != nil {
		return nil, nil, storeFailure("list participants", err)
	}
	return participants, next, nil
}

// ListUserParticipation returns every participation of a user, completed or not.
func (s *Service) ListUserParticipation(ctx context.Context, userID int64) ([]UserParticipation, error) {
	if userID <= 0 {
		return nil, invalidInput("user id must be a positive integer")
	}
	records, err := s.store.ListUserParticipation(ctx, userID)
	if err != nil {
		return nil, storeFailure("list user participation", err)
	}
	return records, nil
}

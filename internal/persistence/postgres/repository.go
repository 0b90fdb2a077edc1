// Package postgres implements the participation and user stores on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"example.com/volunteer/internal/domain"
	"example.com/volunteer/internal/events"
	"example.com/volunteer/internal/observability"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository provides Postgres-backed persistence for participation records,
// users and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CompletedParticipation returns the user's completed participation joined with
// active activities and active groups, newest completion first.
func (r *Repository) CompletedParticipation(ctx context.Context, userID int64) ([]domain.ParticipationRow, error) {
	const query = `SELECT a.activity_id, a.name, a.duration_hours::text, g.group_id, g.name,
            p.hours_realized::text, p.completed_at, p.completed, a.active, g.active
        FROM participations p
        JOIN activities a ON a.activity_id = p.activity_id
        JOIN volunteer_groups g ON g.group_id = a.group_id
        WHERE p.user_id = $1 AND p.completed AND a.active AND g.active
        ORDER BY p.completed_at DESC NULLS LAST, a.activity_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying completed participation")
	}
	defer rows.Close()

	results := make([]domain.ParticipationRow, 0)
	for rows.Next() {
		var (
			row                 domain.ParticipationRow
			durationRaw, hrsRaw string
			completedAt         *time.Time
		)
		if err := rows.Scan(&row.ActivityID, &row.ActivityName, &durationRaw, &row.GroupID, &row.GroupName,
			&hrsRaw, &completedAt, &row.Completed, &row.ActivityActive, &row.GroupActive); err != nil {
			return nil, errors.Wrap(err, "scanning participation row")
		}
		if row.DurationHours, err = decimal.NewFromString(durationRaw); err != nil {
			return nil, errors.Wrapf(err, "decoding duration of activity %d", row.ActivityID)
		}
		if row.HoursRealized, err = decimal.NewFromString(hrsRaw); err != nil {
			return nil, errors.Wrapf(err, "decoding hours of activity %d", row.ActivityID)
		}
		if completedAt != nil {
			row.CompletionDate = completedAt.UTC()
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating participation rows")
	}
	return results, nil
}

// AggregateHours sums the same population as CompletedParticipation in a
// single row. It returns (nil, nil) when the user has no qualifying history.
func (r *Repository) AggregateHours(ctx context.Context, userID int64) (*domain.HoursAggregate, error) {
	const query = `SELECT u.given_name, u.paternal_surname, u.maternal_surname, u.identity_number,
            SUM(p.hours_realized)::text
        FROM participations p
        JOIN users u ON u.user_id = p.user_id
        JOIN activities a ON a.activity_id = p.activity_id
        JOIN volunteer_groups g ON g.group_id = a.group_id
        WHERE p.user_id = $1 AND p.completed AND a.active AND g.active
        GROUP BY u.user_id`

	var (
		agg      domain.HoursAggregate
		totalRaw string
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(&agg.GivenName, &agg.PaternalSurname, &agg.MaternalSurname, &agg.IdentityNumber, &totalRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "querying aggregate hours")
	}
	if agg.TotalHours, err = decimal.NewFromString(totalRaw); err != nil {
		return nil, errors.Wrap(err, "decoding aggregate hours")
	}
	return &agg, nil
}

// InsertParticipation persists a new record and its outbox event in one transaction.
func (r *Repository) InsertParticipation(ctx context.Context, p domain.Participation) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `INSERT INTO participations (activity_id, user_id, hours_realized, completed, completed_at, registered_at, updated_at)
        VALUES ($1, $2, CAST($3::text AS NUMERIC), $4, $5, $6, $7)`

	if _, err = tx.Exec(ctx, stmt, p.ActivityID, p.UserID, p.HoursRealized.String(), p.Completed, nullTime(p.CompletionDate), p.RegisteredAt, p.UpdatedAt); err != nil {
		return translateWriteError(err, p.ActivityID, p.UserID)
	}

	if err = r.insertOutbox(ctx, tx, p, events.TypeParticipationRegistered, events.ParticipationRegistered{
		EventID:       uuid.NewString(),
		ActivityID:    p.ActivityID,
		UserID:        p.UserID,
		HoursRealized: p.HoursRealized.String(),
		Completed:     p.Completed,
		OccurredAt:    p.UpdatedAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing participation insert")
	}
	observability.RecordParticipationPersisted(p.UpdatedAt)
	return nil
}

// ModifyParticipation locks the record, applies mutate, and writes it back.
// It returns (nil, nil) when the record does not exist.
func (r *Repository) ModifyParticipation(ctx context.Context, activityID, userID int64, mutate func(*domain.Participation)) (_ *domain.Participation, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const selectStmt = `SELECT activity_id, user_id, hours_realized::text, completed, completed_at, registered_at, updated_at
        FROM participations WHERE activity_id = $1 AND user_id = $2 FOR UPDATE`

	current, err := scanParticipation(tx.QueryRow(ctx, selectStmt, activityID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
			tx.Rollback(ctx)
			return nil, nil
		}
		return nil, errors.Wrap(err, "loading participation")
	}

	mutate(&current)

	const updateStmt = `UPDATE participations
        SET hours_realized = CAST($3::text AS NUMERIC), completed = $4, completed_at = $5, updated_at = $6
        WHERE activity_id = $1 AND user_id = $2`

	if _, err = tx.Exec(ctx, updateStmt, activityID, userID, current.HoursRealized.String(), current.Completed, nullTime(current.CompletionDate), current.UpdatedAt); err != nil {
		return nil, translateWriteError(err, activityID, userID)
	}

	payload := events.ParticipationUpdated{
		EventID:       uuid.NewString(),
		ActivityID:    current.ActivityID,
		UserID:        current.UserID,
		HoursRealized: current.HoursRealized.String(),
		Completed:     current.Completed,
		OccurredAt:    current.UpdatedAt,
	}
	if !current.CompletionDate.IsZero() {
		completed := current.CompletionDate
		payload.CompletionDate = &completed
	}
	if err = r.insertOutbox(ctx, tx, current, events.TypeParticipationUpdated, payload); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "committing participation update")
	}
	observability.RecordParticipationPersisted(current.UpdatedAt)
	return &current, nil
}

// DeleteParticipation removes a record and reports whether it existed.
func (r *Repository) DeleteParticipation(ctx context.Context, activityID, userID int64) (_ bool, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM participations WHERE activity_id = $1 AND user_id = $2`, activityID, userID)
	if err != nil {
		return false, errors.Wrap(err, "deleting participation")
	}
	if tag.RowsAffected() == 0 {
		tx.Rollback(ctx)
		return false, nil
	}

	now := time.Now().UTC()
	removed := domain.Participation{ActivityID: activityID, UserID: userID, UpdatedAt: now}
	if err = r.insertOutbox(ctx, tx, removed, events.TypeParticipationRemoved, events.ParticipationRemoved{
		EventID:    uuid.NewString(),
		ActivityID: activityID,
		UserID:     userID,
		OccurredAt: now,
	}); err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "committing participation delete")
	}
	observability.RecordParticipationPersisted(now)
	return true, nil
}

// ListParticipants returns an activity's participants ordered by registration time.
func (r *Repository) ListParticipants(ctx context.Context, activityID int64, cursor *domain.Cursor, limit int) ([]domain.Participant, *domain.Cursor, error) {
	args := []interface{}{activityID, limit}
	query := `SELECT p.activity_id, p.user_id, p.hours_realized::text, p.completed, p.completed_at, p.registered_at, p.updated_at,
            u.given_name, u.paternal_surname, u.maternal_surname, u.email
        FROM participations p
        JOIN users u ON u.user_id = p.user_id
        WHERE p.activity_id = $1`

	if cursor != nil {
		query += ` AND (p.registered_at, p.user_id) > ($3, $4)`
		args = append(args, cursor.RegisteredAt, cursor.UserID)
	}
	query += ` ORDER BY p.registered_at, p.user_id LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying participants")
	}
	defer rows.Close()

	results := make([]domain.Participant, 0, max(limit, 0))
	for rows.Next() {
		var (
			participant domain.Participant
			hoursRaw    string
			completedAt *time.Time
		)
		if err := rows.Scan(&participant.ActivityID, &participant.UserID, &hoursRaw, &participant.Completed, &completedAt,
			&participant.RegisteredAt, &participant.UpdatedAt,
			&participant.GivenName, &participant.PaternalSurname, &participant.MaternalSurname, &participant.Email); err != nil {
			return nil, nil, errors.Wrap(err, "scanning participant")
		}
		if participant.HoursRealized, err = decimal.NewFromString(hoursRaw); err != nil {
			return nil, nil, errors.Wrap(err, "decoding participant hours")
		}
		if completedAt != nil {
			participant.CompletionDate = completedAt.UTC()
		}
		results = append(results, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "iterating participants")
	}

	var next *domain.Cursor
	if len(results) > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{RegisteredAt: last.RegisteredAt, UserID: last.UserID}
	}
	return results, next, nil
}

// ListUserParticipation returns every record of a user with activity and group names.
func (r *Repository) ListUserParticipation(ctx context.Context, userID int64) ([]domain.UserParticipation, error) {
	const query = `SELECT p.activity_id, p.user_id, p.hours_realized::text, p.completed, p.completed_at, p.registered_at, p.updated_at,
            a.name, a.active, g.group_id, g.name, g.active
        FROM participations p
        JOIN activities a ON a.activity_id = p.activity_id
        JOIN volunteer_groups g ON g.group_id = a.group_id
        WHERE p.user_id = $1
        ORDER BY p.registered_at DESC, p.activity_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user participation")
	}
	defer rows.Close()

	results := make([]domain.UserParticipation, 0)
	for rows.Next() {
		var (
			record      domain.UserParticipation
			hoursRaw    string
			completedAt *time.Time
		)
		if err := rows.Scan(&record.ActivityID, &record.UserID, &hoursRaw, &record.Completed, &completedAt,
			&record.RegisteredAt, &record.UpdatedAt,
			&record.ActivityName, &record.ActivityActive, &record.GroupID, &record.GroupName, &record.GroupActive); err != nil {
			return nil, errors.Wrap(err, "scanning user participation")
		}
		if record.HoursRealized, err = decimal.NewFromString(hoursRaw); err != nil {
			return nil, errors.Wrap(err, "decoding user participation hours")
		}
		if completedAt != nil {
			record.CompletionDate = completedAt.UTC()
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating user participation")
	}
	return results, nil
}

func scanParticipation(row pgx.Row) (domain.Participation, error) {
	var (
		p           domain.Participation
		hoursRaw    string
		completedAt *time.Time
	)
	if err := row.Scan(&p.ActivityID, &p.UserID, &hoursRaw, &p.Completed, &completedAt, &p.RegisteredAt, &p.UpdatedAt); err != nil {
		return domain.Participation{}, err
	}
	hours, err := decimal.NewFromString(hoursRaw)
	if err != nil {
		return domain.Participation{}, err
	}
	p.HoursRealized = hours
	if completedAt != nil {
		p.CompletionDate = completedAt.UTC()
	}
	return p, nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, p domain.Participation, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding event payload")
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	if _, err := tx.Exec(ctx, stmt,
		events.AggregateParticipation,
		participationAggregateID(p.ActivityID, p.UserID),
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(p),
		body,
	); err != nil {
		return errors.Wrap(err, "inserting outbox event")
	}
	return nil
}

func translateWriteError(err error, activityID, userID int64) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.ErrAlreadyRegistered
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: activity %d or user %d does not exist", domain.ErrNotFound, activityID, userID)
		}
	}
	return errors.Wrap(err, "writing participation")
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func participationAggregateID(activityID, userID int64) string {
	return strconv.FormatInt(activityID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.Participation) string
}

// All participation events share one topic keyed by user so a consumer sees a
// user's changes in order.
var eventCatalog = map[string]EventMetadata{
	events.TypeParticipationRegistered: {
		Topic:          events.TopicParticipation,
		SchemaSubject:  "participation_registered-value",
		PartitionKeyFn: partitionByUser,
	},
	events.TypeParticipationUpdated: {
		Topic:          events.TopicParticipation,
		SchemaSubject:  "participation_updated-value",
		PartitionKeyFn: partitionByUser,
	},
	events.TypeParticipationRemoved: {
		Topic:          events.TopicParticipation,
		SchemaSubject:  "participation_removed-value",
		PartitionKeyFn: partitionByUser,
	},
}

func partitionByUser(p domain.Participation) string {
	return strconv.FormatInt(p.UserID, 10)
}

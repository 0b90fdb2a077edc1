// Package memory provides an in-process participation store for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"example.com/volunteer/internal/accounts"
	"example.com/volunteer/internal/domain"
)

// Group mirrors a volunteer_groups row.
type Group struct {
	ID     int64
	Name   string
	Active bool
}

// Activity mirrors an activities row.
type Activity struct {
	ID            int64
	GroupID       int64
	Name          string
	DurationHours decimal.Decimal
	Active        bool
}

type participationKey struct {
	activityID int64
	userID     int64
}

// Store keeps users, groups, activities and participation records in maps.
type Store struct {
	mu             sync.RWMutex
	users          map[int64]accounts.User
	groups         map[int64]Group
	activities     map[int64]Activity
	participations map[participationKey]domain.Participation
	nextUserID     int64
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		users:          make(map[int64]accounts.User),
		groups:         make(map[int64]Group),
		activities:     make(map[int64]Activity),
		participations: make(map[participationKey]domain.Participation),
	}
}

// PutGroup inserts or replaces a group.
func (s *Store) PutGroup(g Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
}

// PutActivity inserts or replaces an activity.
func (s *Store) PutActivity(a Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[a.ID] = a
}

// PutUser inserts or replaces a user, keeping the id sequence ahead of it.
func (s *Store) PutUser(u accounts.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	if u.ID > s.nextUserID {
		s.nextUserID = u.ID
	}
}

// PutParticipation writes a record without any uniqueness check.
func (s *Store) PutParticipation(p domain.Participation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participations[participationKey{p.ActivityID, p.UserID}] = p
}

// CompletedParticipation implements domain.ParticipationStore.
func (s *Store) CompletedParticipation(ctx context.Context, userID int64) ([]domain.ParticipationRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.ParticipationRow, 0)
	for key, p := range s.participations {
		if key.userID != userID || !p.Completed {
			continue
		}
		activity, ok := s.activities[key.activityID]
		if !ok || !activity.Active {
			continue
		}
		group, ok := s.groups[activity.GroupID]
		if !ok || !group.Active {
			continue
		}
		rows = append(rows, domain.ParticipationRow{
			ActivityID:     activity.ID,
			ActivityName:   activity.Name,
			DurationHours:  activity.DurationHours,
			GroupID:        group.ID,
			GroupName:      group.Name,
			HoursRealized:  p.HoursRealized,
			CompletionDate: p.CompletionDate,
			Completed:      p.Completed,
			ActivityActive: activity.Active,
			GroupActive:    group.Active,
		})
	}

	// Same ordering as the SQL query: newest completion first.
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CompletionDate.Equal(rows[j].CompletionDate) {
			return rows[i].CompletionDate.After(rows[j].CompletionDate)
		}
		return rows[i].ActivityID < rows[j].ActivityID
	})
	return rows, nil
}

// AggregateHours implements domain.ParticipationStore.
func (s *Store) AggregateHours(ctx context.Context, userID int64) (*domain.HoursAggregate, error) {
	rows, err := s.CompletedParticipation(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	user, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.HoursRealized)
	}
	return &domain.HoursAggregate{
		GivenName:       user.GivenName,
		PaternalSurname: user.PaternalSurname,
		MaternalSurname: user.MaternalSurname,
		IdentityNumber:  user.IdentityNumber,
		TotalHours:      total,
	}, nil
}

// InsertParticipation implements domain.ParticipationStore.
func (s *Store) InsertParticipation(ctx context.Context, p domain.Participation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activities[p.ActivityID]; !ok {
		return fmt.Errorf("%w: activity %d", domain.ErrNotFound, p.ActivityID)
	}
	if _, ok := s.users[p.UserID]; !ok {
		return fmt.Errorf("%w: user %d", domain.ErrNotFound, p.UserID)
	}
	key := participationKey{p.ActivityID, p.UserID}
	if _, exists := s.participations[key]; exists {
		return domain.ErrAlreadyRegistered
	}
	s.participations[key] = p
	return nil
}

// ModifyParticipation implements domain.ParticipationStore.
func (s *Store) ModifyParticipation(ctx context.Context, activityID, userID int64, mutate func(*domain.Participation)) (*domain.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := participationKey{activityID, userID}
	p, ok := s.participations[key]
	if !ok {
		return nil, nil
	}
	mutate(&p)
	s.participations[key] = p
	return &p, nil
}

// DeleteParticipation implements domain.ParticipationStore.
func (s *Store) DeleteParticipation(ctx context.Context, activityID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := participationKey{activityID, userID}
	if _, ok := s.participations[key]; !ok {
		return false, nil
	}
	delete(s.participations, key)
	return true, nil
}

// ListParticipants implements domain.ParticipationStore.
func (s *Store) ListParticipants(ctx context.Context, activityID int64, cursor *domain.Cursor, limit int) ([]domain.Participant, *domain.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		return []domain.Participant{}, nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Participant, 0)
	for key, p := range s.participations {
		if key.activityID != activityID {
			continue
		}
		user := s.users[key.userID]
		all = append(all, domain.Participant{
			Participation:   p,
			GivenName:       user.GivenName,
			PaternalSurname: user.PaternalSurname,
			MaternalSurname: user.MaternalSurname,
			Email:           user.Email,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].RegisteredAt.Equal(all[j].RegisteredAt) {
			return all[i].RegisteredAt.Before(all[j].RegisteredAt)
		}
		return all[i].UserID < all[j].UserID
	})

	results := make([]domain.Participant, 0, limit)
	for _, participant := range all {
		if cursor != nil && !after(participant, *cursor) {
			continue
		}
		results = append(results, participant)
		if len(results) == limit {
			break
		}
	}

	var next *domain.Cursor
	if len(results) > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{RegisteredAt: last.RegisteredAt, UserID: last.UserID}
	}
	return results, next, nil
}

func after(p domain.Participant, c domain.Cursor) bool {
	if p.RegisteredAt.Equal(c.RegisteredAt) {
		return p.UserID > c.UserID
	}
	return p.RegisteredAt.After(c.RegisteredAt)
}

// ListUserParticipation implements domain.ParticipationStore.
func (s *Store) ListUserParticipation(ctx context.Context, userID int64) ([]domain.UserParticipation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserParticipation, 0)
	for key, p := range s.participations {
		if key.userID != userID {
			continue
		}
		activity := s.activities[key.activityID]
		group := s.groups[activity.GroupID]
		out = append(out, domain.UserParticipation{
			Participation:  p,
			ActivityName:   activity.Name,
			ActivityActive: activity.Active,
			GroupID:        group.ID,
			GroupName:      group.Name,
			GroupActive:    group.Active,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.After(out[j].RegisteredAt)
		}
		return out[i].ActivityID < out[j].ActivityID
	})
	return out, nil
}

// FindUserByEmail implements accounts.UserStore.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*accounts.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// FindUserByID implements accounts.UserStore.
func (s *Store) FindUserByID(ctx context.Context, id int64) (*accounts.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// CountUsers implements accounts.UserStore.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// CreateUser implements accounts.UserStore.
func (s *Store) CreateUser(ctx context.Context, user accounts.User) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.IdentityNumber == user.IdentityNumber {
			return 0, accounts.ErrDuplicateUser
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	s.users[user.ID] = user
	return user.ID, nil
}

package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Participation is the stored join record between a user and an activity.
// A (ActivityID, UserID) pair is unique.
type Participation struct {
	ActivityID     int64
	UserID         int64
	HoursRealized  decimal.Decimal
	Completed      bool
	CompletionDate time.Time
	RegisteredAt   time.Time
	UpdatedAt      time.Time
}

// ParticipationPatch carries a partial update. Nil fields are left untouched.
type ParticipationPatch struct {
	HoursRealized *decimal.Decimal
	Completed     *bool
}

// Empty reports whether the patch changes nothing.
func (p ParticipationPatch) Empty() bool {
	return p.HoursRealized == nil && p.Completed == nil
}

// Apply mutates the record in place. Marking a record completed stamps the
// completion date once; reopening it clears the date.
func (p *Participation) Apply(patch ParticipationPatch, now time.Time) {
	if patch.HoursRealized != nil {
		p.HoursRealized = *patch.HoursRealized
	}
	if patch.Completed != nil {
		switch {
		case *patch.Completed && !p.Completed:
			p.CompletionDate = now
		case !*patch.Completed:
			p.CompletionDate = time.Time{}
		}
		p.Completed = *patch.Completed
	}
	p.UpdatedAt = now
}

// ParticipationRow is one completed participation joined with its activity and
// group, as returned by ParticipationStore.CompletedParticipation.
type ParticipationRow struct {
	ActivityID     int64
	ActivityName   string
	DurationHours  decimal.Decimal
	GroupID        int64
	GroupName      string
	HoursRealized  decimal.Decimal
	CompletionDate time.Time
	Completed      bool
	ActivityActive bool
	GroupActive    bool
}

// Counts reports whether the row contributes to a user's hour totals.
func (r ParticipationRow) Counts() bool {
	return r.Completed && r.ActivityActive && r.GroupActive
}

// HoursAggregate is the single-row result of the direct aggregate query used
// by the certificate gate.
type HoursAggregate struct {
	GivenName       string
	PaternalSurname string
	MaternalSurname string
	IdentityNumber  string
	TotalHours      decimal.Decimal
}

// DisplayName joins the given name and both surnames, in that order, with
// single spaces. Blank parts are skipped, so a user without a maternal
// surname renders as "Given Paternal" with no trailing space.
func (a HoursAggregate) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{a.GivenName, a.PaternalSurname, a.MaternalSurname} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// Participant is a participation record annotated with the user it belongs to.
type Participant struct {
	Participation
	GivenName       string
	PaternalSurname string
	MaternalSurname string
	Email           string
}

// UserParticipation is a participation record annotated with its activity and group.
type UserParticipation struct {
	Participation
	ActivityName   string
	ActivityActive bool
	GroupID        int64
	GroupName      string
	GroupActive    bool
}

// Cursor models the keyset pagination token for participant listings.
type Cursor struct {
	RegisteredAt time.Time
	UserID       int64
}

package domain

import (
	"context"

	"github.com/shopspring/decimal"

	"example.com/volunteer/internal/observability"
)

// ParticipationReport is built fresh for every request and never persisted.
type ParticipationReport struct {
	UserID     int64
	TotalHours decimal.Decimal
	Benefit    Benefit
	Groups     []GroupContribution
}

// AssembleReport composes a tally and its classification.
func AssembleReport(userID int64, tally HoursTally) ParticipationReport {
	groups := tally.Groups
	if groups == nil {
		groups = make([]GroupContribution, 0)
	}
	return ParticipationReport{
		UserID:     userID,
		TotalHours: tally.Total,
		Benefit:    ClassifyBenefit(tally.Total),
		Groups:     groups,
	}
}

// ParticipationReport rolls up the user's completed hours per group and
// classifies the global total. A user without qualifying history gets an
// empty report, not an error.
func (s *Service) ParticipationReport(ctx context.Context, userID int64) (*ParticipationReport, error) {
	if userID <= 0 {
		return nil, invalidInput("user id must be a positive integer")
	}

	rows, err := s.store.CompletedParticipation(ctx, userID)
	if err != nil {
		return nil, storeFailure("query completed participation", err)
	}

	report := AssembleReport(userID, TallyHours(rows))
	observability.RecordReportServed(report.Benefit.Tier.String())
	return &report, nil
}

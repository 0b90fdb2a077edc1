package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is a benefit bucket derived from a user's completed hours.
type Tier int

const (
	TierNone Tier = iota
	TierAcademicBonus
	TierBonusOrCredit
	TierCertificate
)

// String returns the machine-readable tier code.
func (t Tier) String() string {
	switch t {
	case TierAcademicBonus:
		return "academic_bonus"
	case TierBonusOrCredit:
		return "bonus_or_credit"
	case TierCertificate:
		return "certificate"
	default:
		return "none"
	}
}

var (
	// CertificateThreshold must be strictly exceeded to earn the certificate.
	CertificateThreshold = decimal.NewFromInt(100)

	bonusOrCreditThreshold = decimal.NewFromInt(51)
	academicBonusThreshold = decimal.NewFromInt(25)
)

const (
	labelCertificate   = "Certificado"
	labelBonusOrCredit = "Opción a elegir: Bono o Crédito"
	labelAcademicBonus = "Bono Académico"
)

// Benefit is the outcome of classifying a total.
type Benefit struct {
	Tier  Tier
	Label string
	// HoursRemaining is the distance to the first benefit; zero once a benefit is reached.
	HoursRemaining decimal.Decimal
}

// ClassifyBenefit maps a global hour total to its benefit. Thresholds are
// checked from the highest down. The certificate tier requires strictly more
// than 100 hours; the lower tiers are inclusive.
func ClassifyBenefit(total decimal.Decimal) Benefit {
	switch {
	case total.GreaterThan(CertificateThreshold):
		return Benefit{Tier: TierCertificate, Label: labelCertificate, HoursRemaining: decimal.Zero}
	case total.GreaterThanOrEqual(bonusOrCreditThreshold):
		return Benefit{Tier: TierBonusOrCredit, Label: labelBonusOrCredit, HoursRemaining: decimal.Zero}
	case total.GreaterThanOrEqual(academicBonusThreshold):
		return Benefit{Tier: TierAcademicBonus, Label: labelAcademicBonus, HoursRemaining: decimal.Zero}
	}

	remaining := academicBonusThreshold.Sub(total)
	return Benefit{
		Tier:           TierNone,
		Label:          fmt.Sprintf("Faltan %s horas para el primer beneficio", remaining.String()),
		HoursRemaining: remaining,
	}
}

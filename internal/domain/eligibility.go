package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"example.com/volunteer/internal/observability"
)

// EligibilityStatus is the outcome of the certificate gate once history exists.
type EligibilityStatus string

const (
	EligibilityEligible EligibilityStatus = "eligible"
	EligibilityRejected EligibilityStatus = "rejected"
)

// CertificateHolder identifies the person a certificate is issued to.
type CertificateHolder struct {
	DisplayName    string
	IdentityNumber string
	TotalHours     decimal.Decimal
}

// WholeHours is the floored total printed in the certificate body.
func (h CertificateHolder) WholeHours() int64 {
	return h.TotalHours.Floor().IntPart()
}

// EligibilityDecision carries the gate result. Holder is set only when eligible.
type EligibilityDecision struct {
	Status        EligibilityStatus
	CurrentTotal  decimal.Decimal
	RequiredTotal decimal.Decimal
	Holder        *CertificateHolder
}

// Eligible reports whether the certificate may be rendered.
func (d EligibilityDecision) Eligible() bool {
	return d.Status == EligibilityEligible
}

// Message is the user-facing explanation of a rejection.
func (d EligibilityDecision) Message() string {
	if d.Eligible() {
		return ""
	}
	return fmt.Sprintf("El usuario solo tiene %s horas. Se requieren más de %s horas.", d.CurrentTotal.String(), d.RequiredTotal.String())
}

// DecideEligibility applies the strict greater-than-100 rule to the unfloored total.
func DecideEligibility(agg HoursAggregate) EligibilityDecision {
	decision := EligibilityDecision{
		CurrentTotal:  agg.TotalHours,
		RequiredTotal: CertificateThreshold,
	}
	if !agg.TotalHours.GreaterThan(CertificateThreshold) {
		decision.Status = EligibilityRejected
		return decision
	}
	decision.Status = EligibilityEligible
	decision.Holder = &CertificateHolder{
		DisplayName:    agg.DisplayName(),
		IdentityNumber: agg.IdentityNumber,
		TotalHours:     agg.TotalHours,
	}
	return decision
}

// Certificate is the structured payload handed to a CertificateRenderer.
type Certificate struct {
	HolderName       string
	IdentityNumber   string
	Hours            int64
	VerificationCode string
	IssuedAt         time.Time
}

// FileName is the download name of the rendered document.
func (c Certificate) FileName() string {
	return fmt.Sprintf("certificado_global_%s.pdf", c.IdentityNumber)
}

// CertificateRenderer turns certificate data into a document byte stream.
type CertificateRenderer interface {
	Render(ctx context.Context, cert Certificate) ([]byte, error)
}

// VerificationCode formats the cosmetic code printed on a certificate. Codes
// are neither stored nor unique.
func VerificationCode(year int, identityNumber string, suffix int) string {
	return fmt.Sprintf("GLOB-%d-%s-%d", year, identityNumber, suffix)
}

// IssuedCertificate is the result of IssueCertificate. Certificate and Document
// are set only when the decision is eligible.
type IssuedCertificate struct {
	Decision    EligibilityDecision
	Certificate *Certificate
	Document    []byte
}

// CheckCertificateEligibility runs the gate without rendering anything.
func (s *Service) CheckCertificateEligibility(ctx context.Context, userID int64) (EligibilityDecision, error) {
	if userID <= 0 {
		return EligibilityDecision{}, invalidInput("user id must be a positive integer")
	}

	agg, err := s.store.AggregateHours(ctx, userID)
	if err != nil {
		return EligibilityDecision{}, storeFailure("query aggregate hours", err)
	}
	if agg == nil {
		observability.RecordCertificateOutcome("not_found")
		return EligibilityDecision{}, notFound("user not found or no completed activities")
	}

	decision := DecideEligibility(*agg)
	observability.RecordCertificateOutcome(string(decision.Status))
	return decision, nil
}

// IssueCertificate runs the gate and, when eligible, renders the certificate.
// Nothing is recorded either way, so issuing again is always safe.
func (s *Service) IssueCertificate(ctx context.Context, userID int64) (*IssuedCertificate, error) {
	decision, err := s.CheckCertificateEligibility(ctx, userID)
	if err != nil {
		return nil, err
	}

	issued := &IssuedCertificate{Decision: decision}
	if !decision.Eligible() {
		return issued, nil
	}

	issuedAt := s.now()
	cert := Certificate{
		HolderName:       decision.Holder.DisplayName,
		IdentityNumber:   decision.Holder.IdentityNumber,
		Hours:            decision.Holder.WholeHours(),
		VerificationCode: VerificationCode(issuedAt.Year(), decision.Holder.IdentityNumber, s.intn(10000)),
		IssuedAt:         issuedAt,
	}

	start := time.Now()
	document, err := s.renderer.Render(ctx, cert)
	observability.ObserveCertificateRender(time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}

	issued.Certificate = &cert
	issued.Document = document
	return issued, nil
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"example.com/volunteer/internal/domain"
)

// ParticipationReportResponse is the body of GET /v1/users/{userID}/participation-report.
type ParticipationReportResponse struct {
	UserID     int64       `json:"user_id"`
	TotalHours json.Number `json:"total_hours"`
	Benefit    BenefitView `json:"benefit"`
	Groups     []GroupView `json:"groups"`
}

// BenefitView describes the tier reached by the total.
type BenefitView struct {
	Tier           string      `json:"tier"`
	Label          string      `json:"label"`
	HoursRemaining json.Number `json:"hours_remaining"`
}

// GroupView is one group's contribution to the total.
type GroupView struct {
	GroupID    int64                     `json:"group_id"`
	GroupName  string                    `json:"group_name"`
	TotalHours json.Number               `json:"total_hours"`
	Activities []ContributedActivityView `json:"activities"`
}

// ContributedActivityView is one completed activity inside a group.
type ContributedActivityView struct {
	ActivityID     int64       `json:"activity_id"`
	Name           string      `json:"name"`
	Hours          json.Number `json:"hours"`
	CompletionDate *time.Time  `json:"completion_date"`
}

// EligibilityResponse is the body of the eligibility endpoint and of rejected
// certificate requests.
type EligibilityResponse struct {
	Type           string      `json:"type,omitempty"`
	Detail         string      `json:"detail,omitempty"`
	Status         string      `json:"status"`
	CurrentTotal   json.Number `json:"current_total"`
	RequiredTotal  json.Number `json:"required_total"`
	HolderName     string      `json:"holder_name,omitempty"`
	CertifiedHours *int64      `json:"certified_hours,omitempty"`
}

func decimalNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (h *Handler) participationReport(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if !authorizeUserRead(w, claims, userID) {
		return
	}

	report, err := h.service.ParticipationReport(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(*report))
}

func toReportResponse(report domain.ParticipationReport) ParticipationReportResponse {
	resp := ParticipationReportResponse{
		UserID:     report.UserID,
		TotalHours: decimalNumber(report.TotalHours),
		Benefit: BenefitView{
			Tier:           report.Benefit.Tier.String(),
			Label:          report.Benefit.Label,
			HoursRemaining: decimalNumber(report.Benefit.HoursRemaining),
		},
		Groups: make([]GroupView, 0, len(report.Groups)),
	}
	for _, group := range report.Groups {
		view := GroupView{
			GroupID:    group.GroupID,
			GroupName:  group.GroupName,
			TotalHours: decimalNumber(group.TotalHours),
			Activities: make([]ContributedActivityView, 0, len(group.Activities)),
		}
		for _, activity := range group.Activities {
			view.Activities = append(view.Activities, ContributedActivityView{
				ActivityID:     activity.ActivityID,
				Name:           activity.Name,
				Hours:          decimalNumber(activity.Hours),
				CompletionDate: optionalTime(activity.CompletionDate),
			})
		}
		resp.Groups = append(resp.Groups, view)
	}
	return resp
}

func toEligibilityResponse(decision domain.EligibilityDecision) EligibilityResponse {
	resp := EligibilityResponse{
		Status:        string(decision.Status),
		CurrentTotal:  decimalNumber(decision.CurrentTotal),
		RequiredTotal: decimalNumber(decision.RequiredTotal),
	}
	if decision.Eligible() {
		hours := decision.Holder.WholeHours()
		resp.HolderName = decision.Holder.DisplayName
		resp.CertifiedHours = &hours
		return resp
	}
	resp.Type = "threshold_not_met"
	resp.Detail = decision.Message()
	return resp
}

func (h *Handler) certificateEligibility(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if !authorizeUserRead(w, claims, userID) {
		return
	}

	decision, err := h.service.CheckCertificateEligibility(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEligibilityResponse(decision))
}

func (h *Handler) globalCertificate(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if !authorizeUserRead(w, claims, userID) {
		return
	}

	issued, err := h.service.IssueCertificate(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !issued.Decision.Eligible() {
		writeJSON(w, http.StatusBadRequest, toEligibilityResponse(issued.Decision))
		return
	}

	h.logger.Info("certificate issued",
		zap.Int64("user_id", userID),
		zap.String("verification_code", issued.Certificate.VerificationCode),
	)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(issued.Certificate.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(issued.Document)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(issued.Document)
}

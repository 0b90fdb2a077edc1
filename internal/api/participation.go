package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"example.com/volunteer/internal/auth"
	"example.com/volunteer/internal/domain"
	"example.com/volunteer/internal/persistence"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RegisterParticipationRequest is the payload for POST /v1/participations.
type RegisterParticipationRequest struct {
	ActivityID    int64       `json:"activity_id" validate:"required,gt=0"`
	UserID        int64       `json:"user_id" validate:"required,gt=0"`
	HoursRealized json.Number `json:"hours_realized" validate:"hours"`
	Completed     bool        `json:"completed"`
}

// UpdateParticipationRequest is the payload for PUT /v1/participations/{activityID}/{userID}.
type UpdateParticipationRequest struct {
	HoursRealized *json.Number `json:"hours_realized" validate:"omitempty,hours"`
	Completed     *bool        `json:"completed"`
}

// ParticipationView exposes a stored participation record.
type ParticipationView struct {
	ActivityID     int64       `json:"activity_id"`
	UserID         int64       `json:"user_id"`
	HoursRealized  json.Number `json:"hours_realized"`
	Completed      bool        `json:"completed"`
	CompletionDate *time.Time  `json:"completion_date"`
	RegisteredAt   time.Time   `json:"registered_at"`
}

// ParticipantView is a participation joined with the user's identity.
type ParticipantView struct {
	ParticipationView
	GivenName       string `json:"given_name"`
	PaternalSurname string `json:"paternal_surname"`
	MaternalSurname string `json:"maternal_surname"`
	Email           string `json:"email"`
}

// ListParticipantsResponse packages a page of participants.
type ListParticipantsResponse struct {
	Items      []ParticipantView `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// UserParticipationView is a participation joined with activity and group names.
type UserParticipationView struct {
	ParticipationView
	ActivityName   string `json:"activity_name"`
	ActivityActive bool   `json:"activity_active"`
	GroupID        int64  `json:"group_id"`
	GroupName      string `json:"group_name"`
	GroupActive    bool   `json:"group_active"`
}

// ListUserParticipationResponse packages a user's participation history.
type ListUserParticipationResponse struct {
	Items []UserParticipationView `json:"items"`
}

func toParticipationView(p domain.Participation) ParticipationView {
	return ParticipationView{
		ActivityID:     p.ActivityID,
		UserID:         p.UserID,
		HoursRealized:  decimalNumber(p.HoursRealized),
		Completed:      p.Completed,
		CompletionDate: optionalTime(p.CompletionDate),
		RegisteredAt:   p.RegisteredAt,
	}
}

func parseHours(raw json.Number) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	// Already checked by the hours validation tag.
	d, _ := decimal.NewFromString(raw.String())
	return d
}

func (h *Handler) registerParticipation(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if !authorizeWrite(w, claims) {
		return
	}

	var req RegisterParticipationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	record, err := h.service.RegisterParticipation(r.Context(), domain.RegisterParticipationInput{
		ActivityID:    req.ActivityID,
		UserID:        req.UserID,
		HoursRealized: parseHours(req.HoursRealized),
		Completed:     req.Completed,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParticipationView(*record))
}

func (h *Handler) updateParticipation(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if !authorizeWrite(w, claims) {
		return
	}
	activityID, ok := pathID(w, r, "activityID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var req UpdateParticipationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	patch := domain.ParticipationPatch{Completed: req.Completed}
	if req.HoursRealized != nil {
		hours := parseHours(*req.HoursRealized)
		patch.HoursRealized = &hours
	}

	record, err := h.service.UpdateParticipation(r.Context(), activityID, userID, patch)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipationView(*record))
}

func (h *Handler) removeParticipation(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if !authorizeWrite(w, claims) {
		return
	}
	activityID, ok := pathID(w, r, "activityID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.service.RemoveParticipation(r.Context(), activityID, userID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if !claims.HasScope(auth.ScopeReportsRead) && !claims.HasScope(auth.ScopeParticipationWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope reports:read required")
		return
	}
	activityID, ok := pathID(w, r, "activityID")
	if !ok {
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	participants, next, err := h.service.ListParticipants(r.Context(), activityID, cursor, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	items := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		items = append(items, ParticipantView{
			ParticipationView: toParticipationView(p.Participation),
			GivenName:         p.GivenName,
			PaternalSurname:   p.PaternalSurname,
			MaternalSurname:   p.MaternalSurname,
			Email:             p.Email,
		})
	}
	writeJSON(w, http.StatusOK, ListParticipantsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) userParticipations(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.service.ListUserParticipation(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	items := make([]UserParticipationView, 0, len(records))
	for _, rec := range records {
		items = append(items, UserParticipationView{
			ParticipationView: toParticipationView(rec.Participation),
			ActivityName:      rec.ActivityName,
			ActivityActive:    rec.ActivityActive,
			GroupID:           rec.GroupID,
			GroupName:         rec.GroupName,
			GroupActive:       rec.GroupActive,
		})
	}
	writeJSON(w, http.StatusOK, ListUserParticipationResponse{Items: items})
}

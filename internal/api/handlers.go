// Package api exposes HTTP handlers for the volunteer service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"example.com/volunteer/internal/accounts"
	"example.com/volunteer/internal/auth"
	"example.com/volunteer/internal/domain"
)

// Handler coordinates HTTP requests with the domain and accounts services.
type Handler struct {
	service    *domain.Service
	accounts   *accounts.Service
	logger     *zap.Logger
	validate   *validator.Validate
	translator ut.Translator
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, accountService *accounts.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate, translator := newValidator()
	return &Handler{
		service:    service,
		accounts:   accountService,
		logger:     logger,
		validate:   validate,
		translator: translator,
	}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", h.login)
		r.Get("/auth/renew", h.renew)

		r.Get("/users/{userID}/participation-report", h.participationReport)
		r.Get("/users/{userID}/participations", h.userParticipations)

		r.Get("/certificates/global/{userID}/eligibility", h.certificateEligibility)
		r.Get("/certificates/global/{userID}", h.globalCertificate)

		r.Post("/participations", h.registerParticipation)
		r.Put("/participations/{activityID}/{userID}", h.updateParticipation)
		r.Delete("/participations/{activityID}/{userID}", h.removeParticipation)
		r.Get("/activities/{activityID}/participants", h.listParticipants)
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requireClaims writes 401 and returns false when the request is anonymous.
func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	return claims, true
}

// authorizeUserRead allows callers to read their own data, or anyone's with reports:read.
func authorizeUserRead(w http.ResponseWriter, claims *auth.Claims, userID int64) bool {
	if self, ok := claims.UserID(); ok && self == userID {
		return true
	}
	if claims.HasScope(auth.ScopeReportsRead) {
		return true
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope reports:read required")
	return false
}

func authorizeWrite(w http.ResponseWriter, claims *auth.Claims) bool {
	if claims.HasScope(auth.ScopeParticipationWrite) {
		return true
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope participation:write required")
	return false
}

// pathID parses a positive id from a chi URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := domain.ParseID(name, chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return 0, false
	}
	return id, true
}

// writeDomainError maps service errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrAlreadyRegistered):
		writeError(w, http.StatusBadRequest, "already_registered", "El usuario ya está registrado en esta actividad")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "invalid_credentials", "Credenciales incorrectas")
	case errors.Is(err, accounts.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, domain.ErrRenderFailure):
		h.logger.Error("certificate render failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render_failed", "Error al generar el certificado")
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

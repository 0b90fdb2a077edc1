package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"example.com/volunteer/internal/accounts"
)

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse carries an issued token and the account it belongs to.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      AccountView `json:"user"`
}

// AccountView is the public projection of a user account.
type AccountView struct {
	ID              int64  `json:"id"`
	GivenName       string `json:"given_name"`
	PaternalSurname string `json:"paternal_surname"`
	MaternalSurname string `json:"maternal_surname"`
	IdentityNumber  string `json:"identity_number"`
	Email           string `json:"email"`
	Role            string `json:"role"`
}

func toSessionResponse(session accounts.Session) SessionResponse {
	u := session.User
	return SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User: AccountView{
			ID:              u.ID,
			GivenName:       u.GivenName,
			PaternalSurname: u.PaternalSurname,
			MaternalSurname: u.MaternalSurname,
			IdentityNumber:  u.IdentityNumber,
			Email:           u.Email,
			Role:            u.Role,
		},
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.logger.Info("login succeeded", zap.Int64("user_id", session.User.ID))
	writeJSON(w, http.StatusOK, toSessionResponse(*session))
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	userID, ok := claims.UserID()
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "token subject is not a user id")
		return
	}

	session, err := h.accounts.Renew(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(*session))
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"example.com/volunteer/internal/accounts"
	"example.com/volunteer/internal/auth"
	"example.com/volunteer/internal/domain"
	"example.com/volunteer/internal/persistence/memory"
)

var testNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(_ context.Context, cert domain.Certificate) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.3 " + cert.VerificationCode), nil
}

type testEnv struct {
	store  *memory.Store
	router chi.Router
}

func newTestEnv(t *testing.T, renderer domain.CertificateRenderer) *testEnv {
	t.Helper()
	store := memory.NewStore()

	hash, err := bcrypt.GenerateFromPassword([]byte("secreto"), bcrypt.MinCost)
	require.NoError(t, err)
	store.PutUser(accounts.User{ID: 1, GivenName: "Ana", PaternalSurname: "Torres", MaternalSurname: "Vega", IdentityNumber: "70112233", Email: "ana@example.com", PasswordHash: string(hash), Role: accounts.RoleVolunteer, Active: true})
	store.PutUser(accounts.User{ID: 2, GivenName: "Luis", PaternalSurname: "Paredes", IdentityNumber: "70998877", Email: "luis@example.com", Role: accounts.RoleVolunteer, Active: true})
	store.PutGroup(memory.Group{ID: 1, Name: "Ambiental", Active: true})
	store.PutGroup(memory.Group{ID: 2, Name: "Social", Active: true})
	store.PutActivity(memory.Activity{ID: 10, GroupID: 1, Name: "Reciclaje", Active: true})
	store.PutActivity(memory.Activity{ID: 20, GroupID: 2, Name: "Tutorías", Active: true})

	if renderer == nil {
		renderer = stubRenderer{}
	}
	service := domain.NewService(store, renderer,
		domain.WithClock(func() time.Time { return testNow }),
		domain.WithRandom(func(int) int { return 77 }),
	)
	signer := auth.NewSigner(auth.Config{Secret: "test", Issuer: "volunteer.test"}, time.Hour)
	handler := NewHandler(service, accounts.NewService(store, signer, nil), nil)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return &testEnv{store: store, router: router}
}

func (e *testEnv) complete(userID, activityID int64, hours string, at time.Time) {
	e.store.PutParticipation(domain.Participation{
		ActivityID:     activityID,
		UserID:         userID,
		HoursRealized:  decimal.RequireFromString(hours),
		Completed:      true,
		CompletionDate: at,
		RegisteredAt:   at,
	})
}

func (e *testEnv) do(method, path string, body any, claims *auth.Claims) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func volunteer(id string) *auth.Claims {
	return &auth.Claims{Subject: id, Scopes: map[string]struct{}{}}
}

func admin() *auth.Claims {
	return &auth.Claims{Subject: "99", Scopes: map[string]struct{}{
		auth.ScopeParticipationWrite: {},
		auth.ScopeReportsRead:        {},
	}}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestParticipationReportSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	env.complete(1, 10, "7.5", testNow.Add(-time.Hour))
	env.complete(1, 20, "10", testNow.Add(-2*time.Hour))

	rec := env.do(http.MethodGet, "/v1/users/1/participation-report", nil, volunteer("1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[map[string]any](t, rec)
	require.Equal(t, 17.5, resp["total_hours"])
	benefit := resp["benefit"].(map[string]any)
	require.Equal(t, "none", benefit["tier"])
	require.Equal(t, "Faltan 7.5 horas para el primer beneficio", benefit["label"])

	groups := resp["groups"].([]any)
	require.Len(t, groups, 2)
	first := groups[0].(map[string]any)
	require.Equal(t, "Ambiental", first["group_name"])
	require.Equal(t, 7.5, first["total_hours"])
}

func TestParticipationReportEmptyUser(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/v1/users/2/participation-report", nil, volunteer("2"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"groups":[]`)
	require.Contains(t, rec.Body.String(), `"total_hours":0`)
}

func TestParticipationReportAuthorization(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/v1/users/1/participation-report", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/v1/users/1/participation-report", nil, volunteer("2"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/v1/users/1/participation-report", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestParticipationReportInvalidID(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/v1/users/abc/participation-report", nil, admin())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "validation_failed", decodeBody[map[string]string](t, rec)["type"])
}

func TestCertificateEligible(t *testing.T) {
	env := newTestEnv(t, nil)
	env.complete(1, 10, "80.5", testNow)
	env.complete(1, 20, "20.25", testNow)

	rec := env.do(http.MethodGet, "/v1/certificates/global/1", nil, volunteer("1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="certificado_global_70112233.pdf"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "%PDF-1.3 GLOB-2026-70112233-77", rec.Body.String())
}

func TestCertificateRejectedAtExactlyHundred(t *testing.T) {
	env := newTestEnv(t, nil)
	env.complete(1, 10, "60", testNow)
	env.complete(1, 20, "40", testNow)

	rec := env.do(http.MethodGet, "/v1/certificates/global/1", nil, volunteer("1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[map[string]any](t, rec)
	require.Equal(t, "threshold_not_met", resp["type"])
	require.Equal(t, "El usuario solo tiene 100 horas. Se requieren más de 100 horas.", resp["detail"])
	require.Equal(t, float64(100), resp["current_total"])
	require.Equal(t, float64(100), resp["required_total"])
}

func TestCertificateNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/v1/certificates/global/2", nil, volunteer("2"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", decodeBody[map[string]string](t, rec)["type"])
}

func TestCertificateRenderFailure(t *testing.T) {
	env := newTestEnv(t, stubRenderer{err: errors.New("disk full")})
	env.complete(1, 10, "150", testNow)

	rec := env.do(http.MethodGet, "/v1/certificates/global/1", nil, volunteer("1"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "render_failed", decodeBody[map[string]string](t, rec)["type"])
}

func TestCertificateEligibilityEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.complete(1, 10, "100.5", testNow)

	rec := env.do(http.MethodGet, "/v1/certificates/global/1/eligibility", nil, volunteer("1"))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[map[string]any](t, rec)
	require.Equal(t, "eligible", resp["status"])
	require.Equal(t, "Ana Torres Vega", resp["holder_name"])
	require.Equal(t, float64(100), resp["certified_hours"])
	require.NotContains(t, resp, "type")
}

func TestRegisterParticipationFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/participations", map[string]any{
		"activity_id": 10, "user_id": 2, "hours_realized": "3.25", "completed": true,
	}, admin())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[map[string]any](t, rec)
	require.Equal(t, 3.25, created["hours_realized"])
	require.NotNil(t, created["completion_date"])

	rec = env.do(http.MethodPost, "/v1/participations", map[string]any{"activity_id": 10, "user_id": 2}, admin())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "El usuario ya está registrado en esta actividad", decodeBody[map[string]string](t, rec)["detail"])

	rec = env.do(http.MethodPut, "/v1/participations/10/2", map[string]any{"hours_realized": 5}, admin())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, float64(5), decodeBody[map[string]any](t, rec)["hours_realized"])

	rec = env.do(http.MethodGet, "/v1/users/2/participations", nil, volunteer("2"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"activity_name":"Reciclaje"`)

	rec = env.do(http.MethodDelete, "/v1/participations/10/2", nil, admin())
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodDelete, "/v1/participations/10/2", nil, admin())
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterParticipationValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/participations", map[string]any{"user_id": 2, "hours_realized": "-1"}, admin())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeBody[map[string]string](t, rec)["detail"]
	require.Contains(t, detail, "activity_id")
	require.Contains(t, detail, "hours_realized must be a non-negative number of hours")

	rec = env.do(http.MethodPost, "/v1/participations", "{not json", admin())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeBody[map[string]string](t, rec)["type"])

	rec = env.do(http.MethodPost, "/v1/participations", map[string]any{"activity_id": 10, "user_id": 2}, volunteer("2"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateParticipationEmptyPatch(t *testing.T) {
	env := newTestEnv(t, nil)
	env.complete(1, 10, "1", testNow)

	rec := env.do(http.MethodPut, "/v1/participations/10/1", map[string]any{}, admin())
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/v1/participations/20/1", map[string]any{"completed": true}, admin())
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListParticipantsPagination(t *testing.T) {
	env := newTestEnv(t, nil)
	env.complete(1, 10, "1", testNow)
	env.complete(2, 10, "1", testNow.Add(time.Minute))

	rec := env.do(http.MethodGet, "/v1/activities/10/participants?limit=1", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[ListParticipantsResponse](t, rec)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Ana", page.Items[0].GivenName)
	require.NotEmpty(t, page.NextCursor)

	rec = env.do(http.MethodGet, "/v1/activities/10/participants?limit=1&cursor="+page.NextCursor, nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	page = decodeBody[ListParticipantsResponse](t, rec)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Luis", page.Items[0].GivenName)

	rec = env.do(http.MethodGet, "/v1/activities/10/participants?cursor=not-base64!", nil, admin())
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/v1/activities/10/participants", nil, volunteer("1"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginAndRenew(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "ana@example.com", "password": "secreto"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decodeBody[SessionResponse](t, rec)
	require.NotEmpty(t, session.Token)
	require.Equal(t, int64(1), session.User.ID)

	claims, err := auth.Parse(session.Token, auth.Config{Secret: "test", Issuer: "volunteer.test"})
	require.NoError(t, err)
	require.Equal(t, "1", claims.Subject)

	rec = env.do(http.MethodGet, "/v1/auth/renew", nil, claims)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "ana@example.com", "password": "otro"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Credenciales incorrectas", decodeBody[map[string]string](t, rec)["detail"])

	rec = env.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "not-an-email"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "email"))

	rec = env.do(http.MethodGet, "/v1/auth/renew", nil, volunteer("404"))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

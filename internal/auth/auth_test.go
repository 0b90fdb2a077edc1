package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "volunteer.test"}

func TestSignerIssuesTokensParseAccepts(t *testing.T) {
	signer := NewSigner(testConfig, time.Hour)

	token, expiresAt, err := signer.Issue("42", "ana@example.com", []string{ScopeReportsRead})
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "ana@example.com", claims.Email)
	require.True(t, claims.HasScope(ScopeReportsRead))
	require.False(t, claims.HasScope(ScopeParticipationWrite))

	id, ok := claims.UserID()
	require.True(t, ok)
	require.Equal(t, int64(42), id)
}

func TestParseRejectsWrongIssuerAndSecret(t *testing.T) {
	token, _, err := NewSigner(Config{Secret: "other", Issuer: testConfig.Issuer}, time.Hour).Issue("1", "", nil)
	require.NoError(t, err)
	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	token, _, err = NewSigner(Config{Secret: testConfig.Secret, Issuer: "someone-else"}, time.Hour).Issue("1", "", nil)
	require.NoError(t, err)
	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)

	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseEmptyToken(t *testing.T) {
	_, err := Parse("   ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestClaimsUserIDRejectsNonNumericSubject(t *testing.T) {
	claims := &Claims{Subject: "abc"}
	_, ok := claims.UserID()
	require.False(t, ok)

	var nilClaims *Claims
	_, ok = nilClaims.UserID()
	require.False(t, ok)
}

func TestMiddlewareAcceptsBearerAndLegacyHeader(t *testing.T) {
	token, _, err := NewSigner(testConfig, time.Hour).Issue("7", "vol@example.com", nil)
	require.NoError(t, err)

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(testConfig, SkipPaths("/healthz")).Wrap(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/anything", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "7", seen.Subject)

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/v1/anything", nil)
	req.Header.Set(LegacyTokenHeader, token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
}

func TestMiddlewareRejectsMissingTokenAndHonoursSkipper(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := NewMiddleware(testConfig, SkipPaths("/healthz")).Wrap(next)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/anything", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/anything", nil)
	req.Header.Set("Authorization", "Basic abc")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"example.com/volunteer/internal/accounts"
	"example.com/volunteer/internal/auth"
	"example.com/volunteer/internal/persistence/memory"
)

var authConfig = auth.Config{Secret: "accounts-secret", Issuer: "volunteer.test"}

func newService(t *testing.T) (*accounts.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return accounts.NewService(store, auth.NewSigner(authConfig, time.Hour), zaptest.NewLogger(t)), store
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesScopedToken(t *testing.T) {
	svc, store := newService(t)
	store.PutUser(accounts.User{ID: 5, Email: "coord@example.com", PasswordHash: hashed(t, "clave"), Role: accounts.RoleAdmin, Active: true})

	session, err := svc.Login(context.Background(), " coord@example.com ", "clave")
	require.NoError(t, err)
	require.Empty(t, session.User.PasswordHash)

	claims, err := auth.Parse(session.Token, authConfig)
	require.NoError(t, err)
	require.Equal(t, "5", claims.Subject)
	require.True(t, claims.HasScope(auth.ScopeParticipationWrite))
	require.True(t, claims.HasScope(auth.ScopeReportsRead))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, store := newService(t)
	store.PutUser(accounts.User{ID: 1, Email: "a@example.com", PasswordHash: hashed(t, "right"), Active: true})
	store.PutUser(accounts.User{ID: 2, Email: "off@example.com", PasswordHash: hashed(t, "right"), Active: false})

	cases := []struct{ email, password string }{
		{"a@example.com", "wrong"},
		{"missing@example.com", "right"},
		{"off@example.com", "right"},
		{"", "right"},
		{"a@example.com", ""},
	}
	for _, tc := range cases {
		_, err := svc.Login(context.Background(), tc.email, tc.password)
		require.ErrorIs(t, err, accounts.ErrInvalidCredentials, tc.email)
	}
}

func TestRenew(t *testing.T) {
	svc, store := newService(t)
	store.PutUser(accounts.User{ID: 3, Email: "v@example.com", Role: accounts.RoleVolunteer, Active: true})

	session, err := svc.Renew(context.Background(), 3)
	require.NoError(t, err)
	claims, err := auth.Parse(session.Token, authConfig)
	require.NoError(t, err)
	require.Empty(t, claims.Scopes)

	_, err = svc.Renew(context.Background(), 4)
	require.ErrorIs(t, err, accounts.ErrUserNotFound)
}

func TestEnsureInitialAdminRunsOnce(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	created, err := svc.EnsureInitialAdmin(ctx, accounts.DefaultInitialAdmin("admin123"))
	require.NoError(t, err)
	require.True(t, created)

	created, err = svc.EnsureInitialAdmin(ctx, accounts.DefaultInitialAdmin("admin123"))
	require.NoError(t, err)
	require.False(t, created)

	count, err := store.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	session, err := svc.Login(ctx, "admin@voluntariado.com", "admin123")
	require.NoError(t, err)
	require.Equal(t, accounts.RoleAdmin, session.User.Role)
	require.Equal(t, "99999999", session.User.IdentityNumber)
}

func TestEnsureInitialAdminNeedsPassword(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.EnsureInitialAdmin(context.Background(), accounts.DefaultInitialAdmin(""))
	require.Error(t, err)
}

func TestScopesFor(t *testing.T) {
	require.Len(t, accounts.ScopesFor(accounts.RoleAdmin), 2)
	require.Empty(t, accounts.ScopesFor(accounts.RoleVolunteer))
}

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/volunteer/internal/accounts"
	"example.com/volunteer/internal/persistence/postgres"
	"example.com/volunteer/internal/persistence/postgres/pgtest"
)

func TestRepositoryUsers(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t, ctx)
	repo := postgres.NewRepository(pool)

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	user := accounts.User{
		GivenName:       "Carmen",
		PaternalSurname: "Flores",
		MaternalSurname: "Quispe",
		IdentityNumber:  "40506070",
		Email:           "carmen@example.com",
		PasswordHash:    "hash",
		Role:            accounts.RoleAdmin,
		Active:          true,
		CreatedAt:       time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	id, err := repo.CreateUser(ctx, user)
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = repo.CreateUser(ctx, user)
	require.ErrorIs(t, err, accounts.ErrDuplicateUser)

	found, err := repo.FindUserByEmail(ctx, "CARMEN@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, accounts.RoleAdmin, found.Role)

	byID, err := repo.FindUserByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "40506070", byID.IdentityNumber)

	missing, err := repo.FindUserByEmail(ctx, "nadie@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

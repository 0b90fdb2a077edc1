//go:build integration

// Package pgtest starts a throwaway PostgreSQL container with the service
// schema applied, for integration tests.
package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/volunteer/internal/persistence/postgres"
)

// Start runs postgres, applies the embedded migrations and returns a pool that
// is closed, along with the container, when the test ends.
func Start(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("volunteer"),
		postgrescontainer.WithUsername("volunteer"),
		postgrescontainer.WithPassword("volunteer"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = postgres.Migrate(ctx, pool)
	require.NoError(t, err)
	return pool
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

// Fixture ids created by Seed.
const (
	UserID           int64 = 1
	ActiveGroup      int64 = 1
	InactiveGroup    int64 = 2
	ActivityA        int64 = 1
	ActivityB        int64 = 2
	InactiveParent   int64 = 3
	InactiveActivity int64 = 4
)

// Seed inserts one user, an active and an inactive group, and four activities.
// InactiveActivity is switched off while its group stays active.
func Seed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	stmts := []string{
		`INSERT INTO users (user_id, given_name, paternal_surname, maternal_surname, identity_number, email, password_hash)
            VALUES (1, 'Rosa', 'Mamani', 'Condori', '45678912', 'rosa@example.com', 'x')`,
		`INSERT INTO volunteer_groups (group_id, name, active) VALUES (1, 'Ambiental', TRUE), (2, 'Cerrado', FALSE)`,
		`INSERT INTO activities (activity_id, group_id, name, duration_hours, active) VALUES
            (1, 1, 'Reforestación', 4, TRUE),
            (2, 1, 'Limpieza', 3.5, TRUE),
            (3, 2, 'Colecta', 2, TRUE),
            (4, 1, 'Taller suspendido', 2, FALSE)`,
	}
	for _, stmt := range stmts {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
}

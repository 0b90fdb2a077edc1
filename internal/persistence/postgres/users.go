package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"example.com/volunteer/internal/accounts"
)

const userColumns = `user_id, given_name, paternal_surname, maternal_surname, identity_number, email, phone, password_hash, role, active, created_at`

// FindUserByEmail implements accounts.UserStore.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*accounts.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "querying user by email")
	}
	return user, nil
}

// FindUserByID implements accounts.UserStore.
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*accounts.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "querying user by id")
	}
	return user, nil
}

// CountUsers implements accounts.UserStore.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return count, nil
}

// CreateUser implements accounts.UserStore.
func (r *Repository) CreateUser(ctx context.Context, user accounts.User) (int64, error) {
	const stmt = `INSERT INTO users (given_name, paternal_surname, maternal_surname, identity_number, email, phone, password_hash, role, active, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING user_id`

	var id int64
	err := r.pool.QueryRow(ctx, stmt,
		user.GivenName,
		user.PaternalSurname,
		user.MaternalSurname,
		user.IdentityNumber,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.Active,
		user.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, accounts.ErrDuplicateUser
		}
		return 0, errors.Wrap(err, "inserting user")
	}
	return id, nil
}

func scanUser(row pgx.Row) (*accounts.User, error) {
	var user accounts.User
	if err := row.Scan(&user.ID, &user.GivenName, &user.PaternalSurname, &user.MaternalSurname, &user.IdentityNumber,
		&user.Email, &user.Phone, &user.PasswordHash, &user.Role, &user.Active, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

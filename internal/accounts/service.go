// Package accounts handles volunteer login, token renewal and the initial
// administrator bootstrap.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"example.com/volunteer/internal/auth"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when renewing a token for a user that no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned by stores when email or identity number is taken.
	ErrDuplicateUser = errors.New("user already exists")
)

// Role names stored on user rows.
const (
	RoleAdmin     = "admin"
	RoleVolunteer = "volunteer"
)

// User is a volunteer or administrator account.
type User struct {
	ID              int64
	GivenName       string
	PaternalSurname string
	MaternalSurname string
	IdentityNumber  string
	Email           string
	Phone           string
	PasswordHash    string
	Role            string
	Active          bool
	CreatedAt       time.Time
}

// UserStore captures the persistence operations needed by accounts.
// Lookups return (nil, nil) when nothing matches.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id int64) (*User, error)
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, user User) (int64, error)
}

// Session is a freshly issued token and the user it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Service authenticates users against bcrypt hashes and issues JWTs.
type Service struct {
	users  UserStore
	signer *auth.Signer
	logger *zap.Logger
}

// NewService builds a Service.
func NewService(users UserStore, signer *auth.Signer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, signer: signer, logger: logger}
}

// Login checks the password and returns a new session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil || !user.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login rejected", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	return s.issue(*user)
}

// Renew re-issues a token for an existing user.
func (s *Service) Renew(ctx context.Context, userID int64) (*Session, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if user == nil || !user.Active {
		return nil, ErrUserNotFound
	}
	return s.issue(*user)
}

func (s *Service) issue(user User) (*Session, error) {
	token, expiresAt, err := s.signer.Issue(strconv.FormatInt(user.ID, 10), user.Email, ScopesFor(user.Role))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	user.PasswordHash = ""
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ScopesFor maps a role to the scopes embedded in its tokens.
func ScopesFor(role string) []string {
	if role == RoleAdmin {
		return []string{auth.ScopeParticipationWrite, auth.ScopeReportsRead}
	}
	return nil
}

// InitialAdmin describes the administrator seeded into an empty database.
type InitialAdmin struct {
	GivenName       string
	PaternalSurname string
	MaternalSurname string
	IdentityNumber  string
	Email           string
	Password        string
}

// DefaultInitialAdmin returns the stock administrator account.
func DefaultInitialAdmin(password string) InitialAdmin {
	return InitialAdmin{
		GivenName:       "Administrador",
		PaternalSurname: "Sistema",
		MaternalSurname: "Voluntariado",
		IdentityNumber:  "99999999",
		Email:           "admin@voluntariado.com",
		Password:        password,
	}
}

// EnsureInitialAdmin creates the administrator when no user exists yet.
// It reports whether an account was created.
func (s *Service) EnsureInitialAdmin(ctx context.Context, admin InitialAdmin) (bool, error) {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if admin.Password == "" {
		return false, errors.New("initial admin password is empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	id, err := s.users.CreateUser(ctx, User{
		GivenName:       admin.GivenName,
		PaternalSurname: admin.PaternalSurname,
		MaternalSurname: admin.MaternalSurname,
		IdentityNumber:  admin.IdentityNumber,
		Email:           admin.Email,
		PasswordHash:    string(hash),
		Role:            RoleAdmin,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("initial administrator created", zap.Int64("user_id", id), zap.String("email", admin.Email))
	return true, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken is returned when a sign-up collides with an existing account.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials covers both unknown emails and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserRepository interface {
	CreateUser(ctx context.Context, email, password, displayName string, confirmTokenHash string) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ConfirmUser(ctx context.Context, tokenHash string) (models.User, error)
	RenewConfirmation(ctx context.Context, email, password, displayName, confirmTokenHash string) (models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser stores a new account. An empty confirmTokenHash creates the
// account already confirmed.
func (u *userRepository) CreateUser(ctx context.Context, email, password, displayName, confirmTokenHash string) (models.User, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	var (
		tokenHash   interface{}
		confirmedAt interface{}
	)
	if confirmTokenHash != "" {
		tokenHash = confirmTokenHash
	} else {
		confirmedAt = time.Now().UTC()
	}

	user := models.User{Email: email, DisplayName: displayName, PasswordHash: string(hash)}

	const query = `
		INSERT INTO creator.users (email, display_name, password_hash, confirm_token_hash, confirmed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, confirmed_at, created_at`

	var confirmed sql.NullTime
	err = u.db.QueryRowContext(ctx, query, user.Email, user.DisplayName, user.PasswordHash, tokenHash, confirmedAt).
		Scan(&user.ID, &confirmed, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, apperr.Store("users.create", err)
	}
	if confirmed.Valid {
		t := confirmed.Time
		user.ConfirmedAt = &t
	}
	return user, nil
}

func (u *userRepository) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	const query = `
		SELECT id, email, display_name, password_hash, confirmed_at, created_at
		FROM creator.users
		WHERE email = $1`

	user, err := scanUser(u.db.QueryRowContext(ctx, query, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, apperr.Store("users.authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (u *userRepository) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT id, email, display_name, password_hash, confirmed_at, created_at
		FROM creator.users
		WHERE id = $1`

	user, err := scanUser(u.db.QueryRowContext(ctx, query, userID))
	if isMissing(err) {
		return models.User{}, apperr.ErrNotFound
	}
	return user, apperr.Store("users.get", err)
}

func (u *userRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT id, email, display_name, password_hash, confirmed_at, created_at
		FROM creator.users
		WHERE email = $1`

	user, err := scanUser(u.db.QueryRowContext(ctx, query, normalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrNotFound
	}
	return user, apperr.Store("users.get_by_email", err)
}

func (u *userRepository) ConfirmUser(ctx context.Context, tokenHash string) (models.User, error) {
	const query = `
		UPDATE creator.users
		SET confirmed_at = NOW(), confirm_token_hash = NULL, updated_at = NOW()
		WHERE confirm_token_hash = $1 AND confirmed_at IS NULL
		RETURNING id, email, display_name, password_hash, confirmed_at, created_at`

	user, err := scanUser(u.db.QueryRowContext(ctx, query, tokenHash))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrNotFound
	}
	return user, apperr.Store("users.confirm", err)
}

// RenewConfirmation resets the password and confirmation token of an account
// that was never confirmed. A confirmed account gives ErrEmailTaken.
func (u *userRepository) RenewConfirmation(ctx context.Context, email, password, displayName, confirmTokenHash string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	const query = `
		UPDATE creator.users
		SET password_hash = $2, display_name = $3, confirm_token_hash = $4, updated_at = NOW()
		WHERE email = $1 AND confirmed_at IS NULL
		RETURNING id, email, display_name, password_hash, confirmed_at, created_at`

	user, err := scanUser(u.db.QueryRowContext(ctx, query,
		normalizeEmail(email), string(hash), strings.TrimSpace(displayName), confirmTokenHash))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrEmailTaken
	}
	return user, apperr.Store("users.renew_confirmation", err)
}

func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (models.User, error) {
	var (
		user        models.User
		displayName sql.NullString
		confirmed   sql.NullTime
	)
	if err := scanner.Scan(&user.ID, &user.Email, &displayName, &user.PasswordHash, &confirmed, &user.CreatedAt); err != nil {
		return models.User{}, err
	}
	user.DisplayName = displayName.String
	if confirmed.Valid {
		t := confirmed.Time
		user.ConfirmedAt = &t
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

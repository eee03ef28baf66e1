package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, session models.Session) (models.Session, error)
	Get(ctx context.Context, sessionID string) (models.Session, error)
	Revoke(ctx context.Context, sessionID string) error
}

type sessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s models.Session) (models.Session, error) {
	const query = `
		INSERT INTO creator.sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, created_at, expires_at, revoked_at`

	created, err := scanSession(r.db.QueryRowContext(ctx, query, s.ID, s.UserID, s.ExpiresAt))
	return created, apperr.Store("sessions.create", err)
}

func (r *sessionRepository) Get(ctx context.Context, sessionID string) (models.Session, error) {
	const query = `
		SELECT id, user_id, created_at, expires_at, revoked_at
		FROM creator.sessions
		WHERE id = $1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID))
	if isMissing(err) {
		return models.Session{}, apperr.ErrNotFound
	}
	return s, apperr.Store("sessions.get", err)
}

func (r *sessionRepository) Revoke(ctx context.Context, sessionID string) error {
	const query = `
		UPDATE creator.sessions
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, sessionID, time.Now().UTC()); err != nil {
		return apperr.Store("sessions.revoke", err)
	}
	return nil
}

func scanSession(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Session, error) {
	var (
		s       models.Session
		revoked sql.NullTime
	)
	if err := scanner.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &revoked); err != nil {
		return models.Session{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		s.RevokedAt = &t
	}
	return s, nil
}

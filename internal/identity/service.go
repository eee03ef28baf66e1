package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/stanstork/sponsordesk-api/internal/repository"
)

const minPasswordLength = 6

var errInvalidToken = errors.New("invalid session token")

// Session is an issued access token together with the identity it carries.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Identity  authz.Identity `json:"user"`
}

// SignUpResult holds either an active session or a pending confirmation.
type SignUpResult struct {
	Session              *Session `json:"session,omitempty"`
	ConfirmationRequired bool     `json:"confirmation_required"`
}

type Options struct {
	JWTSecret                string
	TokenTTL                 time.Duration
	RequireEmailConfirmation bool
	ConfirmURLTemplate       string
}

type Service struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	mailer   ConfirmationMailer
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewService builds the identity service. mailer may be nil when email
// confirmation is disabled.
func NewService(users repository.UserRepository, sessions repository.SessionRepository, mailer ConfirmationMailer, opts Options, logger zerolog.Logger) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 72 * time.Hour
	}
	return &Service{
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (SignUpResult, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return SignUpResult{}, apperr.SignupFailed("Please enter a valid email address")
	}
	if len(password) < minPasswordLength {
		return SignUpResult{}, apperr.SignupFailed(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	var token, tokenHash string
	if s.opts.RequireEmailConfirmation {
		if s.mailer == nil {
			return SignUpResult{}, errors.New("email confirmation is enabled but no mailer is configured")
		}
		token = uuid.NewString()
		tokenHash = hashToken(token)
	}

	user, err := s.users.CreateUser(ctx, email, password, displayName, tokenHash)
	if errors.Is(err, repository.ErrEmailTaken) && s.opts.RequireEmailConfirmation {
		// An unconfirmed account is re-registered with a fresh link.
		user, err = s.users.RenewConfirmation(ctx, email, password, displayName, tokenHash)
	}
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return SignUpResult{}, apperr.SignupFailed("An account with this email already exists")
		}
		return SignUpResult{}, errors.Wrap(err, "create user")
	}

	if s.opts.RequireEmailConfirmation {
		link := fmt.Sprintf(s.opts.ConfirmURLTemplate, token)
		if err := s.mailer.SendConfirmation(user.Email, user.DisplayName, link); err != nil {
			s.logger.Error().Err(err).Str("email", user.Email).Msg("failed to send confirmation email")
			return SignUpResult{}, apperr.SignupFailed("We could not send the confirmation email, please try again later")
		}
		s.logger.Info().Str("user_id", user.ID).Msg("confirmation email sent")
		return SignUpResult{ConfirmationRequired: true}, nil
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return SignUpResult{}, err
	}
	return SignUpResult{Session: &session}, nil
}

// Confirm activates an account from its emailed token and logs the user in.
func (s *Service) Confirm(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, apperr.SignupFailed("Confirmation token is required")
	}
	user, err := s.users.ConfirmUser(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Session{}, apperr.SignupFailed("This confirmation link is invalid or was already used")
		}
		return Session{}, errors.Wrap(err, "confirm user")
	}
	return s.issueSession(ctx, user)
}

// Login never reveals whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.AuthenticateUser(ctx, email, password)
	if err != nil {
		if !errors.Is(err, repository.ErrInvalidCredentials) {
			s.logger.Error().Err(err).Msg("login lookup failed")
		}
		return Session{}, apperr.LoginFailed("")
	}
	if !user.IsConfirmed() {
		return Session{}, apperr.LoginFailed("Please confirm your email address before logging in")
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue session")
		return Session{}, apperr.LoginFailed("")
	}
	return session, nil
}

// Authenticate validates a token and the session behind it.
func (s *Service) Authenticate(ctx context.Context, token string) (authz.Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.opts.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return authz.Identity{}, errInvalidToken
	}

	session, err := s.sessions.Get(ctx, c.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return authz.Identity{}, errInvalidToken
		}
		return authz.Identity{}, errors.Wrap(err, "load session")
	}
	if session.UserID != c.Subject || !session.IsActive(s.now()) {
		return authz.Identity{}, errInvalidToken
	}

	return authz.Identity{UserID: c.Subject, Email: c.Email, SessionID: session.ID}, nil
}

// Logout revokes the session; its token stops authenticating immediately.
func (s *Service) Logout(ctx context.Context, id authz.Identity) error {
	if id.SessionID == "" {
		return nil
	}
	return errors.Wrap(s.sessions.Revoke(ctx, id.SessionID), "revoke session")
}

func (s *Service) CurrentUser(ctx context.Context, id authz.Identity) (models.User, error) {
	return s.users.GetUserByID(ctx, id.UserID)
}

func (s *Service) issueSession(ctx context.Context, user models.User) (Session, error) {
	now := s.now().UTC()
	record, err := s.sessions.Create(ctx, models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.opts.TokenTTL),
	})
	if err != nil {
		return Session{}, errors.Wrap(err, "create session")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        record.ID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
	})
	signed, err := token.SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return Session{}, errors.Wrap(err, "sign token")
	}

	return Session{
		Token:     signed,
		ExpiresAt: record.ExpiresAt,
		Identity:  authz.Identity{UserID: user.ID, Email: user.Email, SessionID: record.ID},
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

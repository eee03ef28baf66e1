package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/stanstork/sponsordesk-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu        sync.Mutex
	byEmail   map[string]models.User
	passwords map[string]string
	tokens    map[string]string
	failWith  error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byEmail:   map[string]models.User{},
		passwords: map[string]string{},
		tokens:    map[string]string{},
	}
}

func (f *fakeUsers) CreateUser(_ context.Context, email, password, displayName, tokenHash string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[email]; ok {
		return models.User{}, repository.ErrEmailTaken
	}
	user := models.User{ID: uuid.NewString(), Email: email, DisplayName: displayName, CreatedAt: time.Now()}
	if tokenHash == "" {
		now := time.Now()
		user.ConfirmedAt = &now
	} else {
		f.tokens[tokenHash] = email
	}
	f.byEmail[email] = user
	f.passwords[email] = password
	return user, nil
}

func (f *fakeUsers) AuthenticateUser(_ context.Context, email, password string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return models.User{}, f.failWith
	}
	user, ok := f.byEmail[email]
	if !ok || f.passwords[email] != password {
		return models.User{}, repository.ErrInvalidCredentials
	}
	return user, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return models.User{}, apperr.ErrNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, userID string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == userID {
			return u, nil
		}
	}
	return models.User{}, apperr.ErrNotFound
}

func (f *fakeUsers) ConfirmUser(_ context.Context, tokenHash string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.tokens[tokenHash]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	delete(f.tokens, tokenHash)
	user := f.byEmail[email]
	now := time.Now()
	user.ConfirmedAt = &now
	f.byEmail[email] = user
	return user, nil
}

func (f *fakeUsers) RenewConfirmation(_ context.Context, email, password, displayName, tokenHash string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok || user.IsConfirmed() {
		return models.User{}, repository.ErrEmailTaken
	}
	for hash, owner := range f.tokens {
		if owner == email {
			delete(f.tokens, hash)
		}
	}
	f.tokens[tokenHash] = email
	user.DisplayName = displayName
	f.byEmail[email] = user
	f.passwords[email] = password
	return user, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]models.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, s models.Session) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.CreatedAt = time.Now()
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return models.Session{}, apperr.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil
	}
	now := time.Now()
	s.RevokedAt = &now
	f.sessions[id] = s
	return nil
}

type recordingMailer struct {
	to   string
	link string
	err  error
}

func (m *recordingMailer) SendConfirmation(to, _ string, link string) error {
	m.to = to
	m.link = link
	return m.err
}

func newTestService(opts Options, mailer ConfirmationMailer) (*Service, *fakeUsers, *fakeSessions) {
	if opts.JWTSecret == "" {
		opts.JWTSecret = "test-secret"
	}
	users := newFakeUsers()
	sessions := newFakeSessions()
	return NewService(users, sessions, mailer, opts, zerolog.Nop()), users, sessions
}

func requireAuthError(t *testing.T, err error, typ apperr.AuthErrorType) *apperr.AuthError {
	t.Helper()
	var authErr *apperr.AuthError
	require.True(t, errors.As(err, &authErr), "expected AuthError, got %v", err)
	assert.Equal(t, typ, authErr.Type)
	return authErr
}

func TestSignUpIssuesSession(t *testing.T) {
	svc, _, _ := newTestService(Options{}, nil)
	ctx := context.Background()

	res, err := svc.SignUp(ctx, "dana@example.com", "hunter22", "Dana")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.False(t, res.ConfirmationRequired)

	id, err := svc.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", id.Email)
	assert.Equal(t, res.Session.Identity, id)
}

func TestSignUpFailures(t *testing.T) {
	svc, _, _ := newTestService(Options{}, nil)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "not-an-email", "hunter22", "")
	requireAuthError(t, err, apperr.AuthSignupFailed)

	_, err = svc.SignUp(ctx, "dana@example.com", "123", "")
	requireAuthError(t, err, apperr.AuthSignupFailed)

	_, err = svc.SignUp(ctx, "dana@example.com", "hunter22", "")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "dana@example.com", "hunter22", "")
	authErr := requireAuthError(t, err, apperr.AuthSignupFailed)
	assert.Contains(t, authErr.Message, "already exists")
}

func TestSignUpWithConfirmation(t *testing.T) {
	mailer := &recordingMailer{}
	svc, _, _ := newTestService(Options{
		RequireEmailConfirmation: true,
		ConfirmURLTemplate:       "https://app.test/confirm?token=%s",
	}, mailer)
	ctx := context.Background()

	res, err := svc.SignUp(ctx, "dana@example.com", "hunter22", "Dana")
	require.NoError(t, err)
	assert.True(t, res.ConfirmationRequired)
	assert.Nil(t, res.Session)
	assert.Equal(t, "dana@example.com", mailer.to)
	require.Contains(t, mailer.link, "https://app.test/confirm?token=")

	_, err = svc.Login(ctx, "dana@example.com", "hunter22")
	requireAuthError(t, err, apperr.AuthLoginFailed)

	token := mailer.link[len("https://app.test/confirm?token="):]
	session, err := svc.Confirm(ctx, token)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	_, err = svc.Confirm(ctx, token)
	requireAuthError(t, err, apperr.AuthSignupFailed)

	_, err = svc.Login(ctx, "dana@example.com", "hunter22")
	require.NoError(t, err)
}

func TestSignUpRetryAfterMailFailure(t *testing.T) {
	const prefix = "https://app.test/confirm?token="
	mailer := &recordingMailer{err: errors.New("smtp: connection refused")}
	svc, _, _ := newTestService(Options{
		RequireEmailConfirmation: true,
		ConfirmURLTemplate:       prefix + "%s",
	}, mailer)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "dana@example.com", "hunter22", "Dana")
	requireAuthError(t, err, apperr.AuthSignupFailed)
	lostLink := mailer.link

	mailer.err = nil
	res, err := svc.SignUp(ctx, "dana@example.com", "hunter33", "Dana")
	require.NoError(t, err)
	assert.True(t, res.ConfirmationRequired)
	require.NotEqual(t, lostLink, mailer.link)

	_, err = svc.Confirm(ctx, strings.TrimPrefix(lostLink, prefix))
	requireAuthError(t, err, apperr.AuthSignupFailed)

	_, err = svc.Confirm(ctx, strings.TrimPrefix(mailer.link, prefix))
	require.NoError(t, err)

	_, err = svc.Login(ctx, "dana@example.com", "hunter33")
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, "dana@example.com", "hunter44", "Dana")
	authErr := requireAuthError(t, err, apperr.AuthSignupFailed)
	assert.Contains(t, authErr.Message, "already exists")
}

func TestLoginDoesNotRevealWhichFieldWasWrong(t *testing.T) {
	svc, _, _ := newTestService(Options{}, nil)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "dana@example.com", "hunter22", "")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody@example.com", "hunter22")
	_, wrongErr := svc.Login(ctx, "dana@example.com", "wrong-password")

	unknown := requireAuthError(t, unknownErr, apperr.AuthLoginFailed)
	wrong := requireAuthError(t, wrongErr, apperr.AuthLoginFailed)
	assert.Equal(t, unknown.Message, wrong.Message)
}

func TestLoginStoreFailureIsAuthError(t *testing.T) {
	svc, users, _ := newTestService(Options{}, nil)
	users.failWith = &apperr.StoreError{Op: "users.authenticate", Err: errors.New("connection reset")}

	_, err := svc.Login(context.Background(), "dana@example.com", "hunter22")
	requireAuthError(t, err, apperr.AuthLoginFailed)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, _ := newTestService(Options{}, nil)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "dana@example.com", "hunter22", "")
	require.NoError(t, err)

	session, err := svc.Login(ctx, "dana@example.com", "hunter22")
	require.NoError(t, err)

	id, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, id))

	_, err = svc.Authenticate(ctx, session.Token)
	assert.Error(t, err)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	svc, _, _ := newTestService(Options{TokenTTL: time.Hour}, nil)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "dana@example.com", "hunter22", "")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.Error(t, err)

	other, _, _ := newTestService(Options{JWTSecret: "another-secret"}, nil)
	_, err = other.SignUp(ctx, "eve@example.com", "hunter22", "")
	require.NoError(t, err)
	foreign, err := other.Login(ctx, "eve@example.com", "hunter22")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, foreign.Token)
	assert.Error(t, err)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.Login(ctx, "dana@example.com", "hunter22")
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.Authenticate(ctx, expired.Token)
	assert.Error(t, err)
}

func TestConfirmationMessage(t *testing.T) {
	msg := confirmationMessage("noreply@sponsordesk.app", "dana@example.com", "Dana", "https://app.test/confirm?token=abc")
	assert.Contains(t, msg, "To: dana@example.com\r\n")
	assert.Contains(t, msg, "Hello Dana,")
	assert.Contains(t, msg, "https://app.test/confirm?token=abc")
}

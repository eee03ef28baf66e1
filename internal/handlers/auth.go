package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/derivation"
	"github.com/stanstork/sponsordesk-api/internal/identity"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

type AuthService interface {
	SignUp(ctx context.Context, email, password, displayName string) (identity.SignUpResult, error)
	Confirm(ctx context.Context, token string) (identity.Session, error)
	Login(ctx context.Context, email, password string) (identity.Session, error)
	Logout(ctx context.Context, id authz.Identity) error
	CurrentUser(ctx context.Context, id authz.Identity) (models.User, error)
}

// ScanTrigger queues a notification scan for one owner.
type ScanTrigger interface {
	Trigger(owner authz.Identity, reason derivation.Reason) bool
}

type AuthHandler struct {
	auth    AuthService
	scanner ScanTrigger
	logger  zerolog.Logger
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type confirmRequest struct {
	Token string `json:"token"`
}

func NewAuthHandler(auth AuthService, scanner ScanTrigger, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		scanner: scanner,
		logger:  logger.With().Str("handler", "auth").Logger(),
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.SignUp(r.Context(), req.Email, req.Password, strings.TrimSpace(req.DisplayName))
	if err != nil {
		writeError(w, h.logger, err, "user not found")
		return
	}
	if result.ConfirmationRequired {
		writeJSON(w, http.StatusAccepted, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.auth.Confirm(r.Context(), req.Token)
	if err != nil {
		writeError(w, h.logger, err, "confirmation not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Login issues a session and queues an initial notification scan for the user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err, "user not found")
		return
	}
	if h.scanner != nil {
		h.scanner.Trigger(session.Identity, derivation.ReasonLogin)
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.auth.Logout(r.Context(), id); err != nil {
		writeError(w, h.logger, err, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	user, err := h.auth.CurrentUser(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

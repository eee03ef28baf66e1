package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/authz"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors onto HTTP responses. notFound is the message
// used for apperr.ErrNotFound.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error, notFound string) {
	var (
		validation *apperr.ValidationError
		authErr    *apperr.AuthError
		storeErr   *apperr.StoreError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": validation.Error(),
			"field": validation.Field,
		})
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, authErr)
	case errors.Is(err, apperr.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFound)
	case errors.As(err, &storeErr):
		logger.Error().Err(err).Str("op", storeErr.Op).Msg("store operation failed")
		writeMessage(w, http.StatusInternalServerError, "storage failure")
	default:
		logger.Error().Err(err).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (authz.Identity, bool) {
	id, ok := authz.IdentityFromRequest(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Missing session")
		return authz.Identity{}, false
	}
	return id, true
}

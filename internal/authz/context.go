package authz

import (
	"context"
	"net/http"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller. It is created from a live session and
// passed explicitly to every service that touches owned rows.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"-"`
}

func (i Identity) Valid() bool {
	return i.UserID != "" && i.Email != ""
}

// WithIdentity stores the caller on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || !id.Valid() {
		return Identity{}, false
	}
	return id, true
}

func IdentityFromRequest(r *http.Request) (Identity, bool) {
	return IdentityFromContext(r.Context())
}

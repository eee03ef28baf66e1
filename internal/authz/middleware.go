package authz

import (
	"context"
	"net/http"
	"strings"
)

// Authenticator resolves a bearer token into the identity of a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// RequireIdentity rejects requests without a valid session token. Websocket
// upgrades may pass the token as a query parameter since browsers cannot set headers.
func RequireIdentity(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}
			id, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
			return token, true
		}
	}
	return "", false
}

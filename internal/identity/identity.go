// Package identity resolves bearer tokens to user identities and carries them in contexts.
package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/youssefsn2/PFE/internal/domain"
)

const (
	// Subprotocol is negotiated on WebSocket upgrades.
	Subprotocol = "envmon.v1"
	// TokenSubprotocolPrefix marks a client-offered subprotocol that carries a bearer token.
	TokenSubprotocolPrefix = "bearer."
)

type contextKey int

const (
	identityKey contextKey = iota
)

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the identity bound to the context.
func FromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok && !id.IsZero()
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}

// BearerFromHeader returns the token in an "Authorization: Bearer" header.
func BearerFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

// BearerFromSubprotocols returns the token offered as a "bearer.<token>" subprotocol.
func BearerFromSubprotocols(r *http.Request) string {
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, proto := range strings.Split(header, ",") {
			proto = strings.TrimSpace(proto)
			if strings.HasPrefix(proto, TokenSubprotocolPrefix) {
				return strings.TrimPrefix(proto, TokenSubprotocolPrefix)
			}
		}
	}
	return ""
}

// TokenFromRequest looks for a token in the Authorization header, then in the subprotocols.
// Query parameters are never consulted.
func TokenFromRequest(r *http.Request) string {
	if t := BearerFromHeader(r); t != "" {
		return t
	}
	return BearerFromSubprotocols(r)
}

// TokenResolver resolves a raw token.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

// Middleware rejects requests without a valid bearer token and binds the identity otherwise.
func Middleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(r.Context(), BearerFromHeader(r))
			if err != nil {
				if !IsUnauthenticated(err) {
					slog.Error("Identity resolution failed", "error", err)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthenticated"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

package realtime

import (
	"log/slog"
	"net/http"

	"github.com/youssefsn2/PFE/internal/domain"
	"github.com/youssefsn2/PFE/internal/identity"
)

// Authenticator binds an identity to a connection at handshake time.
type Authenticator struct {
	resolver identity.TokenResolver
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(resolver identity.TokenResolver) *Authenticator {
	return &Authenticator{resolver: resolver}
}

// Authenticate resolves the handshake token. It never fails the handshake:
// a missing or bad token yields ok == false and the connection stays anonymous.
func (a *Authenticator) Authenticate(r *http.Request) (domain.Identity, bool) {
	token := identity.TokenFromRequest(r)
	if token == "" {
		return domain.Identity{}, false
	}
	id, err := a.resolver.Resolve(r.Context(), token)
	if err != nil {
		if !identity.IsUnauthenticated(err) {
			slog.Error("Handshake identity lookup failed", "error", err)
		}
		return domain.Identity{}, false
	}
	return id, true
}

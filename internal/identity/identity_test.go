package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/youssefsn2/PFE/internal/domain"
)

const testSecret = "test-secret-0123456789"

type fakeUsers map[string]*domain.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	return f[id], nil
}

type failingUsers struct{}

func (failingUsers) GetUser(context.Context, string) (*domain.User, error) {
	return nil, errors.New("disk I/O error")
}

var alice = &domain.User{ID: "u-alice", Handle: "alice", DisplayName: "Alice"}

func TestResolve_ValidToken(t *testing.T) {
	req := require.New(t)
	token, err := NewIssuer(testSecret, time.Hour).Issue(alice)
	req.NoError(err)

	id, err := NewResolver(testSecret, fakeUsers{alice.ID: alice}).Resolve(context.Background(), token)
	req.NoError(err)
	req.Equal(domain.Identity{UserID: "u-alice", Handle: "alice"}, id)
}

func TestResolve_Failures(t *testing.T) {
	users := fakeUsers{alice.ID: alice}
	valid, err := NewIssuer(testSecret, time.Hour).Issue(alice)
	require.NoError(t, err)

	expiredIssuer := NewIssuer(testSecret, time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredIssuer.Issue(alice)
	require.NoError(t, err)

	otherKey, err := NewIssuer("another-secret-987654321", time.Hour).Issue(alice)
	require.NoError(t, err)

	ghost, err := NewIssuer(testSecret, time.Hour).Issue(&domain.User{ID: "u-ghost", Handle: "ghost"})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: alice.ID})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong key", otherKey},
		{"unknown user", ghost},
		{"alg none", unsigned},
		{"truncated", valid[:len(valid)-4]},
	}
	r := NewResolver(testSecret, users)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.token)
			require.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}

func TestResolve_LookupErrorIsNotUnauthenticated(t *testing.T) {
	token, err := NewIssuer(testSecret, time.Hour).Issue(alice)
	require.NoError(t, err)

	_, err = NewResolver(testSecret, failingUsers{}).Resolve(context.Background(), token)
	require.Error(t, err)
	require.False(t, IsUnauthenticated(err))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=ignored", nil)
	if got := TokenFromRequest(r); got != "" {
		t.Errorf("query token must be ignored, got %q", got)
	}

	r.Header.Set("Sec-WebSocket-Protocol", "envmon.v1, bearer.abc.def")
	if got := TokenFromRequest(r); got != "abc.def" {
		t.Errorf("subprotocol token = %q", got)
	}

	r.Header.Set("Authorization", "Bearer xyz")
	if got := TokenFromRequest(r); got != "xyz" {
		t.Errorf("header token should win, got %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	token, err := NewIssuer(testSecret, time.Hour).Issue(alice)
	require.NoError(t, err)

	var seen string
	h := Middleware(NewResolver(testSecret, fakeUsers{alice.ID: alice}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if seen != alice.ID {
		t.Errorf("user id in context = %q", seen)
	}
}

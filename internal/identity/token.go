package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/youssefsn2/PFE/internal/domain"
)

const tokenIssuer = "envmon"

// Claims is the payload carried by bearer tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
	jwt.RegisteredClaims
}

// UserLookup is the directory view the resolver needs.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// Issuer signs HS256 tokens for directory users.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token for user.
func (i *Issuer) Issue(user *domain.User) (string, error) {
	now := i.now()
	claims := &Claims{
		UserID: user.ID,
		Handle: user.Handle,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Resolver maps an opaque token to an Identity. Every failure is ErrUnauthenticated.
type Resolver struct {
	secret []byte
	users  UserLookup
}

// NewResolver creates a Resolver that checks tokens against the directory.
func NewResolver(secret string, users UserLookup) *Resolver {
	return &Resolver{secret: []byte(secret), users: users}
}

// Resolve validates the token signature and expiry, then confirms the user still exists.
func (r *Resolver) Resolve(ctx context.Context, tokenString string) (domain.Identity, error) {
	if tokenString == "" {
		return domain.Identity{}, fmt.Errorf("missing token: %w", domain.ErrUnauthenticated)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Identity{}, fmt.Errorf("parse token: %v: %w", err, domain.ErrUnauthenticated)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return domain.Identity{}, fmt.Errorf("invalid claims: %w", domain.ErrUnauthenticated)
	}

	user, err := r.users.GetUser(ctx, claims.UserID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return domain.Identity{}, fmt.Errorf("user %s no longer exists: %w", claims.UserID, domain.ErrUnauthenticated)
	}
	return user.Identity(), nil
}

// IsUnauthenticated reports whether err means the caller has no valid identity.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, domain.ErrUnauthenticated)
}

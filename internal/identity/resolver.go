package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthenticationRequired is returned when no verified principal can be
// resolved from a request. It is distinct from authorization failures:
// a verified principal lacking a capability gets a forbidden error instead.
var ErrAuthenticationRequired = errors.New("authentication required")

// Resolver verifies HMAC-signed identity tokens issued by the auth service
// and turns their claims into an Identity.
type Resolver struct {
	secret []byte
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

type tokenClaims struct {
	TenantID    int64  `json:"tenant_id"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// Resolve parses and verifies a bearer token. Any parse/verify failure or
// missing claim collapses to ErrAuthenticationRequired; callers never see
// raw jwt errors.
func (r *Resolver) Resolve(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrAuthenticationRequired
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrAuthenticationRequired
	}

	role := Role(claims.Role)
	if !role.Valid() || claims.TenantID == 0 || claims.Subject == "" {
		return Identity{}, ErrAuthenticationRequired
	}

	var userID int64
	if _, err := fmt.Sscan(claims.Subject, &userID); err != nil {
		return Identity{}, ErrAuthenticationRequired
	}

	name := claims.DisplayName
	if name == "" {
		name = claims.Subject
	}

	return Identity{
		UserID:      userID,
		TenantID:    claims.TenantID,
		Role:        role,
		DisplayName: name,
	}, nil
}

// Sign mints a token for the identity. Used by tests and local tooling; the
// production issuer lives in the auth service.
func (r *Resolver) Sign(id Identity) (string, error) {
	claims := tokenClaims{
		TenantID:    id.TenantID,
		Role:        string(id.Role),
		DisplayName: id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: fmt.Sprintf("%d", id.UserID),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

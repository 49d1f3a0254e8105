// Package auth provides bearer-token authentication and role guards.
//
// Authentication model:
// - Identity is issued by the campus SSO service as an HS256 JWT
//   carrying the user ID (sub) and role claims.
// - This package only verifies tokens and exposes the resulting
//   identity to handlers; it never issues production tokens.
// - Role guards are explicit capability checks, not string comparisons
//   scattered through handlers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors
var (
	ErrNoToken      = errors.New("bearer token required")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrInvalidRole  = errors.New("unknown role claim")
)

// Role is a campus account role.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleMember  Role = "MEMBER" // supervising members who schedule and verify exchanges
	RoleAdmin   Role = "ADMIN"
)

// ParseRole validates a role claim string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleMember, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// CanSupervise reports whether the role may schedule trades, confirm
// exchanges, and work dispute issues. Admins inherit member capabilities.
func (r Role) CanSupervise() bool {
	return r == RoleMember || r == RoleAdmin
}

// CanModerate reports whether the role may verify or remove listings.
func (r Role) CanModerate() bool {
	return r == RoleAdmin
}

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	UserID string
	Role   Role
}

// claims is the JWT payload shape shared between VerifyToken and SignToken.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier with the shared HS256 secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// VerifyToken parses and validates a bearer token, returning the identity.
func (v *Verifier) VerifyToken(tokenString string) (*Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if c.Subject == "" {
		return nil, ErrInvalidToken
	}
	role, err := ParseRole(c.Role)
	if err != nil {
		return nil, err
	}

	return &Identity{UserID: c.Subject, Role: role}, nil
}

// SignToken mints a token for the given identity. Used by tests and
// local tooling; production tokens come from the SSO service.
func (v *Verifier) SignToken(userID string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}

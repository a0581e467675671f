// Package auth provides the administrative authorization capability.
// Authorization is an explicit, injected dependency — never an implicit
// environment branch inside business logic — so tests substitute a
// static authorizer instead of toggling a dev-mode bypass.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated admin principal
type Identity struct {
	Subject string
	Role    string
}

// Authorizer validates an admin bearer token
type Authorizer interface {
	Authorize(token string) (*Identity, error)
}

// Claims represents JWT claims for admin tokens
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthorizer validates HMAC-signed admin tokens
type JWTAuthorizer struct {
	secret []byte
}

// NewJWTAuthorizer creates an authorizer with the shared secret
func NewJWTAuthorizer(secret string) *JWTAuthorizer {
	return &JWTAuthorizer{secret: []byte(secret)}
}

// Authorize validates the token and requires an admin role
func (a *JWTAuthorizer) Authorize(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Role != "admin" && claims.Role != "superadmin" {
		return nil, fmt.Errorf("admin role required")
	}

	return &Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// GenerateToken issues an admin token, used by operational tooling
func (a *JWTAuthorizer) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// StaticAuthorizer accepts exactly one token; for tests and local tooling
type StaticAuthorizer struct {
	Token    string
	Identity Identity
}

// Authorize compares against the configured token
func (a *StaticAuthorizer) Authorize(token string) (*Identity, error) {
	if token != a.Token || token == "" {
		return nil, fmt.Errorf("invalid token")
	}
	id := a.Identity
	return &id, nil
}

package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the session claims the backend embeds in its bearer token.
type TokenClaims struct {
	OrganizationID string `json:"organizationId"`
	Email          string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken decodes the claims of a bearer token without verifying its
// signature; the signing key stays on the backend.
func ParseToken(token string) (*TokenClaims, error) {
	if token == "" {
		return nil, errors.New("client: empty token")
	}
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("client: parse token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token has an expiry at or before now.
func (c *TokenClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}

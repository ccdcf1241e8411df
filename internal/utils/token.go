package utils // package utils provides helper functions for token creation

import (
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// NewRequesterToken builds and signs an HS256 JWT identifying a requester.
// The chat front-end mints one of these per user and presents it on every
// call into the allocator; ops tooling and tests use this helper for the
// same purpose. The JWT carries the requester identity as the subject (sub)
// plus an optional display name, expiration (exp) and issued at (iat).
func NewRequesterToken(secret, requesterID, displayName string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": requesterID,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	if displayName != "" {
		claims["name"] = displayName
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

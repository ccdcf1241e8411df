package middleware

// identity.go defines helper functions shared across middleware files.
// requesterFromClaims pulls the requester identity out of a parsed token's
// claims, preferring the subject and falling back to a display-name claim.

import (
	"github.com/golang-jwt/jwt/v5"
)

// requesterFromClaims extracts a requester identifier from JWT claims. It
// returns the "sub" claim when present, then "name", and the empty string
// when neither carries a usable value. Keying on the stable subject rather
// than the mutable display name avoids collisions when two requesters share
// a name; the fallback only exists for tokens minted before subjects were
// mandatory.
func requesterFromClaims(cl jwt.MapClaims) string {
	if v, ok := cl["sub"].(string); ok && v != "" {
		return v
	}
	if v, ok := cl["name"].(string); ok && v != "" {
		return v
	}
	return ""
}

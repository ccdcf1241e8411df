package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// RequesterAuth returns an Echo middleware that validates a Bearer token and
// injects the requester identity into the request context under
// "requester_id". The chat front-end (or whatever transport sits upstream)
// mints these tokens; this middleware only extracts a stable identity from
// them, it is not an end-user authentication system. The provided secret
// must match the one used when issuing tokens.
func RequesterAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Read the Authorization header. A valid header starts with
			// "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse the token using the HS256 signing method and our secret.
			// The callback supplies the signing key and rejects any other
			// algorithm.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// The subject claim carries the stable requester identity. The
			// display name claim is accepted as a fallback for older tokens,
			// mirroring how chat clients fall back to the visible name when
			// no handle is set.
			id := requesterFromClaims(claims)
			if id == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token carries no requester identity"})
			}
			c.Set("requester_id", id)
			return next(c)
		}
	}
}

package handler // handler defines http handlers

import (
	"errors" // errors provides the sentinel used in getRequesterID

	"github.com/labstack/echo/v4" // echo defines request context types
)

// getRequesterID extracts the requester identity stored in the context by
// the RequesterAuth middleware.
func getRequesterID(c echo.Context) (string, error) {
	if v, ok := c.Get("requester_id").(string); ok && v != "" {
		return v, nil
	}
	return "", errors.New("invalid requester_id in context")
}

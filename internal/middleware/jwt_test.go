package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-allocator/internal/middleware"
	"github.com/iliyamo/account-allocator/internal/utils"
)

const testSecret = "test-secret"

func run(t *testing.T, authz string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var seen string
	h := middleware.RequesterAuth(testSecret)(func(c echo.Context) error {
		seen, _ = c.Get("requester_id").(string)
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts/claim", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, seen
}

func TestRequesterAuthExtractsSubject(t *testing.T) {
	tok, err := utils.NewRequesterToken(testSecret, "tg:12345", "alice", time.Minute)
	if err != nil {
		t.Fatalf("token mint failed: %v", err)
	}
	rec, seen := run(t, "Bearer "+tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	// The stable subject wins over the display name.
	if seen != "tg:12345" {
		t.Fatalf("expected requester tg:12345, got %q", seen)
	}
}

func TestRequesterAuthMissingToken(t *testing.T) {
	rec, _ := run(t, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequesterAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewRequesterToken("other-secret", "tg:12345", "", time.Minute)
	if err != nil {
		t.Fatalf("token mint failed: %v", err)
	}
	rec, _ := run(t, "Bearer "+tok)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequesterAuthRejectsExpiredToken(t *testing.T) {
	tok, err := utils.NewRequesterToken(testSecret, "tg:12345", "", -time.Minute)
	if err != nil {
		t.Fatalf("token mint failed: %v", err)
	}
	rec, _ := run(t, "Bearer "+tok)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

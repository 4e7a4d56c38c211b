package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(authHeader string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func runExtract(t *testing.T, c echo.Context) {
	t.Helper()
	h := Extract()(func(c echo.Context) error { return nil })
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtract_BearerToken(t *testing.T) {
	c := newContext("Bearer tok-123")
	runExtract(t, c)
	if Token(c) != "tok-123" {
		t.Errorf("expected tok-123, got %q", Token(c))
	}
}

func TestExtract_CaseInsensitiveScheme(t *testing.T) {
	c := newContext("bearer tok-123")
	runExtract(t, c)
	if Token(c) != "tok-123" {
		t.Errorf("expected tok-123, got %q", Token(c))
	}
}

func TestExtract_MissingHeader(t *testing.T) {
	c := newContext("")
	runExtract(t, c)
	if Token(c) != "" {
		t.Errorf("expected empty token, got %q", Token(c))
	}
}

func TestExtract_WrongScheme(t *testing.T) {
	c := newContext("Basic dXNlcjpwYXNz")
	runExtract(t, c)
	if Token(c) != "" {
		t.Errorf("expected empty token for non-bearer scheme, got %q", Token(c))
	}
}

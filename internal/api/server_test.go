package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/flagfile/internal/config"
	"github.com/TimurManjosov/flagfile/internal/snapshot"
)

const testFlagfile = `
@segment beta_users { user_id in ("u-1", "u-2") }

FF-welcome -> true

FF-plan {
	plan = "pro" -> "silver"
	"bronze"
}

FF-beta {
	segment(beta_users) -> true
	false
}

FF-debug {
	@env dev -> true
	false
}
`

func newTestServer(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	snapshot.Reset()
	t.Cleanup(snapshot.Reset)

	state, err := snapshot.Build(testFlagfile)
	if err != nil {
		t.Fatal(err)
	}
	snapshot.Update(state)

	cfg := &config.Config{Port: 8080, Hostname: "127.0.0.1", Flagfile: "Flagfile"}
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, zerolog.Nop()).Router()
}

func TestHandleHealth(t *testing.T) {
	handler := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("Expected body 'ok', got %s", rr.Body.String())
	}
}

func TestFlagfileEndpoint(t *testing.T) {
	handler := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/flagfile", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != testFlagfile {
		t.Error("Body does not match the installed Flagfile")
	}
	if etag := rr.Header().Get("ETag"); etag == "" {
		t.Error("Expected ETag header to be set")
	}
}

func TestFlagfileEndpoint_NotModified(t *testing.T) {
	handler := newTestServer(t, nil)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/flagfile", nil))
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag on first response")
	}

	req := httptest.NewRequest(http.MethodGet, "/flagfile", nil)
	req.Header.Set("If-None-Match", etag)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotModified {
		t.Errorf("Expected status 304, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Error("304 response should have no body")
	}
}

func TestAuth_MissingToken(t *testing.T) {
	handler := newTestServer(t, func(c *config.Config) { c.AuthToken = "sekrit" })

	req := httptest.NewRequest(http.MethodGet, "/flagfile", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

func TestAuth_WrongToken(t *testing.T) {
	handler := newTestServer(t, func(c *config.Config) { c.AuthToken = "sekrit" })

	req := httptest.NewRequest(http.MethodGet, "/flagfile", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", rr.Code)
	}
}

func TestAuth_ValidToken(t *testing.T) {
	handler := newTestServer(t, func(c *config.Config) { c.AuthToken = "sekrit" })

	req := httptest.NewRequest(http.MethodGet, "/flagfile", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestAuth_HealthzIsOpen(t *testing.T) {
	handler := newTestServer(t, func(c *config.Config) { c.AuthToken = "sekrit" })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	handler := newTestServer(t, func(c *config.Config) { c.RateLimitPerIP = 3 })

	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/flagfile", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("Expected at least one 429 after exceeding the per-IP limit")
	}
}

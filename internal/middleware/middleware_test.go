package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/octobees/exhibitor-leads/internal/config"
)

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextKeyRequestID, "rid-123")

	err := Logging(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	entries := logs.FilterField(zap.String("request_id", "rid-123")).All()
	if len(entries) != 1 || entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected one info entry with request id, got %+v", logs.All())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(ContextKeyRequestID, "rid-456")
	expected := errors.New("boom")
	err = Logging(logger)(func(c echo.Context) error {
		return expected
	})(c)
	if !errors.Is(err, expected) {
		t.Fatalf("expected error to bubble up")
	}
	failed := logs.FilterField(zap.String("request_id", "rid-456")).All()
	if len(failed) != 1 || failed[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error entry for failed request, got %+v", failed)
	}
}

func TestRateLimit(t *testing.T) {
	mw := RateLimit(config.RateLimitConfig{Requests: 1, Interval: time.Minute})

	e := echo.New()
	nextCalls := 0
	next := func(c echo.Context) error {
		nextCalls++
		return c.NoContent(http.StatusAccepted)
	}
	call := func(operator string) int {
		req := httptest.NewRequest(http.MethodPost, "/runs", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if operator != "" {
			c.Set(ContextKeyOperator, operator)
		}
		_ = mw(next)(c)
		return rec.Code
	}

	if code := call("a@example.com"); code != http.StatusAccepted {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := call("a@example.com"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request rejected, got %d", code)
	}
	if code := call("b@example.com"); code != http.StatusAccepted {
		t.Fatalf("expected other operator to have its own bucket, got %d", code)
	}
	if nextCalls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", nextCalls)
	}

	mw = RateLimit(config.RateLimitConfig{})
	for i := 0; i < 3; i++ {
		if code := call("a@example.com"); code != http.StatusAccepted {
			t.Fatalf("expected passthrough when limiter disabled, got %d", code)
		}
	}
}

func TestLimiterStoreEvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newLimiterStore(config.RateLimitConfig{Requests: 1, Interval: time.Minute}, func() time.Time { return now })

	if !store.allow("10.0.0.1") || !store.allow("10.0.0.2") {
		t.Fatalf("expected first request of each key to pass")
	}
	if store.allow("10.0.0.1") {
		t.Fatalf("expected second request within the interval to be rejected")
	}
	if got := store.size(); got != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", got)
	}

	now = now.Add(30 * time.Second)
	if store.allow("10.0.0.2") {
		t.Fatalf("expected active key to stay limited")
	}

	now = now.Add(40 * time.Second)
	if !store.allow("10.0.0.3") {
		t.Fatalf("expected new key to pass")
	}
	// 10.0.0.1 was idle for the whole interval, 10.0.0.2 was seen 40s ago.
	if got := store.size(); got != 2 {
		t.Fatalf("expected idle key to be evicted, got %d tracked keys", got)
	}
	if !store.allow("10.0.0.1") {
		t.Fatalf("expected evicted key to start with a full bucket")
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	mw := RequireRole("operator")

	t.Run("missing role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = mw(func(c echo.Context) error { return nil })(c)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("incorrect role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(ContextKeyRole, "viewer")

		_ = mw(func(c echo.Context) error { return nil })(c)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "insufficient permissions") {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(ContextKeyRole, "operator")

		called := false
		if err := mw(func(c echo.Context) error {
			called = true
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !called {
			t.Fatalf("expected handler to run")
		}
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	handler := RequestID()

	t.Run("reuse incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "incoming")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(func(c echo.Context) error {
			if RequestIDFromContext(c) != "incoming" {
				t.Fatalf("expected request id to be stored")
			}
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if rec.Header().Get("X-Request-ID") != "incoming" {
			t.Fatalf("expected response header to propagate request id")
		}
	})

	t.Run("replace oversized header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", maxRequestIDLength+1))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(func(c echo.Context) error {
			if len(RequestIDFromContext(c)) != 36 {
				t.Fatalf("expected generated uuid, got %q", RequestIDFromContext(c))
			}
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

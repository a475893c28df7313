package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestRateLimiterBlocksAfterMaxAttempts(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rl := DefaultRateLimiter()
	rl.now = fixedClock(&now)

	for i := 0; i < 5; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("attempt %d refused", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("sixth attempt allowed")
	}
	if got := rl.Remaining("10.0.0.1"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other address refused")
	}

	until := rl.BlockedUntil("10.0.0.1")
	if !until.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("BlockedUntil = %v", until)
	}

	now = now.Add(16 * time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Error("attempt after block expiry refused")
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute, time.Minute)
	rl.now = fixedClock(&now)

	rl.Allow("a")
	rl.Allow("a")
	now = now.Add(2 * time.Minute)
	if !rl.Allow("a") {
		t.Fatal("attempt in a new window refused")
	}
	if got := rl.Remaining("a"); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
}

func TestRateLimiterRecordSuccessAndCleanup(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3, time.Minute, time.Minute)
	rl.now = fixedClock(&now)

	rl.Allow("a")
	rl.RecordSuccess("a")
	if got := rl.Remaining("a"); got != 3 {
		t.Errorf("Remaining after success = %d, want 3", got)
	}

	rl.Allow("b")
	now = now.Add(2 * time.Minute)
	if n := rl.Cleanup(); n != 1 {
		t.Errorf("Cleanup removed %d, want 1", n)
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(1, time.Minute, time.Minute)

	called := 0
	h := rl.Middleware(nil)(func(c echo.Context) error {
		called++
		return c.NoContent(http.StatusOK)
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		if err := h(e.NewContext(req, rec)); err != nil {
			t.Fatal(err)
		}
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if called != 1 {
		t.Errorf("handler called %d times", called)
	}
}

func TestRateLimiterMiddlewareBlockedHandler(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(0, time.Minute, time.Minute)

	var gotRetry time.Duration
	h := rl.Middleware(func(c echo.Context, retryAfter time.Duration) error {
		gotRetry = retryAfter
		return c.String(http.StatusTooManyRequests, "slow down")
	})(func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})

	// The first attempt creates the entry; the next one exceeds zero
	rl.Allow("192.0.2.9")

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.9:1"
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusTooManyRequests || rec.Body.String() != "slow down" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
	if gotRetry < time.Second {
		t.Errorf("retryAfter = %v", gotRetry)
	}
}

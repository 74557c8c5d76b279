package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"value":42}`))
		default:
			http.Error(w, "nope", http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	var out struct{ Value int }
	require.NoError(t, GetJSON(context.Background(), srv.Client(), srv.URL+"/ok", &out))
	assert.Equal(t, 42, out.Value)

	_, err := DoGet(context.Background(), srv.Client(), srv.URL+"/limited", nil)
	var httpErr *ErrHTTP
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "nope")
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache[int](time.Minute)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should expire at exactly ttl")

	c.SetWithTTL("b", 2, time.Hour)
	c.Cleanup()
	assert.Equal(t, 1, c.Len())

	c.Invalidate("b")
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 20*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx)) // third token needs a refill
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	empty := NewRateLimiter(1, time.Hour)
	require.NoError(t, empty.Wait(ctx))
	assert.ErrorIs(t, empty.Wait(cancelled), context.Canceled)
}

func TestNilRateLimiter(t *testing.T) {
	var rl *RateLimiter
	assert.NoError(t, rl.Wait(context.Background()))
	assert.Nil(t, PerSecond(0))
	assert.NotNil(t, PerSecond(5))
}

package explorer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(&ClientOptions{
		BaseURL:     server.URL + "/",
		RateLimiter: NewRateLimiter(1000, 1000),
	})
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("uses defaults", func(t *testing.T) {
		t.Parallel()
		c := NewClient(nil)
		assert.Equal(t, DefaultBaseURL, c.BaseURL())
		assert.Equal(t, httpTimeout, c.httpClient.Timeout)
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()
		hc := &http.Client{Timeout: time.Second}
		c := NewClient(&ClientOptions{BaseURL: "https://example.test/btc/", HTTPClient: hc})
		assert.Equal(t, "https://example.test/btc", c.BaseURL())
		assert.Equal(t, hc, c.httpClient)
	})
}

func TestGetBalance(t *testing.T) {
	t.Parallel()

	t.Run("decodes the balance record", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/address/bc1qtest/balance", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"address":"bc1qtest","confirmed":150000,"unconfirmed":-2000,"utxo":3,"txs":7,"received":900000}`))
		})

		bal, err := c.GetBalance(context.Background(), "bc1qtest")
		require.NoError(t, err)
		assert.Equal(t, &Balance{
			Address: "bc1qtest", Confirmed: 150000, Unconfirmed: -2000, UTXO: 3, Txs: 7, Received: 900000,
		}, bal)

		sats, err := c.ConfirmedBalance(context.Background(), "bc1qtest")
		require.NoError(t, err)
		assert.Equal(t, int64(150000), sats)
	})

	t.Run("rejects empty address", func(t *testing.T) {
		t.Parallel()
		c := NewClient(nil)
		_, err := c.GetBalance(context.Background(), "  ")
		require.ErrorIs(t, err, linkerr.ErrInvalidAddress)
	})

	t.Run("maps 429 to rate limited", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		})
		_, err := c.GetBalance(context.Background(), "bc1q")
		require.ErrorIs(t, err, ErrRateLimited)
		assert.True(t, IsRetryable(err))
	})

	t.Run("maps non-2xx to API error with truncated body", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
		})
		_, err := c.GetBalance(context.Background(), "bc1q")
		require.ErrorIs(t, err, ErrAPIError)
		assert.False(t, IsRetryable(err))

		var le *linkerr.LinkError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "502", le.Details["status"])
		assert.Len(t, le.Details["body"], 515)
	})

	t.Run("maps malformed JSON to API error", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"confirmed":"lots"`))
		})
		_, err := c.GetBalance(context.Background(), "bc1q")
		require.ErrorIs(t, err, ErrAPIError)
	})

	t.Run("maps transport failure to network error", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		c := NewClient(&ClientOptions{BaseURL: url})
		_, err := c.GetBalance(context.Background(), "bc1q")
		require.ErrorIs(t, err, linkerr.ErrNetworkError)
	})
}

func TestConfirmedBalanceWithRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"confirmed":42}`))
	})

	cfg := RetryConfig{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	sats, err := c.ConfirmedBalanceWithRetry(context.Background(), "bc1q", cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(42), sats)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryWithConfig(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	t.Run("stops on non-retryable error", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		_, err := RetryWithConfig(context.Background(), cfg, func() (int, error) {
			attempts++
			return 0, ErrAPIError
		})
		require.ErrorIs(t, err, ErrAPIError)
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		_, err := RetryWithConfig(context.Background(), cfg, func() (int, error) {
			attempts++
			return 0, linkerr.ErrNetworkError
		})
		require.ErrorIs(t, err, linkerr.ErrNetworkError)
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Equal(t, 3, attempts)
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
		_, err := RetryWithConfig(ctx, slow, func() (int, error) {
			return 0, ErrRateLimited
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackoffBounds(t *testing.T) {
	t.Parallel()

	for attempt := 0; attempt < 5; attempt++ {
		d := backoff(attempt, 100*time.Millisecond, 400*time.Millisecond)
		capped := 100 * time.Millisecond * (1 << attempt)
		if capped > 400*time.Millisecond {
			capped = 400 * time.Millisecond
		}
		assert.GreaterOrEqual(t, d, capped/2)
		assert.Less(t, d, capped)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "endpoints have independent buckets")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, rl.Wait(ctx, "a"))
}

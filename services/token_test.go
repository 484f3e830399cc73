package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, exchanges *atomic.Int64, lifetime int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		n := exchanges.Add(1)
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":%d}`, n, lifetime)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenReusedWithinLifetime(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges, 1799)

	ts := NewTokenSource("id", "secret", srv.URL, nil)

	tok1, err := ts.Token(context.Background())
	require.NoError(t, err)
	tok2, err := ts.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, tok1, tok2)
	assert.Equal(t, int64(1), exchanges.Load(), "second call must not hit the network")
}

func TestTokenRefreshAfterExpiry(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges, 1799)

	ts := NewTokenSource("id", "secret", srv.URL, nil)

	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return clock }

	tok1, err := ts.Token(context.Background())
	require.NoError(t, err)

	// Inside the safety-adjusted window (1799s - 60s margin): reuse.
	clock = clock.Add(28 * time.Minute)
	tok2, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)

	// Past the margin-adjusted expiry: exactly one new exchange.
	clock = clock.Add(2 * time.Minute)
	tok3, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, tok1, tok3)
	assert.Equal(t, int64(2), exchanges.Load())
}

func TestTokenConcurrentRefreshSingleFlight(t *testing.T) {
	var exchanges atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		time.Sleep(20 * time.Millisecond) // widen the race window
		fmt.Fprint(w, `{"access_token":"tok","expires_in":1799}`)
	}))
	t.Cleanup(srv.Close)

	ts := NewTokenSource("id", "secret", srv.URL, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := ts.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok", tok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), exchanges.Load(), "racing callers should share one exchange")
}

func TestTokenExchangeFailureNotCached(t *testing.T) {
	var exchanges atomic.Int64
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		if fail {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok","expires_in":1799}`)
	}))
	t.Cleanup(srv.Close)

	ts := NewTokenSource("id", "secret", srv.URL, nil)

	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth failed")

	// The failure must not poison the slot: the next call exchanges again
	// and succeeds.
	fail = false
	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.Equal(t, int64(2), exchanges.Load())
}

package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmail/graphmail/internal/msauth"
)

// fakeTokens is a TokenSource with a scripted token and an invalidation
// counter.
type fakeTokens struct {
	mu            sync.Mutex
	token         string
	err           error
	invalidations int
}

func (f *fakeTokens) EnsureToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func (f *fakeTokens) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations++
	f.token = "refreshed-token"
}

func (f *fakeTokens) invalidated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidations
}

// newTestClient wires a Client against an httptest server running handler.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *fakeTokens) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := &fakeTokens{token: "test-token"}
	c := NewClient(tokens, "",
		WithBaseURL(srv.URL),
		WithRetryBase(time.Millisecond))
	return c, tokens
}

func TestDoRetriesThrottlingThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"id":"msg-1","subject":"hello"}`)
	}))

	msg, err := c.GetMessage(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Subject)
	assert.Equal(t, int32(4), calls.Load(), "three retries then success")
}

func TestDoRetryAfterHTTPDate(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", time.Now().UTC().Format(http.TimeFormat))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"id":"msg-1","subject":"hello"}`)
	}))

	start := time.Now()
	msg, err := c.GetMessage(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Subject)
	assert.Equal(t, int32(2), calls.Load())
	assert.Less(t, time.Since(start), 2*time.Second, "a past HTTP-date must not stall the retry")
}

func TestDoRetryObserverSeesCauses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			fmt.Fprint(w, `{"id":"msg-1","subject":"hello"}`)
		}
	}))
	t.Cleanup(srv.Close)

	var causes []string
	c := NewClient(&fakeTokens{token: "test-token"}, "",
		WithBaseURL(srv.URL),
		WithRetryBase(time.Millisecond),
		WithRetryObserver(func(cause string) { causes = append(causes, cause) }))

	_, err := c.GetMessage(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"429", "503"}, causes)
}

func TestDoRateLimitBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.GetMessage(context.Background(), "msg-1")
	require.Error(t, err)
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t, int32(4), calls.Load(), "budget is one request plus three retries")
}

func TestDoServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"id":"msg-1"}`)
	}))

	_, err := c.GetMessage(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoUnauthorizedForcesSingleReauth(t *testing.T) {
	var calls atomic.Int32
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") == "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"id":"msg-1"}`)
	}))

	msg, err := c.GetMessage(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, 1, tokens.invalidated())
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoUnauthorizedAfterReauthIsTerminal(t *testing.T) {
	var calls atomic.Int32
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.GetMessage(context.Background(), "msg-1")
	require.Error(t, err)
	assert.Equal(t, KindAuthenticationFailed, KindOf(err))
	assert.Equal(t, 1, tokens.invalidated(), "re-auth is forced exactly once")
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoNotFoundNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"ErrorItemNotFound","message":"The specified object was not found."}}`)
	}))

	_, err := c.GetMessage(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.ErrorContains(t, err, "ErrorItemNotFound")
	assert.Equal(t, int32(1), calls.Load(), "404 is terminal")
}

func TestDoBadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := c.GetMessage(context.Background(), "msg-1")
	require.Error(t, err)
	assert.Equal(t, KindMalformedInput, KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoTokenFailureSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	tokens.err = fmt.Errorf("%w: no cached token", msauth.ErrAuthRequired)

	_, err := c.GetMessage(context.Background(), "msg-1")
	require.Error(t, err)
	assert.Equal(t, KindAuthenticationFailed, KindOf(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestDoTokenInvalidKind(t *testing.T) {
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	tokens.err = fmt.Errorf("%w: refresh rejected", msauth.ErrTokenInvalid)

	_, err := c.GetMessage(context.Background(), "msg-1")
	require.Error(t, err)
	assert.Equal(t, KindTokenInvalid, KindOf(err))
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	c.retryBase = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetMessage(ctx, "msg-1")
	require.Error(t, err)
	assert.Equal(t, KindRemoteUnavailable, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestErrorKindHelpers(t *testing.T) {
	err := NewError(KindNotFound, "message %s not found", "abc")
	assert.Equal(t, "not_found: message abc not found", err.Error())
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindRateLimited))
	assert.Equal(t, KindNotFound, KindOf(err))

	assert.Equal(t, KindRemoteUnavailable, KindOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", WrapError(KindRateLimited, errors.New("inner"), "throttled"))
	assert.Equal(t, KindRateLimited, KindOf(wrapped))
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusBadRequest, KindMalformedInput},
		{http.StatusUnauthorized, KindAuthenticationFailed},
		{http.StatusForbidden, KindAuthenticationFailed},
		{http.StatusNotFound, KindNotFound},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindRemoteUnavailable},
		{http.StatusBadGateway, KindRemoteUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, kindForStatus(tt.status), "status %d", tt.status)
	}
}

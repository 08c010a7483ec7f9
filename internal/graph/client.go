package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/graphmail/graphmail/internal/logging"
	"github.com/graphmail/graphmail/internal/msauth"
)

const (
	// defaultBaseURL is the Microsoft Graph v1.0 endpoint.
	defaultBaseURL = "https://graph.microsoft.com/v1.0"

	// defaultMaxAttempts bounds each operation to one request plus three
	// retries for throttled or failing responses.
	defaultMaxAttempts = 4

	// defaultRetryBase is the first backoff delay; it doubles per retry.
	defaultRetryBase = 500 * time.Millisecond

	// requestTimeout bounds a single HTTP exchange, not the whole retry
	// sequence.
	requestTimeout = 30 * time.Second
)

// TokenSource supplies bearer tokens for Graph requests. *msauth.Manager
// implements it.
type TokenSource interface {
	EnsureToken(ctx context.Context) (string, error)
	Invalidate()
}

// Client issues authenticated requests against the Graph mail API for a
// single mailbox. Safe for concurrent use.
type Client struct {
	http        *http.Client
	tokens      TokenSource
	baseURL     string
	userPath    string
	maxAttempts int
	retryBase   time.Duration
	onRetry     func(cause string)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph endpoint. Used by tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetryBase overrides the first backoff delay. Used by tests to keep
// retry sequences fast.
func WithRetryBase(d time.Duration) Option {
	return func(c *Client) { c.retryBase = d }
}

// WithRetryObserver installs a callback invoked once per retried request
// with the cause, either an HTTP status code ("429", "503") or "network".
func WithRetryObserver(fn func(cause string)) Option {
	return func(c *Client) { c.onRetry = fn }
}

// NewClient creates a Graph client for the given mailbox. An empty
// userEmail addresses the signed-in user ("me"); otherwise requests go to
// users/{email}, which requires application-style permissions.
func NewClient(tokens TokenSource, userEmail string, opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: requestTimeout},
		tokens:      tokens,
		baseURL:     defaultBaseURL,
		userPath:    "me",
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
	}
	if userEmail != "" {
		c.userPath = "users/" + url.PathEscape(userEmail)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do runs one Graph request through the retry policy and decodes a 2xx
// response into out (ignored when out is nil). 429 and 5xx responses are
// retried with exponential backoff, honoring Retry-After; a 401 triggers
// exactly one forced token refresh before it becomes terminal.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return WrapError(KindMalformedInput, err, "failed to encode request body")
		}
	}

	u := c.baseURL + "/" + c.userPath
	if path != "" {
		u += "/" + path
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	reauthed := false
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		token, err := c.tokens.EnsureToken(ctx)
		if err != nil {
			return tokenError(err)
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
		if err != nil {
			return WrapError(KindMalformedInput, err, "failed to build request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return WrapError(KindRemoteUnavailable, ctx.Err(), "request cancelled")
			}
			if attempt < c.maxAttempts-1 {
				slog.Debug("graph request failed, retrying",
					"method", method, "path", path, "attempt", attempt+1, logging.Err(err))
				c.notifyRetry("network")
				if werr := c.wait(ctx, c.backoff(attempt, nil)); werr != nil {
					return werr
				}
				continue
			}
			return WrapError(KindRemoteUnavailable, err, "graph request failed after %d attempts", c.maxAttempts)
		}

		status := resp.StatusCode
		if status >= 200 && status < 300 {
			defer resp.Body.Close()
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return WrapError(KindRemoteUnavailable, err, "failed to decode graph response")
			}
			return nil
		}

		detail := readErrorDetail(resp.Body)
		resp.Body.Close()

		if status == http.StatusUnauthorized && !reauthed {
			// The cached token looked valid but Graph disagrees; force one
			// refresh and retry without consuming the backoff budget.
			slog.Debug("graph rejected token, forcing refresh", "method", method, "path", path)
			c.tokens.Invalidate()
			reauthed = true
			attempt--
			continue
		}

		if retryableStatus(status) && attempt < c.maxAttempts-1 {
			delay := c.backoff(attempt, resp.Header)
			slog.Debug("graph request throttled or failing, retrying",
				"method", method, "path", path, "status", status,
				"attempt", attempt+1, "delay", delay.String())
			c.notifyRetry(strconv.Itoa(status))
			if werr := c.wait(ctx, delay); werr != nil {
				return werr
			}
			continue
		}

		return statusError(status, method, path, detail)
	}

	return NewError(KindRemoteUnavailable, "retry budget exhausted for %s %s", method, path)
}

func (c *Client) notifyRetry(cause string) {
	if c.onRetry != nil {
		c.onRetry(cause)
	}
}

// backoff computes the delay before a retry, preferring a Retry-After
// header when the server sent one. The header carries either delay seconds
// or an HTTP-date.
func (c *Client) backoff(attempt int, hdr http.Header) time.Duration {
	if hdr != nil {
		if ra := hdr.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
			if at, err := http.ParseTime(ra); err == nil {
				if d := time.Until(at); d > 0 {
					return d
				}
				return 0
			}
		}
	}
	return c.retryBase << attempt
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return WrapError(KindRemoteUnavailable, ctx.Err(), "request cancelled while backing off")
	}
}

// tokenError maps a token acquisition failure onto the error taxonomy. The
// message carries no token material, only the remediation hint.
func tokenError(err error) *Error {
	if errors.Is(err, msauth.ErrTokenInvalid) {
		return WrapError(KindTokenInvalid, err, "cached token could not be refreshed, run \"graphmail login\"")
	}
	return WrapError(KindAuthenticationFailed, err, "no valid credentials, run \"graphmail login\"")
}

// statusError builds the terminal error for a non-retryable (or
// retry-exhausted) response.
func statusError(status int, method, path, detail string) *Error {
	kind := kindForStatus(status)
	msg := fmt.Sprintf("%s %s returned %d", method, path, status)
	if detail != "" {
		msg += ": " + detail
	}
	return &Error{Kind: kind, Message: msg, StatusCode: status}
}

// readErrorDetail extracts the human-readable message from a Graph error
// envelope, falling back to a truncated raw body.
func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var envelope graphErrorBody
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Code != "" {
			return envelope.Error.Code + ": " + envelope.Error.Message
		}
		return envelope.Error.Message
	}
	if len(data) > 200 {
		data = data[:200]
	}
	return string(data)
}

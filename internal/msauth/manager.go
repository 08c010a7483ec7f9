package msauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/graphmail/graphmail/internal/config"
	"github.com/graphmail/graphmail/internal/logging"
)

// ErrAuthRequired indicates that no usable token or refresh token exists and
// the user has to run the interactive login flow.
var ErrAuthRequired = errors.New("authentication required")

// ErrTokenInvalid indicates that a cached token exists but could not be
// refreshed, typically because the refresh token was revoked or expired.
var ErrTokenInvalid = errors.New("token invalid")

// Manager owns the token cache file and answers "give me a valid bearer
// token". It refreshes expired tokens through the Entra ID token endpoint
// and serializes the refresh path so concurrent callers trigger at most one
// refresh.
type Manager struct {
	cfg   *config.Config
	oauth *oauth2.Config
	path  string

	mu sync.Mutex
	// cached is the in-memory copy of the persisted record. Guarded by mu.
	cached *TokenCache
	// forceRefresh bypasses the valid-cache fast path once, after a 401
	// proved the cached token unusable despite its recorded expiry.
	forceRefresh bool

	// onRefresh, when set, observes every refresh attempt with "success"
	// or "failure". Guarded by mu.
	onRefresh func(result string)

	// now is replaceable in tests.
	now func() time.Time
}

// Refresh observer results.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
)

// NewManager creates a token manager for the given configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL(),
				TokenURL: cfg.TokenURL(),
			},
		},
		path: cfg.TokenFile,
		now:  time.Now,
	}
}

// OnRefresh registers an observer for token refresh attempts, typically a
// metrics counter. Passing nil removes the observer.
func (m *Manager) OnRefresh(fn func(result string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRefresh = fn
}

// HasToken reports whether a token cache file exists, without validating it.
func (m *Manager) HasToken() bool {
	_, err := LoadCache(m.path)
	return err == nil
}

// EnsureToken returns a usable bearer token. A valid cached token is
// returned without any network call; an expired one is refreshed through
// the token endpoint when a refresh token is available. When neither works
// the error wraps ErrAuthRequired.
func (m *Manager) EnsureToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if !m.forceRefresh {
		if m.cached.Valid(now) {
			return m.cached.AccessToken, nil
		}
		// The cache file may have been rewritten by a login in another
		// process; a malformed or missing file counts as no token.
		if tc, err := LoadCache(m.path); err == nil {
			m.cached = tc
			if tc.Valid(now) {
				return tc.AccessToken, nil
			}
		}
	} else if m.cached == nil {
		if tc, err := LoadCache(m.path); err == nil {
			m.cached = tc
		}
	}

	if m.cached == nil || m.cached.RefreshToken == "" {
		return "", fmt.Errorf("%w: no cached token, run \"graphmail login\"", ErrAuthRequired)
	}

	token, err := m.refreshLocked(ctx, m.cached)
	if err != nil {
		return "", err
	}
	m.forceRefresh = false
	return token, nil
}

// Invalidate marks the cached access token as unusable, forcing the next
// EnsureToken call through the refresh path. Used after Graph rejects a
// request with 401 despite a seemingly valid cache.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceRefresh = true
}

// notifyRefreshLocked reports a refresh outcome to the observer. Callers
// must hold mu.
func (m *Manager) notifyRefreshLocked(result string) {
	if m.onRefresh != nil {
		m.onRefresh(result)
	}
}

// refreshLocked exchanges the refresh token for a new access token and
// persists the result. Callers must hold mu.
func (m *Manager) refreshLocked(ctx context.Context, tc *TokenCache) (string, error) {
	src := m.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  tc.AccessToken,
		RefreshToken: tc.RefreshToken,
		TokenType:    "Bearer",
		// Force the oauth2 library to refresh instead of reusing.
		Expiry: time.Unix(1, 0),
	})

	tok, err := src.Token()
	if err != nil {
		m.notifyRefreshLocked(RefreshFailure)
		return "", fmt.Errorf("%w: token refresh failed, run \"graphmail login\"", ErrTokenInvalid)
	}
	m.notifyRefreshLocked(RefreshSuccess)

	refreshed := &TokenCache{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
	}
	if refreshed.RefreshToken == "" {
		// Entra ID does not always rotate the refresh token.
		refreshed.RefreshToken = tc.RefreshToken
	}

	if err := SaveCache(m.path, refreshed); err != nil {
		// The token itself is good; losing the cache only costs a refresh
		// on the next process start.
		slog.Warn("failed to persist refreshed token", logging.Err(err))
	}
	m.cached = refreshed

	slog.Debug("access token refreshed",
		"token", logging.SanitizeToken(refreshed.AccessToken),
		"expires_at", time.Unix(refreshed.ExpiresAt, 0).Format(time.RFC3339))
	return refreshed.AccessToken, nil
}

// saveToken persists a freshly exchanged token and primes the in-memory
// cache. Used by the interactive login flow.
func (m *Manager) saveToken(tok *oauth2.Token) error {
	tc := &TokenCache{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
	}
	if err := SaveCache(m.path, tc); err != nil {
		return err
	}

	m.mu.Lock()
	m.cached = tc
	m.forceRefresh = false
	m.mu.Unlock()
	return nil
}

// AuthInstructions returns a user-facing message explaining how to obtain a
// token. Shown by MCP tools when no valid token exists.
func (m *Manager) AuthInstructions() string {
	return `Microsoft OAuth token not found or expired. To authorize access:

1. Run "graphmail login" on the machine where this server runs
2. Sign in with your Microsoft account in the browser window
3. Grant the requested mail permissions

You only need to authorize once; the token is refreshed automatically.`
}

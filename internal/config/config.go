package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names understood by Load.
const (
	EnvClientID     = "MICROSOFT_CLIENT_ID"
	EnvClientSecret = "MICROSOFT_CLIENT_SECRET"
	EnvTenantID     = "MICROSOFT_TENANT_ID"
	EnvAuthority    = "AUTHORITY"
	EnvScope        = "SCOPE"
	EnvUserEmail    = "MS_GRAPH_USER_EMAIL"
	EnvRedirectURI  = "GRAPHMAIL_REDIRECT_URI"
	EnvTokenFile    = "GRAPHMAIL_TOKEN_FILE"
)

// DefaultRedirectURI is the loopback redirect used by the interactive login
// flow. It must be registered on the Entra ID application.
const DefaultRedirectURI = "http://localhost:5000/auth/callback"

// DefaultScopes are the delegated Microsoft Graph permissions requested during
// login. offline_access is required to receive a refresh token.
var DefaultScopes = []string{
	"https://graph.microsoft.com/Mail.Read",
	"https://graph.microsoft.com/Mail.ReadBasic",
	"https://graph.microsoft.com/Mail.ReadWrite",
	"https://graph.microsoft.com/Mail.Send",
	"https://graph.microsoft.com/User.Read",
	"offline_access",
}

// Config holds the credentials and settings for talking to Microsoft Graph.
// It is loaded once at startup and treated as immutable afterwards.
type Config struct {
	ClientID     string
	ClientSecret string
	TenantID     string

	// Authority is the Entra ID authority URL, e.g.
	// https://login.microsoftonline.com/<tenant>.
	Authority string

	// Scopes are the delegated permissions requested during login.
	Scopes []string

	// RedirectURI is the loopback callback for the interactive flow.
	RedirectURI string

	// UserEmail optionally addresses a specific mailbox (users/{email}/...)
	// instead of the signed-in user (me/...).
	UserEmail string

	// TokenFile is the path of the persisted token cache.
	TokenFile string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := &Config{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		TenantID:     os.Getenv(EnvTenantID),
		Authority:    os.Getenv(EnvAuthority),
		UserEmail:    os.Getenv(EnvUserEmail),
		RedirectURI:  os.Getenv(EnvRedirectURI),
		TokenFile:    os.Getenv(EnvTokenFile),
	}

	if scope := os.Getenv(EnvScope); scope != "" {
		cfg.Scopes = strings.Fields(scope)
	} else {
		cfg.Scopes = append([]string(nil), DefaultScopes...)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Authority == "" && c.TenantID != "" {
		c.Authority = "https://login.microsoftonline.com/" + c.TenantID
	}
	c.Authority = strings.TrimRight(c.Authority, "/")
	if c.RedirectURI == "" {
		c.RedirectURI = DefaultRedirectURI
	}
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile()
	}
}

// Validate checks that the required credential fields are present.
func (c *Config) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if c.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}
	if c.TenantID == "" && c.Authority == "" {
		missing = append(missing, EnvTenantID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// AuthURL returns the authorization endpoint derived from the authority.
func (c *Config) AuthURL() string {
	return c.Authority + "/oauth2/v2.0/authorize"
}

// TokenURL returns the token endpoint derived from the authority.
func (c *Config) TokenURL() string {
	return c.Authority + "/oauth2/v2.0/token"
}

// DefaultTokenFile returns the default token cache location in the user
// cache directory.
func DefaultTokenFile() string {
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		// Fall back to the working directory; the token manager creates
		// parent directories as needed.
		return "graphmail-token.json"
	}
	return filepath.Join(cacheRoot, "graphmail", "token.json")
}

// Redacted returns a map describing which settings are present without
// exposing any secret values. Suitable for logs and diagnostics.
func (c *Config) Redacted() map[string]string {
	present := func(v string) string {
		if v == "" {
			return "missing"
		}
		return "present"
	}
	return map[string]string{
		"client_id":     present(c.ClientID),
		"client_secret": present(c.ClientSecret),
		"tenant_id":     present(c.TenantID),
		"authority":     c.Authority,
		"scope":         strings.Join(c.Scopes, " "),
		"user_email":    c.UserEmail,
		"redirect_uri":  c.RedirectURI,
	}
}

package config

import (
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvClientID, "client-id")
	t.Setenv(EnvClientSecret, "client-secret")
	t.Setenv(EnvTenantID, "tenant-id")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvAuthority, "")
	t.Setenv(EnvScope, "")
	t.Setenv(EnvRedirectURI, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := cfg.Authority, "https://login.microsoftonline.com/tenant-id"; got != want {
		t.Errorf("Authority = %q, want %q", got, want)
	}
	if cfg.RedirectURI != DefaultRedirectURI {
		t.Errorf("RedirectURI = %q, want %q", cfg.RedirectURI, DefaultRedirectURI)
	}
	if len(cfg.Scopes) != len(DefaultScopes) {
		t.Errorf("Scopes = %v, want defaults", cfg.Scopes)
	}
	if cfg.TokenFile == "" {
		t.Error("TokenFile should have a default")
	}
}

func TestLoadScopeSplitting(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvScope, "Mail.Read Mail.Send  User.Read")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Scopes) != 3 {
		t.Fatalf("Scopes = %v, want 3 entries", cfg.Scopes)
	}
	if cfg.Scopes[1] != "Mail.Send" {
		t.Errorf("Scopes[1] = %q, want Mail.Send", cfg.Scopes[1])
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")
	t.Setenv(EnvTenantID, "")
	t.Setenv(EnvAuthority, "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail without credentials")
	}
	if !strings.Contains(err.Error(), EnvClientID) {
		t.Errorf("error should name the missing variable, got %v", err)
	}
}

func TestAuthorityOverridesTenant(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvAuthority, "https://login.example.com/custom/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := cfg.TokenURL(), "https://login.example.com/custom/oauth2/v2.0/token"; got != want {
		t.Errorf("TokenURL = %q, want %q", got, want)
	}
	if got, want := cfg.AuthURL(), "https://login.example.com/custom/oauth2/v2.0/authorize"; got != want {
		t.Errorf("AuthURL = %q, want %q", got, want)
	}
}

func TestRedactedHidesSecret(t *testing.T) {
	cfg := &Config{
		ClientID:     "id",
		ClientSecret: "super-secret-value",
		TenantID:     "tenant",
	}
	cfg.applyDefaults()

	for k, v := range cfg.Redacted() {
		if strings.Contains(v, "super-secret-value") {
			t.Errorf("Redacted()[%s] leaks the client secret", k)
		}
	}
	if cfg.Redacted()["client_secret"] != "present" {
		t.Error("client_secret should be reported as present")
	}
}

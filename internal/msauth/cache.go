package msauth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// expirySkew is subtracted from the recorded expiry so a token is refreshed
// shortly before Graph would start rejecting it.
const expirySkew = 5 * time.Minute

// TokenCache is the persisted token record.
type TokenCache struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Valid reports whether the cached access token can still be used at the
// given time, accounting for the expiry skew.
func (tc *TokenCache) Valid(now time.Time) bool {
	if tc == nil || tc.AccessToken == "" {
		return false
	}
	return now.Add(expirySkew).Unix() < tc.ExpiresAt
}

// LoadCache reads a token record from path. A missing or malformed file is
// reported as an error; callers treat both the same as "no token".
func LoadCache(path string) (*TokenCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tc TokenCache
	if err := json.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("malformed token cache %s: %w", path, err)
	}
	return &tc, nil
}

// SaveCache atomically writes a token record to path with 0600 permissions.
// The record is written to a temp file in the same directory and renamed
// into place so readers never see a partial write.
func SaveCache(path string, tc *TokenCache) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token cache directory: %w", err)
	}

	data, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("failed to encode token cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set token cache permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token cache: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace token cache: %w", err)
	}
	return nil
}

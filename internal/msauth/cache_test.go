package msauth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCacheValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		cache *TokenCache
		want  bool
	}{
		{
			name:  "nil cache",
			cache: nil,
			want:  false,
		},
		{
			name:  "empty access token",
			cache: &TokenCache{ExpiresAt: now.Add(time.Hour).Unix()},
			want:  false,
		},
		{
			name:  "valid with margin",
			cache: &TokenCache{AccessToken: "tok", ExpiresAt: now.Add(time.Hour).Unix()},
			want:  true,
		},
		{
			name:  "expired",
			cache: &TokenCache{AccessToken: "tok", ExpiresAt: now.Add(-time.Minute).Unix()},
			want:  false,
		},
		{
			name:  "inside the expiry skew",
			cache: &TokenCache{AccessToken: "tok", ExpiresAt: now.Add(2 * time.Minute).Unix()},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cache.Valid(now))
		})
	}
}

func TestSaveCacheAndLoadCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	want := &TokenCache{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, SaveCache(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := LoadCache(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveCacheLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	require.NoError(t, SaveCache(path, &TokenCache{AccessToken: "a"}))
	require.NoError(t, SaveCache(path, &TokenCache{AccessToken: "b"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "token.json", entries[0].Name())

	got, err := LoadCache(path)
	require.NoError(t, err)
	assert.Equal(t, "b", got.AccessToken)
}

func TestLoadCacheMissingFile(t *testing.T) {
	_, err := LoadCache(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadCacheMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json{"), 0600))

	_, err := LoadCache(path)
	assert.ErrorContains(t, err, "malformed token cache")
}

package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/graphmail/graphmail/internal/config"
	"github.com/graphmail/graphmail/internal/graph"
	"github.com/graphmail/graphmail/internal/msauth"
	"github.com/graphmail/graphmail/internal/server"
)

type staticTokens struct{}

func (staticTokens) EnsureToken(ctx context.Context) (string, error) { return "test-token", nil }
func (staticTokens) Invalidate()                                     {}

func testServerContext(t *testing.T, seedToken bool) *server.ServerContext {
	t.Helper()

	cfg := &config.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		TenantID:     "tenant",
		Authority:    "https://login.microsoftonline.com/tenant",
		Scopes:       config.DefaultScopes,
		RedirectURI:  config.DefaultRedirectURI,
		TokenFile:    filepath.Join(t.TempDir(), "token.json"),
	}

	if seedToken {
		cache := &msauth.TokenCache{
			AccessToken: "test-token",
			ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		}
		if err := msauth.SaveCache(cfg.TokenFile, cache); err != nil {
			t.Fatalf("failed to seed token cache: %v", err)
		}
	}

	sc, err := server.NewServerContext(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func readRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func TestRegisterMailboxResources(t *testing.T) {
	sc := testServerContext(t, false)
	s := mcpserver.NewMCPServer("test", "0.0.0")

	if err := RegisterMailboxResources(s, sc); err != nil {
		t.Fatalf("RegisterMailboxResources() error = %v", err)
	}
}

func TestHandleMailboxInfo(t *testing.T) {
	sc := testServerContext(t, false)

	contents, err := handleMailboxInfo(context.Background(), readRequest("mailbox://info"), sc)
	if err != nil {
		t.Fatalf("handleMailboxInfo() error = %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(contents))
	}

	text, ok := contents[0].(*mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected content type %T", contents[0])
	}

	var info struct {
		Config      map[string]string `json:"config"`
		TokenCached bool              `json:"tokenCached"`
		ReadOnly    bool              `json:"readOnly"`
	}
	if err := json.Unmarshal([]byte(text.Text), &info); err != nil {
		t.Fatalf("resource is not JSON: %v", err)
	}
	if info.TokenCached {
		t.Error("expected tokenCached=false without a token file")
	}
	if info.Config["client_secret"] != "present" {
		t.Errorf("secrets must be redacted to presence flags, got %q", info.Config["client_secret"])
	}
	if strings.Contains(text.Text, "secret") && info.Config["client_secret"] != "present" {
		t.Error("resource must not contain secret values")
	}
}

func TestHandleMailboxProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"u1","displayName":"Test User","mail":"user@example.com"}`)
	}))
	t.Cleanup(srv.Close)

	sc := testServerContext(t, true)
	sc.SetGraphClient(graph.NewClient(staticTokens{}, "", graph.WithBaseURL(srv.URL)))

	contents, err := handleMailboxProfile(context.Background(), readRequest("mailbox://profile"), sc)
	if err != nil {
		t.Fatalf("handleMailboxProfile() error = %v", err)
	}

	text := contents[0].(*mcp.TextResourceContents)
	if !strings.Contains(text.Text, "user@example.com") {
		t.Errorf("profile resource should contain the mailbox address: %s", text.Text)
	}
	if text.URI != "mailbox://profile" {
		t.Errorf("unexpected URI %q", text.URI)
	}
}

func TestHandleMailboxProfileWithoutToken(t *testing.T) {
	sc := testServerContext(t, false)

	_, err := handleMailboxProfile(context.Background(), readRequest("mailbox://profile"), sc)
	if err == nil {
		t.Fatal("expected an error without a cached token")
	}
	if !strings.Contains(err.Error(), "graphmail login") {
		t.Errorf("error should explain how to log in: %v", err)
	}
}

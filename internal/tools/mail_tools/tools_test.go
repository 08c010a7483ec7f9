package mail_tools

import (
	"context"
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

// staticTokens satisfies graph.TokenSource without touching the network.
type staticTokens struct{}

func (staticTokens) EnsureToken(ctx context.Context) (string, error) { return "test-token", nil }
func (staticTokens) Invalidate()                                     {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		TenantID:     "tenant",
		Authority:    "https://login.microsoftonline.com/tenant",
		Scopes:       config.DefaultScopes,
		RedirectURI:  config.DefaultRedirectURI,
		TokenFile:    filepath.Join(t.TempDir(), "token.json"),
	}
}

// newTestContext returns a server context whose Graph client talks to the
// given handler and whose token cache holds a valid token.
func newTestContext(t *testing.T, handler http.Handler) *server.ServerContext {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	cache := &msauth.TokenCache{
		AccessToken: "test-token",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}
	if err := msauth.SaveCache(cfg.TokenFile, cache); err != nil {
		t.Fatalf("failed to seed token cache: %v", err)
	}

	sc, err := server.NewServerContext(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })

	sc.SetGraphClient(graph.NewClient(staticTokens{}, "",
		graph.WithBaseURL(srv.URL), graph.WithRetryBase(time.Millisecond)))
	return sc
}

// newUnauthenticatedContext returns a server context with no cached token.
func newUnauthenticatedContext(t *testing.T) *server.ServerContext {
	t.Helper()

	sc, err := server.NewServerContext(context.Background(), testConfig(t), false)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("result content is %T, not text", result.Content[0])
	}
	return text.Text
}

func TestRegisterMailTools(t *testing.T) {
	sc := newUnauthenticatedContext(t)
	s := mcpserver.NewMCPServer("test", "0.0.0")

	if err := RegisterMailTools(s, sc); err != nil {
		t.Fatalf("RegisterMailTools() error = %v", err)
	}
}

func TestRegisterMailToolsReadOnly(t *testing.T) {
	sc, err := server.NewServerContext(context.Background(), testConfig(t), true)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("test", "0.0.0")
	if err := RegisterMailTools(s, sc); err != nil {
		t.Fatalf("RegisterMailTools() error = %v", err)
	}
}

func TestRequireClientWithoutToken(t *testing.T) {
	sc := newUnauthenticatedContext(t)

	client, errResult := requireClient(sc)
	if client != nil {
		t.Error("expected no client without a token")
	}
	if errResult == nil || !errResult.IsError {
		t.Fatal("expected an error result")
	}
	if !strings.Contains(resultText(t, errResult), "graphmail login") {
		t.Error("error result should explain how to log in")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{
			name:  "bytes",
			bytes: 512,
			want:  "512 bytes",
		},
		{
			name:  "kilobytes",
			bytes: 1536,
			want:  "1.50 KB",
		},
		{
			name:  "megabytes",
			bytes: 5242880,
			want:  "5.00 MB",
		},
		{
			name:  "gigabytes",
			bytes: 2147483648,
			want:  "2.00 GB",
		},
		{
			name:  "zero bytes",
			bytes: 0,
			want:  "0 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSize(tt.bytes); got != tt.want {
				t.Errorf("formatSize() = %v, want %v", got, tt.want)
			}
		})
	}
}

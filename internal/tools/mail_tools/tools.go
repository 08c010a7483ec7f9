package mail_tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/graphmail/graphmail/internal/graph"
	"github.com/graphmail/graphmail/internal/server"
)

// RegisterMailTools registers all mailbox tools with the MCP server. Write
// operations are left out when the server runs read-only.
func RegisterMailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterMessageTools(s, sc); err != nil {
		return fmt.Errorf("failed to register message tools: %w", err)
	}

	if err := RegisterAttachmentTools(s, sc); err != nil {
		return fmt.Errorf("failed to register attachment tools: %w", err)
	}

	if err := RegisterFolderTools(s, sc); err != nil {
		return fmt.Errorf("failed to register folder tools: %w", err)
	}

	if err := RegisterDiagnosticTools(s, sc); err != nil {
		return fmt.Errorf("failed to register diagnostic tools: %w", err)
	}

	return nil
}

// requireClient returns the Graph client, or an error result explaining how
// to authenticate when no token has been cached yet.
func requireClient(sc *server.ServerContext) (*graph.Client, *mcp.CallToolResult) {
	if !sc.AuthManager().HasToken() {
		return nil, mcp.NewToolResultError(sc.AuthManager().AuthInstructions())
	}
	return sc.GraphClient(), nil
}

// toolError formats a Graph failure for the caller. Authentication and token
// failures additionally carry the instructions for re-running the login flow.
func toolError(sc *server.ServerContext, action string, err error) *mcp.CallToolResult {
	switch graph.KindOf(err) {
	case graph.KindAuthenticationFailed, graph.KindTokenInvalid:
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v\n\n%s", action, err, sc.AuthManager().AuthInstructions()))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
	}
}

// renderJSON pretty-prints v for structured tool output.
func renderJSON(v any) (string, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

// formatSize formats a byte size into human-readable format
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

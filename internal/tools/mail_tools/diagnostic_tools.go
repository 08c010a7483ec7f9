package mail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/graphmail/graphmail/internal/server"
	"github.com/graphmail/graphmail/internal/tools/common"
)

// RegisterDiagnosticTools registers connectivity diagnostics with the MCP server
func RegisterDiagnosticTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	testConnectionTool := mcp.NewTool("graph_test_connection",
		mcp.WithDescription("Verify configuration, token cache and mailbox reachability by fetching the signed-in user's profile"),
	)

	s.AddTool(testConnectionTool, common.InstrumentedToolHandler(
		"graph_test_connection", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTestConnection(ctx, request, sc)
		}))

	return nil
}

func handleTestConnection(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cfg := sc.Config()

	output := struct {
		Config       map[string]string `json:"config"`
		TokenCached  bool              `json:"tokenCached"`
		Connected    bool              `json:"connected"`
		Mailbox      string            `json:"mailbox,omitempty"`
		DisplayName  string            `json:"displayName,omitempty"`
		ConnectError string            `json:"connectError,omitempty"`
	}{
		Config:      cfg.Redacted(),
		TokenCached: sc.AuthManager().HasToken(),
	}

	if !output.TokenCached {
		output.ConnectError = "no cached token"
		rendered, err := renderJSON(output)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
		}
		return mcp.NewToolResultText(rendered + "\n\n" + sc.AuthManager().AuthInstructions()), nil
	}

	profile, err := sc.GraphClient().GetProfile(ctx)
	if err != nil {
		output.ConnectError = err.Error()
	} else {
		output.Connected = true
		output.Mailbox = profile.Mail
		if output.Mailbox == "" {
			output.Mailbox = profile.UserPrincipalName
		}
		output.DisplayName = profile.DisplayName
	}

	rendered, renderErr := renderJSON(output)
	if renderErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", renderErr)), nil
	}
	return mcp.NewToolResultText(rendered), nil
}

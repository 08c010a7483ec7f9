package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/graphmail/graphmail/internal/server"
)

// RegisterMailboxResources registers mailbox context resources.
// These resources describe the server configuration and the signed-in user.
func RegisterMailboxResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Register configuration status resource
	infoResource := mcp.NewResource(
		"mailbox://info",
		"Mailbox Server Info",
		mcp.WithResourceDescription("Configuration and authentication status of the mail server, with secrets redacted"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(infoResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleMailboxInfo(ctx, request, sc)
	})

	// Register user profile resource
	profileResource := mcp.NewResource(
		"mailbox://profile",
		"Mailbox User Profile",
		mcp.WithResourceDescription("Profile of the signed-in Microsoft account"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleMailboxProfile(ctx, request, sc)
	})

	return nil
}

// handleMailboxInfo returns the redacted configuration and token status
func handleMailboxInfo(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	info := map[string]interface{}{
		"config":      sc.Config().Redacted(),
		"tokenCached": sc.AuthManager().HasToken(),
		"readOnly":    sc.ReadOnly(),
	}

	jsonData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal server info: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleMailboxProfile returns the Graph profile of the signed-in user
func handleMailboxProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	if !sc.AuthManager().HasToken() {
		return nil, fmt.Errorf("no cached token; run \"graphmail login\" first")
	}

	profile, err := sc.GraphClient().GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	profileData := map[string]interface{}{
		"id":                profile.ID,
		"displayName":       profile.DisplayName,
		"mail":              profile.Mail,
		"userPrincipalName": profile.UserPrincipalName,
		"jobTitle":          profile.JobTitle,
		"officeLocation":    profile.OfficeLocation,
	}

	jsonData, err := json.MarshalIndent(profileData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

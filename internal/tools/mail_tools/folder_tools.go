package mail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/graphmail/graphmail/internal/instrumentation"
	"github.com/graphmail/graphmail/internal/server"
	"github.com/graphmail/graphmail/internal/tools/common"
)

// RegisterFolderTools registers folder listing and (unless the server runs
// read-only) folder management tools.
func RegisterFolderTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// List folders tool
	listFoldersTool := mcp.NewTool("mail_list_folders",
		mcp.WithDescription("List the mail folders of the mailbox with unread and total counts"),
	)

	s.AddTool(listFoldersTool, common.InstrumentedToolHandlerWithOperation(
		"mail_list_folders", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListFolders(ctx, request, sc)
		}))

	if sc.ReadOnly() {
		return nil
	}

	// Create folder tool
	createFolderTool := mcp.NewTool("mail_create_folder",
		mcp.WithDescription("Create a new mail folder"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Display name of the new folder"),
		),
		mcp.WithString("parentFolderId",
			mcp.Description("Parent folder ID. Omit to create the folder at the top level."),
		),
	)

	s.AddTool(createFolderTool, common.InstrumentedToolHandlerWithOperation(
		"mail_create_folder", instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateFolder(ctx, request, sc)
		}))

	// Rename folder tool
	renameFolderTool := mcp.NewTool("mail_rename_folder",
		mcp.WithDescription("Rename an existing mail folder"),
		mcp.WithString("folderId",
			mcp.Required(),
			mcp.Description("ID of the folder to rename"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("New display name for the folder"),
		),
	)

	s.AddTool(renameFolderTool, common.InstrumentedToolHandlerWithOperation(
		"mail_rename_folder", instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRenameFolder(ctx, request, sc)
		}))

	// Delete folder tool
	deleteFolderTool := mcp.NewTool("mail_delete_folder",
		mcp.WithDescription("Delete a mail folder. Its contents move to Deleted Items."),
		mcp.WithString("folderId",
			mcp.Required(),
			mcp.Description("ID of the folder to delete"),
		),
	)

	s.AddTool(deleteFolderTool, common.InstrumentedToolHandlerWithOperation(
		"mail_delete_folder", instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteFolder(ctx, request, sc)
		}))

	return nil
}

func handleListFolders(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	folders, err := client.ListFolders(ctx)
	if err != nil {
		return toolError(sc, "Failed to list folders", err), nil
	}

	rendered, err := renderJSON(folders)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	result := fmt.Sprintf("Found %d folder(s):\n%s", len(folders), rendered)
	return mcp.NewToolResultText(result), nil
}

func handleCreateFolder(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	parentID := ""
	if parentVal, ok := args["parentFolderId"].(string); ok {
		parentID = parentVal
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	folder, err := client.CreateFolder(ctx, name, parentID)
	if err != nil {
		return toolError(sc, "Failed to create folder", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Folder %q created with ID: %s", folder.DisplayName, folder.ID)), nil
}

func handleRenameFolder(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	folderID, ok := args["folderId"].(string)
	if !ok || folderID == "" {
		return mcp.NewToolResultError("folderId is required"), nil
	}
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	folder, err := client.RenameFolder(ctx, folderID, name)
	if err != nil {
		return toolError(sc, "Failed to rename folder", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Folder %s renamed to %q", folder.ID, folder.DisplayName)), nil
}

func handleDeleteFolder(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	folderID, ok := args["folderId"].(string)
	if !ok || folderID == "" {
		return mcp.NewToolResultError("folderId is required"), nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.DeleteFolder(ctx, folderID); err != nil {
		return toolError(sc, "Failed to delete folder", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Folder %s deleted; its contents moved to Deleted Items", folderID)), nil
}

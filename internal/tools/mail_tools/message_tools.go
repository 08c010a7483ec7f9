package mail_tools

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/graphmail/graphmail/internal/graph"
	"github.com/graphmail/graphmail/internal/instrumentation"
	"github.com/graphmail/graphmail/internal/server"
	"github.com/graphmail/graphmail/internal/tools/batch"
	"github.com/graphmail/graphmail/internal/tools/common"
)

// RegisterMessageTools registers message listing, reading and (unless the
// server runs read-only) sending, moving and archiving tools.
func RegisterMessageTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// List messages tool
	listMessagesTool := mcp.NewTool("mail_list_messages",
		mcp.WithDescription("List messages in a mail folder, newest first"),
		mcp.WithString("folder",
			mcp.Description("Well-known folder name ('inbox', 'sentitems', 'drafts', 'deleteditems', 'archive') or a folder ID. Omit to list across the whole mailbox."),
		),
		mcp.WithNumber("top",
			mcp.Description("Number of messages to return (default: 10, max: 100)"),
		),
		mcp.WithString("filter",
			mcp.Description("OData $filter expression (e.g., 'isRead eq false', 'hasAttachments eq true')"),
		),
		mcp.WithString("search",
			mcp.Description("Free-text search over the mailbox (e.g., 'invoice'). Cannot be combined with filter."),
		),
		mcp.WithString("nextLink",
			mcp.Description("Opaque pagination link from a previous result. All other parameters are ignored when set."),
		),
	)

	s.AddTool(listMessagesTool, common.InstrumentedToolHandlerWithOperation(
		"mail_list_messages", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMessages(ctx, request, sc)
		}))

	// Get message tool
	getMessageTool := mcp.NewTool("mail_get_message",
		mcp.WithDescription("Get a single message including its full body"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message"),
		),
	)

	s.AddTool(getMessageTool, common.InstrumentedToolHandlerWithOperation(
		"mail_get_message", instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetMessage(ctx, request, sc)
		}))

	if sc.ReadOnly() {
		return nil
	}

	// Send message tool
	sendMessageTool := mcp.NewTool("mail_send_message",
		mcp.WithDescription("Send a mail message, optionally with file attachments"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient address (string) or array of recipient addresses"),
		),
		mcp.WithString("cc",
			mcp.Description("CC address (string) or array of CC addresses"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Message subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Message body content"),
		),
		mcp.WithString("bodyType",
			mcp.Description("Body content type: 'Text' (default) or 'HTML'"),
		),
		mcp.WithString("attachments",
			mcp.Description("Array of attachments, each {name, contentType, contentBytes} with contentBytes base64-encoded"),
		),
	)

	s.AddTool(sendMessageTool, common.InstrumentedToolHandlerWithOperation(
		"mail_send_message", instrumentation.OperationSend, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendMessage(ctx, request, sc)
		}))

	// Move message tool
	moveMessageTool := mcp.NewTool("mail_move_message",
		mcp.WithDescription("Move a message to another folder"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to move"),
		),
		mcp.WithString("destinationFolderId",
			mcp.Required(),
			mcp.Description("Target folder: a well-known name ('archive', 'deleteditems') or a folder ID"),
		),
	)

	s.AddTool(moveMessageTool, common.InstrumentedToolHandlerWithOperation(
		"mail_move_message", instrumentation.OperationMove, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMoveMessage(ctx, request, sc)
		}))

	// Archive messages tool (supports single or multiple messages)
	archiveMessageTool := mcp.NewTool("mail_archive_message",
		mcp.WithDescription("Archive one or more messages by moving them to the archive folder"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs to archive"),
		),
	)

	s.AddTool(archiveMessageTool, common.InstrumentedToolHandlerWithOperation(
		"mail_archive_message", instrumentation.OperationMove, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleArchiveMessages(ctx, request, sc)
		}))

	return nil
}

func handleListMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	opts := graph.ListMessagesOptions{}
	if folder, ok := args["folder"].(string); ok {
		opts.Folder = folder
	}
	if topVal, ok := args["top"].(float64); ok {
		opts.Top = int(topVal)
	}
	if filter, ok := args["filter"].(string); ok {
		opts.Filter = filter
	}
	if search, ok := args["search"].(string); ok {
		opts.Search = search
	}
	if nextLink, ok := args["nextLink"].(string); ok {
		opts.NextLink = nextLink
	}
	if opts.Filter != "" && opts.Search != "" {
		return mcp.NewToolResultError("filter and search cannot be combined"), nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	page, err := client.ListMessages(ctx, opts)
	if err != nil {
		return toolError(sc, "Failed to list messages", err), nil
	}

	output := struct {
		Count    int                    `json:"count"`
		Messages []graph.MessageSummary `json:"messages"`
		NextLink string                 `json:"nextLink,omitempty"`
	}{
		Count:    len(page.Messages),
		Messages: page.Messages,
		NextLink: page.NextLink,
	}

	rendered, err := renderJSON(output)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(rendered), nil
}

func handleGetMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	msg, err := client.GetMessage(ctx, messageID)
	if err != nil {
		return toolError(sc, "Failed to get message", err), nil
	}

	rendered, err := renderJSON(msg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(rendered), nil
}

func handleSendMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	to, err := batch.ParseStringOrArray(args["to"], "to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var cc []string
	if ccVal, ok := args["cc"]; ok && ccVal != nil {
		cc, err = batch.ParseStringOrArray(ccVal, "cc")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	subject, ok := args["subject"].(string)
	if !ok || subject == "" {
		return mcp.NewToolResultError("subject is required"), nil
	}

	body, ok := args["body"].(string)
	if !ok || body == "" {
		return mcp.NewToolResultError("body is required"), nil
	}

	bodyType := ""
	if bodyTypeVal, ok := args["bodyType"].(string); ok {
		bodyType = bodyTypeVal
	}

	attachments, errResult := parseOutgoingAttachments(args["attachments"])
	if errResult != nil {
		return errResult, nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	out := graph.OutgoingMessage{
		To:          to,
		Cc:          cc,
		Subject:     subject,
		Body:        body,
		BodyType:    bodyType,
		Attachments: attachments,
	}

	if err := client.SendMessage(ctx, out); err != nil {
		return toolError(sc, "Failed to send message", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Message %q sent to %d recipient(s)", subject, len(to)+len(cc))), nil
}

// parseOutgoingAttachments decodes the attachments argument: an array of
// objects with name, contentType and base64 contentBytes.
func parseOutgoingAttachments(param interface{}) ([]graph.OutgoingAttachment, *mcp.CallToolResult) {
	if param == nil {
		return nil, nil
	}

	items, ok := param.([]interface{})
	if !ok {
		return nil, mcp.NewToolResultError("attachments must be an array of objects")
	}

	attachments := make([]graph.OutgoingAttachment, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, mcp.NewToolResultError(fmt.Sprintf("attachments[%d] must be an object", i))
		}

		name, _ := obj["name"].(string)
		if name == "" {
			return nil, mcp.NewToolResultError(fmt.Sprintf("attachments[%d].name is required", i))
		}

		contentType, _ := obj["contentType"].(string)

		encoded, _ := obj["contentBytes"].(string)
		if encoded == "" {
			return nil, mcp.NewToolResultError(fmt.Sprintf("attachments[%d].contentBytes is required", i))
		}
		content, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("attachments[%d].contentBytes is not valid base64: %v", i, err))
		}

		attachments = append(attachments, graph.OutgoingAttachment{
			Name:        name,
			ContentType: contentType,
			Content:     content,
		})
	}

	return attachments, nil
}

func handleMoveMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	destinationID, ok := args["destinationFolderId"].(string)
	if !ok || destinationID == "" {
		return mcp.NewToolResultError("destinationFolderId is required"), nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	moved, err := client.MoveMessage(ctx, messageID, destinationID)
	if err != nil {
		return toolError(sc, "Failed to move message", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Message moved, new ID: %s", moved.ID)), nil
}

func handleArchiveMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageIDs, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	results := batch.ProcessBatch(ctx, messageIDs, func(ctx context.Context, messageID string) (string, error) {
		moved, err := client.ArchiveMessage(ctx, messageID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("archived, new ID: %s", moved.ID), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

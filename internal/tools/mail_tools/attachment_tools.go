package mail_tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/graphmail/graphmail/internal/graph"
	"github.com/graphmail/graphmail/internal/instrumentation"
	"github.com/graphmail/graphmail/internal/pdf"
	"github.com/graphmail/graphmail/internal/server"
	"github.com/graphmail/graphmail/internal/tools/common"
)

// RegisterAttachmentTools registers attachment-related tools with the MCP server
func RegisterAttachmentTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// List attachments tool
	listAttachmentsTool := mcp.NewTool("mail_list_attachments",
		mcp.WithDescription("List all attachments of a message"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message"),
		),
	)

	s.AddTool(listAttachmentsTool, common.InstrumentedToolHandlerWithOperation(
		"mail_list_attachments", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAttachments(ctx, request, sc)
		}))

	// Get attachment tool
	getAttachmentTool := mcp.NewTool("mail_get_attachment",
		mcp.WithDescription("Get the raw content of an attachment"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message"),
		),
		mcp.WithString("attachmentId",
			mcp.Required(),
			mcp.Description("The ID of the attachment"),
		),
		mcp.WithString("encoding",
			mcp.Description("Encoding format: 'base64' (default) or 'text'"),
		),
	)

	s.AddTool(getAttachmentTool, common.InstrumentedToolHandlerWithOperation(
		"mail_get_attachment", instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAttachment(ctx, request, sc)
		}))

	// Extract attachment text tool
	getAttachmentTextTool := mcp.NewTool("mail_get_attachment_text",
		mcp.WithDescription("Extract plain text from a PDF attachment"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message"),
		),
		mcp.WithString("attachmentId",
			mcp.Required(),
			mcp.Description("The ID of the attachment"),
		),
	)

	s.AddTool(getAttachmentTextTool, common.InstrumentedToolHandlerWithOperation(
		"mail_get_attachment_text", instrumentation.OperationExtract, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAttachmentText(ctx, request, sc)
		}))

	return nil
}

func handleListAttachments(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	attachments, err := client.ListAttachments(ctx, messageID)
	if err != nil {
		return toolError(sc, "Failed to list attachments", err), nil
	}

	if len(attachments) == 0 {
		return mcp.NewToolResultText("No attachments found in message"), nil
	}

	type attachmentOutput struct {
		AttachmentID string `json:"attachmentId"`
		Name         string `json:"name"`
		ContentType  string `json:"contentType"`
		Size         int64  `json:"size"`
		SizeHuman    string `json:"sizeHuman"`
		IsInline     bool   `json:"isInline"`
	}

	outputs := make([]attachmentOutput, len(attachments))
	for i, att := range attachments {
		outputs[i] = attachmentOutput{
			AttachmentID: att.ID,
			Name:         att.Name,
			ContentType:  att.ContentType,
			Size:         att.Size,
			SizeHuman:    formatSize(att.Size),
			IsInline:     att.IsInline,
		}
	}

	rendered, err := renderJSON(outputs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	result := fmt.Sprintf("Found %d attachment(s):\n%s", len(attachments), rendered)
	return mcp.NewToolResultText(result), nil
}

func handleGetAttachment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	attachmentID, ok := args["attachmentId"].(string)
	if !ok || attachmentID == "" {
		return mcp.NewToolResultError("attachmentId is required"), nil
	}

	encoding := "base64"
	if encodingVal, ok := args["encoding"].(string); ok && encodingVal != "" {
		encoding = encodingVal
	}
	if encoding != "base64" && encoding != "text" {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid encoding '%s', must be 'base64' or 'text'", encoding)), nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	att, content, err := client.GetAttachment(ctx, messageID, attachmentID)
	if err != nil {
		return toolError(sc, "Failed to get attachment", err), nil
	}

	switch encoding {
	case "text":
		result := fmt.Sprintf("Attachment %q (%s, %d bytes):\n%s", att.Name, att.ContentType, len(content), string(content))
		return mcp.NewToolResultText(result), nil
	default:
		encoded := base64.StdEncoding.EncodeToString(content)
		result := fmt.Sprintf("Attachment %q (%s, %d bytes, base64):\n%s", att.Name, att.ContentType, len(content), encoded)
		return mcp.NewToolResultText(result), nil
	}
}

func handleGetAttachmentText(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	attachmentID, ok := args["attachmentId"].(string)
	if !ok || attachmentID == "" {
		return mcp.NewToolResultError("attachmentId is required"), nil
	}

	client, errResult := requireClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	att, content, err := client.GetAttachment(ctx, messageID, attachmentID)
	if err != nil {
		return toolError(sc, "Failed to get attachment", err), nil
	}

	result, err := pdf.ExtractText(content, att.ContentType)
	if err != nil {
		if errors.Is(err, pdf.ErrUnsupportedType) {
			kindErr := graph.NewError(graph.KindUnsupportedAttachment,
				"attachment %q is not a PDF (%s), text extraction only supports PDF attachments", att.Name, att.ContentType)
			return mcp.NewToolResultError(kindErr.Error()), nil
		}
		return toolError(sc, "Failed to extract text", err), nil
	}

	output := struct {
		Name       string   `json:"name"`
		Success    bool     `json:"success"`
		Pages      int      `json:"pages"`
		PageErrors []string `json:"pageErrors,omitempty"`
		Reason     string   `json:"reason,omitempty"`
		Text       string   `json:"text,omitempty"`
	}{
		Name:       att.Name,
		Success:    result.Success,
		Pages:      result.Pages,
		PageErrors: result.PageErrors,
		Reason:     result.Reason,
		Text:       result.Text,
	}

	rendered, err := renderJSON(output)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(rendered), nil
}

package graph

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
)

// ListAttachments returns the attachment metadata of a message, without
// content bytes.
func (c *Client) ListAttachments(ctx context.Context, messageID string) ([]Attachment, error) {
	if messageID == "" {
		return nil, NewError(KindMalformedInput, "message id is required")
	}
	var env listEnvelope[Attachment]
	path := "messages/" + url.PathEscape(messageID) + "/attachments"
	query := url.Values{}
	query.Set("$select", "id,name,contentType,size,isInline")
	if err := c.do(ctx, http.MethodGet, path, query, nil, &env); err != nil {
		return nil, err
	}
	return env.Value, nil
}

// GetAttachment fetches a single attachment with its content. The returned
// bytes are decoded from the Graph base64 representation.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) (*Attachment, []byte, error) {
	if messageID == "" || attachmentID == "" {
		return nil, nil, NewError(KindMalformedInput, "message id and attachment id are required")
	}
	var att Attachment
	path := "messages/" + url.PathEscape(messageID) + "/attachments/" + url.PathEscape(attachmentID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &att); err != nil {
		return nil, nil, err
	}
	if att.ContentBytes == "" {
		// Item and reference attachments carry no file content.
		return &att, nil, NewError(KindUnsupportedAttachment,
			"attachment %q has no downloadable content", att.Name)
	}
	content, err := base64.StdEncoding.DecodeString(att.ContentBytes)
	if err != nil {
		return nil, nil, WrapError(KindUnsupportedAttachment, err,
			"attachment %q content is not valid base64", att.Name)
	}
	att.ContentBytes = ""
	return &att, content, nil
}

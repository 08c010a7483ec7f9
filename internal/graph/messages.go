package graph

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// defaultListTop is the page size used when the caller does not ask
	// for a specific count.
	defaultListTop = 10
	// maxListTop is the largest page size Graph serves per request.
	maxListTop = 100
)

// listSelectFields keeps message listings small; bodies are fetched
// per-message through GetMessage.
var listSelectFields = strings.Join([]string{
	"id", "subject", "from", "toRecipients", "receivedDateTime",
	"isRead", "hasAttachments", "bodyPreview",
}, ",")

// ListMessagesOptions narrows a ListMessages call.
type ListMessagesOptions struct {
	// Folder is a well-known folder name ("inbox", "sentitems", ...) or a
	// folder ID. Empty lists across the whole mailbox.
	Folder string
	// Top is the page size; zero means defaultListTop.
	Top int
	// Filter is a raw OData $filter expression, e.g. "isRead eq false".
	Filter string
	// Search is a Graph $search term; mutually exclusive with Filter and
	// ordering per Graph semantics.
	Search string
	// NextLink continues a previous page; all other fields are ignored
	// when set.
	NextLink string
}

// ListMessages returns one page of messages, newest first.
func (c *Client) ListMessages(ctx context.Context, opts ListMessagesOptions) (*MessagePage, error) {
	var env listEnvelope[MessageSummary]

	if opts.NextLink != "" {
		if err := c.doAbsolute(ctx, opts.NextLink, &env); err != nil {
			return nil, err
		}
		return &MessagePage{Messages: env.Value, NextLink: env.NextLink}, nil
	}

	top := opts.Top
	if top <= 0 {
		top = defaultListTop
	}
	if top > maxListTop {
		return nil, NewError(KindMalformedInput, "top must be at most %d, got %d", maxListTop, top)
	}

	path := "messages"
	if opts.Folder != "" {
		path = "mailFolders/" + url.PathEscape(opts.Folder) + "/messages"
	}

	query := url.Values{}
	query.Set("$top", strconv.Itoa(top))
	query.Set("$select", listSelectFields)
	switch {
	case opts.Search != "":
		query.Set("$search", fmt.Sprintf("%q", opts.Search))
	default:
		query.Set("$orderby", "receivedDateTime DESC")
		if opts.Filter != "" {
			query.Set("$filter", opts.Filter)
		}
	}

	if err := c.do(ctx, http.MethodGet, path, query, nil, &env); err != nil {
		return nil, err
	}
	return &MessagePage{Messages: env.Value, NextLink: env.NextLink}, nil
}

// doAbsolute follows an @odata.nextLink, which is already a complete URL.
// The link must point at the configured Graph endpoint and address the
// mailbox, though Graph may escape the address differently than we do.
func (c *Client) doAbsolute(ctx context.Context, link string, out any) error {
	if !strings.HasPrefix(link, c.baseURL) {
		return NewError(KindMalformedInput, "next link does not match the graph endpoint")
	}
	u, err := url.Parse(link)
	if err != nil {
		return NewError(KindMalformedInput, "malformed next link")
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return NewError(KindMalformedInput, "malformed graph endpoint")
	}

	rel := strings.TrimPrefix(strings.TrimPrefix(u.EscapedPath(), base.EscapedPath()), "/")
	seg := strings.SplitN(rel, "/", 3)
	switch {
	case len(seg) > 1 && seg[0] == "me":
		rel = strings.Join(seg[1:], "/")
	case len(seg) > 2 && seg[0] == "users":
		rel = seg[2]
	default:
		return NewError(KindMalformedInput, "next link does not address the mailbox")
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return NewError(KindMalformedInput, "malformed next link")
	}
	return c.do(ctx, http.MethodGet, rel, query, nil, out)
}

// GetMessage fetches a full message, body included.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	if messageID == "" {
		return nil, NewError(KindMalformedInput, "message id is required")
	}
	var msg Message
	if err := c.do(ctx, http.MethodGet, "messages/"+url.PathEscape(messageID), nil, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendMessage sends a message through the mailbox. Graph accepts the send
// and returns 202 without a message ID.
func (c *Client) SendMessage(ctx context.Context, out OutgoingMessage) error {
	if len(out.To) == 0 {
		return NewError(KindMalformedInput, "at least one recipient is required")
	}
	for _, addr := range append(append([]string{}, out.To...), out.Cc...) {
		if !strings.Contains(addr, "@") {
			return NewError(KindMalformedInput, "invalid recipient address %q", addr)
		}
	}

	bodyType := out.BodyType
	if bodyType == "" {
		bodyType = "Text"
	}

	message := map[string]any{
		"subject": out.Subject,
		"body": ItemBody{
			ContentType: bodyType,
			Content:     out.Body,
		},
		"toRecipients": recipients(out.To),
	}
	if len(out.Cc) > 0 {
		message["ccRecipients"] = recipients(out.Cc)
	}
	if len(out.Attachments) > 0 {
		attachments := make([]map[string]any, 0, len(out.Attachments))
		for _, a := range out.Attachments {
			attachments = append(attachments, map[string]any{
				"@odata.type":  "#microsoft.graph.fileAttachment",
				"name":         a.Name,
				"contentType":  a.ContentType,
				"contentBytes": base64.StdEncoding.EncodeToString(a.Content),
			})
		}
		message["attachments"] = attachments
	}

	payload := map[string]any{
		"message":         message,
		"saveToSentItems": true,
	}
	return c.do(ctx, http.MethodPost, "sendMail", nil, payload, nil)
}

// MoveMessage moves a message into the destination folder, which may be a
// well-known name or a folder ID. Graph returns the moved copy with its
// new ID.
func (c *Client) MoveMessage(ctx context.Context, messageID, destinationID string) (*Message, error) {
	if messageID == "" || destinationID == "" {
		return nil, NewError(KindMalformedInput, "message id and destination folder are required")
	}
	payload := map[string]string{"destinationId": destinationID}
	var moved Message
	path := "messages/" + url.PathEscape(messageID) + "/move"
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &moved); err != nil {
		return nil, err
	}
	return &moved, nil
}

// ArchiveMessage moves a message into the well-known archive folder.
func (c *Client) ArchiveMessage(ctx context.Context, messageID string) (*Message, error) {
	return c.MoveMessage(ctx, messageID, "archive")
}

// GetProfile fetches the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	query := url.Values{}
	query.Set("$select", "id,displayName,mail,userPrincipalName,jobTitle,officeLocation")
	if err := c.do(ctx, http.MethodGet, "", query, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func recipients(addrs []string) []Recipient {
	out := make([]Recipient, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, Recipient{EmailAddress: EmailAddress{Address: a}})
	}
	return out
}

package graph

import (
	"context"
	"net/http"
	"net/url"
)

// ListFolders returns the top-level mail folders of the mailbox.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var env listEnvelope[Folder]
	query := url.Values{}
	query.Set("$top", "100")
	if err := c.do(ctx, http.MethodGet, "mailFolders", query, nil, &env); err != nil {
		return nil, err
	}
	return env.Value, nil
}

// GetFolder fetches a single folder by well-known name or ID.
func (c *Client) GetFolder(ctx context.Context, folderID string) (*Folder, error) {
	if folderID == "" {
		return nil, NewError(KindMalformedInput, "folder id is required")
	}
	var f Folder
	if err := c.do(ctx, http.MethodGet, "mailFolders/"+url.PathEscape(folderID), nil, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFolder creates a mail folder with the given display name. A non-empty
// parentID creates it as a child of that folder, otherwise at the top level.
func (c *Client) CreateFolder(ctx context.Context, displayName, parentID string) (*Folder, error) {
	if displayName == "" {
		return nil, NewError(KindMalformedInput, "folder name is required")
	}
	path := "mailFolders"
	if parentID != "" {
		path = "mailFolders/" + url.PathEscape(parentID) + "/childFolders"
	}
	payload := map[string]string{"displayName": displayName}
	var f Folder
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// RenameFolder changes the display name of a folder.
func (c *Client) RenameFolder(ctx context.Context, folderID, displayName string) (*Folder, error) {
	if folderID == "" {
		return nil, NewError(KindMalformedInput, "folder id is required")
	}
	if displayName == "" {
		return nil, NewError(KindMalformedInput, "folder name is required")
	}
	payload := map[string]string{"displayName": displayName}
	var f Folder
	if err := c.do(ctx, http.MethodPatch, "mailFolders/"+url.PathEscape(folderID), nil, payload, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFolder removes a folder and everything in it. Graph moves the
// contents to Deleted Items rather than destroying them outright.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	if folderID == "" {
		return NewError(KindMalformedInput, "folder id is required")
	}
	return c.do(ctx, http.MethodDelete, "mailFolders/"+url.PathEscape(folderID), nil, nil, nil)
}

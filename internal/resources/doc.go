// Package resources provides MCP resources exposing mailbox context.
// Resources are read-only data sources that MCP clients can fetch, such as
// the server configuration status and the signed-in user's profile.
package resources

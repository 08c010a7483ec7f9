// Package cmd implements the command-line interface for graphmail.
//
// This package provides the following commands:
//   - serve: Start the MCP server to provide mail tools for AI assistants
//   - login: Run the interactive Microsoft OAuth2 flow and cache the token
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd

// Package batch provides common utilities for batch operations across the MCP tools.
//
// This package includes helpers for:
//   - Parsing parameters that accept both single values and arrays
//   - Formatting batch results in a consistent structure
//   - Processing per-message operations with partial-failure reporting
package batch

// Package server provides the MCP server context, transports and health
// endpoints for the graphmail application.
//
// # Key Components
//
// ServerContext owns the single-mailbox dependencies: configuration, the
// Microsoft token manager and a lazily created Graph client. The client is
// cached after first use and safe for concurrent tool handlers.
//
// HTTPServer exposes the MCP server over SSE (/sse + /message) or
// streamable HTTP (/mcp), with Kubernetes-style health endpoints
// (/healthz, /readyz) on the same listener. Stdio transport is served
// directly by the serve command.
//
// MetricsServer serves Prometheus metrics on a dedicated port, keeping
// operational metrics off the MCP listener.
package server

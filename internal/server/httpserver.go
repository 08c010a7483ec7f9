package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/graphmail/graphmail/internal/instrumentation"
)

// Transport names accepted by the serve command.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// HTTPServer exposes an MCP server over SSE or streamable HTTP, together
// with the health endpoints.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	metrics    *instrumentation.Metrics
	transport  string
	httpServer *http.Server
}

// NewHTTPServer creates an HTTP transport wrapper for the MCP server.
// Transport must be TransportSSE or TransportStreamableHTTP. The metrics
// recorder may be nil.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, transport string, health *HealthChecker, metrics *instrumentation.Metrics) (*HTTPServer, error) {
	switch transport {
	case TransportSSE, TransportStreamableHTTP:
	default:
		return nil, fmt.Errorf("unsupported transport: %s", transport)
	}
	return &HTTPServer{
		mcpServer: mcpServer,
		health:    health,
		metrics:   metrics,
		transport: transport,
	}, nil
}

// Start starts the HTTP server and blocks until it stops.
func (s *HTTPServer) Start(addr string) error {
	mux := http.NewServeMux()

	switch s.transport {
	case TransportSSE:
		sseServer := mcpserver.NewSSEServer(s.mcpServer,
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
		)
		mux.Handle("/sse", s.instrument("/sse", s.trackSessions(sseServer)))
		mux.Handle("/message", s.instrument("/message", sseServer))

	case TransportStreamableHTTP:
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)
		mux.Handle("/mcp", s.instrument("/mcp", httpServer))
	}

	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	}

	// No WriteTimeout: SSE responses stream indefinitely.
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// instrument wraps a handler with HTTP request metrics.
func (s *HTTPServer) instrument(path string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

// trackSessions counts in-flight SSE streams as active sessions. The SSE
// handler blocks for the lifetime of the stream, so in-flight requests map
// one to one onto connected clients.
func (s *HTTPServer) trackSessions(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncrementActiveSessions(r.Context())
		defer s.metrics.DecrementActiveSessions(r.Context())
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush passes flushes through so SSE streaming keeps working behind the
// metrics wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

package server

import (
	"context"
	"sync"

	"github.com/graphmail/graphmail/internal/config"
	"github.com/graphmail/graphmail/internal/graph"
	"github.com/graphmail/graphmail/internal/instrumentation"
	"github.com/graphmail/graphmail/internal/msauth"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg      *config.Config
	auth     *msauth.Manager
	readOnly bool

	provider *instrumentation.Provider
	audit    *instrumentation.AuditLogger

	mu       sync.RWMutex
	client   *graph.Client
	shutdown bool
}

// NewServerContext creates a new server context. The Graph client is
// created lazily so the server starts even before the user has logged in.
func NewServerContext(ctx context.Context, cfg *config.Config, readOnly bool) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		cfg:      cfg,
		auth:     msauth.NewManager(cfg),
		readOnly: readOnly,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the server configuration
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// AuthManager returns the token manager
func (sc *ServerContext) AuthManager() *msauth.Manager {
	return sc.auth
}

// ReadOnly reports whether write tools are disabled
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// GraphClient returns the Graph client, creating and caching it on first
// use. The client itself acquires tokens per request, so creation never
// requires a valid token.
func (sc *ServerContext) GraphClient() *graph.Client {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.client == nil {
		sc.client = graph.NewClient(sc.auth, sc.cfg.UserEmail,
			graph.WithRetryObserver(func(cause string) {
				if m := sc.Metrics(); m != nil {
					m.RecordGraphRetry(context.Background(), cause)
				}
			}))
	}
	return sc.client
}

// SetGraphClient replaces the Graph client. Used by tests.
func (sc *ServerContext) SetGraphClient(client *graph.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.client = client
}

// SetInstrumentation attaches the observability provider and audit logger,
// and feeds token refresh outcomes into the refresh counter.
func (sc *ServerContext) SetInstrumentation(provider *instrumentation.Provider, audit *instrumentation.AuditLogger) {
	sc.mu.Lock()
	sc.provider = provider
	sc.audit = audit
	sc.mu.Unlock()

	if provider == nil {
		sc.auth.OnRefresh(nil)
		return
	}
	metrics := provider.Metrics()
	sc.auth.OnRefresh(func(result string) {
		metrics.RecordOAuthTokenRefresh(context.Background(), result)
	})
}

// Instrumentation returns the observability provider, or nil when metrics
// are disabled.
func (sc *ServerContext) Instrumentation() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.provider
}

// Metrics returns the metrics recorder, or nil when metrics are disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.provider == nil {
		return nil
	}
	return sc.provider.Metrics()
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.audit
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

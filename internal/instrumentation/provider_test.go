package instrumentation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledConfig() Config {
	return Config{
		ServiceName:     "graphmail-test",
		ServiceVersion:  "0.0.1",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	}
}

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	require.NotNil(t, provider.Metrics(), "disabled provider still hands out a recorder")
	assert.NotNil(t, provider.Tracer("test"))
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderPrometheus(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, enabledConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	assert.True(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("test"))
}

func TestNewProviderRejectsUnknownExporters(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown metrics exporter",
			mutate:  func(c *Config) { c.MetricsExporter = "statsd" },
			wantErr: "unknown metrics exporter",
		},
		{
			name:    "stdout metrics exporter",
			mutate:  func(c *Config) { c.MetricsExporter = "stdout" },
			wantErr: "unknown metrics exporter",
		},
		{
			name:    "unknown tracing exporter",
			mutate:  func(c *Config) { c.TracingExporter = "jaeger" },
			wantErr: "unknown tracing exporter",
		},
		{
			name:    "stdout tracing exporter",
			mutate:  func(c *Config) { c.TracingExporter = "stdout" },
			wantErr: "unknown tracing exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := enabledConfig()
			tt.mutate(&cfg)
			_, err := NewProvider(context.Background(), cfg)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewProviderOTLPNeedsEndpoint(t *testing.T) {
	cfg := enabledConfig()
	cfg.MetricsExporter = ExporterOTLP
	_, err := NewProvider(context.Background(), cfg)
	assert.ErrorContains(t, err, "OTEL_EXPORTER_OTLP_ENDPOINT")

	cfg = enabledConfig()
	cfg.TracingExporter = ExporterOTLP
	_, err = NewProvider(context.Background(), cfg)
	assert.ErrorContains(t, err, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func TestProviderShutdown(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, enabledConfig())
	require.NoError(t, err)
	require.NoError(t, provider.Shutdown(ctx))
}

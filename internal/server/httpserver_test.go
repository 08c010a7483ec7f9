package server

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackSessionsWithoutMetrics(t *testing.T) {
	s := &HTTPServer{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	wrapped := s.trackSessions(next)
	assert.Equal(t, reflect.ValueOf(http.Handler(next)).Pointer(), reflect.ValueOf(wrapped).Pointer(), "nil metrics must not add a wrapper")
}

func TestTrackSessionsCountsInFlightStreams(t *testing.T) {
	provider := newMetricsProvider(t, true)
	s := &HTTPServer{metrics: provider.Metrics()}

	var served bool
	wrapped := s.trackSessions(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sse", nil))

	require.True(t, served)
	assert.Equal(t, http.StatusOK, rec.Code)
}

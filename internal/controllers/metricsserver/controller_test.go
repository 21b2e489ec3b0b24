package metricsserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/chrissnell/trafficdash/internal/observability"
	"github.com/chrissnell/trafficdash/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestController(t *testing.T, readyErr error) (*Controller, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	var wg sync.WaitGroup
	ready := ReadinessFunc(func(context.Context) error { return readyErr })
	c, err := NewController(context.Background(), &wg, config.MetricsData{}, m.Registry, ready, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c, m
}

func serve(c *Controller, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDefaultAddr(t *testing.T) {
	c, _ := newTestController(t, nil)
	assert.Equal(t, "0.0.0.0:9090", c.Server.Addr)
}

func TestHealthz(t *testing.T) {
	c, _ := newTestController(t, nil)
	rec := serve(c, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
	}{
		{"ready", nil, http.StatusOK, "ready"},
		{"not ready", errors.New("dataset not loaded"), http.StatusServiceUnavailable, "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController(t, tt.err)
			rec := serve(c, "/readyz")

			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), body["error"])
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	c, m := newTestController(t, nil)
	m.ObserveDatasetLoaded(48204)

	rec := serve(c, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trafficdash_dataset_rows 48204")
}

func TestNewControllerRequiresGatherer(t *testing.T) {
	var wg sync.WaitGroup
	_, err := NewController(context.Background(), &wg, config.MetricsData{}, nil, nil, nil)
	assert.Error(t, err)
}

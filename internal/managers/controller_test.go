package managers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/trafficdash/internal/controllers/dashboardserver"
	"github.com/chrissnell/trafficdash/internal/controllers/metricsserver"
	"github.com/chrissnell/trafficdash/internal/dashboard"
	"github.com/chrissnell/trafficdash/internal/observability"
	"github.com/chrissnell/trafficdash/internal/traffic"
	"github.com/chrissnell/trafficdash/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDeps() Dependencies {
	ts := time.Date(2016, 3, 1, 8, 0, 0, 0, time.UTC)
	rec := traffic.NewRecord(ts, 4200, "Clear", []string{"Clear", "2016-03-01 08:00:00", "4200"})
	ds := traffic.NewDataset("t.csv", []string{"weather_main", "date_time", "traffic_volume"}, []traffic.Record{rec}, ts)
	return Dependencies{
		Pipeline: dashboard.New(ds, dashboard.Options{}),
		Metrics:  observability.NewMetricsForTesting(),
	}
}

func TestCreateControllers(t *testing.T) {
	var wg sync.WaitGroup
	controllers := []config.ControllerData{
		{Type: config.ControllerTypeDashboard, Dashboard: &config.DashboardData{Port: 8081}},
		{Type: config.ControllerTypeMetrics},
	}

	cm, err := NewControllerManager(context.Background(), &wg, controllers, testDeps(), zap.NewNop().Sugar())
	require.NoError(t, err)

	m := cm.(*controllerManager)
	require.Len(t, m.controllers, 2)

	dash, ok := m.controllers[0].(*dashboardserver.Controller)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8081", dash.Server.Addr)

	metrics, ok := m.controllers[1].(*metricsserver.Controller)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:9090", metrics.Server.Addr)
}

func TestCreateControllerErrors(t *testing.T) {
	tests := []struct {
		name string
		cc   config.ControllerData
		deps Dependencies
	}{
		{"unknown type", config.ControllerData{Type: "wunderground"}, testDeps()},
		{"dashboard without pipeline", config.ControllerData{Type: config.ControllerTypeDashboard}, Dependencies{}},
		{"metrics without registry", config.ControllerData{Type: config.ControllerTypeMetrics}, Dependencies{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wg sync.WaitGroup
			_, err := NewControllerManager(context.Background(), &wg, []config.ControllerData{tt.cc}, tt.deps, zap.NewNop().Sugar())
			assert.Error(t, err)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
dataset:
  path: /data/metro.csv
  location: America/Chicago
  timestamp-layouts:
    - "2006-01-02 15:04:05"
logging:
  file: /var/log/trafficdash.log
  max-backups: 7
controllers:
  - type: dashboard
    dashboard:
      port: 8181
      page-title: Metro Traffic
  - type: metrics
`

func TestYAMLProviderLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	p := NewYAMLProvider(path)
	cfg, err := p.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/metro.csv", cfg.Dataset.Path)
	assert.Equal(t, "America/Chicago", cfg.Dataset.Location)
	assert.Equal(t, DefaultTimestampColumn, cfg.Dataset.TimestampColumn)
	assert.Equal(t, []string{"2006-01-02 15:04:05"}, cfg.Dataset.TimestampLayouts)

	assert.Equal(t, 7, cfg.Logging.MaxBackups)
	assert.Equal(t, DefaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)

	require.Len(t, cfg.Controllers, 2)
	dash := cfg.Dashboard()
	require.NotNil(t, dash)
	assert.Equal(t, 8181, dash.Port)
	assert.Equal(t, "Metro Traffic", dash.PageTitle)
	assert.Equal(t, DefaultPreviewRows, dash.PreviewRows)
	require.NotNil(t, cfg.Controllers[1].Metrics)
	assert.Equal(t, DefaultMetricsPort, cfg.Controllers[1].Metrics.Port)

	ds, err := p.GetDataset()
	require.NoError(t, err)
	assert.Equal(t, cfg.Dataset, *ds)
	assert.True(t, p.IsReadOnly())
}

func TestYAMLProviderRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataset:\n  pth: typo.csv\n"), 0o644))

	_, err := NewYAMLProvider(path).LoadConfig()
	assert.Error(t, err)
}

func TestYAMLProviderMissingFile(t *testing.T) {
	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "nope.yaml")).LoadConfig()
	assert.True(t, os.IsNotExist(err), "got %v", err)
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	require.NoError(t, err)
	defer p.Close()

	want := &ConfigData{
		Dataset: DatasetData{
			Path:             "/data/metro.csv",
			TimestampLayouts: []string{"2006-01-02 15:04:05", "2006-01-02"},
			Delimiter:        ";",
		},
		Logging: LoggingData{File: "/tmp/td.log", MaxSizeMB: 5},
		Controllers: []ControllerData{
			{Type: ControllerTypeDashboard, Dashboard: &DashboardData{Port: 8181, PreviewRows: 20}},
			{Type: ControllerTypeMetrics, Metrics: &MetricsData{Port: 9191, ListenAddr: "127.0.0.1"}},
		},
	}
	require.NoError(t, p.SaveConfig(want))

	got, err := p.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, got.Validate())

	assert.Equal(t, "/data/metro.csv", got.Dataset.Path)
	assert.Equal(t, want.Dataset.TimestampLayouts, got.Dataset.TimestampLayouts)
	assert.Equal(t, ";", got.Dataset.Delimiter)
	assert.Equal(t, DefaultWeatherColumn, got.Dataset.WeatherColumn)
	assert.Equal(t, 5, got.Logging.MaxSizeMB)
	assert.Equal(t, DefaultLogMaxBackups, got.Logging.MaxBackups)

	require.Len(t, got.Controllers, 2)
	assert.Equal(t, 8181, got.Dashboard().Port)
	assert.Equal(t, 20, got.Dashboard().PreviewRows)
	assert.Equal(t, DefaultPageTitle, got.Dashboard().PageTitle)
	assert.Equal(t, 9191, got.Controllers[1].Metrics.Port)
	assert.Equal(t, "127.0.0.1", got.Controllers[1].Metrics.ListenAddr)
	assert.False(t, p.IsReadOnly())
}

func TestSQLiteProviderEmptyDatabase(t *testing.T) {
	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer p.Close()

	ds, err := p.GetDataset()
	require.NoError(t, err)
	assert.Equal(t, DefaultDatasetData(), *ds)

	cfg, err := p.LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.Controllers)
	assert.Error(t, cfg.Validate())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultDatasetPath, cfg.Dataset.Path)
	require.NotNil(t, cfg.Dashboard())
	assert.Equal(t, DefaultDashboardPort, cfg.Dashboard().Port)
	assert.Equal(t, DefaultPageTitle, cfg.Dashboard().PageTitle)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ConfigData)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *ConfigData) {}},
		{name: "bad delimiter", mutate: func(c *ConfigData) { c.Dataset.Delimiter = "::" }, wantErr: true},
		{name: "bad location", mutate: func(c *ConfigData) { c.Dataset.Location = "Mars/Olympus" }, wantErr: true},
		{name: "no controllers", mutate: func(c *ConfigData) { c.Controllers = nil }, wantErr: true},
		{name: "unknown controller", mutate: func(c *ConfigData) {
			c.Controllers = append(c.Controllers, ControllerData{Type: "grpc"})
		}, wantErr: true},
		{name: "duplicate controller", mutate: func(c *ConfigData) {
			c.Controllers = append(c.Controllers, c.Controllers[0])
		}, wantErr: true},
		{name: "port out of range", mutate: func(c *ConfigData) { c.Dashboard().Port = 70000 }, wantErr: true},
		{name: "cert without key", mutate: func(c *ConfigData) { c.Dashboard().Cert = "server.crt" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSQLiteProviderReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.db")

	p, err := NewSQLiteProvider(path)
	require.NoError(t, err)
	require.NoError(t, p.SaveConfig(DefaultConfig()))
	require.NoError(t, p.Close())

	// Migrations already applied; the saved rows survive
	p, err = NewSQLiteProvider(path)
	require.NoError(t, err)
	defer p.Close()

	got, err := p.LoadConfig()
	require.NoError(t, err)
	require.Len(t, got.Controllers, 1)
	assert.Equal(t, ControllerTypeDashboard, got.Controllers[0].Type)
}

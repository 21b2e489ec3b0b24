package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/trafficdash/internal/traffic"
	"github.com/chrissnell/trafficdash/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sample = `holiday,temp,rain_1h,snow_1h,clouds_all,weather_main,weather_description,date_time,traffic_volume
None,288.28,0.0,0.0,40,Clouds,scattered clouds,2012-10-02 09:00:00,5545
None,289.36,0.0,0.0,75,Clouds,broken clouds,2012-10-02 10:00:00,4516
None,289.58,0.0,0.0,90,Clear,sky is clear,2013-10-05 11:00:00,4767
`

func testConfig(t *testing.T) *config.ConfigData {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traffic.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg := config.DefaultConfig()
	cfg.Dataset.Path = path
	cfg.Controllers[0].Dashboard.PreviewRows = 2
	return cfg
}

func TestPipeline(t *testing.T) {
	a := New(testConfig(t), zap.NewNop().Sugar())

	p, err := a.Pipeline(context.Background())
	require.NoError(t, err)

	choices := p.Choices()
	assert.Equal(t, []int{2012, 2013}, choices.Years)
	assert.Equal(t, 2012, choices.Default.Year)

	v, err := p.Evaluate(choices.Default)
	require.NoError(t, err)
	assert.Equal(t, 2, v.RowCount)
	assert.Len(t, v.Preview.Rows, 2)
	assert.Equal(t, 1, a.cache.Len())
}

func TestPipelineMissingDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dataset.Path = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(cfg, zap.NewNop().Sugar()).Pipeline(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, traffic.ErrDataUnavailable))
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Controllers[0].Dashboard.ListenAddr = "127.0.0.1"
	cfg.Controllers[0].Dashboard.Port = 18089

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.NoError(t, New(cfg, zap.NewNop().Sugar()).Run(ctx))
}

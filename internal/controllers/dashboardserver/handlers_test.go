package dashboardserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/trafficdash/internal/dashboard"
	"github.com/chrissnell/trafficdash/internal/excel"
	"github.com/chrissnell/trafficdash/internal/traffic"
	"github.com/chrissnell/trafficdash/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type recordingCharts struct {
	mu       sync.Mutex
	outcomes map[string]string
}

func (r *recordingCharts) ObserveChartRender(chart, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]string{}
	}
	r.outcomes[chart] = outcome
}

func testPipeline() *dashboard.Pipeline {
	cols := []string{"holiday", "weather_main", "date_time", "traffic_volume"}
	labels := []string{"Clouds", "Clear", "Rain"}
	start := time.Date(2017, 11, 1, 0, 0, 0, 0, time.UTC)

	var recs []traffic.Record
	for i := 0; i < 900; i++ {
		ts := start.Add(time.Duration(i) * 2 * time.Hour)
		wx := labels[i%len(labels)]
		vol := float64(500 + (i%24)*100)
		fields := []string{"None", wx, ts.Format("2006-01-02 15:04:05"), "0"}
		recs = append(recs, traffic.NewRecord(ts, vol, wx, fields))
	}
	return dashboard.New(traffic.NewDataset("test.csv", cols, recs, start), dashboard.Options{})
}

func newTestController(t *testing.T, charts dashboard.ChartObserver) (*Controller, http.Handler) {
	t.Helper()
	var wg sync.WaitGroup
	dc := config.DashboardData{PageTitle: "Traffic test", ChartWidth: 400, ChartHeight: 240}
	c, err := NewController(context.Background(), &wg, dc, testPipeline(), charts, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c, c.Handler()
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewControllerDefaults(t *testing.T) {
	c, _ := newTestController(t, nil)
	assert.Equal(t, "0.0.0.0:8080", c.Server.Addr)
	assert.Equal(t, 400, c.renderer.Width)

	var wg sync.WaitGroup
	_, err := NewController(context.Background(), &wg, config.DashboardData{Cert: "c.pem"}, testPipeline(), nil, nil)
	assert.Error(t, err)

	_, err = NewController(context.Background(), &wg, config.DashboardData{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestServeDashboard(t *testing.T) {
	_, h := newTestController(t, nil)

	rec := get(h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Traffic test</title>")
	assert.Contains(t, body, dashboard.Title)
	for _, title := range dashboard.ChartTitles {
		assert.Contains(t, body, title)
	}
	assert.Contains(t, body, `<option value="2017" selected>`)
	assert.Contains(t, body, "/charts/hourly.png?")
	assert.Contains(t, body, "Dataset Preview")
	assert.Contains(t, body, dashboard.Insights()[0])
	assert.NotContains(t, body, `class="notice"`)
}

func TestServeDashboardEmptySelection(t *testing.T) {
	_, h := newTestController(t, nil)

	rec := get(h, "/?year=2017&weather=")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `class="notice"`)
	assert.Contains(t, body, "No data for this selection")
	assert.Contains(t, body, "0 of 900 rows selected")
}

func TestInvalidSelectionIsBadRequest(t *testing.T) {
	_, h := newTestController(t, nil)

	tests := []string{
		"/?year=1999",
		"/?year=abc",
		"/?weather=Tornado",
		"/charts/hourly.png?year=1999",
		"/api/dashboard?year=1999",
		"/export/preview.xlsx?weather=Fog",
	}
	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, get(h, target).Code)
		})
	}
}

func TestServeChart(t *testing.T) {
	charts := &recordingCharts{}
	_, h := newTestController(t, charts)

	for _, name := range dashboard.ChartNames {
		rec := get(h, "/charts/"+name+".png?year=2018")
		require.Equal(t, http.StatusOK, rec.Code, name)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")), name)
	}
	assert.Equal(t, dashboard.ChartRendered, charts.outcomes[dashboard.ChartHourly])

	rec := get(h, "/charts/weather.png?year=2018&weather=")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dashboard.ChartPlaceholder, charts.outcomes[dashboard.ChartWeather])

	assert.Equal(t, http.StatusNotFound, get(h, "/charts/pie.png").Code)
}

func TestGetOptions(t *testing.T) {
	_, h := newTestController(t, nil)

	rec := get(h, "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)

	var choices dashboard.Choices
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &choices))
	assert.Equal(t, []int{2017, 2018}, choices.Years)
	assert.Equal(t, []string{"Clouds", "Clear", "Rain"}, choices.Weather)
	assert.Equal(t, 2017, choices.Default.Year)
	assert.Equal(t, 900, choices.RowCount)
}

func TestGetDashboard(t *testing.T) {
	_, h := newTestController(t, nil)

	rec := get(h, "/api/dashboard?year=2018&weather=Rain&weather=Clear")
	require.Equal(t, http.StatusOK, rec.Code)

	var v struct {
		Selection traffic.Selection `json:"selection"`
		RowCount  int               `json:"row_count"`
		Empty     bool              `json:"empty"`
		Weather   struct {
			Groups []struct {
				Label string  `json:"label"`
				Mean  float64 `json:"mean"`
			} `json:"groups"`
		} `json:"weather"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, 2018, v.Selection.Year)
	assert.ElementsMatch(t, []string{"Rain", "Clear"}, v.Selection.Weather)
	assert.False(t, v.Empty)
	require.Len(t, v.Weather.Groups, 2)
	assert.LessOrEqual(t, v.Weather.Groups[0].Mean, v.Weather.Groups[1].Mean)

	rec = get(h, "/api/dashboard?year=1999")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid selection")
}

func TestExportPreview(t *testing.T) {
	_, h := newTestController(t, nil)

	rec := get(h, "/export/preview.xlsx?year=2017")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, excel.ContentType, rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Header().Get("Content-Disposition"), "traffic-preview-2017.xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(excel.PreviewSheet)
	require.NoError(t, err)
	assert.Len(t, rows, dashboard.DefaultPreviewRows+1)
}

func TestServeCSS(t *testing.T) {
	_, h := newTestController(t, nil)

	rec := get(h, "/css/dashboard.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

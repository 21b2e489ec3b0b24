package dashboard

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/chrissnell/trafficdash/internal/render"
)

// Chart names, as used in /charts/{name}.png
const (
	ChartHourly  = "hourly"
	ChartWeekend = "weekend"
	ChartMonthly = "monthly"
	ChartWeather = "weather"
)

// ChartNames lists the charts in page order
var ChartNames = []string{ChartHourly, ChartWeekend, ChartMonthly, ChartWeather}

// ErrUnknownChart is returned for a chart name outside ChartNames
var ErrUnknownChart = errors.New("unknown chart")

// ChartTitles are the headings shown above each chart
var ChartTitles = map[string]string{
	ChartHourly:  "Average Traffic Volume by Hour",
	ChartWeekend: "Weekday vs Weekend Traffic",
	ChartMonthly: "Monthly Traffic Trend",
	ChartWeather: "Traffic Volume by Weather Condition",
}

const volumeAxis = "Traffic Volume"

// ChartObserver is told the outcome of every chart render. It is satisfied by
// observability.Metrics.
type ChartObserver interface {
	ObserveChartRender(chart, outcome string)
}

// Chart outcomes reported to a ChartObserver
const (
	ChartRendered    = "rendered"
	ChartPlaceholder = "placeholder"
	ChartFailed      = "error"
)

// RenderChart draws one of the view's charts as PNG. A series with no groups is drawn as
// the no-data placeholder.
func RenderChart(r *render.Renderer, v *View, name string, obs ChartObserver) ([]byte, error) {
	title, ok := ChartTitles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}

	var (
		png []byte
		err error
	)
	switch name {
	case ChartHourly:
		png, err = r.Line(render.Line{
			Title:  title,
			XName:  "Hour of Day",
			YName:  volumeAxis,
			XMin:   0,
			XMax:   23,
			Points: intPoints(v.Hourly.Keys(), v.Hourly.Means()),
		})
	case ChartWeekend:
		png, err = r.Bar(render.Bars{
			Title:     title,
			ValueName: volumeAxis,
			Bars:      bars(v.Weekend.Labels(), v.Weekend.Means()),
		})
	case ChartMonthly:
		png, err = r.Line(render.Line{
			Title:  title,
			XName:  "Month",
			YName:  volumeAxis,
			XMin:   1,
			XMax:   12,
			Points: intPoints(v.Monthly.Keys(), v.Monthly.Means()),
		})
	case ChartWeather:
		png, err = r.Bar(render.Bars{
			Title:      title,
			ValueName:  volumeAxis,
			Horizontal: true,
			Bars:       bars(v.Weather.Labels(), v.Weather.Means()),
		})
	}

	outcome := ChartRendered
	if errors.Is(err, render.ErrNoData) {
		outcome = ChartPlaceholder
		png, err = r.Placeholder(title, render.NoDataMessage)
	}
	if err != nil {
		outcome = ChartFailed
	}
	if obs != nil {
		obs.ObserveChartRender(name, outcome)
	}
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", name, err)
	}
	return png, nil
}

func intPoints(keys []int, means []float64) []render.Point {
	pts := make([]render.Point, len(keys))
	for i, k := range keys {
		pts[i] = render.Point{X: float64(k), Label: strconv.Itoa(k), Y: means[i]}
	}
	return pts
}

func bars(labels []string, means []float64) []render.Bar {
	out := make([]render.Bar, len(labels))
	for i, l := range labels {
		out[i] = render.Bar{Label: l, Value: means[i]}
	}
	return out
}

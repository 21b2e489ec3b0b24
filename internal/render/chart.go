// Package render draws aggregate series as PNG charts. It never computes statistics; it
// only scales axes to the values it is given.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a chart is asked to draw an empty series
var ErrNoData = errors.New("no data to chart")

// ErrNotFinite is returned when a series holds NaN or an infinity
var ErrNotFinite = errors.New("chart values must be finite")

var (
	seriesColor = drawing.ColorFromHex("1f77b4")
	gridColor   = drawing.ColorFromHex("e5e5e5")
	textColor   = drawing.ColorFromHex("333333")
)

// Renderer draws charts at a fixed size
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer creates a renderer. Non-positive sizes fall back to 800x400.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 400
	}
	return &Renderer{Width: width, Height: height}
}

// Point is one x position of a line chart
type Point struct {
	X     float64
	Label string
	Y     float64
}

// Line describes a line chart over a fixed x domain
type Line struct {
	Title  string
	XName  string
	YName  string
	XMin   float64
	XMax   float64
	Points []Point
}

// Bar is one labelled bar
type Bar struct {
	Label string
	Value float64
}

// Bars describes a bar chart. Bars are drawn in the order given.
type Bars struct {
	Title      string
	ValueName  string
	Horizontal bool
	Bars       []Bar
}

// Line renders a line chart as PNG
func (r *Renderer) Line(l Line) ([]byte, error) {
	if len(l.Points) == 0 {
		return nil, ErrNoData
	}

	xs := make([]float64, len(l.Points))
	ys := make([]float64, len(l.Points))
	ticks := make([]chart.Tick, 0, len(l.Points)+2)
	for i, p := range l.Points {
		xs[i] = p.X
		ys[i] = p.Y
		label := p.Label
		if label == "" {
			label = formatTick(p.X)
		}
		ticks = append(ticks, chart.Tick{Value: p.X, Label: label})
	}
	if !allFinite(ys) {
		return nil, fmt.Errorf("line chart %q: %w", l.Title, ErrNotFinite)
	}

	xMin, xMax := l.XMin, l.XMax
	if xMax <= xMin {
		xMin, xMax = xs[0]-1, xs[len(xs)-1]+1
	}
	// go-chart takes the x range from the ticks, so the domain ends need ticks of their
	// own or a single point collapses the axis
	ticks = withBoundTicks(ticks, xMin, xMax)

	yMin, yMax := minMax(ys)
	yLo, yHi := NiceBounds(yMin, yMax)

	ch := chart.Chart{
		Title:      l.Title,
		TitleStyle: chart.Style{FontColor: textColor},
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:  l.XName,
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:           l.YName,
			Range:          &chart.ContinuousRange{Min: yLo, Max: yHi},
			ValueFormatter: volumeFormatter,
			GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1},
			GridLines:      gridLines(yLo, yHi),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    l.YName,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: seriesColor,
					StrokeWidth: 2.5,
					DotColor:    seriesColor,
					DotWidth:    3,
				},
			},
		},
	}

	return encode(ch)
}

// Bar renders a bar chart as PNG, vertical or horizontal
func (r *Renderer) Bar(b Bars) ([]byte, error) {
	if len(b.Bars) == 0 {
		return nil, ErrNoData
	}
	for _, bar := range b.Bars {
		if math.IsNaN(bar.Value) || math.IsInf(bar.Value, 0) {
			return nil, fmt.Errorf("bar chart %q: %w", b.Title, ErrNotFinite)
		}
	}
	if b.Horizontal {
		return r.horizontalBar(b)
	}

	values := make([]float64, len(b.Bars))
	bars := make([]chart.Value, len(b.Bars))
	for i, bar := range b.Bars {
		values[i] = bar.Value
		bars[i] = chart.Value{
			Label: bar.Label,
			Value: bar.Value,
			Style: chart.Style{FillColor: seriesColor, StrokeColor: seriesColor},
		}
	}
	_, max := minMax(values)
	_, top := NiceBounds(0, max)

	barWidth := r.Width / (2*len(bars) + 1)
	if barWidth > 200 {
		barWidth = 200
	}

	bc := chart.BarChart{
		Title:      b.Title,
		TitleStyle: chart.Style{FontColor: textColor},
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   barWidth,
		BarSpacing: barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		YAxis: chart.YAxis{
			Name:           b.ValueName,
			Range:          &chart.ContinuousRange{Min: 0, Max: top},
			ValueFormatter: volumeFormatter,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering bar chart %q: %w", b.Title, err)
	}
	return buf.Bytes(), nil
}

// horizontalBar draws one stacked bar per value: the value itself from the left axis and
// an invisible remainder up to the common maximum, so bar lengths are proportional.
func (r *Renderer) horizontalBar(b Bars) ([]byte, error) {
	values := make([]float64, len(b.Bars))
	for i, bar := range b.Bars {
		values[i] = bar.Value
	}
	_, max := minMax(values)
	_, top := NiceBounds(0, max)

	const padTop, padBottom = 40, 40
	slot := (r.Height - padTop - padBottom) / len(b.Bars)
	if slot < 4 {
		slot = 4
	}
	barWidth := slot * 3 / 4
	spacing := slot - barWidth

	blank := chart.Style{FillColor: drawing.ColorWhite, StrokeColor: drawing.ColorWhite, StrokeWidth: 0}
	filled := chart.Style{
		FillColor:   seriesColor,
		StrokeColor: seriesColor,
		StrokeWidth: 0,
		FontColor:   drawing.ColorWhite,
	}

	bars := make([]chart.StackedBar, len(b.Bars))
	for i, bar := range b.Bars {
		bars[i] = chart.StackedBar{
			Name:  bar.Label,
			Width: barWidth,
			Values: []chart.Value{
				{Value: top - bar.Value, Style: blank},
				{Value: bar.Value, Label: FormatVolume(bar.Value), Style: filled},
			},
		}
	}

	sbc := chart.StackedBarChart{
		Title:        b.Title,
		TitleStyle:   chart.Style{FontColor: textColor},
		Width:        r.Width,
		Height:       r.Height,
		IsHorizontal: true,
		BarSpacing:   spacing,
		Background:   chart.Style{Padding: chart.Box{Top: padTop, Left: 110, Right: 20, Bottom: padBottom}},
		// The stacked chart's own x axis is in percent of the bar total
		XAxis:    chart.Style{Hidden: true},
		Bars:     bars,
		Elements: []chart.Renderable{axisCaption(b.ValueName, top)},
	}

	var buf bytes.Buffer
	if err := sbc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering horizontal bar chart %q: %w", b.Title, err)
	}
	return buf.Bytes(), nil
}

// axisCaption writes the axis name and its scale under the canvas
func axisCaption(name string, top float64) chart.Renderable {
	return func(r chart.Renderer, canvasBox chart.Box, defaults chart.Style) {
		style := chart.Style{FontSize: 10, FontColor: textColor}.InheritFrom(defaults)
		text := fmt.Sprintf("%s (0 to %s)", name, FormatVolume(top))
		style.WriteToRenderer(r)
		tb := r.MeasureText(text)
		x := canvasBox.Left + (canvasBox.Width()-tb.Width())/2
		y := canvasBox.Bottom + tb.Height() + 12
		chart.Draw.Text(r, text, x, y, style)
	}
}

func encode(ch chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering chart %q: %w", ch.Title, err)
	}
	return buf.Bytes(), nil
}

func volumeFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return FormatVolume(f)
	}
	return fmt.Sprint(v)
}

// FormatVolume renders a traffic volume rounded to a whole number with thousands separators
func FormatVolume(v float64) string {
	n := int64(math.Round(v))
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// NiceBounds widens [min, max] to round numbers. A degenerate range is widened so the
// result always has a positive span.
func NiceBounds(min, max float64) (float64, float64) {
	if max < min {
		min, max = max, min
	}
	if max == min {
		pad := math.Abs(max) * 0.1
		if pad == 0 {
			pad = 1
		}
		min, max = min-pad, max+pad
		if min < 0 && max-pad >= 0 {
			min = 0
		}
	}
	step := niceStep((max - min) / 5)
	lo := math.Floor(min/step) * step
	hi := math.Ceil(max/step) * step
	if hi == lo {
		hi = lo + step
	}
	return lo, hi
}

func niceStep(raw float64) float64 {
	if raw <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	f := raw / exp
	switch {
	case f <= 1:
		return exp
	case f <= 2:
		return 2 * exp
	case f <= 5:
		return 5 * exp
	default:
		return 10 * exp
	}
}

func gridLines(lo, hi float64) []chart.GridLine {
	step := niceStep((hi - lo) / 5)
	var lines []chart.GridLine
	for v := lo + step; v < hi; v += step {
		lines = append(lines, chart.GridLine{Value: v})
	}
	return lines
}

func minMax(v []float64) (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		min = math.Min(min, x)
		max = math.Max(max, x)
	}
	return min, max
}

func formatTick(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// withBoundTicks adds ticks at lo and hi when no point sits there already
func withBoundTicks(ticks []chart.Tick, lo, hi float64) []chart.Tick {
	hasLo, hasHi := false, false
	for _, t := range ticks {
		hasLo = hasLo || t.Value == lo
		hasHi = hasHi || t.Value == hi
	}
	if !hasLo {
		ticks = append([]chart.Tick{{Value: lo, Label: formatTick(lo)}}, ticks...)
	}
	if !hasHi {
		ticks = append(ticks, chart.Tick{Value: hi, Label: formatTick(hi)})
	}
	return ticks
}

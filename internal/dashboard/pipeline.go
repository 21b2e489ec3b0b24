// Package dashboard evaluates the traffic dashboard for one selection: filter, four mean
// aggregations, a preview table and the static insights.
package dashboard

import (
	"time"

	"github.com/chrissnell/trafficdash/internal/aggregate"
	"github.com/chrissnell/trafficdash/internal/traffic"
	"github.com/jonboulle/clockwork"
)

// DefaultPreviewRows is the number of filtered rows shown when not configured
const DefaultPreviewRows = 50

// Observer is told about every evaluation. It is satisfied by observability.Metrics.
type Observer interface {
	ObserveEvaluation(d time.Duration, empty bool)
}

// Options configure a Pipeline
type Options struct {
	PreviewRows int
	Clock       clockwork.Clock
	Observer    Observer
}

// Pipeline evaluates views over one read-only dataset. It is safe for concurrent use.
type Pipeline struct {
	ds          *traffic.Dataset
	previewRows int
	clock       clockwork.Clock
	observer    Observer
}

// Preview is the head of the filtered dataset as display rows
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// View is the result of one evaluation
type View struct {
	Selection   traffic.Selection        `json:"selection"`
	RowCount    int                      `json:"row_count"`
	Empty       bool                     `json:"empty"`
	Hourly      aggregate.Series[int]    `json:"hourly"`
	Weekend     aggregate.Series[bool]   `json:"weekend"`
	Monthly     aggregate.Series[int]    `json:"monthly"`
	Weather     aggregate.Series[string] `json:"weather"`
	Preview     Preview                  `json:"preview"`
	Insights    []string                 `json:"insights"`
	LoadedAt    time.Time                `json:"loaded_at"`
	EvaluatedAt time.Time                `json:"evaluated_at"`
}

// Choices are the values the controls offer
type Choices struct {
	Years    []int             `json:"years"`
	Weather  []string          `json:"weather"`
	Default  traffic.Selection `json:"default"`
	RowCount int               `json:"row_count"`
}

// New creates a pipeline over ds
func New(ds *traffic.Dataset, opts Options) *Pipeline {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		ds:          ds,
		previewRows: opts.PreviewRows,
		clock:       opts.Clock,
		observer:    opts.Observer,
	}
}

// Dataset returns the full dataset the pipeline evaluates
func (p *Pipeline) Dataset() *traffic.Dataset {
	return p.ds
}

// Choices returns the distinct years, the weather labels and the default selection
func (p *Pipeline) Choices() Choices {
	return Choices{
		Years:    p.ds.Years(),
		Weather:  p.ds.WeatherLabels(),
		Default:  traffic.DefaultSelection(p.ds),
		RowCount: p.ds.Len(),
	}
}

// Evaluate validates sel and runs the whole pipeline for it. An empty result is not an
// error; the view is marked Empty.
func (p *Pipeline) Evaluate(sel traffic.Selection) (*View, error) {
	if err := sel.Validate(p.ds); err != nil {
		return nil, err
	}

	start := p.clock.Now()

	filtered := sel.Apply(p.ds)
	records := filtered.Records()

	v := &View{
		Selection: sel,
		RowCount:  filtered.Len(),
		Empty:     filtered.Len() == 0,
		Hourly:    aggregate.Hourly(records),
		Weekend:   aggregate.Weekend(records),
		Monthly:   aggregate.Monthly(records),
		Weather:   aggregate.ByWeather(records),
		Preview:   preview(p.ds, filtered, p.previewRows),
		Insights:  Insights(),
		LoadedAt:  p.ds.LoadedAt,
	}

	v.EvaluatedAt = p.clock.Now()
	if p.observer != nil {
		p.observer.ObserveEvaluation(v.EvaluatedAt.Sub(start), v.Empty)
	}

	return v, nil
}

func preview(full, filtered *traffic.Dataset, n int) Preview {
	head := filtered.Head(n)
	pv := Preview{
		Columns: full.RowColumns(),
		Rows:    make([][]string, 0, len(head)),
	}
	for _, r := range head {
		pv.Rows = append(pv.Rows, r.Row())
	}
	return pv
}

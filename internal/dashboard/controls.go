package dashboard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/chrissnell/trafficdash/internal/traffic"
)

// Query parameter names used by the dashboard form
const (
	ParamYear    = "year"
	ParamWeather = "weather"
)

// Event is a change of one dashboard control
type Event interface {
	Apply(sel traffic.Selection) traffic.Selection
}

// YearChanged replaces the selected year
type YearChanged struct {
	Year int
}

func (e YearChanged) Apply(sel traffic.Selection) traffic.Selection {
	sel.Year = e.Year
	return sel
}

// WeatherChanged replaces the selected weather labels. An empty set is allowed.
type WeatherChanged struct {
	Weather []string
}

func (e WeatherChanged) Apply(sel traffic.Selection) traffic.Selection {
	labels := make([]string, len(e.Weather))
	copy(labels, e.Weather)
	sel.Weather = labels
	return sel
}

// Handle applies a control event to the current selection and re-evaluates. On error the
// current selection is returned unchanged.
func (p *Pipeline) Handle(current traffic.Selection, ev Event) (traffic.Selection, *View, error) {
	next := ev.Apply(current)
	v, err := p.Evaluate(next)
	if err != nil {
		return current, nil, err
	}
	return next, v, nil
}

// ParseSelection reads a selection from query values. A missing year means the default
// year. A missing weather key means every label; a weather key with only empty values
// means no labels. The result is validated against the dataset.
func (p *Pipeline) ParseSelection(q url.Values) (traffic.Selection, error) {
	sel := traffic.DefaultSelection(p.ds)

	if raw := strings.TrimSpace(q.Get(ParamYear)); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return sel, fmt.Errorf("%w: year %q is not a number", traffic.ErrInvalidSelection, raw)
		}
		sel = YearChanged{Year: year}.Apply(sel)
	}

	if values, ok := q[ParamWeather]; ok {
		labels := []string{}
		seen := map[string]bool{}
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			labels = append(labels, v)
		}
		sel = WeatherChanged{Weather: labels}.Apply(sel)
	}

	if err := sel.Validate(p.ds); err != nil {
		return sel, err
	}
	return sel, nil
}

// Query encodes a selection as query values that ParseSelection reads back
func Query(sel traffic.Selection) url.Values {
	q := url.Values{}
	q.Set(ParamYear, strconv.Itoa(sel.Year))
	if len(sel.Weather) == 0 {
		q[ParamWeather] = []string{""}
		return q
	}
	for _, l := range sel.Weather {
		q.Add(ParamWeather, l)
	}
	return q
}

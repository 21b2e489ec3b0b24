package traffic

import (
	"fmt"
	"time"
)

// Selection is the pair of user choices that restricts the dataset
type Selection struct {
	Year    int      `json:"year"`
	Weather []string `json:"weather"`
}

// DefaultSelection picks the earliest year and every weather label
func DefaultSelection(ds *Dataset) Selection {
	sel := Selection{Weather: ds.WeatherLabels()}
	if years := ds.Years(); len(years) > 0 {
		sel.Year = years[0]
	}
	if sel.Weather == nil {
		sel.Weather = []string{}
	}
	return sel
}

// Validate checks the selection against the values observed in the dataset
func (s Selection) Validate(ds *Dataset) error {
	if !ds.HasYear(s.Year) {
		return fmt.Errorf("%w: year %d not in dataset", ErrInvalidSelection, s.Year)
	}
	for _, label := range s.Weather {
		if !ds.HasWeatherLabel(label) {
			return fmt.Errorf("%w: weather %q not in dataset", ErrInvalidSelection, label)
		}
	}
	return nil
}

// Filter returns the records whose year equals year and whose weather label is one of
// labels. Order is preserved. No match yields an empty dataset, not an error.
func Filter(ds *Dataset, year int, labels []string) *Dataset {
	want := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		want[l] = struct{}{}
	}

	var out []Record
	for _, r := range ds.Records() {
		if r.Year != year {
			continue
		}
		if _, ok := want[r.Weather]; !ok {
			continue
		}
		out = append(out, r)
	}

	var loadedAt time.Time
	var source string
	var columns []string
	if ds != nil {
		loadedAt, source, columns = ds.LoadedAt, ds.Source, ds.Columns
	}
	return NewDataset(source, columns, out, loadedAt)
}

// Apply filters the dataset by the selection
func (s Selection) Apply(ds *Dataset) *Dataset {
	return Filter(ds, s.Year, s.Weather)
}

// Package traffic holds the traffic-volume data model: records, the immutable dataset
// they live in, and the year/weather selection used to filter it.
package traffic

import (
	"sort"
	"strings"
	"time"
)

// Record is one observation row from the source file
type Record struct {
	Timestamp     time.Time
	TrafficVolume float64
	Weather       string

	// Fields holds every source column in header order, including the three above
	// in their original text form.
	Fields []string

	// Derived calendar fields, computed once at load time
	Year      int
	Month     int
	Hour      int
	DayOfWeek string
	IsWeekend bool
}

// DerivedColumns are appended after the source columns when a record is shown as a row
var DerivedColumns = []string{"year", "month", "hour", "day_of_week", "is_weekend"}

// NoWeatherLabel stands in for a blank weather cell so the row stays selectable
const NoWeatherLabel = "(none)"

// NewRecord builds a record and computes its derived calendar fields. A blank weather
// label becomes NoWeatherLabel.
func NewRecord(ts time.Time, volume float64, weather string, fields []string) Record {
	if strings.TrimSpace(weather) == "" {
		weather = NoWeatherLabel
	}
	r := Record{
		Timestamp:     ts,
		TrafficVolume: volume,
		Weather:       weather,
		Fields:        fields,
	}
	r.derive()
	return r
}

func (r *Record) derive() {
	r.Year = r.Timestamp.Year()
	r.Month = int(r.Timestamp.Month())
	r.Hour = r.Timestamp.Hour()
	r.DayOfWeek = r.Timestamp.Weekday().String()
	r.IsWeekend = IsWeekendDay(r.Timestamp.Weekday())
}

// IsWeekendDay reports whether the weekday is Saturday or Sunday
func IsWeekendDay(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// Dataset is an ordered, read-only collection of records. Filtering never mutates a
// Dataset; it returns a new one.
type Dataset struct {
	Source   string
	Columns  []string
	LoadedAt time.Time

	records  []Record
	years    []int
	labels   []string
	labelSet map[string]struct{}
}

// NewDataset indexes the records and returns a dataset. The records slice is owned by the
// dataset after this call.
func NewDataset(source string, columns []string, records []Record, loadedAt time.Time) *Dataset {
	ds := &Dataset{
		Source:   source,
		Columns:  columns,
		LoadedAt: loadedAt,
		records:  records,
		labelSet: make(map[string]struct{}),
	}

	seenYears := make(map[int]struct{})
	for _, r := range records {
		if _, ok := seenYears[r.Year]; !ok {
			seenYears[r.Year] = struct{}{}
			ds.years = append(ds.years, r.Year)
		}
		// Labels keep first-appearance order
		if _, ok := ds.labelSet[r.Weather]; !ok {
			ds.labelSet[r.Weather] = struct{}{}
			ds.labels = append(ds.labels, r.Weather)
		}
	}
	sort.Ints(ds.years)

	return ds
}

// Len returns the number of records
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.records)
}

// Records returns the records in their original order. Callers must not modify the slice.
func (ds *Dataset) Records() []Record {
	if ds == nil {
		return nil
	}
	return ds.records
}

// Head returns at most n records from the start of the dataset
func (ds *Dataset) Head(n int) []Record {
	recs := ds.Records()
	if n < 0 || n >= len(recs) {
		return recs
	}
	return recs[:n]
}

// Years returns the distinct years present, ascending
func (ds *Dataset) Years() []int {
	if ds == nil {
		return nil
	}
	out := make([]int, len(ds.years))
	copy(out, ds.years)
	return out
}

// WeatherLabels returns the distinct weather labels in first-appearance order
func (ds *Dataset) WeatherLabels() []string {
	if ds == nil {
		return nil
	}
	out := make([]string, len(ds.labels))
	copy(out, ds.labels)
	return out
}

// HasYear reports whether any record falls in the given year
func (ds *Dataset) HasYear(year int) bool {
	if ds == nil {
		return false
	}
	i := sort.SearchInts(ds.years, year)
	return i < len(ds.years) && ds.years[i] == year
}

// HasWeatherLabel reports whether any record carries the given weather label
func (ds *Dataset) HasWeatherLabel(label string) bool {
	if ds == nil {
		return false
	}
	_, ok := ds.labelSet[label]
	return ok
}

// Row renders a record as source fields followed by the derived columns
func (r Record) Row() []string {
	row := make([]string, 0, len(r.Fields)+len(DerivedColumns))
	row = append(row, r.Fields...)
	row = append(row,
		itoa(r.Year),
		itoa(r.Month),
		itoa(r.Hour),
		r.DayOfWeek,
		boolString(r.IsWeekend),
	)
	return row
}

// RowColumns returns the header matching Record.Row
func (ds *Dataset) RowColumns() []string {
	cols := make([]string, 0, len(ds.Columns)+len(DerivedColumns))
	cols = append(cols, ds.Columns...)
	return append(cols, DerivedColumns...)
}

// Package loader reads the traffic-volume CSV into a traffic.Dataset and memoizes the
// result for the lifetime of the process.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/trafficdash/internal/traffic"
	"github.com/chrissnell/trafficdash/pkg/config"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var errNotFinite = errors.New("volume must be a finite number")

// DefaultTimestampLayouts are tried in order when no layouts are configured
var DefaultTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
}

// Loader produces a dataset from a source
type Loader interface {
	// ID identifies the loader and its parsing options. Two loaders with the same ID
	// produce the same dataset from the same source.
	ID() string
	Source() string
	Load(ctx context.Context) (*traffic.Dataset, error)
}

// CSVLoader reads a delimited file with a header row
type CSVLoader struct {
	path            string
	timestampColumn string
	volumeColumn    string
	weatherColumn   string
	layouts         []string
	location        *time.Location
	delimiter       rune
	clock           clockwork.Clock
	logger          *zap.SugaredLogger
}

// NewCSVLoader creates a CSV loader from the dataset configuration
func NewCSVLoader(dc config.DatasetData, clock clockwork.Clock, logger *zap.SugaredLogger) (*CSVLoader, error) {
	loc := time.UTC
	if dc.Location != "" {
		l, err := time.LoadLocation(dc.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid dataset location %q: %w", dc.Location, err)
		}
		loc = l
	}

	layouts := dc.TimestampLayouts
	if len(layouts) == 0 {
		layouts = DefaultTimestampLayouts
	}

	delim := ','
	if dc.Delimiter != "" {
		r := []rune(dc.Delimiter)
		if len(r) != 1 {
			return nil, fmt.Errorf("dataset delimiter must be a single character, got %q", dc.Delimiter)
		}
		delim = r[0]
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &CSVLoader{
		path:            dc.Path,
		timestampColumn: dc.TimestampColumn,
		volumeColumn:    dc.VolumeColumn,
		weatherColumn:   dc.WeatherColumn,
		layouts:         layouts,
		location:        loc,
		delimiter:       delim,
		clock:           clock,
		logger:          logger,
	}, nil
}

// ID returns the loader identity used as part of the cache key
func (l *CSVLoader) ID() string {
	return fmt.Sprintf("csv|%s|%s|%s|%s|%q|%s",
		l.timestampColumn, l.volumeColumn, l.weatherColumn,
		strings.Join(l.layouts, ";"), l.delimiter, l.location)
}

// Source returns the configured file path
func (l *CSVLoader) Source() string {
	return l.path
}

// Load reads and parses the whole file. Any unparsable timestamp or volume rejects the load.
func (l *CSVLoader) Load(ctx context.Context) (*traffic.Dataset, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", traffic.ErrDataUnavailable, err)
	}
	defer f.Close()

	ds, err := l.parse(ctx, f)
	if err != nil {
		return nil, err
	}

	l.logger.Infof("loaded %d traffic records from %s (%d years, %d weather labels)",
		ds.Len(), l.path, len(ds.Years()), len(ds.WeatherLabels()))

	return ds, nil
}

func (l *CSVLoader) parse(ctx context.Context, r io.Reader) (*traffic.Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = l.delimiter
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", traffic.ErrDataUnavailable, l.path)
		}
		return nil, fmt.Errorf("%w: reading header of %s: %v", traffic.ErrDataUnavailable, l.path, err)
	}
	// Strip a UTF-8 BOM left by spreadsheet exports
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	tsIdx, err := columnIndex(header, l.timestampColumn)
	if err != nil {
		return nil, err
	}
	volIdx, err := columnIndex(header, l.volumeColumn)
	if err != nil {
		return nil, err
	}
	wxIdx, err := columnIndex(header, l.weatherColumn)
	if err != nil {
		return nil, err
	}

	var records []traffic.Record
	line := 1
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", traffic.ErrDataUnavailable, l.path, err)
		}

		// Check for cancellation every few thousand rows
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rawTS := strings.TrimSpace(fields[tsIdx])
		ts, err := l.parseTimestamp(rawTS)
		if err != nil {
			return nil, &traffic.RecordError{Line: line, Column: l.timestampColumn, Value: rawTS, Err: err}
		}

		rawVol := strings.TrimSpace(fields[volIdx])
		vol, err := strconv.ParseFloat(rawVol, 64)
		if err != nil {
			return nil, &traffic.RecordError{Line: line, Column: l.volumeColumn, Value: rawVol, Err: err}
		}
		if math.IsNaN(vol) || math.IsInf(vol, 0) {
			return nil, &traffic.RecordError{Line: line, Column: l.volumeColumn, Value: rawVol, Err: errNotFinite}
		}

		records = append(records, traffic.NewRecord(ts, vol, strings.TrimSpace(fields[wxIdx]), fields))
	}

	return traffic.NewDataset(l.path, header, records, l.clock.Now()), nil
}

func (l *CSVLoader) parseTimestamp(s string) (time.Time, error) {
	for _, layout := range l.layouts {
		if ts, err := time.ParseInLocation(layout, s, l.location); err == nil {
			return ts.In(l.location), nil
		}
	}
	return time.Time{}, fmt.Errorf("no matching layout among %d candidates", len(l.layouts))
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: required column %q not found in header %v", traffic.ErrDataUnavailable, name, header)
}

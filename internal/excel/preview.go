// Package excel exports the dashboard preview table and its aggregates as an XLSX workbook.
package excel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chrissnell/trafficdash/internal/aggregate"
	"github.com/chrissnell/trafficdash/internal/dashboard"
	"github.com/jonboulle/clockwork"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet names in the generated workbook
const (
	PreviewSheet = "Preview"
	SummarySheet = "Summary"
)

// ContentType is the media type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter builds preview workbooks
type Exporter struct {
	title  string
	clock  clockwork.Clock
	logger *zap.SugaredLogger
}

// NewExporter creates an exporter. clock and logger may be nil.
func NewExporter(title string, clock clockwork.Clock, logger *zap.SugaredLogger) *Exporter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Exporter{title: title, clock: clock, logger: logger}
}

// Workbook writes the view's preview rows to one sheet and the selection and its four
// series to a summary sheet.
func (e *Exporter) Workbook(v *dashboard.View) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetDocProps(&excelize.DocProperties{
		Title:       e.title,
		Subject:     "Traffic volume preview",
		Creator:     "trafficdash",
		Description: fmt.Sprintf("Year %d, weather %s", v.Selection.Year, weatherList(v.Selection.Weather)),
		Created:     e.clock.Now().UTC().Format("2006-01-02T15:04:05Z"),
	})

	if err := e.createPreviewSheet(f, v.Preview); err != nil {
		return nil, fmt.Errorf("failed to create preview sheet: %w", err)
	}
	if err := e.createSummarySheet(f, v); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel to buffer: %w", err)
	}

	e.logger.Debugf("exported %d preview rows for year %d", len(v.Preview.Rows), v.Selection.Year)
	return buf.Bytes(), nil
}

func (e *Exporter) createPreviewSheet(f *excelize.File, pv dashboard.Preview) error {
	idx, err := f.NewSheet(PreviewSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	for i, header := range pv.Columns {
		if err := f.SetCellValue(PreviewSheet, cell(i+1, 1), header); err != nil {
			return err
		}
	}

	for r, row := range pv.Rows {
		for c, value := range row {
			if err := f.SetCellValue(PreviewSheet, cell(c+1, r+2), typed(value)); err != nil {
				return err
			}
		}
	}

	if len(pv.Columns) > 0 {
		f.SetColWidth(PreviewSheet, colLetter(1), colLetter(len(pv.Columns)), 16)
		f.SetPanes(PreviewSheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

func (e *Exporter) createSummarySheet(f *excelize.File, v *dashboard.View) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{e.title},
		{"Year", v.Selection.Year},
		{"Weather", weatherList(v.Selection.Weather)},
		{"Matching rows", v.RowCount},
		{"Preview rows", len(v.Preview.Rows)},
		{"Data loaded", v.LoadedAt.UTC().Format("2006-01-02 15:04:05 MST")},
	}
	if v.Empty {
		rows = append(rows, []interface{}{"Note", "No data for this selection"})
	}

	rows = append(rows, nil)
	rows = append(rows, seriesRows("Hour", v.Hourly)...)
	rows = append(rows, nil)
	rows = append(rows, seriesRows("Day type", v.Weekend)...)
	rows = append(rows, nil)
	rows = append(rows, seriesRows("Month", v.Monthly)...)
	rows = append(rows, nil)
	rows = append(rows, seriesRows("Weather", v.Weather)...)

	for r, row := range rows {
		for c, value := range row {
			if err := f.SetCellValue(SummarySheet, cell(c+1, r+1), value); err != nil {
				return err
			}
		}
	}

	f.SetColWidth(SummarySheet, "A", "A", 25)
	f.SetColWidth(SummarySheet, "B", "C", 20)
	return nil
}

func seriesRows[K comparable](keyName string, s aggregate.Series[K]) [][]interface{} {
	out := [][]interface{}{{keyName, "Mean traffic volume", "Rows"}}
	for _, g := range s.Groups {
		out = append(out, []interface{}{g.Label, g.Mean, g.Count})
	}
	return out
}

// typed stores numeric-looking cells as numbers so they sort and sum in a spreadsheet
func typed(s string) interface{} {
	if s == "" {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func weatherList(labels []string) string {
	if len(labels) == 0 {
		return "(none)"
	}
	return strings.Join(labels, ", ")
}

func cell(col, row int) string {
	c, _ := excelize.CoordinatesToCellName(col, row)
	return c
}

func colLetter(col int) string {
	letter, _ := excelize.ColumnNumberToName(col)
	return letter
}

package traffic

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrDataUnavailable means the source file is missing, unreadable or not a usable table
	ErrDataUnavailable = errors.New("traffic data unavailable")

	// ErrMalformedRecord means a row could not be parsed. The whole load is rejected.
	ErrMalformedRecord = errors.New("malformed traffic record")

	// ErrInvalidSelection means a year or weather label is not present in the dataset
	ErrInvalidSelection = errors.New("invalid selection")
)

// RecordError describes the row and column that failed to parse
type RecordError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: column %q: cannot parse %q: %v", e.Line, e.Column, e.Value, e.Err)
}

// Unwrap lets errors.Is match ErrMalformedRecord
func (e *RecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func boolString(b bool) string {
	return strconv.FormatBool(b)
}

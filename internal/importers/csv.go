// Package importers parses the files field staff bring back: well lists,
// manual depth-to-water sheets and Solinst logger exports.
package importers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMissingHeader is returned when a CSV lacks a required column
var ErrMissingHeader = errors.New("missing required header")

// csvTable is a CSV file read with its header mapped to column positions
type csvTable struct {
	reader      *csv.Reader
	headerIndex map[string]int
	lineNum     int
}

// newCSVTable reads the header row. normalize maps each raw header to its
// canonical name; required names must all be present afterwards.
func newCSVTable(r io.Reader, normalize func(string) string, required []string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	headerIndex := make(map[string]int)
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		name := normalize(strings.TrimSpace(h))
		if _, dup := headerIndex[name]; !dup {
			headerIndex[name] = i
		}
	}

	for _, h := range required {
		if _, ok := headerIndex[h]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingHeader, h)
		}
	}

	return &csvTable{reader: reader, headerIndex: headerIndex, lineNum: 1}, nil
}

// next returns the following record. io.EOF ends the table.
func (t *csvTable) next() ([]string, error) {
	t.lineNum++
	return t.reader.Read()
}

func (t *csvTable) has(header string) bool {
	_, ok := t.headerIndex[header]
	return ok
}

func (t *csvTable) value(record []string, header string) string {
	if idx, ok := t.headerIndex[header]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
}

// parseDateTime parses a field date in loc and returns it in UTC
func parseDateTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// parseNumber parses a numeric field, rejecting NaN and infinities
func parseNumber(value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", value)
	}
	return v, nil
}

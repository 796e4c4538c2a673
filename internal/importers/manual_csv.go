package importers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

// manualAliases maps header spellings found in field sheets to canonical column names
var manualAliases = map[string]string{
	"wn":                   "well_number",
	"well":                 "well_number",
	"well_id":              "well_number",
	"well_no":              "well_number",
	"wellnumber":           "well_number",
	"date":                 "measurement_date_utc",
	"datetime":             "measurement_date_utc",
	"date_time":            "measurement_date_utc",
	"measurement_date":     "measurement_date_utc",
	"measured_at":          "measurement_date_utc",
	"dtw":                  "dtw_1",
	"dtw1":                 "dtw_1",
	"dtw_ft":               "dtw_1",
	"depth_to_water":       "dtw_1",
	"dtw2":                 "dtw_2",
	"dtw_1_ft":             "dtw_1",
	"dtw_2_ft":             "dtw_2",
	"tape":                 "tape_error",
	"tape_correction":      "tape_error",
	"comment":              "comments",
	"notes":                "comments",
	"collector":            "collected_by",
	"collected":            "collected_by",
	"technician":           "collected_by",
	"by":                   "collected_by",
	"source":               "data_source",
	"dry":                  "is_dry",
	"measurement_date_utc": "measurement_date_utc",
}

var manualRequiredHeaders = []string{"well_number", "dtw_1"}

// NormalizeManualHeader lowercases a header, joins words with underscores and
// resolves known aliases
func NormalizeManualHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_", "(", "", ")", "").Replace(h)
	if canonical, ok := manualAliases[h]; ok {
		return canonical
	}
	return h
}

// ParseManualCSV reads manual depth-to-water measurements. Dates without a zone
// are interpreted in loc. DTWAvg is the mean of the depths present; WaterLevel is
// left for the caller, which knows the well's top of casing.
func ParseManualCSV(r io.Reader, loc *time.Location) ([]entities.ManualReading, []string, error) {
	if loc == nil {
		loc = time.UTC
	}
	table, err := newCSVTable(r, NormalizeManualHeader, manualRequiredHeaders)
	if err != nil {
		return nil, nil, err
	}
	if !table.has("measurement_date_utc") {
		return nil, nil, fmt.Errorf("%w: measurement_date_utc", ErrMissingHeader)
	}

	var readings []entities.ManualReading
	var errors []string

	for {
		record, err := table.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			errors = append(errors, fmt.Sprintf("Line %d: %v", table.lineNum, err))
			continue
		}

		reading, err := manualFromRecord(table, record, loc)
		if err != nil {
			errors = append(errors, fmt.Sprintf("Line %d: skipped - %v", table.lineNum, err))
			continue
		}
		readings = append(readings, *reading)
	}

	return readings, errors, nil
}

func manualFromRecord(table *csvTable, record []string, loc *time.Location) (*entities.ManualReading, error) {
	mr := entities.ManualReading{
		WellNumber:  table.value(record, "well_number"),
		Comments:    table.value(record, "comments"),
		CollectedBy: table.value(record, "collected_by"),
		DataSource:  table.value(record, "data_source"),
		IsDry:       parseBool(table.value(record, "is_dry")),
	}
	if mr.WellNumber == "" {
		return nil, fmt.Errorf("missing well_number")
	}
	if mr.DataSource == "" {
		mr.DataSource = "manual"
	}

	ts, err := parseDateTime(table.value(record, "measurement_date_utc"), loc)
	if err != nil {
		return nil, err
	}
	mr.MeasurementDateUTC = ts

	dtw1Raw := table.value(record, "dtw_1")
	if dtw1Raw == "" && mr.IsDry {
		return &mr, nil
	}
	dtw1, err := parseNumber(dtw1Raw)
	if err != nil {
		return nil, fmt.Errorf("invalid dtw_1 %q", dtw1Raw)
	}
	mr.DTW1 = dtw1
	mr.DTWAvg = dtw1

	if raw := table.value(record, "dtw_2"); raw != "" {
		dtw2, err := parseNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid dtw_2 %q", raw)
		}
		mr.DTW2 = &dtw2
		mr.DTWAvg = (dtw1 + dtw2) / 2
	}

	if raw := table.value(record, "tape_error"); raw != "" {
		tape, err := parseNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid tape_error %q", raw)
		}
		mr.TapeError = &tape
	}

	return &mr, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "x", "dry":
		return true
	}
	return false
}

package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// TimestampLayout is how timestamps are stored. Fixed width UTC text keeps
// string comparison in SQL chronological.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders t as stored text in UTC
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// JulianDate converts t to a Julian day number
func JulianDate(t time.Time) float64 {
	return float64(t.UTC().UnixNano())/float64(24*time.Hour) + 2440587.5
}

// parseTimestamp handles the text SQLite hands back for aggregate columns,
// which lose their declared type and are not converted by the driver
func parseTimestamp(value sql.NullString) (time.Time, error) {
	if !value.Valid || value.String == "" {
		return time.Time{}, nil
	}

	layouts := []string{
		TimestampLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	var parseErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, value.String, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		parseErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %v", value.String, parseErr)
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableTimestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatTimestamp(t)
}

package importers

import (
	"fmt"
	"io"
	"strings"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

var wellRequiredHeaders = []string{"WN", "LAT", "LON", "TOC", "AQ"}

// ParseWellsCSV reads a well list. WN, LAT, LON, TOC and AQ are required;
// CAE, WELL_FIELD, COUNTY, CLUSTER, DATA_SOURCE, URL and NOTES are picked up when present.
// Rows that cannot be parsed are reported by line and skipped.
func ParseWellsCSV(r io.Reader) ([]entities.Well, []string, error) {
	table, err := newCSVTable(r, func(h string) string {
		return strings.ReplaceAll(strings.ToUpper(h), " ", "_")
	}, wellRequiredHeaders)
	if err != nil {
		return nil, nil, err
	}

	var wells []entities.Well
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

		well := entities.Well{
			WellNumber: table.value(record, "WN"),
			CAENumber:  table.value(record, "CAE"),
			Aquifer:    table.value(record, "AQ"),
			WellField:  table.value(record, "WELL_FIELD"),
			County:     table.value(record, "COUNTY"),
			Cluster:    table.value(record, "CLUSTER"),
			URL:        table.value(record, "URL"),
			Notes:      table.value(record, "NOTES"),
			DataSource: entities.DataSourceTransducer,
		}
		if well.WellNumber == "" {
			errors = append(errors, fmt.Sprintf("Line %d: skipped - missing WN", table.lineNum))
			continue
		}

		switch source := strings.ToLower(table.value(record, "DATA_SOURCE")); source {
		case "", string(entities.DataSourceTransducer):
		case string(entities.DataSourceTelemetry):
			well.DataSource = entities.DataSourceTelemetry
		default:
			errors = append(errors, fmt.Sprintf("Line %d: skipped - unknown data source %q", table.lineNum, source))
			continue
		}

		var parseErr error
		for _, field := range []struct {
			header string
			dst    *float64
		}{
			{"LAT", &well.Latitude},
			{"LON", &well.Longitude},
			{"TOC", &well.TopOfCasing},
		} {
			v, err := parseNumber(table.value(record, field.header))
			if err != nil {
				parseErr = fmt.Errorf("invalid %s %q", field.header, table.value(record, field.header))
				break
			}
			*field.dst = v
		}
		if parseErr != nil {
			errors = append(errors, fmt.Sprintf("Line %d: skipped - %v", table.lineNum, parseErr))
			continue
		}

		wells = append(wells, well)
	}

	return wells, errors, nil
}

package usecases

import (
	"fmt"
	"strings"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

const displayLayout = "2006-01-02 15:04 MST"

// FormatWellList formats wells for display, one per line
func FormatWellList(wells []entities.Well) string {
	if len(wells) == 0 {
		return "No wells in the database."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Monitoring wells (%d):\n\n", len(wells)))
	for _, w := range wells {
		result.WriteString(fmt.Sprintf("• %s", w.WellNumber))
		if w.Aquifer != "" {
			result.WriteString(fmt.Sprintf(" (%s)", w.Aquifer))
		}
		if w.BaroStatus == entities.BaroStatusHasNonMaster || w.LevelStatus == entities.LevelStatusDefaultLevel {
			result.WriteString(" ⚠️")
		}
		result.WriteString("\n")
	}
	result.WriteString("\nUse /well [number] to get detailed information.")
	return result.String()
}

// FormatWellInfo formats a well summary for display
func FormatWellInfo(s *WellSummary) string {
	var result strings.Builder
	w := s.Well
	result.WriteString(fmt.Sprintf("Well %s\n\n", w.WellNumber))
	result.WriteString(fmt.Sprintf("📍 Location: %.5f, %.5f\n", w.Latitude, w.Longitude))
	result.WriteString(fmt.Sprintf("📏 Top of casing: %.2f ft\n", w.TopOfCasing))
	if w.Aquifer != "" {
		result.WriteString(fmt.Sprintf("🪨 Aquifer: %s\n", w.Aquifer))
	}
	result.WriteString(fmt.Sprintf("🔖 Baro status: %s, level status: %s\n", w.BaroStatus, w.LevelStatus))

	if s.LatestLevel != nil {
		result.WriteString(fmt.Sprintf("💧 Water level: %.2f ft\n", s.LatestLevel.WaterLevel))
		result.WriteString(fmt.Sprintf("🕒 Last reading: %s\n", s.LatestLevel.TimestampUTC.Format(displayLayout)))
	} else {
		result.WriteString("💧 No transducer readings yet\n")
	}

	if s.Statistics != nil && s.Statistics.NumPoints > 0 {
		st := s.Statistics
		result.WriteString(fmt.Sprintf("\n📊 %d points, min %.2f, max %.2f, avg %.2f ft",
			st.NumPoints, st.MinLevel, st.MaxLevel, st.AvgLevel))
	}
	return result.String()
}

// FormatMasterBaroResult formats the outcome of a master baro run
func FormatMasterBaroResult(r *MasterBaroResult) string {
	if len(r.Rows) == 0 {
		return "No master baro readings were produced."
	}
	first := r.Rows[0].TimestampUTC
	last := r.Rows[len(r.Rows)-1].TimestampUTC
	return fmt.Sprintf("Master baro created from %s\n%d buckets (%d new) between %s and %s\n%d flagged CHECK",
		strings.Join(r.UsedSerials, ", "), len(r.Rows), r.Inserted,
		first.Format(displayLayout), last.Format(displayLayout), r.Flagged)
}

// FormatMasterBaroReadings formats the most recent rows of a master series
func FormatMasterBaroReadings(rows []entities.MasterBaroReading, limit int) string {
	if len(rows) == 0 {
		return "No master baro readings in this period."
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	var result strings.Builder
	for _, row := range rows {
		result.WriteString(fmt.Sprintf("%s  %.3f PSI", row.TimestampUTC.Format("2006-01-02 15:04"), row.Pressure))
		if row.Temperature != nil {
			result.WriteString(fmt.Sprintf("  %.1f °C", *row.Temperature))
		}
		if row.QualityFlag == entities.QualityCheck {
			result.WriteString("  CHECK")
		}
		result.WriteString("\n")
	}
	return strings.TrimRight(result.String(), "\n")
}

// FormatCoverage formats the span of the master series
func FormatCoverage(c *Coverage) string {
	if c.Count == 0 {
		return "The master baro series is empty."
	}
	return fmt.Sprintf("Master baro: %d readings from %s to %s (%s)",
		c.Count, c.First.Format(displayLayout), c.Last.Format(displayLayout),
		c.Last.Sub(c.First).Round(time.Hour))
}

// FormatBarologgerList formats barologgers with their status
func FormatBarologgerList(baros []entities.Barologger) string {
	if len(baros) == 0 {
		return "No barologgers in the database."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Barologgers (%d):\n\n", len(baros)))
	for _, b := range baros {
		result.WriteString(fmt.Sprintf("• %s [%s]", b.SerialNumber, b.Status))
		if b.LocationDescription != "" {
			result.WriteString(" " + b.LocationDescription)
		}
		result.WriteString("\n")
	}
	return strings.TrimRight(result.String(), "\n")
}

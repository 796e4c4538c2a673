package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

// WaterLevelRepository defines persistence for transducers, transducer levels and manual readings
type WaterLevelRepository interface {
	SaveTransducer(ctx context.Context, t entities.Transducer) error
	GetTransducer(ctx context.Context, serial string) (*entities.Transducer, error)
	SaveWaterLevels(ctx context.Context, wellNumber string, readings []entities.WaterLevelReading, overwrite bool) (int, error)
	GetWaterLevels(ctx context.Context, wellNumber string, start, end time.Time) ([]entities.WaterLevelReading, error)
	LatestWaterLevel(ctx context.Context, wellNumber string) (*entities.WaterLevelReading, error)
	SaveManualReadings(ctx context.Context, readings []entities.ManualReading) (int, error)
	GetManualReadings(ctx context.Context, wellNumber string) ([]entities.ManualReading, error)
	NearestManualReading(ctx context.Context, wellNumber string, at time.Time) (*entities.ManualReading, error)
	RecordImportedFile(ctx context.Context, f entities.ImportedFile) error
}

// SQLiteWaterLevelRepository implements WaterLevelRepository using SQLite
type SQLiteWaterLevelRepository struct {
	m *Manager
}

// NewWaterLevelRepository creates a repository on the manager's pool
func NewWaterLevelRepository(m *Manager) *SQLiteWaterLevelRepository {
	return &SQLiteWaterLevelRepository{m: m}
}

// SaveTransducer inserts or updates a transducer and opens a location record
// when it moves to a different well
func (r *SQLiteWaterLevelRepository) SaveTransducer(ctx context.Context, t entities.Transducer) error {
	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var current sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT well_number FROM transducers WHERE serial_number = ?", t.SerialNumber).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return fmt.Errorf("failed to look up transducer %s: %w", t.SerialNumber, err)
	}
	moved := t.WellNumber != "" && (!current.Valid || current.String != t.WellNumber)

	var well any
	if t.WellNumber != "" {
		well = t.WellNumber
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transducers(serial_number, well_number, installation_date, notes)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(serial_number) DO UPDATE SET
		well_number=excluded.well_number,
		installation_date=excluded.installation_date,
		notes=excluded.notes`,
		t.SerialNumber, well, nullableTimestamp(t.InstallationDate), t.Notes); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save transducer %s: %w", t.SerialNumber, err)
	}

	if moved {
		start := t.InstallationDate
		if start.IsZero() {
			start = time.Now()
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE transducer_locations SET end_date = ? WHERE serial_number = ? AND end_date IS NULL`,
			FormatTimestamp(start), t.SerialNumber); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to close location of transducer %s: %w", t.SerialNumber, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transducer_locations(serial_number, well_number, start_date) VALUES(?, ?, ?)`,
			t.SerialNumber, t.WellNumber, FormatTimestamp(start)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to open location of transducer %s: %w", t.SerialNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.m.markModified()
	return nil
}

// GetTransducer returns a transducer by serial number
func (r *SQLiteWaterLevelRepository) GetTransducer(ctx context.Context, serial string) (*entities.Transducer, error) {
	var t entities.Transducer
	var well sql.NullString
	var installed sql.NullTime
	err := r.m.db.QueryRowContext(ctx, `
		SELECT serial_number, well_number, installation_date, COALESCE(notes, '')
		FROM transducers WHERE serial_number = ?`, serial).Scan(&t.SerialNumber, &well, &installed, &t.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transducer %s: %w", serial, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transducer %s: %w", serial, err)
	}
	t.WellNumber = well.String
	if installed.Valid {
		t.InstallationDate = installed.Time.UTC()
	}
	return &t, nil
}

// SaveWaterLevels stores compensated levels of a well. With overwrite set the
// existing rows inside the new span are replaced.
func (r *SQLiteWaterLevelRepository) SaveWaterLevels(ctx context.Context, wellNumber string, readings []entities.WaterLevelReading, overwrite bool) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	first, last := readings[0].TimestampUTC, readings[0].TimestampUTC
	for _, wl := range readings[1:] {
		if wl.TimestampUTC.Before(first) {
			first = wl.TimestampUTC
		}
		if wl.TimestampUTC.After(last) {
			last = wl.TimestampUTC
		}
	}

	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if overwrite {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM water_level_readings
			WHERE well_number = ? AND timestamp_utc >= ? AND timestamp_utc <= ?`,
			wellNumber, FormatTimestamp(first), FormatTimestamp(last)); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to delete existing levels of well %s: %w", wellNumber, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO water_level_readings(well_number, serial_number, timestamp_utc, julian_timestamp,
			pressure, baro_pressure, water_pressure, water_level, temperature, baro_flag, level_flag)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(well_number, timestamp_utc) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, wl := range readings {
		res, err := stmt.ExecContext(ctx,
			wellNumber,
			wl.SerialNumber,
			FormatTimestamp(wl.TimestampUTC),
			JulianDate(wl.TimestampUTC),
			wl.Pressure,
			wl.BaroPressure,
			wl.WaterPressure,
			wl.WaterLevel,
			nullableFloat(wl.Temperature),
			string(wl.BaroFlag),
			string(wl.LevelFlag),
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert level for %s at %s: %w",
				wellNumber, FormatTimestamp(wl.TimestampUTC), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.m.markModified()

	log.Printf("Saved %d of %d water level readings for well %s", inserted, len(readings), wellNumber)
	return inserted, nil
}

const waterLevelColumns = `id, well_number, serial_number, timestamp_utc, julian_timestamp, pressure,
	COALESCE(baro_pressure, 0), COALESCE(water_pressure, 0), COALESCE(water_level, 0), temperature,
	COALESCE(baro_flag, ''), COALESCE(level_flag, '')`

func scanWaterLevel(s rowScanner) (*entities.WaterLevelReading, error) {
	var wl entities.WaterLevelReading
	var temp sql.NullFloat64
	var baro, level string
	if err := s.Scan(&wl.ID, &wl.WellNumber, &wl.SerialNumber, &wl.TimestampUTC, &wl.JulianTimestamp,
		&wl.Pressure, &wl.BaroPressure, &wl.WaterPressure, &wl.WaterLevel, &temp, &baro, &level); err != nil {
		return nil, err
	}
	wl.TimestampUTC = wl.TimestampUTC.UTC()
	wl.Temperature = floatPtr(temp)
	wl.BaroFlag = entities.BaroFlag(baro)
	wl.LevelFlag = entities.LevelStatus(level)
	return &wl, nil
}

// GetWaterLevels returns a well's compensated levels in [start, end]
func (r *SQLiteWaterLevelRepository) GetWaterLevels(ctx context.Context, wellNumber string, start, end time.Time) ([]entities.WaterLevelReading, error) {
	rows, err := r.m.db.QueryContext(ctx, "SELECT "+waterLevelColumns+`
		FROM water_level_readings
		WHERE well_number = ? AND timestamp_utc >= ? AND timestamp_utc <= ?
		ORDER BY timestamp_utc`,
		wellNumber, FormatTimestamp(start), FormatTimestamp(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query levels of well %s: %w", wellNumber, err)
	}
	defer rows.Close()

	var result []entities.WaterLevelReading
	for rows.Next() {
		wl, err := scanWaterLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *wl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// LatestWaterLevel returns the most recent level of a well
func (r *SQLiteWaterLevelRepository) LatestWaterLevel(ctx context.Context, wellNumber string) (*entities.WaterLevelReading, error) {
	row := r.m.db.QueryRowContext(ctx, "SELECT "+waterLevelColumns+`
		FROM water_level_readings WHERE well_number = ?
		ORDER BY timestamp_utc DESC LIMIT 1`, wellNumber)
	wl, err := scanWaterLevel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("levels of well %s: %w", wellNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest level of well %s: %w", wellNumber, err)
	}
	return wl, nil
}

// SaveManualReadings upserts manual measurements keyed by well and date
func (r *SQLiteWaterLevelRepository) SaveManualReadings(ctx context.Context, readings []entities.ManualReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO manual_level_readings(well_number, measurement_date_utc, dtw_avg, dtw_1, dtw_2,
			tape_error, comments, water_level, data_source, collected_by, is_dry)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(well_number, measurement_date_utc) DO UPDATE SET
		dtw_avg=excluded.dtw_avg,
		dtw_1=excluded.dtw_1,
		dtw_2=excluded.dtw_2,
		tape_error=excluded.tape_error,
		comments=excluded.comments,
		water_level=excluded.water_level,
		data_source=excluded.data_source,
		collected_by=excluded.collected_by,
		is_dry=excluded.is_dry`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, mr := range readings {
		dry := 0
		if mr.IsDry {
			dry = 1
		}
		if _, err := stmt.ExecContext(ctx,
			mr.WellNumber,
			FormatTimestamp(mr.MeasurementDateUTC),
			mr.DTWAvg,
			mr.DTW1,
			nullableFloat(mr.DTW2),
			nullableFloat(mr.TapeError),
			mr.Comments,
			mr.WaterLevel,
			mr.DataSource,
			mr.CollectedBy,
			dry,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to save manual reading for %s at %s: %w",
				mr.WellNumber, FormatTimestamp(mr.MeasurementDateUTC), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.m.markModified()

	log.Printf("Successfully saved %d manual readings", len(readings))
	return len(readings), nil
}

const manualColumns = `id, well_number, measurement_date_utc, COALESCE(dtw_avg, 0), COALESCE(dtw_1, 0), dtw_2,
	tape_error, COALESCE(comments, ''), COALESCE(water_level, 0), COALESCE(data_source, ''),
	COALESCE(collected_by, ''), is_dry`

func scanManualReading(s rowScanner) (*entities.ManualReading, error) {
	var mr entities.ManualReading
	var dtw2, tape sql.NullFloat64
	var dry int
	if err := s.Scan(&mr.ID, &mr.WellNumber, &mr.MeasurementDateUTC, &mr.DTWAvg, &mr.DTW1, &dtw2, &tape,
		&mr.Comments, &mr.WaterLevel, &mr.DataSource, &mr.CollectedBy, &dry); err != nil {
		return nil, err
	}
	mr.MeasurementDateUTC = mr.MeasurementDateUTC.UTC()
	mr.DTW2 = floatPtr(dtw2)
	mr.TapeError = floatPtr(tape)
	mr.IsDry = dry == 1
	return &mr, nil
}

// GetManualReadings returns all manual readings of a well in chronological order
func (r *SQLiteWaterLevelRepository) GetManualReadings(ctx context.Context, wellNumber string) ([]entities.ManualReading, error) {
	rows, err := r.m.db.QueryContext(ctx, "SELECT "+manualColumns+`
		FROM manual_level_readings WHERE well_number = ? ORDER BY measurement_date_utc`, wellNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual readings of well %s: %w", wellNumber, err)
	}
	defer rows.Close()

	var result []entities.ManualReading
	for rows.Next() {
		mr, err := scanManualReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *mr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// NearestManualReading returns the non-dry manual reading closest in time to at
func (r *SQLiteWaterLevelRepository) NearestManualReading(ctx context.Context, wellNumber string, at time.Time) (*entities.ManualReading, error) {
	row := r.m.db.QueryRowContext(ctx, "SELECT "+manualColumns+`
		FROM manual_level_readings
		WHERE well_number = ? AND is_dry = 0 AND water_level IS NOT NULL
		ORDER BY ABS(julianday(measurement_date_utc) - julianday(?)) LIMIT 1`,
		wellNumber, FormatTimestamp(at))
	mr, err := scanManualReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("manual readings of well %s: %w", wellNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find manual reading of well %s: %w", wellNumber, err)
	}
	return mr, nil
}

// RecordImportedFile remembers a transducer file that was loaded
func (r *SQLiteWaterLevelRepository) RecordImportedFile(ctx context.Context, f entities.ImportedFile) error {
	if f.ImportDate.IsZero() {
		f.ImportDate = time.Now()
	}
	_, err := r.m.db.ExecContext(ctx, `
		INSERT INTO transducer_imported_files(well_number, serial_number, starting_date, end_date, import_date, file_name)
		VALUES(?, ?, ?, ?, ?, ?)`,
		f.WellNumber, f.SerialNumber, FormatTimestamp(f.StartingDate), FormatTimestamp(f.EndDate),
		FormatTimestamp(f.ImportDate), f.FileName)
	if err != nil {
		return fmt.Errorf("failed to record imported file %s: %w", f.FileName, err)
	}
	r.m.markModified()
	return nil
}

var _ WaterLevelRepository = (*SQLiteWaterLevelRepository)(nil)

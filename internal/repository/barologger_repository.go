package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// BarologgerRepository defines persistence for barologgers, their readings and the master baro series
type BarologgerRepository interface {
	SaveBarologger(ctx context.Context, b entities.Barologger) error
	GetBarologger(ctx context.Context, serial string) (*entities.Barologger, error)
	ListBarologgers(ctx context.Context) ([]entities.Barologger, error)
	DeleteBarologger(ctx context.Context, serial string) error
	GetReadings(ctx context.Context, serial string, start, end time.Time) ([]entities.BarometricReading, error)
	SaveReadings(ctx context.Context, readings []entities.BarometricReading, overwrite bool) (int, error)
	LatestReading(ctx context.Context, serial string) (*entities.BarometricReading, error)
	RecordImportedFile(ctx context.Context, f entities.ImportedFile) error
	SaveMasterBaro(ctx context.Context, rows []entities.MasterBaroReading, overwrite bool) (int, error)
	GetMasterBaro(ctx context.Context, start, end time.Time) ([]entities.MasterBaroReading, error)
	MasterBaroCoverage(ctx context.Context) (first, last time.Time, count int, err error)
}

// SQLiteBarologgerRepository implements BarologgerRepository using SQLite
type SQLiteBarologgerRepository struct {
	m *Manager
}

// NewBarologgerRepository creates a repository on the manager's pool
func NewBarologgerRepository(m *Manager) *SQLiteBarologgerRepository {
	return &SQLiteBarologgerRepository{m: m}
}

// SaveBarologger inserts or updates a barologger
func (r *SQLiteBarologgerRepository) SaveBarologger(ctx context.Context, b entities.Barologger) error {
	if b.Status == "" {
		b.Status = entities.BarologgerActive
	}
	_, err := r.m.db.ExecContext(ctx, `
		INSERT INTO barologgers(serial_number, location_description, installation_date, status, notes)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(serial_number) DO UPDATE SET
		location_description=excluded.location_description,
		installation_date=excluded.installation_date,
		status=excluded.status,
		notes=excluded.notes`,
		b.SerialNumber, b.LocationDescription, nullableTimestamp(b.InstallationDate), string(b.Status), b.Notes)
	if err != nil {
		return fmt.Errorf("failed to save barologger %s: %w", b.SerialNumber, err)
	}
	r.m.markModified()
	return nil
}

// GetBarologger returns a barologger by serial number
func (r *SQLiteBarologgerRepository) GetBarologger(ctx context.Context, serial string) (*entities.Barologger, error) {
	row := r.m.db.QueryRowContext(ctx, `
		SELECT serial_number, location_description, installation_date, status, COALESCE(notes, '')
		FROM barologgers WHERE serial_number = ?`, serial)

	b, err := scanBarologger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("barologger %s: %w", serial, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get barologger %s: %w", serial, err)
	}
	return b, nil
}

// ListBarologgers returns all barologgers ordered by serial number
func (r *SQLiteBarologgerRepository) ListBarologgers(ctx context.Context) ([]entities.Barologger, error) {
	rows, err := r.m.db.QueryContext(ctx, `
		SELECT serial_number, location_description, installation_date, status, COALESCE(notes, '')
		FROM barologgers ORDER BY serial_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query barologgers: %w", err)
	}
	defer rows.Close()

	var result []entities.Barologger
	for rows.Next() {
		b, err := scanBarologger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBarologger(s rowScanner) (*entities.Barologger, error) {
	var b entities.Barologger
	var installed sql.NullTime
	var status string
	if err := s.Scan(&b.SerialNumber, &b.LocationDescription, &installed, &status, &b.Notes); err != nil {
		return nil, err
	}
	if installed.Valid {
		b.InstallationDate = installed.Time.UTC()
	}
	b.Status = entities.BarologgerStatus(status)
	return &b, nil
}

// DeleteBarologger removes a barologger together with its readings, locations and file records.
// The schema does not cascade, so dependents are deleted explicitly.
func (r *SQLiteBarologgerRepository) DeleteBarologger(ctx context.Context, serial string) error {
	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, stmt := range []string{
		"DELETE FROM barometric_readings WHERE serial_number = ?",
		"DELETE FROM barologger_locations WHERE serial_number = ?",
		"DELETE FROM barologger_imported_files WHERE serial_number = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, serial); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to delete dependents of barologger %s: %w", serial, err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM barologgers WHERE serial_number = ?", serial)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete barologger %s: %w", serial, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("barologger %s: %w", serial, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.m.markModified()
	log.Printf("Deleted barologger %s and its readings", serial)
	return nil
}

// GetReadings retrieves a barologger's readings in the closed interval [start, end]
func (r *SQLiteBarologgerRepository) GetReadings(ctx context.Context, serial string, start, end time.Time) ([]entities.BarometricReading, error) {
	rows, err := r.m.db.QueryContext(ctx, `
		SELECT id, serial_number, timestamp_utc, julian_timestamp, pressure, temperature,
			COALESCE(quality_flag, ''), COALESCE(notes, '')
		FROM barometric_readings
		WHERE serial_number = ? AND timestamp_utc >= ? AND timestamp_utc <= ?
		ORDER BY timestamp_utc`,
		serial, FormatTimestamp(start), FormatTimestamp(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query readings for %s: %w", serial, err)
	}
	defer rows.Close()

	var result []entities.BarometricReading
	for rows.Next() {
		reading, err := scanBarometricReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

func scanBarometricReading(s rowScanner) (*entities.BarometricReading, error) {
	var br entities.BarometricReading
	var temp sql.NullFloat64
	if err := s.Scan(&br.ID, &br.SerialNumber, &br.TimestampUTC, &br.JulianTimestamp,
		&br.Pressure, &temp, &br.QualityFlag, &br.Notes); err != nil {
		return nil, err
	}
	br.TimestampUTC = br.TimestampUTC.UTC()
	br.Temperature = floatPtr(temp)
	return &br, nil
}

// LatestReading returns the most recent reading of a barologger
func (r *SQLiteBarologgerRepository) LatestReading(ctx context.Context, serial string) (*entities.BarometricReading, error) {
	row := r.m.db.QueryRowContext(ctx, `
		SELECT id, serial_number, timestamp_utc, julian_timestamp, pressure, temperature,
			COALESCE(quality_flag, ''), COALESCE(notes, '')
		FROM barometric_readings
		WHERE serial_number = ?
		ORDER BY timestamp_utc DESC LIMIT 1`, serial)

	reading, err := scanBarometricReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("readings for %s: %w", serial, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading for %s: %w", serial, err)
	}
	return reading, nil
}

// SaveReadings stores barometric readings in one transaction. With overwrite set,
// each logger's existing readings inside the new readings' span are deleted first;
// otherwise readings at timestamps already present are skipped. Any other
// constraint failure rolls back the whole batch, delete included.
func (r *SQLiteBarologgerRepository) SaveReadings(ctx context.Context, readings []entities.BarometricReading, overwrite bool) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if overwrite {
		for serial, span := range readingSpans(readings) {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM barometric_readings
				WHERE serial_number = ? AND timestamp_utc >= ? AND timestamp_utc <= ?`,
				serial, FormatTimestamp(span[0]), FormatTimestamp(span[1])); err != nil {
				tx.Rollback()
				return 0, fmt.Errorf("failed to delete existing readings for %s: %w", serial, err)
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO barometric_readings(serial_number, timestamp_utc, julian_timestamp,
			pressure, temperature, quality_flag, notes)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(serial_number, timestamp_utc) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, br := range readings {
		res, err := stmt.ExecContext(ctx,
			br.SerialNumber,
			FormatTimestamp(br.TimestampUTC),
			JulianDate(br.TimestampUTC),
			br.Pressure,
			nullableFloat(br.Temperature),
			br.QualityFlag,
			br.Notes,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert reading for %s at %s: %w",
				br.SerialNumber, FormatTimestamp(br.TimestampUTC), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.m.markModified()

	log.Printf("Saved %d of %d barometric readings", inserted, len(readings))
	return inserted, nil
}

func readingSpans(readings []entities.BarometricReading) map[string][2]time.Time {
	spans := make(map[string][2]time.Time)
	for _, br := range readings {
		span, ok := spans[br.SerialNumber]
		if !ok {
			spans[br.SerialNumber] = [2]time.Time{br.TimestampUTC, br.TimestampUTC}
			continue
		}
		if br.TimestampUTC.Before(span[0]) {
			span[0] = br.TimestampUTC
		}
		if br.TimestampUTC.After(span[1]) {
			span[1] = br.TimestampUTC
		}
		spans[br.SerialNumber] = span
	}
	return spans
}

// RecordImportedFile remembers a barologger file that was loaded
func (r *SQLiteBarologgerRepository) RecordImportedFile(ctx context.Context, f entities.ImportedFile) error {
	if f.ImportDate.IsZero() {
		f.ImportDate = time.Now()
	}
	_, err := r.m.db.ExecContext(ctx, `
		INSERT INTO barologger_imported_files(serial_number, starting_date, end_date, import_date, file_name)
		VALUES(?, ?, ?, ?, ?)`,
		f.SerialNumber, FormatTimestamp(f.StartingDate), FormatTimestamp(f.EndDate),
		FormatTimestamp(f.ImportDate), f.FileName)
	if err != nil {
		return fmt.Errorf("failed to record imported file %s: %w", f.FileName, err)
	}
	r.m.markModified()
	return nil
}

// SaveMasterBaro persists master baro rows. The delete of the overlapping span
// and the inserts share one transaction, so a failure leaves the table untouched.
func (r *SQLiteBarologgerRepository) SaveMasterBaro(ctx context.Context, rows []entities.MasterBaroReading, overwrite bool) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	first, last := rows[0].TimestampUTC, rows[0].TimestampUTC
	for _, row := range rows[1:] {
		if row.TimestampUTC.Before(first) {
			first = row.TimestampUTC
		}
		if row.TimestampUTC.After(last) {
			last = row.TimestampUTC
		}
	}

	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	insertSQL := `
		INSERT INTO master_baro_readings(timestamp_utc, julian_timestamp, pressure, temperature,
			source_barologgers, processing_date, notes, quality_flag, calculation_method)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(timestamp_utc) DO NOTHING`

	if overwrite {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM master_baro_readings WHERE timestamp_utc >= ? AND timestamp_utc <= ?`,
			FormatTimestamp(first), FormatTimestamp(last))
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to delete existing master baro readings: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Printf("Deleted %d existing master baro readings between %s and %s",
				n, FormatTimestamp(first), FormatTimestamp(last))
		}
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		sources, err := json.Marshal(row.SourceBarologgers)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to encode source barologgers: %w", err)
		}
		res, err := stmt.ExecContext(ctx,
			FormatTimestamp(row.TimestampUTC),
			JulianDate(row.TimestampUTC),
			row.Pressure,
			nullableFloat(row.Temperature),
			string(sources),
			FormatTimestamp(row.ProcessingDate),
			row.Notes,
			row.QualityFlag,
			row.CalculationMethod,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert master baro reading at %s: %w",
				FormatTimestamp(row.TimestampUTC), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.m.markModified()

	log.Printf("Saved %d master baro readings", inserted)
	return inserted, nil
}

// GetMasterBaro returns master baro readings in [start, end]
func (r *SQLiteBarologgerRepository) GetMasterBaro(ctx context.Context, start, end time.Time) ([]entities.MasterBaroReading, error) {
	rows, err := r.m.db.QueryContext(ctx, `
		SELECT id, timestamp_utc, julian_timestamp, pressure, temperature, source_barologgers,
			processing_date, COALESCE(notes, ''), COALESCE(quality_flag, ''), COALESCE(calculation_method, '')
		FROM master_baro_readings
		WHERE timestamp_utc >= ? AND timestamp_utc <= ?
		ORDER BY timestamp_utc`,
		FormatTimestamp(start), FormatTimestamp(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query master baro readings: %w", err)
	}
	defer rows.Close()

	var result []entities.MasterBaroReading
	for rows.Next() {
		var mb entities.MasterBaroReading
		var temp sql.NullFloat64
		var sources string
		if err := rows.Scan(&mb.ID, &mb.TimestampUTC, &mb.JulianTimestamp, &mb.Pressure, &temp, &sources,
			&mb.ProcessingDate, &mb.Notes, &mb.QualityFlag, &mb.CalculationMethod); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &mb.SourceBarologgers); err != nil {
			return nil, fmt.Errorf("failed to decode source barologgers %q: %w", sources, err)
		}
		mb.TimestampUTC = mb.TimestampUTC.UTC()
		mb.ProcessingDate = mb.ProcessingDate.UTC()
		mb.Temperature = floatPtr(temp)
		result = append(result, mb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// MasterBaroCoverage returns the first and last master baro timestamps and the row count
func (r *SQLiteBarologgerRepository) MasterBaroCoverage(ctx context.Context) (time.Time, time.Time, int, error) {
	var firstStr, lastStr sql.NullString
	var count int
	err := r.m.db.QueryRowContext(ctx, `
		SELECT MIN(timestamp_utc), MAX(timestamp_utc), COUNT(*) FROM master_baro_readings`).
		Scan(&firstStr, &lastStr, &count)
	if err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("failed to get master baro coverage: %w", err)
	}

	first, err := parseTimestamp(firstStr)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	last, err := parseTimestamp(lastStr)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	return first, last, count, nil
}

var _ BarologgerRepository = (*SQLiteBarologgerRepository)(nil)

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

// WellRepository defines persistence for wells, their status flags and statistics
type WellRepository interface {
	SaveWells(ctx context.Context, wells []entities.Well) error
	GetWell(ctx context.Context, wellNumber string) (*entities.Well, error)
	ListWells(ctx context.Context) ([]entities.Well, error)
	DeleteWell(ctx context.Context, wellNumber string) error
	RefreshWellStatus(ctx context.Context, wellNumber string) (entities.BaroStatus, entities.LevelStatus, error)
	UpdateWellStatistics(ctx context.Context, wellNumber string) (*entities.WellStatistics, error)
	GetWellStatistics(ctx context.Context, wellNumber string) (*entities.WellStatistics, error)
}

// SQLiteWellRepository implements WellRepository using SQLite
type SQLiteWellRepository struct {
	m *Manager
}

// NewWellRepository creates a repository on the manager's pool
func NewWellRepository(m *Manager) *SQLiteWellRepository {
	return &SQLiteWellRepository{m: m}
}

const wellColumns = `well_number, COALESCE(cae_number, ''), latitude, longitude, top_of_casing,
	COALESCE(aquifer, ''), COALESCE(well_field, ''), COALESCE(county, ''), COALESCE(cluster, ''),
	data_source, COALESCE(url, ''), COALESCE(notes, ''), baro_status, level_status`

func scanWell(s rowScanner) (*entities.Well, error) {
	var w entities.Well
	var source, baro, level string
	if err := s.Scan(&w.WellNumber, &w.CAENumber, &w.Latitude, &w.Longitude, &w.TopOfCasing,
		&w.Aquifer, &w.WellField, &w.County, &w.Cluster, &source, &w.URL, &w.Notes, &baro, &level); err != nil {
		return nil, err
	}
	w.DataSource = entities.DataSource(source)
	w.BaroStatus = entities.BaroStatus(baro)
	w.LevelStatus = entities.LevelStatus(level)
	return &w, nil
}

// SaveWells inserts or updates wells in one transaction. Status columns are
// derived from readings and are left untouched on update.
func (r *SQLiteWellRepository) SaveWells(ctx context.Context, wells []entities.Well) error {
	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wells(well_number, cae_number, latitude, longitude, top_of_casing, aquifer,
			well_field, county, cluster, data_source, url, notes)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(well_number) DO UPDATE SET
		cae_number=excluded.cae_number,
		latitude=excluded.latitude,
		longitude=excluded.longitude,
		top_of_casing=excluded.top_of_casing,
		aquifer=excluded.aquifer,
		well_field=excluded.well_field,
		county=excluded.county,
		cluster=excluded.cluster,
		data_source=excluded.data_source,
		url=excluded.url,
		notes=excluded.notes`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, w := range wells {
		source := w.DataSource
		if source == "" {
			source = entities.DataSourceTransducer
		}
		if _, err := stmt.ExecContext(ctx, w.WellNumber, w.CAENumber, w.Latitude, w.Longitude, w.TopOfCasing,
			w.Aquifer, w.WellField, w.County, w.Cluster, string(source), w.URL, w.Notes); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save well %s: %w", w.WellNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.m.markModified()

	log.Printf("Successfully saved %d wells", len(wells))
	return nil
}

// GetWell returns a single well
func (r *SQLiteWellRepository) GetWell(ctx context.Context, wellNumber string) (*entities.Well, error) {
	row := r.m.db.QueryRowContext(ctx, "SELECT "+wellColumns+" FROM wells WHERE well_number = ?", wellNumber)
	w, err := scanWell(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("well %s: %w", wellNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get well %s: %w", wellNumber, err)
	}
	return w, nil
}

// ListWells returns every well ordered by well number
func (r *SQLiteWellRepository) ListWells(ctx context.Context) ([]entities.Well, error) {
	rows, err := r.m.db.QueryContext(ctx, "SELECT "+wellColumns+" FROM wells ORDER BY well_number")
	if err != nil {
		return nil, fmt.Errorf("failed to query wells: %w", err)
	}
	defer rows.Close()

	var result []entities.Well
	for rows.Next() {
		w, err := scanWell(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// DeleteWell removes a well and every row that references it
func (r *SQLiteWellRepository) DeleteWell(ctx context.Context, wellNumber string) error {
	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, stmt := range []string{
		"DELETE FROM water_level_readings WHERE well_number = ?",
		"DELETE FROM manual_level_readings WHERE well_number = ?",
		"DELETE FROM telemetry_level_readings WHERE well_number = ?",
		"DELETE FROM transducer_locations WHERE well_number = ?",
		"DELETE FROM transducer_imported_files WHERE well_number = ?",
		"DELETE FROM well_statistics WHERE well_number = ?",
		"UPDATE transducers SET well_number = NULL WHERE well_number = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, wellNumber); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to delete dependents of well %s: %w", wellNumber, err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM wells WHERE well_number = ?", wellNumber)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete well %s: %w", wellNumber, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("well %s: %w", wellNumber, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.m.markModified()
	log.Printf("Deleted well %s and its readings", wellNumber)
	return nil
}

// RefreshWellStatus recomputes baro_status and level_status from the well's transducer readings
func (r *SQLiteWellRepository) RefreshWellStatus(ctx context.Context, wellNumber string) (entities.BaroStatus, entities.LevelStatus, error) {
	var total, nonMaster, defaultLevel int
	err := r.m.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN baro_flag IS NULL OR baro_flag != 'master' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN level_flag IS NULL OR level_flag != 'confirmed' THEN 1 ELSE 0 END), 0)
		FROM water_level_readings WHERE well_number = ?`, wellNumber).Scan(&total, &nonMaster, &defaultLevel)
	if err != nil {
		return "", "", fmt.Errorf("failed to compute status of well %s: %w", wellNumber, err)
	}

	baro := entities.BaroStatusAllMaster
	level := entities.LevelStatusConfirmed
	switch {
	case total == 0:
		baro = entities.BaroStatusNoData
		level = entities.LevelStatusNoData
	default:
		if nonMaster > 0 {
			baro = entities.BaroStatusHasNonMaster
		}
		if defaultLevel > 0 {
			level = entities.LevelStatusDefaultLevel
		}
	}

	res, err := r.m.db.ExecContext(ctx, `
		UPDATE wells SET baro_status = ?, level_status = ? WHERE well_number = ?`,
		string(baro), string(level), wellNumber)
	if err != nil {
		return "", "", fmt.Errorf("failed to update status of well %s: %w", wellNumber, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", "", fmt.Errorf("well %s: %w", wellNumber, ErrNotFound)
	}
	r.m.markModified()
	return baro, level, nil
}

// UpdateWellStatistics recalculates the cached statistics row of a well from
// its transducer, telemetry and manual levels
func (r *SQLiteWellRepository) UpdateWellStatistics(ctx context.Context, wellNumber string) (*entities.WellStatistics, error) {
	var count int
	var minLevel, maxLevel, avgLevel sql.NullFloat64
	var lastStr sql.NullString
	err := r.m.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(level), MAX(level), AVG(level), MAX(ts) FROM (
			SELECT water_level AS level, timestamp_utc AS ts FROM water_level_readings
			WHERE well_number = ? AND water_level IS NOT NULL
			UNION ALL
			SELECT water_level, timestamp_utc FROM telemetry_level_readings
			WHERE well_number = ? AND water_level IS NOT NULL
			UNION ALL
			SELECT water_level, measurement_date_utc FROM manual_level_readings
			WHERE well_number = ? AND water_level IS NOT NULL
		)`, wellNumber, wellNumber, wellNumber).Scan(&count, &minLevel, &maxLevel, &avgLevel, &lastStr)
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics of well %s: %w", wellNumber, err)
	}

	last, err := parseTimestamp(lastStr)
	if err != nil {
		return nil, err
	}

	stats := &entities.WellStatistics{
		WellNumber:      wellNumber,
		NumPoints:       count,
		MinLevel:        minLevel.Float64,
		MaxLevel:        maxLevel.Float64,
		AvgLevel:        avgLevel.Float64,
		LastReadingDate: last,
		LastUpdate:      time.Now().UTC().Truncate(time.Second),
	}

	_, err = r.m.db.ExecContext(ctx, `
		INSERT INTO well_statistics(well_number, num_points, min_level, max_level, avg_level, last_reading_date, last_update)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(well_number) DO UPDATE SET
		num_points=excluded.num_points,
		min_level=excluded.min_level,
		max_level=excluded.max_level,
		avg_level=excluded.avg_level,
		last_reading_date=excluded.last_reading_date,
		last_update=excluded.last_update`,
		wellNumber, count, floatOrNil(minLevel), floatOrNil(maxLevel), floatOrNil(avgLevel),
		nullableTimestamp(last), FormatTimestamp(stats.LastUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to save statistics of well %s: %w", wellNumber, err)
	}
	r.m.markModified()
	return stats, nil
}

// GetWellStatistics returns the cached statistics row of a well
func (r *SQLiteWellRepository) GetWellStatistics(ctx context.Context, wellNumber string) (*entities.WellStatistics, error) {
	var stats entities.WellStatistics
	var minLevel, maxLevel, avgLevel sql.NullFloat64
	var last, updated sql.NullTime
	err := r.m.db.QueryRowContext(ctx, `
		SELECT well_number, num_points, min_level, max_level, avg_level, last_reading_date, last_update
		FROM well_statistics WHERE well_number = ?`, wellNumber).
		Scan(&stats.WellNumber, &stats.NumPoints, &minLevel, &maxLevel, &avgLevel, &last, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("statistics of well %s: %w", wellNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics of well %s: %w", wellNumber, err)
	}
	stats.MinLevel = minLevel.Float64
	stats.MaxLevel = maxLevel.Float64
	stats.AvgLevel = avgLevel.Float64
	if last.Valid {
		stats.LastReadingDate = last.Time.UTC()
	}
	if updated.Valid {
		stats.LastUpdate = updated.Time.UTC()
	}
	return &stats, nil
}

func floatOrNil(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

var _ WellRepository = (*SQLiteWellRepository)(nil)

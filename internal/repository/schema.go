package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates every table and index used by the application.
// Each statement is idempotent so Initialize can run on every open.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS wells (
		well_number TEXT PRIMARY KEY,
		cae_number TEXT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		top_of_casing REAL NOT NULL,
		aquifer TEXT,
		well_field TEXT,
		county TEXT,
		cluster TEXT,
		data_source TEXT NOT NULL DEFAULT 'transducer' CHECK (data_source IN ('transducer', 'telemetry')),
		url TEXT,
		notes TEXT,
		baro_status TEXT NOT NULL DEFAULT 'no_data' CHECK (baro_status IN ('no_data', 'all_master', 'has_non_master')),
		level_status TEXT NOT NULL DEFAULT 'no_data' CHECK (level_status IN ('no_data', 'default_level', 'confirmed'))
	)`,
	`CREATE TABLE IF NOT EXISTS transducers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		serial_number TEXT NOT NULL UNIQUE,
		well_number TEXT REFERENCES wells (well_number),
		installation_date TIMESTAMP,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS transducer_locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		serial_number TEXT NOT NULL REFERENCES transducers (serial_number),
		well_number TEXT NOT NULL REFERENCES wells (well_number),
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS barologgers (
		serial_number TEXT PRIMARY KEY,
		location_description TEXT NOT NULL,
		installation_date TIMESTAMP,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive', 'maintenance')),
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS barologger_locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		serial_number TEXT NOT NULL REFERENCES barologgers (serial_number),
		location_description TEXT NOT NULL,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS barometric_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		serial_number TEXT NOT NULL REFERENCES barologgers (serial_number),
		timestamp_utc TIMESTAMP NOT NULL,
		julian_timestamp REAL NOT NULL,
		pressure REAL NOT NULL,
		temperature REAL,
		quality_flag TEXT,
		notes TEXT,
		UNIQUE (serial_number, timestamp_utc)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_baro_serial_julian ON barometric_readings (serial_number, julian_timestamp)`,
	`CREATE TABLE IF NOT EXISTS master_baro_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp_utc TIMESTAMP NOT NULL UNIQUE,
		julian_timestamp REAL NOT NULL,
		pressure REAL NOT NULL,
		temperature REAL,
		source_barologgers TEXT NOT NULL,
		processing_date TIMESTAMP NOT NULL,
		notes TEXT,
		quality_flag TEXT CHECK (quality_flag IN ('AUTO', 'CHECK', 'MANUAL')),
		calculation_method TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_master_baro_julian ON master_baro_readings (julian_timestamp)`,
	`CREATE TABLE IF NOT EXISTS water_level_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		well_number TEXT NOT NULL REFERENCES wells (well_number),
		serial_number TEXT NOT NULL,
		timestamp_utc TIMESTAMP NOT NULL,
		julian_timestamp REAL NOT NULL,
		pressure REAL NOT NULL,
		baro_pressure REAL,
		water_pressure REAL,
		water_level REAL,
		temperature REAL,
		baro_flag TEXT CHECK (baro_flag IN ('master', 'standard')),
		level_flag TEXT CHECK (level_flag IN ('default_level', 'confirmed')),
		UNIQUE (well_number, timestamp_utc)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_water_level_well_julian ON water_level_readings (well_number, julian_timestamp)`,
	`CREATE TABLE IF NOT EXISTS manual_level_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		well_number TEXT NOT NULL REFERENCES wells (well_number),
		measurement_date_utc TIMESTAMP NOT NULL,
		dtw_avg REAL,
		dtw_1 REAL,
		dtw_2 REAL,
		tape_error REAL,
		comments TEXT,
		water_level REAL,
		data_source TEXT,
		collected_by TEXT,
		is_dry INTEGER NOT NULL DEFAULT 0 CHECK (is_dry IN (0, 1)),
		UNIQUE (well_number, measurement_date_utc)
	)`,
	`CREATE TABLE IF NOT EXISTS water_level_meter_corrections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		serial_number TEXT NOT NULL,
		range_start REAL NOT NULL,
		range_end REAL NOT NULL,
		correction_factor REAL NOT NULL,
		calibration_date TIMESTAMP,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS telemetry_level_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		well_number TEXT NOT NULL REFERENCES wells (well_number),
		timestamp_utc TIMESTAMP NOT NULL,
		julian_timestamp REAL NOT NULL,
		temperature REAL,
		water_level REAL,
		UNIQUE (well_number, timestamp_utc)
	)`,
	`CREATE TABLE IF NOT EXISTS transducer_imported_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		well_number TEXT NOT NULL,
		serial_number TEXT NOT NULL,
		starting_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		import_date TIMESTAMP NOT NULL,
		file_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS barologger_imported_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		serial_number TEXT NOT NULL,
		starting_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		import_date TIMESTAMP NOT NULL,
		file_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS well_statistics (
		well_number TEXT PRIMARY KEY REFERENCES wells (well_number),
		num_points INTEGER NOT NULL DEFAULT 0,
		min_level REAL,
		max_level REAL,
		avg_level REAL,
		last_reading_date TIMESTAMP,
		last_update TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name TEXT,
		role TEXT NOT NULL DEFAULT 'tech' CHECK (role IN ('admin', 'tech')),
		created_at TIMESTAMP NOT NULL
	)`,
}

// Tables lists the tables created by Initialize
var Tables = []string{
	"wells",
	"transducers",
	"transducer_locations",
	"barologgers",
	"barologger_locations",
	"barometric_readings",
	"master_baro_readings",
	"water_level_readings",
	"manual_level_readings",
	"water_level_meter_corrections",
	"telemetry_level_readings",
	"transducer_imported_files",
	"barologger_imported_files",
	"well_statistics",
	"users",
}

// Initialize creates the schema inside a single transaction
func Initialize(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

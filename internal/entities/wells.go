// Package entities contains the core domain objects for the water levels application
package entities

import (
	"time"
)

// BaroStatus summarizes which barometric source compensated a well's transducer readings
type BaroStatus string

const (
	BaroStatusNoData       BaroStatus = "no_data"
	BaroStatusAllMaster    BaroStatus = "all_master"
	BaroStatusHasNonMaster BaroStatus = "has_non_master"
)

// LevelStatus summarizes how a well's transducer levels were referenced
type LevelStatus string

const (
	LevelStatusNoData       LevelStatus = "no_data"
	LevelStatusDefaultLevel LevelStatus = "default_level"
	LevelStatusConfirmed    LevelStatus = "confirmed"
)

// DataSource is where a well's continuous record comes from
type DataSource string

const (
	DataSourceTransducer DataSource = "transducer"
	DataSourceTelemetry  DataSource = "telemetry"
)

// Well represents a monitoring well
type Well struct {
	WellNumber  string // Well identifier (WN)
	CAENumber   string // Secondary identifier used by the county
	Latitude    float64
	Longitude   float64
	TopOfCasing float64 // TOC elevation in ft
	Aquifer     string
	WellField   string
	County      string
	Cluster     string
	DataSource  DataSource
	URL         string
	Notes       string
	BaroStatus  BaroStatus
	LevelStatus LevelStatus
}

// WellStatistics caches summary values of a well's water level record
type WellStatistics struct {
	WellNumber      string
	NumPoints       int
	MinLevel        float64
	MaxLevel        float64
	AvgLevel        float64
	LastReadingDate time.Time
	LastUpdate      time.Time
}

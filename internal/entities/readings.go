package entities

import (
	"time"
)

// Quality flags assigned to readings
const (
	QualityAuto   = "AUTO"
	QualityCheck  = "CHECK"
	QualityManual = "MANUAL"
)

// BaroFlag tells which barometric series compensated a water level reading
type BaroFlag string

const (
	BaroFlagMaster   BaroFlag = "master"
	BaroFlagStandard BaroFlag = "standard"
)

// BarometricReading is a single barologger sample
type BarometricReading struct {
	ID              int64
	SerialNumber    string
	TimestampUTC    time.Time
	JulianTimestamp float64
	Pressure        float64  // PSI
	Temperature     *float64 // °C, nil when the logger did not record it
	QualityFlag     string
	Notes           string
}

// MasterBaroReading is one 15-minute bucket of the consolidated barometric series
type MasterBaroReading struct {
	ID                int64
	TimestampUTC      time.Time
	JulianTimestamp   float64
	Pressure          float64
	Temperature       *float64
	SourceBarologgers []string
	ProcessingDate    time.Time
	Notes             string
	QualityFlag       string
	CalculationMethod string
}

// WaterLevelReading is a barometrically compensated transducer sample
type WaterLevelReading struct {
	ID              int64
	WellNumber      string
	SerialNumber    string
	TimestampUTC    time.Time
	JulianTimestamp float64
	Pressure        float64 // raw transducer pressure, PSI
	BaroPressure    float64
	WaterPressure   float64
	WaterLevel      float64 // elevation, ft
	Temperature     *float64
	BaroFlag        BaroFlag
	LevelFlag       LevelStatus
}

// ManualReading is a field depth-to-water measurement
type ManualReading struct {
	ID                 int64
	WellNumber         string
	MeasurementDateUTC time.Time
	DTWAvg             float64
	DTW1               float64
	DTW2               *float64
	TapeError          *float64
	Comments           string
	WaterLevel         float64
	DataSource         string
	CollectedBy        string
	IsDry              bool
}

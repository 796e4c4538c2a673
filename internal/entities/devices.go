package entities

import (
	"time"
)

// BarologgerStatus is the deployment state of a barologger
type BarologgerStatus string

const (
	BarologgerActive      BarologgerStatus = "active"
	BarologgerInactive    BarologgerStatus = "inactive"
	BarologgerMaintenance BarologgerStatus = "maintenance"
)

// Barologger is a fixed-location barometric pressure sensor
type Barologger struct {
	SerialNumber        string
	LocationDescription string
	InstallationDate    time.Time
	Status              BarologgerStatus
	Notes               string
}

// Transducer is a submerged pressure logger installed in a well
type Transducer struct {
	SerialNumber     string
	WellNumber       string
	InstallationDate time.Time
	Notes            string
}

// ImportedFile records a logger file that has been loaded into the database
type ImportedFile struct {
	ID           int64
	SerialNumber string
	WellNumber   string // Empty for barologger files
	StartingDate time.Time
	EndDate      time.Time
	ImportDate   time.Time
	FileName     string
}

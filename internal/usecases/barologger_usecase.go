// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/baro"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/importers"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/integration"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
)

var (
	ErrNoSerials    = errors.New("at least one barologger serial is required")
	ErrInvalidRange = errors.New("end date is before start date")
)

// ObservationSource provides reference barometer readings
type ObservationSource interface {
	Station() string
	FetchObservations(ctx context.Context) ([]entities.BarometricReading, error)
}

var _ ObservationSource = (*integration.NWSScraper)(nil)

// BarologgerUseCase handles barologgers, their readings and the master baro series
type BarologgerUseCase struct {
	repo repository.BarologgerRepository
	now  func() time.Time
}

// NewBarologgerUseCase creates a new barologger use case
func NewBarologgerUseCase(repo repository.BarologgerRepository) *BarologgerUseCase {
	return &BarologgerUseCase{repo: repo, now: time.Now}
}

// MasterBaroRequest selects the loggers and window of a master baro run
type MasterBaroRequest struct {
	Start       time.Time
	End         time.Time
	Serials     []string
	MinReadings int
	Overwrite   bool
}

// MasterBaroResult summarizes a master baro run
type MasterBaroResult struct {
	Rows        []entities.MasterBaroReading
	Inserted    int
	Flagged     int
	UsedSerials []string
}

// CreateMasterBaro averages the selected barologgers into 15 minute master
// readings over [Start, End] and stores them
func (uc *BarologgerUseCase) CreateMasterBaro(ctx context.Context, req MasterBaroRequest) (*MasterBaroResult, error) {
	if len(req.Serials) == 0 {
		return nil, ErrNoSerials
	}
	if req.End.Before(req.Start) {
		return nil, ErrInvalidRange
	}
	if req.MinReadings < 1 {
		return nil, baro.ErrInvalidMinReadings
	}

	log.Printf("Creating master baro from %d barologgers between %s and %s",
		len(req.Serials), repository.FormatTimestamp(req.Start), repository.FormatTimestamp(req.End))

	result := &MasterBaroResult{}
	series := make([][]entities.BarometricReading, 0, len(req.Serials))
	for _, serial := range req.Serials {
		readings, err := uc.repo.GetReadings(ctx, serial, req.Start, req.End)
		if err != nil {
			return nil, fmt.Errorf("failed to get readings for %s: %w", serial, err)
		}
		log.Printf("Barologger %s: %d readings", serial, len(readings))
		if len(readings) > 0 {
			result.UsedSerials = append(result.UsedSerials, serial)
		}
		series = append(series, readings)
	}

	buckets, err := baro.Aggregate(series, req.MinReadings)
	if err != nil {
		return nil, err
	}

	rows := baro.MasterReadings(buckets, req.Serials, req.MinReadings, uc.now())
	for _, row := range rows {
		if row.QualityFlag == entities.QualityCheck {
			result.Flagged++
		}
	}

	inserted, err := uc.repo.SaveMasterBaro(ctx, rows, req.Overwrite)
	if err != nil {
		return nil, fmt.Errorf("failed to save master baro: %w", err)
	}
	result.Rows = rows
	result.Inserted = inserted

	log.Printf("Master baro complete: %d buckets, %d inserted, %d flagged CHECK", len(rows), inserted, result.Flagged)
	return result, nil
}

// ListMasterBaro returns stored master readings in [start, end]
func (uc *BarologgerUseCase) ListMasterBaro(ctx context.Context, start, end time.Time) ([]entities.MasterBaroReading, error) {
	return uc.repo.GetMasterBaro(ctx, start, end)
}

// Coverage describes the span of the stored master baro series
type Coverage struct {
	First time.Time
	Last  time.Time
	Count int
}

// MasterBaroCoverage reports the first and last master timestamps
func (uc *BarologgerUseCase) MasterBaroCoverage(ctx context.Context) (*Coverage, error) {
	first, last, count, err := uc.repo.MasterBaroCoverage(ctx)
	if err != nil {
		return nil, err
	}
	return &Coverage{First: first, Last: last, Count: count}, nil
}

// ListBarologgers returns all barologgers
func (uc *BarologgerUseCase) ListBarologgers(ctx context.Context) ([]entities.Barologger, error) {
	return uc.repo.ListBarologgers(ctx)
}

// SaveBarologger registers or updates a barologger
func (uc *BarologgerUseCase) SaveBarologger(ctx context.Context, b entities.Barologger) error {
	return uc.repo.SaveBarologger(ctx, b)
}

// DeleteBarologger removes a barologger and its readings
func (uc *BarologgerUseCase) DeleteBarologger(ctx context.Context, serial string) error {
	return uc.repo.DeleteBarologger(ctx, serial)
}

// ImportLoggerFile stores the samples of a barologger file. The barologger is
// registered from the file's metadata when it is not known yet.
func (uc *BarologgerUseCase) ImportLoggerFile(ctx context.Context, file *importers.LoggerFile, fileName string, overwrite bool) (int, error) {
	if file.SerialNumber == "" {
		return 0, fmt.Errorf("logger file %s has no serial number", fileName)
	}
	if err := uc.ensureBarologger(ctx, file.SerialNumber, file.Location, ""); err != nil {
		return 0, err
	}

	readings := make([]entities.BarometricReading, 0, len(file.Samples))
	for _, s := range file.Samples {
		readings = append(readings, entities.BarometricReading{
			SerialNumber: file.SerialNumber,
			TimestampUTC: s.TimestampUTC,
			Pressure:     s.Pressure,
			Temperature:  s.Temperature,
			QualityFlag:  entities.QualityAuto,
		})
	}

	inserted, err := uc.repo.SaveReadings(ctx, readings, overwrite)
	if err != nil {
		return 0, err
	}

	first, last := file.Span()
	if err := uc.repo.RecordImportedFile(ctx, entities.ImportedFile{
		SerialNumber: file.SerialNumber,
		StartingDate: first,
		EndDate:      last,
		FileName:     filepath.Base(fileName),
	}); err != nil {
		return inserted, err
	}

	log.Printf("Imported %d readings for barologger %s from %s", inserted, file.SerialNumber, fileName)
	return inserted, nil
}

// RefreshReferenceBarometer stores the latest observations of a reference station
// as readings of its own barologger
func (uc *BarologgerUseCase) RefreshReferenceBarometer(ctx context.Context, source ObservationSource) (int, error) {
	log.Printf("Starting reference barometer refresh for %s...", source.Station())

	readings, err := source.FetchObservations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch observations: %w", err)
	}
	if len(readings) == 0 {
		log.Printf("No observations returned for %s", source.Station())
		return 0, nil
	}

	serial := integration.ReferenceSerial(source.Station())
	if err := uc.ensureBarologger(ctx, serial, "NWS station "+source.Station(), "altimeter setting, not station pressure"); err != nil {
		return 0, err
	}

	inserted, err := uc.repo.SaveReadings(ctx, readings, false)
	if err != nil {
		return 0, fmt.Errorf("failed to save observations: %w", err)
	}
	return inserted, nil
}

func (uc *BarologgerUseCase) ensureBarologger(ctx context.Context, serial, location, notes string) error {
	_, err := uc.repo.GetBarologger(ctx, serial)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if location == "" {
		location = "Unknown"
	}
	log.Printf("Registering new barologger %s", serial)
	return uc.repo.SaveBarologger(ctx, entities.Barologger{
		SerialNumber:        serial,
		LocationDescription: location,
		InstallationDate:    uc.now(),
		Status:              entities.BarologgerActive,
		Notes:               notes,
	})
}

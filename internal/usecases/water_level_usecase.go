package usecases

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/baro"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/importers"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
)

var (
	ErrNoManualReading = errors.New("no manual reading available to reference levels")
	ErrNoCompensation  = errors.New("no barometric data covers the transducer record")
)

// WaterLevelUseCase compensates transducer records and stores them as water levels
type WaterLevelUseCase struct {
	wells  repository.WellRepository
	levels repository.WaterLevelRepository
	baros  repository.BarologgerRepository
}

// NewWaterLevelUseCase creates a new water level use case
func NewWaterLevelUseCase(wells repository.WellRepository, levels repository.WaterLevelRepository, baros repository.BarologgerRepository) *WaterLevelUseCase {
	return &WaterLevelUseCase{wells: wells, levels: levels, baros: baros}
}

// TransducerImport describes one transducer file to load into a well
type TransducerImport struct {
	WellNumber string
	File       *importers.LoggerFile
	FileName   string
	// FallbackBarologger compensates buckets the master series does not cover
	FallbackBarologger string
	Overwrite          bool
}

// TransducerImportResult summarizes an import
type TransducerImportResult struct {
	Inserted      int
	MasterCount   int
	StandardCount int
	Skipped       int
	LevelOffset   float64
	Reference     *entities.ManualReading
	BaroStatus    entities.BaroStatus
	LevelStatus   entities.LevelStatus
}

// ImportTransducerFile compensates the file's pressures with the master baro series
// (falling back to a single barologger), converts water pressure to feet and ties
// the record to the nearest manual measurement
func (uc *WaterLevelUseCase) ImportTransducerFile(ctx context.Context, req TransducerImport) (*TransducerImportResult, error) {
	if req.File == nil || len(req.File.Samples) == 0 {
		return nil, importers.ErrNoSamples
	}
	well, err := uc.wells.GetWell(ctx, req.WellNumber)
	if err != nil {
		return nil, err
	}
	first, last := req.File.Span()
	log.Printf("Importing transducer %s into well %s (%s to %s)", req.File.SerialNumber, well.WellNumber,
		repository.FormatTimestamp(first), repository.FormatTimestamp(last))

	if err := uc.assignTransducer(ctx, req.File.SerialNumber, well.WellNumber, first); err != nil {
		return nil, err
	}

	master, err := uc.baros.GetMasterBaro(ctx, baro.BucketStart(first), last)
	if err != nil {
		return nil, err
	}
	masterByBucket := make(map[time.Time]float64, len(master))
	for _, m := range master {
		masterByBucket[m.TimestampUTC] = m.Pressure
	}

	fallback := map[time.Time]float64{}
	if req.FallbackBarologger != "" {
		readings, err := uc.baros.GetReadings(ctx, req.FallbackBarologger, baro.BucketStart(first), last.Add(baro.BucketInterval))
		if err != nil {
			return nil, err
		}
		fallback = baro.BucketPressures(readings)
	}

	result := &TransducerImportResult{}
	var levels []entities.WaterLevelReading
	for _, s := range req.File.Samples {
		key := baro.BucketStart(s.TimestampUTC)
		wl := entities.WaterLevelReading{
			WellNumber:   well.WellNumber,
			SerialNumber: req.File.SerialNumber,
			TimestampUTC: s.TimestampUTC,
			Pressure:     s.Pressure,
			Temperature:  s.Temperature,
		}
		if p, ok := masterByBucket[key]; ok {
			wl.BaroPressure = p
			wl.BaroFlag = entities.BaroFlagMaster
			result.MasterCount++
		} else if p, ok := fallback[key]; ok {
			wl.BaroPressure = p
			wl.BaroFlag = entities.BaroFlagStandard
			result.StandardCount++
		} else {
			result.Skipped++
			continue
		}
		wl.WaterPressure = wl.Pressure - wl.BaroPressure
		levels = append(levels, wl)
	}
	if len(levels) == 0 {
		return nil, ErrNoCompensation
	}

	ref, err := uc.levels.NearestManualReading(ctx, well.WellNumber, levels[0].TimestampUTC)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("well %s: %w", well.WellNumber, ErrNoManualReading)
	}
	if err != nil {
		return nil, err
	}
	result.Reference = ref
	result.LevelOffset = LevelOffset(levels, *ref)

	for i := range levels {
		levels[i].WaterLevel = baro.Round(result.LevelOffset + WaterColumnFeet(levels[i].WaterPressure))
		levels[i].LevelFlag = entities.LevelStatusConfirmed
	}

	result.Inserted, err = uc.levels.SaveWaterLevels(ctx, well.WellNumber, levels, req.Overwrite)
	if err != nil {
		return nil, err
	}
	if err := uc.levels.RecordImportedFile(ctx, entities.ImportedFile{
		SerialNumber: req.File.SerialNumber,
		WellNumber:   well.WellNumber,
		StartingDate: first,
		EndDate:      last,
		FileName:     filepath.Base(req.FileName),
	}); err != nil {
		return nil, err
	}

	result.BaroStatus, result.LevelStatus, err = uc.wells.RefreshWellStatus(ctx, well.WellNumber)
	if err != nil {
		return nil, err
	}
	if _, err := uc.wells.UpdateWellStatistics(ctx, well.WellNumber); err != nil {
		return nil, err
	}

	log.Printf("Imported %d levels into well %s (%d master, %d standard, %d without baro)",
		result.Inserted, well.WellNumber, result.MasterCount, result.StandardCount, result.Skipped)
	return result, nil
}

func (uc *WaterLevelUseCase) assignTransducer(ctx context.Context, serial, wellNumber string, installed time.Time) error {
	current, err := uc.levels.GetTransducer(ctx, serial)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if current != nil && current.WellNumber == wellNumber {
		return nil
	}
	return uc.levels.SaveTransducer(ctx, entities.Transducer{
		SerialNumber:     serial,
		WellNumber:       wellNumber,
		InstallationDate: installed,
	})
}

// WaterColumnFeet converts a compensated water pressure in PSI to feet of water
func WaterColumnFeet(waterPressure float64) float64 {
	return waterPressure * importers.FeetOfWaterPerPSI
}

// LevelOffset is the elevation to add to the water column so that the reading
// closest to the manual measurement matches it
func LevelOffset(levels []entities.WaterLevelReading, ref entities.ManualReading) float64 {
	nearest := levels[0]
	best := math.Inf(1)
	for _, wl := range levels {
		d := math.Abs(wl.TimestampUTC.Sub(ref.MeasurementDateUTC).Seconds())
		if d < best {
			best = d
			nearest = wl
		}
	}
	return ref.WaterLevel - WaterColumnFeet(nearest.WaterPressure)
}

// GetWaterLevels returns a well's stored levels in [start, end]
func (uc *WaterLevelUseCase) GetWaterLevels(ctx context.Context, wellNumber string, start, end time.Time) ([]entities.WaterLevelReading, error) {
	return uc.levels.GetWaterLevels(ctx, wellNumber, start, end)
}

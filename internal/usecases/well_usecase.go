package usecases

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
)

// WellUseCase handles wells, manual measurements and per-well summaries
type WellUseCase struct {
	wells  repository.WellRepository
	levels repository.WaterLevelRepository
}

// NewWellUseCase creates a new well use case
func NewWellUseCase(wells repository.WellRepository, levels repository.WaterLevelRepository) *WellUseCase {
	return &WellUseCase{wells: wells, levels: levels}
}

// WellSummary groups what the surfaces show for one well
type WellSummary struct {
	Well        entities.Well
	Statistics  *entities.WellStatistics
	LatestLevel *entities.WaterLevelReading
}

// ImportWells stores wells parsed from a well list
func (uc *WellUseCase) ImportWells(ctx context.Context, wells []entities.Well) error {
	if len(wells) == 0 {
		return nil
	}
	log.Printf("Importing %d wells", len(wells))
	return uc.wells.SaveWells(ctx, wells)
}

// ListWells returns all wells
func (uc *WellUseCase) ListWells(ctx context.Context) ([]entities.Well, error) {
	return uc.wells.ListWells(ctx)
}

// DeleteWell removes a well and everything recorded for it
func (uc *WellUseCase) DeleteWell(ctx context.Context, wellNumber string) error {
	return uc.wells.DeleteWell(ctx, wellNumber)
}

// GetWellSummary returns a well with its cached statistics and latest level.
// Missing statistics or levels are left nil.
func (uc *WellUseCase) GetWellSummary(ctx context.Context, wellNumber string) (*WellSummary, error) {
	well, err := uc.wells.GetWell(ctx, wellNumber)
	if err != nil {
		return nil, err
	}
	summary := &WellSummary{Well: *well}

	stats, err := uc.wells.GetWellStatistics(ctx, wellNumber)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	summary.Statistics = stats

	latest, err := uc.levels.LatestWaterLevel(ctx, wellNumber)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	summary.LatestLevel = latest

	return summary, nil
}

// ImportManualReadings converts depths to water level elevations with each well's
// top of casing and stores them. Readings for unknown wells are reported and skipped.
func (uc *WellUseCase) ImportManualReadings(ctx context.Context, readings []entities.ManualReading) (int, []string, error) {
	wells := make(map[string]*entities.Well)
	var skipped []string
	var valid []entities.ManualReading

	for _, mr := range readings {
		well, ok := wells[mr.WellNumber]
		if !ok {
			w, err := uc.wells.GetWell(ctx, mr.WellNumber)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return 0, nil, err
			}
			well = w
			wells[mr.WellNumber] = w
		}
		if well == nil {
			skipped = append(skipped, fmt.Sprintf("unknown well %s at %s", mr.WellNumber,
				repository.FormatTimestamp(mr.MeasurementDateUTC)))
			continue
		}
		if !mr.IsDry {
			mr.WaterLevel = ManualWaterLevel(well.TopOfCasing, mr.DTWAvg)
		}
		valid = append(valid, mr)
	}

	saved, err := uc.levels.SaveManualReadings(ctx, valid)
	if err != nil {
		return 0, skipped, err
	}

	for wn, well := range wells {
		if well == nil {
			continue
		}
		if _, err := uc.wells.UpdateWellStatistics(ctx, wn); err != nil {
			return saved, skipped, err
		}
	}
	return saved, skipped, nil
}

// ManualWaterLevel is the water level elevation for a depth to water below top of casing
func ManualWaterLevel(topOfCasing, dtw float64) float64 {
	return topOfCasing - dtw
}

// RefreshAllStatistics recomputes status flags and statistics of every well
func (uc *WellUseCase) RefreshAllStatistics(ctx context.Context) (int, error) {
	wells, err := uc.wells.ListWells(ctx)
	if err != nil {
		return 0, err
	}
	for _, w := range wells {
		if _, _, err := uc.wells.RefreshWellStatus(ctx, w.WellNumber); err != nil {
			return 0, err
		}
		if _, err := uc.wells.UpdateWellStatistics(ctx, w.WellNumber); err != nil {
			return 0, err
		}
	}
	log.Printf("Refreshed statistics of %d wells", len(wells))
	return len(wells), nil
}

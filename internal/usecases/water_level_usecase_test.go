package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/importers"
)

func seedWell(t *testing.T, env *testEnv, wn string, toc float64) {
	t.Helper()
	require.NoError(t, env.wells.SaveWells(context.Background(), []entities.Well{{
		WellNumber: wn, Latitude: 35, Longitude: -90, TopOfCasing: toc, Aquifer: "Memphis",
		DataSource: entities.DataSourceTransducer,
	}}))
}

func transducerFile(n int, pressure float64) *importers.LoggerFile {
	file := &importers.LoggerFile{SerialNumber: "T-100", LevelUnit: "psi"}
	for i := 0; i < n; i++ {
		file.Samples = append(file.Samples, importers.Sample{
			TimestampUTC: t0.Add(time.Duration(i) * 15 * time.Minute),
			Pressure:     pressure,
		})
	}
	return file
}

func TestImportTransducerFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedWell(t, env, "SB-1", 250)

	// Master baro covers the first two buckets, the fallback logger the rest
	_, err := env.baros.SaveMasterBaro(ctx, []entities.MasterBaroReading{
		{TimestampUTC: t0, Pressure: 14.5, SourceBarologgers: []string{"A"}, ProcessingDate: t0, QualityFlag: entities.QualityAuto},
		{TimestampUTC: t0.Add(15 * time.Minute), Pressure: 14.5, SourceBarologgers: []string{"A"}, ProcessingDate: t0, QualityFlag: entities.QualityAuto},
	}, false)
	require.NoError(t, err)
	env.seedBaro(t, "FB", 0, 15*time.Minute, 3, func(int) float64 { return 14.6 })

	_, err = env.levels.SaveManualReadings(ctx, []entities.ManualReading{{
		WellNumber: "SB-1", MeasurementDateUTC: t0.Add(2 * time.Minute), DTWAvg: 20, DTW1: 20, WaterLevel: 230,
	}})
	require.NoError(t, err)

	uc := NewWaterLevelUseCase(env.wells, env.levels, env.baros)
	result, err := uc.ImportTransducerFile(ctx, TransducerImport{
		WellNumber:         "SB-1",
		File:               transducerFile(4, 19.5),
		FileName:           "/data/sb1.csv",
		FallbackBarologger: "FB",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 2, result.MasterCount)
	assert.Equal(t, 1, result.StandardCount)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, entities.BaroStatusHasNonMaster, result.BaroStatus)
	assert.Equal(t, entities.LevelStatusConfirmed, result.LevelStatus)

	// 5 PSI of water is 11.5335 ft; the first reading is tied to the 230 ft manual level
	assert.InDelta(t, 230-5*importers.FeetOfWaterPerPSI, result.LevelOffset, 1e-9)

	levels, err := uc.GetWaterLevels(ctx, "SB-1", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, 230.0, levels[0].WaterLevel)
	assert.Equal(t, entities.BaroFlagMaster, levels[0].BaroFlag)
	assert.Equal(t, entities.BaroFlagStandard, levels[2].BaroFlag)
	assert.InDelta(t, 4.9, levels[2].WaterPressure, 1e-9)
	assert.InDelta(t, 230-0.1*importers.FeetOfWaterPerPSI, levels[2].WaterLevel, 1e-3)

	tr, err := env.levels.GetTransducer(ctx, "T-100")
	require.NoError(t, err)
	assert.Equal(t, "SB-1", tr.WellNumber)

	stats, err := env.wells.GetWellStatistics(ctx, "SB-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.NumPoints)
}

func TestImportTransducerFileFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedWell(t, env, "SB-1", 250)
	uc := NewWaterLevelUseCase(env.wells, env.levels, env.baros)

	_, err := uc.ImportTransducerFile(ctx, TransducerImport{WellNumber: "SB-1", File: transducerFile(2, 19)})
	assert.ErrorIs(t, err, ErrNoCompensation)

	_, err = env.baros.SaveMasterBaro(ctx, []entities.MasterBaroReading{
		{TimestampUTC: t0, Pressure: 14.5, SourceBarologgers: []string{"A"}, ProcessingDate: t0, QualityFlag: entities.QualityAuto},
	}, false)
	require.NoError(t, err)

	_, err = uc.ImportTransducerFile(ctx, TransducerImport{WellNumber: "SB-1", File: transducerFile(2, 19)})
	assert.ErrorIs(t, err, ErrNoManualReading)

	_, err = uc.ImportTransducerFile(ctx, TransducerImport{WellNumber: "SB-1", File: &importers.LoggerFile{}})
	assert.ErrorIs(t, err, importers.ErrNoSamples)
}

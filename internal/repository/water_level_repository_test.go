package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

func TestTransducerLocationHistory(t *testing.T) {
	m := openTestManager(t)
	wells := NewWellRepository(m)
	repo := NewWaterLevelRepository(m)
	ctx := context.Background()

	require.NoError(t, wells.SaveWells(ctx, []entities.Well{testWell("W1"), testWell("W2")}))
	require.NoError(t, repo.SaveTransducer(ctx, entities.Transducer{SerialNumber: "T1", WellNumber: "W1", InstallationDate: t0}))
	require.NoError(t, repo.SaveTransducer(ctx, entities.Transducer{SerialNumber: "T1", WellNumber: "W2", InstallationDate: t0.Add(24 * time.Hour)}))

	tr, err := repo.GetTransducer(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "W2", tr.WellNumber)
	assert.Equal(t, t0.Add(24*time.Hour), tr.InstallationDate)

	var open, closed int
	require.NoError(t, m.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transducer_locations WHERE serial_number = 'T1' AND end_date IS NULL").Scan(&open))
	require.NoError(t, m.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transducer_locations WHERE serial_number = 'T1' AND end_date IS NOT NULL").Scan(&closed))
	assert.Equal(t, 1, open)
	assert.Equal(t, 1, closed)

	_, err = repo.GetTransducer(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaterLevelsOverwrite(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, NewWellRepository(m).SaveWells(context.Background(), []entities.Well{testWell("W1")}))
	repo := NewWaterLevelRepository(m)
	ctx := context.Background()

	batch := []entities.WaterLevelReading{
		level("W1", t0, 240, entities.BaroFlagMaster, entities.LevelStatusConfirmed),
		level("W1", t0.Add(15*time.Minute), 241, entities.BaroFlagMaster, entities.LevelStatusConfirmed),
	}
	n, err := repo.SaveWaterLevels(ctx, "W1", batch, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	batch[0].WaterLevel = 300
	n, err = repo.SaveWaterLevels(ctx, "W1", batch, false)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.SaveWaterLevels(ctx, "W1", batch, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := repo.GetWaterLevels(ctx, "W1", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 300.0, got[0].WaterLevel)
	assert.Equal(t, entities.BaroFlagMaster, got[0].BaroFlag)

	latest, err := repo.LatestWaterLevel(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(15*time.Minute), latest.TimestampUTC)
}

func TestWaterLevelsOverwriteRollsBackInvalidBatch(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, NewWellRepository(m).SaveWells(context.Background(), []entities.Well{testWell("W1")}))
	repo := NewWaterLevelRepository(m)
	ctx := context.Background()

	batch := []entities.WaterLevelReading{
		level("W1", t0, 240, entities.BaroFlagMaster, entities.LevelStatusConfirmed),
		level("W1", t0.Add(15*time.Minute), 241, entities.BaroFlagMaster, entities.LevelStatusConfirmed),
	}
	_, err := repo.SaveWaterLevels(ctx, "W1", batch, false)
	require.NoError(t, err)

	replacement := []entities.WaterLevelReading{
		level("W1", t0, 300, entities.BaroFlagMaster, entities.LevelStatusConfirmed),
		level("W1", t0.Add(15*time.Minute), 301, "bogus", entities.LevelStatusConfirmed),
	}
	_, err = repo.SaveWaterLevels(ctx, "W1", replacement, true)
	require.Error(t, err)

	got, err := repo.GetWaterLevels(ctx, "W1", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 240.0, got[0].WaterLevel)
	assert.Equal(t, 241.0, got[1].WaterLevel)
}

func TestManualReadings(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, NewWellRepository(m).SaveWells(context.Background(), []entities.Well{testWell("W1")}))
	repo := NewWaterLevelRepository(m)
	ctx := context.Background()

	dtw2 := 10.2
	readings := []entities.ManualReading{
		{WellNumber: "W1", MeasurementDateUTC: t0, DTWAvg: 10.1, DTW1: 10.0, DTW2: &dtw2, WaterLevel: 239.9},
		{WellNumber: "W1", MeasurementDateUTC: t0.Add(10 * 24 * time.Hour), DTWAvg: 12, DTW1: 12, WaterLevel: 238},
		{WellNumber: "W1", MeasurementDateUTC: t0.Add(11 * 24 * time.Hour), IsDry: true},
	}
	n, err := repo.SaveManualReadings(ctx, readings)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Same key updates in place
	readings[0].Comments = "retaped"
	_, err = repo.SaveManualReadings(ctx, readings[:1])
	require.NoError(t, err)

	all, err := repo.GetManualReadings(ctx, "W1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "retaped", all[0].Comments)
	require.NotNil(t, all[0].DTW2)
	assert.Equal(t, 10.2, *all[0].DTW2)
	assert.Nil(t, all[1].DTW2)
	assert.True(t, all[2].IsDry)

	nearest, err := repo.NearestManualReading(ctx, "W1", t0.Add(3*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, t0, nearest.MeasurementDateUTC)

	// The dry reading is closer but never used as a reference
	nearest, err = repo.NearestManualReading(ctx, "W1", t0.Add(12*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 238.0, nearest.WaterLevel)

	_, err = repo.NearestManualReading(ctx, "W9", t0)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.RecordImportedFile(ctx, entities.ImportedFile{
		WellNumber: "W1", SerialNumber: "T1", StartingDate: t0, EndDate: t0.Add(time.Hour), FileName: "t1.csv",
	}))
}

func TestUsers(t *testing.T) {
	repo := NewUserRepository(openTestManager(t))
	ctx := context.Background()

	id, err := repo.CreateUser(ctx, testUser("bob"))
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = repo.CreateUser(ctx, testUser("bob"))
	assert.Error(t, err)

	u, err := repo.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, entities.RoleTech, u.Role)

	_, err = repo.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

package usecases

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	manager *repository.Manager
	baros   *repository.SQLiteBarologgerRepository
	wells   *repository.SQLiteWellRepository
	levels  *repository.SQLiteWaterLevelRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	m, err := repository.Open(filepath.Join(t.TempDir(), "test.db"), repository.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return &testEnv{
		manager: m,
		baros:   repository.NewBarologgerRepository(m),
		wells:   repository.NewWellRepository(m),
		levels:  repository.NewWaterLevelRepository(m),
	}
}

// seedBaro stores n readings every step starting at t0+offset
func (e *testEnv) seedBaro(t *testing.T, serial string, offset, step time.Duration, n int, pressure func(i int) float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.baros.SaveBarologger(ctx, entities.Barologger{SerialNumber: serial, LocationDescription: "test"}))

	readings := make([]entities.BarometricReading, 0, n)
	for i := 0; i < n; i++ {
		temp := 25.0
		readings = append(readings, entities.BarometricReading{
			SerialNumber: serial,
			TimestampUTC: t0.Add(offset + time.Duration(i)*step),
			Pressure:     pressure(i),
			Temperature:  &temp,
		})
	}
	_, err := e.baros.SaveReadings(ctx, readings, false)
	require.NoError(t, err)
}

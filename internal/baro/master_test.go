package baro

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

var start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func series(serial string, offset time.Duration, n int, base, step float64) []entities.BarometricReading {
	readings := make([]entities.BarometricReading, 0, n)
	for i := 0; i < n; i++ {
		temp := 20 + float64(i)
		readings = append(readings, entities.BarometricReading{
			SerialNumber: serial,
			TimestampUTC: start.Add(offset + time.Duration(i)*5*time.Minute),
			Pressure:     base + float64(i)*step,
			Temperature:  &temp,
		})
	}
	return readings
}

func mean(values ...float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func TestAggregateTwoOffsetLoggers(t *testing.T) {
	a := series("A", 0, 12, 14.000, 0.001)
	b := series("B", 2*time.Minute, 12, 14.050, 0.001)

	buckets, err := Aggregate([][]entities.BarometricReading{a, b}, 2)
	require.NoError(t, err)
	require.Len(t, buckets, 4)

	for i, bucket := range buckets {
		assert.Equal(t, start.Add(time.Duration(i)*BucketInterval), bucket.Timestamp)
		assert.Equal(t, 2, bucket.Pressure.Count)

		k := 3 * i
		meanA := mean(a[k].Pressure, a[k+1].Pressure, a[k+2].Pressure)
		meanB := mean(b[k].Pressure, b[k+1].Pressure, b[k+2].Pressure)
		assert.InDelta(t, (meanA+meanB)/2, bucket.Pressure.Mean, 1e-9)
		assert.InDelta(t, 0.05, bucket.Pressure.Range(), 1e-9)
		assert.Equal(t, 2, bucket.Temperature.Count)
	}

	rows := MasterReadings(buckets, []string{"B", "A"}, 2, start.Add(time.Hour))
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, entities.QualityAuto, row.QualityFlag)
		assert.Equal(t, []string{"B", "A"}, row.SourceBarologgers)
		assert.Equal(t, start.Add(time.Hour), row.ProcessingDate)
		require.NotNil(t, row.Temperature)
	}
	assert.Equal(t, 14.026, rows[0].Pressure)
}

func TestAggregateCountsLoggersPerBucket(t *testing.T) {
	a := series("A", 0, 6, 14, 0)                 // 00:00 - 00:25
	b := series("B", 15*time.Minute, 6, 14.01, 0) // 00:15 - 00:40
	c := series("C", 30*time.Minute, 3, 14.02, 0) // 00:30 - 00:40

	buckets, err := Aggregate([][]entities.BarometricReading{a, b, c}, 1)
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	assert.Equal(t, 1, buckets[0].Pressure.Count)
	assert.Equal(t, 2, buckets[1].Pressure.Count)
	assert.Equal(t, 2, buckets[2].Pressure.Count)
	assert.True(t, math.IsNaN(buckets[0].Pressure.Std))

	filtered, err := Aggregate([][]entities.BarometricReading{a, b, c}, 2)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, bucket := range filtered {
		assert.GreaterOrEqual(t, bucket.Pressure.Count, 2)
	}

	_, err = Aggregate([][]entities.BarometricReading{a, b, c}, 3)
	assert.ErrorIs(t, err, ErrNoValidData)
}

func TestAggregateErrors(t *testing.T) {
	_, err := Aggregate([][]entities.BarometricReading{nil, {}}, 2)
	assert.ErrorIs(t, err, ErrNoBaroData)

	_, err = Aggregate(nil, 2)
	assert.ErrorIs(t, err, ErrNoBaroData)

	_, err = Aggregate([][]entities.BarometricReading{series("A", 0, 3, 14, 0)}, 0)
	assert.ErrorIs(t, err, ErrInvalidMinReadings)
}

func TestAggregateMissingTemperature(t *testing.T) {
	a := series("A", 0, 3, 14, 0)
	b := series("B", 0, 3, 14.01, 0)
	for i := range b {
		b[i].Temperature = nil
	}

	buckets, err := Aggregate([][]entities.BarometricReading{a, b}, 2)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, 2, buckets[0].Pressure.Count)
	assert.Equal(t, 1, buckets[0].Temperature.Count)
	assert.InDelta(t, 21.0, buckets[0].Temperature.Mean, 1e-9)

	noTemp := MasterReadings(buckets, []string{"A", "B"}, 2, start)
	require.NotNil(t, noTemp[0].Temperature)

	for i := range a {
		a[i].Temperature = nil
	}
	buckets, err = Aggregate([][]entities.BarometricReading{a, b}, 2)
	require.NoError(t, err)
	rows := MasterReadings(buckets, []string{"A", "B"}, 2, start)
	assert.Nil(t, rows[0].Temperature)
}

func TestQualityFlagBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		stats    Stats
		expected string
	}{
		{"std at threshold", Stats{Count: 3, Std: 0.1, Min: 14.0, Max: 14.15}, entities.QualityAuto},
		{"std just above threshold", Stats{Count: 3, Std: 0.100001, Min: 14.0, Max: 14.15}, entities.QualityCheck},
		{"range above threshold", Stats{Count: 3, Std: 0.05, Min: 14.0, Max: 14.25}, entities.QualityCheck},
		{"range at threshold", Stats{Count: 3, Std: 0.05, Min: 0, Max: 0.2}, entities.QualityAuto},
		{"undefined std", Stats{Count: 1, Std: math.NaN(), Min: 14, Max: 14}, entities.QualityAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QualityFlag(tt.stats))
		})
	}
}

func TestWideSpreadIsFlagged(t *testing.T) {
	a := series("A", 0, 3, 14.0, 0)
	b := series("B", 0, 3, 14.5, 0)

	buckets, err := Aggregate([][]entities.BarometricReading{a, b}, 2)
	require.NoError(t, err)
	rows := MasterReadings(buckets, []string{"A", "B"}, 2, start)
	require.Len(t, rows, 1)
	assert.Equal(t, entities.QualityCheck, rows[0].QualityFlag)
	assert.Equal(t, 14.25, rows[0].Pressure)
	assert.NotEmpty(t, rows[0].Notes)
}

func TestBucketStart(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 29, 59, 0, time.FixedZone("CDT", -5*3600))
	assert.Equal(t, time.Date(2024, 6, 1, 15, 15, 0, 0, time.UTC), BucketStart(ts))
	assert.Equal(t, 1.235, Round(1.23456))
}

func TestBucketPressures(t *testing.T) {
	buckets := BucketPressures(series("A", 0, 6, 14.0, 0.003))
	require.Len(t, buckets, 2)
	assert.InDelta(t, 14.003, buckets[start], 1e-9)
	assert.InDelta(t, 14.012, buckets[start.Add(BucketInterval)], 1e-9)
}

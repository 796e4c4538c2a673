// Package baro builds the master barometric series from several barologgers.
//
// Each logger is resampled to 15 minute buckets, the buckets of all loggers are
// aligned on their union and every bucket is summarized across loggers. Buckets
// whose spread between loggers is too large are flagged for review.
package baro

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

const (
	// BucketInterval is the width of a master baro bucket. Buckets are anchored at midnight UTC.
	BucketInterval = 15 * time.Minute

	// StdThreshold is the largest cross-logger standard deviation in PSI accepted as AUTO
	StdThreshold = 0.1
	// RangeThreshold is the largest max-min spread in PSI accepted as AUTO
	RangeThreshold = 0.2

	// DefaultMinReadings is the number of loggers a bucket needs by default
	DefaultMinReadings = 2

	decimals = 3
)

var (
	ErrNoBaroData         = errors.New("no data found for selected barologgers")
	ErrNoValidData        = errors.New("no valid data after processing")
	ErrInvalidMinReadings = errors.New("min readings must be at least 1")
)

// Stats summarizes one variable across the loggers present in a bucket.
// Std is NaN when fewer than two loggers contributed.
type Stats struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
}

// Range returns Max - Min
func (s Stats) Range() float64 {
	return s.Max - s.Min
}

// Bucket is one aligned 15 minute slot
type Bucket struct {
	Timestamp   time.Time
	Pressure    Stats
	Temperature Stats
}

// sample is a logger's resampled value in one bucket
type sample struct {
	pressure    float64
	temperature float64
	hasTemp     bool
}

// resample averages one logger's readings into 15 minute buckets.
// Temperature is averaged over the readings that carry one.
func resample(readings []entities.BarometricReading) map[time.Time]sample {
	type acc struct {
		pSum, tSum float64
		pN, tN     int
	}
	sums := make(map[time.Time]*acc)
	for _, r := range readings {
		key := BucketStart(r.TimestampUTC)
		a, ok := sums[key]
		if !ok {
			a = &acc{}
			sums[key] = a
		}
		a.pSum += r.Pressure
		a.pN++
		if r.Temperature != nil && !math.IsNaN(*r.Temperature) {
			a.tSum += *r.Temperature
			a.tN++
		}
	}

	out := make(map[time.Time]sample, len(sums))
	for key, a := range sums {
		s := sample{pressure: a.pSum / float64(a.pN)}
		if a.tN > 0 {
			s.temperature = a.tSum / float64(a.tN)
			s.hasTemp = true
		}
		out[key] = s
	}
	return out
}

// BucketStart returns the start of the bucket containing t
func BucketStart(t time.Time) time.Time {
	return t.UTC().Truncate(BucketInterval)
}

// Aggregate aligns the loggers' resampled series and summarizes every bucket
// with at least minReadings loggers. Loggers without readings are ignored.
func Aggregate(series [][]entities.BarometricReading, minReadings int) ([]Bucket, error) {
	if minReadings < 1 {
		return nil, ErrInvalidMinReadings
	}

	var resampled []map[time.Time]sample
	for _, readings := range series {
		if len(readings) == 0 {
			continue
		}
		resampled = append(resampled, resample(readings))
	}
	if len(resampled) == 0 {
		return nil, ErrNoBaroData
	}

	// Outer join on the union of buckets
	union := make(map[time.Time]struct{})
	for _, logger := range resampled {
		for key := range logger {
			union[key] = struct{}{}
		}
	}
	keys := make([]time.Time, 0, len(union))
	for key := range union {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	var buckets []Bucket
	for _, key := range keys {
		var pressures, temps []float64
		for _, logger := range resampled {
			s, ok := logger[key]
			if !ok {
				continue
			}
			pressures = append(pressures, s.pressure)
			if s.hasTemp {
				temps = append(temps, s.temperature)
			}
		}
		if len(pressures) < minReadings {
			continue
		}
		buckets = append(buckets, Bucket{
			Timestamp:   key,
			Pressure:    summarize(pressures),
			Temperature: summarize(temps),
		})
	}

	if len(buckets) == 0 {
		return nil, ErrNoValidData
	}
	return buckets, nil
}

func summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{Mean: math.NaN(), Std: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	}
	s := Stats{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	if len(values) < 2 {
		s.Mean = values[0]
		s.Std = math.NaN()
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(values, nil)
	return s
}

// QualityFlag returns CHECK when the spread between loggers exceeds either
// threshold. An undefined std never flags on its own.
func QualityFlag(pressure Stats) string {
	if !math.IsNaN(pressure.Std) && pressure.Std > StdThreshold {
		return entities.QualityCheck
	}
	if pressure.Range() > RangeThreshold {
		return entities.QualityCheck
	}
	return entities.QualityAuto
}

// Round rounds v to the precision stored for master baro values
func Round(v float64) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

// MasterReadings turns aggregated buckets into rows ready to be stored.
// sources is recorded on every row in the given order.
func MasterReadings(buckets []Bucket, sources []string, minReadings int, processed time.Time) []entities.MasterBaroReading {
	processed = processed.UTC().Truncate(time.Second)
	rows := make([]entities.MasterBaroReading, 0, len(buckets))
	for _, b := range buckets {
		row := entities.MasterBaroReading{
			TimestampUTC:      b.Timestamp,
			Pressure:          Round(b.Pressure.Mean),
			SourceBarologgers: append([]string(nil), sources...),
			ProcessingDate:    processed,
			QualityFlag:       QualityFlag(b.Pressure),
			CalculationMethod: CalculationMethod(b.Pressure.Count, minReadings),
		}
		if b.Temperature.Count > 0 {
			temp := Round(b.Temperature.Mean)
			row.Temperature = &temp
		}
		if row.QualityFlag == entities.QualityCheck {
			row.Notes = fmt.Sprintf("std %.3f, range %.3f PSI", b.Pressure.Std, b.Pressure.Range())
		}
		rows = append(rows, row)
	}
	return rows
}

// CalculationMethod describes how a bucket's value was obtained
func CalculationMethod(count, minReadings int) string {
	return fmt.Sprintf("mean of %d barologgers, 15-minute buckets, min_readings=%d", count, minReadings)
}

// BucketPressures returns a logger's mean pressure per 15 minute bucket
func BucketPressures(readings []entities.BarometricReading) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	for key, s := range resample(readings) {
		out[key] = s.pressure
	}
	return out
}

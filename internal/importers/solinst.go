package importers

import (
	"bufio"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// FeetOfWaterPerPSI is the height of a water column exerting one PSI
const FeetOfWaterPerPSI = 2.3067

var (
	ErrUnsupportedFormat = errors.New("unsupported logger file format")
	ErrUnknownUnit       = errors.New("unknown pressure unit")
	ErrNoSamples         = errors.New("logger file contains no samples")
)

// Sample is one logger record with pressure converted to PSI
type Sample struct {
	TimestampUTC time.Time
	Pressure     float64
	Temperature  *float64
}

// LoggerFile is the content of a Solinst export
type LoggerFile struct {
	SerialNumber string
	Location     string
	LevelUnit    string
	Samples      []Sample
}

// Span returns the first and last sample times
func (f *LoggerFile) Span() (time.Time, time.Time) {
	if len(f.Samples) == 0 {
		return time.Time{}, time.Time{}
	}
	return f.Samples[0].TimestampUTC, f.Samples[len(f.Samples)-1].TimestampUTC
}

// ToPSI converts a LEVEL channel value in unit to PSI
func ToPSI(value float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "psi":
		return value, nil
	case "kpa":
		return value * 0.1450377, nil
	case "mbar", "hpa":
		return value * 0.01450377, nil
	case "ft", "feet":
		return value / FeetOfWaterPerPSI, nil
	case "m":
		return value * 3.28084 / FeetOfWaterPerPSI, nil
	case "cm":
		return value * 0.0328084 / FeetOfWaterPerPSI, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
}

// ParseLoggerFile opens a Solinst .csv or .xle file. Logger clock times are interpreted in loc.
func ParseLoggerFile(path string, loc *time.Location) (*LoggerFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	log.Printf("Parsing logger file %s", path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xle":
		return ParseXLE(f, loc)
	case ".csv":
		return ParseSolinstCSV(f, loc)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// ParseSolinstCSV reads the CSV export written by Solinst software: a metadata
// preamble followed by a Date,Time,ms,LEVEL,TEMPERATURE table.
func ParseSolinstCSV(r io.Reader, loc *time.Location) (*LoggerFile, error) {
	if loc == nil {
		loc = time.UTC
	}
	br := bufio.NewReader(r)
	file := &LoggerFile{LevelUnit: "psi"}

	var header []string
	var pending, channel string
	for {
		line, err := br.ReadString('\n')
		trimmed := strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if trimmed != "" {
			lower := strings.ToLower(trimmed)
			switch {
			case strings.HasPrefix(lower, "date,") && strings.Contains(lower, "time"):
				header = strings.Split(trimmed, ",")
			case pending != "":
				if pending == "serial" {
					file.SerialNumber = strings.Trim(trimmed, ", ")
				} else {
					file.Location = strings.Trim(trimmed, ", ")
				}
				pending = ""
			case strings.HasPrefix(lower, "serial_number"):
				pending = "serial"
			case strings.HasPrefix(lower, "location"):
				pending = "location"
			case lower == "level" || lower == "temperature":
				channel = lower
			case strings.HasPrefix(lower, "unit:") && channel == "level":
				file.LevelUnit = strings.TrimSpace(trimmed[len("unit:"):])
			}
		}
		if header != nil {
			break
		}
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no Date,Time header", ErrUnsupportedFormat)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read preamble: %w", err)
		}
	}

	index := make(map[string]int)
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range []string{"date", "time", "level"} {
		if _, ok := index[h]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingHeader, strings.ToUpper(h))
		}
	}
	tempIdx, hasTemp := index["temperature"]

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read logger data: %w", err)
		}
		if len(record) <= index["level"] || strings.HasPrefix(strings.ToLower(record[0]), "end") {
			continue
		}

		var temp string
		if hasTemp && tempIdx < len(record) {
			temp = record[tempIdx]
		}
		sample, err := newSample(record[index["date"]], record[index["time"]], record[index["level"]], temp, file.LevelUnit, loc)
		if err != nil {
			return nil, err
		}
		file.Samples = append(file.Samples, *sample)
	}

	return finish(file)
}

type xleDocument struct {
	Instrument struct {
		SerialNumber string `xml:"Serial_number"`
	} `xml:"Instrument_info"`
	Header struct {
		Location string `xml:"Location"`
	} `xml:"Instrument_info_data_header"`
	Ch1  xleChannel `xml:"Ch1_data_header"`
	Ch2  xleChannel `xml:"Ch2_data_header"`
	Logs []struct {
		Date string `xml:"Date"`
		Time string `xml:"Time"`
		Ch1  string `xml:"ch1"`
		Ch2  string `xml:"ch2"`
	} `xml:"Data>Log"`
}

type xleChannel struct {
	Identification string `xml:"Identification"`
	Unit           string `xml:"Unit"`
}

// ParseXLE reads a Solinst .xle XML file. Channel 1 must be LEVEL; channel 2, when
// present, is taken as temperature.
func ParseXLE(r io.Reader, loc *time.Location) (*LoggerFile, error) {
	if loc == nil {
		loc = time.UTC
	}
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var doc xleDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode xle: %w", err)
	}
	if id := strings.ToLower(strings.TrimSpace(doc.Ch1.Identification)); id != "" && id != "level" {
		return nil, fmt.Errorf("%w: channel 1 is %q", ErrUnsupportedFormat, doc.Ch1.Identification)
	}

	file := &LoggerFile{
		SerialNumber: strings.TrimSpace(doc.Instrument.SerialNumber),
		Location:     strings.TrimSpace(doc.Header.Location),
		LevelUnit:    strings.TrimSpace(doc.Ch1.Unit),
	}
	for _, entry := range doc.Logs {
		sample, err := newSample(entry.Date, entry.Time, entry.Ch1, entry.Ch2, file.LevelUnit, loc)
		if err != nil {
			return nil, err
		}
		file.Samples = append(file.Samples, *sample)
	}

	return finish(file)
}

func newSample(date, clock, level, temp, unit string, loc *time.Location) (*Sample, error) {
	stamp := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	ts, err := parseDateTime(stamp, loc)
	if err != nil {
		return nil, err
	}
	raw, err := parseNumber(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LEVEL %q at %s", level, stamp)
	}
	pressure, err := ToPSI(raw, unit)
	if err != nil {
		return nil, err
	}

	sample := &Sample{TimestampUTC: ts, Pressure: pressure}
	if t, err := parseNumber(temp); err == nil {
		sample.Temperature = &t
	}
	return sample, nil
}

func finish(file *LoggerFile) (*LoggerFile, error) {
	if len(file.Samples) == 0 {
		return nil, ErrNoSamples
	}
	sort.Slice(file.Samples, func(i, j int) bool {
		return file.Samples[i].TimestampUTC.Before(file.Samples[j].TimestampUTC)
	})
	first, last := file.Span()
	log.Printf("Parsed %d samples from logger %s (%s to %s)",
		len(file.Samples), file.SerialNumber, first.Format(time.RFC3339), last.Format(time.RFC3339))
	return file, nil
}

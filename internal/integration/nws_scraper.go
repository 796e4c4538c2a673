// Package integration handles external service interactions
package integration

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

const (
	// InHgToPSI converts inches of mercury to pounds per square inch
	InHgToPSI = 0.4911542

	nwsBaseURL   = "https://forecast.weather.gov/data/obhistory"
	nwsUserAgent = "waterlevels (groundwater monitoring)"

	// Column positions in the observation history table
	colDate      = 0
	colTime      = 1
	colAirTemp   = 6
	colAltimeter = 13
)

// ReferenceSerial is the barologger serial under which a station's observations are stored
func ReferenceSerial(station string) string {
	return "NWS-" + strings.ToUpper(station)
}

// NWSScraper reads recent altimeter observations of a National Weather Service station.
// They serve as a reference barometer when comparing or filling barologger records.
type NWSScraper struct {
	sourceURL string
	station   string
	location  *time.Location
	client    *http.Client
	now       func() time.Time
}

// NewNWSScraper creates a scraper for station. Observation times on the page are
// local to the station, so loc must be the station's time zone. An empty baseURL
// uses the public NWS site.
func NewNWSScraper(station string, loc *time.Location, baseURL string) *NWSScraper {
	if baseURL == "" {
		baseURL = nwsBaseURL
	}
	if loc == nil {
		loc = time.UTC
	}
	station = strings.ToUpper(station)
	return &NWSScraper{
		sourceURL: fmt.Sprintf("%s/%s.html", strings.TrimRight(baseURL, "/"), station),
		station:   station,
		location:  loc,
		client:    &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

// Station returns the station identifier
func (s *NWSScraper) Station() string {
	return s.station
}

// FetchObservations downloads the observation history page and returns its rows as
// barometric readings of the station's reference serial, oldest first
func (s *NWSScraper) FetchObservations(ctx context.Context) ([]entities.BarometricReading, error) {
	log.Printf("Sending HTTP request to %s", s.sourceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", nwsUserAgent)

	res, err := s.client.Do(req)
	if err != nil {
		log.Printf("Error fetching observations: %v", err)
		return nil, fmt.Errorf("failed to fetch the webpage: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Printf("Received unexpected status code: %d %s", res.StatusCode, res.Status)
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		log.Printf("Error parsing HTML: %v", err)
		return nil, fmt.Errorf("failed to parse the webpage: %w", err)
	}

	return s.ParseObservations(doc), nil
}

// ParseObservations extracts readings from an observation history document.
// Rows without a usable altimeter value are skipped.
func (s *NWSScraper) ParseObservations(doc *goquery.Document) []entities.BarometricReading {
	now := s.now().In(s.location)
	serial := ReferenceSerial(s.station)

	var data []entities.BarometricReading
	processedRows, skippedRows := 0, 0

	doc.Find("table tr").Each(func(index int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= colAltimeter {
			return
		}
		processedRows++

		day, err := strconv.Atoi(strings.TrimSpace(cells.Eq(colDate).Text()))
		if err != nil {
			skippedRows++
			return
		}
		ts, err := observationTime(day, strings.TrimSpace(cells.Eq(colTime).Text()), now)
		if err != nil {
			log.Printf("Warning: Skipping row with invalid time: %v", err)
			skippedRows++
			return
		}

		altimeter, err := parseCell(cells.Eq(colAltimeter))
		if err != nil {
			skippedRows++
			return
		}

		reading := entities.BarometricReading{
			SerialNumber: serial,
			TimestampUTC: ts.UTC(),
			Pressure:     altimeter * InHgToPSI,
			QualityFlag:  entities.QualityAuto,
			Notes:        "NWS altimeter setting",
		}
		if f, err := parseCell(cells.Eq(colAirTemp)); err == nil {
			c := FahrenheitToCelsius(f)
			reading.Temperature = &c
		}
		data = append(data, reading)
	})

	log.Printf("NWS %s: processed %d rows, found %d valid entries, skipped %d invalid entries",
		s.station, processedRows, len(data), skippedRows)

	sort.Slice(data, func(i, j int) bool {
		return data[i].TimestampUTC.Before(data[j].TimestampUTC)
	})
	return data
}

// parseCell reads a numeric table cell; "NA", NaN and infinities are errors
func parseCell(cell *goquery.Selection) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell.Text()), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", cell.Text())
	}
	return v, nil
}

// observationTime resolves a day-of-month and HH:MM clock time against now.
// The page only covers the last few days, so a day after today belongs to the previous month.
func observationTime(day int, clock string, now time.Time) (time.Time, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(clock, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", clock, err)
	}
	if day < 1 || day > 31 || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("out of range day %d time %q", day, clock)
	}

	month := now.Month()
	if day > now.Day() {
		month--
	}
	return time.Date(now.Year(), month, day, hour, minute, 0, 0, now.Location()), nil
}

// FahrenheitToCelsius converts °F to °C
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

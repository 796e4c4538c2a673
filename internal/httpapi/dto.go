package httpapi

import (
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/usecases"
)

type wellResponse struct {
	WellNumber  string  `json:"well_number"`
	CAENumber   string  `json:"cae_number,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	TopOfCasing float64 `json:"top_of_casing"`
	Aquifer     string  `json:"aquifer,omitempty"`
	WellField   string  `json:"well_field,omitempty"`
	County      string  `json:"county,omitempty"`
	Cluster     string  `json:"cluster,omitempty"`
	BaroStatus  string  `json:"baro_status"`
	LevelStatus string  `json:"level_status"`
}

type statisticsResponse struct {
	NumPoints       int       `json:"num_points"`
	MinLevel        float64   `json:"min_level"`
	MaxLevel        float64   `json:"max_level"`
	AvgLevel        float64   `json:"avg_level"`
	LastReadingDate time.Time `json:"last_reading_date"`
}

type waterLevelResponse struct {
	TimestampUTC  time.Time `json:"timestamp_utc"`
	SerialNumber  string    `json:"serial_number"`
	Pressure      float64   `json:"pressure"`
	BaroPressure  float64   `json:"baro_pressure"`
	WaterPressure float64   `json:"water_pressure"`
	WaterLevel    float64   `json:"water_level"`
	Temperature   *float64  `json:"temperature"`
	BaroFlag      string    `json:"baro_flag"`
	LevelFlag     string    `json:"level_flag"`
}

type barologgerResponse struct {
	SerialNumber string `json:"serial_number"`
	Location     string `json:"location_description,omitempty"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`
}

type masterBaroResponse struct {
	TimestampUTC      time.Time `json:"timestamp_utc"`
	JulianTimestamp   float64   `json:"julian_timestamp"`
	Pressure          float64   `json:"pressure"`
	Temperature       *float64  `json:"temperature"`
	SourceBarologgers []string  `json:"source_barologgers"`
	QualityFlag       string    `json:"quality_flag"`
	CalculationMethod string    `json:"calculation_method"`
	Notes             string    `json:"notes,omitempty"`
}

type masterBaroRequest struct {
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
	Serials     []string  `json:"serials" binding:"required"`
	MinReadings int       `json:"min_readings"`
	Overwrite   bool      `json:"overwrite"`
}

func toWellResponse(w entities.Well) wellResponse {
	return wellResponse{
		WellNumber:  w.WellNumber,
		CAENumber:   w.CAENumber,
		Latitude:    w.Latitude,
		Longitude:   w.Longitude,
		TopOfCasing: w.TopOfCasing,
		Aquifer:     w.Aquifer,
		WellField:   w.WellField,
		County:      w.County,
		Cluster:     w.Cluster,
		BaroStatus:  string(w.BaroStatus),
		LevelStatus: string(w.LevelStatus),
	}
}

func toStatisticsResponse(st *entities.WellStatistics) *statisticsResponse {
	if st == nil {
		return nil
	}
	return &statisticsResponse{
		NumPoints:       st.NumPoints,
		MinLevel:        st.MinLevel,
		MaxLevel:        st.MaxLevel,
		AvgLevel:        st.AvgLevel,
		LastReadingDate: st.LastReadingDate,
	}
}

func toWaterLevelResponse(r entities.WaterLevelReading) waterLevelResponse {
	return waterLevelResponse{
		TimestampUTC:  r.TimestampUTC,
		SerialNumber:  r.SerialNumber,
		Pressure:      r.Pressure,
		BaroPressure:  r.BaroPressure,
		WaterPressure: r.WaterPressure,
		WaterLevel:    r.WaterLevel,
		Temperature:   r.Temperature,
		BaroFlag:      string(r.BaroFlag),
		LevelFlag:     string(r.LevelFlag),
	}
}

func toMasterBaroResponses(rows []entities.MasterBaroReading) []masterBaroResponse {
	out := make([]masterBaroResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, masterBaroResponse{
			TimestampUTC:      r.TimestampUTC,
			JulianTimestamp:   r.JulianTimestamp,
			Pressure:          r.Pressure,
			Temperature:       r.Temperature,
			SourceBarologgers: r.SourceBarologgers,
			QualityFlag:       r.QualityFlag,
			CalculationMethod: r.CalculationMethod,
			Notes:             r.Notes,
		})
	}
	return out
}

func coverageMeta(c *usecases.Coverage) map[string]any {
	meta := map[string]any{"count": c.Count}
	if c.Count > 0 {
		meta["first"] = c.First
		meta["last"] = c.Last
	}
	return meta
}

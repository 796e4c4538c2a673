package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/baro"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/usecases"
)

const (
	defaultReadingsWindow = 30 * 24 * time.Hour
	defaultMasterWindow   = 7 * 24 * time.Hour
	requestTimeout        = 15 * time.Second
	createTimeout         = 2 * time.Minute
)

// timeRange reads start and end RFC3339 query parameters. Missing values
// default to [end-window, now].
func (s *Server) timeRange(c *gin.Context, window time.Duration) (time.Time, time.Time, error) {
	end := s.now().UTC()
	if endStr := c.Query("end"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end timestamp")
		}
		end = t.UTC()
	}
	start := end.Add(-window)
	if startStr := c.Query("start"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start timestamp")
		}
		start = t.UTC()
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, usecases.ErrInvalidRange
	}
	return start, end, nil
}

// handleListWells returns all wells
// GET /api/v1/wells
func (s *Server) handleListWells(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	wells, err := s.wells.ListWells(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]wellResponse, 0, len(wells))
	for _, w := range wells {
		data = append(data, toWellResponse(w))
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"count": len(data)},
	})
}

// handleGetWell returns a well with its statistics and latest level
// GET /api/v1/wells/:wn
func (s *Server) handleGetWell(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	summary, err := s.wells.GetWellSummary(ctx, c.Param("wn"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "well not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"well":       toWellResponse(summary.Well),
		"statistics": toStatisticsResponse(summary.Statistics),
	}
	if summary.LatestLevel != nil {
		resp["latest_level"] = toWaterLevelResponse(*summary.LatestLevel)
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// handleWellReadings returns compensated water levels of a well
// GET /api/v1/wells/:wn/readings?start=&end=
func (s *Server) handleWellReadings(c *gin.Context) {
	start, end, err := s.timeRange(c, defaultReadingsWindow)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	wn := c.Param("wn")
	if _, err := s.wells.GetWellSummary(ctx, wn); errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "well not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	readings, err := s.levels.GetWaterLevels(ctx, wn, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]waterLevelResponse, 0, len(readings))
	for _, r := range readings {
		data = append(data, toWaterLevelResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"well_number": wn, "start": start, "end": end, "count": len(data)},
	})
}

// handleListBarologgers returns all barologgers
// GET /api/v1/barologgers
func (s *Server) handleListBarologgers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	baros, err := s.baros.ListBarologgers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]barologgerResponse, 0, len(baros))
	for _, b := range baros {
		data = append(data, barologgerResponse{
			SerialNumber: b.SerialNumber,
			Location:     b.LocationDescription,
			Status:       string(b.Status),
			Notes:        b.Notes,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"count": len(data)},
	})
}

// handleListMasterBaro returns stored master readings
// GET /api/v1/master-baro?start=&end=
func (s *Server) handleListMasterBaro(c *gin.Context) {
	start, end, err := s.timeRange(c, defaultMasterWindow)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	rows, err := s.baros.ListMasterBaro(ctx, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	coverage, err := s.baros.MasterBaroCoverage(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": toMasterBaroResponses(rows),
		"meta": gin.H{"start": start, "end": end, "count": len(rows), "coverage": coverageMeta(coverage)},
	})
}

// handleCreateMasterBaro rebuilds the master series over a window
// POST /api/v1/master-baro
func (s *Server) handleCreateMasterBaro(c *gin.Context) {
	var req masterBaroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MinReadings == 0 {
		req.MinReadings = baro.DefaultMinReadings
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), createTimeout)
	defer cancel()

	result, err := s.baros.CreateMasterBaro(ctx, usecases.MasterBaroRequest{
		Start:       req.Start.UTC(),
		End:         req.End.UTC(),
		Serials:     req.Serials,
		MinReadings: req.MinReadings,
		Overwrite:   req.Overwrite,
	})
	switch {
	case errors.Is(err, usecases.ErrNoSerials), errors.Is(err, usecases.ErrInvalidRange), errors.Is(err, baro.ErrInvalidMinReadings):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, baro.ErrNoBaroData), errors.Is(err, baro.ErrNoValidData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": toMasterBaroResponses(result.Rows),
		"meta": gin.H{
			"count":        len(result.Rows),
			"inserted":     result.Inserted,
			"flagged":      result.Flagged,
			"used_serials": result.UsedSerials,
		},
	})
}

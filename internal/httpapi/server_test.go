package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/usecases"
)

const testToken = "s3cret"

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	s, _ := newTestServerWithManager(t, token)
	return s
}

func newTestServerWithManager(t *testing.T, token string) (*Server, *repository.Manager) {
	t.Helper()
	ctx := context.Background()
	m, err := repository.Open(filepath.Join(t.TempDir(), "api.db"), repository.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	baroRepo := repository.NewBarologgerRepository(m)
	wellRepo := repository.NewWellRepository(m)
	levelRepo := repository.NewWaterLevelRepository(m)

	require.NoError(t, wellRepo.SaveWells(ctx, []entities.Well{
		{WellNumber: "SB-12", Latitude: 35.1, Longitude: -89.9, TopOfCasing: 250.5, Aquifer: "Memphis"},
	}))
	for serial, pressure := range map[string]float64{"A": 14.70, "B": 14.72} {
		require.NoError(t, baroRepo.SaveBarologger(ctx, entities.Barologger{SerialNumber: serial, LocationDescription: "test"}))
		var readings []entities.BarometricReading
		for i := 0; i < 4; i++ {
			readings = append(readings, entities.BarometricReading{
				SerialNumber: serial,
				TimestampUTC: t0.Add(time.Duration(i) * 15 * time.Minute),
				Pressure:     pressure,
			})
		}
		_, err := baroRepo.SaveReadings(ctx, readings, false)
		require.NoError(t, err)
	}

	s := New(Options{Addr: ":0", APIToken: token},
		usecases.NewWellUseCase(wellRepo, levelRepo),
		usecases.NewWaterLevelUseCase(wellRepo, levelRepo, baroRepo),
		usecases.NewBarologgerUseCase(baroRepo),
	)
	s.now = func() time.Time { return t0.Add(24 * time.Hour) }
	return s, m
}

func do(t *testing.T, s *Server, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	}
	return rec, payload
}

func meta(t *testing.T, payload map[string]any) map[string]any {
	t.Helper()
	m, ok := payload["meta"].(map[string]any)
	require.True(t, ok, "response has meta")
	return m
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "")
	rec, payload := do(t, s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])
}

func TestWellEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	rec, payload := do(t, s, http.MethodGet, "/api/v1/wells", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), meta(t, payload)["count"])

	rec, payload = do(t, s, http.MethodGet, "/api/v1/wells/SB-12", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	well := payload["data"].(map[string]any)["well"].(map[string]any)
	assert.Equal(t, "SB-12", well["well_number"])
	assert.Equal(t, 250.5, well["top_of_casing"])

	rec, _ = do(t, s, http.MethodGet, "/api/v1/wells/NOPE", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, payload = do(t, s, http.MethodGet, "/api/v1/wells/SB-12/readings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), meta(t, payload)["count"])

	rec, _ = do(t, s, http.MethodGet, "/api/v1/wells/SB-12/readings?start=yesterday", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/wells/NOPE/readings", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWellReadingsDatabaseFailure(t *testing.T) {
	s, m := newTestServerWithManager(t, "")
	require.NoError(t, m.Close())

	rec, payload := do(t, s, http.MethodGet, "/api/v1/wells/SB-12/readings", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, payload["error"])
}

func TestBarologgerEndpoints(t *testing.T) {
	s := newTestServer(t, "")
	rec, payload := do(t, s, http.MethodGet, "/api/v1/barologgers", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), meta(t, payload)["count"])
}

func TestMasterBaroAuth(t *testing.T) {
	body := `{"start":"2024-06-01T00:00:00Z","end":"2024-06-01T01:00:00Z","serials":["A","B"]}`

	disabled := newTestServer(t, "")
	rec, _ := do(t, disabled, http.MethodPost, "/api/v1/master-baro", body, "anything")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s := newTestServer(t, testToken)
	rec, _ = do(t, s, http.MethodPost, "/api/v1/master-baro", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = do(t, s, http.MethodPost, "/api/v1/master-baro", body, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndListMasterBaro(t *testing.T) {
	s := newTestServer(t, testToken)
	body := `{"start":"2024-06-01T00:00:00Z","end":"2024-06-01T01:00:00Z","serials":["A","B"]}`

	rec, payload := do(t, s, http.MethodPost, "/api/v1/master-baro", body, testToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := meta(t, payload)
	assert.Equal(t, float64(4), m["count"])
	assert.Equal(t, float64(4), m["inserted"])
	assert.Equal(t, float64(0), m["flagged"])

	rows := payload["data"].([]any)
	first := rows[0].(map[string]any)
	assert.InDelta(t, 14.71, first["pressure"], 1e-9)
	assert.Equal(t, "AUTO", first["quality_flag"])
	assert.Equal(t, []any{"A", "B"}, first["source_barologgers"])

	rec, payload = do(t, s, http.MethodGet,
		"/api/v1/master-baro?start=2024-06-01T00:00:00Z&end=2024-06-01T00:30:00Z", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m = meta(t, payload)
	assert.Equal(t, float64(3), m["count"])
	assert.Equal(t, float64(4), m["coverage"].(map[string]any)["count"])

	rec, _ = do(t, s, http.MethodGet, "/api/v1/master-baro?start=2024-06-02T00:00:00Z&end=2024-06-01T00:00:00Z", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMasterBaroErrors(t *testing.T) {
	s := newTestServer(t, testToken)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"start":`, http.StatusBadRequest},
		{"missing serials", `{"start":"2024-06-01T00:00:00Z","end":"2024-06-01T01:00:00Z"}`, http.StatusBadRequest},
		{"empty serials", `{"start":"2024-06-01T00:00:00Z","end":"2024-06-01T01:00:00Z","serials":[]}`, http.StatusBadRequest},
		{"inverted range", `{"start":"2024-06-02T00:00:00Z","end":"2024-06-01T00:00:00Z","serials":["A"]}`, http.StatusBadRequest},
		{"negative min readings", `{"start":"2024-06-01T00:00:00Z","end":"2024-06-01T01:00:00Z","serials":["A"],"min_readings":-1}`, http.StatusBadRequest},
		{"no data", `{"start":"2023-01-01T00:00:00Z","end":"2023-01-02T00:00:00Z","serials":["A","B"]}`, http.StatusUnprocessableEntity},
		{"too few loggers", `{"start":"2024-06-01T00:00:00Z","end":"2024-06-01T01:00:00Z","serials":["A"],"min_readings":2}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, s, http.MethodPost, "/api/v1/master-baro", tt.body, testToken)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

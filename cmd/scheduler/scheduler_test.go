package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/cli"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/integration"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
)

// TestFetchObservationsLive hits the public NWS site
func TestFetchObservationsLive(t *testing.T) {
	// Skip this test in CI environments
	if os.Getenv("CI") == "true" {
		t.Skip("Skipping test in CI environment")
	}

	scraper := integration.NewNWSScraper("KMEM", time.UTC, "")
	data, err := scraper.FetchObservations(context.Background())
	if err != nil {
		t.Logf("Warning: Failed to fetch observations: %v", err)
		t.Skip("Skipping test due to network issues - this is not a code bug")
	}
	if len(data) == 0 {
		t.Fatal("No observations were extracted from the website")
	}
	t.Logf("Successfully fetched %d observations, latest %s", len(data), data[len(data)-1].TimestampUTC.Format(time.RFC3339))
}

// mockHTMLServer creates a test server that serves a fixed HTML response
func mockHTMLServer(html string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, html)
	}))
}

// observationPage renders two rows for the current UTC day
func observationPage() string {
	day := time.Now().UTC().Day()
	row := `<tr><td>%02d</td><td>%s</td><td>S 9</td><td>10.00</td><td>Fair</td><td>CLR</td><td>77</td><td>66</td><td></td><td></td><td>69%%</td><td>NA</td><td>NA</td><td>%s</td><td>1016.4</td><td></td><td></td><td></td></tr>`
	return `<!DOCTYPE html><html><body><table>` +
		`<tr><th rowspan="3">Date</th><th rowspan="3">Time</th><th>Wind</th></tr>` +
		fmt.Sprintf(row, day, "00:53", "30.02") +
		fmt.Sprintf(row, day, "00:23", "30.01") +
		`</table></body></html>`
}

func newTestScheduler(t *testing.T, baseURL string) *scheduler {
	t.Helper()

	app, err := cli.OpenApp(filepath.Join(t.TempDir(), "test.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	cfg := &config.Config{
		Schedule: config.Schedule{
			NWSScrape:  "5 * * * *",
			MasterBaro: "30 2 * * *",
			Statistics: "",
			SyncCheck:  "*/30 * * * *",
		},
		MasterBaro: config.MasterBaro{
			Serials:     []string{"A", "B"},
			Window:      48 * time.Hour,
			MinReadings: 1,
		},
	}
	return &scheduler{
		cfg:    cfg,
		app:    app,
		source: integration.NewNWSScraper("KMEM", time.UTC, baseURL),
		now:    func() time.Time { return time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC) },
	}
}

func TestRefreshReferenceWithMock(t *testing.T) {
	server := mockHTMLServer(observationPage())
	defer server.Close()

	s := newTestScheduler(t, server.URL)
	ctx := context.Background()

	require.NoError(t, s.refreshReference(ctx))
	// Repeat runs only add what is new
	require.NoError(t, s.refreshReference(ctx))

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	repo := repository.NewBarologgerRepository(s.app.Manager)
	readings, err := repo.GetReadings(ctx, "NWS-KMEM", dayStart, dayStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, readings, 2)

	baros, err := s.app.Baros.ListBarologgers(ctx)
	require.NoError(t, err)
	require.Len(t, baros, 1)
	assert.Equal(t, "NWS-KMEM", baros[0].SerialNumber)
}

func TestRebuildMaster(t *testing.T) {
	s := newTestScheduler(t, "")
	ctx := context.Background()

	// No data yet is not a failure for a scheduled run
	require.NoError(t, s.rebuildMaster(ctx))

	repo := repository.NewBarologgerRepository(s.app.Manager)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for serial, pressure := range map[string]float64{"A": 14.70, "B": 14.72} {
		require.NoError(t, s.app.Baros.SaveBarologger(ctx, entities.Barologger{
			SerialNumber: serial,
			Status:       entities.BarologgerActive,
		}))
		var readings []entities.BarometricReading
		for i := 0; i < 4; i++ {
			readings = append(readings, entities.BarometricReading{
				SerialNumber: serial,
				TimestampUTC: t0.Add(time.Duration(i) * 15 * time.Minute),
				Pressure:     pressure,
			})
		}
		_, err := repo.SaveReadings(ctx, readings, false)
		require.NoError(t, err)
	}

	require.NoError(t, s.rebuildMaster(ctx))

	rows, err := s.app.Baros.ListMasterBaro(ctx, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.InDelta(t, 14.71, rows[0].Pressure, 1e-9)
}

func TestRebuildMasterWithoutSerials(t *testing.T) {
	s := newTestScheduler(t, "")
	s.cfg.MasterBaro.Serials = nil
	assert.NoError(t, s.rebuildMaster(context.Background()))
}

func TestRegisterSkipsEmptySchedules(t *testing.T) {
	s := newTestScheduler(t, "")
	c := cron.New()

	added, err := s.register(context.Background(), c)
	require.NoError(t, err)
	// Statistics is disabled and the sync check needs a syncer
	assert.Equal(t, 2, added)
	assert.Len(t, c.Entries(), 2)
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler(t, "")
	s.cfg.Schedule.NWSScrape = "every hour"

	_, err := s.register(context.Background(), cron.New())
	assert.Error(t, err)
}

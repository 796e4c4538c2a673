package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

type command interface {
	ParseFlags(args []string) error
	Run(ctx context.Context) error
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Database:   config.Database{Path: filepath.Join(dir, "wells.db"), PoolSize: 2},
		Paths:      config.Paths{ConfigDir: dir, SettingsPath: filepath.Join(dir, "settings.json")},
		NWS:        config.NWS{Station: "KMEM", Timezone: "UTC"},
		MasterBaro: config.MasterBaro{Window: 48 * time.Hour, MinReadings: 2},
		Auth:       config.Auth{BcryptCost: 4},
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func solinstFile(serial string, pressure float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Serial_number:\n%s\nProject ID:\nCAESER\nLocation:\nSB-1\nLEVEL\nUNIT: psi\nTEMPERATURE\nUNIT: Deg C\n\n", serial)
	b.WriteString("Date,Time,ms,LEVEL,TEMPERATURE\n")
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&b, "2024/05/01,00:%02d:00,0,%.3f,18.0\n", i*15, pressure)
	}
	return b.String()
}

func run(t *testing.T, cmd command, args ...string) {
	t.Helper()
	require.NoError(t, cmd.ParseFlags(args))
	require.NoError(t, cmd.Run(context.Background()))
}

func TestImportWorkflow(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	run(t, NewInitCommand(cfg))
	run(t, NewImportWellsCommand(cfg), "-file", writeFile(t, "wells.csv",
		"WN,LAT,LON,TOC,AQ\nSB-1,35.12,-89.93,251.4,Memphis\n"))
	run(t, NewImportBaroCommand(cfg), "-tz", "UTC",
		writeFile(t, "1001.csv", solinstFile("1001", 14.70)),
		writeFile(t, "1002.csv", solinstFile("1002", 14.72)))
	run(t, NewMasterBaroCommand(cfg), "-serials", "1001,1002",
		"-start", "2024-05-01", "-end", "2024-05-02", "-show", "0")
	run(t, NewImportManualCommand(cfg), "-file", writeFile(t, "manual.csv",
		"well_number,measurement_date_utc,dtw_1\nSB-1,2024-05-01 00:20,10.0\nXX-9,2024-05-01 00:20,3.0\n"))
	run(t, NewImportTransducerCommand(cfg), "-tz", "UTC", "-well", "SB-1",
		"-file", writeFile(t, "3001.csv", solinstFile("3001", 20.0)))
	run(t, NewRefreshStatsCommand(cfg))

	app, err := OpenApp(cfg.Database.Path, 1)
	require.NoError(t, err)
	defer app.Close()

	master, err := app.Baros.ListMasterBaro(ctx, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, master, 4)
	assert.InDelta(t, 14.71, master[0].Pressure, 1e-9)

	levels, err := app.Levels.GetWaterLevels(ctx, "SB-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, levels, 4)
	for _, l := range levels {
		assert.Equal(t, entities.BaroFlagMaster, l.BaroFlag)
		assert.InDelta(t, 241.4, l.WaterLevel, 1e-6)
	}

	summary, err := app.Wells.GetWellSummary(ctx, "SB-1")
	require.NoError(t, err)
	assert.Equal(t, entities.BaroStatusAllMaster, summary.Well.BaroStatus)
	assert.Equal(t, entities.LevelStatusConfirmed, summary.Well.LevelStatus)
	require.NotNil(t, summary.Statistics)
	assert.Positive(t, summary.Statistics.NumPoints)
}

func TestUserAdd(t *testing.T) {
	cfg := testConfig(t)
	t.Setenv(passwordEnv, "monitoring-well")

	run(t, NewUserAddCommand(cfg), "-username", "jdoe", "-name", "J. Doe", "-role", "admin")

	app, err := OpenApp(cfg.Database.Path, 1)
	require.NoError(t, err)
	defer app.Close()
	u, err := app.Users.GetUserByUsername(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, entities.RoleAdmin, u.Role)
	assert.NotEqual(t, "monitoring-well", u.PasswordHash)

	assert.Error(t, NewUserAddCommand(cfg).ParseFlags([]string{"-username", "x", "-role", "owner"}))
	assert.Error(t, NewUserAddCommand(cfg).ParseFlags(nil))
}

func TestMasterBaroFlags(t *testing.T) {
	cfg := testConfig(t)
	cfg.MasterBaro.Serials = []string{"1001", "1002"}

	cmd := NewMasterBaroCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-end", "2024-06-03"}))
	assert.Equal(t, []string{"1001", "1002"}, cmd.Serials)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), cmd.End)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), cmd.Start)
	assert.Equal(t, 2, cmd.MinReadings)

	cfg.MasterBaro.Serials = nil
	assert.Error(t, NewMasterBaroCommand(cfg).ParseFlags(nil))
	assert.Error(t, NewMasterBaroCommand(cfg).ParseFlags([]string{"-serials", "1", "-start", "June"}))
}

func TestSyncRequiresCloudSettings(t *testing.T) {
	cfg := testConfig(t)

	assert.Error(t, NewSyncCommand(cfg, "pull").ParseFlags(nil), "pull needs a name")
	require.NoError(t, NewSyncCommand(cfg, "status").ParseFlags(nil))

	cmd := NewSyncCommand(cfg, "pull")
	require.NoError(t, cmd.ParseFlags([]string{"-name", "wells.db"}))
	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloud storage is not enabled")
}

func TestParseDate(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-06-01", time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC)},
		{"2024-06-01 07:30", time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)},
		{"2024-06-01T07:30:00Z", time.Date(2024, 6, 1, 7, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in, chicago)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err = parseDate("01/06/2024", chicago)
	assert.Error(t, err)
}

// Package cli implements the waterlevels subcommands
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/cloudsync"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/storage/gdrive"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/usecases"
)

// App wires repositories and use cases over one open database
type App struct {
	Manager *repository.Manager
	Baros   *usecases.BarologgerUseCase
	Wells   *usecases.WellUseCase
	Levels  *usecases.WaterLevelUseCase
	Users   *repository.SQLiteUserRepository
}

// OpenApp opens the database at path and builds the use cases on it
func OpenApp(path string, poolSize int) (*App, error) {
	m, err := repository.Open(path, repository.Options{PoolSize: poolSize})
	if err != nil {
		return nil, err
	}

	baroRepo := repository.NewBarologgerRepository(m)
	wellRepo := repository.NewWellRepository(m)
	levelRepo := repository.NewWaterLevelRepository(m)

	return &App{
		Manager: m,
		Baros:   usecases.NewBarologgerUseCase(baroRepo),
		Wells:   usecases.NewWellUseCase(wellRepo, levelRepo),
		Levels:  usecases.NewWaterLevelUseCase(wellRepo, levelRepo, baroRepo),
		Users:   repository.NewUserRepository(m),
	}, nil
}

// Close releases the connection pool
func (a *App) Close() error {
	return a.Manager.Close()
}

// NewSyncer builds the Drive client described by the user settings
func NewSyncer(ctx context.Context, cfg *config.Config, settings *config.Settings) (*cloudsync.Syncer, error) {
	if !settings.UseCloud {
		return nil, fmt.Errorf("cloud storage is not enabled in %s", cfg.Paths.SettingsPath)
	}
	client, err := gdrive.NewClient(ctx, gdrive.Options{
		CredentialsFile: cfg.CredentialsPath(settings.CredentialsFile),
		ServiceAccount:  settings.ServiceAccount,
		TokenFile:       cfg.CredentialsPath(settings.TokenFile),
	})
	if err != nil {
		return nil, err
	}
	return cloudsync.NewSyncer(client, settings.DriveFolderID, settings.CacheDir), nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDate accepts a date or date-time; values without a zone are read in loc
func parseDate(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD[ HH:MM[:SS]] or RFC3339", value)
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", name, err)
	}
	return loc, nil
}

func printSkipped(skipped []string) {
	if len(skipped) == 0 {
		return
	}
	fmt.Printf("\n%d rows skipped:\n", len(skipped))
	for i, s := range skipped {
		if i == 20 {
			fmt.Printf("  ... and %d more\n", len(skipped)-i)
			break
		}
		fmt.Printf("  %s\n", s)
	}
}

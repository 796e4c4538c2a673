package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/importers"
)

// ImportWellsCommand loads a well list CSV
type ImportWellsCommand struct {
	cfg          *config.Config
	FilePath     string
	DatabasePath string
	DryRun       bool
}

func NewImportWellsCommand(cfg *config.Config) *ImportWellsCommand {
	return &ImportWellsCommand{cfg: cfg}
}

func (cmd *ImportWellsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-wells", flag.ExitOnError)
	fs.StringVar(&cmd.FilePath, "file", "", "Path to the wells CSV (required)")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse and validate without saving")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-wells -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import wells. Required columns: WN, LAT, LON, TOC, AQ.\n")
		fmt.Fprintf(os.Stderr, "Optional columns: CAE, WELL_FIELD, COUNTY, CLUSTER.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *ImportWellsCommand) Run(ctx context.Context) error {
	f, err := os.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open wells file: %w", err)
	}
	defer f.Close()

	wells, skipped, err := importers.ParseWellsCSV(f)
	if err != nil {
		return err
	}
	fmt.Printf("Parsed %d wells from %s\n", len(wells), cmd.FilePath)
	printSkipped(skipped)
	if cmd.DryRun {
		fmt.Println("DRY RUN - nothing saved")
		return nil
	}

	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Wells.ImportWells(ctx, wells); err != nil {
		return err
	}
	fmt.Printf("Saved %d wells\n", len(wells))
	return nil
}

// ImportManualCommand loads field depth-to-water measurements
type ImportManualCommand struct {
	cfg          *config.Config
	FilePath     string
	DatabasePath string
	Timezone     string
	DryRun       bool
}

func NewImportManualCommand(cfg *config.Config) *ImportManualCommand {
	return &ImportManualCommand{cfg: cfg}
}

func (cmd *ImportManualCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-manual", flag.ExitOnError)
	fs.StringVar(&cmd.FilePath, "file", "", "Path to the manual readings CSV (required)")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database")
	fs.StringVar(&cmd.Timezone, "tz", "UTC", "Time zone of dates without an offset")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse and validate without saving")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-manual -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import manual readings. Required columns: well_number, measurement_date_utc, dtw_1.\n")
		fmt.Fprintf(os.Stderr, "Common aliases such as WN, date and dtw are recognised.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *ImportManualCommand) Run(ctx context.Context) error {
	loc, err := loadLocation(cmd.Timezone)
	if err != nil {
		return err
	}
	f, err := os.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open manual readings file: %w", err)
	}
	defer f.Close()

	readings, parseSkipped, err := importers.ParseManualCSV(f, loc)
	if err != nil {
		return err
	}
	fmt.Printf("Parsed %d manual readings from %s\n", len(readings), cmd.FilePath)
	printSkipped(parseSkipped)
	if cmd.DryRun {
		fmt.Println("DRY RUN - nothing saved")
		return nil
	}

	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	saved, skipped, err := app.Wells.ImportManualReadings(ctx, readings)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d manual readings\n", saved)
	printSkipped(skipped)
	return nil
}

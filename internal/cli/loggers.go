package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/importers"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/usecases"
)

// ImportBaroCommand loads Solinst barologger files
type ImportBaroCommand struct {
	cfg          *config.Config
	Files        []string
	DatabasePath string
	Timezone     string
	Overwrite    bool
}

func NewImportBaroCommand(cfg *config.Config) *ImportBaroCommand {
	return &ImportBaroCommand{cfg: cfg}
}

func (cmd *ImportBaroCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-baro", flag.ExitOnError)
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database")
	fs.StringVar(&cmd.Timezone, "tz", cmd.cfg.NWS.Timezone, "Time zone the logger clock was set to")
	fs.BoolVar(&cmd.Overwrite, "overwrite", false, "Replace existing readings in each file's span")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-baro [options] <file.xle|file.csv>...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import barologger files. Unknown barologgers are registered from the file header.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.Files = fs.Args()
	if len(cmd.Files) == 0 {
		return fmt.Errorf("at least one logger file is required")
	}
	return nil
}

func (cmd *ImportBaroCommand) Run(ctx context.Context) error {
	loc, err := loadLocation(cmd.Timezone)
	if err != nil {
		return err
	}
	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	total := 0
	for _, path := range cmd.Files {
		file, err := importers.ParseLoggerFile(path, loc)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		inserted, err := app.Baros.ImportLoggerFile(ctx, file, path, cmd.Overwrite)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		first, last := file.Span()
		fmt.Printf("%s: barologger %s, %d samples (%s to %s), %d new\n",
			path, file.SerialNumber, len(file.Samples),
			first.Format("2006-01-02 15:04"), last.Format("2006-01-02 15:04"), inserted)
		total += inserted
	}
	fmt.Printf("Imported %d readings from %d files\n", total, len(cmd.Files))
	return nil
}

// ImportTransducerCommand loads a transducer file into a well
type ImportTransducerCommand struct {
	cfg          *config.Config
	FilePath     string
	WellNumber   string
	Fallback     string
	DatabasePath string
	Timezone     string
	Overwrite    bool
}

func NewImportTransducerCommand(cfg *config.Config) *ImportTransducerCommand {
	return &ImportTransducerCommand{cfg: cfg}
}

func (cmd *ImportTransducerCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-transducer", flag.ExitOnError)
	fs.StringVar(&cmd.FilePath, "file", "", "Path to the transducer .xle or .csv file (required)")
	fs.StringVar(&cmd.WellNumber, "well", "", "Well number the transducer is installed in (required)")
	fs.StringVar(&cmd.Fallback, "fallback-baro", "", "Barologger used where the master baro has gaps")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database")
	fs.StringVar(&cmd.Timezone, "tz", cmd.cfg.NWS.Timezone, "Time zone the logger clock was set to")
	fs.BoolVar(&cmd.Overwrite, "overwrite", false, "Replace existing levels in the file's span")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-transducer -file <path> -well <WN> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Compensate a transducer file with the master baro and store water levels.\n")
		fmt.Fprintf(os.Stderr, "The well needs at least one manual reading to reference the levels.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.FilePath == "" || cmd.WellNumber == "" {
		return fmt.Errorf("required flags -file and -well not provided")
	}
	return nil
}

func (cmd *ImportTransducerCommand) Run(ctx context.Context) error {
	loc, err := loadLocation(cmd.Timezone)
	if err != nil {
		return err
	}
	file, err := importers.ParseLoggerFile(cmd.FilePath, loc)
	if err != nil {
		return err
	}

	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Levels.ImportTransducerFile(ctx, usecases.TransducerImport{
		WellNumber:         cmd.WellNumber,
		File:               file,
		FileName:           cmd.FilePath,
		FallbackBarologger: cmd.Fallback,
		Overwrite:          cmd.Overwrite,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Transducer %s -> well %s\n", file.SerialNumber, cmd.WellNumber)
	fmt.Printf("  %d levels saved (%d master baro, %d fallback, %d without baro)\n",
		result.Inserted, result.MasterCount, result.StandardCount, result.Skipped)
	fmt.Printf("  Referenced to manual reading of %s (offset %.3f ft)\n",
		result.Reference.MeasurementDateUTC.Format("2006-01-02 15:04"), result.LevelOffset)
	fmt.Printf("  Well status: baro %s, level %s\n", result.BaroStatus, result.LevelStatus)
	return nil
}

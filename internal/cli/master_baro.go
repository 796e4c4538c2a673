package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/usecases"
)

// MasterBaroCommand builds the master barometric series
type MasterBaroCommand struct {
	cfg          *config.Config
	DatabasePath string
	Serials      []string
	Start        time.Time
	End          time.Time
	MinReadings  int
	Overwrite    bool
	Show         int
}

func NewMasterBaroCommand(cfg *config.Config) *MasterBaroCommand {
	return &MasterBaroCommand{cfg: cfg}
}

func (cmd *MasterBaroCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("master-baro", flag.ExitOnError)
	var serials, start, end string
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database")
	fs.StringVar(&serials, "serials", strings.Join(cmd.cfg.MasterBaro.Serials, ","), "Comma-separated barologger serial numbers")
	fs.StringVar(&start, "start", "", "Start of the window, UTC (default: end minus MASTER_BARO_WINDOW)")
	fs.StringVar(&end, "end", "", "End of the window, UTC (default: now)")
	fs.IntVar(&cmd.MinReadings, "min-readings", cmd.cfg.MasterBaro.MinReadings, "Minimum barologgers per 15 minute bucket")
	fs.BoolVar(&cmd.Overwrite, "overwrite", false, "Replace existing master readings in the window")
	fs.IntVar(&cmd.Show, "show", 10, "Number of resulting rows to print")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s master-baro -serials <a,b,...> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Average barologgers into the 15 minute master baro series.\n")
		fmt.Fprintf(os.Stderr, "Buckets whose pressures disagree are flagged CHECK.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s master-baro -serials 2056234,2056235 -start 2024-06-01 -end 2024-07-01 -overwrite\n", os.Args[0])
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, s := range strings.Split(serials, ",") {
		if s = strings.TrimSpace(s); s != "" {
			cmd.Serials = append(cmd.Serials, s)
		}
	}
	if len(cmd.Serials) == 0 {
		return fmt.Errorf("no barologgers selected: use -serials or set MASTER_BARO_SERIALS")
	}

	cmd.End = time.Now().UTC()
	if end != "" {
		t, err := parseDate(end, time.UTC)
		if err != nil {
			return err
		}
		cmd.End = t
	}
	cmd.Start = cmd.End.Add(-cmd.cfg.MasterBaro.Window)
	if start != "" {
		t, err := parseDate(start, time.UTC)
		if err != nil {
			return err
		}
		cmd.Start = t
	}
	return nil
}

func (cmd *MasterBaroCommand) Run(ctx context.Context) error {
	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Baros.CreateMasterBaro(ctx, usecases.MasterBaroRequest{
		Start:       cmd.Start,
		End:         cmd.End,
		Serials:     cmd.Serials,
		MinReadings: cmd.MinReadings,
		Overwrite:   cmd.Overwrite,
	})
	if err != nil {
		return err
	}

	fmt.Println(usecases.FormatMasterBaroResult(result))
	if cmd.Show > 0 {
		fmt.Println()
		fmt.Println(usecases.FormatMasterBaroReadings(result.Rows, cmd.Show))
	}

	coverage, err := app.Baros.MasterBaroCoverage(ctx)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(usecases.FormatCoverage(coverage))
	return nil
}

package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
)

// RefreshStatsCommand recomputes well status flags and statistics
type RefreshStatsCommand struct {
	cfg          *config.Config
	DatabasePath string
}

func NewRefreshStatsCommand(cfg *config.Config) *RefreshStatsCommand {
	return &RefreshStatsCommand{cfg: cfg}
}

func (cmd *RefreshStatsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("refresh-stats", flag.ExitOnError)
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s refresh-stats [options]\n\n", os.Args[0])
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *RefreshStatsCommand) Run(ctx context.Context) error {
	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.Wells.RefreshAllStatistics(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Refreshed %d wells\n", n)
	return nil
}

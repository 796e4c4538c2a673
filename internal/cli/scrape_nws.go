package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/integration"
)

// ScrapeNWSCommand stores the latest NWS observations as a reference barometer
type ScrapeNWSCommand struct {
	cfg          *config.Config
	Station      string
	DatabasePath string
}

func NewScrapeNWSCommand(cfg *config.Config) *ScrapeNWSCommand {
	return &ScrapeNWSCommand{cfg: cfg}
}

func (cmd *ScrapeNWSCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("scrape-nws", flag.ExitOnError)
	fs.StringVar(&cmd.Station, "station", cmd.cfg.NWS.Station, "NWS station identifier")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s scrape-nws [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fetch the NWS observation history page and store the altimeter\n")
		fmt.Fprintf(os.Stderr, "setting as readings of barologger %s.\n\n", integration.ReferenceSerial("<STATION>"))
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *ScrapeNWSCommand) Run(ctx context.Context) error {
	loc, err := cmd.cfg.Location()
	if err != nil {
		return err
	}
	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	scraper := integration.NewNWSScraper(cmd.Station, loc, cmd.cfg.NWS.BaseURL)
	inserted, err := app.Baros.RefreshReferenceBarometer(ctx, scraper)
	if err != nil {
		return err
	}
	fmt.Printf("Stored %d new observations for %s\n", inserted, integration.ReferenceSerial(scraper.Station()))
	return nil
}

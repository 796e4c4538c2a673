package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/cli"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
)

// Command is a waterlevels subcommand
type Command interface {
	ParseFlags(args []string) error
	Run(ctx context.Context) error
}

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var cmd Command
	switch command {
	case "init":
		cmd = cli.NewInitCommand(cfg)
	case "import-wells":
		cmd = cli.NewImportWellsCommand(cfg)
	case "import-manual":
		cmd = cli.NewImportManualCommand(cfg)
	case "import-baro":
		cmd = cli.NewImportBaroCommand(cfg)
	case "import-transducer":
		cmd = cli.NewImportTransducerCommand(cfg)
	case "master-baro":
		cmd = cli.NewMasterBaroCommand(cfg)
	case "refresh-stats":
		cmd = cli.NewRefreshStatsCommand(cfg)
	case "scrape-nws":
		cmd = cli.NewScrapeNWSCommand(cfg)
	case "sync-status":
		cmd = cli.NewSyncCommand(cfg, "status")
	case "sync-pull":
		cmd = cli.NewSyncCommand(cfg, "pull")
	case "sync-push":
		cmd = cli.NewSyncCommand(cfg, "push")
	case "drive-auth":
		cmd = cli.NewDriveAuthCommand(cfg)
	case "user-add":
		cmd = cli.NewUserAddCommand(cfg)
	case "serve":
		cmd = cli.NewServeCommand(cfg)

	case "-h", "--help", "help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  init               Create a database with the full schema\n")
	fmt.Fprintf(os.Stderr, "  import-wells       Import wells from a CSV file\n")
	fmt.Fprintf(os.Stderr, "  import-manual      Import manual depth-to-water readings from a CSV file\n")
	fmt.Fprintf(os.Stderr, "  import-baro        Import Solinst barologger files\n")
	fmt.Fprintf(os.Stderr, "  import-transducer  Import a Solinst transducer file into a well\n")
	fmt.Fprintf(os.Stderr, "  master-baro        Build the 15 minute master baro series\n")
	fmt.Fprintf(os.Stderr, "  refresh-stats      Recompute well status flags and statistics\n")
	fmt.Fprintf(os.Stderr, "  scrape-nws         Store NWS observations as a reference barometer\n")
	fmt.Fprintf(os.Stderr, "  sync-status        Compare the local cache with Google Drive\n")
	fmt.Fprintf(os.Stderr, "  sync-pull          Download a database from Google Drive\n")
	fmt.Fprintf(os.Stderr, "  sync-push          Upload a database to Google Drive\n")
	fmt.Fprintf(os.Stderr, "  drive-auth         Authorize Google Drive access (OAuth)\n")
	fmt.Fprintf(os.Stderr, "  user-add           Add a database user\n")
	fmt.Fprintf(os.Stderr, "  serve              Start the REST API\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}

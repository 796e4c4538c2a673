package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
)

// InitCommand creates a database with the full schema
type InitCommand struct {
	cfg          *config.Config
	DatabasePath string
}

func NewInitCommand(cfg *config.Config) *InitCommand {
	return &InitCommand{cfg: cfg}
}

func (cmd *InitCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path of the database to create")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s init [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a water levels database. Existing tables are left untouched.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *InitCommand) Run(ctx context.Context) error {
	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Printf("Database ready: %s\n", app.Manager.Path())
	fmt.Printf("Tables (%d):\n", len(repository.Tables))
	for _, t := range repository.Tables {
		fmt.Printf("  %s\n", t)
	}
	return nil
}

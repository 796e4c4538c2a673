package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/httpapi"
)

// ServeCommand runs the JSON API
type ServeCommand struct {
	cfg          *config.Config
	DatabasePath string
	Addr         string
}

func NewServeCommand(cfg *config.Config) *ServeCommand {
	return &ServeCommand{cfg: cfg}
}

func (cmd *ServeCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database")
	fs.StringVar(&cmd.Addr, "addr", fmt.Sprintf("%s:%d", cmd.cfg.HTTP.Host, cmd.cfg.HTTP.Port), "Listen address")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s serve [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Serve the REST API. POST endpoints require API_TOKEN.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *ServeCommand) Run(ctx context.Context) error {
	app, err := OpenApp(cmd.DatabasePath, cmd.cfg.Database.PoolSize)
	if err != nil {
		return err
	}
	defer app.Close()

	if cmd.cfg.HTTP.APIToken == "" {
		log.Println("API_TOKEN is not set, write endpoints are disabled")
	}
	srv := httpapi.New(httpapi.Options{
		Addr:            cmd.Addr,
		APIToken:        cmd.cfg.HTTP.APIToken,
		ShutdownTimeout: time.Duration(cmd.cfg.Global.ShutdownTimeoutInSeconds) * time.Second,
	}, app.Wells, app.Levels, app.Baros)

	log.Printf("REST API listening on %s (database %s)", cmd.Addr, app.Manager.Path())
	return srv.Run(ctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/baro"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/cli"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/cloudsync"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/integration"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/usecases"
)

// scheduler holds the periodic jobs
type scheduler struct {
	cfg      *config.Config
	app      *cli.App
	source   usecases.ObservationSource
	syncer   *cloudsync.Syncer
	syncName string
	now      func() time.Time
}

func (s *scheduler) refreshReference(ctx context.Context) error {
	inserted, err := s.app.Baros.RefreshReferenceBarometer(ctx, s.source)
	if err != nil {
		return err
	}
	log.Printf("[NWS] stored %d new observations for %s", inserted, s.source.Station())
	return nil
}

func (s *scheduler) rebuildMaster(ctx context.Context) error {
	if len(s.cfg.MasterBaro.Serials) == 0 {
		log.Println("[MASTER] MASTER_BARO_SERIALS is empty, skipping")
		return nil
	}
	end := s.now().UTC()
	result, err := s.app.Baros.CreateMasterBaro(ctx, usecases.MasterBaroRequest{
		Start:       end.Add(-s.cfg.MasterBaro.Window),
		End:         end,
		Serials:     s.cfg.MasterBaro.Serials,
		MinReadings: s.cfg.MasterBaro.MinReadings,
		Overwrite:   true,
	})
	if errors.Is(err, baro.ErrNoBaroData) || errors.Is(err, baro.ErrNoValidData) {
		log.Printf("[MASTER] nothing to build: %v", err)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("[MASTER] %d buckets, %d flagged CHECK", len(result.Rows), result.Flagged)
	return nil
}

func (s *scheduler) refreshStats(ctx context.Context) error {
	n, err := s.app.Wells.RefreshAllStatistics(ctx)
	if err != nil {
		return err
	}
	log.Printf("[STATS] refreshed %d wells", n)
	return nil
}

func (s *scheduler) checkSync(ctx context.Context) error {
	st, err := s.syncer.CheckVersionStatus(ctx, s.syncName)
	if err != nil {
		return err
	}
	if st.CloudIsNewer {
		log.Printf("[SYNC] cloud copy of %s is newer (%s), run sync-pull", st.Name, st.CloudModified.Format(time.RFC3339))
	}
	return nil
}

// register adds every configured job to c and returns how many were added
func (s *scheduler) register(ctx context.Context, c *cron.Cron) (int, error) {
	jobs := []struct {
		tag  string
		spec string
		run  func(context.Context) error
	}{
		{"NWS", s.cfg.Schedule.NWSScrape, s.refreshReference},
		{"MASTER", s.cfg.Schedule.MasterBaro, s.rebuildMaster},
		{"STATS", s.cfg.Schedule.Statistics, s.refreshStats},
	}
	if s.syncer != nil {
		jobs = append(jobs, struct {
			tag  string
			spec string
			run  func(context.Context) error
		}{"SYNC", s.cfg.Schedule.SyncCheck, s.checkSync})
	}

	added := 0
	for _, job := range jobs {
		if job.spec == "" {
			log.Printf("[%s] no schedule, job disabled", job.tag)
			continue
		}
		tag, run := job.tag, job.run
		if _, err := c.AddFunc(job.spec, func() {
			if err := run(ctx); err != nil {
				log.Printf("[%s] scheduled run failed: %v", tag, err)
			}
		}); err != nil {
			return added, fmt.Errorf("failed to schedule %s job: %w", tag, err)
		}
		log.Printf("[%s] scheduled %q", tag, job.spec)
		added++
	}
	return added, nil
}

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting water levels scheduler...")

	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := cli.OpenApp(cfg.Database.Path, cfg.Database.PoolSize)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer app.Close()

	s := &scheduler{
		cfg:    cfg,
		app:    app,
		source: integration.NewNWSScraper(cfg.NWS.Station, loc, cfg.NWS.BaseURL),
		now:    time.Now,
	}

	settings, err := config.LoadSettings(cfg.Paths.SettingsPath)
	if err != nil {
		log.Printf("[SYNC] settings unavailable, sync check disabled: %v", err)
	} else if settings.UseCloud && settings.LastDatabase != "" {
		syncer, err := cli.NewSyncer(ctx, cfg, settings)
		if err != nil {
			log.Printf("[SYNC] Drive unavailable, sync check disabled: %v", err)
		} else {
			s.syncer = syncer
			s.syncName = settings.LastDatabase
		}
	}

	// Run the reference refresh immediately on startup
	if err := s.refreshReference(ctx); err != nil {
		log.Printf("[NWS] initial refresh failed: %v", err)
	}

	c := cron.New()
	if _, err := s.register(ctx, c); err != nil {
		log.Fatalf("Failed to set up cron jobs: %v", err)
	}
	c.Start()

	<-ctx.Done()
	log.Println("Stopping scheduler...")
	<-c.Stop().Done()
}

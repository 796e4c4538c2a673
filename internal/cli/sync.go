package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/cloudsync"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
)

// SyncCommand implements sync-status, sync-pull and sync-push
type SyncCommand struct {
	cfg    *config.Config
	action string
	Name   string
	Force  bool
}

func NewSyncCommand(cfg *config.Config, action string) *SyncCommand {
	return &SyncCommand{cfg: cfg, action: action}
}

func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync-"+cmd.action, flag.ExitOnError)
	settings, _ := config.LoadSettings(cmd.cfg.Paths.SettingsPath)
	defaultName := ""
	if settings != nil {
		defaultName = settings.LastDatabase
	}
	fs.StringVar(&cmd.Name, "name", defaultName, "Database file name in the Drive folder")
	if cmd.action == "push" {
		fs.BoolVar(&cmd.Force, "force", false, "Upload even if the cloud copy changed since the last pull")
	}
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync-%s [options]\n\n", os.Args[0], cmd.action)
		switch cmd.action {
		case "status":
			fmt.Fprintf(os.Stderr, "Compare the local cache with Drive. Without -name, list the databases in the folder.\n\n")
		case "pull":
			fmt.Fprintf(os.Stderr, "Download a database when the cloud copy is newer than the cache.\n\n")
		case "push":
			fmt.Fprintf(os.Stderr, "Upload local changes. Refuses when someone else pushed since the last pull.\n\n")
		}
		fmt.Fprintf(os.Stderr, "Settings are read from %s\n\n", cmd.cfg.Paths.SettingsPath)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Name == "" && cmd.action != "status" {
		return fmt.Errorf("required flag -name not provided")
	}
	return nil
}

func (cmd *SyncCommand) Run(ctx context.Context) error {
	settings, err := config.LoadSettings(cmd.cfg.Paths.SettingsPath)
	if err != nil {
		return err
	}
	syncer, err := NewSyncer(ctx, cmd.cfg, settings)
	if err != nil {
		return err
	}

	switch cmd.action {
	case "status":
		if cmd.Name == "" {
			return cmd.list(ctx, syncer)
		}
		return cmd.status(ctx, syncer)
	case "pull":
		path, downloaded, err := syncer.Pull(ctx, cmd.Name)
		if err != nil {
			return err
		}
		if downloaded {
			fmt.Printf("Downloaded %s to %s\n", cmd.Name, path)
		} else {
			fmt.Printf("%s is up to date\n", path)
		}
		settings.LastDatabase = cmd.Name
		return config.SaveSettings(cmd.cfg.Paths.SettingsPath, settings)
	case "push":
		return cmd.push(ctx, syncer)
	}
	return fmt.Errorf("unknown sync action %q", cmd.action)
}

func (cmd *SyncCommand) list(ctx context.Context, syncer *cloudsync.Syncer) error {
	dbs, err := syncer.ListDatabases(ctx)
	if err != nil {
		return err
	}
	if len(dbs) == 0 {
		fmt.Println("No databases in the Drive folder")
		return nil
	}
	fmt.Printf("Databases in Drive (%d):\n", len(dbs))
	for _, db := range dbs {
		fmt.Printf("  %-40s %10d bytes  modified %s\n", db.Name, db.Size, db.ModifiedAt.Format(time.RFC3339))
	}
	return nil
}

func (cmd *SyncCommand) status(ctx context.Context, syncer *cloudsync.Syncer) error {
	st, err := syncer.CheckVersionStatus(ctx, cmd.Name)
	if err != nil {
		return err
	}
	fmt.Printf("Database: %s\n", st.Name)
	if st.HasLocalCopy {
		fmt.Printf("  Local:  %s (modified %s)\n", st.LocalPath, st.LocalModified.Format(time.RFC3339))
	} else {
		fmt.Println("  Local:  no cached copy")
	}
	if st.CloudExists {
		fmt.Printf("  Cloud:  %s (modified %s)\n", st.FileID, st.CloudModified.Format(time.RFC3339))
	} else {
		fmt.Println("  Cloud:  not found")
	}
	if !st.LastSynced.IsZero() {
		fmt.Printf("  Synced: %s\n", st.LastSynced.Format(time.RFC3339))
	}
	if st.CloudIsNewer {
		fmt.Println("  The cloud copy is newer, run sync-pull")
	}
	return nil
}

// cachedDatabase reports changes made by earlier processes through the file mtime
type cachedDatabase struct {
	*repository.Manager
	changedOnDisk bool
}

func (d *cachedDatabase) Modified() bool {
	return d.changedOnDisk || d.Manager.Modified()
}

func (d *cachedDatabase) ClearModified() {
	d.changedOnDisk = false
	d.Manager.ClearModified()
}

func (cmd *SyncCommand) push(ctx context.Context, syncer *cloudsync.Syncer) error {
	st, err := syncer.CheckVersionStatus(ctx, cmd.Name)
	if err != nil {
		return err
	}
	if !st.HasLocalCopy {
		return fmt.Errorf("no local copy of %s in the cache", cmd.Name)
	}
	changed := st.LastSynced.IsZero() || st.LocalModified.Truncate(time.Second).After(st.LastSynced.Truncate(time.Second))

	m, err := repository.Open(st.LocalPath, repository.Options{PoolSize: cmd.cfg.Database.PoolSize, Cloud: true})
	if err != nil {
		return err
	}
	defer m.Close()

	pushed, err := syncer.Push(ctx, &cachedDatabase{Manager: m, changedOnDisk: changed}, cmd.Force)
	if err != nil {
		return err
	}
	if pushed {
		fmt.Printf("Uploaded %s\n", cmd.Name)
	} else {
		fmt.Printf("No local changes to %s\n", cmd.Name)
	}
	return nil
}

// Package cloudsync keeps a local cache of shared databases in step with a
// cloud folder. Each pull or push records the cloud modification time in a
// state file in the cache directory; a cloud copy newer than that record is
// a conflict. Without a record the local file mtime is used instead.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/storage"
)

// ErrConflict is returned by Push when the cloud copy changed after the last pull
var ErrConflict = errors.New("cloud copy changed since last pull")

// VersionStatus compares the local cache entry with its cloud counterpart
type VersionStatus struct {
	Name          string
	LocalPath     string
	HasLocalCopy  bool
	CloudExists   bool
	CloudIsNewer  bool
	LocalModified time.Time
	CloudModified time.Time
	LastSynced    time.Time
	FileID        string
}

// Database is a local database that can be pushed
type Database interface {
	Path() string
	Modified() bool
	ClearModified()
	Checkpoint(ctx context.Context) error
}

// Syncer moves database files between a cloud folder and a cache directory
type Syncer struct {
	client   storage.Client
	folderID string
	cacheDir string
}

// NewSyncer creates a syncer for one cloud folder
func NewSyncer(client storage.Client, folderID, cacheDir string) *Syncer {
	return &Syncer{client: client, folderID: folderID, cacheDir: cacheDir}
}

// LocalPath returns the cache location of a database
func (s *Syncer) LocalPath(name string) string {
	return filepath.Join(s.cacheDir, name)
}

// ListDatabases returns the databases in the cloud folder
func (s *Syncer) ListDatabases(ctx context.Context) ([]storage.FileInfo, error) {
	files, err := s.client.List(ctx, s.folderID)
	if err != nil {
		return nil, err
	}
	return storage.FilterFiles(files, storage.IsDatabase), nil
}

// CheckVersionStatus reports whether the cached copy of name is behind the cloud
func (s *Syncer) CheckVersionStatus(ctx context.Context, name string) (*VersionStatus, error) {
	return s.status(ctx, name, s.LocalPath(name))
}

func (s *Syncer) status(ctx context.Context, name, localPath string) (*VersionStatus, error) {
	st := &VersionStatus{Name: name, LocalPath: localPath}

	fi, err := os.Stat(localPath)
	switch {
	case err == nil:
		st.HasLocalCopy = true
		st.LocalModified = fi.ModTime().UTC()
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	info, err := storage.FindByName(ctx, s.client, s.folderID, name)
	switch {
	case err == nil:
		st.CloudExists = true
		st.CloudModified = info.ModifiedAt
		st.FileID = info.ID
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to look up %s: %w", name, err)
	}

	state, err := s.loadState()
	if err != nil {
		return nil, err
	}
	st.LastSynced = state[name]

	if st.CloudExists {
		reference := st.LocalModified
		if !st.LastSynced.IsZero() {
			reference = st.LastSynced
		}
		st.CloudIsNewer = !st.HasLocalCopy ||
			st.CloudModified.Truncate(time.Second).After(reference.Truncate(time.Second))
	}
	return st, nil
}

// Pull downloads name into the cache when it is missing or the cloud copy is newer.
// It returns the local path and whether a download happened.
func (s *Syncer) Pull(ctx context.Context, name string) (string, bool, error) {
	st, err := s.CheckVersionStatus(ctx, name)
	if err != nil {
		return "", false, err
	}
	if !st.CloudExists {
		return "", false, fmt.Errorf("%s: %w", name, storage.ErrNotFound)
	}
	if !st.CloudIsNewer {
		log.Printf("Local copy of %s is up to date (%s)", name, st.LocalModified.Format(time.RFC3339))
		return st.LocalPath, false, nil
	}

	log.Printf("Downloading %s (cloud modified %s)", name, st.CloudModified.Format(time.RFC3339))
	if err := storage.DownloadToFile(ctx, s.client, st.FileID, st.LocalPath); err != nil {
		return "", false, err
	}
	if err := os.Chtimes(st.LocalPath, st.CloudModified, st.CloudModified); err != nil {
		return "", false, fmt.Errorf("failed to set modification time: %w", err)
	}
	if err := s.recordSync(name, st.CloudModified); err != nil {
		return "", false, err
	}
	return st.LocalPath, true, nil
}

// Push uploads db when it has unsaved changes. Unless force is set, it
// refuses with ErrConflict if the cloud copy is newer than the local one.
// It returns whether an upload happened.
func (s *Syncer) Push(ctx context.Context, db Database, force bool) (bool, error) {
	if !db.Modified() && !force {
		log.Printf("No changes to push for %s", filepath.Base(db.Path()))
		return false, nil
	}
	if err := db.Checkpoint(ctx); err != nil {
		return false, err
	}

	name := filepath.Base(db.Path())
	st, err := s.status(ctx, name, db.Path())
	if err != nil {
		return false, err
	}
	if st.CloudIsNewer && st.HasLocalCopy && !force {
		return false, fmt.Errorf("%s (cloud %s, local %s): %w", name,
			st.CloudModified.Format(time.RFC3339), st.LocalModified.Format(time.RFC3339), ErrConflict)
	}

	f, err := os.Open(db.Path())
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", db.Path(), err)
	}
	defer f.Close()

	var info *storage.FileInfo
	if st.CloudExists {
		info, err = s.client.Update(ctx, st.FileID, f)
	} else {
		info, err = s.client.Create(ctx, s.folderID, name, f)
	}
	if err != nil {
		return false, err
	}

	if !info.ModifiedAt.IsZero() {
		if err := os.Chtimes(db.Path(), info.ModifiedAt, info.ModifiedAt); err != nil {
			return false, fmt.Errorf("failed to set modification time: %w", err)
		}
		if err := s.recordSync(name, info.ModifiedAt); err != nil {
			return false, err
		}
	}
	db.ClearModified()
	log.Printf("Pushed %s (%d bytes)", name, info.Size)
	return true, nil
}

// Package storage abstracts the cloud folder that holds shared databases
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when no file matches
var ErrNotFound = errors.New("file not found in cloud storage")

// FileInfo contains metadata about a file in cloud storage
type FileInfo struct {
	ID          string // Provider-specific identifier
	Name        string
	FolderID    string
	IsDir       bool
	Size        int64
	ModifiedAt  time.Time
	ContentHash string // Provider-specific content hash (if available)
}

// Client defines the cloud storage operations used for database sync.
// Files are addressed by provider ID; folders group them.
type Client interface {
	// List returns the entries of a folder
	List(ctx context.Context, folderID string) ([]FileInfo, error)

	// Download retrieves the contents of a file
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)

	// Create uploads a new file into a folder
	Create(ctx context.Context, folderID, name string, content io.Reader) (*FileInfo, error)

	// Update replaces the contents of an existing file
	Update(ctx context.Context, fileID string, content io.Reader) (*FileInfo, error)

	// Delete removes a file
	Delete(ctx context.Context, fileID string) error

	// GetMetadata retrieves file info without downloading content
	GetMetadata(ctx context.Context, fileID string) (*FileInfo, error)
}

// FindByName returns the most recently modified file called name in a folder
func FindByName(ctx context.Context, client Client, folderID, name string) (*FileInfo, error) {
	files, err := client.List(ctx, folderID)
	if err != nil {
		return nil, err
	}
	latest := FindLatest(FilterFiles(files, func(f FileInfo) bool {
		return !f.IsDir && f.Name == name
	}))
	if latest == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return latest, nil
}

// DownloadToFile downloads a file to localPath. The content is written to a
// temporary file next to it and renamed into place once complete.
func DownloadToFile(ctx context.Context, client Client, fileID, localPath string) error {
	reader, err := client.Download(ctx, fileID)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

// FilterFiles filters file list by a predicate function
func FilterFiles(files []FileInfo, predicate func(FileInfo) bool) []FileInfo {
	var filtered []FileInfo
	for _, f := range files {
		if predicate(f) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// IsDatabase reports whether a file looks like a SQLite database
func IsDatabase(f FileInfo) bool {
	name := strings.ToLower(f.Name)
	return !f.IsDir && (strings.HasSuffix(name, ".db") || strings.HasSuffix(name, ".sqlite"))
}

// FindLatest returns the most recently modified file from a list
func FindLatest(files []FileInfo) *FileInfo {
	if len(files) == 0 {
		return nil
	}

	latest := &files[0]
	for i := 1; i < len(files); i++ {
		if files[i].ModifiedAt.After(latest.ModifiedAt) {
			latest = &files[i]
		}
	}
	return latest
}

// Package gdrive implements storage.Client on top of the Google Drive v3 API
package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/storage"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	fileFields     = "id, name, mimeType, modifiedTime, size, md5Checksum, parents"
)

// ErrNoToken is returned when OAuth credentials are configured but no user
// token has been stored yet.
var ErrNoToken = errors.New("no OAuth token stored, run drive-auth first")

// Options selects how the client authenticates
type Options struct {
	// CredentialsFile is a service-account key or an OAuth client secret
	CredentialsFile string
	// ServiceAccount marks CredentialsFile as a service-account key
	ServiceAccount bool
	// TokenFile stores the OAuth user token
	TokenFile string
}

// Client is a Drive-backed storage.Client
type Client struct {
	srv *drive.Service
}

var _ storage.Client = (*Client)(nil)

// NewClient builds a Drive service from the configured credentials
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.CredentialsFile == "" {
		return nil, fmt.Errorf("drive credentials file is not configured")
	}

	if opts.ServiceAccount {
		srv, err := drive.NewService(ctx,
			option.WithCredentialsFile(opts.CredentialsFile),
			option.WithScopes(drive.DriveScope),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create drive service: %w", err)
		}
		log.Printf("Drive client initialised with service account %s", filepath.Base(opts.CredentialsFile))
		return &Client{srv: srv}, nil
	}

	cfg, err := OAuthConfig(opts.CredentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(opts.TokenFile)
	if err != nil {
		return nil, err
	}
	srv, err := drive.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	log.Printf("Drive client initialised with OAuth client %s", filepath.Base(opts.CredentialsFile))
	return &Client{srv: srv}, nil
}

// NewWithService wraps an existing Drive service
func NewWithService(srv *drive.Service) *Client {
	return &Client{srv: srv}
}

// OAuthConfig reads an OAuth client secret file
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret: %w", err)
	}
	return cfg, nil
}

// LoadToken reads a stored OAuth token
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	return tok, nil
}

// SaveToken writes an OAuth token readable only by the owner
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// List returns the non-trashed entries of a folder, following pagination
func (c *Client) List(ctx context.Context, folderID string) ([]storage.FileInfo, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	var files []storage.FileInfo
	pageToken := ""
	for {
		call := c.srv.Files.List().
			Q(q).
			Fields("nextPageToken, files(" + fileFields + ")").
			PageSize(200).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
		}
		for _, f := range resp.Files {
			files = append(files, toFileInfo(f, folderID))
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return files, nil
}

// Download streams file content
func (c *Client) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := c.srv.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, wrapNotFound(fmt.Errorf("failed to download %s: %w", fileID, err), err)
	}
	return resp.Body, nil
}

// Create uploads a new file into a folder
func (c *Client) Create(ctx context.Context, folderID, name string, content io.Reader) (*storage.FileInfo, error) {
	f, err := c.srv.Files.Create(&drive.File{Name: name, Parents: []string{folderID}}).
		Media(content).
		Fields(fileFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	info := toFileInfo(f, folderID)
	return &info, nil
}

// Update replaces the content of an existing file
func (c *Client) Update(ctx context.Context, fileID string, content io.Reader) (*storage.FileInfo, error) {
	f, err := c.srv.Files.Update(fileID, &drive.File{}).
		Media(content).
		Fields(fileFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapNotFound(fmt.Errorf("failed to update %s: %w", fileID, err), err)
	}
	info := toFileInfo(f, "")
	return &info, nil
}

// Delete removes a file
func (c *Client) Delete(ctx context.Context, fileID string) error {
	if err := c.srv.Files.Delete(fileID).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		return wrapNotFound(fmt.Errorf("failed to delete %s: %w", fileID, err), err)
	}
	return nil
}

// GetMetadata fetches file metadata without content
func (c *Client) GetMetadata(ctx context.Context, fileID string) (*storage.FileInfo, error) {
	f, err := c.srv.Files.Get(fileID).Fields(fileFields).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return nil, wrapNotFound(fmt.Errorf("failed to get metadata for %s: %w", fileID, err), err)
	}
	info := toFileInfo(f, "")
	return &info, nil
}

func toFileInfo(f *drive.File, folderID string) storage.FileInfo {
	if folderID == "" && len(f.Parents) > 0 {
		folderID = f.Parents[0]
	}
	modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil {
		modified = time.Time{}
	}
	return storage.FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		FolderID:    folderID,
		IsDir:       f.MimeType == folderMimeType,
		Size:        f.Size,
		ModifiedAt:  modified.UTC(),
		ContentHash: f.Md5Checksum,
	}
}

// wrapNotFound joins storage.ErrNotFound onto errors caused by a 404 response
func wrapNotFound(wrapped, cause error) error {
	var gerr *googleapi.Error
	if errors.As(cause, &gerr) && gerr.Code == http.StatusNotFound {
		return errors.Join(wrapped, storage.ErrNotFound)
	}
	return wrapped
}

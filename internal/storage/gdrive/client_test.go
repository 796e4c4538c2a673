package gdrive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/storage"
)

func mockDriveServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		assert.Contains(t, r.URL.Query().Get("q"), "'folder-1' in parents")
		if r.URL.Query().Get("pageToken") == "" {
			io.WriteString(w, `{"nextPageToken":"p2","files":[
				{"id":"a","name":"wells.db","mimeType":"application/x-sqlite3","modifiedTime":"2024-05-01T12:00:00.000Z","size":"2048","md5Checksum":"abc"}
			]}`)
			return
		}
		io.WriteString(w, `{"files":[
			{"id":"b","name":"archive","mimeType":"application/vnd.google-apps.folder","modifiedTime":"2024-04-01T08:30:00Z"}
		]}`)
	})
	mux.HandleFunc("/files/a", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") == "media" {
			io.WriteString(w, "database bytes")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"a","name":"wells.db","parents":["folder-1"],"modifiedTime":"2024-05-01T12:00:00Z","size":"2048"}`)
	})
	mux.HandleFunc("/files/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404,"message":"File not found: missing."}}`)
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	srv, err := drive.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return NewWithService(srv)
}

func TestClientList(t *testing.T) {
	server := mockDriveServer(t)
	defer server.Close()
	client := newTestClient(t, server)

	files, err := client.List(context.Background(), "folder-1")
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "a", files[0].ID)
	assert.Equal(t, "wells.db", files[0].Name)
	assert.Equal(t, "folder-1", files[0].FolderID)
	assert.Equal(t, int64(2048), files[0].Size)
	assert.Equal(t, "abc", files[0].ContentHash)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), files[0].ModifiedAt)
	assert.False(t, files[0].IsDir)

	assert.True(t, files[1].IsDir)
}

func TestClientMetadataAndDownload(t *testing.T) {
	server := mockDriveServer(t)
	defer server.Close()
	client := newTestClient(t, server)

	info, err := client.GetMetadata(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", info.FolderID)

	body, err := client.Download(context.Background(), "a")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "database bytes", string(data))

	_, err = client.GetMetadata(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "token.json")

	_, err := LoadToken(path)
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	require.NoError(t, SaveToken(path, tok))

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Options{})
	require.Error(t, err)

	_, err = OAuthConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "client secret"))
}

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	dropboxAPIURL     = "https://api.dropboxapi.com/2"
	dropboxContentURL = "https://content.dropboxapi.com/2"
	dropboxFolder     = "/habitvault"
)

// TokenFunc returns an OAuth access token.
type TokenFunc func(ctx context.Context) (string, error)

type DropboxOptions struct {
	Folder     string
	APIURL     string
	ContentURL string
	Token      TokenFunc
	HTTPClient *http.Client
}

// Dropbox stores snapshots in an app folder through the Dropbox HTTP API.
type Dropbox struct {
	folder     string
	apiURL     string
	contentURL string
	token      TokenFunc
	httpClient *http.Client
}

func NewDropbox(opts DropboxOptions) *Dropbox {
	d := &Dropbox{
		folder:     opts.Folder,
		apiURL:     strings.TrimSuffix(opts.APIURL, "/"),
		contentURL: strings.TrimSuffix(opts.ContentURL, "/"),
		token:      opts.Token,
		httpClient: opts.HTTPClient,
	}
	if d.folder == "" {
		d.folder = dropboxFolder
	}
	d.folder = "/" + strings.Trim(d.folder, "/")
	if d.apiURL == "" {
		d.apiURL = dropboxAPIURL
	}
	if d.contentURL == "" {
		d.contentURL = dropboxContentURL
	}
	if d.httpClient == nil {
		d.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return d
}

func (d *Dropbox) Kind() string { return KindDropbox }

type dropboxMetadata struct {
	Tag            string    `json:".tag"`
	Name           string    `json:"name"`
	PathDisplay    string    `json:"path_display"`
	ID             string    `json:"id"`
	ServerModified time.Time `json:"server_modified"`
	Size           int64     `json:"size"`
}

type listFolderResponse struct {
	Entries []dropboxMetadata `json:"entries"`
	Cursor  string            `json:"cursor"`
	HasMore bool              `json:"has_more"`
}

// apiError is a non-200 reply. Dropbox reports missing paths as 409 with a
// "not_found" error summary.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("dropbox API error (status %d): %s", e.Status, e.Body)
}

func (e *apiError) notFound() bool {
	return e.Status == http.StatusConflict && strings.Contains(e.Body, "not_found")
}

func (d *Dropbox) do(ctx context.Context, url string, body io.Reader, header map[string]string) (*http.Response, error) {
	if d.token == nil {
		return nil, fmt.Errorf("no dropbox token configured")
	}
	token, err := d.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, &apiError{Status: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

// rpc posts a JSON argument to an API endpoint and decodes the JSON reply into out.
func (d *Dropbox) rpc(ctx context.Context, endpoint string, arg, out any) error {
	body, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	resp, err := d.do(ctx, d.apiURL+endpoint, bytes.NewReader(body), map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func apiArg(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal api arg: %w", err)
	}
	return string(b), nil
}

func (d *Dropbox) IsAvailable(ctx context.Context) bool {
	var account struct {
		AccountID string `json:"account_id"`
	}
	return d.rpc(ctx, "/users/get_current_account", nil, &account) == nil
}

func (d *Dropbox) Upload(ctx context.Context, name string, data []byte) (string, error) {
	arg, err := apiArg(map[string]any{
		"path":       path.Join(d.folder, path.Base(name)),
		"mode":       "add",
		"autorename": true,
		"mute":       true,
	})
	if err != nil {
		return "", transportError(KindDropbox, "upload", err)
	}
	resp, err := d.do(ctx, d.contentURL+"/files/upload", bytes.NewReader(data), map[string]string{
		"Content-Type":    "application/octet-stream",
		"Dropbox-API-Arg": arg,
	})
	if err != nil {
		return "", transportError(KindDropbox, "upload", err)
	}
	defer resp.Body.Close()

	var meta dropboxMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", transportError(KindDropbox, "upload", fmt.Errorf("failed to decode response: %w", err))
	}
	return meta.ID, nil
}

// List pages through the backup folder. A folder that does not exist yet is empty.
func (d *Dropbox) List(ctx context.Context) ([]FileInfo, error) {
	var page listFolderResponse
	err := d.rpc(ctx, "/files/list_folder", map[string]any{
		"path":            d.folder,
		"recursive":       false,
		"include_deleted": false,
	}, &page)
	if apiErr, ok := err.(*apiError); ok && apiErr.notFound() {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, transportError(KindDropbox, "list", err)
	}

	files := convertEntries(page.Entries)
	for page.HasMore {
		cursor := page.Cursor
		page = listFolderResponse{}
		if err := d.rpc(ctx, "/files/list_folder/continue", map[string]string{"cursor": cursor}, &page); err != nil {
			return nil, transportError(KindDropbox, "list", err)
		}
		files = append(files, convertEntries(page.Entries)...)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Timestamp.After(files[j].Timestamp)
	})
	return files, nil
}

// convertEntries keeps files only. The timestamp comes from the snapshot name
// when it has one, since server_modified changes on re-upload.
func convertEntries(entries []dropboxMetadata) []FileInfo {
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.Tag != "file" {
			continue
		}
		ts, ok := parseSnapshotName(e.Name)
		if !ok {
			ts = e.ServerModified
		}
		out = append(out, FileInfo{ID: e.ID, Name: e.Name, Timestamp: ts, Size: e.Size})
	}
	return out
}

func (d *Dropbox) Download(ctx context.Context, id string) ([]byte, error) {
	arg, err := apiArg(map[string]string{"path": id})
	if err != nil {
		return nil, transportError(KindDropbox, "download", err)
	}
	resp, err := d.do(ctx, d.contentURL+"/files/download", nil, map[string]string{"Dropbox-API-Arg": arg})
	if err != nil {
		return nil, transportError(KindDropbox, "download", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(KindDropbox, "download", err)
	}
	return data, nil
}

func (d *Dropbox) Delete(ctx context.Context, id string) (bool, error) {
	err := d.rpc(ctx, "/files/delete_v2", map[string]string{"path": id}, nil)
	if apiErr, ok := err.(*apiError); ok && apiErr.notFound() {
		return false, nil
	}
	if err != nil {
		return false, transportError(KindDropbox, "delete", err)
	}
	return true, nil
}

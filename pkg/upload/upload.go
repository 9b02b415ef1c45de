package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mchmarny/nftmeta/pkg/net"
	"golang.org/x/sync/errgroup"
)

const (
	// EndpointTemplate is the image API upload URL, formatted with the account id.
	EndpointTemplate = "https://api.cloudflare.com/client/v4/accounts/%s/images/v1"

	idField   = "id"
	fileField = "file"
)

// Result is the outcome of one file upload.
type Result struct {
	File     string `json:"file"`
	ID       string `json:"id"`
	Status   int    `json:"status,omitempty"`
	Body     string `json:"body,omitempty"`
	Error    string `json:"error,omitempty"`
	Uploaded bool   `json:"uploaded"`
}

// Summary is the outcome of a directory upload.
type Summary struct {
	Dir      string    `json:"dir"`
	Files    int       `json:"files"`
	Uploaded int       `json:"uploaded"`
	Failed   int       `json:"failed"`
	Duration string    `json:"duration"`
	Results  []*Result `json:"results,omitempty"`
}

// Uploader posts image files to the image API.
type Uploader struct {
	client   *http.Client
	endpoint string
	prefix   string
	parallel int
	logger   *slog.Logger
}

type Option func(*Uploader)

// WithEndpoint overrides the upload URL.
func WithEndpoint(url string) Option {
	return func(u *Uploader) {
		u.endpoint = url
	}
}

// WithParallel sets how many uploads run at once. Values below 1 mean 1.
func WithParallel(n int) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.parallel = n
		}
	}
}

// New returns an uploader for accountID. Image ids are prefix followed by the
// file name up to its first dot.
func New(client *http.Client, accountID, prefix string, opts ...Option) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}

	u := &Uploader{
		client:   client,
		prefix:   prefix,
		parallel: 1,
		logger:   slog.Default().WithGroup("upload"),
	}
	for _, o := range opts {
		o(u)
	}

	if u.endpoint == "" {
		if accountID == "" {
			return nil, errors.New("account id is required")
		}
		u.endpoint = fmt.Sprintf(EndpointTemplate, accountID)
	}
	return u, nil
}

// ImageID returns the id under which the file name is uploaded.
func (u *Uploader) ImageID(name string) string {
	base, _, _ := strings.Cut(name, ".")
	return u.prefix + base
}

// UploadDir uploads every regular file in dir. Failed uploads are logged and
// reported in the summary; only an unreadable dir returns an error.
func (u *Uploader) UploadDir(ctx context.Context, dir string) (*Summary, error) {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil {
			u.logger.Error("skipping file", "file", e.Name(), "error", err)
			continue
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
	}

	results := make([]*Result, len(files))
	var g errgroup.Group
	g.SetLimit(u.parallel)
	for i, path := range files {
		g.Go(func() error {
			results[i] = u.UploadFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	s := &Summary{
		Dir:     dir,
		Files:   len(files),
		Results: results,
	}
	for _, r := range results {
		if r.Uploaded {
			s.Uploaded++
		} else {
			s.Failed++
		}
	}
	s.Duration = time.Since(start).String()

	return s, nil
}

// UploadFile posts a single file. Errors are logged and returned in the result.
func (u *Uploader) UploadFile(ctx context.Context, path string) *Result {
	name := filepath.Base(path)
	r := &Result{
		File: name,
		ID:   u.ImageID(name),
	}

	status, body, err := u.post(ctx, path, r.ID)
	r.Status = status
	r.Body = body
	switch {
	case err != nil:
		r.Error = err.Error()
		u.logger.Error("upload failed", "file", name, "error", err)
	case status != http.StatusOK:
		u.logger.Error(fmt.Sprintf("%d %s", status, body), "file", name)
	default:
		r.Uploaded = true
		u.logger.Info(fmt.Sprintf("%d %s uploaded", status, name))
	}
	return r
}

func (u *Uploader) post(ctx context.Context, path, id string) (int, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField(idField, id); err != nil {
		return 0, "", fmt.Errorf("writing id field: %w", err)
	}
	part, err := w.CreateFormFile(fileField, filepath.Base(path))
	if err != nil {
		return 0, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, "", fmt.Errorf("copying file: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &buf)
	if err != nil {
		return 0, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("posting file: %w", err)
	}
	defer resp.Body.Close()
	net.PrintHTTPResponse(resp)

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, string(b), nil
}

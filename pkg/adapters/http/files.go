package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/ports"
)

// Download fetches req.URL into the download directory.
// Non-2xx responses fail with *domain.HTTPError.
func (c *Client) Download(ctx context.Context, req ports.DownloadRequest) (*ports.DownloadResult, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolve(req.URL, nil)
	if err != nil {
		return nil, err
	}
	payload, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	c.applyHeaders(hreq, req.Headers)

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer hresp.Body.Close()

	if hresp.StatusCode < 200 || hresp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(hresp.Body, maxBodySize))
		return nil, &domain.HTTPError{Method: method, URL: req.URL, StatusCode: hresp.StatusCode, Body: decodeBody(data, hresp.Header.Get("Content-Type"))}
	}

	name := downloadName(req.Filename, hresp.Header.Get("Content-Disposition"), hreq.URL.Path)
	dir := c.downloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	size, err := io.Copy(f, hresp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	c.logger.Info("file downloaded", "url", target, "path", dest, "size", size)
	return &ports.DownloadResult{Filename: name, Path: dest, Size: size}, nil
}

// downloadName picks the explicit name, then the Content-Disposition
// filename, then the last URL segment. Directory parts are dropped.
func downloadName(explicit, disposition, urlPath string) string {
	name := explicit
	if name == "" && disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			name = params["filename"]
		}
	}
	if name == "" {
		name = path.Base(urlPath)
	}
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == "" {
		name = "download"
	}
	return name
}

// Upload posts a multipart form with one file part plus req.Fields.
func (c *Client) Upload(ctx context.Context, req ports.UploadRequest) (*ports.HTTPResponse, error) {
	content, filename, err := uploadContent(req)
	if err != nil {
		return nil, err
	}
	field := req.Field
	if field == "" {
		field = "file"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range req.Fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %q: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	target, err := c.resolve(req.URL, nil)
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	hreq.Header.Set("Content-Type", mw.FormDataContentType())
	hreq.Header.Set("Accept", "application/json")
	c.applyHeaders(hreq, req.Headers)

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", target, err)
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(hresp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &ports.HTTPResponse{
		StatusCode: hresp.StatusCode,
		Header:     hresp.Header,
		Body:       decodeBody(data, hresp.Header.Get("Content-Type")),
	}, nil
}

func uploadContent(req ports.UploadRequest) ([]byte, string, error) {
	filename := req.Filename
	if req.Path != "" {
		data, err := os.ReadFile(req.Path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read upload: %w", err)
		}
		if filename == "" {
			filename = filepath.Base(req.Path)
		}
		return data, filename, nil
	}
	if filename == "" {
		filename = "upload"
	}
	switch v := req.Content.(type) {
	case []byte:
		return v, filename, nil
	case string:
		return []byte(v), filename, nil
	case nil:
		return nil, "", fmt.Errorf("upload needs a path or content")
	default:
		return nil, "", fmt.Errorf("unsupported upload content %T", v)
	}
}

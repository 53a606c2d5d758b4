// Package fetcher retrieves image bytes from a remote URL with hard time and
// size bounds, producing the same byte-buffer contract a direct upload has.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"snapboard/internal/apperr"
)

const (
	userAgent       = "SnapBoard/1.0"
	fallbackName    = "downloaded-image.jpg"
	defaultMimeType = "image/jpeg"
)

// Remote is the outcome of a successful fetch.
type Remote struct {
	Data              []byte
	MimeType          string
	SuggestedFilename string
}

type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func New(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads rawURL. A malformed URL is a validation failure; every
// network-level problem (DNS, timeout, non-2xx status, oversized body)
// collapses into the single generic apperr.ErrFetchFailed. The concrete
// cause is only logged.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Remote, error) {
	const op = "fetcher.Fetch"

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validationf("invalid image URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		slog.Warn("building fetch request failed", "op", op, "url", rawURL, "error", err)
		return nil, apperr.ErrFetchFailed
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Warn("remote fetch failed", "op", op, "url", rawURL, "error", err)
		return nil, apperr.ErrFetchFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("remote fetch returned non-2xx status", "op", op, "url", rawURL, "status", resp.StatusCode)
		return nil, apperr.ErrFetchFailed
	}

	// Read one byte past the ceiling so an oversized body is detected and
	// rejected instead of silently truncated.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		slog.Warn("reading remote body failed", "op", op, "url", rawURL, "error", err)
		return nil, apperr.ErrFetchFailed
	}
	if int64(len(data)) > f.maxBytes {
		slog.Warn("remote image exceeds size ceiling", "op", op, "url", rawURL, "limit", f.maxBytes)
		return nil, apperr.ErrFetchFailed
	}

	return &Remote{
		Data:              data,
		MimeType:          mimeFromHeader(resp.Header.Get("Content-Type")),
		SuggestedFilename: filenameFromURL(u),
	}, nil
}

func mimeFromHeader(contentType string) string {
	mime := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if mime == "" {
		return defaultMimeType
	}
	return mime
}

func filenameFromURL(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return fallbackName
	}
	return base
}

// String implements fmt.Stringer for debug logging of fetch results without
// dumping the payload.
func (r *Remote) String() string {
	return fmt.Sprintf("remote{%s %s %dB}", r.SuggestedFilename, r.MimeType, len(r.Data))
}

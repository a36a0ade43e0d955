package grib1

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// Response body size limit. Regional GRIB1 model-output files run to a few
// hundred MB at most; the cap prevents OOM if a misbehaving server sends a
// huge body.
const maxFetchBytes = 512 << 20 // 512 MB

// ArchiveClient fetches GRIB1 files from an HTTP model-output archive.
type ArchiveClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewArchiveClient returns a client with sensible defaults.
func NewArchiveClient(baseURL string) *ArchiveClient {
	return &ArchiveClient{
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Search fetches path from the archive and runs the search engine over the
// response body as it streams; the whole file is never held in memory unless
// a single message requires it. ctx cancels the fetch and the scan.
func (c *ArchiveClient) Search(ctx context.Context, path string, criteria []Criterion, mode Mode) ([]Result, error) {
	resp, err := c.get(ctx, path, 0, math.MaxInt64)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return NewReader(io.LimitReader(resp.Body, maxFetchBytes)).Search(criteria, mode)
}

// FetchRange does an HTTP range request and returns the bytes, for callers
// that already know a message's byte span (for example from a prior
// ExtractRaw search over the same file).
func (c *ArchiveClient) FetchRange(ctx context.Context, path string, start, end int64) ([]byte, error) {
	resp, err := c.get(ctx, path, start, end)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
}

// get issues the request with ctx propagated and the Range header set unless
// the span covers the whole file. Status is checked before anyone reads the
// body.
func (c *ArchiveClient) get(ctx context.Context, path string, start, end int64) (*http.Response, error) {
	url := c.BaseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	if start > 0 || end != math.MaxInt64 {
		if end == math.MaxInt64 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
		} else {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
		}
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, url)
	}
	return resp, nil
}

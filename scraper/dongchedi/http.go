package dongchedi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPFetcher requests rank pages directly with browser-like headers.
type HTTPFetcher struct {
	rankURL  string
	rankType string
	client   *http.Client
}

// NewHTTPFetcher creates a fetcher with a 10s per-request timeout.
func NewHTTPFetcher(rankURL, rankType string) *HTTPFetcher {
	return &HTTPFetcher{
		rankURL:  rankURL,
		rankType: rankType,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchPage performs one GET; any non-200 status is an error.
func (f *HTTPFetcher) FetchPage(ctx context.Context, page int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL(f.rankURL, f.rankType, page), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", salesPageURL)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get page %d: status %d", page, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Close is a no-op; it exists to satisfy PageFetcher.
func (f *HTTPFetcher) Close() error { return nil }

func pageURL(rankURL, rankType string, page int) string {
	q := url.Values{}
	q.Set("type", rankType)
	q.Set("month", "")
	q.Set("page", strconv.Itoa(page))
	return rankURL + "?" + q.Encode()
}

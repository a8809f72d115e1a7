package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"net/url"
	"slices"
	"time"

	"golang.org/x/net/html/charset"

	apperr "autoalert/listingworker/pkg/errors"
	"autoalert/listingworker/services/cache"
)

// Browser-like header pools, rotated per request
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}
)

// HTTPFetcher downloads listing pages. On a 429-class answer the host is
// blocked in the cache for blockTime so later fetches of the same source
// short-circuit instead of hammering it.
type HTTPFetcher struct {
	client    *http.Client
	cache     cache.CacheService
	blockTime time.Duration
	retry     RetryPolicy
}

// NewHTTPFetcher creates a fetcher with the given block cache and retry policy
func NewHTTPFetcher(cacheSvc cache.CacheService, retry RetryPolicy) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:     cacheSvc,
		blockTime: 500 * time.Second,
		retry:     retry,
	}
}

// Fetch performs an HTTP GET with randomized headers, converts the body to
// UTF-8 and returns it as an io.Reader. Transient failures are retried per
// the configured policy; 4xx-class answers surface immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (io.Reader, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, apperr.NewFetch("", "malformed URL "+rawURL, err, false)
	}
	host := u.Host

	blockKey := "block:" + host
	if f.cache != nil {
		if _, err := f.cache.Get(blockKey); err == nil {
			return nil, apperr.NewRateLimit(host, f.blockTime)
		}
	}

	var body io.Reader
	err = f.retry.Do(ctx, func() error {
		r, ferr := f.fetchOnce(ctx, rawURL, host, blockKey)
		if ferr != nil {
			return ferr
		}
		body = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL, host, blockKey string) (io.Reader, error) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperr.NewFetch(host, "failed to create request", err, false)
	}

	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "sk,cs;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.NewFetch(host, "failed to fetch URL", err, true)
	}
	defer resp.Body.Close()

	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		if f.cache != nil {
			f.cache.Set(blockKey, []byte(fmt.Sprintf("%d", f.blockTime/time.Second)), f.blockTime)
		}
		return nil, apperr.NewRateLimit(host, f.blockTime)
	}

	if resp.StatusCode >= 500 {
		return nil, apperr.NewFetch(host, fmt.Sprintf("server error status %d", resp.StatusCode), nil, true)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.NewFetch(host, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil, false)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.NewFetch(host, "failed to read response body", err, true)
	}

	// Legacy sources still serve windows-1250 era encodings
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, apperr.NewFetch(host, "failed to decode body to UTF-8", err, false)
	}

	return &buf, nil
}

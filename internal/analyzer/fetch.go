package analyzer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/podlove/outliner/internal/cache"
)

// metadataCacheTTL bounds how long a fetched URL's metadata is reused
// without a fresh request. Outline content rarely points at pages whose
// title changes minute to minute, so this trades a little staleness for
// skipping a network round trip on every re-analysis of an unedited link.
const metadataCacheTTL = 10 * time.Minute

// hostRateLimit caps outgoing metadata fetches per host, the same role
// internal/api/client.go's single limiter plays for the Linear API —
// scoped per host here since the analyzer fans out to arbitrary sites
// instead of one API.
const hostRateLimit = rate.Limit(2) // requests/sec
const hostBurst = 4

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Fetcher retrieves lightweight metadata (currently: page title) for a URL,
// rate limited per host so a burst of links to the same domain in one
// node's content doesn't trip that domain's abuse detection.
type Fetcher struct {
	client *http.Client
	cache  *cache.Cache[map[string]any]

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher builds a Fetcher. client may be nil to use http.DefaultClient.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:   client,
		cache:    cache.New[map[string]any](metadataCacheTTL, 10000),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Close releases the metadata cache's background cleanup goroutine.
func (f *Fetcher) Close() { f.cache.Stop() }

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(hostRateLimit, hostBurst)
		f.limiters[host] = l
	}
	return l
}

// FetchMetadata retrieves a title for rawURL, subject to ctx's deadline
// (the analyzer applies its per-URL timeout here). A fetch failure is
// reported as an error but is never fatal to the enclosing job — analyzer
// failures are always recoverable; the caller logs and moves on to the
// next URL.
func (f *Fetcher) FetchMetadata(ctx context.Context, rawURL string) (map[string]any, error) {
	if meta, ok := f.cache.Get(rawURL); ok {
		return meta, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	if err := f.limiterFor(parsed.Host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return map[string]any{"status_code": resp.StatusCode}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return map[string]any{"status_code": resp.StatusCode}, nil
	}

	meta := map[string]any{"status_code": resp.StatusCode}
	if m := titlePattern.FindSubmatch(body); m != nil {
		meta["title"] = string(m[1])
	}
	f.cache.Set(rawURL, meta)
	return meta, nil
}

package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent = "jobfeed-bot/1.0"
	DefaultTimeout   = 15 * time.Second
)

// ErrRobotsDisallowed marks URLs blocked by the host's robots.txt.
var ErrRobotsDisallowed = errors.New("blocked by robots.txt")

// Fetcher performs a single GET and returns the response body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetchError is returned for transport failures, timeouts, and non-2xx responses.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
	// RatePerSecond limits requests per host. Zero disables limiting.
	RatePerSecond float64
	RespectRobots bool
}

// CollyFetcher wraps Colly for bounded, non-retrying page fetches.
type CollyFetcher struct {
	userAgent string
	timeout   time.Duration
	limit     rate.Limit
	robots    *robotsCache

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

func NewCollyFetcher(opts Options) *CollyFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	f := &CollyFetcher{
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		limit:     limit,
		hosts:     make(map[string]*rate.Limiter),
	}
	if opts.RespectRobots {
		f.robots = newRobotsCache(opts.UserAgent)
	}
	return f
}

func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	if f.robots != nil && !f.robots.allowed(ctx, f, target) {
		return nil, &FetchError{URL: target, Err: ErrRobotsDisallowed}
	}

	if err := f.limiterFor(hostKey(target)).Wait(ctx); err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	start := time.Now()
	body, status, err := f.fetchOnce(ctx, target)
	if err != nil {
		slog.Warn("fetch failed", "url", target, "status", status, "error", err)
		return nil, &FetchError{URL: target, Status: status, Err: err}
	}
	slog.Info("fetch ok", "url", target, "status", status, "bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}

func (f *CollyFetcher) fetchOnce(ctx context.Context, target string) ([]byte, int, error) {
	c := f.newCollector()

	var (
		body   []byte
		status int
		reqErr error
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	collyCtx := colly.NewContext()
	collyCtx.Put("ctx", ctx)

	if err := c.Request(http.MethodGet, target, nil, collyCtx, nil); err != nil {
		if ctx.Err() != nil {
			return nil, status, ctx.Err()
		}
		return nil, status, err
	}
	if reqErr != nil {
		return nil, status, reqErr
	}
	if status == 0 && ctx.Err() != nil {
		return nil, 0, ctx.Err()
	}
	if status < 200 || status > 299 {
		return nil, status, fmt.Errorf("unexpected status %d", status)
	}
	return body, status, nil
}

func (f *CollyFetcher) newCollector() *colly.Collector {
	c := colly.NewCollector(colly.UserAgent(f.userAgent))
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(f.timeout)

	c.OnRequest(func(r *colly.Request) {
		ctx := context.Background()
		if v := r.Ctx.GetAny("ctx"); v != nil {
			if reqCtx, ok := v.(context.Context); ok {
				ctx = reqCtx
			}
		}
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	return c
}

func (f *CollyFetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.hosts[host]; ok {
		return l
	}
	burst := 1
	if f.limit == rate.Inf {
		burst = 0
	}
	l := rate.NewLimiter(f.limit, burst)
	f.hosts[host] = l
	return l
}

func normalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	return host
}

func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "default"
	}
	return normalizeHost(u.Hostname())
}

// SleepWithContext waits for d or until ctx is done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

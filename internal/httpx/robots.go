package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsCache keeps one parsed robots.txt per host. Hosts whose robots.txt
// cannot be fetched are treated as allow-all.
type robotsCache struct {
	ua string

	mu   sync.Mutex
	data map[string]*robotstxt.RobotsData
}

func newRobotsCache(userAgent string) *robotsCache {
	return &robotsCache{
		ua:   userAgent,
		data: map[string]*robotstxt.RobotsData{},
	}
}

func (r *robotsCache) allowed(ctx context.Context, f *CollyFetcher, target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return true
	}
	data := r.robotsFor(ctx, f, u)
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, r.ua)
}

func (r *robotsCache) robotsFor(ctx context.Context, f *CollyFetcher, u *url.URL) *robotstxt.RobotsData {
	host := u.Host
	r.mu.Lock()
	if data, ok := r.data[host]; ok {
		r.mu.Unlock()
		return data
	}
	r.mu.Unlock()

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	body, status, err := f.fetchOnce(ctx, robotsURL)

	var data *robotstxt.RobotsData
	switch {
	case err == nil:
		data, err = robotstxt.FromStatusAndBytes(status, body)
		if err != nil {
			slog.Warn("robots.txt parse failed", "url", robotsURL, "error", err)
			data = nil
		}
	case status >= 400 && status < 500:
		// No robots.txt means everything is allowed.
		data, _ = robotstxt.FromStatusAndBytes(status, nil)
	default:
		if !errors.Is(err, context.Canceled) {
			slog.Debug("robots.txt unavailable, failing open", "url", robotsURL, "error", err)
		}
		return nil
	}

	r.mu.Lock()
	r.data[host] = data
	r.mu.Unlock()
	return data
}

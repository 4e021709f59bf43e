package discovery

import (
	"context"
	"net/http"
	"sync"

	"github.com/baxromumarov/jobfeed/internal/httpx"
)

// stubFetcher serves canned bodies by URL and records every request.
type stubFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	failed map[string]int
	calls  []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{pages: map[string]string{}, failed: map[string]int{}}
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if status, ok := f.failed[rawURL]; ok {
		return nil, &httpx.FetchError{URL: rawURL, Status: status}
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, &httpx.FetchError{URL: rawURL, Status: http.StatusNotFound}
	}
	return []byte(body), nil
}

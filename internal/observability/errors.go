package observability

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/baxromumarov/jobfeed/internal/httpx"
	"github.com/baxromumarov/jobfeed/internal/store"
)

const (
	ErrorNetwork   = "network"
	ErrorTimeout   = "timeout"
	ErrorStatus    = "status"
	ErrorRobots    = "robots"
	ErrorParsing   = "parsing"
	ErrorRateLimit = "rate_limit"
	ErrorConflict  = "conflict"
	ErrorStore     = "store"
	ErrorUnknown   = "unknown"
)

func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	if errors.Is(err, httpx.ErrRobotsDisallowed) {
		return ErrorRobots
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.Status == http.StatusTooManyRequests:
			return ErrorRateLimit
		case fe.Status != 0:
			return ErrorStatus
		case strings.Contains(strings.ToLower(fe.Error()), "timeout"):
			return ErrorTimeout
		default:
			return ErrorNetwork
		}
	}
	return ErrorUnknown
}

func ClassifyStoreError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	if errors.Is(err, store.ErrConflict) {
		return ErrorConflict
	}
	return ErrorStore
}

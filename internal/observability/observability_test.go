package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/baxromumarov/jobfeed/internal/httpx"
	"github.com/baxromumarov/jobfeed/internal/store"
)

func TestClassifyFetchError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ErrorUnknown},
		{"robots", &httpx.FetchError{URL: "u", Err: httpx.ErrRobotsDisallowed}, ErrorRobots},
		{"deadline", &httpx.FetchError{URL: "u", Err: context.DeadlineExceeded}, ErrorTimeout},
		{"too many requests", &httpx.FetchError{URL: "u", Status: http.StatusTooManyRequests}, ErrorRateLimit},
		{"not found", &httpx.FetchError{URL: "u", Status: http.StatusNotFound}, ErrorStatus},
		{"transport", &httpx.FetchError{URL: "u", Err: errors.New("connection refused")}, ErrorNetwork},
		{"other", errors.New("boom"), ErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFetchError(tt.err))
		})
	}
}

func TestClassifyStoreError(t *testing.T) {
	assert.Equal(t, ErrorConflict, ClassifyStoreError(fmt.Errorf("insert: %w", store.ErrConflict)))
	assert.Equal(t, ErrorStore, ClassifyStoreError(errors.New("disk full")))
}

func TestSnapshot(t *testing.T) {
	Reset()
	IncPagesFetched()
	IncPagesFetched()
	AddRecordsExtracted(5)
	IncRecordsSkipped()
	AddJobsCreated(3)
	IncRunStarted()
	IncRunSkipped()
	ObserveRunDuration(2)
	ObserveRunDuration(4)
	IncError(ErrorStatus, "fetcher")
	IncError("", "")

	s := Snapshot()
	assert.Equal(t, uint64(2), s.PagesFetched)
	assert.Equal(t, uint64(5), s.RecordsExtracted)
	assert.Equal(t, uint64(1), s.RecordsSkipped)
	assert.Equal(t, uint64(3), s.JobsCreated)
	assert.Equal(t, uint64(1), s.RunsStarted)
	assert.Equal(t, uint64(1), s.RunsSkipped)
	assert.Equal(t, uint64(2), s.ErrorsTotal)
	assert.InDelta(t, 3.0, s.RunSecondsAvg, 0.0001)
	assert.Equal(t, uint64(1), s.ErrorsByType[ErrorStatus])
	assert.Equal(t, uint64(1), s.ErrorsByType[ErrorUnknown])
	assert.Equal(t, uint64(1), s.ErrorsByComponent["unknown"])

	Reset()
	assert.Zero(t, Snapshot().PagesFetched)
}

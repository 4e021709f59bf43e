package observability

import (
	"sync"
	"sync/atomic"
)

type StatsSnapshot struct {
	PagesFetched      uint64            `json:"pages_fetched"`
	RecordsExtracted  uint64            `json:"records_extracted"`
	RecordsSkipped    uint64            `json:"records_skipped"`
	JobsCreated       uint64            `json:"jobs_created"`
	RunsStarted       uint64            `json:"runs_started"`
	RunsSkipped       uint64            `json:"runs_skipped"`
	RunsFailed        uint64            `json:"runs_failed"`
	ErrorsTotal       uint64            `json:"errors_total"`
	RunSecondsAvg     float64           `json:"run_seconds_avg"`
	ErrorsByType      map[string]uint64 `json:"errors_by_type,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

var (
	pagesFetched     uint64
	recordsExtracted uint64
	recordsSkipped   uint64
	jobsCreated      uint64
	runsStarted      uint64
	runsSkipped      uint64
	runsFailed       uint64
	errorsTotal      uint64

	runCount uint64
	runNanos uint64

	statsMu           sync.Mutex
	errorsByType      = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
)

func IncPagesFetched() {
	atomic.AddUint64(&pagesFetched, 1)
}

func AddRecordsExtracted(n int) {
	if n > 0 {
		atomic.AddUint64(&recordsExtracted, uint64(n))
	}
}

func IncRecordsSkipped() {
	atomic.AddUint64(&recordsSkipped, 1)
}

func AddJobsCreated(n int) {
	if n > 0 {
		atomic.AddUint64(&jobsCreated, uint64(n))
	}
}

func IncRunStarted() {
	atomic.AddUint64(&runsStarted, 1)
}

func IncRunSkipped() {
	atomic.AddUint64(&runsSkipped, 1)
}

func IncRunFailed() {
	atomic.AddUint64(&runsFailed, 1)
}

func ObserveRunDuration(seconds float64) {
	if seconds <= 0 {
		return
	}
	atomic.AddUint64(&runCount, 1)
	atomic.AddUint64(&runNanos, uint64(seconds*1e9))
}

func IncError(errType, component string) {
	if errType == "" {
		errType = ErrorUnknown
	}
	if component == "" {
		component = "unknown"
	}
	atomic.AddUint64(&errorsTotal, 1)
	statsMu.Lock()
	errorsByType[errType]++
	errorsByComponent[component]++
	statsMu.Unlock()
}

func Snapshot() StatsSnapshot {
	statsMu.Lock()
	errorsTypeCopy := copyMap(errorsByType)
	errorsComponentCopy := copyMap(errorsByComponent)
	statsMu.Unlock()

	count := atomic.LoadUint64(&runCount)
	avg := 0.0
	if count > 0 {
		avg = float64(atomic.LoadUint64(&runNanos)) / float64(count) / 1e9
	}

	return StatsSnapshot{
		PagesFetched:      atomic.LoadUint64(&pagesFetched),
		RecordsExtracted:  atomic.LoadUint64(&recordsExtracted),
		RecordsSkipped:    atomic.LoadUint64(&recordsSkipped),
		JobsCreated:       atomic.LoadUint64(&jobsCreated),
		RunsStarted:       atomic.LoadUint64(&runsStarted),
		RunsSkipped:       atomic.LoadUint64(&runsSkipped),
		RunsFailed:        atomic.LoadUint64(&runsFailed),
		ErrorsTotal:       atomic.LoadUint64(&errorsTotal),
		RunSecondsAvg:     avg,
		ErrorsByType:      errorsTypeCopy,
		ErrorsByComponent: errorsComponentCopy,
	}
}

// Reset zeroes every counter.
func Reset() {
	for _, p := range []*uint64{&pagesFetched, &recordsExtracted, &recordsSkipped, &jobsCreated,
		&runsStarted, &runsSkipped, &runsFailed, &errorsTotal, &runCount, &runNanos} {
		atomic.StoreUint64(p, 0)
	}
	statsMu.Lock()
	errorsByType = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
	statsMu.Unlock()
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

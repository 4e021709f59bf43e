package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/baxromumarov/jobfeed/internal/lock"
	"github.com/baxromumarov/jobfeed/internal/mocks"
	"github.com/baxromumarov/jobfeed/internal/store"
)

func TestGetListingsBootstrapsEmptyStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()

	var calls []RunLimits
	runner := funcRunner(func(ctx context.Context, limits RunLimits) (RunResult, error) {
		calls = append(calls, limits)
		_, err := mem.Create(ctx, store.Job{Source: "boards", ExternalID: "boot-1", Title: "Bootstrapped"})
		return RunResult{Created: 1}, err
	})
	sched := NewScheduler(runner, lock.NewLocal(), SchedulerConfig{Limits: RunLimits{Pages: 10, SitemapCount: 100}})
	svc := NewListingService(mem, "boards", sched, RunLimits{Pages: 2, SitemapCount: 20}, 50)

	jobs, err := svc.GetListings(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "boot-1", jobs[0].ExternalID)
	assert.Equal(t, []RunLimits{{Pages: 2, SitemapCount: 20}}, calls)

	// Non-empty store: no second scrape.
	_, err = svc.GetListings(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestGetListingsFilteredDoesNotBootstrap(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockJobStore(ctrl)
	ctx := context.Background()

	mockStore.EXPECT().
		FindMany(ctx, store.Filter{Source: "boards", Company: "acme"}, store.SortRecent, 50).
		Return(nil, nil)

	runner := funcRunner(func(context.Context, RunLimits) (RunResult, error) {
		t.Fatal("bootstrap must not run for filtered reads")
		return RunResult{}, nil
	})
	svc := NewListingService(mockStore, "boards", NewScheduler(runner, lock.NewLocal(), SchedulerConfig{}), RunLimits{Pages: 2}, 50)

	jobs, err := svc.GetListings(ctx, store.Filter{Source: "ignored", Company: "acme"})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestGetListingsLockBusyReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	l := lock.NewLocal()
	ok, _ := l.TryAcquire(ctx)
	require.True(t, ok)

	runner := funcRunner(func(context.Context, RunLimits) (RunResult, error) {
		t.Fatal("bootstrap must not run while the lock is held")
		return RunResult{}, nil
	})
	svc := NewListingService(store.NewMemoryStore(), "boards", NewScheduler(runner, l, SchedulerConfig{}), RunLimits{Pages: 2}, 50)

	jobs, err := svc.GetListings(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

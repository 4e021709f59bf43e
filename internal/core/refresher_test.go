package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/baxromumarov/jobfeed/internal/mocks"
	"github.com/baxromumarov/jobfeed/internal/scraper"
	"github.com/baxromumarov/jobfeed/internal/store"
)

func testRecords(ids ...string) []scraper.Record {
	out := make([]scraper.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, scraper.Record{
			ExternalID: id,
			URL:        "https://boards.example/jobs/" + id,
			Title:      "Role " + id,
			Company:    "Acme",
			Location:   "Remote",
		})
	}
	return out
}

func TestRefreshCountsInsertErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockJobStore(ctrl)
	ctx := context.Background()

	gomock.InOrder(
		mockStore.EXPECT().DeleteMany(gomock.Any(), store.Filter{Source: "boards"}).Return(int64(4), nil),
		mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(store.Job{ID: 1}, nil),
		mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(store.Job{}, fmt.Errorf("create: %w", store.ErrConflict)),
		mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(store.Job{}, errors.New("connection reset")),
		mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(store.Job{ID: 4}, nil),
	)

	res, err := NewRefresher(mockStore, RefreshReplace).Refresh(ctx, "boards", testRecords("a", "b", "c", "d"))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Errors)
	assert.Equal(t, int64(4), res.Deleted)
	assert.LessOrEqual(t, res.Created+res.Errors, res.Processed)
}

func TestRefreshContinuesAfterDeleteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockJobStore(ctrl)
	ctx := context.Background()

	mockStore.EXPECT().DeleteMany(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("db down"))
	mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job store.Job) (store.Job, error) {
		assert.Equal(t, "boards", job.Source)
		return job, nil
	}).Times(2)

	res, err := NewRefresher(mockStore, RefreshReplace).Refresh(ctx, "boards", testRecords("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Errors)
	assert.Zero(t, res.Deleted)
}

func TestRefreshReplacesSourceOnly(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	for _, id := range []string{"old-1", "old-2"} {
		_, err := mem.Create(ctx, store.Job{Source: "boards", ExternalID: id})
		require.NoError(t, err)
	}
	_, err := mem.Create(ctx, store.Job{Source: "other", ExternalID: "x"})
	require.NoError(t, err)

	// Sweep mode falls back to replace on stores without transactional support.
	res, err := NewRefresher(mem, RefreshSweep).Refresh(ctx, "boards", testRecords("new-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Deleted)
	assert.Equal(t, 1, res.Created)

	jobs, err := mem.FindMany(ctx, store.Filter{}, store.SortRecent, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}

type replacingStore struct {
	*store.MemoryStore
	got    []store.Job
	result store.ReplaceResult
	err    error
}

func (s *replacingStore) ReplaceSource(_ context.Context, _ string, jobs []store.Job) (store.ReplaceResult, error) {
	s.got = jobs
	return s.result, s.err
}

func TestRefreshSweepUsesReplacer(t *testing.T) {
	ctx := context.Background()
	rs := &replacingStore{
		MemoryStore: store.NewMemoryStore(),
		result:      store.ReplaceResult{Upserted: 2, Failed: 1, Deleted: 5},
	}

	res, err := NewRefresher(rs, RefreshSweep).Refresh(ctx, "boards", testRecords("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, RunResult{Created: 2, Errors: 1, Processed: 3, Deleted: 5}, res)
	require.Len(t, rs.got, 3)
	assert.Equal(t, "boards", rs.got[0].Source)

	rs.err = errors.New("tx aborted")
	_, err = NewRefresher(rs, RefreshSweep).Refresh(ctx, "boards", testRecords("a"))
	assert.Error(t, err)
}

// cancelOnDelete cancels the caller's context as soon as the delete has run.
type cancelOnDelete struct {
	store.JobStore
	cancel context.CancelFunc
}

func (s *cancelOnDelete) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	n, err := s.JobStore.DeleteMany(ctx, filter)
	s.cancel()
	return n, err
}

func TestRefreshCompletesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, store.DriverSQLite, ":memory:", true)
	require.NoError(t, err)
	defer db.Close()

	for _, id := range []string{"old-1", "old-2", "old-3"} {
		_, err := db.Create(ctx, store.Job{Source: "boards", ExternalID: id, URL: "https://boards.example/jobs/" + id})
		require.NoError(t, err)
	}

	wrapped := &cancelOnDelete{JobStore: db, cancel: cancel}
	res, err := NewRefresher(wrapped, RefreshReplace).Refresh(ctx, "boards", testRecords("a", "b", "c"))
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.Equal(t, int64(3), res.Deleted)
	assert.Equal(t, 3, res.Created)
	assert.Zero(t, res.Errors)

	jobs, err := db.FindMany(context.Background(), store.Filter{Source: "boards"}, store.SortRecent, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

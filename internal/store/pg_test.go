package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPgStore connects to TEST_PG_DSN and skips when it is unset or
// unreachable.
func newTestPgStore(t *testing.T) *PgStore {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	s, err := NewPgStore(context.Background(), dsn)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	require.NoError(t, s.RunMigrations(context.Background()))
	t.Cleanup(func() {
		s.DeleteMany(context.Background(), Filter{Source: "pg-test"})
		s.Close()
	})
	return s
}

func TestPgStoreReplaceSource(t *testing.T) {
	s := newTestPgStore(t)
	ctx := context.Background()

	for _, id := range []string{"keep", "stale"} {
		_, err := s.Create(ctx, sampleJob("pg-test", id))
		require.NoError(t, err)
	}

	fresh := sampleJob("pg-test", "keep")
	fresh.Title = "Updated"
	res, err := s.ReplaceSource(ctx, "pg-test", []Job{fresh, sampleJob("pg-test", "new")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Upserted)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, int64(1), res.Deleted)

	got, err := s.FindMany(ctx, Filter{Source: "pg-test"}, SortCreated, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	titles := map[string]string{}
	for _, j := range got {
		titles[j.ExternalID] = j.Title
	}
	assert.Equal(t, "Updated", titles["keep"])
	assert.Contains(t, titles, "new")
}

func TestPgStoreCreateConflict(t *testing.T) {
	s := newTestPgStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sampleJob("pg-test", "dup"))
	require.NoError(t, err)
	_, err = s.Create(ctx, sampleJob("pg-test", "dup"))
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)
}

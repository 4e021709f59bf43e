package httpx

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollyFetcher_FetchReturnsBody(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer ts.Close()

	f := NewCollyFetcher(Options{UserAgent: "test-agent/1.0"})
	body, err := f.Fetch(context.Background(), ts.URL+"/jobs")
	require.NoError(t, err)
	assert.Contains(t, string(body), "ok")
	assert.Equal(t, "test-agent/1.0", gotUA)
}

func TestCollyFetcher_NonSuccessStatusIsFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	f := NewCollyFetcher(Options{})
	_, err := f.Fetch(context.Background(), ts.URL+"/missing")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.Equal(t, ts.URL+"/missing", fe.URL)
	assert.Contains(t, fe.Error(), ts.URL+"/missing")
}

func TestCollyFetcher_TimeoutIsFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer ts.Close()

	f := NewCollyFetcher(Options{Timeout: 50 * time.Millisecond})
	_, err := f.Fetch(context.Background(), ts.URL)
	require.Error(t, err)

	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestCollyFetcher_EmptyURL(t *testing.T) {
	f := NewCollyFetcher(Options{})
	_, err := f.Fetch(context.Background(), "")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
}

func TestCollyFetcher_RespectsRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := NewCollyFetcher(Options{RespectRobots: true})

	_, err := f.Fetch(context.Background(), ts.URL+"/private/job")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRobotsDisallowed))

	body, err := f.Fetch(context.Background(), ts.URL+"/public")
	require.NoError(t, err)
	assert.Equal(t, "page", string(body))
}

func TestCollyFetcher_MissingRobotsAllowsAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := NewCollyFetcher(Options{RespectRobots: true})
	_, err := f.Fetch(context.Background(), ts.URL+"/anything")
	assert.NoError(t, err)
}

func TestSleepWithContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepWithContext(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollyFetcher_LogsSuccessAtInfo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	defer slog.SetDefault(prev)

	_, err := NewCollyFetcher(Options{}).Fetch(context.Background(), ts.URL+"/jobs/go-dev")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"fetch ok"`)
	assert.Contains(t, buf.String(), ts.URL+"/jobs/go-dev")
}

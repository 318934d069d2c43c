package services

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/anonclone/pkg/data"
	"github.com/kerbaras/anonclone/pkg/sources"
	"github.com/kerbaras/anonclone/pkg/storage"
)

type fetchHarness struct {
	fetcher *Fetcher
	calls   int
	sleeps  []time.Duration
	logs    *bytes.Buffer
	task    data.DownloadTask
}

// newFetchHarness answers the n-th call (1-based) with respond(n).
func newFetchHarness(t *testing.T, respond func(n int) ([]byte, error)) *fetchHarness {
	t.Helper()
	root := t.TempDir()
	h := &fetchHarness{
		logs: &bytes.Buffer{},
		task: data.DownloadTask{
			RemoteURL: "https://anonymous.example/api/repo/p/file/dir/f.txt",
			RelPath:   "dir/f.txt",
			LocalPath: filepath.Join(root, "dir", "f.txt"),
		},
	}
	source := fileSourceFunc(func(ctx context.Context, url string) ([]byte, error) {
		h.calls++
		return respond(h.calls)
	})
	h.fetcher = NewFetcher(source, storage.NewLocalStore(root), log.New(h.logs, "", 0), FetcherOptions{})
	h.fetcher.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}

func TestFetcher_Success(t *testing.T) {
	h := newFetchHarness(t, func(int) ([]byte, error) { return []byte("hello\n"), nil })
	guard := &RateLimitGuard{}

	outcome := h.fetcher.Fetch(context.Background(), h.task, guard)

	assert.Equal(t, data.StatusCompleted, outcome.Status)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, int64(6), outcome.Bytes)
	assert.False(t, guard.Raised())

	got, err := os.ReadFile(h.task.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}

func TestFetcher_RetriesTransientErrors(t *testing.T) {
	h := newFetchHarness(t, func(n int) ([]byte, error) {
		switch n {
		case 1:
			return nil, errors.New("connection reset by peer")
		case 2:
			return nil, &sources.StatusError{Code: 502}
		}
		return []byte("ok"), nil
	})

	outcome := h.fetcher.Fetch(context.Background(), h.task, &RateLimitGuard{})

	assert.Equal(t, data.StatusCompleted, outcome.Status)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, []time.Duration{DefaultRetryDelay, DefaultRetryDelay}, h.sleeps)
	assert.Contains(t, h.logs.String(), "file request exception (attempt 1/5)")
	assert.Contains(t, h.logs.String(), h.task.LocalPath)
}

func TestFetcher_RetriesExhausted(t *testing.T) {
	boom := errors.New("timeout")
	h := newFetchHarness(t, func(int) ([]byte, error) { return nil, boom })

	outcome := h.fetcher.Fetch(context.Background(), h.task, &RateLimitGuard{})

	assert.Equal(t, data.StatusFailed, outcome.Status)
	assert.Equal(t, data.ReasonRetriesExhausted, outcome.Reason)
	assert.Equal(t, DefaultMaxAttempts, h.calls)
	assert.Len(t, h.sleeps, DefaultMaxAttempts-1)

	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, outcome.Err, &exhausted)
	assert.Equal(t, DefaultMaxAttempts, exhausted.Attempts)
	assert.ErrorIs(t, outcome.Err, boom)
	assert.NoFileExists(t, h.task.LocalPath)
}

func TestFetcher_RateLimitedStopsImmediately(t *testing.T) {
	page := "<p>Please try again later.</p>"
	h := newFetchHarness(t, func(int) ([]byte, error) {
		return nil, &sources.RateLimitError{Body: page}
	})
	guard := &RateLimitGuard{}

	outcome := h.fetcher.Fetch(context.Background(), h.task, guard)

	assert.Equal(t, 1, h.calls)
	assert.Empty(t, h.sleeps)
	assert.True(t, guard.Raised())
	assert.True(t, outcome.RateLimited())
	assert.ErrorIs(t, outcome.Err, sources.ErrRateLimited)
	assert.Contains(t, h.logs.String(), page)
	assert.NoFileExists(t, h.task.LocalPath)
}

func TestFetcher_RejectedIsNotRetried(t *testing.T) {
	h := newFetchHarness(t, func(int) ([]byte, error) {
		return nil, &sources.StatusError{Code: 404}
	})

	outcome := h.fetcher.Fetch(context.Background(), h.task, &RateLimitGuard{})

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, data.ReasonRejected, outcome.Reason)
	assert.ErrorIs(t, outcome.Err, sources.ErrRejected)
}

func TestFetcher_CanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newFetchHarness(t, func(int) ([]byte, error) { return nil, errors.New("flaky") })
	h.fetcher.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	outcome := h.fetcher.Fetch(ctx, h.task, &RateLimitGuard{})

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, data.ReasonCanceled, outcome.Reason)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestFetcher_CustomAttempts(t *testing.T) {
	h := newFetchHarness(t, func(int) ([]byte, error) { return nil, errors.New("nope") })
	h.fetcher.maxAttempts = 2

	outcome := h.fetcher.Fetch(context.Background(), h.task, &RateLimitGuard{})

	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, 2, h.calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

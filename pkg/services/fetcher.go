package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/kerbaras/anonclone/pkg/data"
	"github.com/kerbaras/anonclone/pkg/sources"
	"github.com/kerbaras/anonclone/pkg/storage"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 400 * time.Millisecond
)

// FileSource performs a single GET of a file URL.
type FileSource interface {
	FetchFile(ctx context.Context, url string) ([]byte, error)
}

// RetriesExhaustedError is the error of a task whose every attempt failed
// without the service asking us to back off.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

type FetcherOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Fetcher downloads one task with a fixed number of attempts and a fixed
// delay between them.
type Fetcher struct {
	source      FileSource
	store       storage.Store
	logger      *log.Logger
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewFetcher(source FileSource, store storage.Store, logger *log.Logger, opts FetcherOptions) *Fetcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Fetcher{
		source:      source,
		store:       store,
		logger:      orDefault(logger),
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		sleep:       sleepContext,
	}
}

// Fetch runs the attempts for task. A rate-limit answer raises guard and ends
// the task at once; a rejection (4xx) is not retried.
func (f *Fetcher) Fetch(ctx context.Context, task data.DownloadTask, guard *RateLimitGuard) data.DownloadOutcome {
	outcome := data.DownloadOutcome{Task: task}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		outcome.Attempts = attempt

		n, err := f.attempt(ctx, task)
		if err == nil {
			outcome.Status = data.StatusCompleted
			outcome.Bytes = n
			return outcome
		}

		var rl *sources.RateLimitError
		switch {
		case errors.As(err, &rl):
			f.logger.Print(rl.Body)
			f.logger.Printf("rate limited while fetching %s, rerun after some time", task.RelPath)
			guard.Raise()
			return failed(outcome, data.ReasonRateLimited, err)
		case errors.Is(err, sources.ErrRejected):
			f.logger.Printf("file request rejected: %v - %s", err, task.LocalPath)
			return failed(outcome, data.ReasonRejected, err)
		case ctx.Err() != nil:
			return failed(outcome, data.ReasonCanceled, ctx.Err())
		}

		lastErr = err
		f.logger.Printf("file request exception (attempt %d/%d): %v - %s", attempt, f.maxAttempts, err, task.LocalPath)
		if attempt < f.maxAttempts {
			if err := f.sleep(ctx, f.retryDelay); err != nil {
				return failed(outcome, data.ReasonCanceled, err)
			}
		}
	}

	return failed(outcome, data.ReasonRetriesExhausted, &RetriesExhaustedError{Attempts: f.maxAttempts, Err: lastErr})
}

func (f *Fetcher) attempt(ctx context.Context, task data.DownloadTask) (int64, error) {
	if err := f.store.Prepare(ctx, task); err != nil {
		return 0, err
	}
	body, err := f.source.FetchFile(ctx, task.RemoteURL)
	if err != nil {
		return 0, err
	}
	if err := f.store.Save(ctx, task, body); err != nil {
		return 0, err
	}
	return int64(len(body)), nil
}

func failed(o data.DownloadOutcome, reason data.FailureReason, err error) data.DownloadOutcome {
	o.Status = data.StatusFailed
	o.Reason = reason
	o.Err = err
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func orDefault(logger *log.Logger) *log.Logger {
	if logger != nil {
		return logger
	}
	return log.New(os.Stderr, "[anonclone] ", 0)
}

// DiscardLogger swallows every line.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

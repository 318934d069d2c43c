package services

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/kerbaras/anonclone/pkg/data"
)

// DownloadProgress is reported once per drained task, in completion order.
type DownloadProgress struct {
	Processed int
	Total     int
	Outcome   data.DownloadOutcome
}

type ProgressFunc func(DownloadProgress)

// Downloader runs download tasks on a fixed pool of workers.
type Downloader struct {
	resume  *ResumePolicy
	fetcher *Fetcher
	workers int
	logger  *log.Logger
}

func NewDownloader(resume *ResumePolicy, fetcher *Fetcher, workers int, logger *log.Logger) *Downloader {
	if workers <= 0 {
		workers = 2
	}
	return &Downloader{
		resume:  resume,
		fetcher: fetcher,
		workers: workers,
		logger:  orDefault(logger),
	}
}

// Run executes tasks with at most d.workers in flight and blocks until every
// started task has finished. Once a fetch is rate limited no further task is
// started; tasks already running complete normally. Cancelling ctx stops
// dispatch the same way and also interrupts retry delays.
func (d *Downloader) Run(ctx context.Context, tasks []data.DownloadTask, onProgress ProgressFunc) data.Summary {
	guard := &RateLimitGuard{}
	summary := data.Summary{Total: len(tasks)}

	workers := min(d.workers, len(tasks))
	if workers == 0 {
		return summary
	}

	jobs := make(chan data.DownloadTask)
	results := make(chan data.DownloadOutcome)

	go func() {
		defer close(jobs)
		for _, task := range tasks {
			if guard.Raised() {
				return
			}
			select {
			case jobs <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for task := range jobs {
				if guard.Raised() || ctx.Err() != nil {
					continue
				}
				results <- d.process(ctx, task, guard)
			}
			return nil
		})
	}
	go func() {
		g.Wait()
		close(results)
	}()

	announced := false
	for outcome := range results {
		summary.Add(outcome)
		if onProgress != nil {
			onProgress(DownloadProgress{
				Processed: summary.Processed,
				Total:     summary.Total,
				Outcome:   outcome,
			})
		}
		if outcome.RateLimited() && !announced {
			announced = true
			d.logger.Printf("rate limited: no new downloads will be started, waiting for in-flight files")
		}
	}

	summary.NotStarted = summary.Total - summary.Processed
	summary.RateLimited = guard.Raised()
	return summary
}

func (d *Downloader) process(ctx context.Context, task data.DownloadTask, guard *RateLimitGuard) data.DownloadOutcome {
	if !d.resume.NeedsDownload(ctx, task) {
		return data.DownloadOutcome{Task: task, Status: data.StatusSkipped}
	}
	return d.fetcher.Fetch(ctx, task, guard)
}

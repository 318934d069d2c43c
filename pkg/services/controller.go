package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kerbaras/anonclone/pkg/data"
	"github.com/kerbaras/anonclone/pkg/sources"
	"github.com/kerbaras/anonclone/pkg/storage"
)

// ErrIncomplete means the run ended without rate limiting but some files
// were not mirrored.
var ErrIncomplete = errors.New("some files were not downloaded")

// Ledger records clone runs. *data.Repository implements it.
type Ledger interface {
	StartRun(run *data.Run) error
	RecordOutcome(runID string, outcome data.DownloadOutcome) error
	FinishRun(runID string, summary data.Summary, finishedAt time.Time) error
}

type ControllerConfig struct {
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *log.Logger
	// Ledger is optional.
	Ledger Ledger
}

// Controller drives a clone end to end.
type Controller struct {
	source     sources.Source
	store      storage.Store
	downloader *Downloader
	ledger     Ledger
	logger     *log.Logger
}

func NewController(source sources.Source, store storage.Store, config ControllerConfig) *Controller {
	logger := orDefault(config.Logger)
	resume := NewResumePolicy(store, logger)
	fetcher := NewFetcher(source, store, logger, FetcherOptions{
		MaxAttempts: config.MaxAttempts,
		RetryDelay:  config.RetryDelay,
	})

	return &Controller{
		source:     source,
		store:      store,
		downloader: NewDownloader(resume, fetcher, config.Workers, logger),
		ledger:     config.Ledger,
		logger:     logger,
	}
}

type CloneOptions struct {
	ProjectID string
	// OutputDir roots every task's LocalPath.
	OutputDir string
	Skip      []string
	// OnPlan is called once the task list is built, before any download.
	OnPlan     func(BuildReport)
	OnProgress ProgressFunc
}

type CloneResult struct {
	RunID    string
	Report   BuildReport
	Summary  data.Summary
	Location string
}

// Err maps the result to the condition the caller should exit with.
func (r CloneResult) Err() error {
	switch {
	case r.Summary.RateLimited:
		return sources.ErrRateLimited
	case r.Summary.Failed > 0 || r.Summary.NotStarted > 0:
		return ErrIncomplete
	default:
		return nil
	}
}

// Plan fetches the manifest and builds the task list without downloading.
func (c *Controller) Plan(ctx context.Context, projectID, outputDir string, skip []string) ([]data.DownloadTask, BuildReport, error) {
	if projectID == "" {
		return nil, BuildReport{}, fmt.Errorf("project id cannot be empty")
	}

	manifest, err := c.source.FetchManifest(ctx, projectID)
	if err != nil {
		var rl *sources.RateLimitError
		if errors.As(err, &rl) {
			c.logger.Print(rl.Body)
		}
		return nil, BuildReport{}, err
	}

	tasks, report := BuildTasks(Flatten(manifest), TaskOptions{
		FileEndpoint: c.source.FileEndpoint(projectID),
		OutputDir:    outputDir,
		Skip:         skip,
	})
	if report.Duplicates > 0 {
		c.logger.Printf("%d manifest entries map to an already planned path and were ignored", report.Duplicates)
	}
	if report.Unsafe > 0 {
		c.logger.Printf("%d manifest entries point outside the output directory and were ignored", report.Unsafe)
	}
	return tasks, report, nil
}

// Clone mirrors one project. The returned error is only about the manifest
// stage; per-file problems are in the result's Summary (see CloneResult.Err).
func (c *Controller) Clone(ctx context.Context, opts CloneOptions) (CloneResult, error) {
	tasks, report, err := c.Plan(ctx, opts.ProjectID, opts.OutputDir, opts.Skip)
	if err != nil {
		return CloneResult{}, err
	}
	if opts.OnPlan != nil {
		opts.OnPlan(report)
	}

	result := CloneResult{
		RunID:    uuid.NewString(),
		Report:   report,
		Location: c.store.Location(),
	}

	ledger := c.ledger
	if ledger != nil {
		err := ledger.StartRun(&data.Run{
			ID:        result.RunID,
			ProjectID: opts.ProjectID,
			Output:    result.Location,
			StartedAt: time.Now(),
			Total:     len(tasks),
		})
		if err != nil {
			c.logger.Printf("ledger disabled for this run: %v", err)
			ledger = nil
		}
	}

	result.Summary = c.downloader.Run(ctx, tasks, func(p DownloadProgress) {
		if ledger != nil {
			if err := ledger.RecordOutcome(result.RunID, p.Outcome); err != nil {
				c.logger.Printf("ledger: %v", err)
			}
		}
		if opts.OnProgress != nil {
			opts.OnProgress(p)
		}
	})

	if ledger != nil {
		if err := ledger.FinishRun(result.RunID, result.Summary, time.Now()); err != nil {
			c.logger.Printf("ledger: %v", err)
		}
	}

	return result, nil
}

package data

import (
	"fmt"
	"time"
)

// FlatRecord is the chain of keys from the manifest root down to, and
// including, a terminal value.
type FlatRecord []string

type DownloadTask struct {
	RemoteURL string
	RelPath   string // slash separated, relative to the output root
	LocalPath string
}

type OutcomeStatus int

const (
	StatusCompleted OutcomeStatus = iota
	StatusSkipped
	StatusFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FailureReason qualifies a StatusFailed outcome.
type FailureReason string

const (
	ReasonNone             FailureReason = ""
	ReasonRateLimited      FailureReason = "rate-limited"
	ReasonRetriesExhausted FailureReason = "retries-exhausted"
	ReasonRejected         FailureReason = "rejected"
	ReasonCanceled         FailureReason = "canceled"
)

type DownloadOutcome struct {
	Task     DownloadTask
	Status   OutcomeStatus
	Reason   FailureReason
	Attempts int
	Bytes    int64
	Err      error
}

func (o DownloadOutcome) RateLimited() bool {
	return o.Status == StatusFailed && o.Reason == ReasonRateLimited
}

// Summary aggregates the outcomes of one scheduler run.
type Summary struct {
	Total       int
	Processed   int
	Completed   int
	Skipped     int
	Failed      int
	NotStarted  int
	RateLimited bool
}

// Add accounts for one drained outcome.
func (s *Summary) Add(o DownloadOutcome) {
	s.Processed++
	switch o.Status {
	case StatusCompleted:
		s.Completed++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
		if o.Reason == ReasonRateLimited {
			s.RateLimited = true
		}
	}
}

// Run is one clone invocation as recorded in the ledger.
type Run struct {
	ID          string
	ProjectID   string
	Output      string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Total       int
	Completed   int
	Skipped     int
	Failed      int
	NotStarted  int
	RateLimited bool
}

// FileRecord is one file outcome as recorded in the ledger.
type FileRecord struct {
	RunID     string
	RelPath   string
	RemoteURL string
	Status    string
	Reason    string
	Attempts  int
	Bytes     int64
	Error     string
}

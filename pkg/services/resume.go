package services

import (
	"context"
	"log"
	"strings"

	"github.com/kerbaras/anonclone/pkg/data"
	"github.com/kerbaras/anonclone/pkg/sources"
	"github.com/kerbaras/anonclone/pkg/storage"
)

// ResumePolicy decides whether a previously stored file is complete. It only
// recognizes one failure mode, a saved rate-limit page, and does not detect
// truncation.
type ResumePolicy struct {
	store  storage.Store
	logger *log.Logger
}

func NewResumePolicy(store storage.Store, logger *log.Logger) *ResumePolicy {
	return &ResumePolicy{store: store, logger: orDefault(logger)}
}

// NeedsDownload reports whether task has to be fetched.
func (p *ResumePolicy) NeedsDownload(ctx context.Context, task data.DownloadTask) bool {
	line, exists, err := p.store.FirstLine(ctx, task)
	if err != nil {
		p.logger.Printf("cannot inspect %s, downloading again: %v", task.LocalPath, err)
		return true
	}
	if !exists {
		return true
	}
	return strings.Contains(line, sources.Sentinel)
}

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/kerbaras/anonclone/pkg/app/styles"
	"github.com/kerbaras/anonclone/pkg/data"
	"github.com/kerbaras/anonclone/pkg/services"
)

// ProgressTracker follows one clone run: the overall bar plus per-status
// counters.
type ProgressTracker struct {
	bar     progress.Model
	summary data.Summary
	width   int
}

func NewProgressTracker(width int) *ProgressTracker {
	bar := progress.New(progress.WithGradient(string(styles.Secondary), string(styles.Primary)))
	p := &ProgressTracker{bar: bar}
	p.SetWidth(width)
	return p
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
	p.bar.Width = max(width-4, 10)
}

// SetTotal is called once the plan is known.
func (p *ProgressTracker) SetTotal(total int) {
	p.summary.Total = total
}

func (p *ProgressTracker) Update(update services.DownloadProgress) {
	p.summary.Add(update.Outcome)
	p.summary.Total = update.Total
}

func (p *ProgressTracker) Summary() data.Summary {
	return p.summary
}

func (p *ProgressTracker) Percent() float64 {
	if p.summary.Total == 0 {
		return 0
	}
	return float64(p.summary.Processed) / float64(p.summary.Total)
}

func (p *ProgressTracker) View() string {
	var b strings.Builder

	b.WriteString(p.bar.ViewAs(p.Percent()))
	b.WriteString("\n")
	b.WriteString(styles.TextStyle.Render(fmt.Sprintf("%d/%d", p.summary.Processed, p.summary.Total)))
	b.WriteString("  ")
	b.WriteString(styles.StatusCompleted.Render(fmt.Sprintf("%d downloaded", p.summary.Completed)))
	b.WriteString("  ")
	b.WriteString(styles.StatusSkipped.Render(fmt.Sprintf("%d already present", p.summary.Skipped)))
	if p.summary.Failed > 0 {
		b.WriteString("  ")
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("%d failed", p.summary.Failed)))
	}
	if p.summary.RateLimited {
		b.WriteString("\n")
		b.WriteString(styles.StatusWarning.Render("Rate limited: waiting for in-flight files, nothing new is started"))
	}
	b.WriteString("\n")

	return b.String()
}

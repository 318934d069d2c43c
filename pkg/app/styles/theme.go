package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kerbaras/anonclone/pkg/data"
)

var (
	// Color palette
	Primary    = lipgloss.Color("#FF6B9D")
	Secondary  = lipgloss.Color("#C792EA")
	Success    = lipgloss.Color("#C3E88D")
	Warning    = lipgloss.Color("#FFCB6B")
	Error      = lipgloss.Color("#F07178")
	Info       = lipgloss.Color("#82AAFF")
	Muted      = lipgloss.Color("#546E7A")
	Foreground = lipgloss.Color("#EEFFFF")

	RoundedBorder = lipgloss.RoundedBorder()
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(Foreground)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	// CardStyle frames the final summary of a run.
	CardStyle = lipgloss.NewStyle().
			Border(RoundedBorder).
			BorderForeground(Secondary).
			Padding(1, 2).
			MarginBottom(1)

	// Status styles
	StatusDownloading = lipgloss.NewStyle().
				Foreground(Info).
				Bold(true)

	StatusCompleted = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	StatusSkipped = lipgloss.NewStyle().
			Foreground(Muted)

	StatusWarning = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	StatusError = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true).
			MarginTop(1)

	// Table header/selection, shared by the tree and history tables.
	TableHeaderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(Muted).
				BorderBottom(true).
				Bold(true)

	TableSelectedStyle = lipgloss.NewStyle().
				Foreground(Foreground).
				Background(lipgloss.Color("#37474F")).
				Bold(false)
)

// OutcomeStyle picks the style for a finished file.
func OutcomeStyle(o data.DownloadOutcome) lipgloss.Style {
	switch {
	case o.Status == data.StatusCompleted:
		return StatusCompleted
	case o.Status == data.StatusSkipped:
		return StatusSkipped
	case o.RateLimited():
		return StatusWarning
	default:
		return StatusError
	}
}

// OutcomeIcon is the one-rune marker shown before a file name.
func OutcomeIcon(o data.DownloadOutcome) string {
	switch o.Status {
	case data.StatusCompleted:
		return "●"
	case data.StatusSkipped:
		return "○"
	default:
		return "✗"
	}
}

// StatusStyle maps a ledger status string.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case data.StatusCompleted.String():
		return StatusCompleted
	case data.StatusSkipped.String():
		return StatusSkipped
	case data.StatusFailed.String():
		return StatusError
	default:
		return MutedStyle
	}
}

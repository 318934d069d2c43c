package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/kerbaras/anonclone/pkg/app/styles"
	"github.com/kerbaras/anonclone/pkg/data"
)

const timeLayout = "2006-01-02 15:04"

// NewTable builds a table with the shared header and selection styles that
// shows visibleRows rows below the header.
func NewTable(columns []table.Column, rows []table.Row, visibleRows int, focused bool) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(focused),
	)

	s := table.DefaultStyles()
	s.Header = styles.TableHeaderStyle
	s.Selected = styles.TableSelectedStyle
	if !focused {
		s.Selected = s.Cell
	}
	t.SetStyles(s)
	// SetHeight counts the header, which the styles above made taller.
	t.SetHeight(visibleRows + lipgloss.Height(styles.TableHeaderStyle.Render("x")))
	return t
}

func TaskColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 6},
		{Title: "Path", Width: 60},
	}
}

func TaskRows(tasks []data.DownloadTask) []table.Row {
	rows := make([]table.Row, len(tasks))
	for i, task := range tasks {
		rows[i] = table.Row{
			fmt.Sprintf("%d", i+1),
			truncate(task.RelPath, 58),
		}
	}
	return rows
}

func RunColumns() []table.Column {
	return []table.Column{
		{Title: "Run", Width: 8},
		{Title: "Project", Width: 14},
		{Title: "Started", Width: 16},
		{Title: "Files", Width: 6},
		{Title: "Done", Width: 6},
		{Title: "Present", Width: 8},
		{Title: "Failed", Width: 7},
		{Title: "Status", Width: 12},
	}
}

func RunRows(runs []*data.Run) []table.Row {
	rows := make([]table.Row, len(runs))
	for i, run := range runs {
		rows[i] = table.Row{
			ShortID(run.ID),
			truncate(run.ProjectID, 14),
			run.StartedAt.Local().Format(timeLayout),
			fmt.Sprintf("%d", run.Total),
			fmt.Sprintf("%d", run.Completed),
			fmt.Sprintf("%d", run.Skipped),
			fmt.Sprintf("%d", run.Failed),
			RunStatus(run),
		}
	}
	return rows
}

// RunStatus condenses a ledger run into one word.
func RunStatus(run *data.Run) string {
	switch {
	case run.FinishedAt == nil:
		return "interrupted"
	case run.RateLimited:
		return "rate-limited"
	case run.Failed > 0 || run.NotStarted > 0:
		return "incomplete"
	default:
		return "complete"
	}
}

func FileColumns() []table.Column {
	return []table.Column{
		{Title: "Path", Width: 48},
		{Title: "Status", Width: 10},
		{Title: "Reason", Width: 18},
		{Title: "Tries", Width: 6},
		{Title: "Bytes", Width: 10},
	}
}

func FileRows(files []*data.FileRecord) []table.Row {
	rows := make([]table.Row, len(files))
	for i, f := range files {
		rows[i] = table.Row{
			truncate(f.RelPath, 46),
			f.Status,
			f.Reason,
			fmt.Sprintf("%d", f.Attempts),
			fmt.Sprintf("%d", f.Bytes),
		}
	}
	return rows
}

// ShortID is the prefix of a run id shown in tables. Commands accept it
// back as a run reference.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Elapsed formats a finished run's duration.
func Elapsed(run *data.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}

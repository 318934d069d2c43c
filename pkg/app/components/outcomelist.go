package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kerbaras/anonclone/pkg/app/styles"
	"github.com/kerbaras/anonclone/pkg/data"
)

// OutcomeList keeps the most recent outcomes of a run, newest last.
type OutcomeList struct {
	Items         []data.DownloadOutcome
	SelectedIndex int
	Limit         int
	Width         int
	Height        int
}

func NewOutcomeList(limit int) *OutcomeList {
	return &OutcomeList{
		Items:  []data.DownloadOutcome{},
		Limit:  limit,
		Width:  80,
		Height: 10,
	}
}

// Push appends o and drops the oldest entries beyond Limit. The selection
// follows the newest entry unless the user moved it.
func (m *OutcomeList) Push(o data.DownloadOutcome) {
	following := len(m.Items) == 0 || m.SelectedIndex == len(m.Items)-1

	m.Items = append(m.Items, o)
	if m.Limit > 0 && len(m.Items) > m.Limit {
		drop := len(m.Items) - m.Limit
		m.Items = m.Items[drop:]
		m.SelectedIndex = max(m.SelectedIndex-drop, 0)
	}
	if following {
		m.SelectedIndex = len(m.Items) - 1
	}
}

func (m *OutcomeList) Next() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex++
	if m.SelectedIndex >= len(m.Items) {
		m.SelectedIndex = 0
	}
}

func (m *OutcomeList) Prev() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex--
	if m.SelectedIndex < 0 {
		m.SelectedIndex = len(m.Items) - 1
	}
}

func (m *OutcomeList) Selected() *data.DownloadOutcome {
	if len(m.Items) == 0 || m.SelectedIndex >= len(m.Items) {
		return nil
	}
	return &m.Items[m.SelectedIndex]
}

func (m *OutcomeList) View() string {
	if len(m.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render("No files processed yet")
		return lipgloss.Place(m.Width, m.Height, lipgloss.Left, lipgloss.Top, emptyMsg)
	}

	// Show the window of Height rows that contains the selection.
	start := 0
	if m.Height > 0 && len(m.Items) > m.Height {
		start = min(max(m.SelectedIndex-m.Height+1, 0), len(m.Items)-m.Height)
	}
	end := len(m.Items)
	if m.Height > 0 {
		end = min(start+m.Height, len(m.Items))
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		o := m.Items[i]
		line := fmt.Sprintf("%s %s", styles.OutcomeIcon(o), o.Task.RelPath)
		if o.Reason != data.ReasonNone {
			line = fmt.Sprintf("%s (%s)", line, o.Reason)
		}
		if m.Width > 4 && lipgloss.Width(line) > m.Width-2 {
			line = truncate(line, m.Width-2)
		}

		if i == m.SelectedIndex {
			line = styles.SelectedStyle.Render("▸ " + line)
		} else {
			line = styles.OutcomeStyle(o).Render("  " + line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if sel := m.Selected(); sel != nil && sel.Err != nil {
		b.WriteString("\n")
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", sel.Err)))
		b.WriteString("\n")
	}

	return b.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

package screens

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/anonclone/pkg/app/components"
	"github.com/kerbaras/anonclone/pkg/app/styles"
	"github.com/kerbaras/anonclone/pkg/data"
)

// HistoryReader is the read side of the run ledger.
type HistoryReader interface {
	ListRuns() ([]*data.Run, error)
	GetFiles(runID string) ([]*data.FileRecord, error)
}

// HistoryScreen browses past runs and the files of one run.
type HistoryScreen struct {
	repo HistoryReader

	runs     []*data.Run
	runTable table.Model

	selected  *data.Run
	fileTable table.Model
	showFiles bool

	width  int
	height int
	err    error
}

func NewHistoryScreen(repo HistoryReader) *HistoryScreen {
	return &HistoryScreen{
		repo:      repo,
		runTable:  components.NewTable(components.RunColumns(), nil, 10, true),
		fileTable: components.NewTable(components.FileColumns(), nil, 10, true),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return s.loadRuns
}

func (s *HistoryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.runTable.SetHeight(max(msg.Height-8, 3))
		s.fileTable.SetHeight(max(msg.Height-10, 3))

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return s, tea.Quit
		case "esc":
			if s.showFiles {
				s.showFiles = false
				return s, nil
			}
			return s, tea.Quit
		case "r":
			if !s.showFiles {
				return s, s.loadRuns
			}
		case "enter":
			if !s.showFiles && len(s.runs) > 0 {
				run := s.runs[s.runTable.Cursor()]
				return s, s.loadFiles(run)
			}
		}

	case runsLoadedMsg:
		s.err = msg.err
		s.runs = msg.runs
		s.runTable.SetRows(components.RunRows(msg.runs))
		return s, nil

	case filesLoadedMsg:
		s.err = msg.err
		if msg.err == nil {
			s.selected = msg.run
			s.fileTable = components.NewTable(components.FileColumns(), components.FileRows(msg.files), max(s.height-10, 3), true)
			s.showFiles = true
		}
		return s, nil
	}

	var cmd tea.Cmd
	if s.showFiles {
		s.fileTable, cmd = s.fileTable.Update(msg)
	} else {
		s.runTable, cmd = s.runTable.Update(msg)
	}
	return s, cmd
}

func (s *HistoryScreen) View() string {
	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	}

	if s.showFiles && s.selected != nil {
		header := styles.TitleStyle.Render(fmt.Sprintf("Run %s · %s", components.ShortID(s.selected.ID), s.selected.ProjectID))
		info := styles.MutedStyle.Render(fmt.Sprintf("%s → %s (%s, %s)",
			s.selected.StartedAt.Local().Format("2006-01-02 15:04"), s.selected.Output,
			components.RunStatus(s.selected), components.Elapsed(s.selected)))
		help := styles.HelpStyle.Render("↑/k: up • ↓/j: down • esc: back • q: quit")
		return fmt.Sprintf("%s\n%s\n\n%s%s\n%s", header, info, errorMsg, s.fileTable.View(), help)
	}

	header := styles.TitleStyle.Render("Clone history")
	var body string
	if len(s.runs) == 0 {
		body = styles.MutedStyle.Render("No runs recorded yet. Use 'anonclone clone' to start one.")
	} else {
		body = s.runTable.View()
	}
	help := styles.HelpStyle.Render("↑/k: up • ↓/j: down • enter: files • r: refresh • q: quit")
	return fmt.Sprintf("%s\n\n%s%s\n%s", header, errorMsg, body, help)
}

// Messages
type runsLoadedMsg struct {
	runs []*data.Run
	err  error
}

type filesLoadedMsg struct {
	run   *data.Run
	files []*data.FileRecord
	err   error
}

// Commands
func (s *HistoryScreen) loadRuns() tea.Msg {
	runs, err := s.repo.ListRuns()
	return runsLoadedMsg{runs: runs, err: err}
}

func (s *HistoryScreen) loadFiles(run *data.Run) tea.Cmd {
	return func() tea.Msg {
		files, err := s.repo.GetFiles(run.ID)
		return filesLoadedMsg{run: run, files: files, err: err}
	}
}

package screens

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/anonclone/pkg/app/components"
	"github.com/kerbaras/anonclone/pkg/app/styles"
	"github.com/kerbaras/anonclone/pkg/services"
)

const (
	recentOutcomes = 200
	recentLogLines = 5
)

// Cloner is the part of services.Controller the screen drives.
type Cloner interface {
	Clone(ctx context.Context, opts services.CloneOptions) (services.CloneResult, error)
}

// CloneScreen runs one clone and renders its progress.
type CloneScreen struct {
	cloner Cloner
	opts   services.CloneOptions

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg

	// closed is closed once the program has stopped reading events.
	closed    chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	isClosed  bool
	running   sync.WaitGroup

	spinner  spinner.Model
	tracker  *components.ProgressTracker
	outcomes *components.OutcomeList
	logs     []string

	planned  bool
	report   services.BuildReport
	result   services.CloneResult
	err      error
	done     bool
	stopping bool

	width  int
	height int
}

func NewCloneScreen(ctx context.Context, opts services.CloneOptions) *CloneScreen {
	ctx, cancel := context.WithCancel(ctx)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.StatusDownloading

	return &CloneScreen{
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan tea.Msg),
		closed:   make(chan struct{}),
		spinner:  sp,
		tracker:  components.NewProgressTracker(80),
		outcomes: components.NewOutcomeList(recentOutcomes),
	}
}

// SetCloner must be called before the program starts.
func (s *CloneScreen) SetCloner(c Cloner) {
	s.cloner = c
}

// LogWriter turns each written line into a message for the screen. Writes
// block until the screen has taken them, so it must only be used while the
// program runs.
func (s *CloneScreen) LogWriter() io.Writer {
	return logWriter{screen: s}
}

// Result is the outcome of the run once the program has exited. A screen
// that was quit before the run finished reports context.Canceled.
func (s *CloneScreen) Result() (services.CloneResult, error) {
	if !s.done {
		return services.CloneResult{}, context.Canceled
	}
	return s.result, s.err
}

// Close stops the run and waits for it to return. It must be called once
// the program has exited, since nothing reads events after that.
func (s *CloneScreen) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.isClosed = true
		s.mu.Unlock()
		close(s.closed)
		s.cancel()
	})
	s.running.Wait()
}

func (s *CloneScreen) Init() tea.Cmd {
	return tea.Batch(
		s.spinner.Tick,
		s.startClone,
		s.listenForEvents,
	)
}

func (s *CloneScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.tracker.SetWidth(msg.Width - 4)
		s.outcomes.Width = msg.Width - 4
		s.outcomes.Height = max(msg.Height-16, 3)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if s.done || s.stopping {
				return s, tea.Quit
			}
			s.stopping = true
			s.cancel()
		case "enter":
			if s.done {
				return s, tea.Quit
			}
		case "up", "k":
			s.outcomes.Prev()
		case "down", "j":
			s.outcomes.Next()
		}

	case spinner.TickMsg:
		if s.done {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case planMsg:
		s.planned = true
		s.report = msg.report
		s.tracker.SetTotal(msg.report.Tasks)
		return s, s.listenForEvents

	case progressMsg:
		s.tracker.Update(msg.progress)
		s.outcomes.Push(msg.progress.Outcome)
		return s, s.listenForEvents

	case logMsg:
		s.logs = append(s.logs, msg.line)
		if len(s.logs) > recentLogLines {
			s.logs = s.logs[len(s.logs)-recentLogLines:]
		}
		return s, s.listenForEvents

	case cloneDoneMsg:
		s.done = true
		s.result = msg.result
		s.err = msg.err
		if s.stopping {
			return s, tea.Quit
		}
	}

	return s, nil
}

func (s *CloneScreen) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Cloning %s", s.opts.ProjectID)))
	b.WriteString("\n")

	switch {
	case !s.planned && !s.done:
		b.WriteString(fmt.Sprintf("%s %s\n", s.spinner.View(), styles.TextStyle.Render("Fetching file list...")))
	case s.planned:
		b.WriteString(styles.SubtitleStyle.Render(planLine(s.report)))
		b.WriteString("\n\n")
		b.WriteString(s.tracker.View())
		b.WriteString("\n")
		b.WriteString(s.outcomes.View())
	}

	if len(s.logs) > 0 {
		b.WriteString("\n")
		for _, line := range s.logs {
			b.WriteString(styles.MutedStyle.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if s.done {
		b.WriteString(styles.CardStyle.Render(s.statusLine()))
		b.WriteString("\n")
	} else {
		b.WriteString(s.statusLine())
	}

	help := "↑/k: up • ↓/j: down • q: stop"
	if s.done {
		help = "↑/k: up • ↓/j: down • enter/q: exit"
	}
	b.WriteString(styles.HelpStyle.Render(help))

	return b.String()
}

func (s *CloneScreen) statusLine() string {
	switch {
	case s.done && s.err != nil:
		return styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err))
	case s.done:
		if err := s.result.Err(); err != nil {
			return styles.StatusWarning.Render(fmt.Sprintf("Finished with problems: %s. Files are in %s", err, s.result.Location))
		}
		return styles.StatusCompleted.Render(fmt.Sprintf("Done. Files are in %s", s.result.Location))
	case s.stopping:
		return fmt.Sprintf("%s %s", s.spinner.View(), styles.StatusWarning.Render("Stopping, waiting for in-flight files..."))
	case s.planned:
		return fmt.Sprintf("%s %s", s.spinner.View(), styles.StatusDownloading.Render("Downloading"))
	default:
		return ""
	}
}

func planLine(r services.BuildReport) string {
	line := fmt.Sprintf("%d files planned", r.Tasks)
	if r.Skipped > 0 {
		line += fmt.Sprintf(", %d filtered by suffix", r.Skipped)
	}
	return line
}

// Messages
type planMsg struct {
	report services.BuildReport
}

type progressMsg struct {
	progress services.DownloadProgress
}

type logMsg struct {
	line string
}

type cloneDoneMsg struct {
	result services.CloneResult
	err    error
}

// Commands
func (s *CloneScreen) startClone() tea.Msg {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	opts := s.opts
	opts.OnPlan = func(r services.BuildReport) {
		s.emit(planMsg{report: r})
	}
	opts.OnProgress = func(p services.DownloadProgress) {
		s.emit(progressMsg{progress: p})
	}

	result, err := s.cloner.Clone(s.ctx, opts)

	// Delivered through the event channel so it cannot overtake the last
	// progress message.
	select {
	case s.events <- cloneDoneMsg{result: result, err: err}:
	case <-s.closed:
	}
	return nil
}

func (s *CloneScreen) listenForEvents() tea.Msg {
	return <-s.events
}

// emit hands msg to the screen unless the run is being torn down.
func (s *CloneScreen) emit(msg tea.Msg) {
	select {
	case s.events <- msg:
	case <-s.ctx.Done():
	case <-s.closed:
	}
}

type logWriter struct {
	screen *CloneScreen
}

func (w logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.screen.emit(logMsg{line: line})
	}
	return len(p), nil
}

package app

import (
	"context"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/anonclone/pkg/app/screens"
	"github.com/kerbaras/anonclone/pkg/services"
)

// App runs one clone inside a full-screen terminal UI.
type App struct {
	screen *screens.CloneScreen
}

func NewApp(ctx context.Context, opts services.CloneOptions) *App {
	return &App{screen: screens.NewCloneScreen(ctx, opts)}
}

// Logger routes log lines into the UI instead of stderr, which the
// alternate screen would hide.
func (a *App) Logger() *log.Logger {
	return log.New(a.screen.LogWriter(), "", 0)
}

func (a *App) Run(cloner screens.Cloner) (services.CloneResult, error) {
	a.screen.SetCloner(cloner)
	p := tea.NewProgram(a.screen, tea.WithAltScreen())
	_, err := p.Run()
	// The clone may still be running if the user quit early.
	a.screen.Close()
	if err != nil {
		return services.CloneResult{}, err
	}
	return a.screen.Result()
}

// RunHistory opens the ledger browser.
func RunHistory(repo screens.HistoryReader) error {
	p := tea.NewProgram(screens.NewHistoryScreen(repo), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

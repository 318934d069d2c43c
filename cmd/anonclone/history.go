package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kerbaras/anonclone/pkg/app"
	"github.com/kerbaras/anonclone/pkg/app/components"
	"github.com/kerbaras/anonclone/pkg/app/styles"
	"github.com/kerbaras/anonclone/pkg/data"
)

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past clone runs",
		Long:  "List recorded clone runs, or the files of one run given its id or an unambiguous prefix",
		Args:  maxArgs(1),
		RunE:  runHistory,
	}

	historyCmd.Flags().Bool("tui", false, "browse runs interactively")

	return historyCmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := ledgerPath(cmd, cfg)
	if path == "" {
		return usageError{errors.New("history needs a ledger, drop --no-ledger")}
	}

	repo, err := data.OpenRepository(path)
	if err != nil {
		return err
	}
	defer repo.Close()

	if tui, _ := cmd.Flags().GetBool("tui"); tui {
		return app.RunHistory(repo)
	}

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		runs, err := repo.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, styles.MutedStyle.Render("No runs recorded yet. Use 'anonclone clone' to start one."))
			return nil
		}

		t := components.NewTable(components.RunColumns(), components.RunRows(runs), len(runs), false)
		fmt.Fprintf(out, "\n%s\n\n", styles.TitleStyle.UnsetMarginBottom().Render(fmt.Sprintf("Clone history (%d runs)", len(runs))))
		fmt.Fprintln(out, t.View())
		return nil
	}

	run, err := repo.FindRun(args[0])
	if err != nil {
		return err
	}
	files, err := repo.GetFiles(run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\n", styles.TitleStyle.UnsetMarginBottom().Render(fmt.Sprintf("Run %s · %s", run.ID, run.ProjectID)))
	fmt.Fprintln(out, styles.MutedStyle.Render(fmt.Sprintf("%s → %s (%s, %s)",
		run.StartedAt.Local().Format("2006-01-02 15:04"), run.Output, components.RunStatus(run), components.Elapsed(run))))
	fmt.Fprintln(out)
	if len(files) == 0 {
		fmt.Fprintln(out, styles.MutedStyle.Render("No files recorded for this run."))
		return nil
	}
	t := components.NewTable(components.FileColumns(), components.FileRows(files), len(files), false)
	fmt.Fprintln(out, t.View())
	return nil
}

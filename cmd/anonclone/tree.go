package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kerbaras/anonclone/pkg/app/components"
	"github.com/kerbaras/anonclone/pkg/app/styles"
	"github.com/kerbaras/anonclone/pkg/services"
	"github.com/kerbaras/anonclone/pkg/storage"
)

func newTreeCmd() *cobra.Command {
	treeCmd := &cobra.Command{
		Use:   "tree [project-id or url]",
		Short: "List the files a clone would download",
		Long:  "Fetch the project's file list and print the planned downloads without fetching any file",
		Args:  maxArgs(1),
		RunE:  runTree,
	}

	addProjectFlags(treeCmd)
	treeCmd.Flags().Bool("plain", false, "print one path per line")

	return treeCmd
}

func runTree(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	projectID, err := resolveProjectID(cmd, args)
	if err != nil {
		return err
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = projectID
	}

	source, err := newSource(cfg)
	if err != nil {
		return err
	}

	controller := services.NewController(source, storage.NewLocalStore(cfg.OutputDir), services.ControllerConfig{
		Logger: newLogger(cmd.ErrOrStderr()),
	})
	tasks, report, err := controller.Plan(cmd.Context(), projectID, cfg.OutputDir, cfg.Skip)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if plain, _ := cmd.Flags().GetBool("plain"); plain {
		for _, task := range tasks {
			fmt.Fprintln(out, task.RelPath)
		}
		return nil
	}

	if len(tasks) == 0 {
		fmt.Fprintln(out, styles.MutedStyle.Render("Nothing to download."))
		return nil
	}

	t := components.NewTable(components.TaskColumns(), components.TaskRows(tasks), len(tasks), false)

	fmt.Fprintf(out, "\n%s\n\n", styles.TitleStyle.UnsetMarginBottom().Render(fmt.Sprintf("%s (%d files)", projectID, len(tasks))))
	fmt.Fprintln(out, t.View())
	if report.Skipped > 0 {
		fmt.Fprintln(out, styles.MutedStyle.Render(fmt.Sprintf("%d entries filtered by suffix %v", report.Skipped, cfg.Skip)))
	}
	return nil
}

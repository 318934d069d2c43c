package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kerbaras/anonclone/pkg/app"
	"github.com/kerbaras/anonclone/pkg/app/styles"
	"github.com/kerbaras/anonclone/pkg/config"
	"github.com/kerbaras/anonclone/pkg/services"
)

func newCloneCmd() *cobra.Command {
	cloneCmd := &cobra.Command{
		Use:   "clone [project-id or url]",
		Short: "Download every file of a project",
		Long: "Download every file of an anonymized project. Files that already exist\n" +
			"are kept unless they hold a saved rate-limit page, so rerunning the same\n" +
			"command resumes an interrupted clone.",
		Example: "  anonclone clone --url https://anonymous.4open.science/r/840c8c57-3c32-451e-bf12-0e20be300389/\n" +
			"  anonclone clone --name 840c8c57-3c32-451e-bf12-0e20be300389 --dir out --max-conns 4",
		Args: maxArgs(1),
		RunE: runClone,
	}

	addProjectFlags(cloneCmd)
	cloneCmd.Flags().Int("max-conns", 2, "number of parallel downloads")
	cloneCmd.Flags().Int("retries", services.DefaultMaxAttempts, "attempts per file")
	cloneCmd.Flags().Duration("retry-delay", services.DefaultRetryDelay, "pause between attempts")
	cloneCmd.Flags().String("bucket", "", "write into a bucket URL (s3://, gs://, file://, mem://) instead of --dir")
	cloneCmd.Flags().Bool("tui", false, "show a full-screen progress view")

	return cloneCmd
}

func runClone(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr())

	source, err := newSource(cfg)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	repo, closeLedger := openLedger(cmd, cfg, logger)
	defer closeLedger()

	controllerConfig := services.ControllerConfig{
		Workers:     cfg.Workers,
		MaxAttempts: cfg.Retry.Attempts,
		RetryDelay:  cfg.Retry.Delay,
		Logger:      logger,
	}
	if repo != nil {
		controllerConfig.Ledger = repo
	}

	opts := services.CloneOptions{
		ProjectID: projectID,
		OutputDir: cfg.OutputDir,
		Skip:      cfg.Skip,
	}

	var result services.CloneResult
	if tui, _ := cmd.Flags().GetBool("tui"); tui {
		a := app.NewApp(ctx, opts)
		controllerConfig.Logger = a.Logger()
		result, err = a.Run(services.NewController(source, store, controllerConfig))
	} else {
		printBanner(out, projectID, store.Location(), cfg)
		opts.OnProgress = func(p services.DownloadProgress) {
			fmt.Fprintf(out, "%d/%d\r", p.Processed, p.Total)
		}
		result, err = services.NewController(source, store, controllerConfig).Clone(ctx, opts)
		if err == nil {
			fmt.Fprintln(out)
		}
	}
	if err != nil {
		return err
	}

	printResult(out, result)
	return result.Err()
}

func printBanner(w io.Writer, projectID, location string, cfg config.Config) {
	proxy := cfg.Proxy
	if proxy == "" {
		proxy = "none"
	}
	fmt.Fprintln(w, styles.TitleStyle.UnsetMarginBottom().Render("[*] cloning project: "+projectID))
	fmt.Fprintln(w, styles.MutedStyle.Render("\tproxy: "+proxy))
	fmt.Fprintln(w, styles.MutedStyle.Render("\toutput to: "+location))
	fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("\tmax connections: %d", cfg.Workers)))
	fmt.Fprintln(w, styles.TextStyle.Render("[*] downloading files:"))
}

func printResult(w io.Writer, result services.CloneResult) {
	s := result.Summary
	counts := fmt.Sprintf("\t%d downloaded, %d already present, %d failed, %d not started",
		s.Completed, s.Skipped, s.Failed, s.NotStarted)

	switch {
	case s.RateLimited:
		fmt.Fprintln(w, styles.StatusWarning.Render("[!] rate limited by the service, run the same command again later to resume"))
	case s.Failed > 0 || s.NotStarted > 0:
		fmt.Fprintln(w, styles.StatusError.Render("[!] some files were not downloaded, run the same command again to retry them"))
	}
	fmt.Fprintln(w, styles.MutedStyle.Render(counts))
	fmt.Fprintln(w, styles.StatusCompleted.Render("[*] files saved to: "+result.Location))
}

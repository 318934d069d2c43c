package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/kerbaras/anonclone/pkg/app/styles"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "anonclone",
		Short: "Clone repositories from anonymous.4open.science",
		Long: "Mirror the file tree of an anonymized repository into a local directory\n" +
			"or a bucket. Interrupted or rate-limited runs can be resumed by running\n" +
			"the same command again.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	f := rootCmd.PersistentFlags()
	f.String("config", "", "YAML config file")
	f.String("base", "", "service base URL")
	f.String("proxy", "", "proxy for HTTPS requests, host:port or URL")
	f.Duration("timeout", 0, "per-request timeout")
	f.String("ledger", "", "run history database (default ~/.anonclone/history.db)")
	f.Bool("no-ledger", false, "do not record runs")

	rootCmd.AddCommand(newCloneCmd())
	rootCmd.AddCommand(newTreeCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.StatusError.Render("Error:"), err)
	}
	return ExitCode(err)
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "[anonclone] ", 0)
}

// maxArgs is cobra.MaximumNArgs reported as a usage error.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

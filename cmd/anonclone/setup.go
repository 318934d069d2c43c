package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/kerbaras/anonclone/pkg/config"
	"github.com/kerbaras/anonclone/pkg/data"
	"github.com/kerbaras/anonclone/pkg/sources"
	"github.com/kerbaras/anonclone/pkg/storage"
	"github.com/kerbaras/anonclone/pkg/utils"
)

// addProjectFlags registers the ways of naming a project.
func addProjectFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "project id, e.g. 840c8c57-3c32-451e-bf12-0e20be300389 (wins over --url)")
	cmd.Flags().String("url", "", "project link, e.g. https://anonymous.4open.science/r/840c8c57-.../")
	cmd.Flags().StringSlice("skip", nil, "file suffixes not to download (default pyc)")
	cmd.Flags().String("dir", "", "output directory (default: the project id)")
}

// loadConfig layers defaults, the config file and explicitly set flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	flags := cmd.Flags()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if flags.Changed("base") {
		cfg.BaseURL, _ = flags.GetString("base")
	}
	if flags.Changed("proxy") {
		cfg.Proxy, _ = flags.GetString("proxy")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("ledger") {
		cfg.Ledger, _ = flags.GetString("ledger")
	}
	if flags.Lookup("dir") != nil && flags.Changed("dir") {
		cfg.OutputDir, _ = flags.GetString("dir")
	}
	if flags.Lookup("skip") != nil && flags.Changed("skip") {
		cfg.Skip, _ = flags.GetStringSlice("skip")
	}
	if flags.Lookup("max-conns") != nil && flags.Changed("max-conns") {
		cfg.Workers, _ = flags.GetInt("max-conns")
	}
	if flags.Lookup("retries") != nil && flags.Changed("retries") {
		cfg.Retry.Attempts, _ = flags.GetInt("retries")
	}
	if flags.Lookup("retry-delay") != nil && flags.Changed("retry-delay") {
		cfg.Retry.Delay, _ = flags.GetDuration("retry-delay")
	}
	if flags.Lookup("bucket") != nil && flags.Changed("bucket") {
		cfg.Bucket, _ = flags.GetString("bucket")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, usageError{err}
	}
	return cfg, nil
}

// resolveProjectID takes --name, then --url, then a positional argument
// that may be either.
func resolveProjectID(cmd *cobra.Command, args []string) (string, error) {
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		return name, nil
	}
	if link, _ := cmd.Flags().GetString("url"); link != "" {
		return ProjectIDFromURL(link)
	}
	if len(args) == 1 {
		if strings.Contains(args[0], "/") {
			return ProjectIDFromURL(args[0])
		}
		return args[0], nil
	}
	return "", usageError{errors.New("a project is required: pass --name, --url or an argument")}
}

// ProjectIDFromURL returns the path segment that follows "r".
func ProjectIDFromURL(link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", usageError{fmt.Errorf("parse url: %w", err)}
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, s := range segs {
		if s == "r" && i+1 < len(segs) && segs[i+1] != "" {
			return segs[i+1], nil
		}
	}
	return "", usageError{fmt.Errorf("no project id in %q, expected .../r/<id>/", link)}
}

func newSource(cfg config.Config) (*sources.Anonymous, error) {
	api, err := utils.NewAPI(cfg.BaseURL, utils.APIOptions{
		UserAgent: cfg.UserAgent,
		Proxy:     cfg.Proxy,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, usageError{err}
	}
	return sources.NewAnonymous(api), nil
}

// openStore returns the destination and a func releasing it.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	if cfg.Bucket != "" {
		store, err := storage.OpenBucketStore(ctx, cfg.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	return storage.NewLocalStore(cfg.OutputDir), func() {}, nil
}

func ledgerPath(cmd *cobra.Command, cfg config.Config) string {
	if off, _ := cmd.Flags().GetBool("no-ledger"); off {
		return ""
	}
	if cfg.Ledger != "" {
		return cfg.Ledger
	}
	return data.DefaultLedgerPath()
}

// openLedger never fails the run: an unusable ledger is reported and skipped.
func openLedger(cmd *cobra.Command, cfg config.Config, logger *log.Logger) (*data.Repository, func()) {
	path := ledgerPath(cmd, cfg)
	if path == "" {
		return nil, func() {}
	}
	repo, err := data.OpenRepository(path)
	if err != nil {
		logger.Printf("run history disabled: %v", err)
		return nil, func() {}
	}
	return repo, func() { repo.Close() }
}

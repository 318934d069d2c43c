package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kerbaras/anonclone/pkg/sources"
)

// Config is everything a clone run needs besides the project id.
type Config struct {
	BaseURL   string
	OutputDir string
	Workers   int
	Proxy     string
	Skip      []string
	UserAgent string
	Timeout   time.Duration
	Retry     RetryConfig
	// Ledger is the DuckDB history path; empty disables the ledger.
	Ledger string
	// Bucket, when set, replaces OutputDir with a gocloud.dev bucket URL.
	Bucket string
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

func Default() Config {
	return Config{
		BaseURL: sources.DefaultBaseURL,
		Workers: 2,
		Skip:    []string{"pyc"},
		Timeout: 60 * time.Second,
		Retry: RetryConfig{
			Attempts: 5,
			Delay:    400 * time.Millisecond,
		},
	}
}

// yamlConfig keeps durations as strings so "400ms" parses.
type yamlConfig struct {
	BaseURL   string          `yaml:"base_url"`
	OutputDir string          `yaml:"output_dir"`
	Workers   int             `yaml:"workers"`
	Proxy     string          `yaml:"proxy"`
	Skip      []string        `yaml:"skip"`
	UserAgent string          `yaml:"user_agent"`
	Timeout   string          `yaml:"timeout"`
	Retry     yamlRetryConfig `yaml:"retry"`
	Ledger    string          `yaml:"ledger"`
	Bucket    string          `yaml:"bucket"`
}

type yamlRetryConfig struct {
	Attempts int    `yaml:"attempts"`
	Delay    string `yaml:"delay"`
}

// LoadFromFile reads a YAML file on top of Default().
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.BaseURL != "" {
		cfg.BaseURL = yc.BaseURL
	}
	if yc.OutputDir != "" {
		cfg.OutputDir = yc.OutputDir
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	cfg.Proxy = yc.Proxy
	if yc.Skip != nil {
		cfg.Skip = yc.Skip
	}
	cfg.UserAgent = yc.UserAgent
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Delay != "" {
		d, err := time.ParseDuration(yc.Retry.Delay)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.delay: %w", err)
		}
		cfg.Retry.Delay = d
	}
	cfg.Ledger = expandHome(yc.Ledger)
	cfg.Bucket = yc.Bucket

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, errors.New("base_url is required"))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Retry.Attempts <= 0 {
		errs = append(errs, errors.New("retry.attempts must be positive"))
	}
	if c.Retry.Delay <= 0 {
		errs = append(errs, errors.New("retry.delay must be positive"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	for _, s := range c.Skip {
		if s == "" {
			errs = append(errs, errors.New("skip suffixes must not be empty"))
			break
		}
	}

	return errors.Join(errs...)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + strings.TrimPrefix(path, "~")
}

// Package cli defines the cobra command tree for the comment loader.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thorsell/comments/internal/client"
	"github.com/thorsell/comments/internal/config"
	"github.com/thorsell/comments/internal/logging"
)

var (
	flagConfig   string
	flagLogLevel string
	flagDev      bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "comments",
		Short:         "Load blog comments into pages",
		Long:          "Fetch the comments fragment from the comments endpoint and render it into a page's comment section, from the command line or through a page host.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: ~/.config/comments/config.yaml)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&flagDev, "dev", false, "human-readable colored logs")

	root.AddCommand(
		newLoadCmd(),
		newServeCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// configFile returns the --config path or the default location.
func configFile() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// settings loads the effective config and builds a logger writing to the
// command's stderr. Flags win over every other source.
func settings(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, err := configFile()
	if err != nil {
		return config.Config{}, nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagDev {
		cfg.DevMode = true
	}

	logger := logging.NewLogger(cmd.ErrOrStderr(), logging.ParseLevel(cfg.LogLevel), cfg.DevMode)
	logger.Debug("config loaded", "path", path, "base_url", cfg.BaseURL, "endpoint", cfg.Endpoint)
	return cfg, logger, nil
}

// newFetcher creates the fragment client for cfg.
func newFetcher(cfg config.Config) *client.Client {
	return client.New(cfg.BaseURL, client.Options{
		StrictStatus: cfg.StrictStatus,
		UserAgent:    "comments/" + Version,
	})
}

// commandContext returns the command's context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

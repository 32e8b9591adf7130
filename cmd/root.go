// Package cmd defines the CLI commands for the noticecrawler executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusfeed/notice-crawler/internal/config"
	"github.com/campusfeed/notice-crawler/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noticecrawler",
		Short: "Crawls university notice boards into Postgres and chat webhooks.",
		Long: `noticecrawler scrapes the department notice boards, enriches each new
posting with an AI summary and extracted schedules, persists the result and
fans it out to every registered webhook destination.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults plus NOTICE_* env vars when omitted)")

	cmd.AddCommand(
		newCrawlCmd(),
		newMigrateCmd(),
		newWebhookCmd(),
		newRefreshSchedulesCmd(),
	)
	return cmd
}

// Execute is the main entry point. SIGINT/SIGTERM cancel the command
// context so a running crawl stops at the next pacing point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the process logger shared by every
// subcommand.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

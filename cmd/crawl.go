package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusfeed/notice-crawler/internal/clock/system"
	"github.com/campusfeed/notice-crawler/internal/config"
	enrichopenai "github.com/campusfeed/notice-crawler/internal/enrich/openai"
	collyfetcher "github.com/campusfeed/notice-crawler/internal/fetcher/colly"
	"github.com/campusfeed/notice-crawler/internal/id/uuid"
	"github.com/campusfeed/notice-crawler/internal/notify"
	"github.com/campusfeed/notice-crawler/internal/store/postgres"
	"github.com/campusfeed/notice-crawler/internal/worker"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl cycle over every configured board",
		Long: `Fetches the listing pages of each configured board in order, ingests
every posting not yet known to the store, and fans freshly persisted
postings out to all active webhook destinations. The first board failure
aborts the remaining run.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	runID, err := uuid.New().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))

	w, store, err := buildPipeline(cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := w.Run(cmd.Context()); err != nil {
		return fmt.Errorf("crawl run: %w", err)
	}
	return nil
}

// buildPipeline assembles the full worker from config. The caller owns the
// returned store.
func buildPipeline(cmd *cobra.Command, cfg config.Config, logger *zap.Logger) (*worker.Worker, *postgres.Store, error) {
	store, err := postgres.New(cmd.Context(), postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: cfg.DB.ConnLifetime(),
	}, logger.Named("store"))
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	enricher, err := enrichopenai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger.Named("enrich"))
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("init enricher: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.Crawler.FetchTimeout(),
	})
	fanout := notify.NewFanout(store, notify.FanoutConfig{
		BatchSize:  cfg.Webhook.BatchSize,
		BatchPause: cfg.Webhook.BatchPause(),
		Timeout:    cfg.Webhook.Timeout(),
	}, logger.Named("fanout"))
	admin := notify.NewAdmin(cfg.Webhook.AdminURL, cfg.Webhook.Timeout(), logger.Named("admin"))

	w := worker.New(fetcher, store, enricher, fanout, admin, system.New(), worker.Config{
		Boards:       cfg.BoardList(),
		Pages:        cfg.Crawler.Pages,
		PostingDelay: cfg.Crawler.PostingDelay(),
		BoardDelay:   cfg.Crawler.BoardDelay(),
	}, logger.Named("worker"))
	return w, store, nil
}

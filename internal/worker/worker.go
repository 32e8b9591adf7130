// Package worker drives one crawl cycle across the configured boards.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusfeed/notice-crawler/internal/notice"
	"github.com/campusfeed/notice-crawler/internal/parser"
)

// Notifier fans freshly persisted postings out to webhook destinations.
type Notifier interface {
	Deliver(ctx context.Context, postings []notice.Posting)
}

// AdminNotifier reports fatal run failures to the operator channel.
type AdminNotifier interface {
	ReportError(ctx context.Context, msg string)
}

// Config controls crawl breadth and pacing.
type Config struct {
	Boards []notice.Board
	// Pages is the number of listing pages fetched per board, front to back.
	Pages int
	// PostingDelay is the pause after each persisted posting, BoardDelay the
	// pause after each board. Both respect the source's and the enrichment
	// service's rate limits.
	PostingDelay time.Duration
	BoardDelay   time.Duration
}

// Worker runs the pipeline sequentially: one board at a time, one posting at
// a time. There is no shared mutable state and no retry anywhere; a failure
// aborts per the fail-fast policy in Run.
type Worker struct {
	fetcher  notice.Fetcher
	store    notice.Store
	enricher notice.Enricher
	notifier Notifier
	admin    AdminNotifier
	clock    notice.Clock
	detail   parser.DetailParser
	cfg      Config
	logger   *zap.Logger
}

// New wires the pipeline together.
func New(
	fetcher notice.Fetcher,
	store notice.Store,
	enricher notice.Enricher,
	notifier Notifier,
	admin AdminNotifier,
	clock notice.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.Pages <= 0 {
		cfg.Pages = 1
	}
	return &Worker{
		fetcher:  fetcher,
		store:    store,
		enricher: enricher,
		notifier: notifier,
		admin:    admin,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run crawls every configured board in order. The first board that fails
// aborts the entire remaining run: the error is reported to the admin
// channel and returned. A rerun is naturally idempotent because "new" is
// re-derived from the dedup check.
func (w *Worker) Run(ctx context.Context) error {
	started := w.clock.Now()
	for _, board := range w.cfg.Boards {
		if err := w.crawlBoard(ctx, board); err != nil {
			w.logger.Error("board crawl failed, aborting run",
				zap.String("board", board.Name), zap.Error(err))
			w.admin.ReportError(ctx, fmt.Sprintf("board %s: %v", board.Name, err))
			return fmt.Errorf("crawl board %s: %w", board.Name, err)
		}
		if err := w.pause(ctx, w.cfg.BoardDelay); err != nil {
			return err
		}
	}
	w.logger.Info("crawl run finished",
		zap.Int("boards", len(w.cfg.Boards)),
		zap.Duration("elapsed", w.clock.Now().Sub(started)))
	return nil
}

// crawlBoard walks the board's listing pages front to back, ingests every
// unseen posting and fans the fresh ones out in one delivery at the end.
func (w *Worker) crawlBoard(ctx context.Context, board notice.Board) error {
	logger := w.logger.With(zap.String("board", board.Name))
	var fresh []notice.Posting

	for page := 1; page <= w.cfg.Pages; page++ {
		listURL := parser.ListPageURL(board.URL, page)
		markup, err := w.fetcher.Fetch(ctx, listURL)
		if err != nil {
			return fmt.Errorf("fetch listing page %d: %w", page, err)
		}
		items, err := parser.ParseList(markup)
		if err != nil {
			return fmt.Errorf("parse listing page %d: %w", page, err)
		}
		logger.Info("listing page parsed",
			zap.Int("page", page), zap.Int("items", len(items)))

		for _, item := range items {
			if item.Title == "" {
				logger.Warn("listing item without title anchor, skipping")
				continue
			}

			known, err := w.store.Exists(ctx, item.Title)
			if err != nil {
				return fmt.Errorf("dedup check %q: %w", item.Title, err)
			}
			if known {
				logger.Debug("posting already known", zap.String("title", item.Title))
				continue
			}

			saved, err := w.ingest(ctx, board, item)
			if err != nil {
				return fmt.Errorf("ingest %q: %w", item.Title, err)
			}
			fresh = append(fresh, saved)
			logger.Info("posting ingested",
				zap.Int64("id", saved.ID), zap.String("title", saved.Title))

			if err := w.pause(ctx, w.cfg.PostingDelay); err != nil {
				return err
			}
		}
	}

	if len(fresh) > 0 {
		w.notifier.Deliver(ctx, fresh)
	}
	return nil
}

// ingest runs one unseen posting through detail fetch, enrichment and
// persistence. Summarization never fails; schedule extraction may, and its
// error propagates.
func (w *Worker) ingest(ctx context.Context, board notice.Board, item notice.ListItem) (notice.Posting, error) {
	detailURL := board.URL + item.URL
	markup, err := w.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return notice.Posting{}, fmt.Errorf("fetch detail: %w", err)
	}
	detail, err := w.detail.Parse(markup, board.URL)
	if err != nil {
		return notice.Posting{}, err
	}

	summary := w.enricher.Summarize(ctx, detail.Title, detail.Content)
	schedules, err := w.enricher.ExtractSchedules(ctx, detail.Title, detail.Content)
	if err != nil {
		return notice.Posting{}, fmt.Errorf("extract schedules: %w", err)
	}

	posting := notice.Posting{
		Title:           detail.Title,
		Content:         detail.Content,
		Writer:          detail.Writer,
		WriterEmail:     detail.Email,
		PublishDate:     parsePublishDate(detail.Date),
		IsNotice:        item.IsNotice,
		SummaryTitle:    summary.Title,
		SummaryContent:  summary.Content,
		MarkdownContent: summary.Markdown,
		OriginalURL:     detailURL,
		Category:        board.Category,
		Files:           detail.Files,
		Schedules:       schedules,
	}
	for _, src := range detail.Images {
		posting.Images = append(posting.Images, notice.Image{URL: src})
	}

	saved, err := w.store.Save(ctx, posting)
	if err != nil {
		return notice.Posting{}, fmt.Errorf("save posting: %w", err)
	}
	return saved, nil
}

// RefreshSchedules re-extracts schedules for the most recently ingested
// postings and wholesale-replaces each posting's stored set. Unknown titles
// are a store-level no-op.
func (w *Worker) RefreshSchedules(ctx context.Context, limit int) error {
	postings, err := w.store.RecentPostings(ctx, limit)
	if err != nil {
		return fmt.Errorf("load recent postings: %w", err)
	}

	for _, p := range postings {
		schedules, err := w.enricher.ExtractSchedules(ctx, p.Title, p.Content)
		if err != nil {
			return fmt.Errorf("extract schedules for %q: %w", p.Title, err)
		}
		if err := w.store.ReplaceSchedules(ctx, p.Title, schedules); err != nil {
			return fmt.Errorf("replace schedules for %q: %w", p.Title, err)
		}
		w.logger.Info("schedules refreshed",
			zap.String("title", p.Title), zap.Int("schedules", len(schedules)))
	}
	return nil
}

func (w *Worker) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// parsePublishDate reads the board's dotted date format ("2025.03.02",
// sometimes with a trailing dot). An unparseable date yields nil rather
// than an error.
func parsePublishDate(raw string) *time.Time {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ".", "-")
	cleaned = strings.TrimSuffix(cleaned, "-")
	t, err := time.ParseInLocation("2006-01-02", cleaned, notice.KST)
	if err != nil {
		return nil
	}
	return &t
}

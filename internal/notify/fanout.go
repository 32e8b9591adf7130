// Package notify delivers enriched postings to webhook destinations and
// run failures to the admin channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/campusfeed/notice-crawler/internal/notice"
)

// payload is the body POSTed to every destination.
type payload struct {
	Content string `json:"content"`
}

// FanoutConfig controls batching and pacing of webhook delivery.
type FanoutConfig struct {
	BatchSize  int
	BatchPause time.Duration
	Timeout    time.Duration
}

// Fanout delivers each posting to every active destination, one store-paged
// batch at a time so a large destination set never loads at once.
type Fanout struct {
	store  notice.Store
	client *http.Client
	cfg    FanoutConfig
	logger *zap.Logger
}

// NewFanout builds a Fanout.
func NewFanout(store notice.Store, cfg FanoutConfig, logger *zap.Logger) *Fanout {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchPause == 0 {
		cfg.BatchPause = 100 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Fanout{
		store:  store,
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// Deliver sends every posting to every active destination. Per-destination
// failures are isolated: a gone endpoint is deactivated, any other failure
// is logged, and delivery always continues with the remaining destinations
// and postings.
func (f *Fanout) Deliver(ctx context.Context, postings []notice.Posting) {
	if len(postings) == 0 {
		return
	}

	total, err := f.store.CountActiveWebhooks(ctx)
	if err != nil {
		f.logger.Error("count active webhooks failed", zap.Error(err))
		return
	}
	if total == 0 {
		f.logger.Info("no active webhook destinations")
		return
	}
	f.logger.Info("fanning out postings",
		zap.Int("postings", len(postings)), zap.Int("destinations", total))

	for _, p := range postings {
		f.deliverOne(ctx, p)
	}
}

func (f *Fanout) deliverOne(ctx context.Context, p notice.Posting) {
	content := p.MarkdownContent
	if content == "" {
		content = "No summary available."
	}
	content += fmt.Sprintf("\n\n🔗 **Original link**: %s", p.OriginalURL)

	for offset := 0; ; offset += f.cfg.BatchSize {
		batch, err := f.store.ActiveWebhooks(ctx, f.cfg.BatchSize, offset)
		if err != nil {
			f.logger.Error("load webhook batch failed",
				zap.Int("offset", offset), zap.Error(err))
			return
		}
		if len(batch) == 0 {
			return
		}

		for _, hook := range batch {
			f.send(ctx, hook, content, p.Title)
		}

		// Short pause between batches to bound the outbound request rate.
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.cfg.BatchPause):
		}
	}
}

func (f *Fanout) send(ctx context.Context, hook notice.Webhook, content, title string) {
	status, err := postJSON(ctx, f.client, hook.URL, payload{Content: content})
	switch {
	case err != nil:
		f.logger.Warn("webhook delivery failed",
			zap.Int64("webhook_id", hook.ID), zap.Error(err))
	case status == http.StatusNotFound || status == http.StatusGone:
		f.logger.Warn("webhook destination gone, deactivating",
			zap.Int64("webhook_id", hook.ID), zap.String("url", hook.URL))
		if err := f.store.DeactivateWebhook(ctx, hook.ID); err != nil {
			f.logger.Error("deactivate webhook failed",
				zap.Int64("webhook_id", hook.ID), zap.Error(err))
		}
	case status >= http.StatusMultipleChoices:
		f.logger.Warn("webhook delivery rejected",
			zap.Int64("webhook_id", hook.ID), zap.Int("status", status))
	default:
		f.logger.Debug("webhook delivered",
			zap.Int64("webhook_id", hook.ID), zap.String("title", title))
	}
}

func postJSON(ctx context.Context, client *http.Client, url string, body any) (int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body is not read
	return resp.StatusCode, nil
}

package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Admin posts fatal run failures to a dedicated operator webhook. Reporting
// is best-effort: a missing URL or failed delivery is logged, never
// propagated, so it cannot mask the error being reported.
type Admin struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewAdmin builds an Admin reporter. An empty URL disables reporting.
func NewAdmin(url string, timeout time.Duration, logger *zap.Logger) *Admin {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Admin{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// ReportError delivers one consolidated error message to the admin channel.
func (a *Admin) ReportError(ctx context.Context, msg string) {
	if a.url == "" {
		a.logger.Warn("admin webhook not configured, dropping error report",
			zap.String("error", msg))
		return
	}

	body := payload{Content: fmt.Sprintf("🚨 **Crawler error**\n```\n%s\n```", msg)}
	status, err := postJSON(ctx, a.client, a.url, body)
	if err != nil {
		a.logger.Error("admin webhook delivery failed", zap.Error(err))
		return
	}
	if status >= http.StatusMultipleChoices {
		a.logger.Error("admin webhook rejected report", zap.Int("status", status))
		return
	}
	a.logger.Info("error reported to admin webhook")
}

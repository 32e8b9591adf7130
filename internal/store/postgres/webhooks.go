package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campusfeed/notice-crawler/internal/notice"
)

func scanWebhooks(rows pgx.Rows) ([]notice.Webhook, error) {
	var hooks []notice.Webhook
	for rows.Next() {
		var hook notice.Webhook
		if err := rows.Scan(&hook.ID, &hook.URL, &hook.IsActive, &hook.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		hooks = append(hooks, hook)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhooks: %w", err)
	}
	return hooks, nil
}

// CountActiveWebhooks returns the number of active destinations.
func (s *Store) CountActiveWebhooks(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM webhooks WHERE is_active = TRUE`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active webhooks: %w", err)
	}
	return count, nil
}

// ActiveWebhooks returns one batch of active destinations in stable
// ascending id order, so batched iteration never skips or repeats rows.
func (s *Store) ActiveWebhooks(ctx context.Context, limit, offset int) ([]notice.Webhook, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, url, is_active, created_at
FROM webhooks
WHERE is_active = TRUE
ORDER BY id
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query active webhooks: %w", err)
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

// DeactivateWebhook marks a destination inactive. A missing or already
// inactive destination is reported but is not an error.
func (s *Store) DeactivateWebhook(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE webhooks SET is_active = FALSE WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("deactivate webhook %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Warn("webhook not found or already inactive", zap.Int64("id", id))
		return nil
	}
	s.logger.Info("webhook deactivated", zap.Int64("id", id))
	return nil
}

// CreateWebhook registers a new active destination.
func (s *Store) CreateWebhook(ctx context.Context, url string) (notice.Webhook, error) {
	var hook notice.Webhook
	hook.URL = url
	err := s.pool.QueryRow(ctx,
		`INSERT INTO webhooks (url) VALUES ($1) RETURNING id, is_active, created_at`, url,
	).Scan(&hook.ID, &hook.IsActive, &hook.CreatedAt)
	if err != nil {
		return notice.Webhook{}, fmt.Errorf("create webhook: %w", err)
	}
	return hook, nil
}

// Webhooks returns every destination, active or not.
func (s *Store) Webhooks(ctx context.Context) ([]notice.Webhook, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, is_active, created_at FROM webhooks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

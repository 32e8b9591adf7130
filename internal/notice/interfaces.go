package notice

import (
	"context"
	"time"
)

// Store persists postings and their owned children, and manages webhook
// destinations. Implementations must make Exists an indexed lookup, keep
// Save logically atomic via compensating deletes on partial failure, and
// preserve delete-then-insert ordering in ReplaceSchedules.
type Store interface {
	// Exists reports whether a posting with the given title is already known,
	// by fingerprint.
	Exists(ctx context.Context, title string) (bool, error)

	// Save inserts a posting plus its images, files and schedules as one
	// logical unit and returns the persisted posting with IDs filled in.
	Save(ctx context.Context, p Posting) (Posting, error)

	// ReplaceSchedules swaps the full schedule set of the posting identified
	// by title. An unknown title is a no-op, not an error.
	ReplaceSchedules(ctx context.Context, title string, schedules []Schedule) error

	// RecentPostings returns the most recently created postings.
	RecentPostings(ctx context.Context, limit int) ([]Posting, error)

	CountActiveWebhooks(ctx context.Context) (int, error)

	// ActiveWebhooks returns one batch of active destinations in stable
	// ascending id order.
	ActiveWebhooks(ctx context.Context, limit, offset int) ([]Webhook, error)

	// DeactivateWebhook marks a destination inactive. Unknown or already
	// inactive ids are a no-op.
	DeactivateWebhook(ctx context.Context, id int64) error

	CreateWebhook(ctx context.Context, url string) (Webhook, error)
	Webhooks(ctx context.Context) ([]Webhook, error)

	Close()
}

// Fetcher retrieves one page of raw markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Enricher produces language-model output for a posting. Summarize must
// never fail past its boundary; ExtractSchedules may.
type Enricher interface {
	Summarize(ctx context.Context, title, content string) Summary
	ExtractSchedules(ctx context.Context, title, content string) ([]Schedule, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

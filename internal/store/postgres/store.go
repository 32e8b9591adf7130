// Package postgres provides the Postgres-backed notice store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/campusfeed/notice-crawler/internal/hash/sha256"
	"github.com/campusfeed/notice-crawler/internal/notice"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the slice of pgxpool.Pool the store uses; pgxmock stands in for it
// in tests.
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements notice.Store on top of a pgx connection pool.
//
// Save is made logically atomic through explicit compensation rather than a
// transaction: the same contract must hold for backing stores without
// cross-entity transactions, so the parent and any written children are
// deleted by hand when a later child insert fails.
type Store struct {
	pool   pool
	logger *zap.Logger
}

// New connects a Store using the provided config.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, logger: logger}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(p pool, logger *zap.Logger) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: p, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Exists reports whether a posting with the given title is already known.
// The lookup goes through the unique fingerprint index, never a scan.
func (s *Store) Exists(ctx context.Context, title string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM postings WHERE fingerprint = $1 LIMIT 1`,
		sha256.Fingerprint(title),
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query posting existence: %w", err)
	}
	return true, nil
}

// Save inserts the posting row, then its images, files and schedules. If any
// child insert fails after the parent succeeded, every child table and then
// the parent are cleaned up before the original error is returned.
func (s *Store) Save(ctx context.Context, p notice.Posting) (notice.Posting, error) {
	p.Fingerprint = sha256.Fingerprint(p.Title)

	err := s.pool.QueryRow(ctx, `
INSERT INTO postings (
	title, content, writer, writer_email, publish_date, is_notice,
	summary_title, summary_content, markdown_content,
	original_url, ignore_flag, fingerprint, category
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id, created_at, updated_at`,
		p.Title, p.Content, p.Writer, p.WriterEmail, p.PublishDate, p.IsNotice,
		p.SummaryTitle, p.SummaryContent, p.MarkdownContent,
		p.OriginalURL, p.IgnoreFlag, p.Fingerprint, p.Category,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return notice.Posting{}, fmt.Errorf("insert posting: %w", err)
	}

	if err := s.insertChildren(ctx, &p); err != nil {
		s.compensate(ctx, p.ID)
		return notice.Posting{}, err
	}

	s.logger.Info("posting saved",
		zap.Int64("id", p.ID), zap.String("title", p.Title))
	return p, nil
}

func (s *Store) insertChildren(ctx context.Context, p *notice.Posting) error {
	for i := range p.Images {
		p.Images[i].PostingID = p.ID
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO posting_images (url, posting_id) VALUES ($1, $2)`,
			p.Images[i].URL, p.ID,
		); err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
	}
	for i := range p.Files {
		p.Files[i].PostingID = p.ID
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO posting_files (filename, url, posting_id) VALUES ($1, $2, $3)`,
			p.Files[i].Filename, p.Files[i].URL, p.ID,
		); err != nil {
			return fmt.Errorf("insert file: %w", err)
		}
	}
	for i := range p.Schedules {
		p.Schedules[i].PostingID = p.ID
		if err := s.insertSchedule(ctx, p.ID, p.Schedules[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertSchedule(ctx context.Context, postingID int64, sched notice.Schedule) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO schedules (title, description, begin_at, end_at, is_ignored, posting_id)
VALUES ($1, $2, $3, $4, $5, $6)`,
		sched.Title, sched.Description, sched.Begin, sched.End, sched.IsIgnored, postingID,
	); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// compensate removes whatever part of a posting made it to disk. Every child
// table is attempted even when an earlier cleanup fails; cleanup errors are
// logged and never mask the error that triggered compensation.
func (s *Store) compensate(ctx context.Context, postingID int64) {
	cleanups := []struct {
		table string
		query string
	}{
		{"schedules", `DELETE FROM schedules WHERE posting_id = $1`},
		{"posting_files", `DELETE FROM posting_files WHERE posting_id = $1`},
		{"posting_images", `DELETE FROM posting_images WHERE posting_id = $1`},
		{"postings", `DELETE FROM postings WHERE id = $1`},
	}
	for _, c := range cleanups {
		if _, err := s.pool.Exec(ctx, c.query, postingID); err != nil {
			s.logger.Error("compensating delete failed",
				zap.String("table", c.table),
				zap.Int64("posting_id", postingID),
				zap.Error(err))
		}
	}
}

// ReplaceSchedules swaps the full schedule set of the posting identified by
// title. An unknown title is an informational no-op. The existing set is
// deleted before the new one is inserted.
func (s *Store) ReplaceSchedules(ctx context.Context, title string, schedules []notice.Schedule) error {
	var postingID int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM postings WHERE fingerprint = $1 LIMIT 1`,
		sha256.Fingerprint(title),
	).Scan(&postingID)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Info("no posting for schedule replacement", zap.String("title", title))
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up posting for schedules: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM schedules WHERE posting_id = $1`, postingID,
	); err != nil {
		return fmt.Errorf("delete existing schedules: %w", err)
	}
	for _, sched := range schedules {
		if err := s.insertSchedule(ctx, postingID, sched); err != nil {
			return err
		}
	}

	s.logger.Info("schedules replaced",
		zap.String("title", title), zap.Int("count", len(schedules)))
	return nil
}

// RecentPostings returns the most recently created postings.
func (s *Store) RecentPostings(ctx context.Context, limit int) ([]notice.Posting, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, title, content, writer, writer_email, publish_date, is_notice,
	summary_title, summary_content, markdown_content,
	original_url, ignore_flag, fingerprint, category, created_at, updated_at
FROM postings
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent postings: %w", err)
	}
	defer rows.Close()

	var postings []notice.Posting
	for rows.Next() {
		var p notice.Posting
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Content, &p.Writer, &p.WriterEmail,
			&p.PublishDate, &p.IsNotice,
			&p.SummaryTitle, &p.SummaryContent, &p.MarkdownContent,
			&p.OriginalURL, &p.IgnoreFlag, &p.Fingerprint, &p.Category,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}
	return postings, nil
}

// Package store archives successful scrapes in Postgres.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/xhad/pagechat/internal/models"
	"github.com/xhad/pagechat/pkg/content"
)

// Pool is the subset of pgxpool.Pool used by History.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// MaxLimit bounds the number of entries a single Recent call returns.
const MaxLimit = 100

type HistoryConfig struct {
	ConnString   string
	PreviewChars int
	DefaultLimit int
	MaxConns     int32
}

// History is an append-only log of scraped documents.
type History struct {
	config HistoryConfig
	pool   Pool
}

const historyMigration = `
CREATE TABLE IF NOT EXISTS scrape_history (
	id             TEXT PRIMARY KEY,
	url            TEXT NOT NULL,
	content        TEXT NOT NULL,
	content_length INTEGER NOT NULL,
	scraped_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS scrape_history_scraped_at_idx ON scrape_history (scraped_at DESC);
`

const (
	insertHistory = `INSERT INTO scrape_history (id, url, content, content_length, scraped_at) VALUES ($1, $2, $3, $4, $5)`
	recentHistory = `SELECT id, url, content, content_length, scraped_at FROM scrape_history ORDER BY scraped_at DESC LIMIT $1`
)

// NewWithConfig connects to Postgres and creates the history table.
func NewWithConfig(ctx context.Context, config HistoryConfig) (*History, error) {
	pgxCfg, err := pgxpool.ParseConfig(config.ConnString)
	if err != nil {
		return nil, eris.Wrap(err, "history: parse config")
	}
	if config.MaxConns > 0 {
		pgxCfg.MaxConns = config.MaxConns
	}
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "history: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "history: ping")
	}

	h := NewWithPool(config, pool)
	if err := h.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return h, nil
}

func NewWithPool(config HistoryConfig, pool Pool) *History {
	if config.PreviewChars <= 0 {
		config.PreviewChars = 200
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 20
	}
	config.DefaultLimit = min(config.DefaultLimit, MaxLimit)
	return &History{config: config, pool: pool}
}

func (h *History) Migrate(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, historyMigration); err != nil {
		return eris.Wrap(err, "history: migrate")
	}
	return nil
}

func (h *History) Record(ctx context.Context, doc models.ScrapedDocument) error {
	scrapedAt := doc.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}

	_, err := h.pool.Exec(ctx, insertHistory,
		uuid.NewString(), doc.URL, doc.Text, doc.Length, scrapedAt.UTC())
	if err != nil {
		return eris.Wrapf(err, "history: record %s", doc.URL)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// falls back to the configured default and limit is capped at MaxLimit.
func (h *History) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}
	limit = min(limit, MaxLimit)

	rows, err := h.pool.Query(ctx, recentHistory, limit)
	if err != nil {
		return nil, eris.Wrap(err, "history: query recent")
	}
	defer rows.Close()

	entries := make([]models.HistoryEntry, 0, min(limit, h.config.DefaultLimit))
	for rows.Next() {
		var (
			entry models.HistoryEntry
			text  string
		)
		if err := rows.Scan(&entry.ID, &entry.URL, &text, &entry.Length, &entry.ScrapedAt); err != nil {
			return nil, eris.Wrap(err, "history: scan row")
		}
		entry.Preview = content.Preview(text, h.config.PreviewChars)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "history: iterate rows")
	}

	return entries, nil
}

func (h *History) Close() {
	h.pool.Close()
}

package storage

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/ports"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
    id               TEXT PRIMARY KEY,
    url              TEXT NOT NULL UNIQUE,
    title            TEXT NOT NULL,
    subtitle         TEXT NOT NULL DEFAULT '',
    body             TEXT NOT NULL,
    author           TEXT NOT NULL DEFAULT '',
    newspaper        TEXT NOT NULL,
    keyword          TEXT NOT NULL,
    section          TEXT NOT NULL DEFAULT '',
    tags             TEXT[] NOT NULL DEFAULT '{}',
    publication_date TEXT NOT NULL DEFAULT '',
    last_update      TEXT NOT NULL DEFAULT '',
    acquisition_date TEXT NOT NULL,
    subject          TEXT NOT NULL DEFAULT '',
    action           TEXT NOT NULL DEFAULT '',
    accepted         BOOLEAN NOT NULL,
    accepted_by      TEXT NOT NULL DEFAULT '',
    gangs            TEXT[] NOT NULL DEFAULT '{}',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS visited_urls (
    url        TEXT PRIMARY KEY,
    newspaper  TEXT NOT NULL,
    visited_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS visited_urls_newspaper_idx ON visited_urls (newspaper);
`

// PostgresStore persists articles and the fetch history into Postgres.
type PostgresStore struct {
	db     *sqlx.DB
	psql   sq.StatementBuilderType
	logger *slog.Logger
}

var (
	_ ports.ArticleStore   = (*PostgresStore)(nil)
	_ ports.HistoryStore   = (*PostgresStore)(nil)
	_ ports.AcceptedLister = (*PostgresStore)(nil)
)

// promoteRejected lets a recheck run turn a stored rejection into an acceptance.
// Any other conflict leaves the row untouched and affects no rows.
const promoteRejected = `ON CONFLICT (url) DO UPDATE SET
    keyword = EXCLUDED.keyword,
    subject = EXCLUDED.subject,
    action = EXCLUDED.action,
    accepted = EXCLUDED.accepted,
    accepted_by = EXCLUDED.accepted_by,
    gangs = EXCLUDED.gangs
WHERE NOT articles.accepted AND EXCLUDED.accepted`

// ConnectPostgres opens and pings a pool for dsn.
func ConnectPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// NewPostgresStore wires an sqlx handle.
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		db:     db,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}
}

// EnsureSchema creates the tables when missing.
func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveArticle inserts the article. A conflicting URL is reported as domain.ErrDuplicate
// unless it upgrades a rejected row to accepted.
func (r *PostgresStore) SaveArticle(ctx context.Context, article domain.Article) error {
	gangs := article.Verdict.Gangs
	if gangs == nil {
		gangs = []string{}
	}
	tags := article.Tags
	if tags == nil {
		tags = []string{}
	}

	query, args, err := r.psql.Insert("articles").
		Columns(
			"id", "url", "title", "subtitle", "body", "author", "newspaper", "keyword",
			"section", "tags", "publication_date", "last_update", "acquisition_date",
			"subject", "action", "accepted", "accepted_by", "gangs",
		).
		Values(
			article.ID, article.URL, article.Title, article.Subtitle, article.Body,
			article.Author, article.Newspaper, article.Keyword, article.Section,
			pq.StringArray(tags), article.PublicationDate, article.LastUpdate,
			article.AcquisitionDate, article.Verdict.Subject, article.Verdict.Action,
			article.Verdict.Accepted, article.Verdict.AcceptedBy, pq.StringArray(gangs),
		).
		Suffix(promoteRejected).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert article %s: %w", article.URL, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, article.URL)
	}
	return nil
}

// RecordSeenURL inserts the URL once.
func (r *PostgresStore) RecordSeenURL(ctx context.Context, url, source string) error {
	query, args, err := r.psql.Insert("visited_urls").
		Columns("url", "newspaper").
		Values(url, source).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record visited %s: %w", url, err)
	}
	return nil
}

// SeenURLs returns the history for one source.
func (r *PostgresStore) SeenURLs(ctx context.Context, source string) ([]string, error) {
	query, args, err := r.psql.Select("url").
		From("visited_urls").
		Where(sq.Eq{"newspaper": source}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var urls []string
	if err := r.db.SelectContext(ctx, &urls, query, args...); err != nil {
		return nil, fmt.Errorf("query visited: %w", err)
	}
	return urls, nil
}

// AcceptedURLs returns the accepted article URLs of one source.
func (r *PostgresStore) AcceptedURLs(ctx context.Context, source string) ([]string, error) {
	query, args, err := r.psql.Select("url").
		From("articles").
		Where(sq.Eq{"newspaper": source}).
		Where(sq.Eq{"accepted": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var urls []string
	if err := r.db.SelectContext(ctx, &urls, query, args...); err != nil {
		return nil, fmt.Errorf("query accepted: %w", err)
	}
	return urls, nil
}

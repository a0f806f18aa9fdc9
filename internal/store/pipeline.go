// Package store persists parsed documents into Postgres. Rendered pages
// land in the pages table and binary documents in the files table, both
// keyed by normalized URL so re-crawls update in place.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/askthws/harvester/internal/harvest"
	"github.com/askthws/harvester/internal/textutil"
)

// DefaultBlobThreshold is the payload size above which raw content is
// diverted to the blob store instead of being embedded in the row.
const DefaultBlobThreshold = 15 << 20

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and table layout.
type Config struct {
	DSN             string
	PagesTable      string
	FilesTable      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// BlobThreshold overrides DefaultBlobThreshold when positive.
	BlobThreshold int64
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Pipeline routes parsed records into the pages and files tables.
type Pipeline struct {
	pool       execCloser
	blobs      harvest.BlobStore
	pagesTable string
	filesTable string
	threshold  int64
	logger     *zap.Logger
}

// New creates a Postgres-backed Pipeline using the provided config.
func New(ctx context.Context, cfg Config, blobs harvest.BlobStore, logger *zap.Logger) (*Pipeline, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
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
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(pool, cfg, blobs, logger)
}

// NewWithPool constructs a Pipeline from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, cfg Config, blobs harvest.BlobStore, logger *zap.Logger) (*Pipeline, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	pagesTable := cfg.PagesTable
	if pagesTable == "" {
		pagesTable = "pages"
	}
	filesTable := cfg.FilesTable
	if filesTable == "" {
		filesTable = "files"
	}
	for _, table := range []string{pagesTable, filesTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	threshold := cfg.BlobThreshold
	if threshold <= 0 {
		threshold = DefaultBlobThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		pool:       pool,
		blobs:      blobs,
		pagesTable: pagesTable,
		filesTable: filesTable,
		threshold:  threshold,
		logger:     logger,
	}, nil
}

// Close releases the underlying pool resources.
func (p *Pipeline) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// EnsureSchema creates the pages and files tables if they do not exist.
func (p *Pipeline) EnsureSchema(ctx context.Context) error {
	pagesDDL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	language TEXT NOT NULL,
	http_status INT NOT NULL,
	content_date TIMESTAMPTZ,
	fetched_at TIMESTAMPTZ NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, p.pagesTable)
	if _, err := p.pool.Exec(ctx, pagesDDL); err != nil {
		return fmt.Errorf("create table %s: %w", p.pagesTable, err)
	}

	filesDDL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	language TEXT NOT NULL,
	http_status INT NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	size_bytes BIGINT NOT NULL,
	content BYTEA,
	blob_uri TEXT,
	parse_error TEXT NOT NULL DEFAULT '',
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, p.filesTable)
	if _, err := p.pool.Exec(ctx, filesDDL); err != nil {
		return fmt.Errorf("create table %s: %w", p.filesTable, err)
	}
	return nil
}

// Upsert writes a parsed record to its target table, replacing any
// previous row for the same URL.
func (p *Pipeline) Upsert(ctx context.Context, record *harvest.PageRecord) error {
	if p == nil || p.pool == nil {
		return fmt.Errorf("store pipeline is not configured")
	}
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if record.URL == "" {
		return fmt.Errorf("record url is required")
	}
	switch record.Kind {
	case harvest.KindHTML:
		return p.upsertPage(ctx, record)
	case harvest.KindPDF, harvest.KindICal:
		return p.upsertFile(ctx, record)
	default:
		return fmt.Errorf("unsupported record kind %q", record.Kind)
	}
}

func (p *Pipeline) upsertPage(ctx context.Context, record *harvest.PageRecord) error {
	metadataJSON, err := marshalMetadata(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, title, body, language, http_status, content_date, fetched_at, metadata, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	body = EXCLUDED.body,
	language = EXCLUDED.language,
	http_status = EXCLUDED.http_status,
	content_date = EXCLUDED.content_date,
	fetched_at = EXCLUDED.fetched_at,
	metadata = EXCLUDED.metadata,
	updated_at = NOW()`, p.pagesTable)

	args := []any{
		record.URL,
		textutil.StripNUL(record.Title),
		textutil.StripNUL(record.Body),
		record.Language,
		record.HTTPStatus,
		record.ContentDate,
		record.FetchedAt,
		metadataJSON,
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

func (p *Pipeline) upsertFile(ctx context.Context, record *harvest.PageRecord) error {
	metadataJSON, err := marshalMetadata(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	size := int64(len(record.RawContent))
	var content []byte
	var blobURI *string
	if size > p.threshold {
		if p.blobs == nil {
			return fmt.Errorf("payload of %d bytes exceeds embed threshold and no blob store is configured", size)
		}
		uri, err := p.blobs.Put(ctx, harvest.ObjectKey(record.URL), contentTypeForKind(record.Kind), record.RawContent)
		if err != nil {
			return fmt.Errorf("store blob: %w", err)
		}
		blobURI = &uri
		p.logger.Info("stored oversized payload in blob store",
			zap.String("url", record.URL),
			zap.Int64("size_bytes", size),
			zap.String("blob_uri", uri))
	} else {
		content = record.RawContent
	}

	query := fmt.Sprintf(`
INSERT INTO %s (url, kind, title, language, http_status, fetched_at, size_bytes, content, blob_uri, parse_error, metadata, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
ON CONFLICT (url) DO UPDATE SET
	kind = EXCLUDED.kind,
	title = EXCLUDED.title,
	language = EXCLUDED.language,
	http_status = EXCLUDED.http_status,
	fetched_at = EXCLUDED.fetched_at,
	size_bytes = EXCLUDED.size_bytes,
	content = EXCLUDED.content,
	blob_uri = EXCLUDED.blob_uri,
	parse_error = EXCLUDED.parse_error,
	metadata = EXCLUDED.metadata,
	updated_at = NOW()`, p.filesTable)

	args := []any{
		record.URL,
		string(record.Kind),
		textutil.StripNUL(record.Title),
		record.Language,
		record.HTTPStatus,
		record.FetchedAt,
		size,
		content,
		blobURI,
		textutil.StripNUL(record.ParseError),
		metadataJSON,
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	return nil
}

func contentTypeForKind(kind harvest.Kind) string {
	switch kind {
	case harvest.KindPDF:
		return "application/pdf"
	case harvest.KindICal:
		return "text/calendar"
	default:
		return "application/octet-stream"
	}
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return []byte("{}"), nil
	}
	clean := make(map[string]string, len(metadata))
	for k, v := range metadata {
		clean[textutil.StripNUL(k)] = textutil.StripNUL(v)
	}
	return json.Marshal(clean)
}

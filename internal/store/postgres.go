package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; tests use it with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	user_key       TEXT NOT NULL,
	filename       TEXT NOT NULL,
	question_count INTEGER NOT NULL,
	payload        JSONB NOT NULL,
	processed_at   TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS result_cache (
	content_hash TEXT PRIMARY KEY,
	payload      JSONB NOT NULL,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_user_key ON documents(user_key);
CREATE INDEX IF NOT EXISTS idx_documents_processed_at ON documents(processed_at);
CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveDocument(ctx context.Context, doc *model.ProcessedDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal document")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (id, user_key, filename, question_count, payload, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   user_key = EXCLUDED.user_key,
		   filename = EXCLUDED.filename,
		   question_count = EXCLUDED.question_count,
		   payload = EXCLUDED.payload,
		   processed_at = EXCLUDED.processed_at`,
		doc.ID, doc.UserKey, doc.Filename, doc.QuestionCount(), payload, doc.ProcessedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save document %s", doc.ID)
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.ProcessedDocument, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM documents WHERE id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s", id)
	}

	var doc model.ProcessedDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal document %s", id)
	}
	return &doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.ProcessedDocument, error) {
	query := `SELECT payload FROM documents`
	args := []any{}
	if filter.UserKey != "" {
		query += ` WHERE user_key = $1`
		args = append(args, filter.UserKey)
	}
	query += ` ORDER BY processed_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.ProcessedDocument
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		var doc model.ProcessedDocument
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal document")
		}
		docs = append(docs, doc)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents")
}

func (s *PostgresStore) GetCachedResult(ctx context.Context, contentHash string) (*model.ProcessedDocument, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM result_cache WHERE content_hash = $1 AND expires_at > now()`,
		contentHash,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached result")
	}

	var doc model.ProcessedDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached result")
	}
	return &doc, nil
}

func (s *PostgresStore) SetCachedResult(ctx context.Context, contentHash string, doc *model.ProcessedDocument, ttl time.Duration) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cached result")
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO result_cache (content_hash, payload, cached_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (content_hash) DO UPDATE SET
		   payload = EXCLUDED.payload,
		   cached_at = EXCLUDED.cached_at,
		   expires_at = EXCLUDED.expires_at`,
		contentHash, payload, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached result")
}

func (s *PostgresStore) DeleteExpiredResults(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM result_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired results")
	}
	return int(tag.RowsAffected()), nil
}

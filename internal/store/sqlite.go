package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/provalab/exam-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	user_key       TEXT NOT NULL,
	filename       TEXT NOT NULL,
	question_count INTEGER NOT NULL,
	payload        TEXT NOT NULL,
	processed_at   DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS result_cache (
	content_hash TEXT PRIMARY KEY,
	payload      TEXT NOT NULL,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_user_key ON documents(user_key);
CREATE INDEX IF NOT EXISTS idx_documents_processed_at ON documents(processed_at);
CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *model.ProcessedDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal document")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, user_key, filename, question_count, payload, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   user_key = excluded.user_key,
		   filename = excluded.filename,
		   question_count = excluded.question_count,
		   payload = excluded.payload,
		   processed_at = excluded.processed_at`,
		doc.ID, doc.UserKey, doc.Filename, doc.QuestionCount(), string(payload), doc.ProcessedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save document %s", doc.ID)
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.ProcessedDocument, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM documents WHERE id = ?`, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document %s", id)
	}

	var doc model.ProcessedDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal document %s", id)
	}
	return &doc, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.ProcessedDocument, error) {
	query := `SELECT payload FROM documents`
	args := []any{}
	if filter.UserKey != "" {
		query += ` WHERE user_key = ?`
		args = append(args, filter.UserKey)
	}
	query += ` ORDER BY processed_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.ProcessedDocument
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		var doc model.ProcessedDocument
		if err := json.Unmarshal([]byte(payload), &doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal document")
		}
		docs = append(docs, doc)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents")
}

func (s *SQLiteStore) GetCachedResult(ctx context.Context, contentHash string) (*model.ProcessedDocument, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM result_cache WHERE content_hash = ? AND expires_at > ?`,
		contentHash, time.Now().UTC(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached result")
	}

	var doc model.ProcessedDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached result")
	}
	return &doc, nil
}

func (s *SQLiteStore) SetCachedResult(ctx context.Context, contentHash string, doc *model.ProcessedDocument, ttl time.Duration) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cached result")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO result_cache (content_hash, payload, cached_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (content_hash) DO UPDATE SET
		   payload = excluded.payload,
		   cached_at = excluded.cached_at,
		   expires_at = excluded.expires_at`,
		contentHash, string(payload), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached result")
}

func (s *SQLiteStore) DeleteExpiredResults(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM result_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired results")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

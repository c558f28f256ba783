package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/model"
)

// ErrNotFound is returned when a document or cache entry does not exist.
var ErrNotFound = eris.New("store: not found")

// DocumentFilter specifies criteria for listing processed documents.
type DocumentFilter struct {
	UserKey string `json:"user_key,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for processed documents and the
// result cache. The pipeline result is stored as-is; nothing mutates it.
type Store interface {
	// Documents
	SaveDocument(ctx context.Context, doc *model.ProcessedDocument) error
	GetDocument(ctx context.Context, id string) (*model.ProcessedDocument, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.ProcessedDocument, error)

	// Result cache, keyed by content hash of the provider result
	GetCachedResult(ctx context.Context, contentHash string) (*model.ProcessedDocument, error)
	SetCachedResult(ctx context.Context, contentHash string, doc *model.ProcessedDocument, ttl time.Duration) error
	DeleteExpiredResults(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ContentHash derives the cache key for a raw provider result payload.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

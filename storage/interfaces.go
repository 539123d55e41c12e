package storage

import (
	"context"
	"time"

	"github.com/poiesic/relatio/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository

	// PutDocuments stores or replaces documents. Ids are content-derived by
	// the caller, so re-syncing the same document overwrites in place.
	PutDocuments(ctx context.Context, docs ...*core.Document) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing ones).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// ListDocuments retrieves every stored document. The incremental graph
	// builder compares new arrivals against this set.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// GetDocumentsByDateRange retrieves documents created within a time
	// range, ordered by creation time ascending.
	GetDocumentsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error
}

// ChunkRepository provides operations for managing chunks.
type ChunkRepository interface {
	Repository

	// PutChunks stores or replaces chunks.
	PutChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing ones).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetChunksByDocument retrieves a document's chunks ordered by index.
	GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// GetChunksWithoutVector retrieves up to limit chunks that have no
	// embedding yet. The re-embedding pass drains this set.
	GetChunksWithoutVector(ctx context.Context, limit int) ([]*core.Chunk, error)

	// DeleteChunks removes chunks by their IDs.
	DeleteChunks(ctx context.Context, ids ...core.ID) error

	// DeleteChunksByDocument removes all chunks owned by a document.
	// Used to invalidate the previous version on re-sync.
	DeleteChunksByDocument(ctx context.Context, documentID core.ID) error
}

// EdgeRepository provides operations for managing relationship edges.
// Edges are derived data; the whole set for an item can be dropped and
// recomputed at any time.
type EdgeRepository interface {
	Repository

	// PutEdges stores or replaces edges. An edge is keyed by its endpoints
	// and kind, so recomputation overwrites in place.
	PutEdges(ctx context.Context, edges ...core.RelationshipEdge) error

	// GetEdgesFor retrieves all edges incident to an id, regardless of
	// direction.
	GetEdgesFor(ctx context.Context, id core.ID) ([]core.RelationshipEdge, error)

	// AllEdges retrieves every stored edge.
	AllEdges(ctx context.Context) ([]core.RelationshipEdge, error)

	// DeleteEdgesFor removes all edges incident to an id.
	DeleteEdgesFor(ctx context.Context, id core.ID) error
}

// CursorRepository persists per-source sync cursors.
type CursorRepository interface {
	// SaveCursor persists the cursor for a source.
	SaveCursor(ctx context.Context, cursor *core.SyncCursor) error

	// LoadCursor retrieves the cursor for a source.
	// Returns nil, nil if no cursor exists yet.
	LoadCursor(ctx context.Context, source string) (*core.SyncCursor, error)
}

package ingest

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrEdgeRepositoryRequired is returned when an edge repository is not provided.
	ErrEdgeRepositoryRequired = errors.New("edge repository required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrRetriesExhausted is returned when an operation keeps failing past
	// its attempt budget.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

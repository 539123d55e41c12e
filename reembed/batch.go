package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/relatio/ai"
	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/index"
	"github.com/poiesic/relatio/ingest"
	"github.com/poiesic/relatio/storage"
)

// BatchProcessor embeds one batch of chunks and writes the results back to
// storage and the vector index.
type BatchProcessor struct {
	chunks         storage.ChunkRepository
	index          index.Index
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(chunks storage.ChunkRepository, idx index.Index, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		chunks:         chunks,
		index:          idx,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds a batch of chunks and updates storage and index. The
// embedding input matches what ingestion sends, so regenerated vectors are
// comparable to the rest of the corpus.
func (bp *BatchProcessor) Process(ctx context.Context, batch []*core.Chunk) error {
	if len(batch) == 0 {
		return nil
	}

	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = ingest.EmbedInput(chunk)
	}

	var vectors [][]float32
	err := ingest.RetryWithBackoff(ctx, bp.maxRetries, bp.retryBaseDelay, func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = bp.embedder.EmbedTexts(ctx, texts)
		return embedErr
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(vectors) != len(batch) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
	}

	updated := make([]core.Chunk, len(batch))
	for i, chunk := range batch {
		chunk.Vector = core.NormalizeVector(vectors[i])
		updated[i] = *chunk
	}

	if err := bp.chunks.PutChunks(ctx, batch...); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}
	if err := bp.index.Upsert(ctx, updated); err != nil {
		return fmt.Errorf("failed to upsert into index: %w", err)
	}

	return nil
}

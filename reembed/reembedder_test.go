package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/relatio/ai/mock"
	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/storage/badger"
)

func seedChunks(t *testing.T, repos *badger.Repositories, externalID string, vectorless, embedded int) []*core.Chunk {
	t.Helper()
	ctx := context.Background()

	doc := &core.Document{
		Id:         core.DocumentID(core.SourceTypeWiki, externalID),
		SourceType: core.SourceTypeWiki,
		ExternalID: externalID,
		Title:      "Page " + externalID,
		Content:    "Some page content.",
		CreatedAt:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repos.Documents.PutDocuments(ctx, doc))

	var chunks []*core.Chunk
	for i := 0; i < vectorless+embedded; i++ {
		chunk := &core.Chunk{
			Id:          core.ChunkID(doc.Id, i),
			DocumentId:  doc.Id,
			Index:       i,
			Text:        "chunk body " + externalID,
			ContentType: core.ContentTypeText,
			Inherited: core.InheritedMetadata{
				SourceType: core.SourceTypeWiki,
				Title:      doc.Title,
				CreatedAt:  doc.CreatedAt,
			},
		}
		if i >= vectorless {
			chunk.Vector = mock.DeterministicVector(chunk.Text, 8)
		}
		require.NoError(t, repos.Chunks.PutChunks(ctx, chunk))
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestReembedderDrainsBacklog(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	ctx := context.Background()

	seedChunks(t, repos, "backlog", 5, 2)

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8

	var out bytes.Buffer
	reembedder, err := NewReembedder(repos.Documents, repos.Chunks, repos.Chunks, embedder, &Config{
		BatchSize:      2,
		ReportInterval: 2,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}, &out)
	require.NoError(t, err)

	require.NoError(t, reembedder.Run(ctx))

	pending, err := repos.Chunks.GetChunksWithoutVector(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, pending, "backlog should be drained")
	assert.Contains(t, out.String(), "Re-embedding 5 chunks")
	assert.Contains(t, out.String(), "complete")
}

func TestReembedderAllRevisitsEverything(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	ctx := context.Background()

	seedChunks(t, repos, "everything", 1, 3)

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8

	calls := 0
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls += len(texts)
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}

	var out bytes.Buffer
	config := DefaultConfig()
	config.All = true
	reembedder, err := NewReembedder(repos.Documents, repos.Chunks, repos.Chunks, embedder, config, &out)
	require.NoError(t, err)

	require.NoError(t, reembedder.Run(ctx))
	assert.Equal(t, 4, calls, "all mode should re-embed every chunk")
}

func TestReembedderNothingToDo(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	embedder := mock.NewMockEmbedder()
	var out bytes.Buffer
	reembedder, err := NewReembedder(repos.Documents, repos.Chunks, repos.Chunks, embedder, nil, &out)
	require.NoError(t, err)

	require.NoError(t, reembedder.Run(context.Background()))
	assert.Contains(t, out.String(), "No chunks need re-embedding")
}

func TestReembedderEmbeddingFailure(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	ctx := context.Background()

	seedChunks(t, repos, "failing", 2, 0)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("gateway down")
	}

	var out bytes.Buffer
	reembedder, err := NewReembedder(repos.Documents, repos.Chunks, repos.Chunks, embedder, &Config{
		BatchSize:  10,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, &out)
	require.NoError(t, err)

	err = reembedder.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway down")

	// The backlog is untouched for the next pass.
	pending, err := repos.Chunks.GetChunksWithoutVector(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestNewReembedderValidation(t *testing.T) {
	embedder := mock.NewMockEmbedder()

	_, err := NewReembedder(nil, nil, nil, embedder, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)
}

package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/relatio/ai/mock"
	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/storage/badger"
)

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *badger.Repositories, *mock.MockProvider) {
	t.Helper()

	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	provider := mock.NewMockProvider()
	provider.GetMockEmbedder().Dimension = 8

	stores := Stores{
		Documents: repos.Documents,
		Chunks:    repos.Chunks,
		Edges:     repos.Edges,
		Cursors:   repos.Cursors,
	}
	pipeline, err := NewPipeline(stores, repos.Chunks, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return pipeline, repos, provider
}

func mailDoc(externalID, title, content, author string, created time.Time) core.Document {
	return core.Document{
		Id:         core.DocumentID(core.SourceTypeMail, externalID),
		SourceType: core.SourceTypeMail,
		ExternalID: externalID,
		Title:      title,
		Content:    content,
		Author:     author,
		CreatedAt:  created,
	}
}

func TestNewPipelineValidation(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	provider := mock.NewMockProvider()
	stores := Stores{
		Documents: repos.Documents,
		Chunks:    repos.Chunks,
		Edges:     repos.Edges,
	}

	_, err = NewPipeline(Stores{}, repos.Chunks, provider)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	_, err = NewPipeline(stores, nil, provider)
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewPipeline(stores, repos.Chunks, nil)
	assert.ErrorIs(t, err, ErrProviderRequired)
}

func TestPipelineIngestEmbedsAndIndexes(t *testing.T) {
	pipeline, repos, _ := newTestPipeline(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	doc := mailDoc("msg-100", "Quarterly planning", "We should finalize the roadmap. The deadline is next month.", "ana@example.com", created)

	require.NoError(t, pipeline.IngestDocuments(ctx, doc))
	pipeline.Wait()

	assert.Empty(t, pipeline.Diagnostics())

	stored, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly planning", stored.Title)

	chunks, err := repos.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.Vector, "chunk %d should be embedded", chunk.Index)
		assert.Equal(t, "ana@example.com", chunk.Inherited.Author)
	}

	pending, err := repos.Chunks.GetChunksWithoutVector(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPipelineEmbedInputCarriesTitle(t *testing.T) {
	pipeline, _, provider := newTestPipeline(t)
	ctx := context.Background()

	var seen []string
	provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		seen = append(seen, texts...)
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}

	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	doc := mailDoc("msg-subject", "Budget review", "The numbers look fine.", "ana@example.com", created)
	require.NoError(t, pipeline.IngestDocuments(ctx, doc))
	pipeline.Wait()

	require.NotEmpty(t, seen)
	assert.True(t, strings.HasPrefix(seen[0], "Subject: Budget review"),
		"embed input should carry the mail subject, got %q", seen[0])
	// The stored chunk text itself stays clean.
	assert.NotContains(t, seen[0][len("Subject: Budget review\n\n"):], "Subject:")
}

func TestPipelineBuildsEdgesAndPropagates(t *testing.T) {
	pipeline, repos, _ := newTestPipeline(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	original := mailDoc("msg-200", "Incident postmortem", "The outage was caused by a bad deploy.", "ana@example.com", created)

	reply := mailDoc("msg-201", "Re: Incident postmortem", "Agreed, we need a staging gate.", "bram@example.com", created.Add(30*time.Minute))
	reply.References = []core.ID{original.Id}
	reply.Participants = []string{"ana@example.com"}

	// Ingest sequentially so the original is fully enriched before the
	// reply's edges are derived.
	require.NoError(t, pipeline.IngestDocuments(ctx, original))
	pipeline.Wait()
	require.NoError(t, pipeline.IngestDocuments(ctx, reply))
	pipeline.Wait()

	assert.Empty(t, pipeline.Diagnostics())

	edges, err := repos.Edges.GetEdgesFor(ctx, reply.Id)
	require.NoError(t, err)

	kinds := map[core.EdgeKind]bool{}
	for _, edge := range edges {
		kinds[edge.Kind] = true
	}
	assert.True(t, kinds[core.EdgeReference], "reply should reference the original")
	assert.True(t, kinds[core.EdgeTemporal], "messages 30 minutes apart should link temporally")
	assert.True(t, kinds[core.EdgeCollaborative], "shared participant should link collaboratively")

	chunks, err := repos.Chunks.GetChunksByDocument(ctx, reply.Id)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	tagKinds := map[string]bool{}
	for _, tag := range chunks[0].Inherited.ContextTags {
		tagKinds[tag.Kind] = true
	}
	assert.True(t, tagKinds["thread"], "reply chunks should carry the thread tag, got %v", chunks[0].Inherited.ContextTags)
	assert.True(t, tagKinds["co-author"], "reply chunks should carry the co-author tag")
}

func TestPipelineMalformedDocumentSkipped(t *testing.T) {
	pipeline, repos, _ := newTestPipeline(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	bad := mailDoc("msg-bad", "Empty", "", "ana@example.com", created)
	good := mailDoc("msg-good", "Fine", "This one has content.", "ana@example.com", created)

	require.NoError(t, pipeline.IngestDocuments(ctx, bad, good))
	pipeline.Wait()

	diags := pipeline.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "validate", diags[0].Stage)
	assert.Equal(t, bad.Id, diags[0].DocumentID)

	_, err := repos.Documents.GetDocument(ctx, good.Id)
	assert.NoError(t, err, "a malformed sibling must not block the batch")
}

func TestPipelineEmbedFailureLeavesChunksVectorless(t *testing.T) {
	pipeline, repos, provider := newTestPipeline(t, WithEmbedRetry(2, time.Millisecond))
	ctx := context.Background()

	attempts := 0
	provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		return nil, errors.New("embedding service down")
	}

	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	doc := mailDoc("msg-down", "Outage", "This will not embed.", "ana@example.com", created)

	require.NoError(t, pipeline.IngestDocuments(ctx, doc))
	pipeline.Wait()

	assert.Equal(t, 2, attempts, "should retry up to the attempt budget")

	diags := pipeline.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "embed", diags[0].Stage)

	// The document and its chunks are durable; only the vectors are missing.
	pending, err := repos.Chunks.GetChunksWithoutVector(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, pending)
}

func TestPipelineResyncInvalidatesPriorChunks(t *testing.T) {
	pipeline, repos, _ := newTestPipeline(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	doc := mailDoc("msg-300", "Draft", "First version of the text.", "ana@example.com", created)
	doc.ModifiedAt = created

	require.NoError(t, pipeline.IngestDocuments(ctx, doc))
	pipeline.Wait()

	firstChunks, err := repos.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, firstChunks)

	// Same watermark: skipped.
	require.NoError(t, pipeline.IngestDocuments(ctx, doc))
	pipeline.Wait()
	stored, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Version)

	// Newer watermark: version bump, old chunks replaced.
	updated := doc
	updated.Content = "Second version, completely rewritten and quite a bit longer than before."
	updated.ModifiedAt = created.Add(time.Hour)
	require.NoError(t, pipeline.IngestDocuments(ctx, updated))
	pipeline.Wait()

	stored, err = repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)

	newChunks, err := repos.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, newChunks)
	for _, chunk := range newChunks {
		assert.NotEqual(t, firstChunks[0].Text, chunk.Text)
	}

	// No stale chunk survives under the old ids.
	for _, old := range firstChunks {
		if old.Text == newChunks[0].Text {
			continue
		}
		_, err := repos.Chunks.GetChunk(ctx, old.Id)
		if err == nil && old.Id != newChunks[0].Id {
			t.Errorf("stale chunk %d survived resync", old.Id)
		}
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, 3, time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = RetryWithBackoff(ctx, 2, time.Millisecond, func(ctx context.Context) error {
		calls++
		return errors.New("permanent")
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 2, calls)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	err = RetryWithBackoff(canceled, 3, time.Minute, func(ctx context.Context) error {
		return errors.New("never succeeds")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

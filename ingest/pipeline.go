// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingest

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/relatio/ai"
	"github.com/poiesic/relatio/chunker"
	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/graph"
	"github.com/poiesic/relatio/index"
	"github.com/poiesic/relatio/storage"
)

// Stores bundles the repositories the pipeline writes to.
type Stores struct {
	Documents storage.DocumentRepository
	Chunks    storage.ChunkRepository
	Edges     storage.EdgeRepository
	Cursors   storage.CursorRepository
}

// Diagnostic records why a document could not be fully processed. Malformed
// input never aborts a batch; it is reported here and the batch continues.
type Diagnostic struct {
	DocumentID core.ID
	Stage      string // "validate", "chunk", "embed", "graph"
	Reason     string
}

// Pipeline orchestrates ingestion: chunking, embedding, edge derivation,
// and context propagation. Embedding and enrichment run asynchronously on
// a worker pool; storage writes for the raw document are synchronous so a
// returned nil means the document is durably ingested even if enrichment
// later fails.
type Pipeline struct {
	stores     Stores
	index      index.Index
	embedder   ai.Embedder
	chunker    *chunker.Chunker
	builder    *graph.Builder
	propagator *graph.Propagator
	pool       *ants.Pool
	queueDepth int

	embedAttempts int
	embedBackoff  time.Duration

	logger *slog.Logger

	wg          sync.WaitGroup
	mu          sync.Mutex
	diagnostics []Diagnostic
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for enrichment work.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithQueueDepth sets how many batches Run buffers between source readers
// and the ingest loop. Default is 4.
func WithQueueDepth(depth int) Option {
	return func(p *Pipeline) error {
		if depth > 0 {
			p.queueDepth = depth
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.chunker = c
		}
		return nil
	}
}

// WithGraphBuilder replaces the default relationship builder.
func WithGraphBuilder(b *graph.Builder) Option {
	return func(p *Pipeline) error {
		if b != nil {
			p.builder = b
		}
		return nil
	}
}

// WithPropagator replaces the default context propagator.
func WithPropagator(prop *graph.Propagator) Option {
	return func(p *Pipeline) error {
		if prop != nil {
			p.propagator = prop
		}
		return nil
	}
}

// WithEmbedRetry sets the attempt budget and initial backoff for embedding
// calls. Defaults are 3 attempts starting at 250ms.
func WithEmbedRetry(attempts int, backoff time.Duration) Option {
	return func(p *Pipeline) error {
		if attempts > 0 {
			p.embedAttempts = attempts
		}
		if backoff > 0 {
			p.embedBackoff = backoff
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(stores Stores, idx index.Index, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if stores.Documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if stores.Chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if stores.Edges == nil {
		return nil, ErrEdgeRepositoryRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		stores:        stores,
		index:         idx,
		embedder:      provider.Embedder(),
		chunker:       chunker.New(),
		builder:       graph.NewBuilder(),
		propagator:    graph.NewPropagator(),
		pool:          pool,
		queueDepth:    4,
		embedAttempts: 3,
		embedBackoff:  250 * time.Millisecond,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestDocuments validates, chunks, and stores the documents, then submits
// each for asynchronous enrichment. Malformed documents are recorded as
// diagnostics and skipped; only storage failures return an error.
func (p *Pipeline) IngestDocuments(ctx context.Context, docs ...core.Document) error {
	for i := range docs {
		doc := docs[i]

		if err := core.ValidateDocument(&doc); err != nil {
			p.report(doc.Id, "validate", err)
			continue
		}

		fresh, err := p.prepareVersion(ctx, &doc)
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}

		chunks, err := p.chunker.Chunk(&doc)
		if err != nil {
			p.report(doc.Id, "chunk", err)
			continue
		}

		if err := p.stores.Documents.PutDocuments(ctx, &doc); err != nil {
			return err
		}
		chunkPtrs := make([]*core.Chunk, len(chunks))
		for j := range chunks {
			chunkPtrs[j] = &chunks[j]
		}
		if err := p.stores.Chunks.PutChunks(ctx, chunkPtrs...); err != nil {
			return err
		}

		p.logger.Debug("document stored",
			slog.Uint64("document_id", uint64(doc.Id)),
			slog.Int("chunks", len(chunks)),
			slog.Int("version", doc.Version))

		p.wg.Add(1)
		if err := p.pool.Submit(func() {
			defer p.wg.Done()
			p.enrich(context.Background(), doc, chunks)
		}); err != nil {
			p.wg.Done()
			return err
		}
	}

	return nil
}

// prepareVersion decides whether a document needs ingesting. A re-synced
// document with a newer watermark invalidates the prior version's chunks
// and edges before re-chunking. Returns false when the stored version is
// already current.
func (p *Pipeline) prepareVersion(ctx context.Context, doc *core.Document) (bool, error) {
	existing, err := p.stores.Documents.GetDocument(ctx, doc.Id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	if !watermark(doc).After(watermark(existing)) {
		p.logger.Debug("document unchanged, skipping",
			slog.Uint64("document_id", uint64(doc.Id)))
		return false, nil
	}

	doc.Version = existing.Version + 1

	old, err := p.stores.Chunks.GetChunksByDocument(ctx, doc.Id)
	if err != nil {
		return false, err
	}
	oldIDs := make([]core.ID, len(old))
	for i, chunk := range old {
		oldIDs[i] = chunk.Id
	}
	if len(oldIDs) > 0 {
		if err := p.index.Delete(ctx, oldIDs); err != nil {
			return false, err
		}
	}
	if err := p.stores.Chunks.DeleteChunksByDocument(ctx, doc.Id); err != nil {
		return false, err
	}
	if err := p.stores.Edges.DeleteEdgesFor(ctx, doc.Id); err != nil {
		return false, err
	}

	return true, nil
}

// enrich embeds a document's chunks, indexes them, derives relationship
// edges against the existing corpus, and propagates context tags. Failures
// are diagnostics, never fatal: an embedding outage leaves the chunks
// stored without vectors, where the re-embedding pass will find them.
func (p *Pipeline) enrich(ctx context.Context, doc core.Document, chunks []core.Chunk) {
	inputs := make([]string, len(chunks))
	for i := range chunks {
		inputs[i] = EmbedInput(&chunks[i])
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, p.embedAttempts, p.embedBackoff, func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = p.embedder.EmbedTexts(ctx, inputs)
		return embedErr
	})
	if err != nil {
		p.report(doc.Id, "embed", err)
		return
	}
	if len(vectors) != len(chunks) {
		p.report(doc.Id, "embed", errors.New("embedding batch size mismatch"))
		return
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	if err := p.storeChunks(ctx, chunks); err != nil {
		p.report(doc.Id, "embed", err)
		return
	}

	if err := p.deriveEdges(ctx, &doc, chunks); err != nil {
		p.report(doc.Id, "graph", err)
		return
	}

	if err := p.propagate(ctx, chunks); err != nil {
		p.report(doc.Id, "graph", err)
	}
}

// deriveEdges computes edges between the new document and the existing
// corpus and persists them.
func (p *Pipeline) deriveEdges(ctx context.Context, doc *core.Document, chunks []core.Chunk) error {
	existingDocs, err := p.stores.Documents.ListDocuments(ctx)
	if err != nil {
		return err
	}

	var existingChunks []core.Chunk
	docList := make([]core.Document, 0, len(existingDocs))
	for _, other := range existingDocs {
		docList = append(docList, *other)
		if other.Id == doc.Id {
			continue
		}
		otherChunks, err := p.stores.Chunks.GetChunksByDocument(ctx, other.Id)
		if err != nil {
			return err
		}
		for _, chunk := range otherChunks {
			existingChunks = append(existingChunks, *chunk)
		}
	}

	edges := p.builder.EdgesFor(doc, chunks, docList, existingChunks)
	if len(edges) == 0 {
		return nil
	}
	return p.stores.Edges.PutEdges(ctx, edges...)
}

// propagate walks the relationship graph and appends context tags to the
// chunks, re-storing and re-indexing any that changed.
func (p *Pipeline) propagate(ctx context.Context, chunks []core.Chunk) error {
	edges, err := p.stores.Edges.AllEdges(ctx)
	if err != nil {
		return err
	}
	if len(edges) == 0 {
		return nil
	}

	g := graph.NewGraph(edges)
	lookup := func(id core.ID) (core.Document, bool) {
		doc, err := p.stores.Documents.GetDocument(ctx, id)
		if err != nil {
			return core.Document{}, false
		}
		return *doc, true
	}

	var changed []core.Chunk
	for i := range chunks {
		if p.propagator.Propagate(&chunks[i], g, lookup) > 0 {
			changed = append(changed, chunks[i])
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return p.storeChunks(ctx, changed)
}

func (p *Pipeline) storeChunks(ctx context.Context, chunks []core.Chunk) error {
	ptrs := make([]*core.Chunk, len(chunks))
	for i := range chunks {
		ptrs[i] = &chunks[i]
	}
	if err := p.stores.Chunks.PutChunks(ctx, ptrs...); err != nil {
		return err
	}
	return p.index.Upsert(ctx, chunks)
}

// Run drains every source: each gets a reader goroutine feeding a bounded
// batch queue, and the ingest loop consumes in arrival order, advancing
// the source's cursor after each successfully ingested batch. Run returns
// once all sources are drained and enrichment has settled.
func (p *Pipeline) Run(ctx context.Context, sources ...Source) error {
	if p.stores.Cursors == nil && len(sources) > 0 {
		return errors.New("cursor repository required to run sources")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type fetched struct {
		source Source
		docs   []core.Document
		next   *core.SyncCursor
	}
	queue := make(chan fetched, p.queueDepth)

	var readers sync.WaitGroup
	for _, src := range sources {
		readers.Add(1)
		go func(src Source) {
			defer readers.Done()

			cursor, err := p.stores.Cursors.LoadCursor(ctx, src.Name())
			if err != nil {
				p.logger.Error("failed to load cursor", "source", src.Name(), "err", err)
				return
			}

			for {
				docs, next, err := src.Fetch(ctx, cursor)
				if err != nil {
					p.logger.Error("source fetch failed", "source", src.Name(), "err", err)
					return
				}
				if len(docs) == 0 {
					return
				}

				select {
				case queue <- fetched{source: src, docs: docs, next: next}:
				case <-ctx.Done():
					return
				}

				if next == nil {
					return
				}
				cursor = next
			}
		}(src)
	}

	go func() {
		readers.Wait()
		close(queue)
	}()

	for batch := range queue {
		if err := p.IngestDocuments(ctx, batch.docs...); err != nil {
			return err
		}
		if batch.next != nil {
			if err := p.stores.Cursors.SaveCursor(ctx, batch.next); err != nil {
				return err
			}
		}
		p.logger.Info("batch ingested",
			slog.String("source", batch.source.Name()),
			slog.Int("documents", len(batch.docs)))
	}

	p.Wait()
	return nil
}

// Wait blocks until all submitted enrichment work has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Diagnostics returns the diagnostics recorded so far.
func (p *Pipeline) Diagnostics() []Diagnostic {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Diagnostic, len(p.diagnostics))
	copy(out, p.diagnostics)
	return out
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func (p *Pipeline) report(docID core.ID, stage string, err error) {
	p.logger.Warn("document processing failed",
		slog.Uint64("document_id", uint64(docID)),
		slog.String("stage", stage),
		slog.String("reason", err.Error()))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.diagnostics = append(p.diagnostics, Diagnostic{
		DocumentID: docID,
		Stage:      stage,
		Reason:     err.Error(),
	})
}

// EmbedInput builds the text sent to the embedder for a chunk. The document
// title is prepended for context; it is not part of the stored chunk text,
// so the overlap invariant between neighboring chunks is untouched. The
// re-embedding pass uses the same input so vectors stay comparable.
func EmbedInput(chunk *core.Chunk) string {
	title := chunk.Inherited.Title
	if title == "" {
		return chunk.Text
	}
	switch chunk.Inherited.SourceType {
	case core.SourceTypeMail:
		return "Subject: " + title + "\n\n" + chunk.Text
	default:
		return "Title: " + title + "\n\n" + chunk.Text
	}
}

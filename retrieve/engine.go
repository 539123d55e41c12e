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


package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/relatio/ai"
	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/graph"
	"github.com/poiesic/relatio/index"
	"github.com/poiesic/relatio/storage"
)

const (
	// DefaultLimit is the result budget when a query does not set one.
	DefaultLimit = 10

	// DefaultBroadFactor is the stage-1 over-fetch multiplier.
	DefaultBroadFactor = 4

	// DefaultBroadFloor is the relaxed similarity floor for stage 1. It
	// optimizes recall; the query's own floor applies in stage 2.
	DefaultBroadFloor = 0.1

	// DefaultMaxPerSeed bounds how many related candidates one ranked
	// seed may pull in during expansion.
	DefaultMaxPerSeed = 2

	// DefaultOverflowAllowance is the fraction by which expansion may
	// grow the result past the limit.
	DefaultOverflowAllowance = 0.25

	// DefaultStageTimeout bounds each retrieval stage.
	DefaultStageTimeout = 2 * time.Second
)

// Weights are the fixed ranking coefficients combined in stage 3.
type Weights struct {
	Similarity float32
	Recency    float32
	Authorship float32
	Context    float32
}

// DefaultWeights returns the standard ranking coefficients. Treat them as
// tunable configuration, not ground truth.
func DefaultWeights() Weights {
	return Weights{
		Similarity: 0.60,
		Recency:    0.15,
		Authorship: 0.15,
		Context:    0.10,
	}
}

// Query describes one retrieval request.
type Query struct {
	// Text is the search text. Required.
	Text string

	// ContextHint optionally biases ranking toward a topic or thread. It
	// never filters; a candidate not matching the hint just scores lower.
	ContextHint string

	// PreferredAuthor optionally boosts chunks authored by this identity.
	// Unlike Filter.Author this is a soft preference.
	PreferredAuthor string

	// Filter holds the hard metadata predicates applied in stage 2.
	Filter index.Filter

	// Limit bounds the ranked result set. Defaults to DefaultLimit.
	Limit int
}

// Result is the outcome of a query: the ranked candidates followed by any
// expansion candidates, which are appended rather than interleaved.
type Result struct {
	QueryID          string
	Query            string
	Candidates       []core.RetrievalCandidate
	ExpansionSkipped bool
}

// Engine runs the four retrieval stages over the index and the
// relationship graph.
type Engine struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	edges     storage.EdgeRepository
	index     index.Index
	embedder  ai.Embedder

	weights      Weights
	broadFactor  int
	broadFloor   float32
	maxPerSeed   int
	overflow     float64
	stageTimeout time.Duration

	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithWeights replaces the ranking coefficients.
func WithWeights(w Weights) Option {
	return func(e *Engine) error {
		e.weights = w
		return nil
	}
}

// WithBroadFactor sets the stage-1 over-fetch multiplier.
func WithBroadFactor(factor int) Option {
	return func(e *Engine) error {
		if factor > 0 {
			e.broadFactor = factor
		}
		return nil
	}
}

// WithBroadFloor sets the relaxed stage-1 similarity floor.
func WithBroadFloor(floor float32) Option {
	return func(e *Engine) error {
		e.broadFloor = floor
		return nil
	}
}

// WithExpansion sets the per-seed budget and the overflow allowance.
func WithExpansion(maxPerSeed int, overflow float64) Option {
	return func(e *Engine) error {
		if maxPerSeed >= 0 {
			e.maxPerSeed = maxPerSeed
		}
		if overflow >= 0 {
			e.overflow = overflow
		}
		return nil
	}
}

// WithStageTimeout bounds each retrieval stage. Zero disables the budget.
func WithStageTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.stageTimeout = d
		return nil
	}
}

// NewEngine creates a retrieval engine.
func NewEngine(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	edges storage.EdgeRepository,
	idx index.Index,
	provider ai.Provider,
	opts ...Option,
) (*Engine, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if edges == nil {
		return nil, ErrEdgeRepositoryRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	e := &Engine{
		documents:    documents,
		chunks:       chunks,
		edges:        edges,
		index:        idx,
		embedder:     provider.Embedder(),
		weights:      DefaultWeights(),
		broadFactor:  DefaultBroadFactor,
		broadFloor:   DefaultBroadFloor,
		maxPerSeed:   DefaultMaxPerSeed,
		overflow:     DefaultOverflowAllowance,
		stageTimeout: DefaultStageTimeout,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Retrieve runs the four stages for a query.
func (e *Engine) Retrieve(ctx context.Context, q Query) (*Result, error) {
	return e.RetrieveWithMonitor(ctx, q, nil)
}

// RetrieveWithMonitor runs the four stages, reporting progress to monitor.
func (e *Engine) RetrieveWithMonitor(ctx context.Context, q Query, monitor RetrievalMonitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	queryID := uuid.NewString()
	monitor.Start(queryID, q.Text)
	logger := e.logger.With(slog.String("query_id", queryID))

	// Stage 1: broad retrieval. The only stage allowed to fail the query.
	broad, err := e.broadRetrieval(ctx, q)
	if err != nil {
		logger.Error("broad retrieval failed", "err", err)
		return nil, fmt.Errorf("%w: query %s: %w", ErrRetrievalUnavailable, queryID, err)
	}
	monitor.AfterBroadRetrieval(broad)

	// Stage 2: context filtering. A pure predicate pass, never a re-rank.
	filtered, chunkByID, err := e.filterCandidates(ctx, q, broad)
	if err != nil {
		logger.Error("filtering failed", "err", err)
		return nil, err
	}
	monitor.AfterFiltering(filtered)

	// Stage 3: relevance ranking.
	ranked := e.rank(q, filtered, chunkByID)
	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}
	monitor.AfterRanking(ranked)

	result := &Result{
		QueryID:    queryID,
		Query:      q.Text,
		Candidates: ranked,
	}

	// Stage 4: context expansion. Degrades, never fails.
	expanded, skipped := e.expand(ctx, q, ranked, monitor)
	if skipped {
		result.ExpansionSkipped = true
		monitor.ExpansionSkipped(queryID)
		logger.Warn("expansion budget exceeded, returning ranked set only")
	} else {
		result.Candidates = append(result.Candidates, expanded...)
	}

	monitor.Finish(result)
	return result, nil
}

func (e *Engine) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.stageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.stageTimeout)
}

// broadRetrieval embeds the query and over-fetches nearest chunks with a
// relaxed similarity floor.
func (e *Engine) broadRetrieval(ctx context.Context, q Query) ([]core.RetrievalCandidate, error) {
	stageCtx, cancel := e.stageContext(ctx)
	defer cancel()

	text := q.Text
	if q.ContextHint != "" {
		text += "\n" + q.ContextHint
	}

	vector, err := e.embedder.EmbedText(stageCtx, text)
	if err != nil {
		return nil, err
	}

	relaxed := q.Filter
	relaxed.MinSimilarity = e.broadFloor

	return e.index.Search(stageCtx, vector, relaxed, e.broadFactor*q.Limit)
}

// filterCandidates applies the query's hard predicates against the stored
// chunk metadata and the query's own similarity floor. It also resolves the
// chunk records the later stages need.
func (e *Engine) filterCandidates(ctx context.Context, q Query, candidates []core.RetrievalCandidate) ([]core.RetrievalCandidate, map[core.ID]*core.Chunk, error) {
	stageCtx, cancel := e.stageContext(ctx)
	defer cancel()

	ids := make([]core.ID, len(candidates))
	for i, candidate := range candidates {
		ids[i] = candidate.ChunkId
	}
	chunks, err := e.chunks.GetChunks(stageCtx, ids...)
	if err != nil {
		return nil, nil, err
	}
	chunkByID := make(map[core.ID]*core.Chunk, len(chunks))
	for _, chunk := range chunks {
		chunkByID[chunk.Id] = chunk
	}

	var kept []core.RetrievalCandidate
	for _, candidate := range candidates {
		chunk, ok := chunkByID[candidate.ChunkId]
		if !ok {
			// Indexed but since deleted from storage.
			continue
		}
		if candidate.Similarity < q.Filter.MinSimilarity {
			continue
		}
		if !q.Filter.MatchChunk(chunk) {
			continue
		}
		kept = append(kept, candidate)
	}

	return kept, chunkByID, nil
}

// rank computes the combined relevance score and sorts descending. Ties
// break by ascending document id then chunk id for determinism.
func (e *Engine) rank(q Query, candidates []core.RetrievalCandidate, chunkByID map[core.ID]*core.Chunk) []core.RetrievalCandidate {
	now := time.Now().UTC()

	ranked := make([]core.RetrievalCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		chunk := chunkByID[candidate.ChunkId]

		recency := recencyBoost(chunk.Inherited.CreatedAt, now)
		authorship := authorshipBoost(chunk, q.PreferredAuthor)
		hint := contextBoost(chunk, q.ContextHint)

		candidate.ContextScore = e.weights.Recency*recency +
			e.weights.Authorship*authorship +
			e.weights.Context*hint
		candidate.FinalScore = e.weights.Similarity*candidate.Similarity + candidate.ContextScore
		ranked = append(ranked, candidate)
	}

	slices.SortFunc(ranked, func(a, b core.RetrievalCandidate) int {
		if a.FinalScore > b.FinalScore {
			return -1
		}
		if a.FinalScore < b.FinalScore {
			return 1
		}
		if a.DocumentId != b.DocumentId {
			if a.DocumentId < b.DocumentId {
				return -1
			}
			return 1
		}
		if a.ChunkId < b.ChunkId {
			return -1
		}
		if a.ChunkId > b.ChunkId {
			return 1
		}
		return 0
	})

	return ranked
}

// expand walks relationship edges from the ranked seeds and appends related
// chunks not already present. The total result never exceeds
// limit × (1 + overflow). A timeout degrades to the ranked set alone.
func (e *Engine) expand(ctx context.Context, q Query, ranked []core.RetrievalCandidate, monitor RetrievalMonitor) ([]core.RetrievalCandidate, bool) {
	budget := int(float64(q.Limit)*(1+e.overflow)) - q.Limit
	if budget <= 0 || e.maxPerSeed <= 0 || len(ranked) == 0 {
		return nil, false
	}

	stageCtx, cancel := e.stageContext(ctx)
	defer cancel()

	seen := make(map[core.ID]bool, len(ranked))
	for _, candidate := range ranked {
		seen[candidate.ChunkId] = true
	}

	var related []core.RetrievalCandidate
	for _, seed := range ranked {
		perSeed := 0

		for _, origin := range []core.ID{seed.DocumentId, seed.ChunkId} {
			if perSeed >= e.maxPerSeed || budget <= 0 {
				break
			}

			edges, err := e.edges.GetEdgesFor(stageCtx, origin)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					return nil, true
				}
				e.logger.Warn("edge lookup failed during expansion", "err", err)
				continue
			}

			for _, edge := range edges {
				if perSeed >= e.maxPerSeed || budget <= 0 {
					break
				}
				if stageCtx.Err() != nil {
					return nil, true
				}

				neighbor := graph.Other(edge, origin)
				chunk, err := e.resolveChunk(stageCtx, neighbor)
				if err != nil {
					if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
						return nil, true
					}
					continue
				}
				if chunk == nil || seen[chunk.Id] {
					continue
				}

				via := edge
				candidate := core.RetrievalCandidate{
					ChunkId:      chunk.Id,
					DocumentId:   chunk.DocumentId,
					ContextScore: via.Weight,
					FinalScore:   seed.FinalScore * via.Weight,
					Related:      true,
					Via:          &via,
				}
				related = append(related, candidate)
				seen[chunk.Id] = true
				perSeed++
				budget--
				monitor.ExpansionHit(seed, candidate)
			}
		}

		if budget <= 0 {
			break
		}
	}

	return related, false
}

// resolveChunk maps a graph endpoint to a representative chunk. Chunk-level
// edges resolve directly; document-level edges resolve to the document's
// first chunk.
func (e *Engine) resolveChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	chunk, err := e.chunks.GetChunk(ctx, id)
	if err == nil {
		return chunk, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	docChunks, err := e.chunks.GetChunksByDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(docChunks) == 0 {
		return nil, nil
	}
	return docChunks[0], nil
}

// recencyBoost maps age to a bounded, monotonically decreasing score.
func recencyBoost(created time.Time, now time.Time) float32 {
	if created.IsZero() {
		return 0
	}
	age := now.Sub(created)
	switch {
	case age <= 7*24*time.Hour:
		return 1.0
	case age <= 30*24*time.Hour:
		return 0.8
	case age <= 90*24*time.Hour:
		return 0.6
	case age <= 365*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

func authorshipBoost(chunk *core.Chunk, preferred string) float32 {
	if preferred == "" || chunk.Inherited.Author == "" {
		return 0
	}
	if strings.EqualFold(chunk.Inherited.Author, preferred) {
		return 1
	}
	return 0
}

// contextBoost scores a chunk against the query's context hint by matching
// the hint against the chunk's title and propagated tags.
func contextBoost(chunk *core.Chunk, hint string) float32 {
	if hint == "" {
		return 0
	}
	needle := strings.ToLower(hint)
	if strings.Contains(strings.ToLower(chunk.Inherited.Title), needle) {
		return 1
	}
	for _, tag := range chunk.Inherited.ContextTags {
		if strings.Contains(strings.ToLower(tag.Value), needle) {
			return 1
		}
	}
	return 0
}

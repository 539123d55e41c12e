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


package graph

import (
	"log/slog"
	"math"
	"time"

	"github.com/poiesic/relatio/core"
)

// DefaultTemporalHalfLife controls how fast temporal edge weights decay.
const DefaultTemporalHalfLife = 72 * time.Hour

// DefaultMinTemporalWeight is the materialization floor for temporal edges.
const DefaultMinTemporalWeight = 0.1

// DefaultSemanticThreshold is the cosine similarity floor for semantic edges.
const DefaultSemanticThreshold = 0.7

// Builder derives relationship edges from document and chunk signals.
//
// Temporal, reference and collaborative edges connect documents; semantic
// edges connect chunks. Items missing the signal an edge kind needs (no
// timestamp, no author) simply don't get that kind, it is never an error.
type Builder struct {
	temporalHalfLife  time.Duration
	minTemporalWeight float32
	semanticThreshold float32
	logger            *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithTemporalHalfLife sets the decay constant for temporal edge weights.
func WithTemporalHalfLife(d time.Duration) BuilderOption {
	return func(b *Builder) {
		if d > 0 {
			b.temporalHalfLife = d
		}
	}
}

// WithMinTemporalWeight sets the floor below which temporal edges are not
// materialized. Bounds graph size for old corpora.
func WithMinTemporalWeight(w float32) BuilderOption {
	return func(b *Builder) {
		if w >= 0 && w <= 1 {
			b.minTemporalWeight = w
		}
	}
}

// WithSemanticThreshold sets the cosine similarity floor for semantic edges.
func WithSemanticThreshold(t float32) BuilderOption {
	return func(b *Builder) {
		if t >= 0 && t <= 1 {
			b.semanticThreshold = t
		}
	}
}

// WithBuilderLogger sets a custom logger.
// Default is slog.Default().
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
	}
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		temporalHalfLife:  DefaultTemporalHalfLife,
		minTemporalWeight: DefaultMinTemporalWeight,
		semanticThreshold: DefaultSemanticThreshold,
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// BuildEdges computes all edges for a document set from scratch.
func (b *Builder) BuildEdges(docs []core.Document, chunks []core.Chunk) []core.RelationshipEdge {
	var edges []core.RelationshipEdge

	for i := range docs {
		edges = append(edges, b.referenceEdges(&docs[i])...)
		for j := i + 1; j < len(docs); j++ {
			edges = append(edges, b.pairEdges(&docs[i], &docs[j])...)
		}
	}

	for i := range chunks {
		for j := i + 1; j < len(chunks); j++ {
			if e, ok := b.semanticEdge(&chunks[i], &chunks[j]); ok {
				edges = append(edges, e)
			}
		}
	}

	return edges
}

// EdgesFor computes only the edges touching a newly ingested document, so
// ingest cost stays proportional to the corpus rather than quadratic in it.
func (b *Builder) EdgesFor(
	doc *core.Document,
	docChunks []core.Chunk,
	existingDocs []core.Document,
	existingChunks []core.Chunk,
) []core.RelationshipEdge {
	edges := b.referenceEdges(doc)

	for i := range existingDocs {
		if existingDocs[i].Id == doc.Id {
			continue
		}
		edges = append(edges, b.pairEdges(doc, &existingDocs[i])...)
		// Incoming references from documents already ingested.
		for _, ref := range existingDocs[i].References {
			if ref == doc.Id {
				edges = append(edges, core.RelationshipEdge{
					From:     existingDocs[i].Id,
					To:       doc.Id,
					Kind:     core.EdgeReference,
					Weight:   1.0,
					Directed: true,
				})
			}
		}
	}

	for i := range docChunks {
		for j := range existingChunks {
			if existingChunks[j].DocumentId == doc.Id {
				continue
			}
			if e, ok := b.semanticEdge(&docChunks[i], &existingChunks[j]); ok {
				edges = append(edges, e)
			}
		}
	}

	b.logger.Debug("computed edges for document",
		slog.Uint64("document_id", uint64(doc.Id)),
		slog.Int("edges", len(edges)))

	return edges
}

// pairEdges derives the undirected edge kinds between two documents.
func (b *Builder) pairEdges(a, c *core.Document) []core.RelationshipEdge {
	var edges []core.RelationshipEdge

	if e, ok := b.temporalEdge(a, c); ok {
		edges = append(edges, e)
	}
	if e, ok := b.collaborativeEdge(a, c); ok {
		edges = append(edges, e)
	}

	return edges
}

// temporalEdge links documents created close together in time. The weight
// decays exponentially with the gap and the edge is dropped below the floor.
func (b *Builder) temporalEdge(a, c *core.Document) (core.RelationshipEdge, bool) {
	if a.CreatedAt.IsZero() || c.CreatedAt.IsZero() {
		return core.RelationshipEdge{}, false
	}

	gap := a.CreatedAt.Sub(c.CreatedAt)
	if gap < 0 {
		gap = -gap
	}
	weight := float32(math.Exp(-float64(gap) / float64(b.temporalHalfLife)))
	if weight < b.minTemporalWeight {
		return core.RelationshipEdge{}, false
	}

	return core.RelationshipEdge{
		From:   a.Id,
		To:     c.Id,
		Kind:   core.EdgeTemporal,
		Weight: weight,
	}, true
}

// collaborativeEdge links documents sharing authors or participants,
// weighted by Jaccard overlap of the two identifier sets.
func (b *Builder) collaborativeEdge(a, c *core.Document) (core.RelationshipEdge, bool) {
	setA := identifierSet(a)
	setC := identifierSet(c)
	if len(setA) == 0 || len(setC) == 0 {
		return core.RelationshipEdge{}, false
	}

	shared := 0
	for id := range setA {
		if setC[id] {
			shared++
		}
	}
	if shared == 0 {
		return core.RelationshipEdge{}, false
	}
	union := len(setA) + len(setC) - shared

	return core.RelationshipEdge{
		From:   a.Id,
		To:     c.Id,
		Kind:   core.EdgeCollaborative,
		Weight: float32(shared) / float32(union),
	}, true
}

// referenceEdges derives directed edges from explicit references.
func (b *Builder) referenceEdges(doc *core.Document) []core.RelationshipEdge {
	var edges []core.RelationshipEdge
	for _, ref := range doc.References {
		if ref == doc.Id {
			continue
		}
		edges = append(edges, core.RelationshipEdge{
			From:     doc.Id,
			To:       ref,
			Kind:     core.EdgeReference,
			Weight:   1.0,
			Directed: true,
		})
	}
	return edges
}

// semanticEdge links chunks whose vectors are close, weighted by similarity.
func (b *Builder) semanticEdge(a, c *core.Chunk) (core.RelationshipEdge, bool) {
	if len(a.Vector) == 0 || len(c.Vector) == 0 || a.Id == c.Id {
		return core.RelationshipEdge{}, false
	}

	sim := core.CosineSimilarity(a.Vector, c.Vector)
	if sim < b.semanticThreshold {
		return core.RelationshipEdge{}, false
	}
	if sim > 1 {
		sim = 1
	}

	return core.RelationshipEdge{
		From:   a.Id,
		To:     c.Id,
		Kind:   core.EdgeSemantic,
		Weight: sim,
	}, true
}

// identifierSet collects a document's author and participants.
func identifierSet(doc *core.Document) map[string]bool {
	set := make(map[string]bool, len(doc.Participants)+1)
	if doc.Author != "" {
		set[doc.Author] = true
	}
	for _, p := range doc.Participants {
		if p != "" {
			set[p] = true
		}
	}
	return set
}

package graph

import (
	"log/slog"

	"github.com/poiesic/relatio/core"
)

// DefaultPropagationDepth bounds how many hops context travels.
const DefaultPropagationDepth = 1

// DocumentLookup resolves a document id. It returns false when the document
// is not (or no longer) known; propagation skips such edges.
type DocumentLookup func(core.ID) (core.Document, bool)

// Propagator copies summarized context from related documents onto chunks.
//
// It walks reference and collaborative edges outward from a chunk's owning
// document up to a bounded depth and records what it finds as context tags.
// The chunk's own attributes are never overwritten. Propagation is
// idempotent: re-running it against an unchanged graph adds nothing.
type Propagator struct {
	depth  int
	logger *slog.Logger
}

// PropagatorOption configures a Propagator.
type PropagatorOption func(*Propagator)

// WithDepth sets the maximum hop count for context propagation.
func WithDepth(depth int) PropagatorOption {
	return func(p *Propagator) {
		if depth > 0 {
			p.depth = depth
		}
	}
}

// WithPropagatorLogger sets a custom logger.
// Default is slog.Default().
func WithPropagatorLogger(logger *slog.Logger) PropagatorOption {
	return func(p *Propagator) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// NewPropagator creates a Propagator with the given options.
func NewPropagator(opts ...PropagatorOption) *Propagator {
	p := &Propagator{
		depth:  DefaultPropagationDepth,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Propagate enriches a chunk's inherited metadata with context tags derived
// from the graph. Returns the number of tags added.
func (p *Propagator) Propagate(chunk *core.Chunk, g *Graph, lookup DocumentLookup) int {
	if chunk == nil || g == nil || lookup == nil {
		return 0
	}

	existing := make(map[core.ContextTag]bool, len(chunk.Inherited.ContextTags))
	for _, tag := range chunk.Inherited.ContextTags {
		existing[tag] = true
	}

	visited := map[core.ID]bool{chunk.DocumentId: true}
	frontier := []core.ID{chunk.DocumentId}
	added := 0

	for hop := 0; hop < p.depth && len(frontier) > 0; hop++ {
		var next []core.ID
		for _, id := range frontier {
			for _, edge := range g.Neighbors(id) {
				other := Other(edge, id)
				if visited[other] {
					continue
				}

				tag, ok := p.tagFor(edge, other, chunk, lookup)
				if !ok {
					continue
				}
				visited[other] = true
				next = append(next, other)

				if existing[tag] {
					continue
				}
				existing[tag] = true
				chunk.Inherited.ContextTags = append(chunk.Inherited.ContextTags, tag)
				added++
			}
		}
		frontier = next
	}

	if added > 0 {
		p.logger.Debug("propagated context",
			slog.Uint64("chunk_id", uint64(chunk.Id)),
			slog.Int("tags", added))
	}

	return added
}

// tagFor summarizes one edge into a context tag. Temporal and semantic
// edges carry no propagatable context and are skipped.
func (p *Propagator) tagFor(
	edge core.RelationshipEdge,
	other core.ID,
	chunk *core.Chunk,
	lookup DocumentLookup,
) (core.ContextTag, bool) {
	doc, ok := lookup(other)
	if !ok {
		return core.ContextTag{}, false
	}

	switch edge.Kind {
	case core.EdgeReference:
		label := doc.Title
		if label == "" {
			label = doc.ExternalID
		}
		return core.ContextTag{Kind: "thread", Value: label, Origin: doc.Id}, true
	case core.EdgeCollaborative:
		if doc.Author == "" || doc.Author == chunk.Inherited.Author {
			return core.ContextTag{}, false
		}
		return core.ContextTag{Kind: "co-author", Value: doc.Author, Origin: doc.Id}, true
	default:
		return core.ContextTag{}, false
	}
}

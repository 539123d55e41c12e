package retrieve

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/relatio/core"
)

// Response is the explainable form of a retrieval result.
type Response struct {
	QueryID          string
	Query            string
	ExpansionSkipped bool
	Results          []ResultItem
}

// ResultItem carries one candidate with source attribution, temporal
// framing, and, for expanded candidates, the relationship that justified
// inclusion.
type ResultItem struct {
	ChunkID    core.ID
	DocumentID core.ID

	Source string // source type the document came from
	Origin string // identifier assigned by the source system
	Title  string
	Author string
	Text   string

	Similarity float32
	FinalScore float32

	Related      bool
	Relationship string // empty for directly matched candidates

	Timestamp time.Time
	AgeBucket string // "today", "this-week", "this-month", "older"
}

// Contextualize turns a raw result into a response with attribution and
// explanations. It reads storage but never mutates it.
func (e *Engine) Contextualize(ctx context.Context, result *Result) (*Response, error) {
	response := &Response{
		QueryID:          result.QueryID,
		Query:            result.Query,
		ExpansionSkipped: result.ExpansionSkipped,
	}
	now := time.Now().UTC()

	for _, candidate := range result.Candidates {
		chunk, err := e.chunks.GetChunk(ctx, candidate.ChunkId)
		if err != nil {
			e.logger.Warn("candidate chunk missing during contextualization",
				"chunk_id", uint64(candidate.ChunkId), "err", err)
			continue
		}

		item := ResultItem{
			ChunkID:    candidate.ChunkId,
			DocumentID: candidate.DocumentId,
			Source:     chunk.Inherited.SourceType.String(),
			Title:      chunk.Inherited.Title,
			Author:     chunk.Inherited.Author,
			Text:       chunk.Text,
			Similarity: candidate.Similarity,
			FinalScore: candidate.FinalScore,
			Related:    candidate.Related,
			Timestamp:  chunk.Inherited.CreatedAt,
			AgeBucket:  ageBucket(chunk.Inherited.CreatedAt, now),
		}

		if doc, err := e.documents.GetDocument(ctx, candidate.DocumentId); err == nil {
			item.Origin = doc.ExternalID
		}

		if candidate.Related && candidate.Via != nil {
			item.Relationship = e.explainEdge(ctx, &candidate, candidate.Via)
		}

		response.Results = append(response.Results, item)
	}

	return response, nil
}

// explainEdge produces the human-readable justification for an expanded
// candidate, naming the item on the far side of the edge.
func (e *Engine) explainEdge(ctx context.Context, candidate *core.RetrievalCandidate, edge *core.RelationshipEdge) string {
	other := edge.From
	if other == candidate.ChunkId || other == candidate.DocumentId {
		other = edge.To
	}

	name := e.describeEndpoint(ctx, other)

	switch edge.Kind {
	case core.EdgeReference:
		return fmt.Sprintf("related via reply/reference chain with %s", name)
	case core.EdgeCollaborative:
		return fmt.Sprintf("related via shared participants with %s", name)
	case core.EdgeTemporal:
		return fmt.Sprintf("related via temporal proximity to %s", name)
	case core.EdgeSemantic:
		return fmt.Sprintf("related via similar content to %s", name)
	default:
		return fmt.Sprintf("related to %s", name)
	}
}

// describeEndpoint resolves a graph endpoint to something a reader can
// recognize: a document title, its external id, or the raw id as a last
// resort.
func (e *Engine) describeEndpoint(ctx context.Context, id core.ID) string {
	if doc, err := e.documents.GetDocument(ctx, id); err == nil {
		if doc.Title != "" {
			return fmt.Sprintf("%q", doc.Title)
		}
		return doc.ExternalID
	}

	if chunk, err := e.chunks.GetChunk(ctx, id); err == nil {
		if doc, err := e.documents.GetDocument(ctx, chunk.DocumentId); err == nil {
			if doc.Title != "" {
				return fmt.Sprintf("%q", doc.Title)
			}
			return doc.ExternalID
		}
	}

	return fmt.Sprintf("item %d", uint64(id))
}

func ageBucket(ts time.Time, now time.Time) string {
	if ts.IsZero() {
		return ""
	}

	age := now.Sub(ts)
	switch {
	case age < 24*time.Hour && ts.Day() == now.Day():
		return "today"
	case age <= 7*24*time.Hour:
		return "this-week"
	case age <= 31*24*time.Hour:
		return "this-month"
	default:
		return "older"
	}
}

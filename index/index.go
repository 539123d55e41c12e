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


package index

import (
	"context"
	"time"

	"github.com/poiesic/relatio/core"
)

// Index is a nearest-neighbor store for chunk vectors and their filterable
// metadata. Writes use upsert semantics keyed by chunk id, so concurrent
// ingestion from different sources needs no coordination.
type Index interface {
	// Upsert stores or replaces chunks in the index. Chunks without a
	// vector are skipped; they become searchable after a re-embedding pass.
	Upsert(ctx context.Context, chunks []core.Chunk) error

	// Search returns up to limit candidates ordered by descending cosine
	// similarity to the query vector, restricted by the filter.
	Search(ctx context.Context, vector []float32, filter Filter, limit int) ([]core.RetrievalCandidate, error)

	// Delete removes chunks by id. Missing ids are not an error.
	Delete(ctx context.Context, ids []core.ID) error
}

// Filter restricts a vector search by chunk metadata. Zero values mean
// "no constraint". Filtering is a pure predicate, it never re-ranks.
type Filter struct {
	// SourceTypes restricts results to the given source systems.
	SourceTypes []core.SourceType

	// Author restricts results to chunks inherited from this author.
	Author string

	// After and Before bound the owning document's creation time.
	After  time.Time
	Before time.Time

	// MinSimilarity drops candidates scoring below this floor.
	MinSimilarity float32
}

// IsZero reports whether the filter constrains anything besides similarity.
func (f Filter) IsZero() bool {
	return len(f.SourceTypes) == 0 && f.Author == "" && f.After.IsZero() && f.Before.IsZero()
}

// MatchChunk evaluates the metadata predicates against a chunk. Used by
// local index implementations and the engine's stage-2 filter; remote
// indexes translate the same semantics into their own filter language.
func (f Filter) MatchChunk(c *core.Chunk) bool {
	if len(f.SourceTypes) > 0 {
		found := false
		for _, st := range f.SourceTypes {
			if c.Inherited.SourceType == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Author != "" && c.Inherited.Author != f.Author {
		return false
	}

	created := c.Inherited.CreatedAt
	if !f.After.IsZero() && (created.IsZero() || created.Before(f.After)) {
		return false
	}
	if !f.Before.IsZero() && (created.IsZero() || created.After(f.Before)) {
		return false
	}

	return true
}

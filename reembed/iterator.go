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


package reembed

import (
	"context"

	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/storage"
)

const (
	// DefaultBatchSize is the default number of chunks per batch.
	DefaultBatchSize = 100

	// pendingFetchLimit bounds one pending-chunk query. Large enough for
	// any realistic backlog on a single node.
	pendingFetchLimit = 1 << 20
)

// ChunkIterator walks the chunks targeted for re-embedding in batches.
// By default only chunks without a vector are visited; with all set, the
// entire corpus is, document by document.
type ChunkIterator struct {
	chunks    storage.ChunkRepository
	documents storage.DocumentRepository
	batchSize int
	all       bool
}

// NewChunkIterator creates an iterator. documents may be nil unless all
// is set.
func NewChunkIterator(chunks storage.ChunkRepository, documents storage.DocumentRepository, batchSize int, all bool) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		chunks:    chunks,
		documents: documents,
		batchSize: batchSize,
		all:       all,
	}
}

// Count returns how many chunks the iterator will visit.
func (it *ChunkIterator) Count(ctx context.Context) (int, error) {
	targets, err := it.gather(ctx)
	if err != nil {
		return 0, err
	}
	return len(targets), nil
}

// ForEach calls fn for each batch. Iteration stops on the first error from
// fn; context cancellation is checked between batches.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.Chunk) error) error {
	targets, err := it.gather(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < len(targets); i += it.batchSize {
		end := i + it.batchSize
		if end > len(targets) {
			end = len(targets)
		}

		if err := fn(targets[i:end]); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

func (it *ChunkIterator) gather(ctx context.Context) ([]*core.Chunk, error) {
	if !it.all {
		return it.chunks.GetChunksWithoutVector(ctx, pendingFetchLimit)
	}

	docs, err := it.documents.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	var targets []*core.Chunk
	for _, doc := range docs {
		docChunks, err := it.chunks.GetChunksByDocument(ctx, doc.Id)
		if err != nil {
			return nil, err
		}
		targets = append(targets, docChunks...)
	}
	return targets, nil
}

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


package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/index"
)

// Config holds connection settings for a qdrant deployment.
type Config struct {
	Host       string
	Port       int
	UseTLS     bool
	Collection string
	// Dimension is the deployment's fixed vector dimension.
	Dimension int
}

// DefaultConfig returns settings for a local qdrant instance.
func DefaultConfig() Config {
	return Config{
		Host:       "localhost",
		Port:       6334,
		Collection: "relatio-chunks",
		Dimension:  384,
	}
}

// Index implements index.Index against a remote qdrant collection.
// The client is opened once at process start and closed at shutdown; it is
// passed explicitly to whoever needs it, never held as a package global.
type Index struct {
	client     *qdrant.Client
	collection string
	dimension  int
	logger     *slog.Logger
}

var _ index.Index = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
	}
}

// New connects to qdrant and ensures the collection exists.
func New(ctx context.Context, cfg Config, opts ...Option) (*Index, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant index: empty collection name")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("qdrant index: dimension must be positive")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrUnavailable, err)
	}

	ix := &Index{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		logger:     slog.Default().With("component", "qdrant-index"),
	}
	for _, opt := range opts {
		opt(ix)
	}

	if err := ix.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return ix, nil
}

func (ix *Index) ensureCollection(ctx context.Context) error {
	exists, err := ix.client.CollectionExists(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("%w: %v", index.ErrUnavailable, err)
	}
	if exists {
		return nil
	}

	err = ix.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: ix.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(ix.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", index.ErrUnavailable, err)
	}

	ix.logger.Info("created qdrant collection",
		slog.String("collection", ix.collection),
		slog.Int("dimension", ix.dimension))
	return nil
}

// Upsert stores or replaces chunks in the collection. Chunks without a
// vector are skipped; a later re-embedding pass upserts them again.
func (ix *Index) Upsert(ctx context.Context, chunks []core.Chunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Vector) == 0 {
			continue
		}
		if len(c.Vector) != ix.dimension {
			return fmt.Errorf("%w: chunk %d has %d components, expected %d",
				index.ErrDimensionMismatch, c.Id, len(c.Vector), ix.dimension)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(c.Id)),
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": int64(c.DocumentId),
				"source_type": c.Inherited.SourceType.String(),
				"author":      c.Inherited.Author,
				"created_at":  c.Inherited.CreatedAt.Unix(),
			}),
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ix.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: upsert failed: %v", index.ErrUnavailable, err)
	}

	ix.logger.Debug("upserted points", slog.Int("count", len(points)))
	return nil
}

// Search returns candidates ordered by descending similarity.
func (ix *Index) Search(ctx context.Context, vector []float32, filter index.Filter, limit int) ([]core.RetrievalCandidate, error) {
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d components, expected %d",
			index.ErrDimensionMismatch, len(vector), ix.dimension)
	}
	if limit <= 0 {
		return nil, nil
	}

	query := &qdrant.QueryPoints{
		CollectionName: ix.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         buildFilter(filter),
	}
	if filter.MinSimilarity > 0 {
		query.ScoreThreshold = qdrant.PtrOf(filter.MinSimilarity)
	}

	hits, err := ix.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", index.ErrUnavailable, err)
	}

	candidates := make([]core.RetrievalCandidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, core.RetrievalCandidate{
			ChunkId:    core.ID(hit.Id.GetNum()),
			DocumentId: core.ID(hit.Payload["document_id"].GetIntegerValue()),
			Similarity: hit.Score,
		})
	}
	return candidates, nil
}

// Delete removes chunks by id.
func (ix *Index) Delete(ctx context.Context, ids []core.ID) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(uint64(id))
	}

	_, err := ix.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: ix.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("%w: delete failed: %v", index.ErrUnavailable, err)
	}
	return nil
}

// Close releases the client connection.
func (ix *Index) Close() error {
	return ix.client.Close()
}

// buildFilter translates metadata predicates into qdrant conditions.
func buildFilter(f index.Filter) *qdrant.Filter {
	if f.IsZero() {
		return nil
	}

	var must []*qdrant.Condition

	if len(f.SourceTypes) > 0 {
		names := make([]string, len(f.SourceTypes))
		for i, st := range f.SourceTypes {
			names[i] = st.String()
		}
		must = append(must, qdrant.NewMatchKeywords("source_type", names...))
	}

	if f.Author != "" {
		must = append(must, qdrant.NewMatch("author", f.Author))
	}

	if !f.After.IsZero() || !f.Before.IsZero() {
		rng := &qdrant.Range{}
		if !f.After.IsZero() {
			rng.Gte = qdrant.PtrOf(float64(f.After.Unix()))
		}
		if !f.Before.IsZero() {
			rng.Lte = qdrant.PtrOf(float64(f.Before.Unix()))
		}
		must = append(must, qdrant.NewRange("created_at", rng))
	}

	return &qdrant.Filter{Must: must}
}

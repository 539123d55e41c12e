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


package relatio

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/relatio/ai"
	"github.com/poiesic/relatio/ai/openai"
	"github.com/poiesic/relatio/chunker"
	"github.com/poiesic/relatio/config"
	"github.com/poiesic/relatio/graph"
	"github.com/poiesic/relatio/index"
	"github.com/poiesic/relatio/index/qdrant"
	"github.com/poiesic/relatio/ingest"
	"github.com/poiesic/relatio/reembed"
	"github.com/poiesic/relatio/retrieve"
	"github.com/poiesic/relatio/storage"
	"github.com/poiesic/relatio/storage/badger"
)

// System wires the storage backend, vector index, and embedding provider
// into one handle that the pipeline, engine, and re-embedder are built from.
type System struct {
	config   *config.Config
	backend  *badger.Backend
	docRepo  *badger.DocumentRepository
	chkRepo  *badger.ChunkRepository
	edgeRepo *badger.EdgeRepository
	curRepo  *badger.CursorRepository
	index    index.Index
	provider ai.Provider
	logger   *slog.Logger

	// remoteIndex is set when the index owns a connection of its own.
	remoteIndex io.Closer
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	provider ai.Provider
	logger   *slog.Logger
}

// WithProvider substitutes the embedding provider, bypassing the configured
// gateway. Intended for tests.
func WithProvider(provider ai.Provider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithSystemLogger sets a custom logger.
func WithSystemLogger(logger *slog.Logger) SystemOption {
	return func(o *systemOptions) {
		o.logger = logger
	}
}

// NewSystem opens the database at cfg.Storage.Path and connects the index
// and embedding backends the configuration names. ctx bounds remote index
// setup only.
func NewSystem(ctx context.Context, cfg *config.Config, opts ...SystemOption) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &systemOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(cfg.Storage.Path, cfg.Storage.Path == "")
	if err != nil {
		return nil, err
	}

	docRepo := badger.NewDocumentRepository(backend)
	chkRepo := badger.NewChunkRepository(backend)
	edgeRepo := badger.NewEdgeRepository(backend)
	curRepo := badger.NewCursorRepository(backend)

	var idx index.Index
	var remoteIndex io.Closer
	switch cfg.Index.Backend {
	case "qdrant":
		remote, err := qdrant.New(ctx, qdrant.Config{
			Host:       cfg.Index.Host,
			Port:       cfg.Index.Port,
			UseTLS:     cfg.Index.UseTLS,
			Collection: cfg.Index.Collection,
			Dimension:  cfg.Embedding.Dimension,
		})
		if err != nil {
			backend.Close()
			return nil, err
		}
		idx = remote
		remoteIndex = remote
	default:
		// The local backend serves search straight from the chunk store.
		idx = chkRepo
	}

	provider := options.provider
	if provider == nil {
		aiConfig := ai.NewConfig(
			ai.WithHost(cfg.Embedding.Host),
			ai.WithEmbeddingModel(cfg.Embedding.Model),
			ai.WithDimension(cfg.Embedding.Dimension),
			ai.WithRequestsPerSecond(cfg.Embedding.RequestsPerSecond),
		)
		provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &System{
		config:      cfg,
		backend:     backend,
		docRepo:     docRepo,
		chkRepo:     chkRepo,
		edgeRepo:    edgeRepo,
		curRepo:     curRepo,
		index:       idx,
		provider:    provider,
		logger:      options.logger,
		remoteIndex: remoteIndex,
	}, nil
}

// Close releases the provider and the storage backend.
func (s *System) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing embedding provider", "err", err)
	}
	if s.remoteIndex != nil {
		if err := s.remoteIndex.Close(); err != nil {
			s.logger.Error("error closing index", "err", err)
		}
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *System) DocumentRepository() storage.DocumentRepository {
	return s.docRepo
}

func (s *System) ChunkRepository() storage.ChunkRepository {
	return s.chkRepo
}

func (s *System) EdgeRepository() storage.EdgeRepository {
	return s.edgeRepo
}

func (s *System) CursorRepository() storage.CursorRepository {
	return s.curRepo
}

func (s *System) Index() index.Index {
	return s.index
}

// NewIngestionPipeline builds a pipeline wired to the system's stores and
// configured sizes. Extra options override the configured ones.
func (s *System) NewIngestionPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	cfg := s.config
	configured := []ingest.Option{
		ingest.WithLogger(s.logger),
		ingest.WithQueueDepth(cfg.Ingest.QueueDepth),
		ingest.WithEmbedRetry(cfg.Ingest.EmbedRetries, cfg.Ingest.EmbedBackoff()),
		ingest.WithChunker(chunker.New(
			chunker.WithMaxChunkSize(cfg.Chunker.MaxChunkSize),
			chunker.WithOverlapSize(cfg.Chunker.OverlapSize),
		)),
		ingest.WithGraphBuilder(graph.NewBuilder(
			graph.WithTemporalHalfLife(time.Duration(cfg.Graph.TemporalHalfLifeHours*float64(time.Hour))),
			graph.WithMinTemporalWeight(float32(cfg.Graph.MinTemporalWeight)),
			graph.WithSemanticThreshold(float32(cfg.Graph.SemanticThreshold)),
			graph.WithBuilderLogger(s.logger),
		)),
		ingest.WithPropagator(graph.NewPropagator(
			graph.WithDepth(cfg.Graph.PropagationDepth),
			graph.WithPropagatorLogger(s.logger),
		)),
	}
	if cfg.Ingest.PoolSize > 0 {
		configured = append(configured, ingest.WithPoolSize(cfg.Ingest.PoolSize))
	}

	stores := ingest.Stores{
		Documents: s.docRepo,
		Chunks:    s.chkRepo,
		Edges:     s.edgeRepo,
		Cursors:   s.curRepo,
	}
	return ingest.NewPipeline(stores, s.index, s.provider, append(configured, opts...)...)
}

// NewEngine builds a retrieval engine with the configured ranking weights
// and budgets. Extra options override the configured ones.
func (s *System) NewEngine(opts ...retrieve.Option) (*retrieve.Engine, error) {
	cfg := s.config
	configured := []retrieve.Option{
		retrieve.WithLogger(s.logger),
		retrieve.WithWeights(retrieve.Weights{
			Similarity: float32(cfg.Retrieval.WeightSimilarity),
			Recency:    float32(cfg.Retrieval.WeightRecency),
			Authorship: float32(cfg.Retrieval.WeightAuthorship),
			Context:    float32(cfg.Retrieval.WeightContext),
		}),
		retrieve.WithBroadFactor(cfg.Retrieval.BroadFactor),
		retrieve.WithBroadFloor(float32(cfg.Retrieval.BroadFloor)),
		retrieve.WithExpansion(cfg.Retrieval.MaxPerSeed, cfg.Retrieval.OverflowAllowance),
		retrieve.WithStageTimeout(cfg.Retrieval.StageTimeout()),
	}
	return retrieve.NewEngine(s.docRepo, s.chkRepo, s.edgeRepo, s.index, s.provider, append(configured, opts...)...)
}

// NewReembedder builds a re-embedding pass writing progress to progress.
// all revisits every chunk instead of only the vectorless backlog.
func (s *System) NewReembedder(all bool, progress io.Writer) (*reembed.Reembedder, error) {
	reembedConfig := reembed.DefaultConfig()
	reembedConfig.MaxRetries = s.config.Ingest.EmbedRetries
	reembedConfig.All = all
	return reembed.NewReembedder(s.docRepo, s.chkRepo, s.index, s.provider.Embedder(), reembedConfig, progress)
}

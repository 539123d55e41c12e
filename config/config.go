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


package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the full configuration surface. Every value has a working
// default; a config file only needs the keys it wants to change.
type Config struct {
	Storage   Storage   `toml:"storage"`
	Chunker   Chunker   `toml:"chunker"`
	Graph     Graph     `toml:"graph"`
	Embedding Embedding `toml:"embedding"`
	Index     Index     `toml:"index"`
	Retrieval Retrieval `toml:"retrieval"`
	Ingest    Ingest    `toml:"ingest"`
}

// Storage configures the local database.
type Storage struct {
	// Path is the database directory. Empty means in-memory.
	Path string `toml:"path"`
}

// Chunker configures document segmentation.
type Chunker struct {
	MaxChunkSize int `toml:"max_chunk_size"`
	OverlapSize  int `toml:"overlap_size"`
}

// Graph configures relationship edge derivation and context propagation.
type Graph struct {
	TemporalHalfLifeHours float64 `toml:"temporal_half_life_hours"`
	MinTemporalWeight     float64 `toml:"min_temporal_weight"`
	SemanticThreshold     float64 `toml:"semantic_threshold"`
	PropagationDepth      int     `toml:"propagation_depth"`
}

// Embedding configures the embedding gateway.
type Embedding struct {
	Host              string  `toml:"host"`
	Model             string  `toml:"model"`
	Dimension         int     `toml:"dimension"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Index configures the vector index backend. The local backend scans the
// chunk store; qdrant talks to a remote collection.
type Index struct {
	Backend    string `toml:"backend"` // "local" or "qdrant"
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	UseTLS     bool   `toml:"use_tls"`
	Collection string `toml:"collection"`
}

// Retrieval configures the four-stage engine.
type Retrieval struct {
	BroadFactor       int     `toml:"broad_factor"`
	BroadFloor        float64 `toml:"broad_floor"`
	WeightSimilarity  float64 `toml:"weight_similarity"`
	WeightRecency     float64 `toml:"weight_recency"`
	WeightAuthorship  float64 `toml:"weight_authorship"`
	WeightContext     float64 `toml:"weight_context"`
	MaxPerSeed        int     `toml:"max_per_seed"`
	OverflowAllowance float64 `toml:"overflow_allowance"`
	StageTimeoutMS    int     `toml:"stage_timeout_ms"`
}

// StageTimeout returns the per-stage budget as a duration.
func (r Retrieval) StageTimeout() time.Duration {
	return time.Duration(r.StageTimeoutMS) * time.Millisecond
}

// Ingest configures the ingestion pipeline.
type Ingest struct {
	// PoolSize is the enrichment worker count. Zero picks a size from
	// the machine's CPU count.
	PoolSize       int `toml:"pool_size"`
	QueueDepth     int `toml:"queue_depth"`
	EmbedRetries   int `toml:"embed_retries"`
	EmbedBackoffMS int `toml:"embed_backoff_ms"`
}

// EmbedBackoff returns the initial embedding retry delay as a duration.
func (i Ingest) EmbedBackoff() time.Duration {
	return time.Duration(i.EmbedBackoffMS) * time.Millisecond
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Storage: Storage{
			Path: "",
		},
		Chunker: Chunker{
			MaxChunkSize: 512,
			OverlapSize:  128,
		},
		Graph: Graph{
			TemporalHalfLifeHours: 72,
			MinTemporalWeight:     0.1,
			SemanticThreshold:     0.7,
			PropagationDepth:      1,
		},
		Embedding: Embedding{
			Host:              "http://localhost:11434",
			Model:             "nomic-embed-text",
			Dimension:         384,
			RequestsPerSecond: 0,
		},
		Index: Index{
			Backend:    "local",
			Host:       "localhost",
			Port:       6334,
			Collection: "relatio-chunks",
		},
		Retrieval: Retrieval{
			BroadFactor:       4,
			BroadFloor:        0.1,
			WeightSimilarity:  0.60,
			WeightRecency:     0.15,
			WeightAuthorship:  0.15,
			WeightContext:     0.10,
			MaxPerSeed:        2,
			OverflowAllowance: 0.25,
			StageTimeoutMS:    2000,
		},
		Ingest: Ingest{
			PoolSize:       0,
			QueueDepth:     4,
			EmbedRetries:   3,
			EmbedBackoffMS: 250,
		},
	}
}

// Load reads a TOML file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Chunker.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max_chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Chunker.OverlapSize < 0 {
		return fmt.Errorf("%w: overlap_size must not be negative", ErrInvalidConfig)
	}

	if c.Graph.SemanticThreshold < 0 || c.Graph.SemanticThreshold > 1 {
		return fmt.Errorf("%w: semantic_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.Graph.MinTemporalWeight < 0 || c.Graph.MinTemporalWeight > 1 {
		return fmt.Errorf("%w: min_temporal_weight must be in [0,1]", ErrInvalidConfig)
	}
	if c.Graph.TemporalHalfLifeHours <= 0 {
		return fmt.Errorf("%w: temporal_half_life_hours must be positive", ErrInvalidConfig)
	}
	if c.Graph.PropagationDepth < 1 {
		return fmt.Errorf("%w: propagation_depth must be at least 1", ErrInvalidConfig)
	}

	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive", ErrInvalidConfig)
	}

	switch c.Index.Backend {
	case "local", "qdrant":
	default:
		return fmt.Errorf("%w: unknown index backend %q", ErrInvalidConfig, c.Index.Backend)
	}

	for name, w := range map[string]float64{
		"weight_similarity": c.Retrieval.WeightSimilarity,
		"weight_recency":    c.Retrieval.WeightRecency,
		"weight_authorship": c.Retrieval.WeightAuthorship,
		"weight_context":    c.Retrieval.WeightContext,
	} {
		if w < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name)
		}
	}
	if c.Retrieval.BroadFactor < 1 {
		return fmt.Errorf("%w: broad_factor must be at least 1", ErrInvalidConfig)
	}
	if c.Retrieval.OverflowAllowance < 0 {
		return fmt.Errorf("%w: overflow_allowance must not be negative", ErrInvalidConfig)
	}

	return nil
}

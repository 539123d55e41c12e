package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relatio.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[chunker]
max_chunk_size = 1024

[index]
backend = "qdrant"
host = "vectors.internal"
collection = "prod-chunks"

[retrieval]
stage_timeout_ms = 500
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Chunker.MaxChunkSize)
	assert.Equal(t, 128, cfg.Chunker.OverlapSize, "untouched keys keep defaults")
	assert.Equal(t, "qdrant", cfg.Index.Backend)
	assert.Equal(t, "vectors.internal", cfg.Index.Host)
	assert.Equal(t, 6334, cfg.Index.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Retrieval.StageTimeout())
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chunker\nmax"), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunker.MaxChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.Chunker.OverlapSize = -1 }},
		{"threshold above one", func(c *Config) { c.Graph.SemanticThreshold = 1.5 }},
		{"zero half life", func(c *Config) { c.Graph.TemporalHalfLifeHours = 0 }},
		{"zero propagation depth", func(c *Config) { c.Graph.PropagationDepth = 0 }},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
		{"unknown backend", func(c *Config) { c.Index.Backend = "pinecone" }},
		{"negative weight", func(c *Config) { c.Retrieval.WeightRecency = -0.1 }},
		{"zero broad factor", func(c *Config) { c.Retrieval.BroadFactor = 0 }},
		{"negative overflow", func(c *Config) { c.Retrieval.OverflowAllowance = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.NoError(t, Default().Validate())
}

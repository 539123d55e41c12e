package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder wraps an Embedder with a token-bucket rate limit, so
// bulk ingestion and re-embedding passes don't overwhelm a local embedding
// service. One token is spent per API call, batched or not.
type RateLimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

var _ Embedder = (*RateLimitedEmbedder)(nil)

// NewRateLimitedEmbedder wraps an embedder with a requests-per-second cap.
// A non-positive rate returns the inner embedder unchanged.
func NewRateLimitedEmbedder(inner Embedder, requestsPerSecond float64) Embedder {
	if requestsPerSecond <= 0 {
		return inner
	}

	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// EmbedText generates a vector embedding for a single text string.
func (e *RateLimitedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for embedding slot: %w", err)
	}
	return e.inner.EmbedText(ctx, text)
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *RateLimitedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for embedding slot: %w", err)
	}
	return e.inner.EmbedTexts(ctx, texts)
}

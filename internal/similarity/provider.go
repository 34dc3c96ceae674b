package similarity

import (
	"context"
	"fmt"
)

// Provider turns texts into dense vectors, one per input, in input order.
// Batching and rate limiting are the provider's concern; callers only need a
// full result or an error so they can fall back to the lexical scorer.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedMatrix embeds both sides with p and returns their cosine matrix.
func EmbedMatrix(ctx context.Context, p Provider, a, b []string) (Matrix, error) {
	av, err := p.Embed(ctx, a)
	if err != nil {
		return Matrix{}, err
	}
	if len(av) != len(a) {
		return Matrix{}, fmt.Errorf("similarity: provider returned %d vectors for %d texts", len(av), len(a))
	}
	bv, err := p.Embed(ctx, b)
	if err != nil {
		return Matrix{}, err
	}
	if len(bv) != len(b) {
		return Matrix{}, fmt.Errorf("similarity: provider returned %d vectors for %d texts", len(bv), len(b))
	}
	return CosineMatrix(av, bv), nil
}

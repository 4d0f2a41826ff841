package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), "fix the authentication bug")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "fix the authentication bug")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashEmbedder_DifferentTextDifferentVector(t *testing.T) {
	e := NewHashEmbedder(64)
	a, _ := e.Embed(context.Background(), "alpha")
	b, _ := e.Embed(context.Background(), "beta")
	assert.NotEqual(t, a, b)
}

func TestCosine_IdenticalVectorsScoreOne(t *testing.T) {
	e := NewHashEmbedder(32)
	v, _ := e.Embed(context.Background(), "identical text")
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosine_MismatchedLengthIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
}

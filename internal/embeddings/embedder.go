// Package embeddings provides the Retriever's pluggable embedding
// capability: a pure function mapping text to a fixed-dimension vector.
package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// Embedder is the capability the Retriever closes over. Implementations
// must be safe for concurrent use and must always return vectors of
// Dimension() length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

const DefaultDimension = 256

// HashEmbedder is the spec-mandated deterministic fallback: a
// token-hashing pseudo-embedding projected into a fixed dimension and
// L2-normalized. It performs no I/O and never fails.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder constructs a HashEmbedder with the given dimension.
// dim <= 0 uses DefaultDimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Dimension() int { return h.dim }

// Embed tokenizes text on whitespace/punctuation, hashes each token
// into a bucket of the output vector, and L2-normalizes the result.
// Identical text always yields a bit-identical vector.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	tokens := tokenize(text)
	for _, tok := range tokens {
		sum := sha256.Sum256([]byte(tok))
		bucket := int(binary.BigEndian.Uint64(sum[:8]) % uint64(h.dim))
		sign := float32(1)
		if sum[8]%2 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}
	normalize(vec)
	return vec, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range vec {
		vec[i] /= norm
	}
}

// Cosine computes the cosine similarity of two equal-length vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

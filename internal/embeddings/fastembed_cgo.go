//go:build cgo

package embeddings

import (
	"context"
	"fmt"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedConfig configures a real local embedding provider.
type FastEmbedConfig struct {
	Model    string
	CacheDir string
}

// FastEmbedEmbedder wraps anush008/fastembed-go's local ONNX-backed
// model. It is gated behind cgo exactly as the teacher gates its own
// FastEmbed provider, since the underlying runtime is a native library.
type FastEmbedEmbedder struct {
	model *fastembed.FlagEmbedding
	dim   int
}

// NewFastEmbedEmbedder constructs a FastEmbedEmbedder, downloading the
// configured model into CacheDir on first use.
func NewFastEmbedEmbedder(cfg FastEmbedConfig) (*FastEmbedEmbedder, error) {
	model := cfg.Model
	if model == "" {
		model = "BAAI/bge-small-en-v1.5"
	}
	opts := fastembed.InitOptions{
		Model:     fastembed.EmbeddingModel(model),
		CacheDir:  cfg.CacheDir,
		MaxLength: 512,
	}
	m, err := fastembed.NewFlagEmbedding(&opts)
	if err != nil {
		return nil, fmt.Errorf("fastembed: %w", err)
	}
	return &FastEmbedEmbedder{model: m, dim: detectDimension(model)}, nil
}

func (f *FastEmbedEmbedder) Dimension() int { return f.dim }

func (f *FastEmbedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vecs, err := f.model.Embed([]string{text}, 1)
	if err != nil {
		return nil, fmt.Errorf("fastembed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("fastembed: empty result")
	}
	return vecs[0], nil
}

func detectDimension(model string) int {
	switch model {
	case "BAAI/bge-base-en-v1.5":
		return 768
	case "BAAI/bge-large-en-v1.5":
		return 1024
	default:
		return 384
	}
}

package embeddings

import "fmt"

// ProviderConfig selects and configures an Embedder at construction.
type ProviderConfig struct {
	Provider string // "hash" (default) or "fastembed"
	Model    string
	CacheDir string
	Dim      int
}

// NewProvider builds the configured Embedder. Retrieval always has a
// working embedder: "hash" never fails, and "fastembed" failures are
// the caller's signal to fall back to NewHashEmbedder per spec §7
// ("embedding failures fall back to the hash-based provider").
func NewProvider(cfg ProviderConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "hash":
		return NewHashEmbedder(cfg.Dim), nil
	case "fastembed":
		e, err := NewFastEmbedEmbedder(FastEmbedConfig{Model: cfg.Model, CacheDir: cfg.CacheDir})
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("embeddings: unknown provider %q", cfg.Provider)
	}
}

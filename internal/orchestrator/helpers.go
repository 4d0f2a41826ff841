package orchestrator

import (
	"os"
	"time"

	"github.com/fyrsmithlabs/guidectl/internal/config"
	"github.com/fyrsmithlabs/guidectl/internal/embeddings"
	"github.com/fyrsmithlabs/guidectl/internal/optimizer"
)

func embeddingProvider(cfg config.RetrieverConfig) (embeddings.Embedder, error) {
	return embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Dim:      embeddings.DefaultDimension,
	})
}

// buildExecutor wires a CommandExecutor when the operator configured
// one, falling back to the spec's conservative fixed-percentage
// estimates otherwise.
func buildExecutor(cfg config.OptimizerConfig) optimizer.Executor {
	if len(cfg.ExecutorCommand) == 0 {
		return optimizer.FallbackExecutor{}
	}
	timeout := time.Duration(cfg.ExecutorTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return optimizer.NewCommandExecutor(cfg.ExecutorCommand, "", timeout)
}

func readFileOrEmpty(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

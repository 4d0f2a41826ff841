package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 60, cfg.Compiler.MaxConstitutionLines)
	assert.Equal(t, 5, cfg.Retriever.TopK)
	assert.Equal(t, 0.15, cfg.Retriever.IntentBoost)
	assert.Equal(t, 300, cfg.Gate.DiffSizeThreshold)
	assert.Equal(t, 2, cfg.Optimizer.PromotionWins)
	assert.Equal(t, 10, cfg.Optimizer.MinEventsForOptimization)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Retriever.TopK, cfg.Retriever.TopK)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guidectl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retriever:\n  top_k: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Retriever.TopK)
	assert.Equal(t, Default().Compiler.MaxConstitutionLines, cfg.Compiler.MaxConstitutionLines)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guidectl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retriever:\n  top_k: 8\n"), 0o644))

	t.Setenv("GUIDECTL_RETRIEVER_TOP_K", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retriever.TopK)
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "retriever.top_k", envTransform("RETRIEVER_TOP_K"))
	assert.Equal(t, "logging", envTransform("LOGGING"))
}

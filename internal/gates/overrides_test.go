package gates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverrides_MissingFileIsNoop(t *testing.T) {
	cfg := DefaultGateConfig()
	merged, err := LoadOverrides(cfg, filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, cfg.DestructivePatterns, merged.DestructivePatterns)
}

func TestLoadOverrides_EmptyPathIsNoop(t *testing.T) {
	cfg := DefaultGateConfig()
	merged, err := LoadOverrides(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, cfg, merged)
}

func TestLoadOverrides_AppendsPatterns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.toml")
	contents := `
destructive_patterns = ["(?i)\\bkubectl\\s+delete\\s+pod\\b"]
allowed_tools = ["custom.tool"]

[[secret_patterns]]
id = "internal-token"
pattern = "(?i)internal-tok-[a-z0-9]{10,}"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg := DefaultGateConfig()
	merged, err := LoadOverrides(cfg, path)
	require.NoError(t, err)

	assert.Len(t, merged.DestructivePatterns, len(cfg.DestructivePatterns)+1)
	assert.Len(t, merged.SecretPatterns, len(cfg.SecretPatterns)+1)
	assert.Contains(t, merged.AllowedTools, "custom.tool")

	compiled, err := Compile(merged)
	require.NoError(t, err)
	result := Command(compiled, "kubectl delete pod my-pod")
	agg := Aggregate(result)
	assert.Equal(t, "require-confirmation", agg.Decision.String())
}

func TestLoadOverrides_InvalidTOMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	_, err := LoadOverrides(DefaultGateConfig(), path)
	assert.Error(t, err)
}

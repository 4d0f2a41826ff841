package gates

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// overridesFile is the TOML shape of an operator-supplied pattern
// overrides file: additional destructive/secret patterns layered on
// top of the built-in defaults, plus an optional tool allowlist.
type overridesFile struct {
	DestructivePatterns []string        `toml:"destructive_patterns"`
	SecretPatterns      []tomlSecretPat `toml:"secret_patterns"`
	AllowedTools        []string        `toml:"allowed_tools"`
}

type tomlSecretPat struct {
	ID      string `toml:"id"`
	Pattern string `toml:"pattern"`
}

// LoadOverrides reads a TOML pattern-overrides file and merges it onto
// cfg, appending its patterns to the built-in set. A missing path is
// not an error: overrides are optional.
func LoadOverrides(cfg GateConfig, path string) (GateConfig, error) {
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var file overridesFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return cfg, fmt.Errorf("gates: decoding overrides %s: %w", path, err)
	}

	cfg.DestructivePatterns = append(cfg.DestructivePatterns, file.DestructivePatterns...)
	for _, sp := range file.SecretPatterns {
		cfg.SecretPatterns = append(cfg.SecretPatterns, SecretPattern{ID: sp.ID, Pattern: sp.Pattern})
	}
	cfg.AllowedTools = append(cfg.AllowedTools, file.AllowedTools...)

	return cfg, nil
}

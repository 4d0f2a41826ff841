package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering, in increasing precedence:
// defaults, an optional YAML file at configPath (or the default
// per-user path if configPath is empty and the default file exists),
// then GUIDECTL_* environment variables.
func Load(configPath string) (Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		configPath = defaultConfigPath()
	}
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: loading %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("GUIDECTL_", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading environment: %w", err)
	}

	out := Default()
	if err := k.Unmarshal("", &out); err != nil {
		return Config{}, fmt.Errorf("config: unmarshaling: %w", err)
	}
	applyDefaults(&out)

	return out, nil
}

// applyDefaults fills any field still at its zero value after
// file/env unmarshaling, since koanf.Unmarshal only overwrites keys it
// actually finds.
func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.Compiler.MaxConstitutionLines == 0 {
		cfg.Compiler.MaxConstitutionLines = d.Compiler.MaxConstitutionLines
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = d.Retriever.TopK
	}
	if cfg.Retriever.IntentBoost == 0 {
		cfg.Retriever.IntentBoost = d.Retriever.IntentBoost
	}
	if cfg.Retriever.Provider == "" {
		cfg.Retriever.Provider = d.Retriever.Provider
	}
	if cfg.Ledger.MaxReworkRatio == 0 {
		cfg.Ledger.MaxReworkRatio = d.Ledger.MaxReworkRatio
	}
	if cfg.Ledger.ViolationThreshold == 0 {
		cfg.Ledger.ViolationThreshold = d.Ledger.ViolationThreshold
	}
	if cfg.Ledger.NATSSubject == "" {
		cfg.Ledger.NATSSubject = d.Ledger.NATSSubject
	}
	if cfg.Optimizer.PromotionWins == 0 {
		cfg.Optimizer.PromotionWins = d.Optimizer.PromotionWins
	}
	if cfg.Optimizer.TopViolationsPerCycle == 0 {
		cfg.Optimizer.TopViolationsPerCycle = d.Optimizer.TopViolationsPerCycle
	}
	if cfg.Optimizer.ImprovementThreshold == 0 {
		cfg.Optimizer.ImprovementThreshold = d.Optimizer.ImprovementThreshold
	}
	if cfg.Optimizer.MaxRiskIncrease == 0 {
		cfg.Optimizer.MaxRiskIncrease = d.Optimizer.MaxRiskIncrease
	}
	if cfg.Optimizer.MinEventsForOptimization == 0 {
		cfg.Optimizer.MinEventsForOptimization = d.Optimizer.MinEventsForOptimization
	}
	if cfg.Optimizer.ExecutorTimeoutSeconds == 0 {
		cfg.Optimizer.ExecutorTimeoutSeconds = d.Optimizer.ExecutorTimeoutSeconds
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
	if len(cfg.Gate.DestructivePatterns) == 0 {
		cfg.Gate.DestructivePatterns = d.Gate.DestructivePatterns
	}
	if len(cfg.Gate.SecretPatterns) == 0 {
		cfg.Gate.SecretPatterns = d.Gate.SecretPatterns
	}
	if cfg.Gate.DiffSizeThreshold == 0 {
		cfg.Gate.DiffSizeThreshold = d.Gate.DiffSizeThreshold
	}
}

// envTransform maps GUIDECTL_OPTIMIZER_PROMOTION_WINS to
// optimizer.promotion_wins: the prefix is already stripped by the env
// provider, so s is "OPTIMIZER_PROMOTION_WINS"; split once on the
// first underscore into section and field.
func envTransform(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "guidectl.yaml"
	}
	return filepath.Join(home, ".config", "guidectl", "guidectl.yaml")
}

// Package config loads guidectl's layered configuration: hardcoded
// defaults, then an optional guidectl.yaml, then GUIDECTL_* environment
// variables, following the teacher's config-precedence convention.
package config

import (
	"github.com/fyrsmithlabs/guidectl/internal/gates"
	"github.com/fyrsmithlabs/guidectl/internal/optimizer"
)

// Secret wraps strings that should never surface in logs or serialized
// output.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s Secret) Value() string { return string(s) }
func (s Secret) IsSet() bool   { return s != "" }

// RetrieverConfig is the struct form of the retrieval option table
// (spec §6).
type RetrieverConfig struct {
	TopK        int     `koanf:"top_k"`
	IntentBoost float64 `koanf:"intent_boost"`
	PoolDir     string  `koanf:"pool_dir"`
	Provider    string  `koanf:"provider"` // "hash" | "fastembed"
	Model       string  `koanf:"model"`
}

// CompilerConfig is the struct form of the compiler's configurable options.
type CompilerConfig struct {
	MaxConstitutionLines int `koanf:"max_constitution_lines"`
}

// LedgerConfig names the persisted-state directory and optional sinks.
type LedgerConfig struct {
	StoreDir           string  `koanf:"store_dir"`
	MaxReworkRatio     float64 `koanf:"max_rework_ratio"`
	ViolationWindow    int     `koanf:"violation_window"`
	ViolationThreshold float64 `koanf:"violation_threshold"`
	NATSURL            string  `koanf:"nats_url"`
	NATSSubject        string  `koanf:"nats_subject"`
}

// OptimizerConfig is the struct form of the optimizer's option table.
type OptimizerConfig struct {
	PromotionWins            int     `koanf:"promotion_wins"`
	TopViolationsPerCycle    int     `koanf:"top_violations_per_cycle"`
	ImprovementThreshold     float64 `koanf:"improvement_threshold"`
	MaxRiskIncrease          float64 `koanf:"max_risk_increase"`
	MinEventsForOptimization int     `koanf:"min_events_for_optimization"`
	ExecutorCommand          []string `koanf:"executor_command"`
	ExecutorTimeoutSeconds   int      `koanf:"executor_timeout_seconds"`
	GitHubToken              Secret   `koanf:"github_token"`
	GitHubOwner              string   `koanf:"github_owner"`
	GitHubRepo               string   `koanf:"github_repo"`
	GitHubIssue              int      `koanf:"github_issue"`
}

// LoggingConfig controls the zap logger built by internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config is the top-level, layered configuration object for guidectl.
type Config struct {
	Compiler     CompilerConfig   `koanf:"compiler"`
	Retriever    RetrieverConfig  `koanf:"retriever"`
	Gate         gates.GateConfig `koanf:"gate"`
	GatePatterns string           `koanf:"gate_patterns_file"`
	Ledger       LedgerConfig     `koanf:"ledger"`
	Optimizer    OptimizerConfig  `koanf:"optimizer"`
	Logging      LoggingConfig    `koanf:"logging"`
}

// Default returns a Config populated with the spec's §6 defaults.
func Default() Config {
	return Config{
		Compiler: CompilerConfig{MaxConstitutionLines: 60},
		Retriever: RetrieverConfig{
			TopK:        5,
			IntentBoost: 0.15,
			Provider:    "hash",
		},
		Gate: gates.DefaultGateConfig(),
		Ledger: LedgerConfig{
			MaxReworkRatio:     0.30,
			ViolationWindow:    0,
			ViolationThreshold: 5.0,
			NATSSubject:        "guidectl.events",
		},
		Optimizer: OptimizerConfig{
			PromotionWins:            optimizer.DefaultConfig().PromotionWins,
			TopViolationsPerCycle:    optimizer.DefaultConfig().TopViolationsPerCycle,
			ImprovementThreshold:     optimizer.DefaultConfig().ImprovementThreshold,
			MaxRiskIncrease:          optimizer.DefaultConfig().MaxRiskIncrease,
			MinEventsForOptimization: optimizer.DefaultConfig().MinEventsForOptimization,
			ExecutorTimeoutSeconds:   300,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// OptimizerConfig converts the loaded config into optimizer.Config.
func (c Config) ToOptimizerConfig() optimizer.Config {
	return optimizer.Config{
		PromotionWins:            c.Optimizer.PromotionWins,
		TopViolationsPerCycle:    c.Optimizer.TopViolationsPerCycle,
		ImprovementThreshold:     c.Optimizer.ImprovementThreshold,
		MaxRiskIncrease:          c.Optimizer.MaxRiskIncrease,
		MinEventsForOptimization: c.Optimizer.MinEventsForOptimization,
	}
}

// Package gates implements the four pure, synchronous pattern-based
// enforcement checks: destructive ops, tool allowlist, diff size, and
// secrets. Gates never read the clock, randomness, environment, or
// network, and never block on I/O; patterns are precompiled once at
// config-load time per GateConfig and cached for the gate's lifetime.
package gates

import (
	"fmt"
	"regexp"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

// GateConfig is the immutable configuration gates close over.
type GateConfig struct {
	DestructivePatterns []string
	SecretPatterns      []SecretPattern
	AllowedTools        []string
	DiffSizeThreshold   int
	SchemaVersion       int
}

// SecretPattern names a regex so gate results and redaction previews
// can cite the rule that fired.
type SecretPattern struct {
	ID      string
	Pattern string
}

// DefaultGateConfig returns the built-in pattern set from spec §4.3.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		DestructivePatterns: DefaultDestructivePatterns(),
		SecretPatterns:      DefaultSecretPatterns(),
		AllowedTools:        nil, // disabled by default
		DiffSizeThreshold:   300,
		SchemaVersion:       1,
	}
}

// DefaultDestructivePatterns returns the built-in destructive-operation
// patterns, case-insensitive with word boundaries where meaningful.
func DefaultDestructivePatterns() []string {
	return []string{
		`(?i)\brm\s+-rf\b`,
		`(?i)\bDROP\s+(DATABASE|TABLE|SCHEMA|INDEX)\b`,
		`(?i)\bTRUNCATE\s+TABLE\b`,
		`(?i)\bgit\s+push\s+--force\b`,
		`(?i)\bgit\s+reset\s+--hard\b`,
		`(?i)\bgit\s+clean\s+-fd\b`,
		`(?i)\bformat\s+[A-Za-z]:`,
		`(?i)\bdel\s+(/s|/f)\b`,
		`(?i)\b(kubectl|helm)\s+delete\s+(--all|namespace)\b`,
		`(?i)\bDELETE\s+FROM\b.*$`,
		`(?i)\bALTER\s+TABLE\b.*\bDROP\b`,
	}
}

// DefaultSecretPatterns returns the built-in secret-detection patterns.
func DefaultSecretPatterns() []SecretPattern {
	return []SecretPattern{
		{ID: "api-key-assignment", Pattern: `(?i)(?:api[_-]?key|apikey)\s*[:=]\s*['"]?([A-Za-z0-9_\-]{16,64})['"]?`},
		{ID: "password-assignment", Pattern: `(?i)(?:password|passwd|pwd)\s*[:=]\s*['"]?([^\s'"]{8,})['"]?`},
		{ID: "bearer-token", Pattern: `(?i)\bBearer\s+([A-Za-z0-9_\-\.=]{16,})`},
		{ID: "pem-private-key", Pattern: `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----`},
		{ID: "vendor-sk-key", Pattern: `\bsk-[A-Za-z0-9]{20,}\b`},
		{ID: "vendor-github-pat", Pattern: `\bghp_[A-Za-z0-9]{36}\b`},
		{ID: "vendor-npm-token", Pattern: `\bnpm_[A-Za-z0-9]{36}\b`},
		{ID: "vendor-aws-access-key", Pattern: `\bAKIA[A-Z0-9]{16}\b`},
	}
}

// CompiledGateConfig precompiles a GateConfig's patterns once so gate
// evaluation itself never calls regexp.Compile.
type CompiledGateConfig struct {
	cfg                 GateConfig
	destructive         []*regexp.Regexp
	secrets             []compiledSecretPattern
	allowedToolPrefixes []string
	allowedToolExact    map[string]struct{}
	allowAnyTool        bool
}

type compiledSecretPattern struct {
	id  string
	re  *regexp.Regexp
}

// Compile precompiles cfg's patterns, returning a PatternError if any
// pattern fails to compile.
func Compile(cfg GateConfig) (*CompiledGateConfig, error) {
	c := &CompiledGateConfig{cfg: cfg}

	for _, p := range cfg.DestructivePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, model.NewPatternError("compile destructive pattern", fmt.Errorf("%q: %w", p, err))
		}
		c.destructive = append(c.destructive, re)
	}

	for _, sp := range cfg.SecretPatterns {
		re, err := regexp.Compile(sp.Pattern)
		if err != nil {
			return nil, model.NewPatternError("compile secret pattern", fmt.Errorf("%q: %w", sp.Pattern, err))
		}
		c.secrets = append(c.secrets, compiledSecretPattern{id: sp.ID, re: re})
	}

	c.allowedToolExact = map[string]struct{}{}
	for _, t := range cfg.AllowedTools {
		if t == "*" {
			c.allowAnyTool = true
			continue
		}
		if len(t) > 0 && t[len(t)-1] == '*' {
			c.allowedToolPrefixes = append(c.allowedToolPrefixes, t[:len(t)-1])
			continue
		}
		c.allowedToolExact[t] = struct{}{}
	}

	return c, nil
}

// DiffThreshold returns the configured diff-size warn threshold.
func (c *CompiledGateConfig) DiffThreshold() int {
	return c.cfg.DiffSizeThreshold
}

// ToolAllowlistEnabled reports whether the tool-allowlist gate is active.
func (c *CompiledGateConfig) ToolAllowlistEnabled() bool {
	return len(c.cfg.AllowedTools) > 0
}

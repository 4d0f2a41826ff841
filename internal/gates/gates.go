package gates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

// evaluateDestructive matches cmd against the precompiled destructive
// patterns, triggering require-confirmation.
func evaluateDestructive(c *CompiledGateConfig, cmd string) model.GateResult {
	for _, re := range c.destructive {
		if matches(re, cmd) {
			return model.GateResult{
				GateName:       "destructive-ops",
				Decision:       model.DecisionRequireConfirmation,
				Reason:         fmt.Sprintf("command matches destructive pattern %q", re.String()),
				TriggeredRules: []string{re.String()},
				Remediation:    "1) review the command's blast radius 2) confirm a backup or rollback path exists 3) re-run with explicit confirmation",
			}
		}
	}
	return model.GateResult{GateName: "destructive-ops", Decision: model.DecisionAllow}
}

// evaluateToolAllowlist blocks tool names not present in the allowlist.
// Disabled (always allow) when no allowlist is configured.
func evaluateToolAllowlist(c *CompiledGateConfig, toolName string) model.GateResult {
	if !c.ToolAllowlistEnabled() {
		return model.GateResult{GateName: "tool-allowlist", Decision: model.DecisionAllow}
	}
	if c.allowAnyTool {
		return model.GateResult{GateName: "tool-allowlist", Decision: model.DecisionAllow}
	}
	if _, ok := c.allowedToolExact[toolName]; ok {
		return model.GateResult{GateName: "tool-allowlist", Decision: model.DecisionAllow}
	}
	for _, prefix := range c.allowedToolPrefixes {
		if strings.HasPrefix(toolName, prefix) {
			return model.GateResult{GateName: "tool-allowlist", Decision: model.DecisionAllow}
		}
	}
	return model.GateResult{
		GateName:    "tool-allowlist",
		Decision:    model.DecisionBlock,
		Reason:      fmt.Sprintf("tool %q is not in the allowlist", toolName),
		Remediation: "add the tool to allowedTools or use an already-allowed tool",
	}
}

// evaluateDiffSize warns when lines exceeds the configured threshold.
// Exactly-at-threshold does not warn; threshold+1 does.
func evaluateDiffSize(c *CompiledGateConfig, path string, lines int) model.GateResult {
	if lines > c.DiffThreshold() {
		return model.GateResult{
			GateName:    "diff-size",
			Decision:    model.DecisionWarn,
			Reason:      fmt.Sprintf("%s changes %d lines, exceeding threshold %d", path, lines, c.DiffThreshold()),
			Remediation: "split the change into smaller, reviewable diffs",
		}
	}
	return model.GateResult{GateName: "diff-size", Decision: model.DecisionAllow}
}

// evaluateSecrets scans content for secret patterns and blocks on
// match, returning a redacted preview in Metadata.
func evaluateSecrets(c *CompiledGateConfig, content string) model.GateResult {
	findings := detectSecrets(c, content)
	if len(findings) == 0 {
		return model.GateResult{GateName: "secrets", Decision: model.DecisionAllow}
	}

	triggered := make([]string, 0, len(findings))
	metadata := make(map[string]string, len(findings))
	for _, f := range findings {
		triggered = append(triggered, f.RuleID)
		metadata[f.RuleID] = redactPreview(f.Match)
	}

	return model.GateResult{
		GateName:       "secrets",
		Decision:       model.DecisionBlock,
		Reason:         fmt.Sprintf("content matches %d secret pattern(s)", len(findings)),
		TriggeredRules: triggered,
		Remediation:    "remove the secret from the payload and use a secret manager reference instead",
		Metadata:       metadata,
	}
}

// matches treats a panicking pattern as no-match so enforcement stays
// available even if a user-supplied regex misbehaves at evaluation time.
func matches(re interface{ MatchString(string) bool }, s string) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return re.MatchString(s)
}

// Command evaluates a shell-like command string: destructive-ops, secrets.
func Command(c *CompiledGateConfig, cmd string) []model.GateResult {
	return []model.GateResult{
		evaluateDestructive(c, cmd),
		evaluateSecrets(c, cmd),
	}
}

// ToolUse evaluates a tool invocation: tool-allowlist, secrets (scanning
// the canonical JSON serialization of params).
func ToolUse(c *CompiledGateConfig, toolName, paramsSerialized string) []model.GateResult {
	return []model.GateResult{
		evaluateToolAllowlist(c, toolName),
		evaluateSecrets(c, paramsSerialized),
	}
}

// Edit evaluates a file edit: diff-size, secrets.
func Edit(c *CompiledGateConfig, path, content string, diffLines int) []model.GateResult {
	return []model.GateResult{
		evaluateDiffSize(c, path, diffLines),
		evaluateSecrets(c, content),
	}
}

// Aggregate reduces a result set to the single result with maximum
// severity; ties are broken by position (first wins).
func Aggregate(results []model.GateResult) model.GateResult {
	if len(results) == 0 {
		return model.GateResult{GateName: "aggregate", Decision: model.DecisionAllow}
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Decision > best.Decision {
			best = r
		}
	}
	return best
}

// sortedRuleIDs is a small helper kept for deterministic metadata
// iteration in callers that render gate output (e.g. the CLI).
func sortedRuleIDs(m map[string]string) []string {
	ids := make([]string, 0, len(m))
	for k := range m {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}

package gates

// secretFinding is an internal match record used only to build the
// secrets gate's result metadata; it is not part of the data model
// because it never outlives a single evaluateSecrets call.
type secretFinding struct {
	RuleID string
	Match  string
}

// detectSecrets runs every precompiled secret pattern against content
// and returns one finding per match, in pattern-declaration order. This
// mirrors the teacher's keyword-gated scrubber shape but drops the
// keyword prefilter: the spec's pattern list is short and fixed, so the
// prefilter's only job in the teacher (skipping an 800-rule gitleaks
// pass) has no analogue here.
func detectSecrets(c *CompiledGateConfig, content string) []secretFinding {
	var findings []secretFinding
	for _, p := range c.secrets {
		for _, match := range p.re.FindAllString(content, -1) {
			findings = append(findings, secretFinding{RuleID: p.id, Match: match})
		}
	}
	return findings
}

// redactPreview renders the spec's partial-redaction format: first 4
// characters, then "****", then the last 4 characters. Shorter matches
// are redacted wholesale.
func redactPreview(secret string) string {
	const keep = 4
	if len(secret) <= keep*2 {
		return "****"
	}
	return secret[:keep] + "****" + secret[len(secret)-keep:]
}

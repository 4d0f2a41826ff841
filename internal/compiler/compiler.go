// Package compiler parses a rules document into a PolicyBundle: a
// Constitution of always-loaded invariants plus a pool of retrievable
// shards.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

const (
	DefaultMaxConstitutionLines = 60
	constitutionOverflowMarker  = "... [truncated]"
)

// constitutionHeadingPattern matches section headings that make every
// rule beneath them part of the constitution.
var constitutionHeadingPattern = regexp.MustCompile(
	`(?i)safety|security|invariant|constitution|critical|non-negotiable|always|must|never|required|mandatory`,
)

// headingPattern recognizes up to four '#' markdown headings.
var headingPattern = regexp.MustCompile(`^#{1,4}\s+(.*)$`)

// ruleLinePattern matches the canonical rule line form:
//
//	[ID] text @tag1 @tag2 #domain scope:glob priority:N (riskClass)
var ruleLinePattern = regexp.MustCompile(`^\[([A-Za-z0-9_-]+)\]\s*(.*)$`)
var atTagPattern = regexp.MustCompile(`@([A-Za-z0-9_-]+)`)
var domainTagPattern = regexp.MustCompile(`#([A-Za-z0-9_-]+)`)
var scopePattern = regexp.MustCompile(`scope:(\S+)`)
var priorityPattern = regexp.MustCompile(`priority:(-?\d+)`)
var riskPattern = regexp.MustCompile(`\((low|medium|high|critical)\)`)

// Warning is a non-fatal parse issue attached to the compiled bundle.
type Warning struct {
	Line    int
	Message string
}

// Result wraps a compiled PolicyBundle with any accumulated warnings.
type Result struct {
	Bundle   model.PolicyBundle
	Warnings []Warning
}

// Source is one input document to Compile: the primary document has
// Source == model.SourceRoot, an optional overlay has SourceLocal.
type Source struct {
	Text   string
	Source model.RuleSource
}

// Compile parses a primary rules document plus an optional local
// overlay into a PolicyBundle. The primary document is mandatory; a
// missing/empty primary document is a hard ConfigError.
func Compile(primary string, overlay string, maxConstitutionLines int) (Result, error) {
	if strings.TrimSpace(primary) == "" {
		return Result{}, model.NewConfigError("compile", fmt.Errorf("primary rules document is empty"))
	}
	if maxConstitutionLines <= 0 {
		maxConstitutionLines = DefaultMaxConstitutionLines
	}

	now := time.Now().UTC()
	var warnings []Warning

	rootRules, rootWarnings := parseDocument(primary, model.SourceRoot, now)
	warnings = append(warnings, rootWarnings...)

	var overlayRules []model.GuidanceRule
	if strings.TrimSpace(overlay) != "" {
		var overlayWarnings []Warning
		overlayRules, overlayWarnings = parseDocument(overlay, model.SourceLocal, now)
		warnings = append(warnings, overlayWarnings...)
	}

	merged, dupErr := mergeRules(rootRules, overlayRules)
	if dupErr != nil {
		return Result{}, dupErr
	}

	var constitutionRules []model.GuidanceRule
	var shardRules []model.GuidanceRule
	for _, r := range merged {
		if r.IsConstitution {
			constitutionRules = append(constitutionRules, r)
		} else {
			shardRules = append(shardRules, r)
		}
	}

	constitutionText, truncated := renderConstitution(constitutionRules, maxConstitutionLines)
	if truncated {
		warnings = append(warnings, Warning{Message: "constitution text truncated at maxConstitutionLines"})
	}

	shards := make([]model.RuleShard, 0, len(shardRules))
	for _, r := range shardRules {
		shards = append(shards, model.RuleShard{
			Rule:        r,
			CompactText: compactText(r),
		})
	}

	manifest := model.BundleManifest{
		SchemaVersion:   1,
		SourceHashes:    map[string]string{"primary": hashText(primary)},
		RuleCountByRisk: countByRisk(merged),
		CompiledAt:      now,
	}
	if strings.TrimSpace(overlay) != "" {
		manifest.SourceHashes["overlay"] = hashText(overlay)
	}

	bundle := model.PolicyBundle{
		Constitution: model.Constitution{
			Rules: constitutionRules,
			Text:  constitutionText,
			Hash:  hashText(canonicalize(constitutionText)),
		},
		Shards:   shards,
		Manifest: manifest,
	}

	return Result{Bundle: bundle, Warnings: warnings}, nil
}

// parseDocument walks a document's lines, tracking the current section
// heading and building up an implicit rule from prose lines that don't
// match the canonical rule-line form.
func parseDocument(doc string, source model.RuleSource, now time.Time) ([]model.GuidanceRule, []Warning) {
	var rules []model.GuidanceRule
	var warnings []Warning

	isConstitutionSection := false
	implicitIndex := 0

	var pending *model.GuidanceRule
	flush := func() {
		if pending != nil {
			rules = append(rules, *pending)
			pending = nil
		}
	}

	lines := strings.Split(doc, "\n")
	for lineNo, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}

		if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			isConstitutionSection = constitutionHeadingPattern.MatchString(m[1])
			continue
		}

		if m := ruleLinePattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			id := m[1]
			rest := m[2]
			rule := parseRuleLine(id, rest, source, isConstitutionSection, now)
			pending = &rule
			continue
		}

		if pending != nil {
			pending.Text = strings.TrimSpace(pending.Text + " " + trimmed)
			continue
		}

		// Prose with no open rule and no rule-line form: treat as an
		// unstructured, implicitly-identified rule under the current
		// section, rather than discarding it.
		implicitIndex++
		id := fmt.Sprintf("%s-implicit-%03d", strings.ToUpper(string(source))[:1], implicitIndex)
		rule := newRule(id, trimmed, source, isConstitutionSection, now)
		if !ruleLinePattern.MatchString(trimmed) && strings.HasPrefix(trimmed, "[") {
			warnings = append(warnings, Warning{Line: lineNo + 1, Message: "malformed rule header treated as prose: " + trimmed})
		}
		pending = &rule
	}
	flush()

	return rules, warnings
}

func newRule(id, text string, source model.RuleSource, isConstitution bool, now time.Time) model.GuidanceRule {
	base := 0
	priority := base
	if isConstitution {
		priority = base + 100
	}
	return model.GuidanceRule{
		ID:             id,
		Text:           text,
		Priority:       priority,
		BasePriority:   base,
		RiskClass:      model.RiskLow,
		ToolClasses:    map[model.ToolClass]struct{}{},
		IntentTags:     map[model.TaskIntent]struct{}{},
		Source:         source,
		IsConstitution: isConstitution,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func parseRuleLine(id, rest string, source model.RuleSource, isConstitution bool, now time.Time) model.GuidanceRule {
	rule := newRule(id, rest, source, isConstitution, now)

	basePriority := 0
	if m := priorityPattern.FindStringSubmatch(rest); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			basePriority = v
		}
	}
	rule.BasePriority = basePriority
	rule.Priority = basePriority
	if isConstitution {
		rule.Priority = basePriority + 100
	}

	if m := riskPattern.FindStringSubmatch(rest); m != nil {
		rule.RiskClass = model.RiskClass(m[1])
	}

	if m := scopePattern.FindStringSubmatch(rest); m != nil {
		rule.RepoScopes = []string{m[1]}
	} else {
		rule.RepoScopes = []string{"*"}
	}

	for _, m := range atTagPattern.FindAllStringSubmatch(rest, -1) {
		rule.IntentTags[model.TaskIntent(m[1])] = struct{}{}
	}
	for _, m := range domainTagPattern.FindAllStringSubmatch(rest, -1) {
		rule.Domains = append(rule.Domains, m[1])
	}

	text := rest
	text = priorityPattern.ReplaceAllString(text, "")
	text = riskPattern.ReplaceAllString(text, "")
	text = scopePattern.ReplaceAllString(text, "")
	text = atTagPattern.ReplaceAllString(text, "")
	text = domainTagPattern.ReplaceAllString(text, "")
	rule.Text = strings.Join(strings.Fields(text), " ")

	return rule
}

// mergeRules resolves duplicate ids across root and overlay documents:
// higher priority wins; equal priority, local overlay wins over root;
// equal priority and equal source is a fatal compile error.
func mergeRules(root, overlay []model.GuidanceRule) ([]model.GuidanceRule, error) {
	byID := make(map[string]model.GuidanceRule, len(root)+len(overlay))
	order := make([]string, 0, len(root)+len(overlay))

	add := func(r model.GuidanceRule) error {
		existing, ok := byID[r.ID]
		if !ok {
			byID[r.ID] = r
			order = append(order, r.ID)
			return nil
		}
		switch {
		case r.Priority > existing.Priority:
			byID[r.ID] = r
		case r.Priority < existing.Priority:
			// keep existing
		default:
			if r.Source == existing.Source {
				return model.NewConfigError("merge",
					fmt.Errorf("duplicate rule id %q with equal priority and source %q", r.ID, r.Source))
			}
			if r.Source == model.SourceLocal {
				byID[r.ID] = r
			}
			// else existing (root) wins
		}
		return nil
	}

	for _, r := range root {
		if err := add(r); err != nil {
			return nil, err
		}
	}
	for _, r := range overlay {
		if err := add(r); err != nil {
			return nil, err
		}
	}

	out := make([]model.GuidanceRule, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

func renderConstitution(rules []model.GuidanceRule, maxLines int) (string, bool) {
	var b strings.Builder
	lineCount := 0
	truncated := false
	for _, r := range rules {
		if lineCount >= maxLines {
			truncated = true
			break
		}
		b.WriteString(fmt.Sprintf("[%s] %s", r.ID, r.Text))
		b.WriteString("\n")
		lineCount++
	}
	out := strings.TrimRight(b.String(), "\n")
	if truncated {
		out += "\n" + constitutionOverflowMarker
	}
	return out, truncated
}

func compactText(r model.GuidanceRule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.ID, r.Text)
	tags := make([]string, 0, len(r.IntentTags))
	for tag := range r.IntentTags {
		tags = append(tags, string(tag))
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(&b, " @%s", tag)
	}
	return b.String()
}

func countByRisk(rules []model.GuidanceRule) map[model.RiskClass]int {
	out := map[model.RiskClass]int{}
	for _, r := range rules {
		out[r.RiskClass]++
	}
	return out
}

// canonicalize NFC-normalizes text for stable hashing.
func canonicalize(s string) string {
	return norm.NFC.String(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) && r != '\n' {
			return ' '
		}
		return r
	}, s))
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(canonicalize(s)))
	return hex.EncodeToString(sum[:])[:16]
}

package retriever

import (
	"regexp"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

type negationPair struct {
	positive *regexp.Regexp
	negative *regexp.Regexp
}

// negationPairs are the lexical positive/negative pairs the spec's
// contradiction detector recognizes. Semantic contradictions across
// paraphrases are out of scope by design (spec §9 Open Questions).
var negationPairs = []negationPair{
	{regexp.MustCompile(`(?i)\bmust\b`), regexp.MustCompile(`(?i)\bnever\b|\bdo not\b|\bavoid\b`)},
	{regexp.MustCompile(`(?i)\balways\b`), regexp.MustCompile(`(?i)\bnever\b|\bdon't\b`)},
	{regexp.MustCompile(`(?i)\brequire\b`), regexp.MustCompile(`(?i)\bforbid\b|\bprohibit\b`)},
}

// contradicts reports whether a and b are contradictory: they share a
// domain tag and one matches a positive pattern while the other
// matches the paired negative pattern (in either direction).
func contradicts(a, b model.RuleShard) bool {
	if !shareDomain(a.Rule.Domains, b.Rule.Domains) {
		return false
	}
	for _, pair := range negationPairs {
		if pair.positive.MatchString(a.Rule.Text) && pair.negative.MatchString(b.Rule.Text) {
			return true
		}
		if pair.positive.MatchString(b.Rule.Text) && pair.negative.MatchString(a.Rule.Text) {
			return true
		}
	}
	return false
}

func shareDomain(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, d := range a {
		set[d] = struct{}{}
	}
	for _, d := range b {
		if _, ok := set[d]; ok {
			return true
		}
	}
	return false
}

// resolveContradictions walks candidates in descending-score order,
// admitting a candidate only if no already-admitted shard contradicts
// it. On a contradiction, the higher-priority shard wins (constitution
// boosts dominate); equal priority breaks to earlier score (i.e. the
// one already admitted, since candidates arrive sorted by score).
// Selection stops once admitted reaches topK.
func resolveContradictions(candidates []scoredShard, topK int) []scoredShard {
	var admitted []scoredShard
	for _, cand := range candidates {
		if len(admitted) >= topK {
			break
		}
		blocked := false
		for i, adm := range admitted {
			if !contradicts(cand.shard, adm.shard) {
				continue
			}
			if cand.shard.Rule.Priority > adm.shard.Rule.Priority {
				// candidate wins: replace the admitted shard with it.
				admitted[i] = cand
			}
			blocked = true
			break
		}
		if !blocked {
			admitted = append(admitted, cand)
		}
	}
	return admitted
}

// Package retriever classifies task intent and selects the top-K
// shards relevant to a task description by a hybrid
// similarity/intent/risk score with contradiction resolution.
package retriever

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

const DefaultTopK = 5

var riskBoosts = map[model.RiskClass]float64{
	model.RiskCritical: 0.10,
	model.RiskHigh:      0.07,
	model.RiskMedium:    0.05,
	model.RiskLow:       0,
}

const intentBoost = 0.15

// Retriever indexes a PolicyBundle's shards and answers retrieval
// requests against the current constitution + shard pool.
type Retriever struct {
	pool         *Pool
	constitution model.Constitution
}

// New constructs a Retriever over pool.
func New(pool *Pool) *Retriever {
	return &Retriever{pool: pool}
}

// Index stores bundle's constitution and hands bundle's shards to the
// pool, computing embeddings for any shard lacking one.
func (r *Retriever) Index(ctx context.Context, bundle model.PolicyBundle) error {
	if err := r.pool.Index(ctx, bundle); err != nil {
		return err
	}
	r.constitution = bundle.Constitution
	return nil
}

type scoredShard struct {
	shard      model.RuleShard
	breakdown  model.ScoreBreakdown
}

// Retrieve returns the constitution plus the top-K shards relevant to
// req, after scope/risk filtering, scoring, and contradiction
// resolution.
func (r *Retriever) Retrieve(ctx context.Context, req model.RetrievalRequest) (model.RetrievalResult, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	intent, confidence := ClassifyIntent(req.TaskDescription)
	if req.Intent != nil {
		intent = *req.Intent
	}

	shards := r.pool.CurrentShards()

	sims, err := r.pool.Similarities(ctx, req.TaskDescription)
	if err != nil {
		// Capability failure: fall back to zero similarity for every
		// shard rather than failing the retrieval outright (spec §7:
		// "selection always returns at least the constitution").
		sims = map[string]float64{}
	}

	var promoted []scoredShard
	candidates := make([]scoredShard, 0, len(shards))
	for _, shard := range shards {
		cosine := sims[shard.Rule.ID]
		im := 0.0
		if _, ok := shard.Rule.IntentTags[intent]; ok {
			im = 1.0
		}
		risk := riskBoosts[shard.Rule.RiskClass]
		total := cosine + intentBoost*im + risk
		breakdown := model.ScoreBreakdown{
			RuleID:      shard.Rule.ID,
			Cosine:      cosine,
			IntentMatch: im,
			RiskBoost:   risk,
			Total:       total,
		}

		// A rule the Optimizer has promoted joins the constitution (spec
		// §4.5: "the next retrieval uses the new constitution") and is
		// therefore unconditionally part of every retrieval from here
		// on: it never competes for a topK slot and is never excluded by
		// the scope/risk filters that gate ordinary shards.
		if shard.Rule.IsConstitution {
			promoted = append(promoted, scoredShard{shard: shard, breakdown: breakdown})
			continue
		}

		if !scopeMatches(shard.Rule.RepoScopes, req.RepoPath) {
			continue
		}
		if req.MinRiskClass != nil && shard.Rule.RiskClass.Less(*req.MinRiskClass) {
			continue
		}

		candidates = append(candidates, scoredShard{shard: shard, breakdown: breakdown})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].breakdown.Total > candidates[j].breakdown.Total
	})

	selected := resolveContradictions(candidates, topK)
	all := append(promoted, selected...)

	resultShards := make([]model.RuleShard, 0, len(all))
	breakdowns := make([]model.ScoreBreakdown, 0, len(all))
	var policyText strings.Builder
	policyText.WriteString(r.constitution.Text)
	for _, s := range all {
		resultShards = append(resultShards, s.shard)
		breakdowns = append(breakdowns, s.breakdown)
		policyText.WriteString("\n")
		policyText.WriteString(s.shard.CompactText)
	}

	return model.RetrievalResult{
		PolicyText:     strings.TrimRight(policyText.String(), "\n"),
		SelectedShards: resultShards,
		DetectedIntent: intent,
		Confidence:     confidence,
		ScoreBreakdown: breakdowns,
	}, nil
}

// scopeMatches reports whether any of scopes matches repoPath as a
// glob. "*" (or an unset repoPath) always matches.
func scopeMatches(scopes []string, repoPath string) bool {
	if repoPath == "" {
		return true
	}
	for _, scope := range scopes {
		if scope == "*" {
			return true
		}
		if ok, err := filepath.Match(scope, repoPath); err == nil && ok {
			return true
		}
	}
	return false
}

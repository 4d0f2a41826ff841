package retriever

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/guidectl/internal/embeddings"
	"github.com/fyrsmithlabs/guidectl/internal/model"
)

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	pool, err := NewPool(t.TempDir(), embeddings.NewHashEmbedder(embeddings.DefaultDimension))
	require.NoError(t, err)
	return New(pool)
}

func rule(id string, priority int, text string, domains []string) model.GuidanceRule {
	return model.GuidanceRule{
		ID:          id,
		Text:        text,
		Priority:    priority,
		RiskClass:   model.RiskMedium,
		ToolClasses: map[model.ToolClass]struct{}{model.ToolAny: {}},
		IntentTags:  map[model.TaskIntent]struct{}{},
		Domains:     domains,
		RepoScopes:  []string{"*"},
		Source:      model.SourceRoot,
		CreatedAt:   time.Unix(0, 0),
		UpdatedAt:   time.Unix(0, 0),
	}
}

func bundleOf(rules ...model.GuidanceRule) model.PolicyBundle {
	shards := make([]model.RuleShard, 0, len(rules))
	for _, r := range rules {
		shards = append(shards, model.RuleShard{Rule: r, CompactText: r.Text})
	}
	return model.PolicyBundle{
		Constitution: model.Constitution{Text: "CONSTITUTION"},
		Shards:       shards,
	}
}

func TestRetrieve_Determinism(t *testing.T) {
	r := newTestRetriever(t)
	bundle := bundleOf(
		rule("r1", 50, "use structured logging for all services", []string{"logging"}),
		rule("r2", 60, "write tests for every new feature", []string{"testing"}),
	)
	ctx := context.Background()
	require.NoError(t, r.Index(ctx, bundle))

	req := model.RetrievalRequest{TaskDescription: "fix the logging bug in the service"}

	a, err := r.Retrieve(ctx, req)
	require.NoError(t, err)
	b, err := r.Retrieve(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, a.PolicyText, b.PolicyText)
	assert.Equal(t, a.DetectedIntent, b.DetectedIntent)
	assert.Equal(t, a.ScoreBreakdown, b.ScoreBreakdown)
}

// TestRetrieve_ContradictionPrefersHigherPriority reproduces the spec's
// literal contradiction scenario: shard A (priority 80, "must use JWT")
// and shard B (priority 50, "never use JWT") share a domain and are
// lexically contradictory, so only A may ever be selected regardless of
// scoring order.
func TestRetrieve_ContradictionPrefersHigherPriority(t *testing.T) {
	r := newTestRetriever(t)
	a := rule("a", 80, "must use JWT for session tokens", []string{"auth"})
	b := rule("b", 50, "never use JWT, prefer opaque tokens", []string{"auth"})
	bundle := bundleOf(a, b)
	ctx := context.Background()
	require.NoError(t, r.Index(ctx, bundle))

	result, err := r.Retrieve(ctx, model.RetrievalRequest{TaskDescription: "implement session auth"})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.SelectedShards))
	for _, s := range result.SelectedShards {
		ids = append(ids, s.Rule.ID)
	}
	assert.Contains(t, ids, "a")
	assert.NotContains(t, ids, "b")
}

func TestRetrieve_RepoScopeFiltering(t *testing.T) {
	r := newTestRetriever(t)
	scoped := rule("scoped", 50, "only applies to the api repo", []string{"api"})
	scoped.RepoScopes = []string{"api/*"}
	global := rule("global", 50, "applies everywhere", []string{"general"})
	bundle := bundleOf(scoped, global)
	ctx := context.Background()
	require.NoError(t, r.Index(ctx, bundle))

	result, err := r.Retrieve(ctx, model.RetrievalRequest{
		TaskDescription: "update the web frontend",
		RepoPath:        "web/frontend",
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.SelectedShards))
	for _, s := range result.SelectedShards {
		ids = append(ids, s.Rule.ID)
	}
	assert.NotContains(t, ids, "scoped")
	assert.Contains(t, ids, "global")
}

func TestRetrieve_MinRiskClassFiltering(t *testing.T) {
	r := newTestRetriever(t)
	low := rule("low", 50, "minor style preference", []string{"style"})
	low.RiskClass = model.RiskLow
	critical := rule("critical", 50, "never disable TLS verification", []string{"security"})
	critical.RiskClass = model.RiskCritical
	bundle := bundleOf(low, critical)
	ctx := context.Background()
	require.NoError(t, r.Index(ctx, bundle))

	high := model.RiskHigh
	result, err := r.Retrieve(ctx, model.RetrievalRequest{
		TaskDescription: "review tls settings",
		MinRiskClass:    &high,
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.SelectedShards))
	for _, s := range result.SelectedShards {
		ids = append(ids, s.Rule.ID)
	}
	assert.Contains(t, ids, "critical")
	assert.NotContains(t, ids, "low")
}

func TestRetrieve_IntentOverride(t *testing.T) {
	r := newTestRetriever(t)
	secRule := rule("sec", 50, "validate all inputs at the trust boundary", []string{"security"})
	secRule.IntentTags = map[model.TaskIntent]struct{}{model.IntentSecurity: {}}
	bundle := bundleOf(secRule)
	ctx := context.Background()
	require.NoError(t, r.Index(ctx, bundle))

	intent := model.IntentSecurity
	result, err := r.Retrieve(ctx, model.RetrievalRequest{
		TaskDescription: "totally unrelated wording",
		Intent:          &intent,
	})
	require.NoError(t, err)
	assert.Equal(t, model.IntentSecurity, result.DetectedIntent)
	require.Len(t, result.ScoreBreakdown, 1)
	assert.Equal(t, 1.0, result.ScoreBreakdown[0].IntentMatch)
}

func TestRetrieve_TopKTruncation(t *testing.T) {
	r := newTestRetriever(t)
	rules := make([]model.GuidanceRule, 0, 8)
	for i := 0; i < 8; i++ {
		rules = append(rules, rule(
			string(rune('a'+i)), 50,
			"generic guidance text number", []string{"general"},
		))
	}
	bundle := bundleOf(rules...)
	ctx := context.Background()
	require.NoError(t, r.Index(ctx, bundle))

	result, err := r.Retrieve(ctx, model.RetrievalRequest{TaskDescription: "do some generic work"})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.SelectedShards), DefaultTopK)
}

func TestRetrieve_PolicyTextIncludesConstitution(t *testing.T) {
	r := newTestRetriever(t)
	bundle := bundleOf(rule("r1", 50, "some shard rule", []string{"general"}))
	ctx := context.Background()
	require.NoError(t, r.Index(ctx, bundle))

	result, err := r.Retrieve(ctx, model.RetrievalRequest{TaskDescription: "do something"})
	require.NoError(t, err)
	assert.Contains(t, result.PolicyText, "CONSTITUTION")
}

// TestRetrieve_PromotedRuleAlwaysIncluded reproduces the promoted-rule
// scenario from the spec's end-to-end walkthrough: once a shard is
// flagged IsConstitution (the Optimizer's promotion effect), it must
// appear in every later retrieval's PolicyText and SelectedShards even
// when it would lose every topK slot to higher-scoring shards and even
// when it falls outside the request's repo scope.
func TestRetrieve_PromotedRuleAlwaysIncluded(t *testing.T) {
	r := newTestRetriever(t)
	promoted := rule("promoted", 150, "promoted rule text", []string{"general"})
	promoted.IsConstitution = true
	promoted.Source = model.SourceRoot
	promoted.RepoScopes = []string{"api/*"}

	rules := []model.GuidanceRule{promoted}
	for i := 0; i < 8; i++ {
		rules = append(rules, rule(
			string(rune('a'+i)), 50,
			"generic guidance text that scores well for this query", []string{"general"},
		))
	}
	bundle := bundleOf(rules...)
	ctx := context.Background()
	require.NoError(t, r.Index(ctx, bundle))

	result, err := r.Retrieve(ctx, model.RetrievalRequest{
		TaskDescription: "generic guidance text that scores well for this query",
		RepoPath:        "web/frontend",
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.SelectedShards))
	for _, s := range result.SelectedShards {
		ids = append(ids, s.Rule.ID)
	}
	assert.Contains(t, ids, "promoted")
	assert.Contains(t, result.PolicyText, "promoted rule text")
	assert.LessOrEqual(t, len(ids)-1, DefaultTopK)
}

func TestScopeMatches(t *testing.T) {
	assert.True(t, scopeMatches([]string{"*"}, "anything/here"))
	assert.True(t, scopeMatches(nil, ""))
	assert.True(t, scopeMatches([]string{"api/*"}, "api/service"))
	assert.False(t, scopeMatches([]string{"api/*"}, "web/frontend"))
}

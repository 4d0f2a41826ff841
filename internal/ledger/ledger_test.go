package ledger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

func TestCreateEvent_StartsInProgress(t *testing.T) {
	l := New()
	event := l.CreateEvent(model.IntentBugFix, "digest", "hash", []string{"r1"})
	assert.Equal(t, model.StatusInProgress, event.Status)
	assert.NotEmpty(t, event.ID)
}

func TestRecordViolation_AppendsInOrder(t *testing.T) {
	l := New()
	event := l.CreateEvent(model.IntentBugFix, "d", "h", nil)

	require.NoError(t, l.RecordViolation(event.ID, model.Violation{RuleID: "r1", Cost: 3}))
	require.NoError(t, l.RecordViolation(event.ID, model.Violation{RuleID: "r2", Cost: 1}))

	_, err := l.FinalizeEvent(event.ID, model.OutcomeSuccess)
	require.NoError(t, err)

	events := l.Events()
	require.Len(t, events, 1)
	require.Len(t, events[0].Violations, 2)
	assert.Equal(t, "r1", events[0].Violations[0].RuleID)
	assert.Equal(t, "r2", events[0].Violations[1].RuleID)
}

func TestRecordViolation_AfterFinalizeFails(t *testing.T) {
	l := New()
	event := l.CreateEvent(model.IntentBugFix, "d", "h", nil)
	_, err := l.FinalizeEvent(event.ID, model.OutcomeSuccess)
	require.NoError(t, err)

	err = l.RecordViolation(event.ID, model.Violation{RuleID: "r1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestFinalizeEvent_DoubleFinalizeFails(t *testing.T) {
	l := New()
	event := l.CreateEvent(model.IntentBugFix, "d", "h", nil)
	_, err := l.FinalizeEvent(event.ID, model.OutcomeSuccess)
	require.NoError(t, err)

	_, err = l.FinalizeEvent(event.ID, model.OutcomeSuccess)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestFinalizeEvent_RunsEvaluatorsInRegistrationOrder(t *testing.T) {
	var seen []string
	first := recordingEvaluator{name: "first", seen: &seen}
	second := recordingEvaluator{name: "second", seen: &seen}

	l := New(WithEvaluators(first, second))
	event := l.CreateEvent(model.IntentBugFix, "d", "h", nil)
	results, err := l.FinalizeEvent(event.ID, model.OutcomeSuccess)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"first", "second"}, seen)
}

type recordingEvaluator struct {
	name string
	seen *[]string
}

func (r recordingEvaluator) Name() string { return r.name }
func (r recordingEvaluator) Evaluate(event model.RunEvent) model.EvaluatorResult {
	*r.seen = append(*r.seen, r.name)
	return model.EvaluatorResult{Name: r.name, Passed: true}
}

func TestRankViolations_SortedByScoreThenRuleID(t *testing.T) {
	l := New()

	e1 := l.CreateEvent(model.IntentBugFix, "d", "h", nil)
	require.NoError(t, l.RecordViolation(e1.ID, model.Violation{RuleID: "r2", Cost: 10}))
	_, err := l.FinalizeEvent(e1.ID, model.OutcomeSuccess)
	require.NoError(t, err)

	e2 := l.CreateEvent(model.IntentBugFix, "d", "h", nil)
	require.NoError(t, l.RecordViolation(e2.ID, model.Violation{RuleID: "r1", Cost: 5}))
	require.NoError(t, l.RecordViolation(e2.ID, model.Violation{RuleID: "r1", Cost: 5}))
	_, err = l.FinalizeEvent(e2.ID, model.OutcomeSuccess)
	require.NoError(t, err)

	rankings := l.RankViolations()
	require.Len(t, rankings, 2)
	// r1: frequency 2, cost 10, score 20. r2: frequency 1, cost 10, score 10.
	assert.Equal(t, "r1", rankings[0].RuleID)
	assert.Equal(t, 20, rankings[0].Score)
	assert.Equal(t, "r2", rankings[1].RuleID)
}

func TestComputeMetrics_EmptyLedger(t *testing.T) {
	l := New()
	metrics := l.ComputeMetrics(0)
	assert.Equal(t, 0, metrics.TaskCount)
}

func TestComputeMetrics_PassRateAndReworkRatio(t *testing.T) {
	l := New()

	e1 := l.CreateEvent(model.IntentBugFix, "d", "h", nil)
	require.NoError(t, l.SetTestsPassed(e1.ID, true))
	require.NoError(t, l.AccumulateDiff(e1.ID, 80, 20, 1, 20))
	_, err := l.FinalizeEvent(e1.ID, model.OutcomeSuccess)
	require.NoError(t, err)

	e2 := l.CreateEvent(model.IntentBugFix, "d", "h", nil)
	require.NoError(t, l.SetTestsPassed(e2.ID, false))
	_, err = l.FinalizeEvent(e2.ID, model.OutcomeFailure)
	require.NoError(t, err)

	metrics := l.ComputeMetrics(0)
	assert.Equal(t, 2, metrics.TaskCount)
	assert.InDelta(t, 0.5, metrics.PassRate, 1e-9)
}

func TestStore_AppendAndLoadEventsRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	l := New(WithStore(store))
	event := l.CreateEvent(model.IntentSecurity, "digest", "hash", []string{"r1"})
	_, err = l.FinalizeEvent(event.ID, model.OutcomeSuccess)
	require.NoError(t, err)

	loaded, err := store.LoadEvents()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, event.ID, loaded[0].ID)
	assert.Equal(t, model.IntentSecurity, loaded[0].TaskIntent)

	assert.FileExists(t, filepath.Join(dir, "events.log"))
}

func TestStore_TrackerRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	empty, err := store.LoadTracker()
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.SaveTracker(map[string]int{"r1": 2}))
	loaded, err := store.LoadTracker()
	require.NoError(t, err)
	assert.Equal(t, 2, loaded["r1"])
}

func TestStore_ManifestRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	manifest := model.BundleManifest{
		SchemaVersion:   1,
		SourceHashes:    map[string]string{"primary": "abc123"},
		RuleCountByRisk: map[model.RiskClass]int{model.RiskLow: 2},
	}
	require.NoError(t, store.SaveManifest(manifest))

	loaded, err := store.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, manifest.SourceHashes, loaded.SourceHashes)
}

func TestEvaluator_TestsPass(t *testing.T) {
	e := TestsPassEvaluator{}
	assert.True(t, e.Evaluate(model.RunEvent{TestsPassed: true}).Passed)
	assert.False(t, e.Evaluate(model.RunEvent{TestsPassed: false}).Passed)
}

func TestEvaluator_ForbiddenCommandScan(t *testing.T) {
	e, err := NewForbiddenCommandEvaluator([]string{`(?i)rm -rf`})
	require.NoError(t, err)

	assert.True(t, e.Evaluate(model.RunEvent{ToolsUsed: []string{"git status"}}).Passed)
	assert.False(t, e.Evaluate(model.RunEvent{ToolsUsed: []string{"rm -rf /tmp/x"}}).Passed)
}

func TestEvaluator_ForbiddenDependencyScan(t *testing.T) {
	e := NewForbiddenDependencyEvaluator([]string{"left-pad"})
	assert.True(t, e.Evaluate(model.RunEvent{FilesModified: []string{"go.mod"}}).Passed)
	assert.False(t, e.Evaluate(model.RunEvent{FilesModified: []string{"vendor/left-pad/index.js"}}).Passed)
}

func TestEvaluator_DiffQuality(t *testing.T) {
	e := NewDiffQualityEvaluator(DefaultMaxReworkRatio)
	assert.True(t, e.Evaluate(model.RunEvent{}).Passed, "zero denominator always passes")

	good := model.RunEvent{Diff: model.DiffSummary{LinesAdded: 90, LinesRemoved: 10, ReworkLines: 10}}
	assert.True(t, e.Evaluate(good).Passed)

	bad := model.RunEvent{Diff: model.DiffSummary{LinesAdded: 50, LinesRemoved: 50, ReworkLines: 60}}
	assert.False(t, e.Evaluate(bad).Passed)
}

func TestEvaluator_ViolationRate(t *testing.T) {
	l := New()
	e := NewViolationRateEvaluator(l, 0, 5.0)

	event := l.CreateEvent(model.IntentBugFix, "d", "h", nil)
	for i := 0; i < 6; i++ {
		require.NoError(t, l.RecordViolation(event.ID, model.Violation{RuleID: "r1"}))
	}
	_, err := l.FinalizeEvent(event.ID, model.OutcomeSuccess)
	require.NoError(t, err)

	result := e.Evaluate(model.RunEvent{})
	assert.False(t, result.Passed)
}

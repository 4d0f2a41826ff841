// Package ledger maintains the append-only log of RunEvents, runs the
// registered Evaluators at finalization, and derives violation
// rankings and window metrics for the optimizer.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

// EventSink receives a copy of every finalized RunEvent, used to mirror
// the ledger onto a message bus (e.g. NATS) without making persistence
// itself depend on a broker being reachable.
type EventSink interface {
	Publish(event model.RunEvent) error
}

// Ledger is the append-only store of RunEvents plus registered
// Evaluators. The zero value is not usable; construct with New.
type Ledger struct {
	mu         sync.Mutex
	events     map[string]*model.RunEvent
	order      []string // finalization order, for rankViolations/computeMetrics stability
	evaluators []Evaluator
	store      *Store
	sink       EventSink
}

// Option configures a Ledger at construction.
type Option func(*Ledger)

// WithEvaluators registers evaluators in the given order; they run in
// that same order at finalizeEvent.
func WithEvaluators(evaluators ...Evaluator) Option {
	return func(l *Ledger) { l.evaluators = append(l.evaluators, evaluators...) }
}

// WithStore attaches a persistence layer; without one the ledger is
// in-memory only (useful for tests).
func WithStore(store *Store) Option {
	return func(l *Ledger) { l.store = store }
}

// WithEventSink attaches a sink that receives every finalized event.
func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) { l.sink = sink }
}

// New constructs a Ledger with no persisted events.
func New(opts ...Option) *Ledger {
	l := &Ledger{events: map[string]*model.RunEvent{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateEvent opens a new in-progress RunEvent for a task.
func (l *Ledger) CreateEvent(intent model.TaskIntent, promptDigest, guidanceHash string, retrievedRuleIDs []string) model.RunEvent {
	event := model.RunEvent{
		ID:               uuid.New().String(),
		Status:           model.StatusInProgress,
		TaskIntent:       intent,
		PromptDigest:     promptDigest,
		GuidanceHash:     guidanceHash,
		RetrievedRuleIDs: retrievedRuleIDs,
		StartedAt:        time.Now().UTC(),
	}

	l.mu.Lock()
	l.events[event.ID] = &event
	l.mu.Unlock()

	return event
}

// RecordViolation appends a violation to an in-progress event. Fails
// with InvalidState once the event has been finalized.
func (l *Ledger) RecordViolation(eventID string, violation model.Violation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event, ok := l.events[eventID]
	if !ok {
		return model.NewInvalidState("recordViolation", fmt.Errorf("unknown event %q", eventID))
	}
	if event.Status == model.StatusFinalized {
		return model.NewInvalidState("recordViolation", errors.New("event already finalized"))
	}

	violation.OccurredAt = time.Now().UTC()
	event.Violations = append(event.Violations, violation)
	return nil
}

// AccumulateDiff adds to an in-progress event's diff summary.
func (l *Ledger) AccumulateDiff(eventID string, added, removed, files, reworkLines int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event, ok := l.events[eventID]
	if !ok {
		return model.NewInvalidState("accumulateDiff", fmt.Errorf("unknown event %q", eventID))
	}
	if event.Status == model.StatusFinalized {
		return model.NewInvalidState("accumulateDiff", errors.New("event already finalized"))
	}

	event.Diff.LinesAdded += added
	event.Diff.LinesRemoved += removed
	event.Diff.FilesChanged += files
	event.Diff.ReworkLines += reworkLines
	return nil
}

// MarkToolUsed and MarkFileModified record free-form run metadata used
// by evaluators (forbidden-command-scan, forbidden-dependency-scan).
func (l *Ledger) MarkToolUsed(eventID, tool string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	event, ok := l.events[eventID]
	if !ok {
		return model.NewInvalidState("markToolUsed", fmt.Errorf("unknown event %q", eventID))
	}
	if event.Status == model.StatusFinalized {
		return model.NewInvalidState("markToolUsed", errors.New("event already finalized"))
	}
	event.ToolsUsed = append(event.ToolsUsed, tool)
	return nil
}

func (l *Ledger) MarkFileModified(eventID, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	event, ok := l.events[eventID]
	if !ok {
		return model.NewInvalidState("markFileModified", fmt.Errorf("unknown event %q", eventID))
	}
	if event.Status == model.StatusFinalized {
		return model.NewInvalidState("markFileModified", errors.New("event already finalized"))
	}
	event.FilesModified = append(event.FilesModified, path)
	return nil
}

// SetTestsPassed records the outcome of the run's test suite.
func (l *Ledger) SetTestsPassed(eventID string, passed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	event, ok := l.events[eventID]
	if !ok {
		return model.NewInvalidState("setTestsPassed", fmt.Errorf("unknown event %q", eventID))
	}
	if event.Status == model.StatusFinalized {
		return model.NewInvalidState("setTestsPassed", errors.New("event already finalized"))
	}
	event.TestsPassed = passed
	return nil
}

// FinalizeEvent freezes an event, runs every registered evaluator in
// registration order, persists the event (if a store is attached), and
// forwards it to the event sink (if attached). Finalizing twice fails
// with InvalidState; the event's fields are frozen after the first
// successful call.
func (l *Ledger) FinalizeEvent(eventID string, outcome model.RunOutcome) ([]model.EvaluatorResult, error) {
	l.mu.Lock()
	event, ok := l.events[eventID]
	if !ok {
		l.mu.Unlock()
		return nil, model.NewInvalidState("finalizeEvent", fmt.Errorf("unknown event %q", eventID))
	}
	if event.Status == model.StatusFinalized {
		l.mu.Unlock()
		return nil, model.NewInvalidState("finalizeEvent", errors.New("event already finalized"))
	}

	event.Status = model.StatusFinalized
	event.Outcome = outcome
	event.FinalizedAt = time.Now().UTC()
	l.order = append(l.order, eventID)
	snapshot := *event
	l.mu.Unlock()

	results := make([]model.EvaluatorResult, 0, len(l.evaluators))
	for _, evaluator := range l.evaluators {
		results = append(results, evaluator.Evaluate(snapshot))
	}

	if l.store != nil {
		if err := l.store.AppendEvent(snapshot); err != nil {
			return results, fmt.Errorf("ledger: persisting event: %w", err)
		}
	}
	if l.sink != nil {
		if err := l.sink.Publish(snapshot); err != nil {
			return results, fmt.Errorf("ledger: publishing event: %w", err)
		}
	}

	return results, nil
}

// RankViolations aggregates violations across every finalized event,
// sorted by frequency*cost descending, ties broken by ruleId ascending.
func (l *Ledger) RankViolations() []model.ViolationRanking {
	l.mu.Lock()
	defer l.mu.Unlock()

	type accum struct {
		frequency int
		cost      int
	}
	byRule := map[string]*accum{}

	for _, id := range l.order {
		event := l.events[id]
		for _, v := range event.Violations {
			a, ok := byRule[v.RuleID]
			if !ok {
				a = &accum{}
				byRule[v.RuleID] = a
			}
			a.frequency++
			a.cost += v.Cost
		}
	}

	rankings := make([]model.ViolationRanking, 0, len(byRule))
	for ruleID, a := range byRule {
		rankings = append(rankings, model.ViolationRanking{
			RuleID:    ruleID,
			Frequency: a.frequency,
			Cost:      a.cost,
			Score:     a.frequency * a.cost,
		})
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score > rankings[j].Score
		}
		return rankings[i].RuleID < rankings[j].RuleID
	})

	return rankings
}

// ComputeMetrics summarizes the last window finalized events (all
// events if window <= 0 or exceeds the total).
func (l *Ledger) ComputeMetrics(window int) model.LedgerMetrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := l.order
	if window > 0 && window < len(ids) {
		ids = ids[len(ids)-window:]
	}
	if len(ids) == 0 {
		return model.LedgerMetrics{}
	}

	var violationCount, passCount int
	var reworkRatioSum float64
	for _, id := range ids {
		event := l.events[id]
		violationCount += len(event.Violations)
		if event.TestsPassed {
			passCount++
		}
		total := event.Diff.LinesAdded + event.Diff.LinesRemoved
		if total > 0 {
			reworkRatioSum += float64(event.Diff.ReworkLines) / float64(total)
		}
	}

	n := float64(len(ids))
	return model.LedgerMetrics{
		ViolationRatePer10Tasks: (float64(violationCount) / n) * 10,
		AvgReworkRatio:          reworkRatioSum / n,
		PassRate:                float64(passCount) / n,
		TaskCount:               len(ids),
	}
}

// Events returns the finalized events in finalization order, for
// callers (the optimizer, diagnostics) that need the raw log rather
// than a derived view.
func (l *Ledger) Events() []model.RunEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.RunEvent, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.events[id])
	}
	return out
}

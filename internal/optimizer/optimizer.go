// Package optimizer implements the weekly A/B promotion loop: it turns
// ledger violation rankings into RuleChange proposals, evaluates each
// with a pluggable Executor, and promotes a local rule into the
// constitution after two consecutive wins.
package optimizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fyrsmithlabs/guidectl/internal/ledger"
	"github.com/fyrsmithlabs/guidectl/internal/model"
	"github.com/fyrsmithlabs/guidectl/internal/retriever"
)

// Config holds every optimizer tunable named in the external interface.
type Config struct {
	PromotionWins            int
	TopViolationsPerCycle    int
	ImprovementThreshold     float64
	MaxRiskIncrease          float64
	MinEventsForOptimization int
}

func DefaultConfig() Config {
	return Config{
		PromotionWins:            2,
		TopViolationsPerCycle:    3,
		ImprovementThreshold:     0.10,
		MaxRiskIncrease:          0.05,
		MinEventsForOptimization: 10,
	}
}

// Optimizer owns the process-lifetime promotion tracker and drives one
// cycle at a time; concurrent cycles are rejected with InvalidState.
type Optimizer struct {
	cfg       Config
	ledger    *ledger.Ledger
	pool      *retriever.Pool
	executor  Executor
	publisher ADRPublisher
	store     *ledger.Store

	mu             sync.Mutex
	running        bool
	tracker        map[string]int // ruleID -> consecutive win count
	eventsAtLast   int            // ledger event count as of the last cycle
	nextADRNumber  int
}

// Option configures an Optimizer at construction.
type Option func(*Optimizer)

func WithExecutor(e Executor) Option       { return func(o *Optimizer) { o.executor = e } }
func WithADRPublisher(p ADRPublisher) Option { return func(o *Optimizer) { o.publisher = p } }
func WithStore(s *ledger.Store) Option     { return func(o *Optimizer) { o.store = s } }

// New constructs an Optimizer over l and pool. Without WithExecutor, a
// FallbackExecutor is used; without WithADRPublisher, ADRs are discarded.
func New(cfg Config, l *ledger.Ledger, pool *retriever.Pool, opts ...Option) *Optimizer {
	o := &Optimizer{
		cfg:           cfg,
		ledger:        l,
		pool:          pool,
		executor:      FallbackExecutor{},
		publisher:     NoopADRPublisher{},
		tracker:       map[string]int{},
		nextADRNumber: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store != nil {
		if tracker, err := o.store.LoadTracker(); err == nil {
			o.tracker = tracker
		}
		if adrs, err := o.store.LoadADRs(); err == nil {
			o.nextADRNumber = len(adrs) + 1
		}
	}
	return o
}

// RunCycle executes one optimization cycle. It is a no-op (returns no
// ADRs, no error) if fewer than MinEventsForOptimization events have
// accrued since the last cycle, and it rejects re-entrant calls with
// InvalidState rather than blocking, per the non-reentrant-lock
// requirement on the promotion tracker.
func (o *Optimizer) RunCycle(ctx context.Context) ([]model.RuleADR, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, model.NewInvalidState("runCycle", fmt.Errorf("an optimizer cycle is already in flight"))
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	events := o.ledger.Events()
	o.mu.Lock()
	newEvents := len(events) - o.eventsAtLast
	o.mu.Unlock()
	if newEvents < o.cfg.MinEventsForOptimization {
		return nil, nil
	}

	rankings := o.ledger.RankViolations()
	if len(rankings) > o.cfg.TopViolationsPerCycle {
		rankings = rankings[:o.cfg.TopViolationsPerCycle]
	}

	shards := o.pool.CurrentShards()
	byRuleID := make(map[string]model.RuleShard, len(shards))
	for _, s := range shards {
		byRuleID[s.Rule.ID] = s
	}

	var adrs []model.RuleADR
	for _, ranking := range rankings {
		change := proposeChange(ranking, byRuleID[ranking.RuleID], o.cfg)

		baseline, candidate, err := o.executor.Run(ctx, change)
		if err != nil {
			return nil, fmt.Errorf("optimizer: evaluating change for %s: %w", ranking.RuleID, err)
		}
		result := evaluateABResult(baseline, candidate, o.cfg)

		adr := o.applyDecision(change, result)
		adrs = append(adrs, adr)

		if o.store != nil {
			if err := o.store.AppendADR(adr); err != nil {
				return adrs, fmt.Errorf("optimizer: persisting ADR: %w", err)
			}
		}
		if err := o.publisher.Publish(ctx, adr); err != nil {
			// Publish failures never abort a cycle (spec §7 propagation
			// policy); the caller's logger records it upstream.
			_ = err
		}
	}

	o.mu.Lock()
	o.eventsAtLast = len(events)
	if o.store != nil {
		_ = o.store.SaveTracker(o.tracker)
	}
	o.mu.Unlock()

	return adrs, nil
}

// proposeChange implements the spec's ranking->change mapping.
func proposeChange(ranking model.ViolationRanking, shard model.RuleShard, cfg Config) model.RuleChange {
	hasRule := shard.Rule.ID != ""

	switch {
	case hasRule && ranking.Frequency > 5:
		return model.RuleChange{
			Kind:         model.ChangeModify,
			TargetRuleID: ranking.RuleID,
			ProposedText: shard.Rule.Text + " [ENFORCEMENT: repeatedly violated]",
			Rationale:    fmt.Sprintf("rule %s violated %d times; sharpening enforcement language", ranking.RuleID, ranking.Frequency),
		}
	case hasRule && ranking.Cost > 50:
		return model.RuleChange{
			Kind:         model.ChangeModify,
			TargetRuleID: ranking.RuleID,
			ProposedText: shard.Rule.Text + " [COST WARNING: high rework cost]",
			Rationale:    fmt.Sprintf("rule %s violations cost %d rework lines; elevating priority", ranking.RuleID, ranking.Cost),
		}
	case hasRule && shard.Rule.Source == model.SourceLocal:
		return model.RuleChange{
			Kind:         model.ChangePromote,
			TargetRuleID: ranking.RuleID,
			Rationale:    fmt.Sprintf("rule %s is a promotion candidate after repeated wins", ranking.RuleID),
		}
	default:
		return model.RuleChange{
			Kind:         model.ChangeAdd,
			ProposedText: fmt.Sprintf("new local rule derived from violations of an unseen pattern (ruleId=%s)", ranking.RuleID),
			Rationale:    fmt.Sprintf("no matching rule for violation source %s", ranking.RuleID),
		}
	}
}

func evaluateABResult(baseline, candidate model.Metrics, cfg Config) model.ABTestResult {
	reworkDelta := candidate.ReworkRatio - baseline.ReworkRatio
	violationDelta := candidate.ViolationRate - baseline.ViolationRate
	riskDelta := candidate.RiskScore - baseline.RiskScore

	shouldPromote := riskDelta <= cfg.MaxRiskIncrease && reworkDelta <= -cfg.ImprovementThreshold

	return model.ABTestResult{
		BaselineMetrics:  baseline,
		CandidateMetrics: candidate,
		ReworkDelta:      reworkDelta,
		ViolationDelta:   violationDelta,
		RiskDelta:        riskDelta,
		ShouldPromote:    shouldPromote,
	}
}

// applyDecision runs the promotion tracker state machine for change's
// target rule and returns the resulting ADR.
func (o *Optimizer) applyDecision(change model.RuleChange, result model.ABTestResult) model.RuleADR {
	o.mu.Lock()
	defer o.mu.Unlock()

	ruleID := change.TargetRuleID
	decision := "rejected"
	rationale := change.Rationale

	if result.ShouldPromote {
		o.tracker[ruleID]++
		if o.tracker[ruleID] >= o.cfg.PromotionWins {
			o.applyPromotionLocked(ruleID, change)
			decision = "promoted"
			rationale += fmt.Sprintf("; promoted after %d consecutive wins", o.tracker[ruleID])
			o.tracker[ruleID] = 0
		} else {
			decision = "pending"
			rationale += fmt.Sprintf("; win %d/%d toward promotion", o.tracker[ruleID], o.cfg.PromotionWins)
		}
	} else {
		o.tracker[ruleID] = 0
		if change.Kind == model.ChangeDemote || change.Kind == model.ChangePromote {
			o.applyDemotionLocked(ruleID)
			decision = "demoted"
		}
	}

	adr := model.RuleADR{
		Number:     o.nextADRNumber,
		Title:      fmt.Sprintf("%s rule %s", change.Kind, ruleID),
		Decision:   decision,
		Rationale:  rationale,
		Change:     change,
		TestResult: result,
		Date:       time.Now().UTC(),
	}
	o.nextADRNumber++
	return adr
}

// applyPromotionLocked moves a shard's rule into the constitution: it
// is the pool-side effect of a "promote" decision winning the tracker.
// Caller must hold o.mu.
func (o *Optimizer) applyPromotionLocked(ruleID string, change model.RuleChange) {
	o.pool.Promote(ruleID, func(r *model.GuidanceRule) {
		r.Source = model.SourceRoot
		r.IsConstitution = true
		r.Priority += 100
		if change.ProposedText != "" {
			r.Text = change.ProposedText
		}
		r.UpdatedAt = time.Now().UTC()
	})
}

// applyDemotionLocked reverses a prior promotion when a promote change
// subsequently fails its A/B evaluation. Caller must hold o.mu.
func (o *Optimizer) applyDemotionLocked(ruleID string) {
	o.pool.Promote(ruleID, func(r *model.GuidanceRule) {
		r.IsConstitution = false
		if r.Priority >= r.BasePriority+100 {
			r.Priority -= 100
		}
		r.UpdatedAt = time.Now().UTC()
	})
}

// Tracker returns a snapshot of the current promotion win counts, for
// diagnostics and tests.
func (o *Optimizer) Tracker() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]int, len(o.tracker))
	for k, v := range o.tracker {
		out[k] = v
	}
	return out
}

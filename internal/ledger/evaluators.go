package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

// Evaluator inspects a finalized RunEvent and produces a pass/fail
// verdict with an optional score, run in registration order at
// finalizeEvent.
type Evaluator interface {
	Name() string
	Evaluate(event model.RunEvent) model.EvaluatorResult
}

// TestsPassEvaluator passes iff the run's recorded test outcome was true.
type TestsPassEvaluator struct{}

func (TestsPassEvaluator) Name() string { return "tests-pass" }

func (TestsPassEvaluator) Evaluate(event model.RunEvent) model.EvaluatorResult {
	if event.TestsPassed {
		return model.EvaluatorResult{Name: "tests-pass", Passed: true, Score: 1}
	}
	return model.EvaluatorResult{Name: "tests-pass", Passed: false, Score: 0, Detail: "tests did not pass"}
}

// ForbiddenCommandEvaluator fails if any tool the run invoked matches a
// configured forbidden pattern.
type ForbiddenCommandEvaluator struct {
	patterns []*regexp.Regexp
}

func NewForbiddenCommandEvaluator(patterns []string) (*ForbiddenCommandEvaluator, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, model.NewPatternError("forbidden-command-scan", fmt.Errorf("compiling %q: %w", p, err))
		}
		compiled = append(compiled, re)
	}
	return &ForbiddenCommandEvaluator{patterns: compiled}, nil
}

func (e *ForbiddenCommandEvaluator) Name() string { return "forbidden-command-scan" }

func (e *ForbiddenCommandEvaluator) Evaluate(event model.RunEvent) model.EvaluatorResult {
	for _, cmd := range event.ToolsUsed {
		for _, re := range e.patterns {
			if re.MatchString(cmd) {
				return model.EvaluatorResult{
					Name:   "forbidden-command-scan",
					Passed: false,
					Detail: fmt.Sprintf("command %q matches forbidden pattern %s", cmd, re.String()),
				}
			}
		}
	}
	return model.EvaluatorResult{Name: "forbidden-command-scan", Passed: true, Score: 1}
}

// ForbiddenDependencyEvaluator fails if any modified file's name carries
// a disallowed dependency token (e.g. a vendored copy of a banned package).
type ForbiddenDependencyEvaluator struct {
	tokens []string
}

func NewForbiddenDependencyEvaluator(tokens []string) *ForbiddenDependencyEvaluator {
	return &ForbiddenDependencyEvaluator{tokens: tokens}
}

func (e *ForbiddenDependencyEvaluator) Name() string { return "forbidden-dependency-scan" }

func (e *ForbiddenDependencyEvaluator) Evaluate(event model.RunEvent) model.EvaluatorResult {
	for _, path := range event.FilesModified {
		for _, token := range e.tokens {
			if strings.Contains(path, token) {
				return model.EvaluatorResult{
					Name:   "forbidden-dependency-scan",
					Passed: false,
					Detail: fmt.Sprintf("file %q references forbidden dependency %q", path, token),
				}
			}
		}
	}
	return model.EvaluatorResult{Name: "forbidden-dependency-scan", Passed: true, Score: 1}
}

// ViolationRateEvaluator fails if the ledger's rolling violation rate
// (over a window of recent events, evaluated against the ledger at
// finalization time) exceeds threshold.
type ViolationRateEvaluator struct {
	ledger    *Ledger
	window    int
	threshold float64
}

func NewViolationRateEvaluator(ledger *Ledger, window int, threshold float64) *ViolationRateEvaluator {
	return &ViolationRateEvaluator{ledger: ledger, window: window, threshold: threshold}
}

func (e *ViolationRateEvaluator) Name() string { return "violation-rate" }

func (e *ViolationRateEvaluator) Evaluate(event model.RunEvent) model.EvaluatorResult {
	metrics := e.ledger.ComputeMetrics(e.window)
	rate := metrics.ViolationRatePer10Tasks
	if rate > e.threshold {
		return model.EvaluatorResult{
			Name:   "violation-rate",
			Passed: false,
			Score:  rate,
			Detail: fmt.Sprintf("violation rate %.2f/10 tasks exceeds threshold %.2f", rate, e.threshold),
		}
	}
	return model.EvaluatorResult{Name: "violation-rate", Passed: true, Score: rate}
}

// DiffQualityEvaluator fails if reworkLines/(added+removed) exceeds
// maxReworkRatio. A zero denominator always passes.
type DiffQualityEvaluator struct {
	maxReworkRatio float64
}

func NewDiffQualityEvaluator(maxReworkRatio float64) *DiffQualityEvaluator {
	return &DiffQualityEvaluator{maxReworkRatio: maxReworkRatio}
}

func (e *DiffQualityEvaluator) Name() string { return "diff-quality" }

func (e *DiffQualityEvaluator) Evaluate(event model.RunEvent) model.EvaluatorResult {
	total := event.Diff.LinesAdded + event.Diff.LinesRemoved
	if total == 0 {
		return model.EvaluatorResult{Name: "diff-quality", Passed: true, Score: 0}
	}
	ratio := float64(event.Diff.ReworkLines) / float64(total)
	if ratio > e.maxReworkRatio {
		return model.EvaluatorResult{
			Name:   "diff-quality",
			Passed: false,
			Score:  ratio,
			Detail: fmt.Sprintf("rework ratio %.2f exceeds max %.2f", ratio, e.maxReworkRatio),
		}
	}
	return model.EvaluatorResult{Name: "diff-quality", Passed: true, Score: ratio}
}

const DefaultMaxReworkRatio = 0.3

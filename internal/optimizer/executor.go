package optimizer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

// Executor runs a compliance suite against a baseline and a candidate
// rule set and returns the metrics an A/B evaluation needs. It is the
// optimizer's one allowed suspension point: implementations may shell
// out, hit a CI system, or otherwise block, bounded by ctx's deadline.
type Executor interface {
	Run(ctx context.Context, change model.RuleChange) (baseline, candidate model.Metrics, err error)
}

// CommandExecutor runs a caller-supplied shell command twice — once
// with GUIDECTL_RULESET=baseline, once with GUIDECTL_RULESET=candidate
// — and parses each run's combined output as whitespace-separated
// "reworkRatio violationRate riskScore" floats. It is the grounded,
// real-process path; FallbackExecutor below covers the no-executor case.
type CommandExecutor struct {
	Command []string
	Dir     string
	Timeout time.Duration
}

func NewCommandExecutor(command []string, dir string, timeout time.Duration) *CommandExecutor {
	return &CommandExecutor{Command: command, Dir: dir, Timeout: timeout}
}

func (e *CommandExecutor) Run(ctx context.Context, change model.RuleChange) (model.Metrics, model.Metrics, error) {
	baseline, err := e.runOnce(ctx, "baseline")
	if err != nil {
		return model.Metrics{}, model.Metrics{}, err
	}
	candidate, err := e.runOnce(ctx, "candidate")
	if err != nil {
		return model.Metrics{}, model.Metrics{}, err
	}
	return baseline, candidate, nil
}

func (e *CommandExecutor) runOnce(ctx context.Context, ruleset string) (model.Metrics, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	if len(e.Command) == 0 {
		return model.Metrics{}, model.NewConfigError("executor", fmt.Errorf("no command configured"))
	}

	cmd := exec.CommandContext(timeoutCtx, e.Command[0], e.Command[1:]...)
	cmd.Dir = e.Dir
	cmd.Env = append(cmd.Environ(), "GUIDECTL_RULESET="+ruleset)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return model.Metrics{}, model.NewTimeoutError("executor", fmt.Errorf("compliance suite timed out after %v", e.Timeout))
		}
		return model.Metrics{}, model.NewCapabilityError("executor", fmt.Errorf("compliance suite failed: %w (output: %s)", err, out.String()))
	}

	var metrics model.Metrics
	if _, err := fmt.Sscanf(out.String(), "%f %f %f", &metrics.ReworkRatio, &metrics.ViolationRate, &metrics.RiskScore); err != nil {
		return model.Metrics{}, model.NewCapabilityError("executor", fmt.Errorf("parsing compliance suite output %q: %w", out.String(), err))
	}
	return metrics, nil
}

// FallbackExecutor implements the spec's conservative fixed-percentage
// estimates, used only when no real Executor is wired. It never errors
// and never suspends.
type FallbackExecutor struct{}

func (FallbackExecutor) Run(ctx context.Context, change model.RuleChange) (model.Metrics, model.Metrics, error) {
	baseline := model.Metrics{ReworkRatio: 0.30, ViolationRate: 1.0, RiskScore: 0.20}
	candidate := baseline

	switch change.Kind {
	case model.ChangeModify:
		candidate.ViolationRate *= 0.60 // 40% reduction
	case model.ChangeAdd:
		candidate.ViolationRate *= 0.40 // 60% reduction
	case model.ChangePromote:
		candidate.ViolationRate *= 0.20 // 80% reduction
	case model.ChangeRemove:
		candidate.ViolationRate *= 1.20 // 20% regression
	}
	candidate.ReworkRatio = baseline.ReworkRatio * (candidate.ViolationRate / baseline.ViolationRate)

	return baseline, candidate, nil
}

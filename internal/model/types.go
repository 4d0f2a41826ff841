// Package model holds the shared data types that cross Compiler,
// Retriever, Gates, Ledger, and Optimizer boundaries.
package model

import "time"

// RiskClass is the severity tier attached to a rule or gate request.
type RiskClass string

const (
	RiskLow      RiskClass = "low"
	RiskMedium   RiskClass = "medium"
	RiskHigh     RiskClass = "high"
	RiskCritical RiskClass = "critical"
)

// riskOrder gives RiskClass a total order for minRiskClass filtering.
var riskOrder = map[RiskClass]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Less reports whether r ranks below other.
func (r RiskClass) Less(other RiskClass) bool {
	return riskOrder[r] < riskOrder[other]
}

// ToolClass is a category of tool call a rule may apply to.
type ToolClass string

const (
	ToolBash  ToolClass = "bash"
	ToolEdit  ToolClass = "edit"
	ToolWrite ToolClass = "write"
	ToolMCP   ToolClass = "mcp"
	ToolAny   ToolClass = "*"
)

// RuleSource records where a rule originated.
type RuleSource string

const (
	SourceRoot  RuleSource = "root"
	SourceLocal RuleSource = "local"
)

// TaskIntent is one of the eleven classified task categories.
type TaskIntent string

const (
	IntentBugFix       TaskIntent = "bug-fix"
	IntentFeature      TaskIntent = "feature"
	IntentRefactor     TaskIntent = "refactor"
	IntentSecurity     TaskIntent = "security"
	IntentPerformance  TaskIntent = "performance"
	IntentTesting      TaskIntent = "testing"
	IntentDocs         TaskIntent = "docs"
	IntentDeployment   TaskIntent = "deployment"
	IntentArchitecture TaskIntent = "architecture"
	IntentDebug        TaskIntent = "debug"
	IntentGeneral      TaskIntent = "general"
)

// GuidanceRule is a single compiled rule.
type GuidanceRule struct {
	ID             string
	Text           string
	Priority       int
	BasePriority   int
	RiskClass      RiskClass
	ToolClasses    map[ToolClass]struct{}
	IntentTags     map[TaskIntent]struct{}
	RepoScopes     []string
	Domains        []string
	Verifiers      []string
	Source         RuleSource
	IsConstitution bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Constitution is the always-loaded subset of rules.
type Constitution struct {
	Rules []GuidanceRule
	Text  string
	Hash  string
}

// RuleShard wraps a non-constitution rule for retrieval.
type RuleShard struct {
	Rule        GuidanceRule
	CompactText string
	Embedding   []float32
}

// BundleManifest records metadata about a compiled bundle.
type BundleManifest struct {
	SchemaVersion    int
	SourceHashes     map[string]string
	RuleCountByRisk  map[RiskClass]int
	CompiledAt       time.Time
}

// PolicyBundle is the Compiler's output.
type PolicyBundle struct {
	Constitution Constitution
	Shards       []RuleShard
	Manifest     BundleManifest
}

// RetrievalRequest is the input to Retriever.Retrieve.
type RetrievalRequest struct {
	TaskDescription string
	Intent          *TaskIntent
	RepoPath        string
	MinRiskClass    *RiskClass
	TopK            int
}

// ScoreBreakdown records the score components for one selected shard.
type ScoreBreakdown struct {
	RuleID        string
	Cosine        float64
	IntentMatch   float64
	RiskBoost     float64
	Total         float64
}

// RetrievalResult is the Retriever's output.
type RetrievalResult struct {
	PolicyText     string
	SelectedShards []RuleShard
	DetectedIntent TaskIntent
	Confidence     float64
	ScoreBreakdown []ScoreBreakdown
}

// GateDecision is one of the four severity-ordered gate outcomes.
type GateDecision int

const (
	DecisionAllow GateDecision = iota
	DecisionWarn
	DecisionRequireConfirmation
	DecisionBlock
)

func (d GateDecision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionWarn:
		return "warn"
	case DecisionRequireConfirmation:
		return "require-confirmation"
	case DecisionBlock:
		return "block"
	default:
		return "unknown"
	}
}

// GateResult is the outcome of one gate evaluation.
type GateResult struct {
	GateName       string
	Decision       GateDecision
	Reason         string
	TriggeredRules []string
	Remediation    string
	Metadata       map[string]string
}

// RunOutcome is the terminal state of a RunEvent.
type RunOutcome string

const (
	OutcomeSuccess RunOutcome = "success"
	OutcomeFailure RunOutcome = "failure"
	OutcomeAborted RunOutcome = "aborted"
)

// RunStatus tracks whether a RunEvent is still open for mutation.
type RunStatus string

const (
	StatusInProgress RunStatus = "in-progress"
	StatusFinalized  RunStatus = "finalized"
)

// DiffSummary aggregates the edits made during a run.
type DiffSummary struct {
	LinesAdded   int
	LinesRemoved int
	FilesChanged int
	ReworkLines  int
}

// Violation is a single recorded gate/evaluator violation.
type Violation struct {
	RuleID     string
	GateName   string
	Detail     string
	Severity   GateDecision
	OccurredAt time.Time
	Cost       int
}

// RunEvent is the Ledger's unit of record.
type RunEvent struct {
	ID               string
	Status           RunStatus
	TaskIntent       TaskIntent
	PromptDigest     string
	GuidanceHash     string
	RetrievedRuleIDs []string
	ToolsUsed        []string
	FilesModified    []string
	Diff             DiffSummary
	TestsPassed      bool
	Violations       []Violation
	StartedAt        time.Time
	FinalizedAt      time.Time
	Outcome          RunOutcome
}

// EvaluatorResult is produced by a registered Evaluator at finalization.
type EvaluatorResult struct {
	Name   string
	Passed bool
	Score  float64
	Detail string
}

// ViolationRanking is a derived, non-persisted view over violations.
type ViolationRanking struct {
	RuleID    string
	Frequency int
	Cost      int
	Score     int
}

// ChangeKind enumerates the optimizer's proposal kinds.
type ChangeKind string

const (
	ChangeAdd     ChangeKind = "add"
	ChangeModify  ChangeKind = "modify"
	ChangePromote ChangeKind = "promote"
	ChangeDemote  ChangeKind = "demote"
	ChangeRemove  ChangeKind = "remove"
)

// RuleChange is a single optimizer proposal.
type RuleChange struct {
	Kind          ChangeKind
	TargetRuleID  string
	ProposedText  string
	Rationale     string
}

// Metrics is a named pair of measurements compared in an ABTestResult.
type Metrics struct {
	ReworkRatio   float64
	ViolationRate float64
	RiskScore     float64
}

// ABTestResult is the outcome of evaluating one RuleChange.
type ABTestResult struct {
	BaselineMetrics  Metrics
	CandidateMetrics Metrics
	ReworkDelta      float64
	ViolationDelta   float64
	RiskDelta        float64
	ShouldPromote    bool
}

// RuleADR records one optimizer decision.
type RuleADR struct {
	Number     int
	Title      string
	Decision   string
	Rationale  string
	Change     RuleChange
	TestResult ABTestResult
	Date       time.Time
}

// LedgerMetrics summarizes a window of RunEvents.
type LedgerMetrics struct {
	ViolationRatePer10Tasks float64
	AvgReworkRatio          float64
	PassRate                float64
	TaskCount               int
}

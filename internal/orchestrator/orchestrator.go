// Package orchestrator wires the five subsystems together behind the
// ownership model named in spec.md §3: it owns the live PolicyBundle
// (via the Retriever), the GateConfig, the Ledger, and the Optimizer,
// and is the one place callers (the CLI, the MCP server) reach through
// to drive a run end to end.
package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guidectl/internal/compiler"
	"github.com/fyrsmithlabs/guidectl/internal/config"
	"github.com/fyrsmithlabs/guidectl/internal/gates"
	"github.com/fyrsmithlabs/guidectl/internal/ledger"
	"github.com/fyrsmithlabs/guidectl/internal/model"
	"github.com/fyrsmithlabs/guidectl/internal/optimizer"
	"github.com/fyrsmithlabs/guidectl/internal/retriever"
)

// Orchestrator owns the five subsystems' live state for one project.
type Orchestrator struct {
	cfg        config.Config
	logger     *zap.Logger
	gateConfig *gates.CompiledGateConfig
	retriever  *retriever.Retriever
	pool       *retriever.Pool
	ledger     *ledger.Ledger
	store      *ledger.Store
	optimizer  *optimizer.Optimizer
	manifest   model.BundleManifest
}

// New constructs an Orchestrator from a loaded config, opening (or
// creating) the retriever's shard pool and the ledger's persistence
// store at the configured directories.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	gateCfg, err := gates.LoadOverrides(cfg.Gate, cfg.GatePatterns)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: loading gate pattern overrides: %w", err)
	}

	compiledGates, err := gates.Compile(gateCfg)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: compiling gate config: %w", err)
	}

	embedder, err := embeddingProvider(cfg.Retriever)
	if err != nil {
		logger.Warn("embedding provider unavailable, falling back to hash embedder", zap.Error(err))
	}

	pool, err := retriever.NewPool(cfg.Retriever.PoolDir, embedder)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: opening shard pool: %w", err)
	}

	store, err := ledger.NewStore(cfg.Ledger.StoreDir)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: opening ledger store: %w", err)
	}

	evaluators := defaultEvaluators(cfg.Ledger)
	ledgerOpts := []ledger.Option{ledger.WithStore(store), ledger.WithEvaluators(evaluators...)}

	if cfg.Ledger.NATSURL != "" {
		sink, err := ledger.NewNATSSink(cfg.Ledger.NATSURL, cfg.Ledger.NATSSubject)
		if err != nil {
			logger.Warn("NATS event sink unavailable, finalized events will not be published", zap.Error(err))
		} else {
			ledgerOpts = append(ledgerOpts, ledger.WithEventSink(sink))
		}
	}

	l := ledger.New(ledgerOpts...)

	o := &Orchestrator{
		cfg:        cfg,
		logger:     logger,
		gateConfig: compiledGates,
		retriever:  retriever.New(pool),
		pool:       pool,
		ledger:     l,
		store:      store,
	}

	o.optimizer = optimizer.New(cfg.ToOptimizerConfig(), l, pool,
		optimizer.WithExecutor(buildExecutor(cfg.Optimizer)),
		optimizer.WithStore(store),
	)

	if manifest, err := store.LoadManifest(); err == nil {
		o.manifest = manifest
	}

	return o, nil
}

func defaultEvaluators(cfg config.LedgerConfig) []ledger.Evaluator {
	evaluators := []ledger.Evaluator{ledger.TestsPassEvaluator{}}
	evaluators = append(evaluators, ledger.NewDiffQualityEvaluator(cfg.MaxReworkRatio))
	return evaluators
}

// Compile recompiles the rules document(s) into a fresh PolicyBundle,
// hands it to the Retriever's shard pool, and persists the resulting
// manifest.
func (o *Orchestrator) Compile(ctx context.Context, primaryPath, overlayPath string) (model.PolicyBundle, error) {
	primary, err := readFileOrEmpty(primaryPath)
	if err != nil {
		return model.PolicyBundle{}, fmt.Errorf("orchestrator: reading rules document: %w", err)
	}
	overlay, _ := readFileOrEmpty(overlayPath)

	result, err := compiler.Compile(primary, overlay, o.cfg.Compiler.MaxConstitutionLines)
	if err != nil {
		return model.PolicyBundle{}, err
	}

	if err := o.retriever.Index(ctx, result.Bundle); err != nil {
		return model.PolicyBundle{}, fmt.Errorf("orchestrator: indexing bundle: %w", err)
	}

	o.manifest = result.Bundle.Manifest
	if err := o.store.SaveManifest(o.manifest); err != nil {
		return model.PolicyBundle{}, fmt.Errorf("orchestrator: saving manifest: %w", err)
	}

	for _, w := range result.Warnings {
		o.logger.Warn("compile warning", zap.Int("line", w.Line), zap.String("detail", w.Message))
	}

	return result.Bundle, nil
}

// Retrieve answers a retrieval request against the current shard pool.
func (o *Orchestrator) Retrieve(ctx context.Context, req model.RetrievalRequest) (model.RetrievalResult, error) {
	return o.retriever.Retrieve(ctx, req)
}

// EvaluateCommand, EvaluateToolUse, EvaluateEdit route to the three
// gate entry points over the orchestrator's compiled config.
func (o *Orchestrator) EvaluateCommand(command string) model.GateResult {
	return gates.Aggregate(gates.Command(o.gateConfig, command))
}

func (o *Orchestrator) EvaluateToolUse(toolName, paramsJSON string) model.GateResult {
	return gates.Aggregate(gates.ToolUse(o.gateConfig, toolName, paramsJSON))
}

func (o *Orchestrator) EvaluateEdit(path, content string, diffLines int) model.GateResult {
	return gates.Aggregate(gates.Edit(o.gateConfig, path, content, diffLines))
}

// Ledger exposes the owned Ledger for CLI subcommands that need direct
// access (start/violation/accumulate/finalize/rank/metrics).
func (o *Orchestrator) Ledger() *ledger.Ledger { return o.ledger }

// Optimizer exposes the owned Optimizer for the `optimize run` subcommand.
func (o *Orchestrator) Optimizer() *optimizer.Optimizer { return o.optimizer }

// Manifest returns the last compiled bundle's manifest.
func (o *Orchestrator) Manifest() model.BundleManifest { return o.manifest }

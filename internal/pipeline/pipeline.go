package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swapSupply/internal/dex"
	"swapSupply/internal/metrics"
	"swapSupply/internal/model"
	"swapSupply/internal/storage"
	"swapSupply/internal/units"
)

// Config binds a pipeline to one deployment and signer.
type Config struct {
	Deployment   model.Deployment
	Signer       common.Address
	Guard        model.SwapGuard
	ReferralCode uint16
	// MaxRetries applies to read-only calls. Transactions are never retried.
	MaxRetries   int
	RetryBackoff time.Duration
}

// Deps are the on-chain collaborators of a run.
type Deps struct {
	Tokens  TokenClient
	Pools   PoolFinder
	Router  SwapRouter
	Lending LendingPool
	// Oracle defaults to a balance delta over Tokens.
	Oracle dex.AmountOracle
	// Receipts lets Resume settle a swap or supply that was sent before the failure.
	// Without it such runs are not resumable.
	Receipts ReceiptReader
}

type Option func(*Pipeline)

func WithJournal(j storage.Journal) Option {
	return func(p *Pipeline) { p.journal = j }
}

func WithCheckpoint(c CheckpointStore) Option {
	return func(p *Pipeline) { p.checkpoint = c }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = r }
}

// Pipeline swaps the input token for the output token and supplies the proceeds to the lending pool.
type Pipeline struct {
	cfg        Config
	deps       Deps
	logger     *zap.Logger
	journal    storage.Journal
	checkpoint CheckpointStore
	metrics    *metrics.Recorder

	now   func() time.Time
	newID func() string
}

func New(cfg Config, deps Deps, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Tokens == nil || deps.Pools == nil || deps.Router == nil || deps.Lending == nil {
		return nil, fmt.Errorf("pipeline dependencies are incomplete")
	}
	if cfg.Signer == (common.Address{}) {
		return nil, fmt.Errorf("signer address is required")
	}
	if deps.Oracle == nil {
		deps.Oracle = dex.NewBalanceDelta(deps.Tokens, logger)
	}

	p := &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes the whole pipeline for one input amount, starting from scratch.
func (p *Pipeline) Run(ctx context.Context, amount decimal.Decimal) (*model.Run, error) {
	d := p.cfg.Deployment
	started := p.now().UTC()
	run := &model.Run{
		ID:          p.newID(),
		Network:     d.Name,
		ChainID:     d.ChainID,
		Signer:      p.cfg.Signer.Hex(),
		State:       model.StateIdle,
		InputAmount: amount.String(),
		StartedAt:   started,
		UpdatedAt:   started,
	}

	p.logger.Info("run start",
		zap.String("run_id", run.ID),
		zap.String("network", d.Name),
		zap.String("signer", run.Signer),
		zap.String("amount", run.InputAmount),
		zap.String("token_in", d.TokenIn.Symbol),
		zap.String("token_out", d.TokenOut.Symbol),
	)

	if !amount.IsPositive() {
		return run, p.fail(ctx, run, fmt.Errorf("amount must be positive, got %s", amount))
	}
	amountIn, err := units.ToBaseUnits(amount, d.TokenIn.Decimals)
	if err != nil {
		return run, p.fail(ctx, run, fmt.Errorf("convert amount: %w", err))
	}
	run.AmountIn = amountIn.String()

	if err := p.persist(ctx, run); err != nil {
		return run, p.fail(ctx, run, err)
	}
	return run, p.execute(ctx, run)
}

// Resume continues a failed run from the step that failed.
// Steps completed before the failure are not repeated, and a transaction already
// sent by the failed step is settled from its receipt instead of being sent again.
func (p *Pipeline) Resume(ctx context.Context, prev model.Run) (*model.Run, error) {
	if prev.State != model.StateFailed || prev.FailedAt == "" || prev.FailedAt.Terminal() {
		return nil, fmt.Errorf("%w: run %s is %s", ErrNotResumable, prev.ID, prev.State)
	}
	if prev.ChainID != p.cfg.Deployment.ChainID || !sameAddress(prev.Signer, p.cfg.Signer) {
		return nil, fmt.Errorf("%w: run %s belongs to chain %d signer %s", ErrNotResumable, prev.ID, prev.ChainID, prev.Signer)
	}
	if prev.AmountIn == "" {
		return nil, fmt.Errorf("%w: run %s never converted its input amount", ErrNotResumable, prev.ID)
	}

	run := prev
	run.State = prev.FailedAt
	run.FailedAt = ""
	run.Error = ""
	run.UpdatedAt = p.now().UTC()

	if err := p.reconcile(ctx, &run); err != nil {
		return nil, err
	}

	p.logger.Info("resume run", zap.String("run_id", run.ID), zap.String("from", string(run.State)))
	if err := p.persist(ctx, &run); err != nil {
		return &run, p.fail(ctx, &run, err)
	}
	return &run, p.execute(ctx, &run)
}

func (p *Pipeline) execute(ctx context.Context, run *model.Run) error {
	for run.State != model.StateSupplied {
		st, err := p.stepFrom(run.State)
		if err != nil {
			return p.fail(ctx, run, err)
		}

		start := time.Now()
		err = st.run(ctx, run)
		p.metrics.ObserveStep(st.name, time.Since(start), err)
		if err != nil {
			return p.fail(ctx, run, fmt.Errorf("%s: %w", st.name, err))
		}
		if err := p.transition(ctx, run, st.to); err != nil {
			return p.fail(ctx, run, err)
		}
	}

	if err := p.transition(ctx, run, model.StateDone); err != nil {
		return p.fail(ctx, run, err)
	}
	p.metrics.RunOutcome(string(model.StateDone))
	p.logger.Info("run complete",
		zap.String("run_id", run.ID),
		zap.String("supplied", run.SwappedAmount),
		zap.String("token", p.cfg.Deployment.TokenOut.Symbol),
	)
	return nil
}

// fail is the single error boundary of a run: it records the failure and logs it once.
func (p *Pipeline) fail(ctx context.Context, run *model.Run, cause error) error {
	if run.State != model.StateFailed {
		run.FailedAt = run.State
		run.State = model.StateFailed
	}
	run.Error = cause.Error()
	run.UpdatedAt = p.now().UTC()

	// Record the failure even when the run was cancelled.
	if err := p.persist(context.WithoutCancel(ctx), run); err != nil {
		p.logger.Warn("persist failed run", zap.String("run_id", run.ID), zap.Error(err))
	}
	p.metrics.RunOutcome(string(model.StateFailed))
	p.logger.Error("run failed",
		zap.String("run_id", run.ID),
		zap.String("failed_at", string(run.FailedAt)),
		zap.Error(cause),
	)
	return cause
}

func sameAddress(hex string, addr common.Address) bool {
	return common.IsHexAddress(hex) && common.HexToAddress(hex) == addr
}

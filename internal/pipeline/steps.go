package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swapSupply/internal/chain"
	"swapSupply/internal/dex"
	"swapSupply/internal/model"
	"swapSupply/internal/units"
)

// approveRouter lets the router pull the input amount from the signer.
func (p *Pipeline) approveRouter(ctx context.Context, run *model.Run) error {
	amountIn, err := baseUnits("amount_in", run.AmountIn)
	if err != nil {
		return err
	}
	receipt, err := p.approve(ctx, p.cfg.Deployment.TokenIn, p.cfg.Deployment.Router, amountIn)
	if err != nil {
		return err
	}
	run.ApproveTx = receipt.TxHash.Hex()
	return nil
}

// discoverPool resolves the pool for the token pair at the configured fee tier.
func (p *Pipeline) discoverPool(ctx context.Context, run *model.Run) error {
	d := p.cfg.Deployment

	address, err := retryRead(ctx, p, "get pool", func(ctx context.Context) (common.Address, error) {
		return p.deps.Pools.GetPool(ctx, d.TokenIn.Address, d.TokenOut.Address, d.FeeTier)
	})
	if err != nil {
		return fmt.Errorf("get pool: %w", err)
	}
	if address == (common.Address{}) {
		return fmt.Errorf("%w: %s/%s fee %d", dex.ErrPoolNotFound, d.TokenIn.Symbol, d.TokenOut.Symbol, d.FeeTier)
	}

	ref, err := retryRead(ctx, p, "read pool", func(ctx context.Context) (model.PoolRef, error) {
		return p.deps.Pools.PoolRef(ctx, address)
	})
	if err != nil {
		return fmt.Errorf("read pool: %w", err)
	}

	p.logger.Info("pool resolved",
		zap.String("pool", ref.Address),
		zap.String("token0", ref.Token0),
		zap.String("token1", ref.Token1),
		zap.Uint32("fee", ref.Fee),
	)
	run.Pool = &ref
	return nil
}

// swapParams builds the exactInputSingle arguments. The fee is re-read from the pool.
func (p *Pipeline) swapParams(ctx context.Context, pool model.PoolRef, amountIn *big.Int) (model.SwapParams, error) {
	d := p.cfg.Deployment

	fee, err := retryRead(ctx, p, "read pool fee", func(ctx context.Context) (uint32, error) {
		return p.deps.Pools.Fee(ctx, common.HexToAddress(pool.Address))
	})
	if err != nil {
		return model.SwapParams{}, fmt.Errorf("read pool fee: %w", err)
	}

	guard := p.cfg.Guard
	if guard.Unprotected() {
		p.logger.Warn("swap has no slippage protection",
			zap.String("amount_out_minimum", orZero(guard.AmountOutMinimum).String()),
			zap.String("sqrt_price_limit_x96", orZero(guard.SqrtPriceLimitX96).String()),
		)
	}

	return model.SwapParams{
		TokenIn:           d.TokenIn.Address,
		TokenOut:          d.TokenOut.Address,
		Fee:               fee,
		Recipient:         p.cfg.Signer,
		AmountIn:          amountIn,
		AmountOutMinimum:  orZero(guard.AmountOutMinimum),
		SqrtPriceLimitX96: orZero(guard.SqrtPriceLimitX96),
	}, nil
}

// swap submits the swap and measures what the signer received through the oracle.
func (p *Pipeline) swap(ctx context.Context, run *model.Run) error {
	if run.Pool == nil {
		return fmt.Errorf("pool not resolved")
	}
	amountIn, err := baseUnits("amount_in", run.AmountIn)
	if err != nil {
		return err
	}
	params, err := p.swapParams(ctx, *run.Pool, amountIn)
	if err != nil {
		return err
	}

	receipt, received, err := p.deps.Oracle.Received(ctx, params, *run.Pool, func(ctx context.Context) (*types.Receipt, error) {
		return p.deps.Router.ExactInputSingle(ctx, params)
	})
	if hash, ok := chain.SentTxHash(receipt, err); ok {
		run.SwapTx = hash.Hex()
	}
	if err != nil {
		return err
	}
	p.recordSwapped(run, received)
	return nil
}

func (p *Pipeline) recordSwapped(run *model.Run, received *big.Int) {
	out := p.cfg.Deployment.TokenOut
	swapped := units.FromBaseUnits(received, out.Decimals)
	run.SwappedAmount = swapped.String()
	run.SwappedBase = received.String()

	p.metrics.SetSwapped(out.Symbol, swapped.InexactFloat64())
	p.logger.Info("swapped amount",
		zap.String("amount", run.SwappedAmount),
		zap.String("token", out.Symbol),
		zap.String("base_units", run.SwappedBase),
	)
}

// authorizeLending lets the lending pool pull exactly the swapped amount.
func (p *Pipeline) authorizeLending(ctx context.Context, run *model.Run) error {
	amount, err := p.swappedBaseUnits(run)
	if err != nil {
		return err
	}
	receipt, err := p.approve(ctx, p.cfg.Deployment.TokenOut, p.cfg.Deployment.LendingPool, amount)
	if err != nil {
		return err
	}
	run.LendingApproveTx = receipt.TxHash.Hex()
	return nil
}

// supply deposits the swapped amount on behalf of the signer.
func (p *Pipeline) supply(ctx context.Context, run *model.Run) error {
	amount, err := p.swappedBaseUnits(run)
	if err != nil {
		return err
	}
	out := p.cfg.Deployment.TokenOut

	receipt, err := p.deps.Lending.Supply(ctx, out.Address, amount, p.cfg.Signer, p.cfg.ReferralCode)
	if hash, ok := chain.SentTxHash(receipt, err); ok {
		run.SupplyTx = hash.Hex()
	}
	if err != nil {
		return fmt.Errorf("supply %s: %w", out.Symbol, err)
	}
	run.SupplyTx = receipt.TxHash.Hex()

	p.logger.Info("supply successful",
		zap.String("amount", run.SwappedAmount),
		zap.String("token", out.Symbol),
		zap.String("tx_hash", run.SupplyTx),
		zap.String("url", p.cfg.Deployment.TxURL(receipt.TxHash)),
	)
	return nil
}

func (p *Pipeline) approve(ctx context.Context, token model.Token, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	receipt, err := p.deps.Tokens.Approve(ctx, token.Address, spender, amount)
	if err != nil {
		p.logger.Warn("token approval failed",
			zap.String("token", token.Symbol),
			zap.String("spender", spender.Hex()),
			zap.String("amount", units.Format(amount, token.Decimals)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s for %s: %w", ErrApprovalFailed, token.Symbol, spender.Hex(), err)
	}
	return receipt, nil
}

// swappedBaseUnits converts the recorded swapped amount back into output-token base units.
func (p *Pipeline) swappedBaseUnits(run *model.Run) (*big.Int, error) {
	if run.SwappedAmount == "" {
		return nil, errors.New("swapped amount not recorded")
	}
	swapped, err := decimal.NewFromString(run.SwappedAmount)
	if err != nil {
		return nil, fmt.Errorf("parse swapped amount: %w", err)
	}
	return units.ToBaseUnits(swapped, p.cfg.Deployment.TokenOut.Decimals)
}

func baseUnits(field, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", field, value)
	}
	return v, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapSupply/internal/model"
)

// ErrNothingReceived is returned when a confirmed swap yields no output token.
var ErrNothingReceived = errors.New("swap produced no output")

// SubmitFunc submits the swap and blocks until it is confirmed.
type SubmitFunc func(ctx context.Context) (*types.Receipt, error)

// AmountOracle decides how much output token a swap delivered to its recipient.
type AmountOracle interface {
	Received(ctx context.Context, params model.SwapParams, pool model.PoolRef, submit SubmitFunc) (*types.Receipt, *big.Int, error)
}

// BalanceReader reads ERC20 balances.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// BalanceDelta measures the recipient's output-token balance before and after the swap.
// It is the authoritative oracle and assumes no other actor moves the recipient's balance
// while the swap is in flight.
type BalanceDelta struct {
	balances BalanceReader
	logger   *zap.Logger
}

func NewBalanceDelta(balances BalanceReader, logger *zap.Logger) *BalanceDelta {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceDelta{balances: balances, logger: logger}
}

func (o *BalanceDelta) Received(ctx context.Context, params model.SwapParams, _ model.PoolRef, submit SubmitFunc) (*types.Receipt, *big.Int, error) {
	before, err := o.balances.BalanceOf(ctx, params.TokenOut, params.Recipient)
	if err != nil {
		return nil, nil, fmt.Errorf("balance before swap: %w", err)
	}

	receipt, err := submit(ctx)
	if err != nil {
		return receipt, nil, err
	}

	after, err := o.balances.BalanceOf(ctx, params.TokenOut, params.Recipient)
	if err != nil {
		return receipt, nil, fmt.Errorf("balance after swap: %w", err)
	}

	delta := new(big.Int).Sub(after, before)
	o.logger.Debug("output balance delta",
		zap.String("before", before.String()),
		zap.String("after", after.String()),
		zap.String("delta", delta.String()),
	)
	if delta.Sign() <= 0 {
		return receipt, nil, fmt.Errorf("%w: balance delta %s", ErrNothingReceived, delta.String())
	}
	return receipt, delta, nil
}

// SwapEventOracle reads the amount out of the pool's Swap log in the swap receipt.
type SwapEventOracle struct {
	logger *zap.Logger
}

func NewSwapEventOracle(logger *zap.Logger) *SwapEventOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapEventOracle{logger: logger}
}

func (o *SwapEventOracle) Received(ctx context.Context, params model.SwapParams, pool model.PoolRef, submit SubmitFunc) (*types.Receipt, *big.Int, error) {
	receipt, err := submit(ctx)
	if err != nil {
		return receipt, nil, err
	}

	poolAddress := common.HexToAddress(pool.Address)
	token0 := common.HexToAddress(pool.Token0)
	token1 := common.HexToAddress(pool.Token1)

	total := new(big.Int)
	found := false
	for _, log := range receipt.Logs {
		if log == nil || log.Address != poolAddress {
			continue
		}
		event, err := DecodeSwapEvent(*log)
		if err != nil {
			continue
		}
		if event.Recipient != params.Recipient {
			o.logger.Debug("swap log for another recipient", zap.String("recipient", event.Recipient.Hex()))
			continue
		}
		out, err := event.AmountOut(params.TokenOut, token0, token1)
		if err != nil {
			return receipt, nil, err
		}
		total.Add(total, out)
		found = true
	}

	if !found {
		return receipt, nil, fmt.Errorf("%w: no swap log from pool %s", ErrNothingReceived, pool.Address)
	}
	if total.Sign() <= 0 {
		return receipt, nil, fmt.Errorf("%w: swap log amount %s", ErrNothingReceived, total.String())
	}
	return receipt, total, nil
}

package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"swapSupply/internal/chain"
	"swapSupply/internal/model"
)

// ErrPoolNotFound is returned when the factory has no pool for a pair and fee tier.
var ErrPoolNotFound = errors.New("pool not found")

// PoolDirectory resolves pools through a V3 factory and reads their immutables.
type PoolDirectory struct {
	caller  chain.Caller
	factory common.Address
}

func NewPoolDirectory(caller chain.Caller, factory common.Address) *PoolDirectory {
	return &PoolDirectory{caller: caller, factory: factory}
}

// GetPool returns the factory's pool address for the pair, the zero address when none exists.
func (d *PoolDirectory) GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	parsed, err := V3FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := callMethod(ctx, d.caller, d.factory, parsed, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// PoolRef reads token0, token1 and fee concurrently.
func (d *PoolDirectory) PoolRef(ctx context.Context, pool common.Address) (model.PoolRef, error) {
	parsed, err := V3PoolABI()
	if err != nil {
		return model.PoolRef{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var (
		token0 common.Address
		token1 common.Address
		fee    uint32
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := callMethod(gCtx, d.caller, pool, parsed, "token0")
		if err != nil {
			return err
		}
		token0, err = asAddress(values[0])
		if err != nil {
			return fmt.Errorf("token0: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		values, err := callMethod(gCtx, d.caller, pool, parsed, "token1")
		if err != nil {
			return err
		}
		token1, err = asAddress(values[0])
		if err != nil {
			return fmt.Errorf("token1: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		values, err := callMethod(gCtx, d.caller, pool, parsed, "fee")
		if err != nil {
			return err
		}
		fee, err = asUint24(values[0])
		if err != nil {
			return fmt.Errorf("fee: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.PoolRef{}, err
	}

	return model.PoolRef{
		Address: pool.Hex(),
		Token0:  token0.Hex(),
		Token1:  token1.Hex(),
		Fee:     fee,
	}, nil
}

// Fee reads the pool's fee tier.
func (d *PoolDirectory) Fee(ctx context.Context, pool common.Address) (uint32, error) {
	parsed, err := V3PoolABI()
	if err != nil {
		return 0, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, d.caller, pool, parsed, "fee")
	if err != nil {
		return 0, err
	}
	return asUint24(values[0])
}

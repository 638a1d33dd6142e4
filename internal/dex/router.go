package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapSupply/internal/chain"
	"swapSupply/internal/model"
)

type exactInputSingleParams struct {
	TokenIn           common.Address `abi:"tokenIn"`
	TokenOut          common.Address `abi:"tokenOut"`
	Fee               *big.Int       `abi:"fee"`
	Recipient         common.Address `abi:"recipient"`
	AmountIn          *big.Int       `abi:"amountIn"`
	AmountOutMinimum  *big.Int       `abi:"amountOutMinimum"`
	SqrtPriceLimitX96 *big.Int       `abi:"sqrtPriceLimitX96"`
}

// Router submits swaps to a V3 swap router.
type Router struct {
	address    common.Address
	transactor chain.Transactor
}

func NewRouter(address common.Address, transactor chain.Transactor) *Router {
	return &Router{address: address, transactor: transactor}
}

// Address returns the router contract address.
func (r *Router) Address() common.Address {
	return r.address
}

// ExactInputSingle swaps params.AmountIn of TokenIn for TokenOut through one pool.
// The router's amountOut return value is not decoded.
func (r *Router) ExactInputSingle(ctx context.Context, params model.SwapParams) (*types.Receipt, error) {
	if r.transactor == nil {
		return nil, fmt.Errorf("transactor is nil")
	}
	data, err := packExactInputSingle(params)
	if err != nil {
		return nil, err
	}
	return r.transactor.Transact(ctx, r.address, data, 0)
}

func packExactInputSingle(params model.SwapParams) ([]byte, error) {
	parsed, err := SwapRouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	if params.AmountIn == nil {
		return nil, fmt.Errorf("amount in is required")
	}
	data, err := parsed.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           params.TokenIn,
		TokenOut:          params.TokenOut,
		Fee:               new(big.Int).SetUint64(uint64(params.Fee)),
		Recipient:         params.Recipient,
		AmountIn:          params.AmountIn,
		AmountOutMinimum:  orZero(params.AmountOutMinimum),
		SqrtPriceLimitX96: orZero(params.SqrtPriceLimitX96),
	})
	if err != nil {
		return nil, fmt.Errorf("pack exactInputSingle: %w", err)
	}
	return data, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

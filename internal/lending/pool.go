// Package lending talks to an Aave V3 style lending pool.
package lending

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapSupply/internal/chain"
)

// DefaultSupplyGasLimit is the fixed gas limit sent with supply calls.
const DefaultSupplyGasLimit uint64 = 900000

// Pool submits deposits to a lending pool.
type Pool struct {
	address    common.Address
	transactor chain.Transactor
	gasLimit   uint64
}

// NewPool binds a lending pool. A zero gasLimit falls back to DefaultSupplyGasLimit.
func NewPool(address common.Address, transactor chain.Transactor, gasLimit uint64) *Pool {
	if gasLimit == 0 {
		gasLimit = DefaultSupplyGasLimit
	}
	return &Pool{address: address, transactor: transactor, gasLimit: gasLimit}
}

// Address returns the lending pool contract address.
func (p *Pool) Address() common.Address {
	return p.address
}

// Supply deposits amount of asset credited to onBehalfOf.
func (p *Pool) Supply(ctx context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address, referralCode uint16) (*types.Receipt, error) {
	if p.transactor == nil {
		return nil, fmt.Errorf("transactor is nil")
	}
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse lending pool abi: %w", err)
	}
	data, err := parsed.Pack("supply", asset, amount, onBehalfOf, referralCode)
	if err != nil {
		return nil, fmt.Errorf("pack supply: %w", err)
	}
	return p.transactor.Transact(ctx, p.address, data, p.gasLimit)
}

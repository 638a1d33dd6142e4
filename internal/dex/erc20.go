package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapSupply/internal/chain"
)

// ERC20 reads balances and grants allowances on any ERC20 token.
type ERC20 struct {
	caller     chain.Caller
	transactor chain.Transactor
}

func NewERC20(caller chain.Caller, transactor chain.Transactor) *ERC20 {
	return &ERC20{caller: caller, transactor: transactor}
}

// BalanceOf returns the owner's balance in base units.
func (e *ERC20) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, e.caller, token, parsed, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Allowance returns how much spender may still move out of owner's balance.
func (e *ERC20) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, e.caller, token, parsed, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Approve authorizes spender to transfer up to amount and waits for confirmation.
func (e *ERC20) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	if e.transactor == nil {
		return nil, fmt.Errorf("transactor is nil")
	}
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return e.transactor.Transact(ctx, token, data, 0)
}

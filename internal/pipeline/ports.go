package pipeline

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapSupply/internal/model"
)

// TokenClient reads balances and grants allowances on ERC20 tokens.
type TokenClient interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Receipt, error)
}

// PoolFinder resolves pools through the factory and reads their immutables.
type PoolFinder interface {
	GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error)
	PoolRef(ctx context.Context, pool common.Address) (model.PoolRef, error)
	Fee(ctx context.Context, pool common.Address) (uint32, error)
}

type SwapRouter interface {
	ExactInputSingle(ctx context.Context, params model.SwapParams) (*types.Receipt, error)
}

type LendingPool interface {
	Supply(ctx context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address, referralCode uint16) (*types.Receipt, error)
}

// ReceiptReader looks up transactions that were already broadcast.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

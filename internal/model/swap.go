package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SwapParams is the exactInputSingle argument tuple.
type SwapParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               uint32
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// SwapGuard carries the slippage and price-limit protections applied to a swap.
// The zero value disables both.
type SwapGuard struct {
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Unprotected reports whether the swap has no output floor. A price limit alone
// still lets the swap fill at any amount down to zero.
func (g SwapGuard) Unprotected() bool {
	return isZero(g.AmountOutMinimum)
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

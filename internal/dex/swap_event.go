package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SwapEvent is the decoded payload of a V3 pool Swap log.
type SwapEvent struct {
	Pool         common.Address
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
}

// DecodeSwapEvent decodes a Swap log emitted by a V3 pool.
func DecodeSwapEvent(log types.Log) (SwapEvent, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return SwapEvent{}, fmt.Errorf("parse pool abi: %w", err)
	}
	event := poolABI.Events["Swap"]
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return SwapEvent{}, fmt.Errorf("not a swap log")
	}

	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return SwapEvent{}, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	var parties struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&parties, indexed, log.Topics[1:]); err != nil {
		return SwapEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return SwapEvent{}, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != 5 {
		return SwapEvent{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return SwapEvent{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return SwapEvent{}, err
	}
	sqrtPrice, err := asBigInt(values[2])
	if err != nil {
		return SwapEvent{}, err
	}
	liquidity, err := asBigInt(values[3])
	if err != nil {
		return SwapEvent{}, err
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return SwapEvent{}, err
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return SwapEvent{}, err
	}

	return SwapEvent{
		Pool:         log.Address,
		Sender:       parties.Sender,
		Recipient:    parties.Recipient,
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		Tick:         tick,
	}, nil
}

// AmountOut returns the quantity of token that left the pool in this swap.
// Pool deltas are signed from the pool's view, so the output leg is negative.
func (e SwapEvent) AmountOut(token, token0, token1 common.Address) (*big.Int, error) {
	var delta *big.Int
	switch token {
	case token0:
		delta = e.Amount0
	case token1:
		delta = e.Amount1
	default:
		return nil, fmt.Errorf("token %s not in pool %s", token.Hex(), e.Pool.Hex())
	}
	return new(big.Int).Neg(delta), nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}

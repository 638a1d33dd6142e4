package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swapSupply/internal/model"
)

type sequenceBalances struct {
	values []*big.Int
	calls  int
}

func (s *sequenceBalances) BalanceOf(context.Context, common.Address, common.Address) (*big.Int, error) {
	v := s.values[s.calls]
	s.calls++
	return v, nil
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}

func TestBalanceDeltaMeasuresDifference(t *testing.T) {
	balances := &sequenceBalances{values: []*big.Int{big.NewInt(0), mustBig(t, "3275000000000000000")}}
	oracle := NewBalanceDelta(balances, zap.NewNop())

	submitted := false
	receipt, amount, err := oracle.Received(context.Background(), model.SwapParams{TokenOut: linkAddress, Recipient: ownerAddr}, model.PoolRef{},
		func(context.Context) (*types.Receipt, error) {
			require.Equal(t, 1, balances.calls, "balance must be read before submission")
			submitted = true
			return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
		})
	require.NoError(t, err)
	require.True(t, submitted)
	require.NotNil(t, receipt)
	require.Equal(t, "3275000000000000000", amount.String())
	require.Equal(t, 2, balances.calls)
}

func TestBalanceDeltaNonPositiveFails(t *testing.T) {
	balances := &sequenceBalances{values: []*big.Int{big.NewInt(10), big.NewInt(10)}}
	_, _, err := NewBalanceDelta(balances, nil).Received(context.Background(), model.SwapParams{}, model.PoolRef{},
		func(context.Context) (*types.Receipt, error) { return &types.Receipt{}, nil })
	require.ErrorIs(t, err, ErrNothingReceived)
}

func TestBalanceDeltaSubmitErrorStopsBeforeSecondRead(t *testing.T) {
	balances := &sequenceBalances{values: []*big.Int{big.NewInt(0), big.NewInt(1)}}
	_, _, err := NewBalanceDelta(balances, nil).Received(context.Background(), model.SwapParams{}, model.PoolRef{},
		func(context.Context) (*types.Receipt, error) { return nil, errors.New("reverted") })
	require.EqualError(t, err, "reverted")
	require.Equal(t, 1, balances.calls)
}

func TestOraclesKeepReceiptOfFailedSubmit(t *testing.T) {
	reverted := &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: common.HexToHash("0x64")}
	submit := func(context.Context) (*types.Receipt, error) { return reverted, errors.New("transaction reverted") }

	receipt, _, err := NewBalanceDelta(&sequenceBalances{values: []*big.Int{big.NewInt(0)}}, nil).
		Received(context.Background(), model.SwapParams{}, model.PoolRef{}, submit)
	require.Error(t, err)
	require.Same(t, reverted, receipt)

	receipt, _, err = NewSwapEventOracle(nil).Received(context.Background(), model.SwapParams{}, model.PoolRef{}, submit)
	require.Error(t, err)
	require.Same(t, reverted, receipt)
}

func swapLog(t *testing.T, pool, recipient common.Address, amount0, amount1 *big.Int) *types.Log {
	t.Helper()
	poolABI, err := V3PoolABI()
	require.NoError(t, err)
	event := poolABI.Events["Swap"]

	data, err := event.Inputs.NonIndexed().Pack(amount0, amount1, big.NewInt(123456789), big.NewInt(987654321), big.NewInt(-15))
	require.NoError(t, err)

	return &types.Log{
		Address: pool,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(common.LeftPadBytes(spenderAddr.Bytes(), 32)),
			common.BytesToHash(common.LeftPadBytes(recipient.Bytes(), 32)),
		},
		Data: data,
	}
}

func TestDecodeSwapEvent(t *testing.T) {
	log := swapLog(t, poolAddress, ownerAddr, big.NewInt(1_000_000), big.NewInt(-42))

	event, err := DecodeSwapEvent(*log)
	require.NoError(t, err)
	require.Equal(t, spenderAddr, event.Sender)
	require.Equal(t, ownerAddr, event.Recipient)
	require.Equal(t, int64(-42), event.Amount1.Int64())
	require.Equal(t, int32(-15), event.Tick)

	out, err := event.AmountOut(linkAddress, usdcAddress, linkAddress)
	require.NoError(t, err)
	require.Equal(t, int64(42), out.Int64())

	_, err = event.AmountOut(common.HexToAddress("0x9999999999999999999999999999999999999999"), usdcAddress, linkAddress)
	require.Error(t, err)
}

func TestSwapEventOracle(t *testing.T) {
	pool := model.PoolRef{Address: poolAddress.Hex(), Token0: usdcAddress.Hex(), Token1: linkAddress.Hex(), Fee: 3000}
	params := model.SwapParams{TokenIn: usdcAddress, TokenOut: linkAddress, Recipient: ownerAddr}

	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			{Address: usdcAddress, Topics: []common.Hash{common.HexToHash("0xdd")}},
			swapLog(t, poolAddress, ownerAddr, big.NewInt(1_000_000), mustBig(t, "-3275000000000000000")),
		},
	}

	_, amount, err := NewSwapEventOracle(zap.NewNop()).Received(context.Background(), params, pool,
		func(context.Context) (*types.Receipt, error) { return receipt, nil })
	require.NoError(t, err)
	require.Equal(t, "3275000000000000000", amount.String())
}

func TestSwapEventOracleWithoutSwapLog(t *testing.T) {
	pool := model.PoolRef{Address: poolAddress.Hex(), Token0: usdcAddress.Hex(), Token1: linkAddress.Hex()}
	_, _, err := NewSwapEventOracle(nil).Received(context.Background(), model.SwapParams{TokenOut: linkAddress, Recipient: ownerAddr}, pool,
		func(context.Context) (*types.Receipt, error) { return &types.Receipt{}, nil })
	require.ErrorIs(t, err, ErrNothingReceived)
}

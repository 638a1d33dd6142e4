package pipeline

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"swapSupply/internal/dex"
	"swapSupply/internal/model"
)

var (
	signerAddress  = common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	usdcAddress    = common.HexToAddress("0x94a9D9AC8a22534E3FaCa9F4e7F2E2cf85d5E4C8")
	linkAddress    = common.HexToAddress("0xf8Fb3713D459D7C1018BD0A49D19b4C44290EBE5")
	routerAddress  = common.HexToAddress("0x3bFA4769FB09eefC5a80d6E87c3B9C650f7Ae48E")
	lendingAddress = common.HexToAddress("0x6Ae43d3271ff6888e7Fc43Fd7321a503ff738951")
	factoryAddress = common.HexToAddress("0x0227628f3F023bb0B980b67D528571c95c6DaC1c")
	poolAddress    = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func testDeployment() model.Deployment {
	return model.Deployment{
		Name:        "sepolia",
		ChainID:     11155111,
		ExplorerURL: "https://sepolia.etherscan.io",
		Factory:     factoryAddress,
		Router:      routerAddress,
		LendingPool: lendingAddress,
		FeeTier:     3000,
		TokenIn:     model.Token{ChainID: 11155111, Address: usdcAddress, Decimals: 6, Symbol: "USDC", Name: "USD//C"},
		TokenOut:    model.Token{ChainID: 11155111, Address: linkAddress, Decimals: 18, Symbol: "LINK", Name: "Chainlink"},
	}
}

func receipt(n int64) *types.Receipt {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: common.BigToHash(big.NewInt(n))}
}

type approveCall struct {
	token   common.Address
	spender common.Address
	amount  *big.Int
}

type stubTokens struct {
	mu         sync.Mutex
	balances   []*big.Int
	balanceErr error
	approveErr error
	approves   []approveCall
	reads      int
}

func (s *stubTokens) BalanceOf(_ context.Context, _, _ common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balanceErr != nil {
		return nil, s.balanceErr
	}
	if s.reads >= len(s.balances) {
		return nil, errors.New("unexpected balance read")
	}
	v := s.balances[s.reads]
	s.reads++
	return new(big.Int).Set(v), nil
}

func (s *stubTokens) Approve(_ context.Context, token, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approves = append(s.approves, approveCall{token: token, spender: spender, amount: new(big.Int).Set(amount)})
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	return receipt(int64(len(s.approves))), nil
}

type getPoolCall struct {
	tokenA common.Address
	tokenB common.Address
	fee    uint32
}

type stubPools struct {
	pool        common.Address
	getPoolErrs []error
	getPools    []getPoolCall
	feeReads    int
}

func (s *stubPools) GetPool(_ context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	s.getPools = append(s.getPools, getPoolCall{tokenA: tokenA, tokenB: tokenB, fee: fee})
	if len(s.getPoolErrs) > 0 {
		err := s.getPoolErrs[0]
		s.getPoolErrs = s.getPoolErrs[1:]
		if err != nil {
			return common.Address{}, err
		}
	}
	return s.pool, nil
}

func (s *stubPools) PoolRef(_ context.Context, pool common.Address) (model.PoolRef, error) {
	return model.PoolRef{Address: pool.Hex(), Token0: linkAddress.Hex(), Token1: usdcAddress.Hex(), Fee: 3000}, nil
}

func (s *stubPools) Fee(_ context.Context, _ common.Address) (uint32, error) {
	s.feeReads++
	return 3000, nil
}

type stubRouter struct {
	err error
	// errReceipt is returned alongside err, as for a reverted transaction.
	errReceipt *types.Receipt
	params     []model.SwapParams
}

func (s *stubRouter) ExactInputSingle(_ context.Context, params model.SwapParams) (*types.Receipt, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return s.errReceipt, s.err
	}
	return receipt(100), nil
}

type supplyCall struct {
	asset      common.Address
	amount     *big.Int
	onBehalfOf common.Address
	referral   uint16
}

type stubLending struct {
	err        error
	errReceipt *types.Receipt
	supplies   []supplyCall
}

func (s *stubLending) Supply(_ context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address, referralCode uint16) (*types.Receipt, error) {
	s.supplies = append(s.supplies, supplyCall{asset: asset, amount: new(big.Int).Set(amount), onBehalfOf: onBehalfOf, referral: referralCode})
	if s.err != nil {
		return s.errReceipt, s.err
	}
	return receipt(200), nil
}

type recordingJournal struct {
	states []model.RunState
}

func (j *recordingJournal) PutRun(_ context.Context, run model.Run) error {
	j.states = append(j.states, run.State)
	return nil
}

type stubReceipts struct {
	receipts map[common.Hash]*types.Receipt
	lookups  []common.Hash
}

func (s *stubReceipts) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	s.lookups = append(s.lookups, hash)
	r, ok := s.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// swapReceipt is a mined swap paying amountOut of LINK (token0 of the stub pool) to the signer.
func swapReceipt(t *testing.T, hash common.Hash, amountOut *big.Int) *types.Receipt {
	t.Helper()
	poolABI, err := dex.V3PoolABI()
	require.NoError(t, err)
	event := poolABI.Events["Swap"]

	data, err := event.Inputs.NonIndexed().Pack(new(big.Int).Neg(amountOut), big.NewInt(1_000_000), big.NewInt(1), big.NewInt(1), big.NewInt(0))
	require.NoError(t, err)

	return &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: hash,
		Logs: []*types.Log{{
			Address: poolAddress,
			Topics: []common.Hash{
				event.ID,
				common.BytesToHash(common.LeftPadBytes(routerAddress.Bytes(), 32)),
				common.BytesToHash(common.LeftPadBytes(signerAddress.Bytes(), 32)),
			},
			Data: data,
		}},
	}
}

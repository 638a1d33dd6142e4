package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeCaller answers eth_call by contract address and method name.
type fakeCaller struct {
	mu        sync.Mutex
	abis      []abi.ABI
	responses map[string][]interface{}
	failures  map[string]error
	calls     []string
}

func newFakeCaller(abis ...abi.ABI) *fakeCaller {
	return &fakeCaller{
		abis:      abis,
		responses: make(map[string][]interface{}),
		failures:  make(map[string]error),
	}
}

func callKey(to common.Address, method string) string {
	return to.Hex() + "." + method
}

func (f *fakeCaller) respond(to common.Address, method string, values ...interface{}) {
	f.responses[callKey(to, method)] = values
}

func (f *fakeCaller) fail(to common.Address, method string, err error) {
	f.failures[callKey(to, method)] = err
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("bad call")
	}
	for _, parsed := range f.abis {
		method, err := parsed.MethodById(msg.Data[:4])
		if err != nil {
			continue
		}
		key := callKey(*msg.To, method.Name)

		f.mu.Lock()
		f.calls = append(f.calls, key)
		f.mu.Unlock()

		if err, ok := f.failures[key]; ok {
			return nil, err
		}
		values, ok := f.responses[key]
		if !ok {
			return nil, fmt.Errorf("no response for %s", key)
		}
		return method.Outputs.Pack(values...)
	}
	return nil, fmt.Errorf("unknown selector %x", msg.Data[:4])
}

type sentTx struct {
	to       common.Address
	data     []byte
	gasLimit uint64
}

// fakeTransactor records submitted calldata and returns a canned receipt.
type fakeTransactor struct {
	sent    []sentTx
	receipt *types.Receipt
	err     error
}

func (f *fakeTransactor) Transact(_ context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Receipt, error) {
	f.sent = append(f.sent, sentTx{to: to, data: data, gasLimit: gasLimit})
	if f.err != nil {
		return nil, f.err
	}
	if f.receipt != nil {
		return f.receipt, nil
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: common.HexToHash("0x01")}, nil
}

package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ErrTxReverted is returned when a mined transaction has a failed status.
var ErrTxReverted = errors.New("transaction reverted")

// PendingTxError is returned when a transaction was broadcast but its receipt was not obtained.
// The transaction may still be mined.
type PendingTxError struct {
	Hash common.Hash
	Err  error
}

func (e *PendingTxError) Error() string {
	return fmt.Sprintf("wait mined %s: %v", e.Hash.Hex(), e.Err)
}

func (e *PendingTxError) Unwrap() error {
	return e.Err
}

// SentTxHash returns the hash of a transaction that was broadcast before err occurred.
func SentTxHash(receipt *types.Receipt, err error) (common.Hash, bool) {
	if receipt != nil {
		return receipt.TxHash, true
	}
	var pending *PendingTxError
	if errors.As(err, &pending) {
		return pending.Hash, true
	}
	return common.Hash{}, false
}

// SignerOptions tunes transaction submission.
type SignerOptions struct {
	// TxURL renders an explorer link for log lines. Optional.
	TxURL func(common.Hash) string
	// ConfirmTimeout bounds the wait for a receipt. Zero waits until ctx is done.
	ConfirmTimeout time.Duration
	Logger         *zap.Logger
}

// Signer holds the private key and submits transactions on its behalf.
type Signer struct {
	client  *Client
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	opts    SignerOptions
	logger  *zap.Logger
}

// ParsePrivateKey decodes a hex private key with or without 0x prefix.
func ParsePrivateKey(input string) (*ecdsa.PrivateKey, error) {
	h := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), "0x"))
	if h == "" {
		return nil, errors.New("empty private key")
	}
	key, err := gethcrypto.HexToECDSA(h)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// NewSigner derives the signer address and binds it to the chain reported by the client.
func NewSigner(ctx context.Context, client *Client, privateKeyHex string, opts SignerOptions) (*Signer, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	key, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	chainID, err := client.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Signer{
		client:  client,
		key:     key,
		address: gethcrypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Address returns the signer's account address.
func (s *Signer) Address() common.Address {
	return s.address
}

// ChainID returns the chain the signer signs for.
func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Transact signs and sends calldata to the given contract and waits for the receipt.
// A zero gasLimit lets the node estimate gas.
func (s *Signer) Transact(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Receipt, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = gasLimit

	contract := bind.NewBoundContract(to, abi.ABI{}, s.client.ethClient, s.client.ethClient, s.client.ethClient)
	tx, err := contract.RawTransact(opts, data)
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	s.logger.Info("transaction sent", zap.String("tx_hash", tx.Hash().Hex()), zap.String("to", to.Hex()))

	waitCtx := ctx
	if s.opts.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.opts.ConfirmTimeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(waitCtx, s.client.ethClient, tx)
	if err != nil {
		return nil, &PendingTxError{Hash: tx.Hash(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, tx.Hash().Hex())
	}

	s.logger.Info("transaction confirmed",
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Uint64("block_number", receipt.BlockNumber.Uint64()),
		zap.String("url", s.txURL(receipt.TxHash)),
	)
	return receipt, nil
}

func (s *Signer) txURL(hash common.Hash) string {
	if s.opts.TxURL == nil {
		return hash.Hex()
	}
	return s.opts.TxURL(hash)
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapSupply/internal/dex"
	"swapSupply/internal/model"
)

// reconcile settles the transaction a failed step already sent. A mined swap or supply moves
// the run past its step; a reverted one is cleared so the step sends it again.
func (p *Pipeline) reconcile(ctx context.Context, run *model.Run) error {
	switch {
	case run.State == model.StatePoolResolved && run.SwapTx != "":
		receipt, err := p.sentReceipt(ctx, run.SwapTx)
		if err != nil {
			return err
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			p.logger.Info("sent swap reverted, sending again", zap.String("tx_hash", run.SwapTx))
			run.SwapTx = ""
			return nil
		}
		if run.Pool == nil {
			return fmt.Errorf("%w: swap %s sent without a resolved pool", ErrNotResumable, run.SwapTx)
		}

		d := p.cfg.Deployment
		params := model.SwapParams{TokenIn: d.TokenIn.Address, TokenOut: d.TokenOut.Address, Recipient: p.cfg.Signer}
		_, received, err := dex.NewSwapEventOracle(p.logger).Received(ctx, params, *run.Pool, func(context.Context) (*types.Receipt, error) {
			return receipt, nil
		})
		if err != nil {
			return fmt.Errorf("%w: swap %s: %w", ErrNotResumable, run.SwapTx, err)
		}
		p.recordSwapped(run, received)
		run.State = model.StateSwapped
		p.logger.Info("recovered sent swap", zap.String("tx_hash", run.SwapTx))

	case run.State == model.StateLendingApproved && run.SupplyTx != "":
		receipt, err := p.sentReceipt(ctx, run.SupplyTx)
		if err != nil {
			return err
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			p.logger.Info("sent supply reverted, sending again", zap.String("tx_hash", run.SupplyTx))
			run.SupplyTx = ""
			return nil
		}
		run.State = model.StateSupplied
		p.logger.Info("recovered sent supply",
			zap.String("tx_hash", run.SupplyTx),
			zap.String("url", p.cfg.Deployment.TxURL(receipt.TxHash)),
		)
	}
	return nil
}

func (p *Pipeline) sentReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	if p.deps.Receipts == nil {
		return nil, fmt.Errorf("%w: transaction %s was already sent", ErrNotResumable, txHash)
	}
	receipt, err := retryRead(ctx, p, "read receipt", func(ctx context.Context) (*types.Receipt, error) {
		return p.deps.Receipts.TransactionReceipt(ctx, common.HexToHash(txHash))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: receipt of %s: %w", ErrNotResumable, txHash, err)
	}
	return receipt, nil
}

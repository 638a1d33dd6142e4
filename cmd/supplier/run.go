package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapSupply/internal/chain"
	"swapSupply/internal/config"
	"swapSupply/internal/dex"
	"swapSupply/internal/lending"
	"swapSupply/internal/metrics"
	"swapSupply/internal/model"
	"swapSupply/internal/pipeline"
	"swapSupply/internal/units"
)

func runSupplier(cmd *cobra.Command, args []string) error {
	resume, _ := cmd.Flags().GetBool("resume")
	switch {
	case resume && len(args) > 0:
		return fmt.Errorf("--resume takes no amount")
	case !resume && len(args) == 0:
		return fmt.Errorf("amount is required, e.g. supplier run 1")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	deployment, err := cfg.Network.Deployment()
	if err != nil {
		return err
	}
	guard, err := cfg.Guard()
	if err != nil {
		return err
	}

	var amount decimal.Decimal
	if !resume {
		amount, err = units.ParseAmount(args[0])
		if err != nil {
			return err
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	signer, err := chain.NewSigner(ctx, chainClient, cfg.PrivateKey, chain.SignerOptions{
		TxURL:          deployment.TxURL,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	if err := checkChainID(signer.ChainID(), deployment); err != nil {
		return err
	}

	if cfg.VerifyTokens {
		for _, token := range []model.Token{deployment.TokenIn, deployment.TokenOut} {
			if err := dex.VerifyToken(ctx, chainClient, token, logger); err != nil {
				return err
			}
		}
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	recorder := metrics.NewRecorder()
	defer func() {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("write metrics failed", zap.Error(err))
		}
	}()

	tokens := dex.NewERC20(chainClient, signer)
	var oracle dex.AmountOracle = dex.NewBalanceDelta(tokens, logger)
	if cfg.AmountOracle == config.OracleSwapEvent {
		oracle = dex.NewSwapEventOracle(logger)
	}

	p, err := pipeline.New(pipeline.Config{
		Deployment:   deployment,
		Signer:       signer.Address(),
		Guard:        guard,
		ReferralCode: cfg.ReferralCode,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, pipeline.Deps{
		Tokens:   tokens,
		Pools:    dex.NewPoolDirectory(chainClient, deployment.Factory),
		Router:   dex.NewRouter(deployment.Router, signer),
		Lending:  lending.NewPool(deployment.LendingPool, signer, cfg.SupplyGasLimit),
		Oracle:   oracle,
		Receipts: chainClient,
	}, logger,
		pipeline.WithJournal(st.journal),
		pipeline.WithCheckpoint(st.checkpoint),
		pipeline.WithMetrics(recorder),
	)
	if err != nil {
		return err
	}

	logger.Info("supplier start",
		zap.String("network", deployment.Name),
		zap.Uint64("chain_id", deployment.ChainID),
		zap.String("signer", signer.Address().Hex()),
		zap.String("amount_oracle", cfg.AmountOracle),
		zap.Bool("resume", resume),
	)

	if resume {
		prev, ok, err := st.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no checkpointed run", pipeline.ErrNotResumable)
		}
		if _, err := p.Resume(ctx, prev); err != nil {
			if errors.Is(err, pipeline.ErrNotResumable) {
				return err
			}
			return errRunFailed
		}
		return nil
	}

	if _, err := p.Run(ctx, amount); err != nil {
		return errRunFailed
	}
	return nil
}

func checkChainID(got *big.Int, deployment model.Deployment) error {
	if !got.IsUint64() || got.Uint64() != deployment.ChainID {
		return fmt.Errorf("rpc chain id %s does not match network %s (%d)", got, deployment.Name, deployment.ChainID)
	}
	return nil
}

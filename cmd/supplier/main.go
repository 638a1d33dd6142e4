package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"swapSupply/internal/config"
)

// errRunFailed marks a pipeline failure that has already been logged.
var errRunFailed = errors.New("run failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "supplier",
		Short:         "Swap USDC for LINK on Uniswap V3 and supply it to Aave",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", ".env", "dotenv file with RPC_URL and PRIVATE_KEY (missing file is ignored)")
	root.PersistentFlags().String("checkpoint", "./data/run.json", "checkpoint file path")
	root.PersistentFlags().String("journal", "./data/runs.jsonl", "run journal JSONL path (empty disables)")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN for the run journal and checkpoint")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-file", "", "also write JSON logs to this rotating file")

	runCmd := &cobra.Command{
		Use:   "run <amount>",
		Short: "Approve, swap and supply the given amount of the input token",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSupplier,
	}

	runCmd.Flags().String("rpc", "", "Ethereum RPC URL (default from RPC_URL)")
	runCmd.Flags().Bool("resume", false, "continue the checkpointed run from its failed step")
	runCmd.Flags().String("amount-oracle", config.OracleBalance, "how the received amount is measured (balance, swap-event)")
	runCmd.Flags().Int("max-retries", 0, "retry attempts for read-only calls")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Duration("confirm-timeout", 0, "max wait per transaction confirmation, 0 waits forever")
	runCmd.Flags().Bool("verify-tokens", true, "check token decimals on chain before running")
	runCmd.Flags().String("metrics-file", "", "write Prometheus textfile metrics here on exit")

	root.AddCommand(runCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the last checkpointed run",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	statusCmd.Flags().Bool("history", false, "also print every recorded transition of the run")

	root.AddCommand(statusCmd)

	return root
}

// loadConfig reads the dotenv file and then merges config file, env and flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load env file: %w", err)
		}
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile, cmd.Flags())
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevel()
	if err := zcfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, err
	}

	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	if cfg.LogFile == "" {
		return logger, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zcfg.EncoderConfig), zapcore.AddSync(rotator), zcfg.Level)

	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

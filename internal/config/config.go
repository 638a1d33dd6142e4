package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	ErrMissingRPC        = errors.New("rpc url is required (set RPC_URL or --rpc)")
	ErrMissingPrivateKey = errors.New("private key is required (set PRIVATE_KEY)")
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL     string
	PrivateKey string

	Network NetworkConfig

	AmountOutMinimum  string
	SqrtPriceLimitX96 string
	SupplyGasLimit    uint64
	ReferralCode      uint16
	AmountOracle      string

	MaxRetries     int
	RetryBackoff   time.Duration
	ConfirmTimeout time.Duration
	VerifyTokens   bool

	Checkpoint  string
	Journal     string
	PGDSN       string
	MetricsFile string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SUPPLIER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// Credentials keep the plain names a .env file for this tool traditionally carries.
	if err := v.BindEnv("rpc", "SUPPLIER_RPC", "RPC_URL"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("private-key", "SUPPLIER_PRIVATE_KEY", "PRIVATE_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	setNetworkDefaults(v, Sepolia)
	v.SetDefault("swap.amount-out-minimum", "0")
	v.SetDefault("swap.sqrt-price-limit-x96", "0")
	v.SetDefault("supply.gas-limit", uint64(900000))
	v.SetDefault("supply.referral-code", 0)
	v.SetDefault("amount-oracle", OracleBalance)
	v.SetDefault("max-retries", 0)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("confirm-timeout", time.Duration(0))
	v.SetDefault("verify-tokens", true)
	v.SetDefault("checkpoint", "./data/run.json")
	v.SetDefault("journal", "./data/runs.jsonl")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-max-size", 100)
	v.SetDefault("log-max-backups", 3)
	v.SetDefault("log-max-age", 28)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	referral := v.GetUint("supply.referral-code")
	if referral > 0xffff {
		return Config{}, fmt.Errorf("supply.referral-code %d exceeds uint16", referral)
	}

	cfg := Config{
		RPCURL:            strings.TrimSpace(v.GetString("rpc")),
		PrivateKey:        strings.TrimSpace(v.GetString("private-key")),
		Network:           networkFromViper(v),
		AmountOutMinimum:  v.GetString("swap.amount-out-minimum"),
		SqrtPriceLimitX96: v.GetString("swap.sqrt-price-limit-x96"),
		SupplyGasLimit:    v.GetUint64("supply.gas-limit"),
		ReferralCode:      uint16(referral),
		AmountOracle:      strings.ToLower(strings.TrimSpace(v.GetString("amount-oracle"))),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		ConfirmTimeout:    v.GetDuration("confirm-timeout"),
		VerifyTokens:      v.GetBool("verify-tokens"),
		Checkpoint:        v.GetString("checkpoint"),
		Journal:           v.GetString("journal"),
		PGDSN:             v.GetString("pg-dsn"),
		MetricsFile:       v.GetString("metrics-file"),
		LogLevel:          v.GetString("log-level"),
		LogFile:           v.GetString("log-file"),
		LogMaxSizeMB:      v.GetInt("log-max-size"),
		LogMaxBackups:     v.GetInt("log-max-backups"),
		LogMaxAgeDays:     v.GetInt("log-max-age"),
	}

	return cfg, nil
}

// Validate checks everything the pipeline needs before dialing the node.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return ErrMissingRPC
	}
	if c.PrivateKey == "" {
		return ErrMissingPrivateKey
	}
	if _, err := c.Network.Deployment(); err != nil {
		return err
	}
	if _, err := c.Guard(); err != nil {
		return err
	}
	switch c.AmountOracle {
	case OracleBalance, OracleSwapEvent:
	default:
		return fmt.Errorf("unsupported amount oracle %q (want %s or %s)", c.AmountOracle, OracleBalance, OracleSwapEvent)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must not be negative")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"swapSupply/internal/model"
)

const (
	OracleBalance   = "balance"
	OracleSwapEvent = "swap-event"
)

// ErrInvalidAddress marks a malformed contract or token address.
var ErrInvalidAddress = errors.New("invalid address")

// TokenConfig is the raw token descriptor as configured.
type TokenConfig struct {
	Address  string
	Decimals uint
	Symbol   string
	Name     string
}

// NetworkConfig is the raw deployment block. All addresses and the chain id change together.
type NetworkConfig struct {
	Name        string
	ChainID     uint64
	ExplorerURL string
	Factory     string
	Router      string
	LendingPool string
	FeeTier     uint32
	TokenIn     TokenConfig
	TokenOut    TokenConfig
}

// Sepolia is the default deployment: Uniswap V3 and Aave V3 on the Sepolia test network.
var Sepolia = NetworkConfig{
	Name:        "sepolia",
	ChainID:     11155111,
	ExplorerURL: "https://sepolia.etherscan.io",
	Factory:     "0x0227628f3F023bb0B980b67D528571c95c6DaC1c",
	Router:      "0x3bFA4769FB09eefC5a80d6E87c3B9C650f7Ae48E",
	LendingPool: "0x6Ae43d3271ff6888e7Fc43Fd7321a503ff738951",
	FeeTier:     3000,
	TokenIn: TokenConfig{
		Address:  "0x94a9D9AC8a22534E3FaCa9F4e7F2E2cf85d5E4C8",
		Decimals: 6,
		Symbol:   "USDC",
		Name:     "USD//C",
	},
	TokenOut: TokenConfig{
		Address:  "0xf8Fb3713D459D7C1018BD0A49D19b4C44290EBE5",
		Decimals: 18,
		Symbol:   "LINK",
		Name:     "Chainlink",
	},
}

func setNetworkDefaults(v *viper.Viper, n NetworkConfig) {
	v.SetDefault("network.name", n.Name)
	v.SetDefault("network.chain-id", n.ChainID)
	v.SetDefault("network.explorer-url", n.ExplorerURL)
	v.SetDefault("network.factory", n.Factory)
	v.SetDefault("network.router", n.Router)
	v.SetDefault("network.lending-pool", n.LendingPool)
	v.SetDefault("network.fee-tier", n.FeeTier)
	for prefix, tok := range map[string]TokenConfig{"network.token-in": n.TokenIn, "network.token-out": n.TokenOut} {
		v.SetDefault(prefix+".address", tok.Address)
		v.SetDefault(prefix+".decimals", tok.Decimals)
		v.SetDefault(prefix+".symbol", tok.Symbol)
		v.SetDefault(prefix+".name", tok.Name)
	}
}

func networkFromViper(v *viper.Viper) NetworkConfig {
	token := func(prefix string) TokenConfig {
		return TokenConfig{
			Address:  v.GetString(prefix + ".address"),
			Decimals: v.GetUint(prefix + ".decimals"),
			Symbol:   v.GetString(prefix + ".symbol"),
			Name:     v.GetString(prefix + ".name"),
		}
	}
	return NetworkConfig{
		Name:        v.GetString("network.name"),
		ChainID:     v.GetUint64("network.chain-id"),
		ExplorerURL: v.GetString("network.explorer-url"),
		Factory:     v.GetString("network.factory"),
		Router:      v.GetString("network.router"),
		LendingPool: v.GetString("network.lending-pool"),
		FeeTier:     v.GetUint32("network.fee-tier"),
		TokenIn:     token("network.token-in"),
		TokenOut:    token("network.token-out"),
	}
}

// Deployment validates the block and converts it into typed addresses.
func (n NetworkConfig) Deployment() (model.Deployment, error) {
	if n.ChainID == 0 {
		return model.Deployment{}, fmt.Errorf("network.chain-id is required")
	}
	if n.FeeTier == 0 || n.FeeTier >= 1_000_000 {
		return model.Deployment{}, fmt.Errorf("network.fee-tier %d out of range", n.FeeTier)
	}

	factory, err := ParseAddress("network.factory", n.Factory)
	if err != nil {
		return model.Deployment{}, err
	}
	router, err := ParseAddress("network.router", n.Router)
	if err != nil {
		return model.Deployment{}, err
	}
	lendingPool, err := ParseAddress("network.lending-pool", n.LendingPool)
	if err != nil {
		return model.Deployment{}, err
	}
	tokenIn, err := n.TokenIn.token("network.token-in", n.ChainID)
	if err != nil {
		return model.Deployment{}, err
	}
	tokenOut, err := n.TokenOut.token("network.token-out", n.ChainID)
	if err != nil {
		return model.Deployment{}, err
	}
	if tokenIn.Address == tokenOut.Address {
		return model.Deployment{}, fmt.Errorf("token-in and token-out must differ")
	}

	return model.Deployment{
		Name:        n.Name,
		ChainID:     n.ChainID,
		ExplorerURL: n.ExplorerURL,
		Factory:     factory,
		Router:      router,
		LendingPool: lendingPool,
		FeeTier:     n.FeeTier,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
	}, nil
}

func (t TokenConfig) token(key string, chainID uint64) (model.Token, error) {
	address, err := ParseAddress(key+".address", t.Address)
	if err != nil {
		return model.Token{}, err
	}
	if t.Decimals > 36 {
		return model.Token{}, fmt.Errorf("%s.decimals %d out of range", key, t.Decimals)
	}
	return model.Token{
		ChainID:  chainID,
		Address:  address,
		Decimals: uint8(t.Decimals),
		Symbol:   t.Symbol,
		Name:     t.Name,
	}, nil
}

// ParseAddress converts a hex string into a non-zero common.Address.
func ParseAddress(key, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("%w: %s=%q", ErrInvalidAddress, key, input)
	}
	address := common.HexToAddress(input)
	if address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s is the zero address", ErrInvalidAddress, key)
	}
	return address, nil
}

// Guard parses the configured swap protections.
func (c Config) Guard() (model.SwapGuard, error) {
	minOut, err := parseUint("swap.amount-out-minimum", c.AmountOutMinimum)
	if err != nil {
		return model.SwapGuard{}, err
	}
	limit, err := parseUint("swap.sqrt-price-limit-x96", c.SqrtPriceLimitX96)
	if err != nil {
		return model.SwapGuard{}, err
	}
	if limit.BitLen() > 160 {
		return model.SwapGuard{}, fmt.Errorf("swap.sqrt-price-limit-x96 exceeds uint160")
	}
	return model.SwapGuard{AmountOutMinimum: minOut, SqrtPriceLimitX96: limit}, nil
}

func parseUint(key, input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(input, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer, got %q", key, input)
	}
	return v, nil
}

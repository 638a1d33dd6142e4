package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Deployment binds the pipeline to one network: contracts, tokens and fee tier.
type Deployment struct {
	Name        string
	ChainID     uint64
	ExplorerURL string
	Factory     common.Address
	Router      common.Address
	LendingPool common.Address
	FeeTier     uint32
	TokenIn     Token
	TokenOut    Token
}

// TxURL renders a block-explorer link for a transaction hash.
func (d Deployment) TxURL(hash common.Hash) string {
	if d.ExplorerURL == "" {
		return hash.Hex()
	}
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(d.ExplorerURL, "/"), hash.Hex())
}

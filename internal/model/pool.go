package model

// PoolRef is a resolved pool with its constituent tokens and fee tier.
type PoolRef struct {
	Address string `json:"address"`
	Token0  string `json:"token0"`
	Token1  string `json:"token1"`
	Fee     uint32 `json:"fee"`
}

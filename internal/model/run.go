package model

import "time"

// RunState is a pipeline position. Each state names the last completed step.
type RunState string

const (
	StateIdle            RunState = "idle"
	StateApproved        RunState = "approved"
	StatePoolResolved    RunState = "pool_resolved"
	StateSwapped         RunState = "swapped"
	StateLendingApproved RunState = "lending_approved"
	StateSupplied        RunState = "supplied"
	StateDone            RunState = "done"
	StateFailed          RunState = "failed"
)

// Run is the inspectable record of one pipeline execution.
type Run struct {
	ID       string   `json:"id"`
	Network  string   `json:"network"`
	ChainID  uint64   `json:"chain_id"`
	Signer   string   `json:"signer"`
	State    RunState `json:"state"`
	FailedAt RunState `json:"failed_at,omitempty"`
	Error    string   `json:"error,omitempty"`

	InputAmount string `json:"input_amount"`
	AmountIn    string `json:"amount_in"`

	Pool          *PoolRef `json:"pool,omitempty"`
	SwappedAmount string   `json:"swapped_amount,omitempty"`
	SwappedBase   string   `json:"swapped_base,omitempty"`

	ApproveTx        string `json:"approve_tx,omitempty"`
	SwapTx           string `json:"swap_tx,omitempty"`
	LendingApproveTx string `json:"lending_approve_tx,omitempty"`
	SupplyTx         string `json:"supply_tx,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether a run in this state can make no further progress on its own.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

package pipeline

import (
	"errors"

	"swapSupply/internal/dex"
)

var (
	// ErrApprovalFailed wraps any failure to grant an allowance.
	ErrApprovalFailed = errors.New("token approval failed")
	// ErrNotResumable is returned when a run has no failed step to continue from.
	ErrNotResumable    = errors.New("run is not resumable")
	ErrNothingReceived = dex.ErrNothingReceived
)

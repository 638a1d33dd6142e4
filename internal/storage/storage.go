package storage

import (
	"context"

	"swapSupply/internal/model"
)

// Journal records every state transition of a run.
type Journal interface {
	PutRun(ctx context.Context, run model.Run) error
}

// MultiJournal fans a record out to several journals, stopping at the first error.
type MultiJournal []Journal

func (m MultiJournal) PutRun(ctx context.Context, run model.Run) error {
	for _, j := range m {
		if j == nil {
			continue
		}
		if err := j.PutRun(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

package pipeline

import (
	"context"
	"fmt"

	"swapSupply/internal/model"
)

// transitions lists the forward edges of the run state machine. StateFailed is reachable
// from every non-terminal state and is handled separately.
var transitions = map[model.RunState]model.RunState{
	model.StateIdle:            model.StateApproved,
	model.StateApproved:        model.StatePoolResolved,
	model.StatePoolResolved:    model.StateSwapped,
	model.StateSwapped:         model.StateLendingApproved,
	model.StateLendingApproved: model.StateSupplied,
	model.StateSupplied:        model.StateDone,
}

func canTransition(from, to model.RunState) bool {
	if to == model.StateFailed {
		return !from.Terminal()
	}
	next, ok := transitions[from]
	return ok && next == to
}

// step moves a run from one state to the next.
type step struct {
	name string
	from model.RunState
	to   model.RunState
	run  func(ctx context.Context, run *model.Run) error
}

func (p *Pipeline) steps() []step {
	return []step{
		{name: "approve", from: model.StateIdle, to: model.StateApproved, run: p.approveRouter},
		{name: "discover_pool", from: model.StateApproved, to: model.StatePoolResolved, run: p.discoverPool},
		{name: "swap", from: model.StatePoolResolved, to: model.StateSwapped, run: p.swap},
		{name: "approve_lending", from: model.StateSwapped, to: model.StateLendingApproved, run: p.authorizeLending},
		{name: "supply", from: model.StateLendingApproved, to: model.StateSupplied, run: p.supply},
	}
}

func (p *Pipeline) stepFrom(state model.RunState) (step, error) {
	for _, s := range p.steps() {
		if s.from == state {
			return s, nil
		}
	}
	return step{}, fmt.Errorf("no step leaves state %q", state)
}

// transition moves the run to the next state and persists it.
func (p *Pipeline) transition(ctx context.Context, run *model.Run, to model.RunState) error {
	if !canTransition(run.State, to) {
		return fmt.Errorf("illegal transition %s -> %s", run.State, to)
	}
	run.State = to
	run.UpdatedAt = p.now().UTC()
	return p.persist(ctx, run)
}

func (p *Pipeline) persist(ctx context.Context, run *model.Run) error {
	if p.checkpoint != nil {
		if err := p.checkpoint.Save(ctx, *run); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}
	if p.journal != nil {
		if err := p.journal.PutRun(ctx, *run); err != nil {
			return fmt.Errorf("journal run: %w", err)
		}
	}
	return nil
}

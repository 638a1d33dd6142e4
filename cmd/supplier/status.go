package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"swapSupply/internal/model"
)

type statusOutput struct {
	Run     model.Run        `json:"run"`
	History []model.RunState `json:"history,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	history, _ := cmd.Flags().GetBool("history")

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	run, ok, err := st.checkpoint.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no run recorded")
		return nil
	}

	out := statusOutput{Run: run}
	if history {
		out.History, err = transitions(ctx, st, run.ID)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func transitions(ctx context.Context, st *stores, id string) ([]model.RunState, error) {
	if st.pg != nil {
		return st.pg.Transitions(ctx, id)
	}
	if st.jsonl == nil {
		return nil, nil
	}
	runs, err := st.jsonl.History(ctx, id)
	if err != nil {
		return nil, err
	}
	states := make([]model.RunState, 0, len(runs))
	for _, r := range runs {
		states = append(states, r.State)
	}
	return states, nil
}

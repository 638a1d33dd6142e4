package main

import (
	"context"
	"fmt"

	"swapSupply/internal/config"
	"swapSupply/internal/pipeline"
	"swapSupply/internal/storage"
	"swapSupply/internal/storage/postgres"
)

type stores struct {
	journal    storage.Journal
	checkpoint pipeline.CheckpointStore
	jsonl      *storage.JsonlJournal
	pg         *postgres.Store
}

// openStores picks Postgres for the checkpoint when a DSN is set, else the checkpoint file.
// Both journals receive every transition when configured.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	s := &stores{}
	var journals storage.MultiJournal

	if cfg.Journal != "" {
		s.jsonl = storage.NewJsonlJournal(cfg.Journal)
		journals = append(journals, s.jsonl)
	}

	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		s.pg = pg
		journals = append(journals, pg)
		s.checkpoint = &pipeline.DBCheckpointStore{Store: pg}
	} else {
		s.checkpoint = &pipeline.FileCheckpointStore{Path: cfg.Checkpoint}
	}

	s.journal = journals
	return s, nil
}

func (s *stores) Close() {
	if s.pg != nil {
		s.pg.Close()
	}
}

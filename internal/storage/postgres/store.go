package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapSupply/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS supplier_runs (
	id             TEXT PRIMARY KEY,
	network        TEXT NOT NULL,
	chain_id       BIGINT NOT NULL,
	signer         TEXT NOT NULL,
	state          TEXT NOT NULL,
	failed_at      TEXT,
	error          TEXT,
	swapped_amount TEXT,
	snapshot       JSONB NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS supplier_run_transitions (
	run_id      TEXT NOT NULL REFERENCES supplier_runs(id),
	state       TEXT NOT NULL,
	snapshot    JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS supplier_runs_updated_at_idx ON supplier_runs (updated_at DESC);
`

// Store provides Postgres persistence for pipeline runs.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the run tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const upsertRun = `
	INSERT INTO supplier_runs (
		id, network, chain_id, signer, state, failed_at, error, swapped_amount, snapshot, started_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id)
	DO UPDATE SET
		state = EXCLUDED.state,
		failed_at = EXCLUDED.failed_at,
		error = EXCLUDED.error,
		swapped_amount = EXCLUDED.swapped_amount,
		snapshot = EXCLUDED.snapshot,
		updated_at = EXCLUDED.updated_at
`

// SaveRun upserts the latest snapshot of a run.
func (s *Store) SaveRun(ctx context.Context, run model.Run) error {
	args, _, err := runArgs(run)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertRun, args...); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// PutRun upserts the latest snapshot and appends the transition.
func (s *Store) PutRun(ctx context.Context, run model.Run) error {
	args, snapshot, err := runArgs(run)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(upsertRun, args...)
	batch.Queue(`
		INSERT INTO supplier_run_transitions (run_id, state, snapshot) VALUES ($1, $2, $3)
	`, run.ID, string(run.State), snapshot)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("put run %s: %w", run.ID, err)
		}
	}
	return nil
}

func runArgs(run model.Run) ([]any, []byte, error) {
	if run.ID == "" {
		return nil, nil, fmt.Errorf("run id required")
	}
	snapshot, err := json.Marshal(run)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal run: %w", err)
	}
	return []any{
		run.ID,
		run.Network,
		int64(run.ChainID),
		run.Signer,
		string(run.State),
		nullable(string(run.FailedAt)),
		nullable(run.Error),
		nullable(run.SwappedAmount),
		snapshot,
		run.StartedAt,
		run.UpdatedAt,
	}, snapshot, nil
}

// LoadRun returns the latest snapshot for a run id.
func (s *Store) LoadRun(ctx context.Context, id string) (model.Run, bool, error) {
	if id == "" {
		return model.Run{}, false, fmt.Errorf("run id required")
	}
	row := s.pool.QueryRow(ctx, `SELECT snapshot FROM supplier_runs WHERE id=$1`, id)
	return scanSnapshot(row)
}

// LatestRun returns the most recently updated run.
func (s *Store) LatestRun(ctx context.Context) (model.Run, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT snapshot FROM supplier_runs ORDER BY updated_at DESC LIMIT 1`)
	return scanSnapshot(row)
}

// Transitions lists the recorded states of a run in order.
func (s *Store) Transitions(ctx context.Context, id string) ([]model.RunState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT state FROM supplier_run_transitions WHERE run_id=$1 ORDER BY recorded_at, ctid
	`, id)
	if err != nil {
		return nil, err
	}
	states, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RunState, error) {
		var state string
		err := row.Scan(&state)
		return model.RunState(state), err
	})
	if err != nil {
		return nil, fmt.Errorf("collect transitions: %w", err)
	}
	return states, nil
}

func scanSnapshot(row pgx.Row) (model.Run, bool, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Run{}, false, nil
		}
		return model.Run{}, false, err
	}
	var run model.Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return model.Run{}, false, fmt.Errorf("parse run snapshot: %w", err)
	}
	return run, true, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

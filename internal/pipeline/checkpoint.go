package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"swapSupply/internal/model"
	"swapSupply/internal/storage/postgres"
)

// CheckpointStore keeps the latest snapshot of the current run.
type CheckpointStore interface {
	Load(ctx context.Context) (model.Run, bool, error)
	Save(ctx context.Context, run model.Run) error
}

// FileCheckpointStore stores the run in a local JSON file.
type FileCheckpointStore struct {
	Path string
}

func (s *FileCheckpointStore) Load(ctx context.Context) (model.Run, bool, error) {
	if s == nil || s.Path == "" {
		return model.Run{}, false, nil
	}

	stat, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Run{}, false, nil
		}
		return model.Run{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return model.Run{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return model.Run{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return run, true, nil
}

func (s *FileCheckpointStore) Save(ctx context.Context, run model.Run) error {
	if s == nil || s.Path == "" {
		return nil
	}

	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := s.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// DBCheckpointStore keeps the latest run in the supplier_runs table.
type DBCheckpointStore struct {
	Store *postgres.Store
}

func (s *DBCheckpointStore) Load(ctx context.Context) (model.Run, bool, error) {
	if s == nil || s.Store == nil {
		return model.Run{}, false, nil
	}
	return s.Store.LatestRun(ctx)
}

func (s *DBCheckpointStore) Save(ctx context.Context, run model.Run) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveRun(ctx, run)
}

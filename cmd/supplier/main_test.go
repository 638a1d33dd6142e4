package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"swapSupply/internal/config"
	"swapSupply/internal/model"
	"swapSupply/internal/pipeline"
	"swapSupply/internal/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RPC_URL", "PRIVATE_KEY", "SUPPLIER_RPC", "SUPPLIER_PRIVATE_KEY", "SUPPLIER_PG_DSN"} {
		t.Setenv(key, "")
	}
}

func TestRunArgumentValidation(t *testing.T) {
	_, err := execute(t, "run")
	require.ErrorContains(t, err, "amount is required")

	_, err = execute(t, "run", "--resume", "1")
	require.ErrorContains(t, err, "--resume takes no amount")
}

func TestRunFailsFastWithoutCredentials(t *testing.T) {
	clearCredentials(t)

	_, err := execute(t, "run", "1", "--env-file", "")
	require.ErrorIs(t, err, config.ErrMissingRPC)

	_, err = execute(t, "run", "1", "--env-file", "", "--rpc", "http://127.0.0.1:1")
	require.ErrorIs(t, err, config.ErrMissingPrivateKey)
}

func TestRunReadsEnvFile(t *testing.T) {
	clearCredentials(t)
	os.Unsetenv("RPC_URL")
	os.Unsetenv("PRIVATE_KEY")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RPC_URL=http://127.0.0.1:1\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("RPC_URL") })

	// The RPC URL comes from the file, so validation moves on to the missing key.
	_, err := execute(t, "run", "1", "--env-file", envFile)
	require.ErrorIs(t, err, config.ErrMissingPrivateKey)
}

func TestStatusPrintsCheckpointAndHistory(t *testing.T) {
	clearCredentials(t)
	ctx := context.Background()
	dir := t.TempDir()
	checkpointPath := filepath.Join(dir, "run.json")
	journalPath := filepath.Join(dir, "runs.jsonl")

	journal := storage.NewJsonlJournal(journalPath)
	for _, state := range []model.RunState{model.StateIdle, model.StateApproved, model.StateFailed} {
		require.NoError(t, journal.PutRun(ctx, model.Run{ID: "run-1", State: state}))
	}
	run := model.Run{ID: "run-1", State: model.StateFailed, FailedAt: model.StateApproved, Error: "get pool: pool not found"}
	require.NoError(t, (&pipeline.FileCheckpointStore{Path: checkpointPath}).Save(ctx, run))

	out, err := execute(t, "status", "--history", "--env-file", "", "--checkpoint", checkpointPath, "--journal", journalPath)
	require.NoError(t, err)

	var got statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "run-1", got.Run.ID)
	require.Equal(t, model.StateApproved, got.Run.FailedAt)
	require.Equal(t, []model.RunState{model.StateIdle, model.StateApproved, model.StateFailed}, got.History)
}

func TestStatusWithoutRun(t *testing.T) {
	clearCredentials(t)
	dir := t.TempDir()

	out, err := execute(t, "status", "--env-file", "", "--checkpoint", filepath.Join(dir, "run.json"), "--journal", "")
	require.NoError(t, err)
	require.Contains(t, out, "no run recorded")
}

func TestNewLoggerTeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "supplier.log")
	logger, err := newLogger(config.Config{LogLevel: "info", LogFile: path, LogMaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("transaction confirmed")
	logger.Debug("hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"transaction confirmed"`)
	require.Contains(t, string(data), `"ts":`)
	require.NotContains(t, string(data), "hidden")
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := newLogger(config.Config{LogLevel: "loud"})
	require.Error(t, err)
}

func TestCheckChainID(t *testing.T) {
	sepolia := model.Deployment{Name: "sepolia", ChainID: 11155111}

	require.NoError(t, checkChainID(big.NewInt(11155111), sepolia))
	require.EqualError(t, checkChainID(big.NewInt(1), sepolia), "rpc chain id 1 does not match network sepolia (11155111)")

	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	require.Error(t, checkChainID(huge, sepolia))
}

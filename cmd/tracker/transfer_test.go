package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage_tracker/internal/domain/entity"
	"brokerage_tracker/internal/infrastructure/storage"
)

// useTempConfig points the commands at a config whose database lives in a
// fresh temp dir.
func useTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yml")
	cfg := "logging:\n  level: error\nstorage:\n  path: " + filepath.Join(dir, "tracker.db") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	t.Setenv("CONFIG_PATH", cfgPath)
	return dir
}

func runCommand(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cmd.Execute(context.Background(), fs)
}

func TestImportExportRoundTrip(t *testing.T) {
	dir := useTempConfig(t)

	in := entity.EmptyStoreState()
	in.Accounts = []entity.Account{{ID: "acc-1", Name: "Brokerage"}}
	in.Positions = []entity.Position{
		{ID: "p-1", AccountID: "acc-1", Symbol: "AAPL", Quantity: 10, CostBasis: 1000},
		{ID: "p-2", Symbol: "BTC", Quantity: 0.5, CostBasis: 20000, Notes: "cold"},
	}
	in.Prices = entity.PriceTable{"AAPL": 190.5, "BTC": 65000}
	data, err := storage.EncodeSnapshot(in)
	require.NoError(t, err)
	inPath := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(inPath, data, 0o644))

	require.Equal(t, subcommands.ExitSuccess, runCommand(t, &importCmd{}, inPath))

	outPath := filepath.Join(dir, "out.json")
	require.Equal(t, subcommands.ExitSuccess, runCommand(t, &exportCmd{}, outPath))

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	out, err := storage.DecodeSnapshot(written)
	require.NoError(t, err)
	assert.Equal(t, in.Accounts, out.Accounts)
	assert.Equal(t, in.Positions, out.Positions)
	assert.Equal(t, in.Prices, out.Prices)
}

func TestImportRefusesUnusableSnapshots(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not an object", body: `[1,2,3]`},
		{name: "not json", body: `hello`},
		{name: "negative quantity", body: `{"accounts":[],"positions":[{"id":"p-1","symbol":"AAPL","quantity":-1,"costBasis":10}]}`},
		{name: "duplicate position ids", body: `{"positions":[{"id":"p-1","symbol":"AAPL","quantity":1,"costBasis":1},{"id":"p-1","symbol":"MSFT","quantity":1,"costBasis":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := useTempConfig(t)

			seed := entity.EmptyStoreState()
			seed.Positions = []entity.Position{{ID: "keep", Symbol: "SPY", Quantity: 1, CostBasis: 400}}
			data, err := storage.EncodeSnapshot(seed)
			require.NoError(t, err)
			seedPath := filepath.Join(dir, "seed.json")
			require.NoError(t, os.WriteFile(seedPath, data, 0o644))
			require.Equal(t, subcommands.ExitSuccess, runCommand(t, &importCmd{}, seedPath))

			badPath := filepath.Join(dir, "bad.json")
			require.NoError(t, os.WriteFile(badPath, []byte(tt.body), 0o644))
			assert.Equal(t, subcommands.ExitFailure, runCommand(t, &importCmd{}, badPath))

			outPath := filepath.Join(dir, "out.json")
			require.Equal(t, subcommands.ExitSuccess, runCommand(t, &exportCmd{}, outPath))
			written, err := os.ReadFile(outPath)
			require.NoError(t, err)
			out, err := storage.DecodeSnapshot(written)
			require.NoError(t, err)
			assert.Equal(t, seed.Positions, out.Positions)
		})
	}
}

func TestTransferCommandsUsage(t *testing.T) {
	useTempConfig(t)

	assert.Equal(t, subcommands.ExitUsageError, runCommand(t, &importCmd{}))
	assert.Equal(t, subcommands.ExitUsageError, runCommand(t, &exportCmd{}, "a.json", "b.json"))
	assert.Equal(t, subcommands.ExitFailure, runCommand(t, &importCmd{}, filepath.Join(t.TempDir(), "missing.json")))
}

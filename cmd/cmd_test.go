package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docnav/internal/config"
)

func fixtureConfig(t *testing.T) string {
	t.Helper()
	docs, err := filepath.Abs(filepath.Join("..", "testdata", "doxygen"))
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.DocsDir = docs
	path := filepath.Join(t.TempDir(), ".docnav.yml")
	require.NoError(t, cfg.Save(path))
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return rootCmd.ExecuteContext(ctx)
}

func TestSearchCommand(t *testing.T) {
	cfg := fixtureConfig(t)
	require.NoError(t, run(t, "--config", cfg, "search", "--limit", "2", "pip_wait"))
	require.NoError(t, run(t, "--config", cfg, "search", "zzz_nothing"))
}

func TestTreeCommandSyncsToAnchor(t *testing.T) {
	cfg := fixtureConfig(t)
	require.NoError(t, run(t, "--config", cfg, "tree", "--anchor", "group__PiP-0-init-fin.html#gad4e0db6c69792b3fa014e3310892a0eb"))
}

func TestCommandRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".docnav.yml")
	cfg := config.DefaultConfig()
	cfg.Search.Routing = "random"
	require.NoError(t, cfg.Save(path))

	require.Error(t, run(t, "--config", path, "search", "pip"))
}

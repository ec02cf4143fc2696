package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/jsdeps/internal/analyzer"
)

func TestGenerateProject(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		OutputDir:     t.TempDir(),
		NumDirs:       3,
		FilesPerDir:   4,
		ImportDensity: 2,
		ExternalRatio: 0.3,
		Seed:          42,
	}
	files, err := generateProject(cfg)
	require.NoError(t, err)
	assert.Len(t, files, 3*(4+1)+1)

	collected, err := analyzer.CollectSourceFiles(cfg.OutputDir)
	require.NoError(t, err)
	assert.Len(t, collected, len(files), "node_modules must not be collected")

	index, err := os.ReadFile(filepath.Join(cfg.OutputDir, "src", "layer0", "index.js"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "export * from './module0';")
}

func TestGenerateProject_Deterministic(t *testing.T) {
	t.Parallel()

	read := func() string {
		cfg := &Config{OutputDir: t.TempDir(), NumDirs: 2, FilesPerDir: 3, ImportDensity: 1.5, Seed: 7}
		_, err := generateProject(cfg)
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "src", "layer0", "module0"+extOf(t, cfg.OutputDir)))
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, read(), read())
}

func extOf(t *testing.T, root string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(root, "src", "layer0", "module0.*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return filepath.Ext(matches[0])
}

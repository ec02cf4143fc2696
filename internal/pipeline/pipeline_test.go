package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/jsdeps/internal/analyzer"
	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/syntax"
)

var errBroken = errors.New("broken input")

// lineProvider turns each line "import X", "require X" or "export TEXT" into a statement.
// A file containing "!!" fails to parse.
type lineProvider struct{}

func (lineProvider) Parse(_ context.Context, _ string, src []byte) (syntax.Tree, error) {
	text := string(src)
	if strings.Contains(text, "!!") {
		return nil, errBroken
	}

	var stmts syntax.StatementList
	for i, line := range strings.Split(text, "\n") {
		verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		p := syntax.Position{Line: i + 1}
		switch verb {
		case "import":
			stmts = append(stmts, syntax.Statement{Kind: syntax.KindImport, Position: p, Source: arg, Text: line})
		case "require":
			stmts = append(stmts, syntax.Statement{Kind: syntax.KindRequire, Position: p, Source: arg, ArgCount: 1, Text: line})
		case "export":
			stmts = append(stmts, syntax.Statement{Kind: syntax.KindExport, Position: p, Text: line})
		}
	}
	return stmts, nil
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_Scenario(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"a.js": "import './b'\nrequire 'left-pad'\nexport module.exports = { a: 1 }",
		"b.js": "// nothing here",
	})

	result, err := Run(context.Background(), root, lineProvider{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	a := filepath.Join(root, "a.js")
	b := filepath.Join(root, "b.js")

	assert.Equal(t, []graph.Node{
		{ID: a, Kind: graph.NodeKindInternal},
		{ID: b, Kind: graph.NodeKindInternal},
		{ID: "left-pad", Kind: graph.NodeKindExternal},
	}, result.Graph.Nodes())
	assert.Equal(t, []graph.PayloadEdge{
		{Source: a, Target: b},
		{Source: a, Target: "left-pad"},
	}, result.Graph.Payload().Edges)

	require.Len(t, result.Files, 2)
	assert.Len(t, result.Files[0].Analysis.Exports, 1)
	assert.Empty(t, result.Skipped())
}

func TestRun_UnparsableFileDoesNotStopRun(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"a.js": "import 'react'",
		"b.js": "!!",
		"c.js": "require 'lodash'",
	})

	result, err := Run(context.Background(), root, lineProvider{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	skipped := result.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, filepath.Join(root, "b.js"), skipped[0].Path)
	assert.ErrorIs(t, skipped[0].Err, errBroken)

	assert.Equal(t, 2, result.Graph.EdgeCount())
	_, ok := result.Graph.Node(filepath.Join(root, "b.js"))
	assert.False(t, ok)
	assert.Len(t, result.Analyses(), 2)
}

func TestRun_EmptyFileSkipped(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"empty.js": "",
		"full.js":  "import 'x'",
	})

	result, err := Run(context.Background(), root, lineProvider{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	skipped := result.Skipped()
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0].Err, analyzer.ErrEmptyFile)
	assert.Equal(t, 1, result.Stats.Files)
}

func TestRun_EdgeAndNodeCounts(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"a.js":           "import 'react'\nimport 'react'\nrequire './lib'\nrequire './missing'",
		"lib/index.ts":   "import '../a'\nrequire 'react'",
		"lib/helpers.js": "import './index'",
	})

	result, err := Run(context.Background(), root, lineProvider{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	refs := 0
	for _, fa := range result.Analyses() {
		refs += fa.Analysis.DependencyCount()
	}
	assert.Equal(t, 7, refs)
	assert.Equal(t, refs, result.Graph.EdgeCount())
	assert.LessOrEqual(t, result.Graph.NodeCount(), refs+len(result.Analyses()))

	n, ok := result.Graph.Node(filepath.Join(root, "lib", "index.ts"))
	require.True(t, ok)
	assert.Equal(t, graph.NodeKindInternal, n.Kind)

	n, ok = result.Graph.Node("./missing")
	require.True(t, ok)
	assert.Equal(t, graph.NodeKindInternal, n.Kind)
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"a.js":       "import './b'\nrequire 'x'",
		"b.js":       "import './c'",
		"c.js":       "import './a'\nimport 'y'",
		"sub/d.jsx":  "import '../a'",
		"sub/e.tsx":  "require './d'",
		"sub/f.json": "{}",
	})

	first, err := Run(context.Background(), root, lineProvider{}, WithLogger(quietLogger()))
	require.NoError(t, err)
	second, err := Run(context.Background(), root, lineProvider{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, first.Graph.Payload(), second.Graph.Payload())
}

func TestRun_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), filepath.Join(t.TempDir(), "nope"), lineProvider{}, WithLogger(quietLogger()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect source files")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_Canceled(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{"a.js": "import 'x'"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, root, lineProvider{}, WithLogger(quietLogger()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ReadFailure(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{"a.js": "import 'x'"})
	errRead := errors.New("permission denied")

	result, err := Run(context.Background(), root, lineProvider{},
		WithLogger(quietLogger()),
		WithReadFile(func(string) ([]byte, error) { return nil, errRead }))
	require.NoError(t, err)

	require.Len(t, result.Skipped(), 1)
	assert.ErrorIs(t, result.Skipped()[0].Err, errRead)
	assert.Equal(t, 0, result.Graph.NodeCount())
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/impact"
	"github.com/zheng/jsdeps/internal/storage"
	"github.com/zheng/jsdeps/internal/syntax"
)

// lineProvider turns "import X", "require X" and "export ..." lines into statements
type lineProvider struct{}

func (lineProvider) Parse(_ context.Context, _ string, src []byte) (syntax.Tree, error) {
	var stmts syntax.StatementList
	for i, line := range strings.Split(string(src), "\n") {
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

func TestMain(m *testing.M) {
	newProvider = func() (syntax.Provider, error) { return lineProvider{}, nil }
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// analyzedProject writes a small project, analyzes it and returns the db path
func analyzedProject(t *testing.T) (string, string) {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"a.js":      "import './b'\nrequire 'left-pad'\nexport const a = 1",
		"b.js":      "export default 2",
		"broken.js": "",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}

	db := filepath.Join(t.TempDir(), "test.db")
	out, err := execute(t, "analyze", root, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "写入数据库: "+db)
	assert.Contains(t, out, "1 个文件被跳过")
	return root, db
}

func TestAnalyze_JSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte("import react"), 0o644))

	out, err := execute(t, "analyze", root, "--db", filepath.Join(t.TempDir(), "x.db"), "--json")
	require.NoError(t, err)

	var payload graph.Payload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, []graph.PayloadNode{
		{ID: filepath.Join(root, "a.js"), Type: graph.NodeKindInternal},
		{ID: "react", Type: graph.NodeKindExternal},
	}, payload.Nodes)
}

func TestAnalyze_ShowSkipped(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "empty.ts"), nil, 0o644))

	out, err := execute(t, "analyze", root, "--db", filepath.Join(t.TempDir(), "x.db"), "--show-skipped")
	require.NoError(t, err)
	assert.Contains(t, out, "empty.ts")
	assert.Contains(t, out, "empty source file")
}

func TestAnalyze_MissingRoot(t *testing.T) {
	_, err := execute(t, "analyze", filepath.Join(t.TempDir(), "nope"), "--db", filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "项目目录不存在")
}

func TestQueries(t *testing.T) {
	_, db := analyzedProject(t)

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, "list", "--db", db, "--kind", "external")
		require.NoError(t, err)
		assert.Contains(t, out, "left-pad")
		assert.NotContains(t, out, "a.js")

		_, err = execute(t, "list", "--db", db, "--kind", "weird")
		assert.Error(t, err)
	})

	t.Run("search", func(t *testing.T) {
		out, err := execute(t, "search", "pad", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "left-pad")

		out, err = execute(t, "search", "zzz", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "未找到匹配的模块")
	})

	t.Run("deps", func(t *testing.T) {
		out, err := execute(t, "deps", "a.js", "--db", db, "--format", "json")
		require.NoError(t, err)
		var deps []*storage.Dependency
		require.NoError(t, json.Unmarshal([]byte(out), &deps))
		require.Len(t, deps, 2)
		assert.Equal(t, graph.EdgeKindImport, deps[0].Kind)
		assert.Equal(t, "left-pad", deps[1].To)
	})

	t.Run("dependents", func(t *testing.T) {
		out, err := execute(t, "dependents", "b.js", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "📍 当前模块")
		assert.Contains(t, out, "└── a.js")
	})

	t.Run("impact", func(t *testing.T) {
		out, err := execute(t, "impact", "left-pad", "--db", db, "--format", "json")
		require.NoError(t, err)
		var report impact.ImpactReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "left-pad", report.Target.Name)
		require.Len(t, report.DirectDependents, 1)

		_, err = execute(t, "impact", "--db", db)
		assert.Error(t, err)

		_, err = execute(t, "impact", "missing.js", "--db", db)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("exports", func(t *testing.T) {
		out, err := execute(t, "exports", "a.js", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "export const a = 1")

		out, err = execute(t, "exports", "left-pad", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "不是已分析的源文件")
	})

	t.Run("hubs", func(t *testing.T) {
		out, err := execute(t, "hubs", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "b.js")

		out, err = execute(t, "risk", "b.js", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "low")
		assert.Contains(t, out, "依赖方: 1")
	})

	t.Run("export", func(t *testing.T) {
		out, err := execute(t, "export", "--db", db, "--format", "mermaid")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "flowchart LR\n"))

		file := filepath.Join(t.TempDir(), "graph.yaml")
		_, err = execute(t, "export", "--db", db, "-f", "yaml", "-o", file)
		require.NoError(t, err)
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), "type: external")

		_, err = execute(t, "export", "--db", db, "--format", "pdf")
		assert.Error(t, err)
	})
}

func TestAmbiguousSelection(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "x"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "y"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "x", "util.js"), []byte("export const x = 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "y", "util.js"), []byte("export const y = 1"), 0o644))

	db := filepath.Join(t.TempDir(), "amb.db")
	_, err := execute(t, "analyze", root, "--db", db)
	require.NoError(t, err)

	// no input to choose from
	_, err = execute(t, "exports", "util", "--db", db)
	assert.Error(t, err)

	out, err := execute(t, "exports", "util", "--db", db, "--select", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "y/util.js")
	assert.Contains(t, out, "export const y = 1")
}

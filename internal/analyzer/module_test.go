package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/resolver"
	"github.com/zheng/jsdeps/internal/syntax"
)

// fileSet is a resolver.Prober over a fixed set of files
type fileSet map[string]bool

func (f fileSet) IsFile(path string) bool { return f[path] }
func (f fileSet) Exists(path string) bool { return f[path] }

func newTestAnalyzer(files ...string) *ModuleAnalyzer {
	set := fileSet{}
	for _, f := range files {
		set[f] = true
	}
	return NewModuleAnalyzer(resolver.New(set))
}

func pos(line, col int) syntax.Position {
	return syntax.Position{Line: line, Column: col}
}

func TestAnalyze_NoConstructs(t *testing.T) {
	t.Parallel()

	result := newTestAnalyzer().Analyze("/r/a.js", syntax.StatementList(nil))

	assert.Equal(t, graph.NodeKindInternal, result.Kind)
	assert.Empty(t, result.Imports.Internal)
	assert.Empty(t, result.Imports.External)
	assert.Empty(t, result.Requires.Internal)
	assert.Empty(t, result.Requires.External)
	assert.Empty(t, result.Exports)
	assert.Equal(t, 0, result.DependencyCount())
}

func TestAnalyze_Scenario(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer("/r/a.js", "/r/b.js")
	tree := syntax.StatementList{
		{Kind: syntax.KindImport, Position: pos(1, 0), Source: "'./b'", Text: "import x from './b'"},
		{Kind: syntax.KindRequire, Position: pos(2, 10), Source: `"left-pad"`, ArgCount: 1, Text: `require("left-pad")`},
		{Kind: syntax.KindMemberAssignment, Position: pos(3, 0), Target: "module.exports", Text: "module.exports = { a: 1 }"},
	}

	result := a.Analyze("/r/a.js", tree)

	require.Len(t, result.Imports.Internal, 1)
	assert.Equal(t, graph.DependencyReference{
		Specifier:    "./b",
		ResolvedPath: "/r/b.js",
		Location:     graph.Location{Line: 1, Column: 0},
	}, result.Imports.Internal[0])

	require.Len(t, result.Requires.External, 1)
	assert.Equal(t, "left-pad", result.Requires.External[0].Specifier)
	assert.False(t, result.Requires.External[0].Resolved())
	assert.Equal(t, graph.Location{Line: 2, Column: 10}, result.Requires.External[0].Location)

	require.Len(t, result.Exports, 1)
	assert.Equal(t, "module.exports = { a: 1 }", result.Exports[0].Code)
}

func TestAnalyze_ExternalRegardlessOfDisk(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer("/r/lodash.js", "/r/lodash/index.js")
	result := a.Analyze("/r/a.js", syntax.StatementList{
		{Kind: syntax.KindImport, Source: "'lodash'"},
	})

	require.Len(t, result.Imports.External, 1)
	assert.Empty(t, result.Imports.Internal)
	assert.Equal(t, "", result.Imports.External[0].ResolvedPath)
}

func TestAnalyze_UnresolvedInternal(t *testing.T) {
	t.Parallel()

	result := newTestAnalyzer().Analyze("/r/a.js", syntax.StatementList{
		{Kind: syntax.KindRequire, Source: "'./missing'", ArgCount: 1},
		{Kind: syntax.KindImport, Source: "'/abs/path'"},
	})

	require.Len(t, result.Requires.Internal, 1)
	assert.Equal(t, "./missing", result.Requires.Internal[0].Specifier)
	assert.False(t, result.Requires.Internal[0].Resolved())

	// absolute specifiers are internal but never resolved
	require.Len(t, result.Imports.Internal, 1)
	assert.Equal(t, "/abs/path", result.Imports.Internal[0].Target())
}

func TestAnalyze_RequireFiltering(t *testing.T) {
	t.Parallel()

	result := newTestAnalyzer().Analyze("/r/a.js", syntax.StatementList{
		{Kind: syntax.KindRequire, Source: "", ArgCount: 1},     // require(name)
		{Kind: syntax.KindRequire, Source: "'a'", ArgCount: 2},  // require('a', b)
		{Kind: syntax.KindRequire, Source: "", ArgCount: 0},     // require()
		{Kind: syntax.KindRequire, Source: "''", ArgCount: 1},   // require('')
		{Kind: syntax.KindRequire, Source: "'fs'", ArgCount: 1}, // require('fs')
		{Kind: syntax.KindImport, Source: ""},                   // import without source
		{Kind: syntax.KindImport, Source: `"'"`},                // only quotes
		{Kind: syntax.KindImport, Source: `"it's"`},             // inner quote stripped too
	})

	require.Len(t, result.Requires.External, 2)
	assert.Equal(t, "", result.Requires.External[0].Specifier)
	assert.Equal(t, "fs", result.Requires.External[1].Specifier)
	require.Len(t, result.Imports.External, 1)
	assert.Equal(t, "its", result.Imports.External[0].Specifier)
}

func TestAnalyze_ExportOrdering(t *testing.T) {
	t.Parallel()

	result := newTestAnalyzer().Analyze("/r/a.js", syntax.StatementList{
		{Kind: syntax.KindMemberAssignment, Target: "exports.foo", Text: "exports.foo = 1"},
		{Kind: syntax.KindExport, Text: "export const a = 1"},
		{Kind: syntax.KindMemberAssignment, Target: "this.bar", Text: "this.bar = 2"},
		{Kind: syntax.KindMemberAssignment, Target: "module.exports.x", Text: "module.exports.x = 3"},
		{Kind: syntax.KindExport, Text: "export default b"},
		{Kind: syntax.KindMemberAssignment, Target: "module.exports", Text: "module.exports = c"},
	})

	var codes []string
	for _, e := range result.Exports {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{
		"export const a = 1",
		"export default b",
		"exports.foo = 1",
		"module.exports = c",
	}, codes)
}

func TestAnalyze_RelativePathIsExternalKind(t *testing.T) {
	t.Parallel()

	result := newTestAnalyzer().Analyze("src/a.js", syntax.StatementList(nil))
	assert.Equal(t, graph.NodeKindExternal, result.Kind)
}

func TestStripQuotes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "./a", StripQuotes(`'./a'`))
	assert.Equal(t, "./a", StripQuotes(`"./a"`))
	assert.Equal(t, "ab", StripQuotes(`"a'b"`))
	assert.Equal(t, "`x`", StripQuotes("`x`"))
}

func TestIsExportTarget(t *testing.T) {
	t.Parallel()

	assert.True(t, IsExportTarget("module.exports"))
	assert.True(t, IsExportTarget("exports.a"))
	assert.False(t, IsExportTarget("module.exports.a"))
	assert.False(t, IsExportTarget("exports"))
	assert.False(t, IsExportTarget("window.exports"))
}

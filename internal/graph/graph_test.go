package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(spec, resolved string, line int) DependencyReference {
	return DependencyReference{Specifier: spec, ResolvedPath: resolved, Location: Location{Line: line}}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, NodeKindInternal, KindOf("./a"))
	assert.Equal(t, NodeKindInternal, KindOf("../a"))
	assert.Equal(t, NodeKindInternal, KindOf("/abs/a"))
	assert.Equal(t, NodeKindExternal, KindOf("lodash"))
	assert.Equal(t, NodeKindExternal, KindOf("@scope/pkg"))
	assert.Equal(t, NodeKindExternal, KindOf(""))
}

func TestReferences_Add(t *testing.T) {
	t.Parallel()

	var refs References
	refs.Add(ref("./a", "/r/a.js", 1))
	refs.Add(ref("react", "", 2))
	refs.Add(ref("/etc/x", "", 3))

	assert.Len(t, refs.Internal, 2)
	assert.Len(t, refs.External, 1)
	assert.Equal(t, 3, refs.Len())
}

func TestBuilder_Scenario(t *testing.T) {
	t.Parallel()

	a := NewAnalysisResult(NodeKindInternal)
	a.Imports.Add(ref("./b", "/r/b.js", 1))
	a.Requires.Add(ref("left-pad", "", 2))
	a.Exports = append(a.Exports, ExportRecord{Code: "module.exports = { a: 1 }", Location: Location{Line: 3}})

	g := Fold([]FileAnalysis{
		{Path: "/r/a.js", Analysis: a},
		{Path: "/r/b.js", Analysis: NewAnalysisResult(NodeKindInternal)},
	})

	assert.Equal(t, []Node{
		{ID: "/r/a.js", Kind: NodeKindInternal},
		{ID: "/r/b.js", Kind: NodeKindInternal},
		{ID: "left-pad", Kind: NodeKindExternal},
	}, g.Nodes())

	p := g.Payload()
	assert.Equal(t, []PayloadEdge{
		{Source: "/r/a.js", Target: "/r/b.js"},
		{Source: "/r/a.js", Target: "left-pad"},
	}, p.Edges)
}

func TestBuilder_EdgesAreNotDeduplicated(t *testing.T) {
	t.Parallel()

	a := NewAnalysisResult(NodeKindInternal)
	a.Imports.Add(ref("react", "", 1))
	a.Imports.Add(ref("react", "", 2))
	a.Requires.Add(ref("react", "", 3))

	b := NewBuilder()
	b.Add("/r/a.js", a)

	stats := b.Stats()
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 3, stats.References)
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 1, stats.Files)

	edges := b.Graph().Edges()
	assert.Equal(t, EdgeKindImport, edges[0].Kind)
	assert.Equal(t, EdgeKindRequire, edges[2].Kind)
	assert.Equal(t, 3, edges[2].Location.Line)
}

func TestBuilder_BucketOrder(t *testing.T) {
	t.Parallel()

	a := NewAnalysisResult(NodeKindInternal)
	a.Requires.Add(ref("ext-req", "", 1))
	a.Requires.Add(ref("./int-req", "/r/int-req.js", 2))
	a.Imports.Add(ref("ext-imp", "", 3))
	a.Imports.Add(ref("./int-imp", "/r/int-imp.js", 4))

	g := Fold([]FileAnalysis{{Path: "/r/a.js", Analysis: a}})

	var targets []string
	for _, e := range g.Edges() {
		targets = append(targets, e.To)
	}
	assert.Equal(t, []string{"/r/int-imp.js", "ext-imp", "/r/int-req.js", "ext-req"}, targets)
}

func TestBuilder_UnresolvedInternalUsesSpecifier(t *testing.T) {
	t.Parallel()

	x := NewAnalysisResult(NodeKindInternal)
	x.Imports.Add(ref("./utils", "", 1))
	y := NewAnalysisResult(NodeKindInternal)
	y.Imports.Add(ref("./utils", "", 1))

	g := Fold([]FileAnalysis{
		{Path: "/r/x/a.js", Analysis: x},
		{Path: "/r/y/b.js", Analysis: y},
	})

	n, ok := g.Node("./utils")
	require.True(t, ok)
	assert.Equal(t, NodeKindInternal, n.Kind)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
}

func TestBuilder_LastWriteWinsKeepsFirstPosition(t *testing.T) {
	t.Parallel()

	// b.js is first seen as a dependency target, then registered as a file
	// with an external classification; the kind changes, the position does not.
	a := NewAnalysisResult(NodeKindInternal)
	a.Imports.Add(ref("./b", "/r/b.js", 1))

	g := Fold([]FileAnalysis{
		{Path: "/r/a.js", Analysis: a},
		{Path: "/r/b.js", Analysis: NewAnalysisResult(NodeKindExternal)},
	})

	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "/r/b.js", nodes[1].ID)
	assert.Equal(t, NodeKindExternal, nodes[1].Kind)
}

func TestPayload_JSONShape(t *testing.T) {
	t.Parallel()

	a := NewAnalysisResult(NodeKindInternal)
	a.Imports.Add(ref("react", "", 1))
	g := Fold([]FileAnalysis{{Path: "/r/a.js", Analysis: a}})

	data, err := json.Marshal(g.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nodes": [{"id": "/r/a.js", "type": "internal"}, {"id": "react", "type": "external"}],
		"edges": [{"source": "/r/a.js", "target": "react"}]
	}`, string(data))
}

func TestPayload_EmptyGraph(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(New().Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes": [], "edges": []}`, string(data))
}

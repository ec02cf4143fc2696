//go:build cgo

package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path, src string) Tree {
	t.Helper()

	tree, err := NewTreeSitter().Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	return tree
}

func kinds(stmts []Statement) []Kind {
	out := make([]Kind, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, s.Kind)
	}
	return out
}

func TestTreeSitter_Imports(t *testing.T) {
	t.Parallel()

	tree := parse(t, "a.js", "import b from './b';\nimport 'side-effect';\n")
	stmts := tree.Statements()

	require.Len(t, stmts, 2)
	assert.Equal(t, KindImport, stmts[0].Kind)
	assert.Equal(t, "'./b'", stmts[0].Source)
	assert.Equal(t, Position{Line: 1, Column: 0}, stmts[0].Position)
	assert.Equal(t, `'side-effect'`, stmts[1].Source)
	assert.Equal(t, 2, stmts[1].Position.Line)
	assert.False(t, tree.HasErrors())
}

func TestTreeSitter_Requires(t *testing.T) {
	t.Parallel()

	src := `const a = require('left-pad');
const b = require(name);
const c = require('x', 'y');
const d = notRequire('z');
`
	stmts := parse(t, "a.js", src).Statements()

	require.Equal(t, []Kind{KindRequire, KindRequire, KindRequire}, kinds(stmts))

	assert.Equal(t, "'left-pad'", stmts[0].Source)
	assert.Equal(t, 1, stmts[0].ArgCount)
	assert.Equal(t, 10, stmts[0].Position.Column)

	assert.Empty(t, stmts[1].Source)
	assert.Equal(t, 1, stmts[1].ArgCount)

	assert.Equal(t, "'x'", stmts[2].Source)
	assert.Equal(t, 2, stmts[2].ArgCount)
}

func TestTreeSitter_Exports(t *testing.T) {
	t.Parallel()

	src := `export const x = 1;
export default function f() {}
module.exports = { a: 1 };
exports.b = 2;
this.c = 3;
`
	stmts := parse(t, "a.js", src).Statements()

	assert.Equal(t, []Kind{KindExport, KindExport, KindMemberAssignment, KindMemberAssignment, KindMemberAssignment}, kinds(stmts))
	assert.Equal(t, "export const x = 1;", stmts[0].Text)
	assert.Equal(t, "module.exports", stmts[2].Target)
	assert.Equal(t, "module.exports = { a: 1 }", stmts[2].Text)
	assert.Equal(t, "exports.b", stmts[3].Target)
	assert.Equal(t, "this.c", stmts[4].Target)
}

func TestTreeSitter_ExportClauseIsNested(t *testing.T) {
	t.Parallel()

	stmts := parse(t, "a.js", "const a = 1;\nexport { a };\n").Statements()

	require.Equal(t, []Kind{KindExport, KindExport}, kinds(stmts))
	assert.Equal(t, "export { a };", stmts[0].Text)
	assert.Equal(t, "{ a }", stmts[1].Text)
}

func TestTreeSitter_TypeScriptAndTSX(t *testing.T) {
	t.Parallel()

	ts := parse(t, "a.ts", "import type { T } from './types';\nconst x: number = require('y');\n").Statements()
	require.Len(t, ts, 2)
	assert.Equal(t, "'./types'", ts[0].Source)
	assert.Equal(t, "'y'", ts[1].Source)

	legacy := parse(t, "b.ts", "import fs = require('fs');\n").Statements()
	require.Len(t, legacy, 1)
	assert.Equal(t, KindImport, legacy[0].Kind)
	assert.Equal(t, "'fs'", legacy[0].Source)

	tsx := parse(t, "a.tsx", "import React from 'react';\nexport const A = () => <div />;\n").Statements()
	assert.Equal(t, []Kind{KindImport, KindExport}, kinds(tsx))
}

func TestTreeSitter_ErrorTolerant(t *testing.T) {
	t.Parallel()

	tree := parse(t, "broken.js", "import a from './a';\nfunction ( {{{\n")

	assert.True(t, tree.HasErrors())

	var sources []string
	for _, s := range tree.Statements() {
		if s.Kind == KindImport {
			sources = append(sources, s.Source)
		}
	}
	assert.Equal(t, []string{"'./a'"}, sources)
}

func TestTreeSitter_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := NewTreeSitter().Parse(context.Background(), "style.css", []byte("a{}"))
	require.ErrorIs(t, err, ErrUnsupportedExtension)
}

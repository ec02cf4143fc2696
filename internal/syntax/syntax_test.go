package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Language
	}{
		{"/r/a.js", LangJavaScript},
		{"/r/a.jsx", LangJavaScript},
		{"/r/a.ts", LangTypeScript},
		{"/r/A.TSX", LangTSX},
	}

	for _, tt := range tests {
		got, err := LanguageFor(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := LanguageFor("/r/a.json")
	require.ErrorIs(t, err, ErrUnsupportedExtension)
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "import", KindImport.String())
	assert.Equal(t, "require", KindRequire.String())
	assert.Equal(t, "export", KindExport.String())
	assert.Equal(t, "member-assignment", KindMemberAssignment.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestStatementList(t *testing.T) {
	t.Parallel()

	list := StatementList{{Kind: KindImport, Source: "'./a'"}}
	var tree Tree = list

	assert.Len(t, tree.Statements(), 1)
	assert.False(t, tree.HasErrors())
	tree.Close()
}

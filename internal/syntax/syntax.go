// Package syntax turns JavaScript-family source text into the small set of
// statement shapes the module analyzer understands.
//
// The raw syntax tree comes from tree-sitter (see treesitter.go). Callers never
// see tree-sitter node type strings: a translation pass walks the tree once and
// emits Statement values tagged with a closed Kind.
package syntax

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrNoCGO is returned by the stub provider when the binary was built without cgo.
	ErrNoCGO = errors.New("syntax parsing requires CGO (tree-sitter)")
	// ErrUnsupportedExtension is returned when no grammar is registered for a file extension.
	ErrUnsupportedExtension = errors.New("unsupported source file extension")
)

// Kind identifies a statement shape.
type Kind int

const (
	// KindImport is an ES module import statement.
	KindImport Kind = iota + 1
	// KindRequire is a call whose callee is the bare identifier require.
	KindRequire
	// KindExport is an export statement, clause or declaration.
	KindExport
	// KindMemberAssignment is an assignment whose left side is a member expression.
	KindMemberAssignment
)

func (k Kind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindRequire:
		return "require"
	case KindExport:
		return "export"
	case KindMemberAssignment:
		return "member-assignment"
	default:
		return "unknown"
	}
}

// Position is a source location. Line is 1-based, Column is a 0-based byte offset.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Statement is one recognized construct, already detached from the syntax tree.
type Statement struct {
	Kind     Kind
	Position Position

	// Source is the raw text (quotes included) of the string literal naming a
	// module: the import source, or the first require argument when that
	// argument is a string literal. Empty when absent.
	Source string

	// ArgCount is the number of arguments of a require call.
	ArgCount int

	// Target is the left-hand side text of a member assignment.
	Target string

	// Text is the raw source text of the whole construct.
	Text string
}

// Tree is a parsed file.
type Tree interface {
	// Statements returns every recognized statement in document order.
	Statements() []Statement
	// HasErrors reports whether the parser had to recover from syntax errors.
	HasErrors() bool
	// Close releases parser-owned memory.
	Close()
}

// Provider parses raw source text into a Tree.
// Parsing is error tolerant: malformed input yields a best-effort tree.
type Provider interface {
	Parse(ctx context.Context, path string, src []byte) (Tree, error)
}

// Language is a grammar identifier.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)

// LanguageFor picks the grammar for a path by its extension.
// JSX is handled by the JavaScript grammar.
func LanguageFor(path string) (Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx":
		return LangJavaScript, nil
	case ".ts":
		return LangTypeScript, nil
	case ".tsx":
		return LangTSX, nil
	default:
		return "", ErrUnsupportedExtension
	}
}

// StatementList is a Tree over statements that were produced elsewhere.
// It lets callers feed hand-built statements through the analyzer.
type StatementList []Statement

func (l StatementList) Statements() []Statement { return l }
func (l StatementList) HasErrors() bool         { return false }
func (l StatementList) Close()                  {}

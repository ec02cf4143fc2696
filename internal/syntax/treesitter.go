//go:build cgo

package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Raw tree-sitter node types consumed by the translation pass.
const (
	nodeImportStatement      = "import_statement"
	nodeImportRequireClause  = "import_require_clause"
	nodeCallExpression       = "call_expression"
	nodeArguments            = "arguments"
	nodeIdentifier           = "identifier"
	nodeString               = "string"
	nodeExportStatement      = "export_statement"
	nodeExportClause         = "export_clause"
	nodeExportDefaultDecl    = "export_default_declaration"
	nodeExportNamedDecl      = "export_named_declaration"
	nodeAssignmentExpression = "assignment_expression"
	nodeMemberExpression     = "member_expression"
	requireIdentifier        = "require"
)

// TreeSitter is a Provider backed by tree-sitter grammars.
// A fresh parser is created per call, so one TreeSitter may be shared.
type TreeSitter struct{}

// NewTreeSitter creates a tree-sitter provider.
func NewTreeSitter() *TreeSitter {
	return &TreeSitter{}
}

// Parse parses src with the grammar matching path's extension.
func (p *TreeSitter) Parse(ctx context.Context, path string, src []byte) (Tree, error) {
	lang, err := LanguageFor(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar(lang))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &sitterTree{tree: tree, src: src}, nil
}

// IsAvailable reports whether real parsing is compiled in.
func IsAvailable() bool {
	return true
}

func grammar(lang Language) *sitter.Language {
	switch lang {
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

type sitterTree struct {
	tree  *sitter.Tree
	src   []byte
	stmts []Statement
	done  bool
}

func (t *sitterTree) Statements() []Statement {
	if !t.done {
		t.stmts = translate(t.tree.RootNode(), t.src)
		t.done = true
	}
	return t.stmts
}

func (t *sitterTree) HasErrors() bool {
	return t.tree.RootNode().HasError()
}

func (t *sitterTree) Close() {
	t.tree.Close()
}

// translate walks the tree in pre-order and emits every recognized shape.
func translate(root *sitter.Node, src []byte) []Statement {
	var out []Statement

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil || node.IsNull() {
			return
		}

		if stmt, ok := classify(node, src); ok {
			out = append(out, stmt)
		}

		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}

	walk(root)
	return out
}

func classify(node *sitter.Node, src []byte) (Statement, bool) {
	switch node.Type() {
	case nodeImportStatement:
		return Statement{
			Kind:     KindImport,
			Position: position(node),
			Source:   importSource(node, src),
			Text:     node.Content(src),
		}, true

	case nodeCallExpression:
		callee := node.ChildByFieldName("function")
		args := node.ChildByFieldName("arguments")
		if callee == nil || callee.Type() != nodeIdentifier || callee.Content(src) != requireIdentifier {
			return Statement{}, false
		}
		if args == nil || args.Type() != nodeArguments {
			return Statement{}, false
		}

		stmt := Statement{
			Kind:     KindRequire,
			Position: position(node),
			ArgCount: int(args.NamedChildCount()),
			Text:     node.Content(src),
		}
		if first := args.NamedChild(0); first != nil && first.Type() == nodeString {
			stmt.Source = first.Content(src)
		}
		return stmt, true

	case nodeExportStatement, nodeExportClause, nodeExportDefaultDecl, nodeExportNamedDecl:
		return Statement{Kind: KindExport, Position: position(node), Text: node.Content(src)}, true

	case nodeAssignmentExpression:
		left := node.ChildByFieldName("left")
		if left == nil || left.Type() != nodeMemberExpression {
			return Statement{}, false
		}
		return Statement{
			Kind:     KindMemberAssignment,
			Position: position(node),
			Target:   left.Content(src),
			Text:     node.Content(src),
		}, true
	}

	return Statement{}, false
}

// importSource returns the string literal of an import statement. TypeScript
// `import x = require('y')` keeps it one level down, in import_require_clause.
func importSource(node *sitter.Node, src []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case nodeString:
			return child.Content(src)
		case nodeImportRequireClause:
			if source := importSource(child, src); source != "" {
				return source
			}
		}
	}
	return ""
}

func position(node *sitter.Node) Position {
	p := node.StartPoint()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column)}
}

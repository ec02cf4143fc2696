//go:build !cgo

package syntax

import "context"

// TreeSitter is a Provider backed by tree-sitter grammars.
// This stub is used when CGO is not available.
type TreeSitter struct{}

// NewTreeSitter creates a tree-sitter provider.
func NewTreeSitter() *TreeSitter {
	return &TreeSitter{}
}

// Parse always fails with ErrNoCGO.
func (p *TreeSitter) Parse(ctx context.Context, path string, src []byte) (Tree, error) {
	return nil, ErrNoCGO
}

// IsAvailable reports whether real parsing is compiled in.
func IsAvailable() bool {
	return false
}

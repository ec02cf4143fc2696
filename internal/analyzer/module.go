package analyzer

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/resolver"
	"github.com/zheng/jsdeps/internal/syntax"
)

// ErrEmptyFile is returned for files with no content; they are skipped rather than analyzed
var ErrEmptyFile = errors.New("empty source file")

const (
	moduleExports = "module.exports"
	exportsPrefix = "exports."
)

// quoteStripper removes every quote character, not just the delimiters
var quoteStripper = strings.NewReplacer(`'`, "", `"`, "")

// ModuleAnalyzer extracts imports, requires and exports from one file's statements
type ModuleAnalyzer struct {
	resolver *resolver.Resolver
}

// NewModuleAnalyzer creates an analyzer. A nil resolver probes the real filesystem.
func NewModuleAnalyzer(r *resolver.Resolver) *ModuleAnalyzer {
	if r == nil {
		r = resolver.New(nil)
	}
	return &ModuleAnalyzer{resolver: r}
}

// Analyze builds the analysis result for the file at path
func (m *ModuleAnalyzer) Analyze(path string, tree syntax.Tree) *graph.AnalysisResult {
	kind := graph.NodeKindExternal
	if filepath.IsAbs(path) {
		kind = graph.NodeKindInternal
	}
	result := graph.NewAnalysisResult(kind)

	stmts := tree.Statements()

	for _, st := range stmts {
		switch st.Kind {
		case syntax.KindImport:
			ref := m.reference(path, st)
			if ref.Specifier == "" {
				continue
			}
			result.Imports.Add(ref)
		case syntax.KindRequire:
			if st.ArgCount != 1 || st.Source == "" {
				continue
			}
			// require('') is recorded with an empty specifier
			result.Requires.Add(m.reference(path, st))
		}
	}

	// export constructs first, CommonJS assignments second
	for _, st := range stmts {
		if st.Kind == syntax.KindExport {
			result.Exports = append(result.Exports, exportRecord(st))
		}
	}
	for _, st := range stmts {
		if st.Kind == syntax.KindMemberAssignment && IsExportTarget(st.Target) {
			result.Exports = append(result.Exports, exportRecord(st))
		}
	}

	return result
}

func (m *ModuleAnalyzer) reference(path string, st syntax.Statement) graph.DependencyReference {
	spec := StripQuotes(st.Source)
	ref := graph.DependencyReference{
		Specifier: spec,
		Location:  location(st.Position),
	}
	if graph.KindOf(spec) == graph.NodeKindInternal {
		if resolved, ok := m.resolver.Resolve(path, spec); ok {
			ref.ResolvedPath = resolved
		}
	}
	return ref
}

// StripQuotes removes all single and double quote characters from s
func StripQuotes(s string) string {
	return quoteStripper.Replace(s)
}

// IsExportTarget reports whether an assignment target is a CommonJS export
func IsExportTarget(target string) bool {
	return target == moduleExports || strings.HasPrefix(target, exportsPrefix)
}

func exportRecord(st syntax.Statement) graph.ExportRecord {
	return graph.ExportRecord{Code: st.Text, Location: location(st.Position)}
}

func location(p syntax.Position) graph.Location {
	return graph.Location{Line: p.Line, Column: p.Column}
}

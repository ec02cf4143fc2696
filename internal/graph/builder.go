package graph

// Builder folds per-file analysis results into a Graph.
// A Builder is owned by a single run and is not safe for concurrent use.
type Builder struct {
	graph *Graph
	files int
	refs  int
}

// NewBuilder creates a builder with an empty graph
func NewBuilder() *Builder {
	return &Builder{graph: New()}
}

// Add merges one file's analysis into the graph.
// The file itself is registered first, then every import and require reference
// in bucket order: imports.internal, imports.external, requires.internal, requires.external.
func (b *Builder) Add(file string, analysis *AnalysisResult) {
	b.files++
	b.graph.upsertNode(file, analysis.Kind)

	b.addRefs(file, analysis.Imports.Internal, NodeKindInternal, EdgeKindImport)
	b.addRefs(file, analysis.Imports.External, NodeKindExternal, EdgeKindImport)
	b.addRefs(file, analysis.Requires.Internal, NodeKindInternal, EdgeKindRequire)
	b.addRefs(file, analysis.Requires.External, NodeKindExternal, EdgeKindRequire)
}

func (b *Builder) addRefs(file string, refs []DependencyReference, kind NodeKind, edgeKind EdgeKind) {
	for _, ref := range refs {
		// Unresolved internal specifiers fall back to the raw text, so equal
		// relative specifiers from different directories share one node.
		target := ref.Target()
		b.graph.upsertNode(target, kind)
		b.graph.appendEdge(Edge{
			From:     file,
			To:       target,
			Kind:     edgeKind,
			Location: ref.Location,
		})
		b.refs++
	}
}

// Graph returns the graph built so far
func (b *Builder) Graph() *Graph {
	return b.graph
}

// BuildStats returns statistics about the built graph
type BuildStats struct {
	Files      int
	References int
	Nodes      int
	Edges      int
}

// Stats returns counts for the files added so far
func (b *Builder) Stats() BuildStats {
	return BuildStats{
		Files:      b.files,
		References: b.refs,
		Nodes:      b.graph.NodeCount(),
		Edges:      b.graph.EdgeCount(),
	}
}

// Fold builds a graph from analyses in the given order
func Fold(files []FileAnalysis) *Graph {
	b := NewBuilder()
	for _, f := range files {
		b.Add(f.Path, f.Analysis)
	}
	return b.Graph()
}

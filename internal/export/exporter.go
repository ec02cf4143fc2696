package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zheng/jsdeps/internal/display"
	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/storage"
)

// Format names an output format
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatDOT      Format = "dot"
	FormatMermaid  Format = "mermaid"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format
var Formats = []Format{FormatJSON, FormatYAML, FormatDOT, FormatMermaid, FormatMarkdown}

// ErrUnknownFormat is returned for a format not in Formats
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
}

// Exporter writes the stored dependency graph in several formats
type Exporter struct {
	db *storage.DB
}

// NewExporter creates a new exporter
func NewExporter(db *storage.DB) *Exporter {
	return &Exporter{db: db}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	ProjectName    string
	IncludeMermaid bool // markdown only
	TopN           int  // markdown only: rows in the hub table
	Now            func() time.Time
}

// DefaultExportOptions returns default export options
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		ProjectName:    "项目",
		IncludeMermaid: true,
		TopN:           20,
		Now:            time.Now,
	}
}

// Export writes the stored graph to w in the given format
func (e *Exporter) Export(w io.Writer, format Format, opts ExportOptions) error {
	payload, err := e.db.LoadPayload()
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}

	root := ""
	if run, err := e.db.LatestRun(); err == nil {
		root = run.Root
	}

	switch format {
	case FormatJSON:
		return WriteJSON(w, payload)
	case FormatYAML:
		return WriteYAML(w, payload)
	case FormatDOT:
		return WriteDOT(w, payload, root)
	case FormatMermaid:
		return WriteMermaid(w, payload, root)
	case FormatMarkdown:
		return e.writeMarkdown(w, payload, opts)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// WriteJSON writes the payload as indented JSON
func WriteJSON(w io.Writer, p graph.Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// WriteYAML writes the payload as YAML
func WriteYAML(w io.Writer, p graph.Payload) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

// diagramEdge is an edge with parallel occurrences collapsed
type diagramEdge struct {
	from, to int
	count    int
}

// collapse maps node ids to indexes and merges parallel edges, keeping first-seen order
func collapse(p graph.Payload) (map[string]int, []diagramEdge) {
	index := make(map[string]int, len(p.Nodes))
	for i, n := range p.Nodes {
		index[n.ID] = i
	}

	seen := make(map[[2]int]int)
	edges := make([]diagramEdge, 0, len(p.Edges))
	for _, e := range p.Edges {
		key := [2]int{index[e.Source], index[e.Target]}
		if i, ok := seen[key]; ok {
			edges[i].count++
			continue
		}
		seen[key] = len(edges)
		edges = append(edges, diagramEdge{from: key[0], to: key[1], count: 1})
	}
	return index, edges
}

// WriteDOT writes the payload as Graphviz DOT text. Parallel edges are merged
// and labelled with their occurrence count.
func WriteDOT(w io.Writer, p graph.Payload, root string) error {
	_, edges := collapse(p)

	var sb strings.Builder
	sb.WriteString("digraph dependencies {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, fontname=\"Helvetica\"];\n")
	for i, n := range p.Nodes {
		style := ""
		if n.Type == graph.NodeKindExternal {
			style = ", style=dashed"
		}
		fmt.Fprintf(&sb, "  n%d [label=%q%s];\n", i, display.ModuleLabel(n.ID, root), style)
	}
	for _, e := range edges {
		if e.count > 1 {
			fmt.Fprintf(&sb, "  n%d -> n%d [label=\"%d\"];\n", e.from, e.to, e.count)
			continue
		}
		fmt.Fprintf(&sb, "  n%d -> n%d;\n", e.from, e.to)
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteMermaid writes the payload as a Mermaid flowchart. Parallel edges are merged.
func WriteMermaid(w io.Writer, p graph.Payload, root string) error {
	_, edges := collapse(p)

	var sb strings.Builder
	sb.WriteString("flowchart LR\n")
	for i, n := range p.Nodes {
		label := mermaidEscape(display.ModuleLabel(n.ID, root))
		if n.Type == graph.NodeKindExternal {
			fmt.Fprintf(&sb, "    n%d([\"%s\"])\n", i, label)
			continue
		}
		fmt.Fprintf(&sb, "    n%d[\"%s\"]\n", i, label)
	}
	for _, e := range edges {
		fmt.Fprintf(&sb, "    n%d --> n%d\n", e.from, e.to)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func mermaidEscape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func (e *Exporter) writeMarkdown(w io.Writer, p graph.Payload, opts ExportOptions) error {
	stats, err := e.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	root := ""
	var skipped []storage.SkippedFile
	if run, err := e.db.LatestRun(); err == nil {
		root = run.Root
		if skipped, err = e.db.Skipped(run.ID); err != nil {
			return fmt.Errorf("failed to get skipped files: %w", err)
		}
	}

	fmt.Fprintf(w, "# %s依赖图谱\n\n", opts.ProjectName)
	fmt.Fprintf(w, "> 生成时间: %s\n", opts.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "> 模块: %d (内部 %d / 外部 %d) | 源文件: %d | 依赖边: %d | 导出: %d\n\n",
		stats.Modules, stats.Internal, stats.External, stats.Files, stats.Edges, stats.Exports)

	writeProjectStructure(w, p, root)

	if opts.IncludeMermaid && len(p.Nodes) > 0 {
		fmt.Fprintf(w, "## 依赖图\n\n```mermaid\n")
		if err := WriteMermaid(w, p, root); err != nil {
			return err
		}
		fmt.Fprintf(w, "```\n\n")
	}

	if err := e.writeHubTable(w, opts.TopN, root); err != nil {
		return err
	}
	if err := e.writeExternalPackages(w); err != nil {
		return err
	}

	if len(skipped) > 0 {
		fmt.Fprintf(w, "## 跳过的文件\n\n")
		fmt.Fprintf(w, "| 文件 | 原因 |\n|------|------|\n")
		for _, s := range skipped {
			fmt.Fprintf(w, "| %s | %s |\n", display.ModuleLabel(s.Path, root), s.Reason)
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

// writeProjectStructure writes the directory tree of the analyzed files
func writeProjectStructure(w io.Writer, p graph.Payload, root string) {
	dirs := make(map[string]bool)
	for _, n := range p.Nodes {
		if n.Type != graph.NodeKindInternal || !filepath.IsAbs(n.ID) {
			continue
		}
		rel := display.ModuleLabel(n.ID, root)
		if rel == n.ID {
			continue
		}
		parts := strings.Split(rel, "/")
		for i := 1; i < len(parts); i++ {
			dirs[strings.Join(parts[:i], "/")] = true
		}
	}
	if len(dirs) == 0 {
		return
	}

	sortedDirs := make([]string, 0, len(dirs))
	for dir := range dirs {
		sortedDirs = append(sortedDirs, dir)
	}
	sort.Strings(sortedDirs)

	fmt.Fprintf(w, "## 项目结构\n\n```\n")
	for _, dir := range sortedDirs {
		indent := strings.Count(dir, "/")
		prefix := strings.Repeat("│   ", indent)
		fmt.Fprintf(w, "%s├── %s/\n", prefix, filepath.Base(dir))
	}
	fmt.Fprintf(w, "```\n\n")
}

// writeHubTable writes the most depended-on modules
func (e *Exporter) writeHubTable(w io.Writer, limit int, root string) error {
	if limit <= 0 {
		return nil
	}
	hubs, err := e.db.TopDependedOn(limit)
	if err != nil {
		return fmt.Errorf("failed to get hubs: %w", err)
	}
	if len(hubs) == 0 {
		return nil
	}

	fmt.Fprintf(w, "## 核心模块 (被依赖最多)\n\n")
	fmt.Fprintf(w, "| 模块 | 类型 | 依赖方 | 引用次数 | 风险 |\n")
	fmt.Fprintf(w, "|------|------|--------|----------|------|\n")
	for _, h := range hubs {
		fmt.Fprintf(w, "| %s | %s | %d | %d | %s |\n",
			display.ModuleLabel(h.Module.Name, root), h.Module.Kind, h.Dependents, h.References, h.RiskLevel)
	}
	fmt.Fprintf(w, "\n")
	return nil
}

// writeExternalPackages lists external modules in name order
func (e *Exporter) writeExternalPackages(w io.Writer) error {
	ext, err := e.db.AllModules(graph.NodeKindExternal)
	if err != nil {
		return fmt.Errorf("failed to get external modules: %w", err)
	}
	if len(ext) == 0 {
		return nil
	}

	names := make([]string, 0, len(ext))
	for _, m := range ext {
		names = append(names, m.Name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "## 外部依赖\n\n")
	for _, n := range names {
		fmt.Fprintf(w, "- `%s`\n", n)
	}
	fmt.Fprintf(w, "\n")
	return nil
}

package display

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/zheng/jsdeps/internal/storage"
)

// ModuleLabel shortens a module id for display.
// Absolute paths under root become root-relative; everything else is returned unchanged.
// e.g., ("/repo/src/a.js", "/repo") -> "src/a.js"
func ModuleLabel(id, root string) string {
	if root == "" || !filepath.IsAbs(id) {
		return id
	}
	rel, err := filepath.Rel(root, id)
	if err != nil || strings.HasPrefix(rel, "..") {
		return id
	}
	return filepath.ToSlash(rel)
}

// Count formats an integer with thousands separators
func Count[T ~int | ~int64](n T) string {
	return humanize.Comma(int64(n))
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	return tbl
}

// RunSummary renders the outcome of an analysis run
func RunSummary(run *storage.Run, stats *storage.Stats, elapsed time.Duration) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"指标", "数量"})
	tbl.AppendRow(table.Row{"源文件", Count(run.FileCount)})
	tbl.AppendRow(table.Row{"跳过文件", Count(run.SkippedCount)})
	tbl.AppendRow(table.Row{"模块 (内部)", Count(stats.Internal)})
	tbl.AppendRow(table.Row{"模块 (外部)", Count(stats.External)})
	tbl.AppendRow(table.Row{"依赖边", Count(stats.Edges)})
	tbl.AppendRow(table.Row{"导出", Count(stats.Exports)})
	tbl.AppendFooter(table.Row{"耗时", elapsed.Round(time.Millisecond).String()})
	return tbl.Render()
}

// RunInfo describes when and where the stored graph was produced
func RunInfo(run *storage.Run) string {
	return fmt.Sprintf("%s · %s · run %s", run.Root, humanize.Time(run.CreatedAt), shortID(run.ID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ModuleTable renders modules with their kind
func ModuleTable(modules []*storage.Module, root string) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "模块", "类型", "源文件"})
	for i, m := range modules {
		file := ""
		if m.IsFile {
			file = "✓"
		}
		tbl.AppendRow(table.Row{i + 1, ModuleLabel(m.Name, root), m.Kind, file})
	}
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("共 %s 个", Count(len(modules))), "", ""})
	return tbl.Render()
}

// DependencyTable renders edge occurrences. When outgoing is true the target
// column is shown, otherwise the source.
func DependencyTable(deps []*storage.Dependency, root string, outgoing bool) string {
	tbl := newTable()
	other := "被依赖方"
	if !outgoing {
		other = "依赖方"
	}
	tbl.AppendHeader(table.Row{other, "方式", "位置"})
	for _, d := range deps {
		name := d.To
		loc := fmt.Sprintf("%d:%d", d.Line, d.Column)
		if !outgoing {
			name = d.From
			loc = fmt.Sprintf("%s:%d:%d", ModuleLabel(d.From, root), d.Line, d.Column)
		}
		tbl.AppendRow(table.Row{ModuleLabel(name, root), d.Kind, loc})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("共 %s 处", Count(len(deps))), "", ""})
	return tbl.Render()
}

// HubTable renders the most depended-on modules
func HubTable(hubs []*storage.Hub, root string) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "模块", "类型", "依赖方", "引用次数", "风险"})
	for i, h := range hubs {
		tbl.AppendRow(table.Row{i + 1, ModuleLabel(h.Module.Name, root), h.Module.Kind, Count(h.Dependents), Count(h.References), RiskBadge(h.RiskLevel)})
	}
	return tbl.Render()
}

// SkippedTable renders files a run could not analyze
func SkippedTable(skipped []storage.SkippedFile, root string) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"文件", "原因"})
	for _, s := range skipped {
		tbl.AppendRow(table.Row{ModuleLabel(s.Path, root), s.Reason})
	}
	return tbl.Render()
}

// ExportTable renders a file's export records
func ExportTable(exports []*storage.Export) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"位置", "代码"})
	for _, e := range exports {
		tbl.AppendRow(table.Row{fmt.Sprintf("%d:%d", e.Line, e.Column), firstLine(e.Code, 80)})
	}
	return tbl.Render()
}

// firstLine returns the first line of code, truncated to max runes
func firstLine(code string, max int) string {
	line, _, multi := strings.Cut(code, "\n")
	r := []rune(line)
	if len(r) > max {
		return string(r[:max]) + "…"
	}
	if multi {
		return line + " …"
	}
	return line
}

// RiskBadge decorates a risk level for terminal output
func RiskBadge(level string) string {
	switch level {
	case "critical":
		return "🔴 critical"
	case "high":
		return "🟠 high"
	case "medium":
		return "🟡 medium"
	default:
		return "🟢 low"
	}
}

// CalcTreeMaxWidth calculates the maximum label width and depth for alignment in a dependency tree.
func CalcTreeMaxWidth(tree []*storage.TreeNode, root string, maxWidth *int, currentDepth int, maxDepth *int) {
	if currentDepth > *maxDepth {
		*maxDepth = currentDepth
	}
	for _, node := range tree {
		w := len(ModuleLabel(node.Module.Name, root))
		if w > *maxWidth {
			*maxWidth = w
		}
		if len(node.Children) > 0 {
			CalcTreeMaxWidth(node.Children, root, maxWidth, currentDepth+1, maxDepth)
		}
	}
}

// FormatTree renders a dependency tree with box-drawing characters.
func FormatTree(tree []*storage.TreeNode, root, indent string, maxWidth, maxDepth, currentDepth int) string {
	var sb strings.Builder
	for i, node := range tree {
		isLast := i == len(tree)-1
		prefix := "├──"
		if isLast {
			prefix = "└──"
		}

		padding := maxWidth + (maxDepth-currentDepth)*4
		sb.WriteString(fmt.Sprintf("%s%s %-*s  %s\n", indent, prefix, padding, ModuleLabel(node.Module.Name, root), node.Module.Kind))

		if len(node.Children) > 0 {
			childIndent := indent + "│   "
			if isLast {
				childIndent = indent + "    "
			}
			sb.WriteString(FormatTree(node.Children, root, childIndent, maxWidth, maxDepth, currentDepth+1))
		}
	}
	return sb.String()
}

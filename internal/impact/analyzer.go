package impact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zheng/jsdeps/internal/storage"
)

// ErrAmbiguous is returned when a module name matches more than one stored module
var ErrAmbiguous = errors.New("ambiguous module name")

// Analyzer performs impact analysis on the module graph
type Analyzer struct {
	db *storage.DB
}

// NewAnalyzer creates a new impact analyzer
func NewAnalyzer(db *storage.DB) *Analyzer {
	return &Analyzer{db: db}
}

// ImpactReport represents the impact analysis of a module change
type ImpactReport struct {
	Target               *storage.Module   `json:"target"`
	DirectDependents     []*storage.Module `json:"direct_dependents"`
	IndirectDependents   []*storage.Module `json:"indirect_dependents"`
	DirectDependencies   []*storage.Module `json:"direct_dependencies"`
	IndirectDependencies []*storage.Module `json:"indirect_dependencies"`
}

// FindTarget looks a module up by exact id, falling back to a unique pattern match
func (a *Analyzer) FindTarget(name string) (*storage.Module, error) {
	target, err := a.db.GetModule(name)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// Try pattern matching if exact match fails
	modules, err := a.db.FindModules(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find module: %w", err)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("module %s: %w", name, storage.ErrNotFound)
	}
	if len(modules) > 1 && !betterMatch(modules[0], modules[1], name) {
		var names []string
		for _, m := range modules {
			names = append(names, m.Name)
		}
		return nil, fmt.Errorf("%w, found %d matches: %s", ErrAmbiguous, len(modules), strings.Join(names, ", "))
	}
	return modules[0], nil
}

// betterMatch reports whether a is a base-name match for name and b is not
func betterMatch(a, b *storage.Module, name string) bool {
	return baseName(a.Name) == name && baseName(b.Name) != name
}

// baseName strips directories and the extension; index files take their directory name
func baseName(module string) string {
	parts := strings.Split(module, "/")
	base := parts[len(parts)-1]
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	if base == "index" && len(parts) > 1 {
		return parts[len(parts)-2]
	}
	return base
}

// AnalyzeImpact analyzes the impact of changing a module
func (a *Analyzer) AnalyzeImpact(name string, upstreamDepth, downstreamDepth int) (*ImpactReport, error) {
	target, err := a.FindTarget(name)
	if err != nil {
		return nil, err
	}
	return a.analyze(target, upstreamDepth, downstreamDepth)
}

func (a *Analyzer) analyze(target *storage.Module, upstreamDepth, downstreamDepth int) (*ImpactReport, error) {
	var err error
	report := &ImpactReport{
		Target: target,
	}

	report.DirectDependents, err = a.db.DirectDependents(target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct dependents: %w", err)
	}

	if upstreamDepth != 1 {
		all, err := a.db.UpstreamDependents(target.ID, upstreamDepth)
		if err != nil {
			return nil, fmt.Errorf("failed to get upstream dependents: %w", err)
		}
		report.IndirectDependents = exclude(all, report.DirectDependents)
	}

	report.DirectDependencies, err = a.db.DirectDependencies(target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct dependencies: %w", err)
	}

	if downstreamDepth != 1 {
		all, err := a.db.DownstreamDependencies(target.ID, downstreamDepth)
		if err != nil {
			return nil, fmt.Errorf("failed to get downstream dependencies: %w", err)
		}
		report.IndirectDependencies = exclude(all, report.DirectDependencies)
	}

	return report, nil
}

// exclude returns the modules of all that are not in direct
func exclude(all, direct []*storage.Module) []*storage.Module {
	directMap := make(map[int64]bool, len(direct))
	for _, m := range direct {
		directMap[m.ID] = true
	}
	out := make([]*storage.Module, 0)
	for _, m := range all {
		if !directMap[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// ChangeReport aggregates the impact of a set of changed files
type ChangeReport struct {
	Reports  []*ImpactReport   `json:"reports"`
	Unknown  []string          `json:"unknown"`  // 变更文件不在图中（新文件或被跳过）
	Affected []*storage.Module `json:"affected"` // 所有受影响模块（去重）
}

// AnalyzeChanges maps changed files to impact reports.
// Files missing from the stored graph are listed in Unknown.
func (a *Analyzer) AnalyzeChanges(paths []string, upstreamDepth int) (*ChangeReport, error) {
	out := &ChangeReport{
		Reports:  make([]*ImpactReport, 0, len(paths)),
		Unknown:  make([]string, 0),
		Affected: make([]*storage.Module, 0),
	}
	seen := make(map[int64]bool)

	for _, path := range paths {
		target, err := a.db.GetModule(path)
		if errors.Is(err, storage.ErrNotFound) {
			out.Unknown = append(out.Unknown, path)
			continue
		}
		if err != nil {
			return nil, err
		}

		report, err := a.analyze(target, upstreamDepth, 1)
		if err != nil {
			return nil, err
		}
		out.Reports = append(out.Reports, report)

		for _, group := range [][]*storage.Module{report.DirectDependents, report.IndirectDependents} {
			for _, m := range group {
				if !seen[m.ID] {
					seen[m.ID] = true
					out.Affected = append(out.Affected, m)
				}
			}
		}
	}

	return out, nil
}

// FormatMarkdown formats the impact report as markdown
func (r *ImpactReport) FormatMarkdown() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## 变更影响分析: %s\n\n", shortPath(r.Target.Name)))
	sb.WriteString(fmt.Sprintf("**模块:** `%s` (%s)\n\n", r.Target.Name, r.Target.Kind))

	writeSection(&sb, "### 直接依赖方 (需检查是否需要同步修改)", "_无直接依赖方_", r.DirectDependents, true)
	writeSection(&sb, "### 间接依赖方 (可能受影响)", "", r.IndirectDependents, false)
	writeSection(&sb, "### 下游依赖 (本模块引用的)", "_无下游依赖_", r.DirectDependencies, true)
	writeSection(&sb, "### 间接下游依赖", "", r.IndirectDependencies, false)

	return sb.String()
}

func writeSection(sb *strings.Builder, title, empty string, modules []*storage.Module, always bool) {
	if len(modules) == 0 {
		if always {
			sb.WriteString(title + "\n\n" + empty + "\n\n")
		}
		return
	}
	sb.WriteString(title + "\n\n")
	sb.WriteString("| 模块 | 类型 |\n")
	sb.WriteString("|------|------|\n")
	for _, m := range modules {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", m.Name, m.Kind))
	}
	sb.WriteString("\n")
}

// FormatTree formats the impact report as a tree structure
func (r *ImpactReport) FormatTree() string {
	var sb strings.Builder

	dependents := append(append([]*storage.Module{}, r.DirectDependents...), r.IndirectDependents...)
	dependencies := append(append([]*storage.Module{}, r.DirectDependencies...), r.IndirectDependencies...)

	sb.WriteString("📍 当前模块\n")
	sb.WriteString(fmt.Sprintf("%s  (%s)\n\n", shortPath(r.Target.Name), r.Target.Kind))

	writeBranch(&sb, "⬆️ 依赖方", dependents)
	sb.WriteString("\n")
	writeBranch(&sb, "⬇️ 依赖", dependencies)

	return sb.String()
}

func writeBranch(sb *strings.Builder, title string, modules []*storage.Module) {
	if len(modules) == 0 {
		sb.WriteString(title + "\n")
		sb.WriteString("└── (无)\n")
		return
	}
	sb.WriteString(fmt.Sprintf("%s (共 %d 个)\n", title, len(modules)))
	for i, m := range modules {
		prefix := "├──"
		if i == len(modules)-1 {
			prefix = "└──"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", prefix, shortPath(m.Name)))
	}
}

// shortPath extracts the last two path components
// e.g., "/repo/src/utils/index.js" -> "utils/index.js"
func shortPath(fullPath string) string {
	parts := strings.Split(fullPath, "/")
	if len(parts) <= 2 {
		return fullPath
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// Summary returns a brief summary of the impact report
func (r *ImpactReport) Summary() string {
	return fmt.Sprintf(
		"Target: %s, Direct Dependents: %d, Indirect Dependents: %d, Direct Dependencies: %d, Indirect Dependencies: %d",
		shortPath(r.Target.Name),
		len(r.DirectDependents),
		len(r.IndirectDependents),
		len(r.DirectDependencies),
		len(r.IndirectDependencies),
	)
}

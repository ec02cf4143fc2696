package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zheng/jsdeps/internal/display"
	"github.com/zheng/jsdeps/internal/export"
	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/impact"
	"github.com/zheng/jsdeps/internal/storage"
)

// Tool names.
const (
	ToolNameImpact       = "impact"
	ToolNameDependents   = "dependents"
	ToolNameDependencies = "dependencies"
	ToolNameSearch       = "search"
	ToolNameList         = "list"
	ToolNameMermaid      = "mermaid"
)

var (
	errEmptyModule  = errors.New("需要提供模块名称")
	errEmptyPattern = errors.New("需要提供搜索模式")
)

// ImpactInput is the input schema for the impact tool.
type ImpactInput struct {
	Module string `json:"module"          jsonschema:"模块路径或包名（支持模糊匹配，如 utils/date.js）"`
	Limit  int    `json:"limit,omitempty" jsonschema:"每个分类最多返回的模块数量，默认 50"`
}

// TreeInput is the input schema for the dependents and dependencies tools.
type TreeInput struct {
	Module string `json:"module"          jsonschema:"模块路径或包名（支持模糊匹配，如 utils/date.js）"`
	Depth  int    `json:"depth,omitempty" jsonschema:"递归查询深度，0表示无限"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Pattern string `json:"pattern"         jsonschema:"搜索模式"`
	Limit   int    `json:"limit,omitempty" jsonschema:"最多返回的模块数量，默认 50"`
}

// ListInput is the input schema for the list tool.
type ListInput struct {
	Kind   string `json:"kind,omitempty"   jsonschema:"模块类型：internal（项目文件）、external（第三方包），默认全部"`
	Limit  int    `json:"limit,omitempty"  jsonschema:"最多返回的模块数量，默认 50"`
	Offset int    `json:"offset,omitempty" jsonschema:"跳过前N个模块，用于分页，默认 0"`
}

// MermaidInput is the input schema for the mermaid tool.
type MermaidInput struct {
	Module    string `json:"module"              jsonschema:"模块路径或包名（支持模糊匹配，如 utils/date.js）"`
	Direction string `json:"direction,omitempty" jsonschema:"方向：upstream（上游）、downstream（下游）、both（双向）"`
	Depth     int    `json:"depth,omitempty"     jsonschema:"递归深度，默认2"`
}

// ToolOutput is the structured output of every tool.
type ToolOutput struct {
	Data any `json:"data"`
}

func textResult(text string, data any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}, ToolOutput{Data: data}, nil
}

// errorResult reports err to the client as a failed tool call
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	text := fmt.Sprintf("错误：%v", err)
	if errors.Is(err, storage.ErrNotFound) {
		text += "\n\n" + refreshHint
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		IsError: true,
	}, ToolOutput{}, nil
}

const refreshHint = "💡 提示：如果代码最近有更新，请运行以下命令更新数据库：\n```bash\njsdeps analyze\n```"

// orDefault returns v, or def when v is below floor
func orDefault(v, def, floor int) int {
	if v < floor {
		return def
	}
	return v
}

// root returns the project root of the latest run, used to shorten labels
func (s *Server) root() string {
	run, err := s.db.LatestRun()
	if err != nil {
		return ""
	}
	return run.Root
}

func (s *Server) handleImpact(_ context.Context, _ *mcpsdk.CallToolRequest, in ImpactInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	name := strings.TrimSpace(in.Module)
	if name == "" {
		return errorResult(errEmptyModule)
	}
	limit := orDefault(in.Limit, defaultLimit, 1)

	report, err := impact.NewAnalyzer(s.db).AnalyzeImpact(name, 3, 2)
	if err != nil {
		return errorResult(err)
	}

	return textResult(formatImpactWithLimit(report, limit, s.root()), report)
}

func formatImpactWithLimit(report *impact.ImpactReport, limit int, root string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## 变更影响分析: %s\n\n", display.ModuleLabel(report.Target.Name, root))
	fmt.Fprintf(&sb, "**模块:** `%s` (%s)\n\n", report.Target.Name, report.Target.Kind)

	writeModules(&sb, "### 直接依赖方 (需检查是否需要同步修改)", "_无直接依赖方_", report.DirectDependents, limit, root)
	writeModules(&sb, "### 间接依赖方 (可能受影响)", "", report.IndirectDependents, limit, root)
	writeModules(&sb, "### 下游依赖 (本模块引用的)", "_无下游依赖_", report.DirectDependencies, limit, root)
	writeModules(&sb, "### 间接下游依赖", "", report.IndirectDependencies, limit, root)

	return sb.String()
}

// writeModules renders a markdown table of at most limit modules.
// Empty sections are skipped when no placeholder is given.
func writeModules(sb *strings.Builder, title, empty string, modules []*storage.Module, limit int, root string) {
	if len(modules) == 0 && empty == "" {
		return
	}
	sb.WriteString(title + "\n\n")
	if len(modules) == 0 {
		sb.WriteString(empty + "\n\n")
		return
	}

	total := len(modules)
	if total > limit {
		modules = modules[:limit]
	}
	sb.WriteString("| 模块 | 类型 |\n")
	sb.WriteString("|------|------|\n")
	for _, m := range modules {
		fmt.Fprintf(sb, "| %s | %s |\n", display.ModuleLabel(m.Name, root), m.Kind)
	}
	if total > limit {
		fmt.Fprintf(sb, "\n_（共 %d 个，仅显示前 %d 个）_\n", total, limit)
	}
	sb.WriteString("\n")
}

func (s *Server) handleDependents(_ context.Context, _ *mcpsdk.CallToolRequest, in TreeInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return s.tree(in, true)
}

func (s *Server) handleDependencies(_ context.Context, _ *mcpsdk.CallToolRequest, in TreeInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return s.tree(in, false)
}

func (s *Server) tree(in TreeInput, upstream bool) (*mcpsdk.CallToolResult, ToolOutput, error) {
	name := strings.TrimSpace(in.Module)
	if name == "" {
		return errorResult(errEmptyModule)
	}
	depth := orDefault(in.Depth, 0, 0)

	target, err := impact.NewAnalyzer(s.db).FindTarget(name)
	if err != nil {
		return errorResult(err)
	}

	var tree []*storage.TreeNode
	title := "下游依赖"
	if upstream {
		title = "上游依赖方"
		tree, err = s.db.DependentTree(target.ID, depth)
	} else {
		tree, err = s.db.DependencyTree(target.ID, depth)
	}
	if err != nil {
		return errorResult(err)
	}

	root := s.root()
	label := display.ModuleLabel(target.Name, root)
	if len(tree) == 0 {
		return textResult(fmt.Sprintf("## %s: %s\n\n_无_\n", title, label), tree)
	}

	maxWidth, maxDepth := 0, 0
	display.CalcTreeMaxWidth(tree, root, &maxWidth, 0, &maxDepth)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s: %s\n\n```\n%s\n", title, label, label)
	sb.WriteString(display.FormatTree(tree, root, "", maxWidth, maxDepth, 0))
	sb.WriteString("```\n")
	return textResult(sb.String(), tree)
}

func (s *Server) handleSearch(_ context.Context, _ *mcpsdk.CallToolRequest, in SearchInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	pattern := strings.TrimSpace(in.Pattern)
	if pattern == "" {
		return errorResult(errEmptyPattern)
	}
	limit := orDefault(in.Limit, defaultLimit, 1)

	modules, err := s.db.FindModules(pattern)
	if err != nil {
		return errorResult(err)
	}
	if len(modules) == 0 {
		return textResult(fmt.Sprintf("未找到匹配 '%s' 的模块\n\n%s", pattern, refreshHint), modules)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## 搜索结果：%s\n\n找到 %d 个匹配", pattern, len(modules))
	if len(modules) > limit {
		fmt.Fprintf(&sb, "（显示前 %d 个）", limit)
		modules = modules[:limit]
	}
	sb.WriteString("\n\n")
	writeModuleRows(&sb, modules, s.root())

	return textResult(sb.String(), modules)
}

func (s *Server) handleList(_ context.Context, _ *mcpsdk.CallToolRequest, in ListInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	limit := orDefault(in.Limit, defaultLimit, 1)
	offset := orDefault(in.Offset, 0, 0)

	var kind graph.NodeKind
	switch k := strings.TrimSpace(in.Kind); k {
	case "":
	case string(graph.NodeKindInternal), string(graph.NodeKindExternal):
		kind = graph.NodeKind(k)
	default:
		return errorResult(fmt.Errorf("未知的模块类型 %q", k))
	}

	modules, err := s.db.AllModules(kind)
	if err != nil {
		return errorResult(err)
	}
	if len(modules) == 0 {
		return textResult("项目中没有模块", modules)
	}

	total := len(modules)
	if offset >= total {
		return textResult(fmt.Sprintf("偏移量 %d 超出范围（共 %d 个模块）", offset, total), nil)
	}
	end := min(offset+limit, total)
	page := modules[offset:end]

	var sb strings.Builder
	fmt.Fprintf(&sb, "## 模块列表\n\n共 %d 个模块，显示第 %d-%d 个\n\n", total, offset+1, end)
	writeModuleRows(&sb, page, s.root())
	if end < total {
		fmt.Fprintf(&sb, "\n_使用 offset=%d 查看下一页_\n", end)
	}

	return textResult(sb.String(), page)
}

func writeModuleRows(sb *strings.Builder, modules []*storage.Module, root string) {
	sb.WriteString("| 模块 | 类型 | 文件 |\n")
	sb.WriteString("|------|------|------|\n")
	for _, m := range modules {
		file := ""
		if m.IsFile {
			file = "✓"
		}
		fmt.Fprintf(sb, "| %s | %s | %s |\n", display.ModuleLabel(m.Name, root), m.Kind, file)
	}
}

func (s *Server) handleMermaid(_ context.Context, _ *mcpsdk.CallToolRequest, in MermaidInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	name := strings.TrimSpace(in.Module)
	if name == "" {
		return errorResult(errEmptyModule)
	}
	direction := strings.TrimSpace(in.Direction)
	if direction == "" {
		direction = "both"
	}
	if direction != "upstream" && direction != "downstream" && direction != "both" {
		return errorResult(fmt.Errorf("未知的方向 %q", direction))
	}
	depth := orDefault(in.Depth, 2, 1)

	target, err := impact.NewAnalyzer(s.db).FindTarget(name)
	if err != nil {
		return errorResult(err)
	}

	keep := map[string]bool{target.Name: true}
	if direction != "downstream" {
		modules, err := s.db.UpstreamDependents(target.ID, depth)
		if err != nil {
			return errorResult(err)
		}
		for _, m := range modules {
			keep[m.Name] = true
		}
	}
	if direction != "upstream" {
		modules, err := s.db.DownstreamDependencies(target.ID, depth)
		if err != nil {
			return errorResult(err)
		}
		for _, m := range modules {
			keep[m.Name] = true
		}
	}

	payload, err := s.db.LoadPayload()
	if err != nil {
		return errorResult(err)
	}
	sub := subgraph(payload, keep)

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	if err := export.WriteMermaid(&sb, sub, s.root()); err != nil {
		return errorResult(err)
	}
	sb.WriteString("```\n")
	return textResult(sb.String(), sub)
}

// subgraph keeps the nodes in keep and the edges between them, in payload order
func subgraph(p graph.Payload, keep map[string]bool) graph.Payload {
	out := graph.Payload{
		Nodes: make([]graph.PayloadNode, 0, len(keep)),
		Edges: make([]graph.PayloadEdge, 0),
	}
	for _, n := range p.Nodes {
		if keep[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range p.Edges {
		if keep[e.Source] && keep[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

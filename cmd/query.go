package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zheng/jsdeps/internal/analyzer"
	"github.com/zheng/jsdeps/internal/display"
	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/impact"
	"github.com/zheng/jsdeps/internal/storage"
)

func depsCmd() *cobra.Command {
	return treeCmd(
		"deps <module>",
		"查询模块引用的下游依赖",
		"⬇️ 依赖",
		true,
	)
}

func dependentsCmd() *cobra.Command {
	return treeCmd(
		"dependents <module>",
		"查询依赖该模块的上游模块",
		"⬆️ 依赖方",
		false,
	)
}

// treeCmd builds deps/dependents, which differ only in direction
func treeCmd(use, short, title string, outgoing bool) *cobra.Command {
	var depth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			target, err := resolveTarget(cmd, db, args[0], selectN)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			root := projectRoot(db)

			switch format {
			case "json", "table":
				var edges []*storage.Dependency
				if outgoing {
					edges, err = db.Dependencies(target.ID)
				} else {
					edges, err = db.Dependents(target.ID)
				}
				if err != nil {
					return fmt.Errorf("查询失败: %w", err)
				}
				if format == "json" {
					return outputJSON(out, edges)
				}
				fmt.Fprintln(out, display.DependencyTable(edges, root, outgoing))
			case "text":
				var tree []*storage.TreeNode
				if outgoing {
					tree, err = db.DependencyTree(target.ID, depth)
				} else {
					tree, err = db.DependentTree(target.ID, depth)
				}
				if err != nil {
					return fmt.Errorf("获取依赖树失败: %w", err)
				}

				fmt.Fprintln(out, "📍 当前模块")
				fmt.Fprintf(out, "%s  (%s)\n\n", display.ModuleLabel(target.Name, root), target.Kind)
				printTree(out, title, tree, root, depth)
			default:
				return fmt.Errorf("未知的输出格式: %s", format)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 7, "递归深度 (0=无限)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/table/json)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个模块时，直接选择第N个（跳过交互提示）")

	return cmd
}

func impactCmd() *cobra.Command {
	var upstreamDepth int
	var downstreamDepth int
	var format string
	var selectN int
	var useGit bool
	var gitBase string
	var remote bool

	cmd := &cobra.Command{
		Use:   "impact [module]",
		Short: "分析模块变更的影响范围",
		Long: `分析修改一个模块会影响哪些模块。

示例：
  jsdeps impact src/utils/date.js     # 单个模块
  jsdeps impact --git                 # 所有未提交的变更文件
  jsdeps impact --git --base main     # 与 main 分支对比
  jsdeps impact --git --remote        # 与远程同分支对比`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !useGit && len(args) == 0 {
				return fmt.Errorf("请提供模块名称，或使用 --git 分析 git 变更")
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if useGit {
				return runGitImpact(cmd, db, gitBase, remote, upstreamDepth, format)
			}

			target, err := resolveTarget(cmd, db, args[0], selectN)
			if err != nil {
				return err
			}
			report, err := impact.NewAnalyzer(db).AnalyzeImpact(target.Name, upstreamDepth, downstreamDepth)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return outputJSON(out, report)
			case "markdown":
				fmt.Fprint(out, report.FormatMarkdown())
			case "text":
				root := projectRoot(db)
				upstreamTree, err := db.DependentTree(target.ID, upstreamDepth)
				if err != nil {
					return fmt.Errorf("获取上游依赖树失败: %w", err)
				}
				downstreamTree, err := db.DependencyTree(target.ID, downstreamDepth)
				if err != nil {
					return fmt.Errorf("获取下游依赖树失败: %w", err)
				}

				fmt.Fprintln(out, "📍 当前模块")
				fmt.Fprintf(out, "%s  (%s)\n\n", display.ModuleLabel(target.Name, root), target.Kind)
				printTree(out, "⬆️ 依赖方", upstreamTree, root, upstreamDepth)
				fmt.Fprintln(out)
				printTree(out, "⬇️ 依赖", downstreamTree, root, downstreamDepth)
				fmt.Fprintln(out)
				fmt.Fprintln(out, report.Summary())
			default:
				return fmt.Errorf("未知的输出格式: %s", format)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&upstreamDepth, "upstream-depth", 7, "上游递归深度")
	cmd.Flags().IntVar(&downstreamDepth, "downstream-depth", 2, "下游递归深度")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个模块时，直接选择第N个（跳过交互提示）")
	cmd.Flags().BoolVar(&useGit, "git", false, "分析 git 变更文件的影响")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git 比较基准 (默认 HEAD，即未提交的变更)")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "与远程同分支对比 (origin/<当前分支>)")

	return cmd
}

func runGitImpact(cmd *cobra.Command, db *storage.DB, base string, remote bool, upstreamDepth int, format string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	root := projectRoot(db)
	if root == "" {
		return fmt.Errorf("数据库中没有分析结果，请先运行 jsdeps analyze")
	}

	if remote {
		branch, err := analyzer.GetRemoteTrackingBranch(ctx, root)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "警告: 无法获取远程分支: %v，将使用 %s\n", err, base)
		} else {
			base = branch
			fmt.Fprintf(cmd.ErrOrStderr(), "对比远程分支: %s\n", branch)
		}
	}

	changes, err := analyzer.GetGitChanges(ctx, root, base)
	if err != nil {
		return fmt.Errorf("获取 git 变更失败: %w", err)
	}
	if !changes.HasChanges() {
		fmt.Fprintln(out, "没有检测到 JS/TS 文件变更")
		return nil
	}

	report, err := impact.NewAnalyzer(db).AnalyzeChanges(changes.ChangedFiles, upstreamDepth)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return outputJSON(out, report)
	case "markdown":
		for _, r := range report.Reports {
			fmt.Fprint(out, r.FormatMarkdown())
		}
	default:
		fmt.Fprintf(out, "检测到变更: %s\n\n", changes)
		for _, r := range report.Reports {
			fmt.Fprintln(out, r.Summary())
		}
		if len(report.Unknown) > 0 {
			fmt.Fprintln(out, "\n未收录的文件 (新文件或被跳过，需重新 analyze):")
			for _, p := range report.Unknown {
				fmt.Fprintf(out, "  - %s\n", display.ModuleLabel(p, root))
			}
		}
		fmt.Fprintf(out, "\n受影响模块 (共 %d 个):\n", len(report.Affected))
		fmt.Fprintln(out, display.ModuleTable(report.Affected, root))
	}

	return nil
}

func listCmd() *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出所有模块",
		RunE: func(cmd *cobra.Command, args []string) error {
			var nodeKind graph.NodeKind
			switch kind {
			case "", "all":
			case string(graph.NodeKindInternal), string(graph.NodeKindExternal):
				nodeKind = graph.NodeKind(kind)
			default:
				return fmt.Errorf("未知的模块类型: %s (internal/external)", kind)
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			modules, err := db.AllModules(nodeKind)
			if err != nil {
				return fmt.Errorf("查询失败: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(modules) == 0 {
				fmt.Fprintln(out, "没有模块，请先运行 jsdeps analyze")
				return nil
			}

			total := len(modules)
			if limit > 0 && total > limit {
				modules = modules[:limit]
			}
			fmt.Fprintln(out, display.ModuleTable(modules, projectRoot(db)))
			if len(modules) < total {
				fmt.Fprintf(out, "... 还有 %s 个模块\n", display.Count(total-len(modules)))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "模块类型 (internal/external，默认全部)")
	cmd.Flags().IntVar(&limit, "limit", 0, "限制显示数量 (0=全部)")

	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "按路径片段搜索模块",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			modules, err := db.FindModules(args[0])
			if err != nil {
				return fmt.Errorf("搜索失败: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(modules) == 0 {
				fmt.Fprintln(out, "未找到匹配的模块")
				return nil
			}
			fmt.Fprintln(out, display.ModuleTable(modules, projectRoot(db)))

			return nil
		},
	}

	return cmd
}

func exportsCmd() *cobra.Command {
	var selectN int

	cmd := &cobra.Command{
		Use:   "exports <file>",
		Short: "查看文件的导出语句",
		Long: `列出文件中的 export 语句与 CommonJS 导出赋值
(module.exports = ... / exports.x = ...)，按出现顺序。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			name := args[0]
			if abs, err := filepath.Abs(name); err == nil {
				if _, err := db.GetModule(abs); err == nil {
					name = abs
				}
			}

			target, err := resolveTarget(cmd, db, name, selectN)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			label := display.ModuleLabel(target.Name, projectRoot(db))
			if !target.IsFile {
				fmt.Fprintf(out, "%s 不是已分析的源文件\n", label)
				return nil
			}

			exports, err := db.ExportsOf(target.ID)
			if err != nil {
				return fmt.Errorf("查询失败: %w", err)
			}
			if len(exports) == 0 {
				fmt.Fprintf(out, "%s 没有导出\n", label)
				return nil
			}

			fmt.Fprintf(out, "%s (共 %d 个导出)\n", label, len(exports))
			fmt.Fprintln(out, display.ExportTable(exports))
			return nil
		},
	}

	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个模块时，直接选择第N个（跳过交互提示）")

	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/jsdeps/internal/display"
	"github.com/zheng/jsdeps/internal/storage"
)

func hubsCmd() *cobra.Command {
	var limit int
	var selectN int

	cmd := &cobra.Command{
		Use:     "hubs [module]",
		Aliases: []string{"risk"},
		Short:   "被依赖最多的模块与变更风险",
		Long: `按依赖方数量（不同的引用模块数）排行，评估修改模块的风险。

风险等级说明：
  - critical: 依赖方 >= 50
  - high:     依赖方 >= 20
  - medium:   依赖方 >= 5
  - low:      其他

示例：
  jsdeps hubs                  # 显示被依赖最多的模块
  jsdeps hubs --limit 50       # 显示前 50 个
  jsdeps hubs src/api/client   # 查看单个模块的风险`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = cfg.Query.Limit
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			root := projectRoot(db)

			if len(args) == 0 {
				hubs, err := db.TopDependedOn(limit)
				if err != nil {
					return fmt.Errorf("查询失败: %w", err)
				}
				if len(hubs) == 0 {
					fmt.Fprintln(out, "项目中没有依赖关系")
					return nil
				}

				fmt.Fprintf(out, "被依赖最多的模块 (Top %d)\n\n", limit)
				fmt.Fprintln(out, display.HubTable(hubs, root))
				fmt.Fprintln(out, "\n💡 使用 jsdeps hubs <模块> 查看详细分析")
				return nil
			}

			target, err := resolveTarget(cmd, db, args[0], selectN)
			if err != nil {
				return err
			}
			dependents, err := db.DirectDependents(target.ID)
			if err != nil {
				return fmt.Errorf("计算风险失败: %w", err)
			}
			refs, err := db.Dependents(target.ID)
			if err != nil {
				return fmt.Errorf("计算风险失败: %w", err)
			}

			level := storage.CalculateRiskLevel(len(dependents))
			fmt.Fprintf(out, "## 变更风险分析: %s\n\n", display.ModuleLabel(target.Name, root))
			fmt.Fprintf(out, "**模块:** `%s` (%s)\n\n", target.Name, target.Kind)
			fmt.Fprintf(out, "### 风险等级: %s\n\n", display.RiskBadge(level))
			fmt.Fprintf(out, "依赖方: %d\n", len(dependents))
			fmt.Fprintf(out, "引用次数: %d\n", len(refs))

			fmt.Fprintln(out, "\n**建议:**")
			for _, line := range riskAdvice(level) {
				fmt.Fprintf(out, "- %s\n", line)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "显示数量 (默认取配置 query.limit)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个模块时，直接选择第N个（跳过交互提示）")

	return cmd
}

func riskAdvice(level string) []string {
	switch level {
	case "critical":
		return []string{
			"⚠️  此模块被大量引用，修改需极其谨慎",
			"建议先运行 `jsdeps impact` 查看完整影响范围",
			"修改前确保有充分的测试覆盖",
			"考虑新增导出而非修改现有导出",
		}
	case "high":
		return []string{
			"⚠️  此模块依赖方较多，修改需谨慎",
			"建议运行 `jsdeps dependents` 查看依赖方",
			"确保修改后同步更新所有引用处",
		}
	case "medium":
		return []string{
			"正常风险，注意检查引用处是否需要同步修改",
			"可运行 `jsdeps dependents` 查看具体依赖方",
		}
	default:
		return []string{
			"低风险，影响范围较小",
			"正常修改即可",
		}
	}
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zheng/jsdeps/internal/export"
)

func exportCmd() *cobra.Command {
	var outputFile string
	var format string
	var noMermaid bool
	var top int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出依赖图",
		Long: `导出数据库中的依赖图。

格式：
  json      节点与边 ({"nodes":[...],"edges":[...]})
  yaml      同 json 结构
  dot       Graphviz 文本
  mermaid   Mermaid 流程图
  markdown  项目依赖文档（统计、热点模块、外部包、跳过文件），可作为 AI 编码上下文`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = cfg.Export.Format
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			opts := export.DefaultExportOptions()
			opts.IncludeMermaid = !noMermaid
			if top > 0 {
				opts.TopN = top
			}
			if root := projectRoot(db); root != "" {
				opts.ProjectName = filepath.Base(root)
			}

			var w io.Writer = cmd.OutOrStdout()
			if outputFile != "" && outputFile != "-" {
				file, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("创建输出文件失败: %w", err)
				}
				defer file.Close()
				w = file
			}

			if err := export.NewExporter(db).Export(w, f, opts); err != nil {
				return fmt.Errorf("导出失败: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "输出文件路径 (默认输出到 stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "导出格式 (json/yaml/dot/mermaid/markdown，默认取配置 export.format)")
	cmd.Flags().BoolVar(&noMermaid, "no-mermaid", false, "markdown 中不生成 Mermaid 图表")
	cmd.Flags().IntVar(&top, "top", 0, "markdown 热点模块表的行数")

	return cmd
}

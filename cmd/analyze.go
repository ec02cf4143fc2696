package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/jsdeps/internal/display"
	"github.com/zheng/jsdeps/internal/export"
	"github.com/zheng/jsdeps/internal/logging"
	"github.com/zheng/jsdeps/internal/pipeline"
)

func analyzeCmd() *cobra.Command {
	var outputPath string
	var asJSON bool
	var showSkipped bool

	cmd := &cobra.Command{
		Use:   "analyze [project-path]",
		Short: "分析 JS/TS 项目并构建模块依赖图",
		Long: `扫描项目中的 .js/.ts/.jsx/.tsx 文件（跳过 node_modules 与隐藏目录），
提取 import、require 与 export，构建依赖图并写入数据库。
每次分析都会替换数据库中已有的图。

示例：
  jsdeps analyze                 # 分析当前目录
  jsdeps analyze ./web -o web.db # 指定数据库路径
  jsdeps analyze . --json        # 同时输出 JSON 图`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}

			if outputPath != "" {
				DbPath = outputPath
			}

			provider, err := newProvider()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			logger := logging.FromContext(ctx)
			start := time.Now()
			progress := logging.NewProgress(logger)

			result, err := pipeline.Run(ctx, projectPath, provider, pipeline.WithLogger(logger))
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("项目目录不存在: %s", projectPath)
				}
				return fmt.Errorf("分析失败: %w", err)
			}

			runID, err := db.SaveResult(result)
			if err != nil {
				return fmt.Errorf("写入数据库失败: %w", err)
			}
			progress.Done("analysis stored", "db", DbPath, "run", runID)

			out := cmd.OutOrStdout()
			if asJSON {
				return export.WriteJSON(out, result.Graph.Payload())
			}

			run, err := db.LatestRun()
			if err != nil {
				return fmt.Errorf("读取运行记录失败: %w", err)
			}
			stats, err := db.GetStats()
			if err != nil {
				return fmt.Errorf("查询统计失败: %w", err)
			}

			fmt.Fprintf(out, "写入数据库: %s\n", DbPath)
			fmt.Fprintln(out, display.RunSummary(run, stats, time.Since(start)))

			if run.SkippedCount > 0 {
				if !showSkipped {
					fmt.Fprintf(out, "\n%d 个文件被跳过，使用 --show-skipped 查看\n", run.SkippedCount)
					return nil
				}
				skipped, err := db.Skipped(run.ID)
				if err != nil {
					return fmt.Errorf("查询跳过文件失败: %w", err)
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, display.SkippedTable(skipped, run.Root))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "输出数据库路径")
	cmd.Flags().BoolVar(&asJSON, "json", false, "输出图的 JSON 表示 (nodes/edges)")
	cmd.Flags().BoolVar(&showSkipped, "show-skipped", false, "列出解析失败或为空的文件")

	return cmd
}

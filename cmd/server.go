package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/jsdeps/internal/display"
	"github.com/zheng/jsdeps/internal/logging"
	"github.com/zheng/jsdeps/internal/mcp"
	"github.com/zheng/jsdeps/internal/pipeline"
	"github.com/zheng/jsdeps/internal/watcher"
	"github.com/zheng/jsdeps/internal/web"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "启动 MCP (Model Context Protocol) 服务器",
		Long: `启动 MCP 服务器，允许 AI 助手（如 Cursor、Claude）直接查询模块依赖图。

MCP 工具包括：
  - impact: 分析模块变更的影响范围
  - dependents: 查询上游依赖方
  - dependencies: 查询下游依赖
  - search: 搜索模块
  - list: 列出模块
  - mermaid: 生成依赖关系图`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := mcp.NewServer(db, logging.FromContext(ctx))
			return server.Run(ctx)
		},
	}

	return cmd
}

func watchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [project-path]",
		Short: "监控文件变更并自动更新依赖图",
		Long: `启动 watch 模式，监控项目中的 JS/TS 文件变更。
当检测到文件变更时，自动重新分析整个项目并更新数据库。

特性：
  - 自动递归监控所有目录（新建目录也会加入）
  - 防抖处理，避免频繁触发分析
  - 忽略 node_modules 与隐藏目录

示例：
  jsdeps watch .                    # 监控当前目录
  jsdeps watch . -d .jsdeps.db      # 指定数据库路径
  jsdeps watch . --debounce 1s      # 设置 1 秒防抖延迟`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}
			if debounce <= 0 {
				debounce = cfg.Watch.Debounce
			}

			provider, err := newProvider()
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			w, err := watcher.New(
				projectPath,
				db,
				provider,
				watcher.WithLogger(logging.FromContext(ctx)),
				watcher.WithDebounceDelay(debounce),
				watcher.WithOnAnalysisStart(func(changed []string) {
					fmt.Fprintf(out, "[%s] 检测到 %d 处变更，开始分析...\n", time.Now().Format("15:04:05"), len(changed))
				}),
				watcher.WithOnAnalysisDone(func(result *pipeline.Result, duration time.Duration) {
					fmt.Fprintf(out, "[%s] 分析完成: %s 个文件, %s 节点, %s 边 (耗时 %v)\n",
						time.Now().Format("15:04:05"),
						display.Count(result.Stats.Files),
						display.Count(result.Stats.Nodes),
						display.Count(result.Stats.Edges),
						duration.Round(time.Millisecond))
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(errOut, "[%s] 错误: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("创建监控器失败: %w", err)
			}

			fmt.Fprintln(out, "执行初始分析...")
			if _, err := w.Rebuild(ctx); err != nil {
				w.Stop()
				return fmt.Errorf("初始分析失败: %w", err)
			}

			fmt.Fprintf(out, "\n开始监控目录: %s\n", projectPath)
			fmt.Fprintf(out, "数据库路径: %s\n", DbPath)
			fmt.Fprintf(out, "防抖延迟: %v\n", debounce)
			fmt.Fprintln(out, "\n按 Ctrl+C 停止...")
			fmt.Fprintln(out)

			w.Start()
			<-ctx.Done()

			fmt.Fprintln(out, "\n停止监控...")
			return w.Stop()
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "防抖延迟 (默认取配置 watch.debounce)")

	return cmd
}

func serveCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"view"},
		Short:   "启动 HTTP JSON API",
		Long: `启动一个本地 HTTP 服务器，以 JSON 提供依赖图查询接口。

接口：
  GET /api/graph                  完整图 (nodes/edges)
  GET /api/modules?kind=          模块列表
  GET /api/module?id=             模块详情（依赖、依赖方、导出）
  GET /api/impact?id=&up=&down=   影响分析
  GET /api/search?q=              搜索
  GET /api/stats                  统计
  GET /api/hubs?limit=            被依赖最多的模块
  GET /api/skipped                最近一次分析跳过的文件

示例：
  jsdeps serve              # 使用默认端口 9998
  jsdeps serve -p 3000      # 指定端口
  jsdeps serve -d my.db     # 指定数据库`,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := cfg.Server
			if cmd.Flags().Changed("host") {
				server.Host = host
			}
			if cmd.Flags().Changed("port") {
				server.Port = port
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return web.NewServer(db, server.Addr(), cfg.Query.Limit, logging.FromContext(ctx)).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "监听地址")
	cmd.Flags().IntVarP(&port, "port", "p", 9998, "服务器端口")

	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/jsdeps/internal/config"
	"github.com/zheng/jsdeps/internal/logging"
	"github.com/zheng/jsdeps/internal/syntax"
)

var (
	DbPath     string
	configPath string
	verbose    bool

	cfg = config.Default()

	// newProvider builds the parser used by analyze and watch
	newProvider = func() (syntax.Provider, error) {
		if !syntax.IsAvailable() {
			return nil, fmt.Errorf("解析器不可用: %w", syntax.ErrNoCGO)
		}
		return syntax.NewTreeSitter(), nil
	}
)

// NewRootCmd builds the jsdeps command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jsdeps",
		Short: "jsdeps - JS/TS 模块依赖图分析工具",
		Long: `jsdeps 扫描 JavaScript/TypeScript 项目，提取 import/require/export，
构建模块依赖图并存入本地数据库，帮助追踪文件变更的影响范围。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&DbPath, "db", "d", "", "数据库文件路径 (默认 .jsdeps.db)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径 (默认 ./.jsdeps.yaml 或 ~/.jsdeps.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	RegisterCommands(rootCmd)
	return rootCmd
}

// RegisterCommands adds all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(depsCmd())
	rootCmd.AddCommand(dependentsCmd())
	rootCmd.AddCommand(impactCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(exportsCmd())
	rootCmd.AddCommand(hubsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())
}

// setup loads the configuration and installs the logger. Flags win over config values.
func setup(cmd *cobra.Command) error {
	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	if !cmd.Flags().Changed("db") {
		DbPath = c.DB.Path
	}

	level := c.Log.Level
	if verbose {
		level = "debug"
	}
	l, err := logging.New(cmd.ErrOrStderr(), level, c.Log.Format)
	if err != nil {
		return err
	}

	cfg = c
	cmd.SetContext(logging.WithLogger(cmd.Context(), logging.Install(l)))
	return nil
}

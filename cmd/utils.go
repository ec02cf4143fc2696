package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zheng/jsdeps/internal/display"
	"github.com/zheng/jsdeps/internal/impact"
	"github.com/zheng/jsdeps/internal/storage"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openDB() (*storage.DB, error) {
	db, err := storage.Open(DbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	return db, nil
}

// projectRoot returns the root of the stored run, used to shorten module labels
func projectRoot(db *storage.DB) string {
	run, err := db.LatestRun()
	if err != nil {
		return ""
	}
	return run.Root
}

// resolveTarget finds a module by name. When several modules match, selectN
// picks one; otherwise the user is asked to choose.
func resolveTarget(cmd *cobra.Command, db *storage.DB, name string, selectN int) (*storage.Module, error) {
	target, err := impact.NewAnalyzer(db).FindTarget(name)
	if err == nil || !errors.Is(err, impact.ErrAmbiguous) {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w\n\n💡 提示：如果代码最近有更新，请先运行 jsdeps analyze", err)
		}
		return target, err
	}

	modules, err := db.FindModules(name)
	if err != nil {
		return nil, fmt.Errorf("查询失败: %w", err)
	}
	if selectN >= 1 && selectN <= len(modules) {
		return modules[selectN-1], nil
	}

	out := cmd.OutOrStdout()
	root := projectRoot(db)
	fmt.Fprintln(out, "找到多个匹配的模块，请选择:")
	for i, m := range modules {
		fmt.Fprintf(out, "  [%d] %s  (%s)\n", i+1, display.ModuleLabel(m.Name, root), m.Kind)
	}
	fmt.Fprintf(out, "\n请输入序号 [1-%d]: ", len(modules))

	var choice int
	if _, err := fmt.Fscan(cmd.InOrStdin(), &choice); err != nil || choice < 1 || choice > len(modules) {
		return nil, fmt.Errorf("无效的选择")
	}
	return modules[choice-1], nil
}

// printTree writes a titled dependency tree under the target label
func printTree(w io.Writer, title string, tree []*storage.TreeNode, root string, depth int) {
	if len(tree) == 0 {
		fmt.Fprintln(w, title)
		fmt.Fprintln(w, "└── (无)")
		return
	}

	maxWidth, maxDepth := 0, 0
	display.CalcTreeMaxWidth(tree, root, &maxWidth, 0, &maxDepth)
	if depth > 0 {
		fmt.Fprintf(w, "%s (深度 %d)\n", title, depth)
	} else {
		fmt.Fprintf(w, "%s (深度 无限)\n", title)
	}
	fmt.Fprint(w, display.FormatTree(tree, root, "", maxWidth, maxDepth, 0))
}

package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitChanges represents the result of git diff analysis
type GitChanges struct {
	Root         string   // 仓库根目录（绝对路径）
	ChangedFiles []string // 变更的 JS/TS 源文件（绝对路径）
	ChangedDirs  []string // 变更文件所在目录
}

// GetGitChanges returns the JS/TS source files changed relative to base.
// If base is empty, it compares with HEAD (uncommitted changes).
func GetGitChanges(ctx context.Context, projectPath string, base string) (*GitChanges, error) {
	if base == "" {
		base = "HEAD"
	}

	root, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}

	output, err := gitOutput(ctx, root, "diff", "--name-only", "--relative", base)
	if err != nil {
		// No commits yet or unknown base: fall back to the working tree status
		output, err = gitOutput(ctx, root, "ls-files", "--modified", "--others", "--exclude-standard")
		if err != nil {
			return nil, fmt.Errorf("git: %w", err)
		}
	}

	return parseChangedFiles(root, output)
}

func gitOutput(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

func parseChangedFiles(root string, output []byte) (*GitChanges, error) {
	changes := &GitChanges{
		Root:         root,
		ChangedFiles: make([]string, 0),
		ChangedDirs:  make([]string, 0),
	}

	dirSet := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		file := strings.TrimSpace(scanner.Text())
		if file == "" || !IsSourceFile(file) || inSkippedDir(file) {
			continue
		}

		abs := filepath.Join(root, filepath.FromSlash(file))
		changes.ChangedFiles = append(changes.ChangedFiles, abs)

		dir := filepath.Dir(abs)
		if !dirSet[dir] {
			dirSet[dir] = true
			changes.ChangedDirs = append(changes.ChangedDirs, dir)
		}
	}

	return changes, scanner.Err()
}

func inSkippedDir(rel string) bool {
	parts := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	for _, p := range parts {
		if p != "." && SkipDir(p) {
			return true
		}
	}
	return false
}

// HasChanges returns true if there are any source file changes
func (g *GitChanges) HasChanges() bool {
	return len(g.ChangedFiles) > 0
}

// String returns a summary string of the changes
func (g *GitChanges) String() string {
	return fmt.Sprintf("%d files changed in %d directories", len(g.ChangedFiles), len(g.ChangedDirs))
}

// GetRemoteTrackingBranch 获取当前分支对应的远程跟踪分支
// 返回格式如 "origin/main" 或 "origin/feature-branch"
func GetRemoteTrackingBranch(ctx context.Context, projectPath string) (string, error) {
	output, err := gitOutput(ctx, projectPath, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		return "", fmt.Errorf("无法获取远程跟踪分支: %w", err)
	}

	branch := strings.TrimSpace(string(output))
	if branch == "" {
		return "", fmt.Errorf("当前分支没有设置远程跟踪分支")
	}

	return branch, nil
}

package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SourceExtensions lists the file extensions picked up by CollectSourceFiles
var SourceExtensions = []string{".js", ".ts", ".jsx", ".tsx"}

const skipDirNodeModules = "node_modules"

// CollectSourceFiles walks root and returns the absolute paths of all JS/TS
// source files, in directory listing order.
// node_modules and dot-prefixed directories are not entered.
func CollectSourceFiles(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	files := make([]string, 0)
	if err := collect(abs, &files, map[string]bool{}); err != nil {
		return nil, err
	}
	return files, nil
}

// collect appends the source files under dir. Symlinks are followed;
// visited holds the real paths of entered directories so link cycles end.
func collect(dir string, files *[]string, visited map[string]bool) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if visited[resolved] {
		return nil
	}
	visited[resolved] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				// dangling link
				continue
			}
			mode = info.Mode().Type()
		}

		if mode.IsDir() {
			if SkipDir(name) {
				continue
			}
			if err := collect(path, files, visited); err != nil {
				return err
			}
			continue
		}

		if mode.IsRegular() && IsSourceFile(name) {
			*files = append(*files, path)
		}
	}
	return nil
}

// SkipDir reports whether a directory with this name is excluded from scanning
func SkipDir(name string) bool {
	return name == skipDirNodeModules || strings.HasPrefix(name, ".")
}

// IsSourceFile reports whether the name ends with an allowed extension
func IsSourceFile(name string) bool {
	for _, ext := range SourceExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

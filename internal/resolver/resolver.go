// Package resolver maps relative module specifiers to files on disk.
package resolver

import (
	"os"
	"path/filepath"
	"strings"
)

// Extensions is the probe order for both direct files and index files.
var Extensions = []string{".js", ".ts", ".jsx", ".tsx", ".json"}

// Prober answers filesystem existence questions.
type Prober interface {
	// IsFile reports whether path exists and is not a directory.
	IsFile(path string) bool
	// Exists reports whether path exists at all.
	Exists(path string) bool
}

// OSProber probes the real filesystem. Results are never cached.
type OSProber struct{}

func (OSProber) IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (OSProber) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolver resolves relative specifiers against the file that references them.
type Resolver struct {
	fs Prober
}

// New creates a Resolver. A nil prober means the real filesystem.
func New(fs Prober) *Resolver {
	if fs == nil {
		fs = OSProber{}
	}
	return &Resolver{fs: fs}
}

// Resolve returns the absolute path that specifier denotes when imported from
// the file at from. Only specifiers starting with "." are resolved.
//
// Probe order: base+ext for every extension, then base/index+ext, then base
// itself (extensionless file or a directory without an index).
func (r *Resolver) Resolve(from, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return "", false
	}

	base := filepath.Join(filepath.Dir(from), specifier)
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}

	for _, ext := range Extensions {
		if candidate := base + ext; r.fs.IsFile(candidate) {
			return candidate, true
		}
	}

	for _, ext := range Extensions {
		if candidate := filepath.Join(base, "index"+ext); r.fs.IsFile(candidate) {
			return candidate, true
		}
	}

	if r.fs.Exists(base) {
		return base, true
	}

	return "", false
}

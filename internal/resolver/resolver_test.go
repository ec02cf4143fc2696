package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFS is an in-memory directory listing. Directories are implied by file paths.
type memFS struct {
	files map[string]bool
	dirs  map[string]bool
	calls []string
}

func newMemFS(files ...string) *memFS {
	m := &memFS{files: map[string]bool{}, dirs: map[string]bool{}}
	for _, f := range files {
		m.files[f] = true
		for d := filepath.Dir(f); d != "/" && d != "."; d = filepath.Dir(d) {
			m.dirs[d] = true
		}
	}
	return m
}

func (m *memFS) IsFile(path string) bool {
	m.calls = append(m.calls, path)
	return m.files[path]
}

func (m *memFS) Exists(path string) bool {
	m.calls = append(m.calls, path)
	return m.files[path] || m.dirs[path]
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		files     []string
		from      string
		specifier string
		want      string
		wantOK    bool
	}{
		{
			name:      "file with extension",
			files:     []string{"/a/b/foo.js"},
			from:      "/a/b/file.js",
			specifier: "./foo",
			want:      "/a/b/foo.js",
			wantOK:    true,
		},
		{
			name:      "file beats index",
			files:     []string{"/a/b/foo.js", "/a/b/foo/index.js"},
			from:      "/a/b/file.js",
			specifier: "./foo",
			want:      "/a/b/foo.js",
			wantOK:    true,
		},
		{
			name:      "later extension file beats earlier extension index",
			files:     []string{"/a/b/foo.json", "/a/b/foo/index.js"},
			from:      "/a/b/file.js",
			specifier: "./foo",
			want:      "/a/b/foo.json",
			wantOK:    true,
		},
		{
			name:      "index fallback",
			files:     []string{"/a/b/foo/index.ts"},
			from:      "/a/b/file.js",
			specifier: "./foo",
			want:      "/a/b/foo/index.ts",
			wantOK:    true,
		},
		{
			name:      "extension priority",
			files:     []string{"/a/b/foo.ts", "/a/b/foo.tsx"},
			from:      "/a/b/file.js",
			specifier: "./foo",
			want:      "/a/b/foo.ts",
			wantOK:    true,
		},
		{
			name:      "explicit extension resolves through bare path",
			files:     []string{"/a/b/foo.js"},
			from:      "/a/b/file.js",
			specifier: "./foo.js",
			want:      "/a/b/foo.js",
			wantOK:    true,
		},
		{
			name:      "directory without index",
			files:     []string{"/a/b/assets/logo.svg"},
			from:      "/a/b/file.js",
			specifier: "./assets",
			want:      "/a/b/assets",
			wantOK:    true,
		},
		{
			name:      "parent directory",
			files:     []string{"/a/util.js"},
			from:      "/a/b/file.js",
			specifier: "../util",
			want:      "/a/util.js",
			wantOK:    true,
		},
		{
			name:      "missing",
			from:      "/a/b/file.js",
			specifier: "./nope",
		},
		{
			name:      "bare specifier is never resolved",
			files:     []string{"/a/b/lodash.js"},
			from:      "/a/b/file.js",
			specifier: "lodash",
		},
		{
			name:      "absolute specifier is not resolved",
			files:     []string{"/a/b/foo.js"},
			from:      "/a/b/file.js",
			specifier: "/a/b/foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := New(newMemFS(tt.files...)).Resolve(tt.from, tt.specifier)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_BareSpecifierDoesNotProbe(t *testing.T) {
	t.Parallel()

	fs := newMemFS("/a/b/lodash.js")
	_, ok := New(fs).Resolve("/a/b/file.js", "lodash")

	assert.False(t, ok)
	assert.Empty(t, fs.calls)
}

func TestResolve_ProbeSequenceIsUncached(t *testing.T) {
	t.Parallel()

	fs := newMemFS()
	r := New(fs)

	r.Resolve("/a/file.js", "./x")
	first := len(fs.calls)
	r.Resolve("/a/file.js", "./x")

	// five files, five index files, one bare path, every time
	assert.Equal(t, 11, first)
	assert.Len(t, fs.calls, 2*first)
}

func TestOSProber(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.js"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "foo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo", "index.js"), nil, 0o644))

	p := OSProber{}
	assert.True(t, p.IsFile(filepath.Join(dir, "foo.js")))
	assert.False(t, p.IsFile(filepath.Join(dir, "foo")))
	assert.True(t, p.Exists(filepath.Join(dir, "foo")))
	assert.False(t, p.Exists(filepath.Join(dir, "bar")))

	got, ok := New(nil).Resolve(filepath.Join(dir, "main.js"), "./foo")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "foo.js"), got)
}

// Package pipeline builds a dependency graph for a source tree.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zheng/jsdeps/internal/analyzer"
	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/resolver"
	"github.com/zheng/jsdeps/internal/syntax"
)

// FileOutcome is the per-file result of a run: either an analysis or the reason the file was skipped.
type FileOutcome struct {
	Path     string
	Analysis *graph.AnalysisResult
	Err      error
}

// Skipped reports whether the file was left out of the graph
func (o FileOutcome) Skipped() bool {
	return o.Err != nil
}

// Result is the output of one run
type Result struct {
	Root  string
	Graph *graph.Graph
	Files []FileOutcome
	Stats graph.BuildStats
}

// Skipped returns the outcomes of files that could not be analyzed, in collection order
func (r *Result) Skipped() []FileOutcome {
	out := make([]FileOutcome, 0)
	for _, f := range r.Files {
		if f.Skipped() {
			out = append(out, f)
		}
	}
	return out
}

// Analyses returns the successful per-file analyses, in collection order
func (r *Result) Analyses() []graph.FileAnalysis {
	out := make([]graph.FileAnalysis, 0, len(r.Files))
	for _, f := range r.Files {
		if !f.Skipped() {
			out = append(out, graph.FileAnalysis{Path: f.Path, Analysis: f.Analysis})
		}
	}
	return out
}

// Option configures a run
type Option func(*config)

type config struct {
	logger *slog.Logger
	prober resolver.Prober
	read   func(string) ([]byte, error)
}

// WithLogger sets the logger used for progress and skip warnings
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithProber replaces the filesystem used for specifier resolution
func WithProber(p resolver.Prober) Option {
	return func(c *config) { c.prober = p }
}

// WithReadFile replaces the function used to load file contents
func WithReadFile(read func(string) ([]byte, error)) Option {
	return func(c *config) { c.read = read }
}

// Run collects every source file under root, analyzes each one and folds the
// results into a fresh graph. Files that fail to read, parse or analyze are
// recorded in Result.Files and do not stop the run; a failure to list the root
// does.
func Run(ctx context.Context, root string, provider syntax.Provider, opts ...Option) (*Result, error) {
	cfg := &config{
		logger: slog.Default(),
		read:   os.ReadFile,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	files, err := analyzer.CollectSourceFiles(root)
	if err != nil {
		return nil, fmt.Errorf("collect source files: %w", err)
	}
	cfg.logger.Debug("collected source files", "root", root, "count", len(files))

	ma := analyzer.NewModuleAnalyzer(resolver.New(cfg.prober))
	builder := graph.NewBuilder()
	result := &Result{
		Root:  root,
		Files: make([]FileOutcome, 0, len(files)),
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome := analyzeFile(ctx, cfg, provider, ma, path)
		result.Files = append(result.Files, outcome)

		if outcome.Skipped() {
			cfg.logger.Warn("skipping file", "path", path, "err", outcome.Err)
			continue
		}
		builder.Add(path, outcome.Analysis)
	}

	result.Graph = builder.Graph()
	result.Stats = builder.Stats()
	cfg.logger.Debug("graph built",
		"files", result.Stats.Files,
		"nodes", result.Stats.Nodes,
		"edges", result.Stats.Edges,
		"skipped", len(result.Files)-result.Stats.Files)

	return result, nil
}

func analyzeFile(ctx context.Context, cfg *config, provider syntax.Provider, ma *analyzer.ModuleAnalyzer, path string) FileOutcome {
	src, err := cfg.read(path)
	if err != nil {
		return FileOutcome{Path: path, Err: fmt.Errorf("read: %w", err)}
	}
	if len(src) == 0 {
		return FileOutcome{Path: path, Err: analyzer.ErrEmptyFile}
	}

	tree, err := provider.Parse(ctx, path, src)
	if err != nil {
		return FileOutcome{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	defer tree.Close()

	if tree.HasErrors() {
		cfg.logger.Debug("syntax errors recovered", "path", path)
	}

	return FileOutcome{Path: path, Analysis: ma.Analyze(path, tree)}
}

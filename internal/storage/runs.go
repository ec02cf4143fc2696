package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/pipeline"
)

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run describes one stored analysis run
type Run struct {
	ID           string    `json:"id"`
	Root         string    `json:"root"`
	CreatedAt    time.Time `json:"createdAt"`
	FileCount    int       `json:"fileCount"`
	SkippedCount int       `json:"skippedCount"`
	NodeCount    int       `json:"nodeCount"`
	EdgeCount    int       `json:"edgeCount"`
}

// SkippedFile is a file the run could not analyze
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// SaveResult replaces the stored graph with the result of a run and records
// the run. Everything happens in one transaction; the new run id is returned.
func (db *DB) SaveResult(result *pipeline.Result) (string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM exports; DELETE FROM edges; DELETE FROM nodes;"); err != nil {
		return "", fmt.Errorf("clear graph: %w", err)
	}

	skipped := result.Skipped()
	run := Run{
		ID:           uuid.NewString(),
		Root:         result.Root,
		CreatedAt:    time.Now().UTC(),
		FileCount:    result.Stats.Files,
		SkippedCount: len(skipped),
		NodeCount:    result.Graph.NodeCount(),
		EdgeCount:    result.Graph.EdgeCount(),
	}
	if _, err := tx.Exec(
		`INSERT INTO runs (id, root, created_at, file_count, skipped_count, node_count, edge_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.CreatedAt.Format(timeLayout),
		run.FileCount, run.SkippedCount, run.NodeCount, run.EdgeCount,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	ids, err := insertNodes(tx, result)
	if err != nil {
		return "", err
	}
	if err := insertEdges(tx, result.Graph, ids); err != nil {
		return "", err
	}
	if err := insertExports(tx, result.Analyses(), ids); err != nil {
		return "", err
	}

	for _, s := range skipped {
		if _, err := tx.Exec(
			`INSERT INTO skipped (run_id, path, reason) VALUES (?, ?, ?)`,
			run.ID, s.Path, s.Err.Error(),
		); err != nil {
			return "", fmt.Errorf("insert skipped: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

func insertNodes(tx *sql.Tx, result *pipeline.Result) (map[string]int64, error) {
	files := make(map[string]bool, len(result.Files))
	for _, f := range result.Files {
		if !f.Skipped() {
			files[f.Path] = true
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO nodes (module, kind, is_file) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make(map[string]int64, result.Graph.NodeCount())
	for _, n := range result.Graph.Nodes() {
		res, err := stmt.Exec(n.ID, n.Kind, files[n.ID])
		if err != nil {
			return nil, fmt.Errorf("insert node %s: %w", n.ID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids[n.ID] = id
	}
	return ids, nil
}

func insertEdges(tx *sql.Tx, g *graph.Graph, ids map[string]int64) error {
	stmt, err := tx.Prepare(`INSERT INTO edges (from_id, to_id, kind, line, col) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range g.Edges() {
		if _, err := stmt.Exec(ids[e.From], ids[e.To], e.Kind, e.Location.Line, e.Location.Column); err != nil {
			return fmt.Errorf("insert edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	return nil
}

func insertExports(tx *sql.Tx, files []graph.FileAnalysis, ids map[string]int64) error {
	stmt, err := tx.Prepare(`INSERT INTO exports (file_id, code, line, col) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range files {
		for _, ex := range f.Analysis.Exports {
			if _, err := stmt.Exec(ids[f.Path], ex.Code, ex.Location.Line, ex.Location.Column); err != nil {
				return fmt.Errorf("insert export of %s: %w", f.Path, err)
			}
		}
	}
	return nil
}

// LatestRun returns the most recent run
func (db *DB) LatestRun() (*Run, error) {
	var r Run
	var created string
	err := db.conn.QueryRow(
		`SELECT id, root, created_at, file_count, skipped_count, node_count, edge_count
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&r.ID, &r.Root, &created, &r.FileCount, &r.SkippedCount, &r.NodeCount, &r.EdgeCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad timestamp: %w", r.ID, err)
	}
	return &r, nil
}

// Skipped returns the files skipped by the given run
func (db *DB) Skipped(runID string) ([]SkippedFile, error) {
	rows, err := db.conn.Query(`SELECT path, reason FROM skipped WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SkippedFile, 0)
	for rows.Next() {
		var s SkippedFile
		if err := rows.Scan(&s.Path, &s.Reason); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

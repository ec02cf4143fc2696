package storage

import (
	"database/sql"
	"errors"

	"github.com/zheng/jsdeps/internal/graph"
)

// Module is a stored graph node
type Module struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Kind   graph.NodeKind `json:"type"`
	IsFile bool           `json:"isFile"`
}

// Dependency is a stored edge with both endpoint names attached
type Dependency struct {
	ID     int64          `json:"id"`
	FromID int64          `json:"fromId"`
	ToID   int64          `json:"toId"`
	From   string         `json:"from"`
	To     string         `json:"to"`
	Kind   graph.EdgeKind `json:"kind"`
	Line   int            `json:"line"`
	Column int            `json:"column"`
}

// Export is a stored export record
type Export struct {
	Code   string `json:"code"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Stats holds database statistics
type Stats struct {
	Modules  int64 `json:"modules"`
	Files    int64 `json:"files"`
	Internal int64 `json:"internal"`
	External int64 `json:"external"`
	Edges    int64 `json:"edges"`
	Exports  int64 `json:"exports"`
}

const moduleColumns = `n.id, n.module, n.kind, n.is_file`

// GetStats returns database statistics
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	err := db.conn.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(is_file), 0),
		       COALESCE(SUM(kind = 'internal'), 0),
		       COALESCE(SUM(kind = 'external'), 0),
		       (SELECT COUNT(*) FROM edges),
		       (SELECT COUNT(*) FROM exports)
		FROM nodes`,
	).Scan(&s.Modules, &s.Files, &s.Internal, &s.External, &s.Edges, &s.Exports)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetModule returns a module by its exact id (resolved path or specifier)
func (db *DB) GetModule(name string) (*Module, error) {
	row := db.conn.QueryRow(`SELECT `+moduleColumns+` FROM nodes n WHERE n.module = ?`, name)
	return scanModule(row)
}

// GetModuleByID returns a module by its row id
func (db *DB) GetModuleByID(id int64) (*Module, error) {
	row := db.conn.QueryRow(`SELECT `+moduleColumns+` FROM nodes n WHERE n.id = ?`, id)
	return scanModule(row)
}

// FindModules returns modules matching a name pattern (using LIKE).
// Results are sorted by match quality: exact match > base name match > ends with pattern > contains pattern.
func (db *DB) FindModules(pattern string) ([]*Module, error) {
	rows, err := db.conn.Query(
		`SELECT `+moduleColumns+` FROM nodes n
		 WHERE n.module LIKE ?
		 ORDER BY
			CASE
				WHEN n.module = ? THEN 0
				-- base name match: ".../pattern.js" or ".../pattern/index.ts"
				WHEN n.module LIKE '%/' || ? || '.%' OR n.module LIKE '%/' || ? || '/index.%' THEN 1
				WHEN n.module LIKE '%' || ? THEN 2
				ELSE 3
			END,
			length(n.module) ASC,
			n.id ASC`,
		"%"+pattern+"%", pattern, pattern, pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanModules(rows)
}

// ResolveModule finds a module by exact id first, then by best pattern match
func (db *DB) ResolveModule(name string) (*Module, error) {
	m, err := db.GetModule(name)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return m, err
	}
	matches, err := db.FindModules(name)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches[0], nil
}

// AllModules returns every module in insertion order; kind filters when non-empty
func (db *DB) AllModules(kind graph.NodeKind) ([]*Module, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = db.conn.Query(`SELECT ` + moduleColumns + ` FROM nodes n ORDER BY n.id`)
	} else {
		rows, err = db.conn.Query(`SELECT `+moduleColumns+` FROM nodes n WHERE n.kind = ? ORDER BY n.id`, kind)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanModules(rows)
}

const dependencyQuery = `
	SELECT e.id, e.from_id, e.to_id, f.module, t.module, e.kind, e.line, e.col
	FROM edges e
	JOIN nodes f ON f.id = e.from_id
	JOIN nodes t ON t.id = e.to_id`

// AllEdges returns every edge in insertion order
func (db *DB) AllEdges() ([]*Dependency, error) {
	rows, err := db.conn.Query(dependencyQuery + ` ORDER BY e.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// Dependencies returns the edges going out of a module, one per occurrence
func (db *DB) Dependencies(moduleID int64) ([]*Dependency, error) {
	rows, err := db.conn.Query(dependencyQuery+` WHERE e.from_id = ? ORDER BY e.id`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// Dependents returns the edges pointing at a module, one per occurrence
func (db *DB) Dependents(moduleID int64) ([]*Dependency, error) {
	rows, err := db.conn.Query(dependencyQuery+` WHERE e.to_id = ? ORDER BY e.id`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// DirectDependents returns the distinct modules that depend on a module
func (db *DB) DirectDependents(moduleID int64) ([]*Module, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT `+moduleColumns+` FROM nodes n
		 JOIN edges e ON e.from_id = n.id
		 WHERE e.to_id = ?
		 ORDER BY n.id`,
		moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanModules(rows)
}

// DirectDependencies returns the distinct modules a module depends on
func (db *DB) DirectDependencies(moduleID int64) ([]*Module, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT `+moduleColumns+` FROM nodes n
		 JOIN edges e ON e.to_id = n.id
		 WHERE e.from_id = ?
		 ORDER BY n.id`,
		moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanModules(rows)
}

// maxTraversalDepth bounds recursive queries on cyclic graphs when no depth is given
const maxTraversalDepth = 50

// UpstreamDependents returns every module that transitively depends on a module, up to maxDepth.
// If maxDepth is 0, the traversal is bounded only by maxTraversalDepth.
func (db *DB) UpstreamDependents(moduleID int64, maxDepth int) ([]*Module, error) {
	return db.traverse(`
		WITH RECURSIVE up(id, depth) AS (
			SELECT from_id, 1 FROM edges WHERE to_id = ?
			UNION
			SELECT e.from_id, u.depth + 1
			FROM edges e
			JOIN up u ON e.to_id = u.id
			WHERE u.depth < ?
		)
		SELECT `+moduleColumns+` FROM nodes n
		WHERE n.id IN (SELECT id FROM up) AND n.id != ?
		ORDER BY n.id`, moduleID, maxDepth)
}

// DownstreamDependencies returns every module a module transitively depends on, up to maxDepth.
// If maxDepth is 0, the traversal is bounded only by maxTraversalDepth.
func (db *DB) DownstreamDependencies(moduleID int64, maxDepth int) ([]*Module, error) {
	return db.traverse(`
		WITH RECURSIVE down(id, depth) AS (
			SELECT to_id, 1 FROM edges WHERE from_id = ?
			UNION
			SELECT e.to_id, d.depth + 1
			FROM edges e
			JOIN down d ON e.from_id = d.id
			WHERE d.depth < ?
		)
		SELECT `+moduleColumns+` FROM nodes n
		WHERE n.id IN (SELECT id FROM down) AND n.id != ?
		ORDER BY n.id`, moduleID, maxDepth)
}

func (db *DB) traverse(query string, moduleID int64, maxDepth int) ([]*Module, error) {
	if maxDepth <= 0 || maxDepth > maxTraversalDepth {
		maxDepth = maxTraversalDepth
	}
	rows, err := db.conn.Query(query, moduleID, maxDepth, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanModules(rows)
}

// ExportsOf returns the export records of a file in source order
func (db *DB) ExportsOf(moduleID int64) ([]*Export, error) {
	rows, err := db.conn.Query(
		`SELECT code, line, col FROM exports WHERE file_id = ? ORDER BY id`,
		moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Export, 0)
	for rows.Next() {
		var e Export
		if err := rows.Scan(&e.Code, &e.Line, &e.Column); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// LoadPayload rebuilds the graph payload in insertion order
func (db *DB) LoadPayload() (graph.Payload, error) {
	p := graph.Payload{Nodes: []graph.PayloadNode{}, Edges: []graph.PayloadEdge{}}

	modules, err := db.AllModules("")
	if err != nil {
		return p, err
	}
	for _, m := range modules {
		p.Nodes = append(p.Nodes, graph.PayloadNode{ID: m.Name, Type: m.Kind})
	}

	edges, err := db.AllEdges()
	if err != nil {
		return p, err
	}
	for _, e := range edges {
		p.Edges = append(p.Edges, graph.PayloadEdge{Source: e.From, Target: e.To})
	}
	return p, nil
}

// Helper functions

func scanModule(row *sql.Row) (*Module, error) {
	var m Module
	err := row.Scan(&m.ID, &m.Name, &m.Kind, &m.IsFile)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanModules(rows *sql.Rows) ([]*Module, error) {
	modules := make([]*Module, 0)
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Kind, &m.IsFile); err != nil {
			return nil, err
		}
		modules = append(modules, &m)
	}
	return modules, rows.Err()
}

func scanDependencies(rows *sql.Rows) ([]*Dependency, error) {
	deps := make([]*Dependency, 0)
	for rows.Next() {
		var d Dependency
		if err := rows.Scan(&d.ID, &d.FromID, &d.ToID, &d.From, &d.To, &d.Kind, &d.Line, &d.Column); err != nil {
			return nil, err
		}
		deps = append(deps, &d)
	}
	return deps, rows.Err()
}

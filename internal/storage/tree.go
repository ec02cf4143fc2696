package storage

// TreeNode represents a module in a dependency tree with its children
type TreeNode struct {
	Module   *Module     `json:"module"`
	Children []*TreeNode `json:"children,omitempty"`
}

// DependentTree builds a tree of modules that depend on moduleID.
// A module already on the current path is listed but not expanded again.
func (db *DB) DependentTree(moduleID int64, maxDepth int) ([]*TreeNode, error) {
	return db.buildTree(moduleID, maxDepth, db.DirectDependents, map[int64]bool{moduleID: true})
}

// DependencyTree builds a tree of modules that moduleID depends on.
func (db *DB) DependencyTree(moduleID int64, maxDepth int) ([]*TreeNode, error) {
	return db.buildTree(moduleID, maxDepth, db.DirectDependencies, map[int64]bool{moduleID: true})
}

func (db *DB) buildTree(moduleID int64, maxDepth int, next func(int64) ([]*Module, error), path map[int64]bool) ([]*TreeNode, error) {
	modules, err := next(moduleID)
	if err != nil {
		return nil, err
	}

	result := make([]*TreeNode, len(modules))
	for i, m := range modules {
		result[i] = &TreeNode{Module: m}
		if maxDepth == 1 || path[m.ID] {
			continue
		}

		path[m.ID] = true
		children, err := db.buildTree(m.ID, maxDepth-1, next, path)
		delete(path, m.ID)
		if err != nil {
			return nil, err
		}
		result[i].Children = children
	}
	return result, nil
}

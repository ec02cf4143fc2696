package graph

// EdgeKind records which construct produced a dependency
type EdgeKind string

const (
	EdgeKindImport  EdgeKind = "import"
	EdgeKindRequire EdgeKind = "require"
)

// Edge represents one dependency occurrence from a file to a module
type Edge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Kind     EdgeKind `json:"kind"`
	Location Location `json:"location"` // 依赖语句所在位置
}

package graph

// NodeKind classifies a module in the dependency graph
type NodeKind string

const (
	NodeKindInternal NodeKind = "internal" // 快照内的文件
	NodeKindExternal NodeKind = "external" // 生态包 (npm 等)
)

// KindOf classifies a specifier by syntax alone: internal iff it starts with "." or "/"
func KindOf(specifier string) NodeKind {
	if len(specifier) > 0 && (specifier[0] == '.' || specifier[0] == '/') {
		return NodeKindInternal
	}
	return NodeKindExternal
}

// Node represents a module in the dependency graph
type Node struct {
	ID   string   `json:"id"`   // 解析后的绝对路径，或原始 specifier
	Kind NodeKind `json:"type"` // internal / external
}

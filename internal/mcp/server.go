// Package mcp exposes the stored module graph as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zheng/jsdeps/internal/storage"
)

const (
	serverName    = "jsdeps"
	serverVersion = "1.0.0"
	defaultLimit  = 50
)

// Server wraps the MCP SDK server with the jsdeps tool registrations
type Server struct {
	inner *mcpsdk.Server
	db    *storage.DB

	mu    sync.RWMutex
	tools []string
}

// NewServer creates an MCP server backed by db. A nil logger uses the slog default.
func NewServer(db *storage.DB, logger *slog.Logger) *Server {
	opts := &mcpsdk.ServerOptions{}
	if logger != nil {
		opts.Logger = logger
	}

	srv := &Server{
		inner: mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: serverVersion}, opts),
		db:    db,
	}
	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)
	return names
}

// Run serves MCP over stdin/stdout until ctx is canceled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves MCP over the given transport
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	if err := s.inner.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	addTool(s, ToolNameImpact, impactToolDescription, s.handleImpact)
	addTool(s, ToolNameDependents, dependentsToolDescription, s.handleDependents)
	addTool(s, ToolNameDependencies, dependenciesToolDescription, s.handleDependencies)
	addTool(s, ToolNameSearch, searchToolDescription, s.handleSearch)
	addTool(s, ToolNameList, listToolDescription, s.handleList)
	addTool(s, ToolNameMermaid, mermaidToolDescription, s.handleMermaid)
}

func addTool[In any](s *Server, name, description string, handler mcpsdk.ToolHandlerFor[In, ToolOutput]) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: name, Description: description}, handler)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, name)
}

const (
	impactToolDescription       = "分析模块变更的影响范围，返回依赖该模块的上游模块和该模块引用的下游模块"
	dependentsToolDescription   = "查询依赖指定模块的所有上游模块（树形）"
	dependenciesToolDescription = "查询指定模块引用的所有下游模块（树形）"
	searchToolDescription       = "按路径片段搜索模块"
	listToolDescription         = "列出项目中的模块"
	mermaidToolDescription      = "生成模块依赖关系的 Mermaid 流程图，可视化模块的上下游依赖链"
)

package tools

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-imap-search/internal/config"
	"github.com/brandon/mcp-imap-search/internal/email"
	"github.com/brandon/mcp-imap-search/pkg/types"
)

// Mailbox is the set of mailbox operations the tools expose.
// *email.Manager implements it.
type Mailbox interface {
	SearchEmails(ctx context.Context, opts email.SearchOptions) (*types.SearchResult, error)
	ListMailboxes(ctx context.Context) ([]string, error)
	TestConnection(ctx context.Context) bool
	GetContentsByUIDs(ctx context.Context, refs []types.UIDRef) ([]types.MessageContent, error)
	GetContentsByMessageIDs(ctx context.Context, ids []string) ([]types.MessageContent, error)
}

// Registry manages MCP tools
type Registry struct {
	config  *config.Config
	logger  *logrus.Logger
	mailbox Mailbox
	tools   map[string]Tool
	order   []string
}

// Tool represents an MCP tool
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// NewRegistry creates a new tool registry
func NewRegistry(cfg *config.Config, mailbox Mailbox, logger *logrus.Logger) *Registry {
	reg := &Registry{
		config:  cfg,
		logger:  logger,
		mailbox: mailbox,
		tools:   make(map[string]Tool),
	}

	reg.registerTools()

	return reg
}

// registerTools registers all available tools
func (r *Registry) registerTools() {
	toolList := []Tool{
		NewSearchEmailsTool(r.config, r.mailbox, r.logger),
		NewListMailboxesTool(r.mailbox, r.logger),
		NewTestConnectionTool(r.mailbox, r.logger),
		NewContentsByUIDsTool(r.mailbox, r.logger),
		NewContentsByMessageIDsTool(toolContentsByMessageIDs, r.mailbox, r.logger),
		NewContentsByMessageIDsTool(toolContentsLegacy, r.mailbox, r.logger),
		NewCurrentDateTool(nil),
	}

	for _, tool := range toolList {
		if _, dup := r.tools[tool.Name()]; dup {
			continue
		}
		r.tools[tool.Name()] = tool
		r.order = append(r.order, tool.Name())
		r.logger.WithField("tool", tool.Name()).Debug("Registered tool")
	}

	r.logger.WithField("count", len(r.tools)).Info("Registered tools")
}

// GetTool returns a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools in registration order
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// GetToolDefinitions returns tool definitions for MCP
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	definitions := make([]map[string]interface{}, 0, len(r.order))
	for _, tool := range r.ListTools() {
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}

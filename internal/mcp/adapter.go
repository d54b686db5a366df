package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duskline/forge/internal/tool"
)

// mcpToolTimeout caps a single MCP tool call so a hung server fails fast
// and control returns to the agent loop with the rest of its step budget
// intact.
const mcpToolTimeout = 60 * time.Second

// MCPToolAdapter bridges an MCP server tool to the tool.Tool interface,
// making it indistinguishable from a native built-in tool to the agent.
//
// Naming convention: mcp_<serverName>__<toolName>. The double underscore
// cannot appear inside either component and so cannot collide.
type MCPToolAdapter struct {
	serverName string
	info       ToolInfo
	client     *Client // nil for per_call lifecycle; Execute rebuilds a connection using cfg
	cfg        ServerConfig
	lifecycle  string
}

// NewMCPToolAdapter creates an adapter for a single MCP tool. For
// persistent servers client must be non-nil.
func NewMCPToolAdapter(serverName string, info ToolInfo, client *Client, cfg ServerConfig) *MCPToolAdapter {
	lc := cfg.Lifecycle
	if lc == "" {
		lc = "persistent"
	}
	return &MCPToolAdapter{serverName: serverName, info: info, client: client, cfg: cfg, lifecycle: lc}
}

func (a *MCPToolAdapter) Name() string {
	return fmt.Sprintf("mcp_%s__%s", a.serverName, a.info.Name)
}

func (a *MCPToolAdapter) Description() string { return a.info.Description }

func (a *MCPToolAdapter) InputSchema() json.RawMessage {
	if len(a.info.InputSchema) == 0 {
		return tool.BuildSchema()
	}
	return a.info.InputSchema
}

// Execute deserializes args and delegates to the MCP server. Both
// infrastructure errors and server-reported tool errors come back as a
// non-ok tool.Result (nil Go error) so the agent loop can react gracefully
// instead of aborting the turn.
func (a *MCPToolAdapter) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var params map[string]any
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &params); err != nil {
			return tool.Failure(tool.ErrInvalidArgs, fmt.Sprintf("mcp adapter: parse args for %q: %v", a.Name(), err)), nil
		}
	}
	if a.lifecycle == "per_call" {
		return a.executePerCall(ctx, params)
	}
	return a.executePersistent(ctx, params)
}

func (a *MCPToolAdapter) executePersistent(ctx context.Context, params map[string]any) (tool.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, mcpToolTimeout)
	defer cancel()
	text, err := a.client.CallTool(callCtx, a.info.Name, params)
	if err != nil {
		return tool.Failure(tool.ErrExecError, err.Error()), nil
	}
	return tool.Success(text, nil), nil
}

// executePerCall creates an ephemeral Client, connects, calls the tool,
// then closes the connection, guaranteeing no residual process survives
// a single invocation.
func (a *MCPToolAdapter) executePerCall(ctx context.Context, params map[string]any) (tool.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, mcpToolTimeout)
	defer cancel()
	c := NewClient(a.cfg)
	if err := c.Connect(callCtx); err != nil {
		return tool.Failure(tool.ErrExecError, fmt.Sprintf("mcp per_call: connect to %q: %v", a.cfg.Name, err)), nil
	}
	defer c.Close()

	text, err := c.CallTool(callCtx, a.info.Name, params)
	if err != nil {
		return tool.Failure(tool.ErrExecError, err.Error()), nil
	}
	return tool.Success(text, nil), nil
}

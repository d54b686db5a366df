package mcp

import (
	"context"
	"encoding/json"

	"github.com/duskline/forge/internal/tool"
)

// ReloadTool lets the agent re-read mcp.json at runtime, connecting newly
// added servers (after a security scan) and tearing down removed ones,
// without restarting the process.
type ReloadTool struct {
	manager  *Manager
	registry *tool.Registry
}

func NewReloadTool(manager *Manager, registry *tool.Registry) *ReloadTool {
	return &ReloadTool{manager: manager, registry: registry}
}

func (t *ReloadTool) Name() string { return "mcp_reload" }

func (t *ReloadTool) Description() string {
	return "Re-read the MCP server configuration, connecting new servers and disconnecting removed ones."
}

func (t *ReloadTool) InputSchema() json.RawMessage {
	return tool.BuildSchema()
}

func (t *ReloadTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	summary, err := t.manager.Reload(ctx, t.registry)
	if err != nil {
		return tool.Failure(tool.ErrExecError, err.Error()), nil
	}
	return tool.Success(summary, nil), nil
}

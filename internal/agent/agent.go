package agent

import (
	"context"

	"github.com/duskline/forge/internal/conversation"
	"github.com/duskline/forge/internal/core"
	"github.com/duskline/forge/internal/guard"
	"github.com/duskline/forge/internal/interrupt"
	"github.com/duskline/forge/internal/llm"
	"github.com/duskline/forge/internal/permission"
	"github.com/duskline/forge/internal/tool"
)

// Agent wires the conversation store, tool registry, guard, permission
// system, interrupt controller and model provider into one runnable loop.
type Agent struct {
	Conversation     *conversation.Store
	Registry         *tool.Registry
	Guard            *guard.Guard
	Permissions      *permission.System
	Interrupts       *interrupt.Controller
	Provider         llm.Provider
	WorkspaceDir     string
	MaxContextTokens int
	OnChunk          llm.StreamCallback
}

// BuildAgentFlow wires DecideNode and ToolNode into a looping flow:
// DecideNode -> (tool) ToolNode -> (continue) DecideNode, DecideNode ->
// (answer/end/failure) nil.
func BuildAgentFlow() core.Workflow[State] {
	decide := core.NewNode[State, decideWork, llm.StreamResult](DecideNode{}, 0)
	act := core.NewNode[State, toolWork, toolOutcome](ToolNode{}, 0)

	decide.AddSuccessor(act, core.ActionTool)
	act.AddSuccessor(decide, core.ActionContinue)

	return core.NewFlow[State](decide)
}

// Run executes one user turn to completion: it appends userInput, drives
// the decide/act loop until a final answer, interrupt, failure, or bound is
// reached, and returns the final assistant text (empty on anything but a
// clean answer).
func (a *Agent) Run(ctx context.Context, userInput string) string {
	a.Interrupts.Clear()
	a.Conversation.Append(llm.RoleUser, userInput)

	state := &State{
		Conversation:     a.Conversation,
		Registry:         a.Registry,
		Guard:            a.Guard,
		Permissions:      a.Permissions,
		Interrupts:       a.Interrupts,
		Provider:         a.Provider,
		Tools:            toolDefinitions(a.Registry),
		WorkspaceDir:     a.WorkspaceDir,
		MaxContextTokens: a.MaxContextTokens,
		OnChunk:          a.OnChunk,
		DiffPreview:      RenderDiffPreview,
	}

	flow := BuildAgentFlow()
	flow.Run(ctx, state)
	return state.Answer()
}

// toolDefinitions converts every tool currently visible in the registry
// into the shape the model's function-calling API expects.
func toolDefinitions(registry *tool.Registry) []llm.ToolDefinition {
	tools := registry.List()
	defs := make([]llm.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		})
	}
	return defs
}

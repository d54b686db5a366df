// Package llm defines the provider-agnostic contract the agent loop talks
// to: messages, tool definitions/calls, and a single streaming operation
// that yields both text deltas and accumulated tool calls.
package llm

import (
	"context"
	"encoding/json"
)

// Role is a message's position in the conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolDefinition describes one callable tool to the model, in the shape the
// OpenAI-compatible function-calling API expects.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall is one invocation the model asked for. Arguments is kept as the
// raw JSON text the model produced — never eagerly parsed — since it is
// stored verbatim in the conversation's tool-call record.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Message is one entry in the conversation sent to/received from the model.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall // set on assistant messages that invoke tools
	ToolCallID string     // set on tool-role messages, pairs with ToolCall.ID
}

// StreamCallback receives each text delta as it arrives during a streaming
// call. It is never called with tool-call content.
type StreamCallback func(chunk string)

// StreamResult is the fully assembled outcome of a streaming call: the
// final text content (empty if the model only emitted tool calls) and the
// tool calls it requested, in order.
type StreamResult struct {
	Content   string
	ToolCalls []ToolCall
}

// Provider is the contract an LLM backend implements. A single operation
// both streams text deltas to onChunk and accumulates tool calls, because
// the agent loop needs both simultaneously from one model turn.
type Provider interface {
	// StreamChat streams one completion given the full message history and
	// tool set. onChunk may be nil, in which case no incremental text is
	// delivered but the final StreamResult is still returned.
	StreamChat(ctx context.Context, messages []Message, tools []ToolDefinition, onChunk StreamCallback) (StreamResult, error)
	// Name identifies the provider/model for logging and error messages.
	Name() string
}

package agent

import (
	"context"
	"log"

	"github.com/duskline/forge/internal/core"
	"github.com/duskline/forge/internal/llm"
)

// DecideNode runs one model turn: it truncates the conversation to fit the
// context budget, streams a completion with the full tool set, and decides
// whether the loop should dispatch tool calls, produce a final answer, or
// stop.
type DecideNode struct{}

// decideWork snapshots everything Exec needs from *State, since BaseNode's
// Exec only receives the PrepResult, not the shared state.
type decideWork struct {
	provider           llm.Provider
	messages           []llm.Message
	simplifiedMessages []llm.Message
	hasToolMessages    bool
	tools              []llm.ToolDefinition
	onChunk            llm.StreamCallback
}

func (DecideNode) Prep(state *State) []decideWork {
	if state.Interrupts.IsInterrupted() {
		state.Conversation.Append(llm.RoleAssistant, "[Interrupted by user]")
		state.done = true
		return nil
	}
	state.iterations++
	if state.iterations > MaxAgentSteps {
		log.Printf("[Agent] max steps (%d) reached", MaxAgentSteps)
		state.failed = true
		return nil
	}

	if state.MaxContextTokens > 0 {
		state.Conversation.TruncateIfNeeded(state.MaxContextTokens)
	}
	messages := state.Conversation.Messages()
	return []decideWork{{
		provider:           state.Provider,
		messages:           messages,
		simplifiedMessages: state.Conversation.MessagesSimplified(),
		hasToolMessages:    hasToolMessages(messages),
		tools:              state.Tools,
		onChunk:            state.OnChunk,
	}}
}

func hasToolMessages(messages []llm.Message) bool {
	for _, m := range messages {
		if m.Role == llm.RoleTool || (m.Role == llm.RoleAssistant && len(m.ToolCalls) > 0) {
			return true
		}
	}
	return false
}

// Exec streams one completion. If the model rejects the request outright
// and the history contains tool-call messages, it retries once with a
// simplified, tool-call-free history and no tool definitions — some models
// reject function-calling message shapes they don't support.
func (DecideNode) Exec(ctx context.Context, work decideWork) (llm.StreamResult, error) {
	result, err := work.provider.StreamChat(ctx, work.messages, work.tools, work.onChunk)
	if err == nil {
		return result, nil
	}
	if llm.IsRejectedHistory(err) && work.hasToolMessages {
		return work.provider.StreamChat(ctx, work.simplifiedMessages, nil, work.onChunk)
	}
	return llm.StreamResult{}, err
}

func (DecideNode) ExecFallback(err error) llm.StreamResult {
	return llm.StreamResult{Content: "__decide_error__"}
}

// Post records the model's turn and decides where the flow goes next:
// ActionTool when the model requested tool calls, ActionAnswer when it
// produced a final text answer, ActionFailure on an unrecoverable error,
// livelock, or when Prep hit the iteration bound, ActionEnd when Prep
// stopped for an interrupt.
func (DecideNode) Post(state *State, prepRes []decideWork, execResults ...llm.StreamResult) core.Action {
	if len(prepRes) == 0 {
		if state.failed {
			return core.ActionFailure
		}
		return core.ActionEnd
	}

	result := execResults[0]
	if result.Content == "__decide_error__" {
		return core.ActionFailure
	}

	if len(result.ToolCalls) == 0 {
		state.Conversation.Append(llm.RoleAssistant, result.Content)
		state.answer = result.Content
		state.done = true
		return core.ActionAnswer
	}

	sig := toolCallSignature(result.ToolCalls)
	if sig == state.lastToolSig {
		state.repeatedCount++
		if state.repeatedCount >= maxRepeatedToolSig {
			log.Printf("[Agent] repeated identical tool call %d times, aborting", state.repeatedCount)
			state.failed = true
			return core.ActionFailure
		}
	} else {
		state.repeatedCount = 0
		state.lastToolSig = sig
	}

	state.Conversation.AppendAssistantToolCall(result.Content, result.ToolCalls)
	state.pendingCalls = result.ToolCalls
	return core.ActionTool
}

func toolCallSignature(calls []llm.ToolCall) string {
	sig := ""
	for _, c := range calls {
		sig += c.Name + ":" + string(c.Arguments) + "|"
	}
	return sig
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/duskline/forge/internal/core"
	"github.com/duskline/forge/internal/llm"
	"github.com/duskline/forge/internal/tool"
)

// ToolNode dispatches every tool call the previous DecideNode turn
// requested, in order, through the guard and permission system, and
// records each outcome as a tool-role message.
type ToolNode struct{}

// toolWork snapshots what Exec needs to run one call.
type toolWork struct {
	call         llm.ToolCall
	workspaceDir string
	registry     *tool.Registry
	guard        interface {
		Check(toolName, action string, args json.RawMessage, schema json.RawMessage) tool.Result
	}
	permissions interface {
		CheckApproval(toolName string, args json.RawMessage) bool
	}
	diffPreview DiffPreviewFunc
}

// toolOutcome is what Exec hands back to Post for one call.
type toolOutcome struct {
	callID  string
	content string
	failed  bool
}

func (ToolNode) Prep(state *State) []toolWork {
	work := make([]toolWork, 0, len(state.pendingCalls))
	for _, call := range state.pendingCalls {
		if state.Interrupts.IsInterrupted() {
			state.Conversation.Append(llm.RoleAssistant, "[Interrupted by user during tool execution]")
			state.done = true
			return nil
		}
		work = append(work, toolWork{
			call:         call,
			workspaceDir: state.WorkspaceDir,
			registry:     state.Registry,
			guard:        state.Guard,
			permissions:  state.Permissions,
			diffPreview:  state.DiffPreview,
		})
	}
	return work
}

func (ToolNode) Exec(ctx context.Context, w toolWork) (toolOutcome, error) {
	var args map[string]any
	if err := json.Unmarshal(w.call.Arguments, &args); err != nil {
		return toolOutcome{
			callID:  w.call.ID,
			content: jsonError(fmt.Sprintf("invalid JSON in tool arguments: %v", err)),
			failed:  true,
		}, nil
	}

	t, ok := w.registry.Get(w.call.Name)
	if !ok {
		return toolOutcome{callID: w.call.ID, content: jsonError(fmt.Sprintf("unknown tool %q", w.call.Name)), failed: true}, nil
	}

	guardResult := w.guard.Check(w.call.Name, "", w.call.Arguments, t.InputSchema())
	if !guardResult.OK {
		return toolOutcome{callID: w.call.ID, content: jsonError(string(guardResult.ErrorCode) + ": " + guardResult.Message), failed: true}, nil
	}

	if w.call.Name == "file_edit" && w.diffPreview != nil {
		w.diffPreview(w.workspaceDir, w.call.Arguments)
	}

	if !w.permissions.CheckApproval(w.call.Name, w.call.Arguments) {
		return toolOutcome{
			callID:  w.call.ID,
			content: jsonErrorOutput("User denied permission to execute this tool", ""),
			failed:  false,
		}, nil
	}

	result, err := t.Execute(ctx, w.call.Arguments)
	if err != nil {
		log.Printf("[Agent] tool %q infra error: %v", w.call.Name, err)
		return toolOutcome{callID: w.call.ID, content: jsonError(err.Error()), failed: true}, nil
	}
	if !result.OK {
		return toolOutcome{
			callID:  w.call.ID,
			content: jsonErrorOutput(result.Message, string(result.Data)),
			failed:  true,
		}, nil
	}

	content := string(result.Data)
	if content == "" {
		content = result.Message
	}
	if result.Message != "" && result.Data != nil {
		content = jsonMessageOutput(result.Message, string(result.Data))
	}
	return toolOutcome{callID: w.call.ID, content: content, failed: false}, nil
}

func (ToolNode) ExecFallback(err error) toolOutcome {
	return toolOutcome{content: jsonError(fmt.Sprintf("tool execution failed: %v", err)), failed: true}
}

// Post appends every outcome to the conversation and tracks consecutive
// failures. The interrupt flag is checked only in Prep, before any call of
// the batch runs: once a batch is dispatched all of its calls run, and an
// interrupt raised meanwhile is handled by DecideNode's next Prep.
func (ToolNode) Post(state *State, prepRes []toolWork, execResults ...toolOutcome) core.Action {
	if len(prepRes) == 0 {
		if state.done {
			return core.ActionEnd
		}
		// pendingCalls was empty to begin with; nothing to do.
		return core.ActionContinue
	}

	for _, outcome := range execResults {
		state.Conversation.AppendToolResult(outcome.callID, outcome.content)
		if outcome.failed {
			state.consecutiveFailures++
			if state.consecutiveFailures >= maxConsecutiveFail {
				log.Printf("[Agent] %d consecutive tool failures", state.consecutiveFailures)
			}
		} else {
			state.consecutiveFailures = 0
		}
	}

	if state.done {
		return core.ActionEnd
	}
	return core.ActionContinue
}

func jsonError(msg string) string {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	return string(raw)
}

func jsonErrorOutput(msg, output string) string {
	raw, _ := json.Marshal(map[string]string{"error": msg, "output": truncateOutput(output)})
	return string(raw)
}

func jsonMessageOutput(msg, output string) string {
	raw, _ := json.Marshal(map[string]string{"message": msg, "output": truncateOutput(output)})
	return string(raw)
}

const maxToolOutputChars = 8000

func truncateOutput(s string) string {
	if len(s) <= maxToolOutputChars {
		return s
	}
	return s[:maxToolOutputChars] + fmt.Sprintf("\n... (output truncated, %d chars total)", len(s))
}

// Package agent implements the agent loop: a decide/act cycle that streams
// a model completion, dispatches any requested tool calls through the
// guard and permission system, and repeats until the model produces a
// final answer or a bound is hit.
package agent

import (
	"os"
	"strconv"

	"github.com/duskline/forge/internal/conversation"
	"github.com/duskline/forge/internal/guard"
	"github.com/duskline/forge/internal/interrupt"
	"github.com/duskline/forge/internal/llm"
	"github.com/duskline/forge/internal/permission"
	"github.com/duskline/forge/internal/tool"
)

// MaxAgentSteps bounds how many decide/act iterations one Run call may take,
// configurable via AGENT_MAX_STEPS (clamped to [5, 200]).
var MaxAgentSteps = loadMaxSteps()

const (
	maxRepeatedToolSig = 4
	maxConsecutiveFail = 3
)

func loadMaxSteps() int {
	const def = 40
	v := os.Getenv("AGENT_MAX_STEPS")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < 5 {
		return 5
	}
	if n > 200 {
		return 200
	}
	return n
}

// State is the shared context threaded through every node of one Run call.
type State struct {
	Conversation *conversation.Store
	Registry     *tool.Registry
	Guard        *guard.Guard
	Permissions  *permission.System
	Interrupts   *interrupt.Controller
	Provider     llm.Provider
	Tools        []llm.ToolDefinition

	WorkspaceDir     string
	MaxContextTokens int
	OnChunk          llm.StreamCallback
	DiffPreview      DiffPreviewFunc

	iterations          int
	lastToolSig         string
	repeatedCount       int
	consecutiveFailures int
	pendingCalls        []llm.ToolCall

	answer  string
	done    bool
	failed  bool
	lastErr error
}

// Answer returns the final assistant text once Run has completed, or "" if
// the loop ended without producing one (interrupted, bounded out, failed).
func (s *State) Answer() string {
	return s.answer
}

// Package conversation implements the append-only message store the agent
// loop reads from and writes to each turn, including the token-budget
// compaction algorithm that keeps long-running sessions within the model's
// context window.
package conversation

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/duskline/forge/internal/llm"
)

const (
	// pruneThresholdChars is the minimum content length a tool-result
	// message must have before it is a candidate for truncation during
	// compaction's first phase.
	pruneThresholdChars = 1000
	// pruneKeepChars is how much of a pruned tool-result message survives.
	pruneKeepChars = 1000
	// toolCallTokenOverhead is the flat per-message token estimate added
	// for any message that carries tool calls, under the character
	// heuristic fallback.
	toolCallTokenOverhead = 50
	// charsPerToken approximates token count from content length when no
	// real tokenizer is available.
	charsPerToken = 4
)

// Store is the thread-safe, append-only conversation history for one agent
// session. The first message, if any, is treated as the stable system
// prompt and is never pruned.
type Store struct {
	mu       sync.Mutex
	messages []llm.Message
	cache    *int // cached token estimate, invalidated on every mutation
}

// New creates an empty Store, optionally seeded with a system prompt.
func New(systemPrompt string) *Store {
	s := &Store{}
	if systemPrompt != "" {
		s.messages = append(s.messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	return s
}

func (s *Store) invalidate() {
	s.cache = nil
}

// Append adds a plain message (user or assistant-without-tool-calls).
func (s *Store) Append(role llm.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, llm.Message{Role: role, Content: content})
	s.invalidate()
}

// AppendAssistantToolCall records an assistant turn that invoked tools.
// Tool-call argument strings are stored verbatim, exactly as the model
// produced them — never re-serialized or reparsed.
func (s *Store) AppendAssistantToolCall(content string, calls []llm.ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, llm.Message{Role: llm.RoleAssistant, Content: content, ToolCalls: calls})
	s.invalidate()
}

// AppendToolResult records the outcome of one tool call, paired to its
// originating ToolCall.ID.
func (s *Store) AppendToolResult(toolCallID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, llm.Message{Role: llm.RoleTool, Content: content, ToolCallID: toolCallID})
	s.invalidate()
}

// Messages returns a copy of the full message history.
func (s *Store) Messages() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// MessagesSimplified flattens assistant+tool_calls runs and their paired
// tool results into single assistant text messages, for models/providers
// that reject tool-formatted message histories. Orphaned tool messages
// (no matching preceding assistant tool call) are dropped silently.
func (s *Store) MessagesSimplified() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]llm.Message, 0, len(s.messages))
	i := 0
	for i < len(s.messages) {
		msg := s.messages[i]
		if msg.Role == llm.RoleAssistant && len(msg.ToolCalls) > 0 {
			resultsByID := map[string]string{}
			j := i + 1
			for j < len(s.messages) && s.messages[j].Role == llm.RoleTool {
				resultsByID[s.messages[j].ToolCallID] = s.messages[j].Content
				j++
			}
			var parts []string
			for _, tc := range msg.ToolCalls {
				parts = append(parts, "[Tool: "+tc.Name+"("+string(tc.Arguments)+")]")
				if res, ok := resultsByID[tc.ID]; ok {
					result := res
					if len(result) > 300 {
						result = result[:300]
					}
					parts = append(parts, "[Result: "+result+"]")
				}
			}
			text := msg.Content
			if len(parts) > 0 {
				text = joinLines(parts)
			} else if text == "" {
				text = "[Tool call]"
			}
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: text})
			i = j
			continue
		}
		if msg.Role == llm.RoleTool {
			// Orphaned tool result with no preceding assistant tool call.
			i++
			continue
		}
		out = append(out, msg)
		i++
	}
	return out
}

func joinLines(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n" + p
	}
	return out
}

// Clear drops every message except the system prompt, if one is present.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) > 0 && s.messages[0].Role == llm.RoleSystem {
		s.messages = s.messages[:1]
	} else {
		s.messages = nil
	}
	s.invalidate()
}

// TokenCount returns the cached (or freshly computed) token estimate.
func (s *Store) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimateTokensLocked()
}

func (s *Store) estimateTokensLocked() int {
	if s.cache != nil {
		return *s.cache
	}
	total := 0
	for _, m := range s.messages {
		total += len(m.Content) / charsPerToken
		if len(m.ToolCalls) > 0 {
			total += toolCallTokenOverhead
		}
	}
	s.cache = &total
	return total
}

// TruncateIfNeeded runs the two-phase compaction loop until the estimated
// token count is within maxTokens or no further reduction is possible.
// Phase one truncates the oldest over-threshold tool-result message; phase
// two, once phase one has nothing left to do, drops the oldest non-system
// message (and, if it is an assistant tool-call message, every tool-result
// message immediately following it).
func (s *Store) TruncateIfNeeded(maxTokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevEstimate := -1
	for {
		estimate := s.estimateTokensLocked()
		if estimate <= maxTokens || estimate == prevEstimate {
			return
		}
		prevEstimate = estimate

		if s.pruneOldestToolOutputLocked() {
			s.invalidate()
			continue
		}
		if s.removeOldestMessagePairLocked() {
			s.invalidate()
			continue
		}
		return
	}
}

func (s *Store) pruneOldestToolOutputLocked() bool {
	for i, m := range s.messages {
		if m.Role == llm.RoleTool && len(m.Content) > pruneThresholdChars && !strings.HasSuffix(m.Content, "\n...[truncated]") {
			s.messages[i].Content = m.Content[:pruneKeepChars] + "\n...[truncated]"
			return true
		}
	}
	return false
}

func (s *Store) removeOldestMessagePairLocked() bool {
	start := 0
	if len(s.messages) > 0 && s.messages[0].Role == llm.RoleSystem {
		start = 1
	}
	if start >= len(s.messages) {
		return false
	}

	victim := s.messages[start]
	toRemove := []int{start}
	if victim.Role == llm.RoleAssistant && len(victim.ToolCalls) > 0 {
		for j := start + 1; j < len(s.messages) && s.messages[j].Role == llm.RoleTool; j++ {
			toRemove = append(toRemove, j)
		}
	}

	removeSet := map[int]bool{}
	for _, idx := range toRemove {
		removeSet[idx] = true
	}
	out := make([]llm.Message, 0, len(s.messages)-len(toRemove))
	for i, m := range s.messages {
		if !removeSet[i] {
			out = append(out, m)
		}
	}
	s.messages = out
	return true
}

// MarshalJSON supports persisting a snapshot of the store (used by
// internal/session when saving a transcript).
func (s *Store) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.messages)
}

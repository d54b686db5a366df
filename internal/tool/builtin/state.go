package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/duskline/forge/internal/tool"
)

// SessionState is a session-scoped key/value store shared by StateGetTool
// and StateSetTool. It is never persisted across restarts, and distinct
// sessions must be given distinct instances.
type SessionState struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

func NewSessionState() *SessionState {
	return &SessionState{values: make(map[string]json.RawMessage)}
}

func (s *SessionState) set(key string, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *SessionState) get(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// StateSetTool stores a JSON-serializable value under a key for the
// lifetime of the current session. Prefer this sparingly: state that
// outlives the in-memory tool instance belongs in the conversation itself.
type StateSetTool struct{ Store *SessionState }

func NewStateSetTool(store *SessionState) *StateSetTool { return &StateSetTool{Store: store} }

func (t *StateSetTool) Name() string { return "state_set" }
func (t *StateSetTool) Description() string {
	return "Store a JSON-serializable value under a key for the current session."
}
func (t *StateSetTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "key", Type: "string", Required: true},
		tool.SchemaParam{Name: "value", Required: true},
	)
}

func (t *StateSetTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	if a.Key == "" {
		return tool.Failure(tool.ErrInvalidArgs, "key must be a non-empty string"), nil
	}
	t.Store.set(a.Key, a.Value)
	return tool.Success(fmt.Sprintf("stored key %q", a.Key), map[string]any{"key": a.Key, "stored": true}), nil
}

// StateGetTool retrieves a value previously stored with state_set.
type StateGetTool struct{ Store *SessionState }

func NewStateGetTool(store *SessionState) *StateGetTool { return &StateGetTool{Store: store} }

func (t *StateGetTool) Name() string { return "state_get" }
func (t *StateGetTool) Description() string {
	return "Retrieve a value previously stored with state_set. Returns found=false when the key is missing."
}
func (t *StateGetTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(tool.SchemaParam{Name: "key", Type: "string", Required: true})
}

func (t *StateGetTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	value, found := t.Store.get(a.Key)
	data := map[string]any{"key": a.Key, "found": found}
	if found {
		data["value"] = value
	} else {
		data["value"] = nil
	}
	status := "not found"
	if found {
		status = "found"
	}
	return tool.Success(fmt.Sprintf("key %q %s", a.Key, status), data), nil
}

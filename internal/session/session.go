// Package session implements the append-only transcript store behind
// `--resume`: one JSON-lines file per session, keyed by UUID, with enough
// metadata to list past sessions and to replay one into a fresh
// conversation.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/duskline/forge/internal/conversation"
	"github.com/duskline/forge/internal/llm"
)

// titleMaxChars bounds how much of the first user message becomes the
// session's display title.
const titleMaxChars = 80

// record is one JSON line in a session's transcript file.
type record struct {
	Time       time.Time      `json:"time"`
	Role       llm.Role       `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// Meta describes a session for listing purposes, without loading its full
// transcript.
type Meta struct {
	ID      string
	Title   string
	Updated time.Time
}

// Store manages transcript files under a directory, one file per session.
type Store struct {
	dir string
}

// NewStore opens (creating if necessary) a session store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// New allocates a fresh session ID. The transcript file is created lazily
// on the first Append.
func (s *Store) New() string {
	return uuid.NewString()
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

// Append writes one message to the session's transcript, creating the file
// on first use.
func (s *Store) Append(id string, msg llm.Message) error {
	f, err := os.OpenFile(s.path(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session %s: %w", id, err)
	}
	defer f.Close()

	rec := record{
		Time:       time.Now().UTC(),
		Role:       msg.Role,
		Content:    msg.Content,
		ToolCalls:  msg.ToolCalls,
		ToolCallID: msg.ToolCallID,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	return nil
}

// Load reads a session's full transcript in order.
func (s *Store) Load(id string) ([]llm.Message, error) {
	f, err := os.Open(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}
	defer f.Close()

	var messages []llm.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", id, err)
		}
		messages = append(messages, llm.Message{
			Role:       rec.Role,
			Content:    rec.Content,
			ToolCalls:  rec.ToolCalls,
			ToolCallID: rec.ToolCallID,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan session %s: %w", id, err)
	}
	return messages, nil
}

// List returns metadata for every session in the store, most recently
// updated first.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var metas []Meta
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".jsonl")]
		info, err := e.Info()
		if err != nil {
			continue
		}
		title, err := s.Title(id)
		if err != nil {
			title = ""
		}
		metas = append(metas, Meta{ID: id, Title: title, Updated: info.ModTime()})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Updated.After(metas[j].Updated) })
	return metas, nil
}

// Title returns the first <=80 chars of the session's first user message.
func (s *Store) Title(id string) (string, error) {
	messages, err := s.Load(id)
	if err != nil {
		return "", err
	}
	for _, m := range messages {
		if m.Role == llm.RoleUser {
			return truncateTitle(m.Content), nil
		}
	}
	return "", nil
}

func truncateTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxChars {
		return content
	}
	return string(runes[:titleMaxChars])
}

// ReplayInto re-populates conv with history, skipping any leading system
// message in favor of conv's own (conv must already be constructed with the
// fresh system prompt via conversation.New).
func ReplayInto(conv *conversation.Store, history []llm.Message) {
	for _, m := range history {
		switch m.Role {
		case llm.RoleSystem:
			continue
		case llm.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				conv.AppendAssistantToolCall(m.Content, m.ToolCalls)
			} else {
				conv.Append(m.Role, m.Content)
			}
		case llm.RoleTool:
			conv.AppendToolResult(m.ToolCallID, m.Content)
		default:
			conv.Append(m.Role, m.Content)
		}
	}
}

// Package guard implements the ordered safety checks every tool call passes
// through before execution: policy deny-list, schema validation, workspace
// path containment, and an append-only audit log of every check performed.
package guard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/duskline/forge/internal/tool"
)

// Policy is the deny-list configuration. A tool or tool+action pair listed
// here is refused before its arguments are even schema-checked.
type Policy struct {
	DenyTools   []string            `yaml:"deny_tools"`
	DenyActions map[string][]string `yaml:"deny_actions"`
}

func (p Policy) deniesTool(name string) bool {
	for _, t := range p.DenyTools {
		if t == name {
			return true
		}
	}
	return false
}

func (p Policy) deniesAction(name, action string) bool {
	for _, a := range p.DenyActions[name] {
		if a == action {
			return true
		}
	}
	return false
}

// Guard is the 4-step check pipeline: policy deny-list, schema validation,
// workspace path containment, audit log.
type Guard struct {
	WorkspaceRoot string
	Policy        Policy

	mu      sync.Mutex
	logPath string
}

// New builds a Guard rooted at workspaceRoot, logging audit entries to
// logPath (created on first use if it doesn't exist).
func New(workspaceRoot string, policy Policy, logPath string) *Guard {
	return &Guard{WorkspaceRoot: workspaceRoot, Policy: policy, logPath: logPath}
}

// AuditEntry is one JSON line appended to the audit log per call checked,
// regardless of the check's outcome.
type AuditEntry struct {
	Time      string          `json:"time"`
	Tool      string          `json:"tool"`
	Args      json.RawMessage `json:"args,omitempty"`
	Allowed   bool            `json:"allowed"`
	ErrorCode tool.ErrorCode  `json:"error_code,omitempty"`
}

// Check runs the 4-step pipeline against a proposed tool call. schema is the
// tool's own JSON Schema (used for required-field/type validation); action,
// when non-empty, is matched against Policy.DenyActions.
func (g *Guard) Check(toolName, action string, args json.RawMessage, schema json.RawMessage) tool.Result {
	result := g.check(toolName, action, args, schema)
	g.audit(toolName, args, result)
	return result
}

func (g *Guard) check(toolName, action string, args json.RawMessage, schema json.RawMessage) tool.Result {
	if g.Policy.deniesTool(toolName) {
		return tool.Failure(tool.ErrDeniedByPolicy, fmt.Sprintf("tool %q is denied by policy", toolName))
	}
	if action != "" && g.Policy.deniesAction(toolName, action) {
		return tool.Failure(tool.ErrDeniedByPolicy, fmt.Sprintf("action %q of tool %q is denied by policy", action, toolName))
	}

	var parsed map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &parsed); err != nil {
			return tool.Failure(tool.ErrInvalidArgs, "arguments are not a valid JSON object")
		}
	} else {
		parsed = map[string]any{}
	}
	if err := validateSchema(parsed, schema); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, err.Error())
	}

	if raw, ok := parsed["path"]; ok {
		if pathStr, ok := raw.(string); ok && !strings.Contains(pathStr, "\n") {
			if _, err := ResolveInWorkspace(g.WorkspaceRoot, pathStr); err != nil {
				return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error())
			}
		}
	}

	return tool.Success("", nil)
}

func (g *Guard) audit(toolName string, args json.RawMessage, result tool.Result) {
	if g.logPath == "" {
		return
	}
	entry := AuditEntry{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Tool:      toolName,
		Args:      args,
		Allowed:   result.OK,
		ErrorCode: result.ErrorCode,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	f, err := os.OpenFile(g.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(append(line, '\n'))
}

var typeCheckers = map[string]func(any) bool{
	"string":  func(v any) bool { _, ok := v.(string); return ok },
	"integer": isInteger,
	"number":  func(v any) bool { _, ok := v.(float64); return ok },
	"boolean": func(v any) bool { _, ok := v.(bool); return ok },
	"array":   func(v any) bool { _, ok := v.([]any); return ok },
	"object":  func(v any) bool { _, ok := v.(map[string]any); return ok },
}

func isInteger(v any) bool {
	f, ok := v.(float64)
	if !ok {
		return false
	}
	return f == float64(int64(f))
}

type schemaDoc struct {
	Type       string                     `json:"type"`
	Properties map[string]json.RawMessage `json:"properties"`
	Required   []string                   `json:"required"`
}

type propDoc struct {
	Type string `json:"type"`
}

// validateSchema checks required fields are present and that present fields
// match their declared JSON Schema type.
func validateSchema(args map[string]any, schema json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	var doc schemaDoc
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil
	}
	for _, req := range doc.Required {
		if _, ok := args[req]; !ok {
			return fmt.Errorf("missing required argument %q", req)
		}
	}
	for name, raw := range doc.Properties {
		val, present := args[name]
		if !present {
			continue
		}
		var p propDoc
		if err := json.Unmarshal(raw, &p); err != nil || p.Type == "" {
			continue
		}
		checker, ok := typeCheckers[p.Type]
		if !ok {
			continue
		}
		if !checker(val) {
			return fmt.Errorf("argument %q must be of type %s", name, p.Type)
		}
	}
	return nil
}

// ResolveInWorkspace resolves relPath against root, following symlinks on
// both the workspace root and the target, and verifies the result stays
// within root. Opening-then-stating is left to each tool (TOCTOU-safe);
// this only performs the lexical/symlink containment check.
func ResolveInWorkspace(root, relPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		resolvedRoot = absRoot
	}

	var candidate string
	if filepath.IsAbs(relPath) {
		candidate = filepath.Clean(relPath)
	} else {
		candidate = filepath.Clean(filepath.Join(resolvedRoot, relPath))
	}

	resolvedTarget := resolveExisting(candidate)

	checkRoot, checkTarget := resolvedRoot, resolvedTarget
	if runtime.GOOS == "windows" {
		checkRoot = strings.ToLower(checkRoot)
		checkTarget = strings.ToLower(checkTarget)
	}
	if checkTarget != checkRoot && !strings.HasPrefix(checkTarget, checkRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes workspace root", relPath)
	}
	return resolvedTarget, nil
}

// resolveExisting walks up from path until it finds an existing ancestor,
// resolves symlinks on that ancestor, then rejoins the remaining suffix —
// this lets the containment check work even for paths that don't exist yet
// (e.g. a file about to be created).
func resolveExisting(path string) string {
	suffix := ""
	cur := path
	for {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(resolved, suffix)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path
		}
		suffix = filepath.Join(filepath.Base(cur), suffix)
		cur = parent
	}
}

// ParsePositiveInt is a small helper shared by builtin tools that accept
// numeric limits as either JSON numbers or strings.
func ParsePositiveInt(v any, def int) int {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return int(n)
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil && i > 0 {
			return i
		}
	}
	return def
}

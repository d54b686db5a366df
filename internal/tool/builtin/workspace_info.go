package builtin

import (
	"context"
	"encoding/json"
	"os/exec"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/duskline/forge/internal/tool"
)

var runtimeProbes = map[string][]string{
	"go":      {"go", "version"},
	"python":  {"python3", "--version"},
	"node":    {"node", "--version"},
	"java":    {"java", "-version"},
}

var toolProbes = []string{"git", "rg", "go", "npm", "pytest", "ruff", "eslint", "mypy", "pyright", "tsc", "cargo", "make", "docker"}

var versionRe = regexp.MustCompile(`(\d+\.\d+[.\d]*)`)

// WorkspaceInfoTool probes the host environment once and caches the result:
// OS, available language runtimes, CLI tools on PATH, and whether the
// workspace is a git repository.
type WorkspaceInfoTool struct {
	WorkspaceDir string

	mu    sync.Mutex
	cache map[string]any
}

func NewWorkspaceInfoTool(workspaceDir string) *WorkspaceInfoTool {
	return &WorkspaceInfoTool{WorkspaceDir: workspaceDir}
}

func (t *WorkspaceInfoTool) Name() string { return "workspace_info" }
func (t *WorkspaceInfoTool) Description() string {
	return "Return a structured snapshot of the workspace environment: OS, runtimes, and available CLI tools. Cached after first call."
}
func (t *WorkspaceInfoTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(tool.SchemaParam{Name: "refresh", Type: "boolean"})
}

func (t *WorkspaceInfoTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Refresh bool `json:"refresh"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cache != nil && !a.Refresh {
		return tool.Success("workspace info (cached)", t.cache), nil
	}

	data := map[string]any{
		"workspace_root": t.WorkspaceDir,
		"os":             runtime.GOOS,
		"runtimes":       probeRuntimes(ctx),
		"tools":          probeTools(ctx),
	}
	present, repoRoot := probeGit(ctx, t.WorkspaceDir)
	data["git_present"] = present
	data["git_repo_root"] = repoRoot

	t.cache = data
	return tool.Success("workspace info probed successfully", data), nil
}

func probeRuntimes(ctx context.Context) map[string]any {
	out := make(map[string]any, len(runtimeProbes))
	for name, cmd := range runtimeProbes {
		version, path, ok := probeOne(ctx, cmd)
		if ok {
			out[name] = map[string]any{"available": true, "version": version, "path": path}
		} else {
			out[name] = map[string]any{"available": false}
		}
	}
	return out
}

func probeOne(ctx context.Context, cmdline []string) (version, path string, ok bool) {
	resolved, err := exec.LookPath(cmdline[0])
	if err != nil {
		return "", "", false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, cmdline[0], cmdline[1:]...)
	out, _ := cmd.CombinedOutput()
	m := versionRe.FindString(string(out))
	if m == "" {
		m = "unknown"
	}
	return m, resolved, true
}

func probeTools(ctx context.Context) map[string]any {
	out := make(map[string]any, len(toolProbes))
	for _, name := range toolProbes {
		if path, err := exec.LookPath(name); err == nil {
			out[name] = map[string]any{"available": true, "path": path}
		} else {
			out[name] = map[string]any{"available": false}
		}
	}
	return out
}

func probeGit(ctx context.Context, workspaceDir string) (bool, string) {
	if _, err := exec.LookPath("git"); err != nil {
		return false, ""
	}
	out, err := runGit(ctx, workspaceDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return true, ""
	}
	return true, trimTrailingNewline(out)
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

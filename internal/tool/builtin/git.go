package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/duskline/forge/internal/tool"
)

const gitTimeout = 15 * time.Second

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// classifyGitErr maps a failing git invocation's combined output onto the
// git error kind: a repo-less workspace gets its own code since it's a
// distinct, common, non-transient condition.
func classifyGitErr(out string) tool.ErrorCode {
	if strings.Contains(out, "not a git repository") {
		return tool.ErrNotARepo
	}
	return tool.ErrGitError
}

// GitStatusTool reports the working tree status.
type GitStatusTool struct{ WorkspaceDir string }

func NewGitStatusTool(workspaceDir string) *GitStatusTool { return &GitStatusTool{WorkspaceDir: workspaceDir} }

func (t *GitStatusTool) Name() string                 { return "git_status" }
func (t *GitStatusTool) Description() string          { return "Show the git working tree status." }
func (t *GitStatusTool) InputSchema() json.RawMessage { return tool.BuildSchema() }
func (t *GitStatusTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	out, err := runGit(ctx, t.WorkspaceDir, "status", "--short", "--branch")
	if err != nil {
		return tool.Failure(classifyGitErr(out), out), nil
	}
	return tool.Success("", map[string]string{"output": out}), nil
}

// GitDiffTool shows unstaged or staged diffs, optionally scoped to a path.
type GitDiffTool struct{ WorkspaceDir string }

func NewGitDiffTool(workspaceDir string) *GitDiffTool { return &GitDiffTool{WorkspaceDir: workspaceDir} }

func (t *GitDiffTool) Name() string        { return "git_diff" }
func (t *GitDiffTool) Description() string { return "Show a git diff, optionally staged and/or scoped to a path." }
func (t *GitDiffTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "staged", Type: "boolean"},
		tool.SchemaParam{Name: "path", Type: "string"},
	)
}

func (t *GitDiffTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Staged bool   `json:"staged"`
		Path   string `json:"path"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
		}
	}
	gitArgs := []string{"diff"}
	if a.Staged {
		gitArgs = append(gitArgs, "--staged")
	}
	if a.Path != "" {
		gitArgs = append(gitArgs, "--", a.Path)
	}
	out, err := runGit(ctx, t.WorkspaceDir, gitArgs...)
	if err != nil {
		return tool.Failure(classifyGitErr(out), out), nil
	}
	if out == "" {
		out = "(no changes)"
	}
	return tool.Success("", map[string]string{"output": truncateLine2(out)}), nil
}

func truncateLine2(s string) string {
	const max = 8000
	if len(s) > max {
		return s[:max] + "\n... (diff truncated)"
	}
	return s
}

// GitCommitTool stages all changes and commits with a message. It requires
// confirmed=true so a model can't commit as a side effect of exploring the
// repo — the same pattern original_source uses for any write that mutates
// history.
type GitCommitTool struct{ WorkspaceDir string }

func NewGitCommitTool(workspaceDir string) *GitCommitTool { return &GitCommitTool{WorkspaceDir: workspaceDir} }

func (t *GitCommitTool) Name() string        { return "git_commit" }
func (t *GitCommitTool) Description() string { return "Stage all changes and create a git commit." }
func (t *GitCommitTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "message", Type: "string", Required: true},
		tool.SchemaParam{Name: "confirmed", Type: "boolean", Required: true},
	)
}

func (t *GitCommitTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Message   string `json:"message"`
		Confirmed bool   `json:"confirmed"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	if strings.TrimSpace(a.Message) == "" {
		return tool.Failure(tool.ErrInvalidArgs, "commit message must not be empty"), nil
	}
	if !a.Confirmed {
		return tool.Failure(tool.ErrConfirmationRequired, "commit requires confirmed=true"), nil
	}

	if out, err := runGit(ctx, t.WorkspaceDir, "add", "-A"); err != nil {
		return tool.Failure(tool.ErrGitAddFailed, out), nil
	}

	staged, err := runGit(ctx, t.WorkspaceDir, "diff", "--cached", "--name-only")
	if err != nil {
		return tool.Failure(classifyGitErr(staged), staged), nil
	}
	committedFiles := splitNonEmptyLines(staged)
	if len(committedFiles) == 0 {
		return tool.Failure(tool.ErrNothingToCommit, "no changes are staged to commit"), nil
	}

	out, err := runGit(ctx, t.WorkspaceDir, "commit", "-m", a.Message)
	if err != nil {
		return tool.Failure(tool.ErrCommitFailed, out), nil
	}

	hashOut, err := runGit(ctx, t.WorkspaceDir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return tool.Failure(classifyGitErr(hashOut), hashOut), nil
	}

	return tool.Success(fmt.Sprintf("committed: %s", a.Message), map[string]any{
		"commit_hash":     strings.TrimSpace(hashOut),
		"committed_files": committedFiles,
	}), nil
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

package builtin

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/duskline/forge/internal/tool"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	run("add", "-A")
	run("commit", "-m", "initial")
	return dir
}

func TestGitStatusTool(t *testing.T) {
	dir := initGitRepo(t)
	gt := NewGitStatusTool(dir)
	result, err := gt.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("expected success, got: %+v", result)
	}
}

func TestGitDiffTool_NoChanges(t *testing.T) {
	dir := initGitRepo(t)
	gt := NewGitDiffTool(dir)
	result, err := gt.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("expected success, got: %+v", result)
	}
}

func TestGitDiffTool_WithChanges(t *testing.T) {
	dir := initGitRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello\nworld\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	gt := NewGitDiffTool(dir)
	result, err := gt.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("expected success, got: %+v", result)
	}
	if got := resultOutput(t, result); got == "(no changes)" {
		t.Errorf("expected a non-empty diff, got %q", got)
	}
}

func TestGitCommitTool_RequiresConfirmation(t *testing.T) {
	dir := initGitRepo(t)
	ct := NewGitCommitTool(dir)
	args, _ := json.Marshal(map[string]any{"message": "test commit", "confirmed": false})
	result, err := ct.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK || result.ErrorCode != tool.ErrConfirmationRequired {
		t.Errorf("expected ErrConfirmationRequired without confirmation, got: %+v", result)
	}
}

func TestGitCommitTool_RejectsEmptyMessage(t *testing.T) {
	dir := initGitRepo(t)
	ct := NewGitCommitTool(dir)
	args, _ := json.Marshal(map[string]any{"message": "  ", "confirmed": true})
	result, err := ct.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK || result.ErrorCode != tool.ErrInvalidArgs {
		t.Errorf("expected ErrInvalidArgs for empty message, got: %+v", result)
	}
}

func TestGitCommitTool_Commits(t *testing.T) {
	dir := initGitRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("new file\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	ct := NewGitCommitTool(dir)
	args, _ := json.Marshal(map[string]any{"message": "add b.txt", "confirmed": true})
	result, err := ct.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("expected success, got: %+v", result)
	}
	var data struct {
		CommitHash     string   `json:"commit_hash"`
		CommittedFiles []string `json:"committed_files"`
	}
	if err := json.Unmarshal(result.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.CommitHash == "" {
		t.Errorf("expected a non-empty commit_hash, got: %+v", data)
	}
	if len(data.CommittedFiles) != 1 || data.CommittedFiles[0] != "b.txt" {
		t.Errorf("expected committed_files=[b.txt], got: %+v", data.CommittedFiles)
	}

	st := NewGitStatusTool(dir)
	statusResult, err := st.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resultOutput(t, statusResult); got == "" {
		t.Errorf("expected status output")
	}
}

func TestGitCommitTool_NothingToCommit(t *testing.T) {
	dir := initGitRepo(t)
	ct := NewGitCommitTool(dir)
	args, _ := json.Marshal(map[string]any{"message": "no-op", "confirmed": true})
	result, err := ct.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK || result.ErrorCode != tool.ErrNothingToCommit {
		t.Errorf("expected ErrNothingToCommit, got: %+v", result)
	}
}

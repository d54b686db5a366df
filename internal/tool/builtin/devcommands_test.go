package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/duskline/forge/internal/tool"
)

func writeGoModWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/x\n\ngo 1.22\n"), 0644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	return dir
}

func resultData(t *testing.T, r tool.Result) map[string]any {
	t.Helper()
	var data map[string]any
	if len(r.Data) == 0 {
		return data
	}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		t.Fatalf("decode Data: %v", err)
	}
	return data
}

func TestRunTestsTool_DetectsGo(t *testing.T) {
	dir := writeGoModWorkspace(t)
	rt := NewRunTestsTool(dir)
	args, _ := json.Marshal(map[string]any{"command": "echo ok"})
	result, err := rt.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("expected success, got: %+v", result)
	}
	data := resultData(t, result)
	if data["command_run"] != "echo ok" {
		t.Errorf("command_run = %v", data["command_run"])
	}
}

func TestRunTestsTool_NoDetection(t *testing.T) {
	dir := t.TempDir()
	rt := &RunTestsTool{WorkspaceDir: dir}
	result, err := rt.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK || result.ErrorCode != tool.ErrCommandRequired {
		t.Errorf("expected ErrCommandRequired when nothing is detectable and pytest/npm absent, got: %+v", result)
	}
}

func TestRunTestsTool_FailureReported(t *testing.T) {
	dir := t.TempDir()
	rt := NewRunTestsTool(dir)
	args, _ := json.Marshal(map[string]any{"command": "exit 1"})
	result, err := rt.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("a failing test run is still a successful tool invocation, got: %+v", result)
	}
	data := resultData(t, result)
	if passed, _ := data["passed"].(bool); passed {
		t.Errorf("expected passed=false")
	}
	if len(result.Warnings) == 0 {
		t.Errorf("expected a warning for failed tests")
	}
}

func TestRunLintTool_DetectsGoVet(t *testing.T) {
	dir := writeGoModWorkspace(t)
	rt := NewRunLintTool(dir)
	args, _ := json.Marshal(map[string]any{"command": "echo ok"})
	result, err := rt.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("expected success, got: %+v", result)
	}
	data := resultData(t, result)
	if data["parser_used"] != "govet" {
		t.Errorf("parser_used = %v, want govet", data["parser_used"])
	}
}

func TestRunLintTool_ParsesIssues(t *testing.T) {
	dir := t.TempDir()
	rt := NewRunLintTool(dir)
	args, _ := json.Marshal(map[string]any{"command": "echo 'main.go:10:4: unused variable x'"})
	result, err := rt.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := resultData(t, result)
	count, _ := data["issue_count"].(float64)
	if count != 1 {
		t.Errorf("issue_count = %v, want 1", data["issue_count"])
	}
	if clean, _ := data["clean"].(bool); clean {
		t.Errorf("expected non-clean result when an issue is found")
	}
}

func TestTypecheckTool_DetectsGoBuild(t *testing.T) {
	dir := writeGoModWorkspace(t)
	rt := NewTypecheckTool(dir)
	args, _ := json.Marshal(map[string]any{"command": "echo ok"})
	result, err := rt.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := resultData(t, result)
	if data["parser_used"] != "go" {
		t.Errorf("parser_used = %v, want go", data["parser_used"])
	}
	if !result.OK {
		t.Errorf("expected clean result, got: %+v", result)
	}
}

func TestParseLineColIssues(t *testing.T) {
	raw := "main.go:12:5: undefined: foo\nnot a matching line\nother.go:3:1: unused import"
	issues := parseLineColIssues(raw, "error")
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].File != "main.go" || issues[0].Line != 12 || issues[0].Col != 5 {
		t.Errorf("unexpected first issue: %+v", issues[0])
	}
}

package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/duskline/forge/internal/tool"
)

type issue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

func runShellCommand(ctx context.Context, dir, command string, timeout time.Duration) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var cmd *exec.Cmd
	if os.Getenv("OS") == "Windows_NT" {
		cmd = exec.CommandContext(ctx, "cmd", "/c", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil && ctx.Err() != nil {
		return string(out), -1, ctx.Err()
	}
	return string(out), exitCode, nil
}

// RunTestsTool runs the project's test suite and returns structured
// pass/fail data instead of a raw log blob.
type RunTestsTool struct{ WorkspaceDir string }

func NewRunTestsTool(workspaceDir string) *RunTestsTool { return &RunTestsTool{WorkspaceDir: workspaceDir} }

func (t *RunTestsTool) Name() string { return "run_tests" }
func (t *RunTestsTool) Description() string {
	return "Run the test suite and return structured pass/fail results. Auto-detects go test, pytest, or npm test when command is omitted."
}
func (t *RunTestsTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "command", Type: "string"},
		tool.SchemaParam{Name: "focus", Type: "array"},
		tool.SchemaParam{Name: "timeout_sec", Type: "integer"},
	)
}

func (t *RunTestsTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Command    string   `json:"command"`
		Focus      []string `json:"focus"`
		TimeoutSec int      `json:"timeout_sec"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
		}
	}
	timeoutSec := a.TimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = 60
	}

	command := a.Command
	if command == "" {
		command = t.detectCommand()
		if command == "" {
			return tool.Failure(tool.ErrCommandRequired, "could not auto-detect a test runner; provide command explicitly"), nil
		}
	}
	if len(a.Focus) > 0 {
		command = command + " " + strings.Join(a.Focus, " ")
	}

	raw, exitCode, err := runShellCommand(ctx, t.WorkspaceDir, command, time.Duration(timeoutSec)*time.Second)
	if err != nil {
		return tool.Failure(tool.ErrTimeout, fmt.Sprintf("tests timed out after %ds", timeoutSec)), nil
	}

	passed := exitCode == 0
	summary := "passed"
	if !passed {
		summary = fmt.Sprintf("exit code %d", exitCode)
	}

	data := map[string]any{
		"passed":      passed,
		"summary":     summary,
		"raw_output":  raw,
		"command_run": command,
	}
	message := fmt.Sprintf("tests passed: %s", summary)
	var warnings []string
	if !passed {
		message = fmt.Sprintf("tests FAILED: %s", summary)
		warnings = append(warnings, "one or more tests failed")
	}
	return tool.Success(message, data).WithWarnings(warnings...), nil
}

func (t *RunTestsTool) detectCommand() string {
	if _, err := os.Stat(filepath.Join(t.WorkspaceDir, "go.mod")); err == nil {
		return "go test ./..."
	}
	if pathExists(t.WorkspaceDir, "package.json") && lookPathOK("npm") {
		return "npm test"
	}
	if lookPathOK("pytest") {
		return "pytest"
	}
	return ""
}

func pathExists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func lookPathOK(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

var govetIssueRe = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*(.+)$`)

// RunLintTool runs the project's linter and parses its output into a
// structured issues array. Auto-detects go vet, ruff, or eslint.
type RunLintTool struct{ WorkspaceDir string }

func NewRunLintTool(workspaceDir string) *RunLintTool { return &RunLintTool{WorkspaceDir: workspaceDir} }

func (t *RunLintTool) Name() string { return "run_lint" }
func (t *RunLintTool) Description() string {
	return "Run the linter and return structured issues. Auto-detects go vet, ruff, or eslint."
}
func (t *RunLintTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "command", Type: "string"},
		tool.SchemaParam{Name: "paths", Type: "array"},
	)
}

func (t *RunLintTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Command string   `json:"command"`
		Paths   []string `json:"paths"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
		}
	}

	command, parserUsed := a.Command, "fallback"
	if command == "" {
		command, parserUsed = t.detectCommand()
		if command == "" {
			return tool.Failure(tool.ErrCommandRequired, "no linter detected; provide a command explicitly"), nil
		}
	} else {
		_, parserUsed = t.detectCommand()
		switch {
		case strings.Contains(command, "vet"):
			parserUsed = "govet"
		case strings.Contains(command, "ruff"):
			parserUsed = "ruff"
		case strings.Contains(command, "eslint"):
			parserUsed = "eslint"
		}
	}
	if len(a.Paths) > 0 {
		command = command + " " + strings.Join(a.Paths, " ")
	}

	raw, exitCode, err := runShellCommand(ctx, t.WorkspaceDir, command, 60*time.Second)
	if err != nil {
		return tool.Failure(tool.ErrTimeout, "linter timed out after 60s"), nil
	}

	var issues []issue
	switch parserUsed {
	case "govet":
		issues = parseLineColIssues(raw, "error")
	default:
		issues = parseLineColIssues(raw, "error")
	}

	clean := len(issues) == 0 && exitCode == 0
	data := map[string]any{
		"clean":       clean,
		"issue_count": len(issues),
		"issues":      issues,
		"raw_output":  raw,
		"parser_used": parserUsed,
	}
	message := "no issues found"
	var warnings []string
	if !clean {
		message = fmt.Sprintf("%d issue(s) found", len(issues))
		warnings = append(warnings, message)
	}
	return tool.Success(message, data).WithWarnings(warnings...), nil
}

func (t *RunLintTool) detectCommand() (string, string) {
	if pathExists(t.WorkspaceDir, "go.mod") {
		return "go vet ./...", "govet"
	}
	if lookPathOK("ruff") {
		return "ruff check .", "ruff"
	}
	if lookPathOK("eslint") {
		return "eslint .", "eslint"
	}
	return "", "fallback"
}

func parseLineColIssues(raw, defaultSeverity string) []issue {
	var issues []issue
	for _, line := range strings.Split(raw, "\n") {
		m := govetIssueRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNum, _ := strconv.Atoi(m[2])
		colNum, _ := strconv.Atoi(m[3])
		issues = append(issues, issue{File: m[1], Line: lineNum, Col: colNum, Message: m[4], Severity: defaultSeverity})
	}
	return issues
}

// TypecheckTool runs the project's type checker (go build for Go, else
// mypy/pyright/tsc) and returns structured issues.
type TypecheckTool struct{ WorkspaceDir string }

func NewTypecheckTool(workspaceDir string) *TypecheckTool { return &TypecheckTool{WorkspaceDir: workspaceDir} }

func (t *TypecheckTool) Name() string { return "typecheck" }
func (t *TypecheckTool) Description() string {
	return "Run the type checker and return structured issues. Auto-detects go build, mypy, pyright, or tsc."
}
func (t *TypecheckTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "command", Type: "string"},
		tool.SchemaParam{Name: "paths", Type: "array"},
	)
}

func (t *TypecheckTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Command string   `json:"command"`
		Paths   []string `json:"paths"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
		}
	}

	command, parserUsed := a.Command, "fallback"
	if command == "" {
		command, parserUsed = t.detectCommand()
		if command == "" {
			return tool.Failure(tool.ErrCommandRequired, "no type checker detected; provide a command explicitly"), nil
		}
	} else {
		_, parserUsed = t.detectCommand()
		switch {
		case strings.Contains(command, "go build") || strings.Contains(command, "go vet"):
			parserUsed = "go"
		case strings.Contains(command, "mypy"):
			parserUsed = "mypy"
		case strings.Contains(command, "pyright"):
			parserUsed = "pyright"
		case strings.Contains(command, "tsc"):
			parserUsed = "tsc"
		}
	}
	if len(a.Paths) > 0 {
		command = command + " " + strings.Join(a.Paths, " ")
	}

	raw, exitCode, err := runShellCommand(ctx, t.WorkspaceDir, command, 120*time.Second)
	if err != nil {
		return tool.Failure(tool.ErrTimeout, "type checker timed out after 120s"), nil
	}

	issues := parseLineColIssues(raw, "error")
	clean := len(issues) == 0 && exitCode == 0
	data := map[string]any{
		"clean":       clean,
		"issue_count": len(issues),
		"issues":      issues,
		"raw_output":  raw,
		"parser_used": parserUsed,
	}
	message := "no type errors"
	var warnings []string
	if !clean {
		message = fmt.Sprintf("%d type error(s) found", len(issues))
		warnings = append(warnings, message)
	}
	return tool.Success(message, data).WithWarnings(warnings...), nil
}

func (t *TypecheckTool) detectCommand() (string, string) {
	if pathExists(t.WorkspaceDir, "go.mod") {
		return "go build ./...", "go"
	}
	if lookPathOK("mypy") {
		return "mypy .", "mypy"
	}
	if lookPathOK("pyright") {
		return "pyright", "pyright"
	}
	if lookPathOK("tsc") {
		return "tsc --noEmit", "tsc"
	}
	return "", "fallback"
}

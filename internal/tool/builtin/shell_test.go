package builtin

import (
	"context"
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/duskline/forge/internal/tool"
)

func matchesAnyDangerousPattern(cmd string) bool {
	for _, p := range dangerousPatterns {
		if p.MatchString(cmd) {
			return true
		}
	}
	return false
}

func TestDangerousPatternBlocking(t *testing.T) {
	tests := []struct {
		command     string
		shouldBlock bool
	}{
		{"ls -la", false},
		{"echo hello", false},
		{"cat file.txt", false},
		{"go build ./...", false},
		{"rm file.txt", false},
		{"pkill myprocess", false},
		{"chmod 755 script.sh", false},

		{"rm -rf /", true},
		{"RM -RF /", true},
		{"rm -r -f /", true},
		{"rm --recursive /important", true},
		{"rm -rf ~", true},
		{"rm -rf $HOME", true},
		{"rm -rf ${HOME}", true},
		{"rm -rf -- /", true},

		{"shutdown -h now", true},
		{"reboot", true},
		{"halt", true},
		{"init 0", true},
		{"systemctl poweroff", true},

		{"pkill -9 -1", true},

		{"chmod -R 000 /", true},
		{"mkfs.ext4 /dev/sda1", true},
		{"dd if=/dev/zero of=/dev/sda", true},
		{":(){:|:&};:", true},

		{"format c:", true},
		{"del /s /q c:\\", true},
		{"rd /s /q c:\\", true},
		{"Remove-Item -Recurse C:\\", true},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := matchesAnyDangerousPattern(tt.command); got != tt.shouldBlock {
				t.Errorf("command %q: blocked=%v, want %v", tt.command, got, tt.shouldBlock)
			}
		})
	}
}

func TestSafeRuneTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
	}{
		{"short ASCII", "hello", 10},
		{"exact limit", "hello", 5},
		{"truncate ASCII", "hello world", 5},
		{"Chinese text short", "你好世界", 10},
		{"Chinese text truncate", "你好世界测试文本", 4},
		{"empty string", "", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := safeRuneTruncate(tt.input, tt.maxRunes)
			if len([]rune(tt.input)) <= tt.maxRunes {
				if result != tt.input {
					t.Errorf("should not truncate: got %q, want %q", result, tt.input)
				}
				return
			}
			if !strings.Contains(result, "...") {
				t.Errorf("truncated result should contain '...': %q", result)
			}
		})
	}
}

func resultOutput(t *testing.T, r tool.Result) string {
	t.Helper()
	var data map[string]string
	if len(r.Data) == 0 {
		return ""
	}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		t.Fatalf("decode Data: %v", err)
	}
	return data["output"]
}

func resultStdout(t *testing.T, r tool.Result) string {
	t.Helper()
	var data struct {
		Stdout string `json:"stdout"`
	}
	if len(r.Data) == 0 {
		return ""
	}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		t.Fatalf("decode Data: %v", err)
	}
	return data.Stdout
}

func TestExecute_Disabled(t *testing.T) {
	st := NewShellTool("", false)
	args, _ := json.Marshal(map[string]string{"command": "echo hi"})
	result, err := st.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK || result.ErrorCode != tool.ErrDeniedByPolicy {
		t.Errorf("expected ErrDeniedByPolicy, got: %+v", result)
	}
}

func TestExecute_DangerousBlocked(t *testing.T) {
	st := NewShellTool(t.TempDir(), true)
	args, _ := json.Marshal(map[string]string{"command": "rm -rf /"})
	result, err := st.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK || result.ErrorCode != tool.ErrDeniedByPolicy {
		t.Errorf("expected ErrDeniedByPolicy, got: %+v", result)
	}
}

func TestExecute_KillInit(t *testing.T) {
	st := NewShellTool(t.TempDir(), true)

	args, _ := json.Marshal(map[string]string{"command": "kill -9 1"})
	result, err := st.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK || result.ErrorCode != tool.ErrDeniedByPolicy {
		t.Errorf("kill -9 1 should be blocked, got: %+v", result)
	}

	if runtime.GOOS != "windows" {
		args2, _ := json.Marshal(map[string]string{"command": "echo kill -9 12345"})
		result2, err := st.Execute(context.Background(), args2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result2.ErrorCode == tool.ErrDeniedByPolicy {
			t.Errorf("kill -9 12345 should NOT be blocked, got: %+v", result2)
		}
	}
}

func TestExecute_SuccessfulCommand(t *testing.T) {
	st := NewShellTool(t.TempDir(), true)
	args, _ := json.Marshal(map[string]string{"command": "echo hello_forge"})
	result, err := st.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("unexpected failure: %+v", result)
	}
	if !strings.Contains(resultStdout(t, result), "hello_forge") {
		t.Errorf("expected stdout to contain 'hello_forge', got: %q", resultStdout(t, result))
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	st := NewShellTool(t.TempDir(), true)
	var cmd string
	if runtime.GOOS == "windows" {
		cmd = "cmd /c exit 1"
	} else {
		cmd = "exit 1"
	}
	args, _ := json.Marshal(map[string]string{"command": cmd})
	result, err := st.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("non-zero exit should still be a successful tool invocation, got: %+v", result)
	}
	if len(result.Warnings) == 0 {
		t.Errorf("expected a warning for non-zero exit, got: %+v", result)
	}
}

func TestExecute_BadJSON(t *testing.T) {
	st := NewShellTool(t.TempDir(), true)
	result, err := st.Execute(context.Background(), []byte(`not json`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK || result.ErrorCode != tool.ErrInvalidArgs {
		t.Errorf("expected ErrInvalidArgs, got: %+v", result)
	}
}

func TestFilterEnv(t *testing.T) {
	input := []string{
		"PATH=/usr/bin",
		"HOME=/home/user",
		"OPENAI_API_KEY=sk-1234",
		"DATABASE_URL=postgres://...",
		"TAVILY_API_KEY=tvly-xxx",
		"MY_SECRET=hidden",
		"MY_TOKEN=abc",
		"MY_PASSWORD=xyz",
		"GOPATH=/go",
		"REDIS_URL=redis://...",
		"NORMAL_VAR=hello",
	}

	filtered := filterEnv(input)
	filteredStr := strings.Join(filtered, "\n")

	for _, keep := range []string{"PATH=/usr/bin", "HOME=/home/user", "GOPATH=/go", "NORMAL_VAR=hello"} {
		if !strings.Contains(filteredStr, keep) {
			t.Errorf("%s should be kept", keep)
		}
	}
	for _, drop := range []string{"OPENAI_API_KEY", "DATABASE_URL", "TAVILY_API_KEY", "MY_SECRET", "MY_TOKEN", "MY_PASSWORD", "REDIS_URL"} {
		if strings.Contains(filteredStr, drop) {
			t.Errorf("%s should be filtered", drop)
		}
	}
}

func TestSafeShellTool_DenyRecursiveDelete(t *testing.T) {
	st := NewSafeShellTool(t.TempDir())
	args, _ := json.Marshal(map[string]any{"command": "rm -rf /tmp"})
	result, err := st.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("deny-pattern match should still be ok=true, got: %+v", result)
	}
	var data struct {
		Blocked                  bool   `json:"blocked"`
		Reason                   string `json:"reason"`
		MatchedPattern           string `json:"matched_pattern"`
		SuggestedSafeAlternative string `json:"suggested_safe_alternative"`
	}
	if err := json.Unmarshal(result.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data.Blocked {
		t.Errorf("expected blocked=true, got: %+v", data)
	}
	if data.Reason == "" || data.MatchedPattern == "" || data.SuggestedSafeAlternative == "" {
		t.Errorf("expected reason/matched_pattern/suggested_safe_alternative to be populated, got: %+v", data)
	}
}

func TestSafeShellTool_NotOnAllowList(t *testing.T) {
	st := NewSafeShellTool(t.TempDir())
	args, _ := json.Marshal(map[string]any{"command": "curl http://example.com"})
	result, err := st.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected ok=true with blocked=true, got: %+v", result)
	}
	var data struct{ Blocked bool `json:"blocked"` }
	json.Unmarshal(result.Data, &data)
	if !data.Blocked {
		t.Errorf("expected blocked=true for a command not on the allow list, got: %+v", result)
	}
}

func TestSafeShellTool_AllowedCommand(t *testing.T) {
	st := NewSafeShellTool(t.TempDir())
	args, _ := json.Marshal(map[string]any{"command": "echo hi"})
	result, err := st.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("expected success, got: %+v", result)
	}
	if !strings.Contains(resultStdout(t, result), "hi") {
		t.Errorf("expected stdout to contain 'hi', got: %q", resultStdout(t, result))
	}
}

package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiffPreviewFunc renders a preview of what a file_edit call would change,
// before the permission prompt is shown, so the user approves based on the
// actual diff rather than just the tool name and raw arguments.
type DiffPreviewFunc func(workspaceDir string, args json.RawMessage)

// RenderDiffPreview computes the one-occurrence replace file_edit would
// perform and prints a minimal unified-style diff to stdout. Any failure to
// read the target file or parse arguments is swallowed — the preview is a
// convenience, not a correctness requirement, and must never block the
// subsequent guard/permission checks.
func RenderDiffPreview(workspaceDir string, args json.RawMessage) {
	var parsed struct {
		Path      string `json:"path"`
		OldString string `json:"old_str"`
		NewString string `json:"new_str"`
	}
	if err := json.Unmarshal(args, &parsed); err != nil {
		return
	}
	if parsed.Path == "" {
		return
	}

	full := filepath.Join(workspaceDir, parsed.Path)
	current, err := os.ReadFile(full)
	if err != nil {
		return
	}

	updated := strings.Replace(string(current), parsed.OldString, parsed.NewString, 1)
	if updated == string(current) {
		return
	}

	fmt.Printf("--- %s\n+++ %s\n", parsed.Path, parsed.Path)
	for _, line := range strings.Split(parsed.OldString, "\n") {
		fmt.Printf("-%s\n", line)
	}
	for _, line := range strings.Split(parsed.NewString, "\n") {
		fmt.Printf("+%s\n", line)
	}
}

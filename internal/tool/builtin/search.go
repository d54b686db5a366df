package builtin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/duskline/forge/internal/guard"
	"github.com/duskline/forge/internal/tool"
)

var skipDirs = map[string]bool{".git": true, "node_modules": true, "vendor": true, ".venv": true}

const (
	globDefaultMax = 500
	globHardMax    = 5000
)

// GlobTool finds files matching a shell-style glob pattern.
type GlobTool struct{ WorkspaceDir string }

func NewGlobTool(workspaceDir string) *GlobTool { return &GlobTool{WorkspaceDir: workspaceDir} }

func (t *GlobTool) Name() string        { return "glob" }
func (t *GlobTool) Description() string { return "Find files matching a glob pattern." }
func (t *GlobTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "pattern", Type: "string", Required: true},
		tool.SchemaParam{Name: "base_path", Type: "string", Description: "search root, defaults to workspace root"},
		tool.SchemaParam{Name: "include_hidden", Type: "boolean", Description: "defaults to false"},
		tool.SchemaParam{Name: "max_results", Type: "integer", Description: "defaults to 500"},
	)
}

func (t *GlobTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Pattern       string `json:"pattern"`
		BasePath      string `json:"base_path"`
		IncludeHidden bool   `json:"include_hidden"`
		MaxResults    int    `json:"max_results"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	if a.BasePath == "" {
		a.BasePath = "."
	}
	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = globDefaultMax
	}
	if maxResults > globHardMax {
		maxResults = globHardMax
	}
	root, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.BasePath)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}

	var matches []string
	truncated := false
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() {
			if skipDirs[name] {
				return filepath.SkipDir
			}
			if !a.IncludeHidden && strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !a.IncludeHidden && strings.HasPrefix(name, ".") {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		okName, _ := filepath.Match(a.Pattern, name)
		okRel, _ := filepath.Match(a.Pattern, rel)
		if okName || okRel {
			if len(matches) >= maxResults {
				truncated = true
				return filepath.SkipAll
			}
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return tool.Failure(tool.ErrTimeout, err.Error()), nil
	}
	sort.Strings(matches)
	result := tool.Success("", map[string]any{"matches": matches, "truncated": truncated})
	if truncated {
		result = result.WithWarnings(fmt.Sprintf("results truncated to %d matches", maxResults))
	}
	return result, nil
}

const (
	grepTimeout    = 15 * time.Second
	grepDefaultMax = 200
	grepHardMax    = 200
	grepMaxLineLen = 200
)

// GrepTool searches file contents by regex. It uses ripgrep when the `rg`
// binary is available on PATH, falling back to a pure-Go regex walker
// otherwise; either path reports which one it used via parser_used.
type GrepTool struct{ WorkspaceDir string }

func NewGrepTool(workspaceDir string) *GrepTool { return &GrepTool{WorkspaceDir: workspaceDir} }

func (t *GrepTool) Name() string        { return "grep" }
func (t *GrepTool) Description() string { return "Search file contents by regular expression." }
func (t *GrepTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "pattern", Type: "string", Required: true},
		tool.SchemaParam{Name: "path", Type: "string"},
		tool.SchemaParam{Name: "glob", Type: "string", Description: "restrict the search to files matching this glob"},
		tool.SchemaParam{Name: "case_sensitive", Type: "boolean", Description: "defaults to true"},
		tool.SchemaParam{Name: "max_results", Type: "integer", Description: "defaults to 200"},
		tool.SchemaParam{Name: "context_lines", Type: "integer", Description: "lines of context before/after each match"},
	)
}

type grepMatch struct {
	File           string   `json:"file"`
	LineNum        int      `json:"line"`
	Line           string   `json:"text"`
	ContextBefore  []string `json:"context_before,omitempty"`
	ContextAfter   []string `json:"context_after,omitempty"`
}

func (t *GrepTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Pattern       string `json:"pattern"`
		Path          string `json:"path"`
		Glob          string `json:"glob"`
		CaseSensitive *bool  `json:"case_sensitive"`
		MaxResults    int    `json:"max_results"`
		ContextLines  int    `json:"context_lines"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	if a.Path == "" {
		a.Path = "."
	}
	caseSensitive := true
	if a.CaseSensitive != nil {
		caseSensitive = *a.CaseSensitive
	}
	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = grepDefaultMax
	}
	if maxResults > grepHardMax {
		maxResults = grepHardMax
	}
	if a.ContextLines < 0 {
		a.ContextLines = 0
	}

	root, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.Path)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}

	ctx, cancel := context.WithTimeout(ctx, grepTimeout)
	defer cancel()

	if rgPath, err := exec.LookPath("rg"); err == nil {
		matches, err := runRipgrep(ctx, rgPath, a.Pattern, root, a.Glob, caseSensitive, maxResults)
		if err == nil {
			attachContext(root, matches, a.ContextLines)
			return tool.Success("", map[string]any{"matches": matches, "parser_used": "ripgrep"}), nil
		}
	}

	matches, err := regexWalk(ctx, a.Pattern, root, a.Glob, caseSensitive, maxResults, a.ContextLines)
	if err != nil {
		return tool.Failure(tool.ErrInvalidRegex, err.Error()), nil
	}
	return tool.Success("", map[string]any{"matches": matches, "parser_used": "regex"}), nil
}

func runRipgrep(ctx context.Context, rgPath, pattern, root, glob string, caseSensitive bool, maxResults int) ([]grepMatch, error) {
	cmdArgs := []string{"--line-number", "--no-heading", "--max-count", fmt.Sprint(maxResults)}
	if !caseSensitive {
		cmdArgs = append(cmdArgs, "--ignore-case")
	}
	if glob != "" {
		cmdArgs = append(cmdArgs, "-g", glob)
	}
	cmdArgs = append(cmdArgs, pattern, root)

	cmd := exec.CommandContext(ctx, rgPath, cmdArgs...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil // no matches, not an error
		}
		return nil, err
	}

	var matches []grepMatch
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() && len(matches) < maxResults {
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		lineNum := 0
		fmt.Sscanf(parts[1], "%d", &lineNum)
		rel, _ := filepath.Rel(root, parts[0])
		matches = append(matches, grepMatch{File: rel, LineNum: lineNum, Line: truncateLine(parts[2])})
	}
	return matches, nil
}

// attachContext re-reads each matched file to pull in surrounding lines,
// since ripgrep was invoked without -C to keep its own output parsing
// simple; this keeps context handling identical between both backends.
func attachContext(root string, matches []grepMatch, contextLines int) {
	if contextLines <= 0 {
		return
	}
	cache := map[string][]string{}
	for i := range matches {
		m := &matches[i]
		lines, ok := cache[m.File]
		if !ok {
			data, err := os.ReadFile(filepath.Join(root, m.File))
			if err != nil {
				cache[m.File] = nil
				continue
			}
			lines = strings.Split(string(data), "\n")
			cache[m.File] = lines
		}
		if lines == nil {
			continue
		}
		idx := m.LineNum - 1
		before := idx - contextLines
		if before < 0 {
			before = 0
		}
		after := idx + contextLines + 1
		if after > len(lines) {
			after = len(lines)
		}
		if idx >= 0 && idx < len(lines) {
			m.ContextBefore = append([]string{}, lines[before:idx]...)
			m.ContextAfter = append([]string{}, lines[idx+1:after]...)
		}
	}
}

func regexWalk(ctx context.Context, pattern, root, glob string, caseSensitive bool, maxResults, contextLines int) ([]grepMatch, error) {
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	var matches []grepMatch
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(matches) >= maxResults {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if glob != "" {
			okName, _ := filepath.Match(glob, d.Name())
			okRel, _ := filepath.Match(glob, rel)
			if !okName && !okRel {
				return nil
			}
		}
		info, err := d.Info()
		if err != nil || info.Size() > 10<<20 {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || isBinary(data) {
			return nil
		}
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			if len(matches) >= maxResults {
				break
			}
			if re.MatchString(line) {
				m := grepMatch{File: rel, LineNum: i + 1, Line: truncateLine(line)}
				if contextLines > 0 {
					before := i - contextLines
					if before < 0 {
						before = 0
					}
					after := i + contextLines + 1
					if after > len(lines) {
						after = len(lines)
					}
					m.ContextBefore = append([]string{}, lines[before:i]...)
					m.ContextAfter = append([]string{}, lines[i+1:after]...)
				}
				matches = append(matches, m)
			}
		}
		return nil
	})
	return matches, err
}

func truncateLine(s string) string {
	if len(s) > grepMaxLineLen {
		return s[:grepMaxLineLen] + "..."
	}
	return s
}

func isBinary(data []byte) bool {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return false
}

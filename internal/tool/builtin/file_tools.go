// Package builtin implements the agent's built-in tool set: file
// manipulation, search, shell execution, git inspection, project quality
// checks, and small introspection/state utilities. The file, search,
// dependency and shell tools resolve their own path (and cwd) arguments
// through guard.ResolveInWorkspace in addition to the guard's own pre-check,
// since a tool is the last line of defense against a symlink race between
// check and use. git_diff's path and the quality tools' paths/focus
// arguments are passed to the command without that resolution.
package builtin

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/duskline/forge/internal/guard"
	"github.com/duskline/forge/internal/tool"
)

const (
	maxFileReadSize  = 1 << 20
	maxFileWriteSize = 1 << 20
	maxListItems     = 2000
	maxListDepth     = 20
)

func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// FileReadTool reads a UTF-8 text file from the workspace, optionally a
// line-range window of it.
type FileReadTool struct{ WorkspaceDir string }

func NewFileReadTool(workspaceDir string) *FileReadTool { return &FileReadTool{WorkspaceDir: workspaceDir} }

func (t *FileReadTool) Name() string        { return "file_read" }
func (t *FileReadTool) Description() string { return "Read a file's contents from the workspace." }
func (t *FileReadTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "workspace-relative path", Required: true},
		tool.SchemaParam{Name: "offset", Type: "integer", Description: "0-based line index to start at"},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "maximum number of lines to return"},
	)
}

func (t *FileReadTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Path   string `json:"path"`
		Offset int    `json:"offset"`
		Limit  int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	resolved, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.Path)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}

	// Open then stat: avoids a TOCTOU window between checking the file and
	// reading it.
	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return tool.Failure(tool.ErrFileNotFound, err.Error()), nil
		}
		return tool.Failure(tool.ErrReadError, err.Error()), nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return tool.Failure(tool.ErrReadError, err.Error()), nil
	}
	if info.IsDir() {
		return tool.Failure(tool.ErrNotAFile, "path is a directory, not a file"), nil
	}
	if info.Size() > maxFileReadSize {
		return tool.Failure(tool.ErrReadError, fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), maxFileReadSize)), nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return tool.Failure(tool.ErrReadError, err.Error()), nil
	}
	text := strings.ToValidUTF8(string(data), "�")

	lines := strings.Split(text, "\n")
	// A trailing newline produces one trailing empty element from
	// strings.Split; drop it so total_lines counts actual lines.
	if len(lines) > 0 && lines[len(lines)-1] == "" && strings.HasSuffix(text, "\n") {
		lines = lines[:len(lines)-1]
	}
	totalLines := len(lines)

	offset := a.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > totalLines {
		offset = totalLines
	}
	end := totalLines
	if a.Limit > 0 && offset+a.Limit < end {
		end = offset + a.Limit
	}
	windowed := lines[offset:end]

	return tool.Success("", map[string]any{
		"content":        strings.Join(windowed, "\n"),
		"total_lines":    totalLines,
		"returned_lines": len(windowed),
		"offset":         offset,
	}), nil
}

// FileWriteTool creates or overwrites a file in the workspace.
type FileWriteTool struct{ WorkspaceDir string }

func NewFileWriteTool(workspaceDir string) *FileWriteTool { return &FileWriteTool{WorkspaceDir: workspaceDir} }

func (t *FileWriteTool) Name() string        { return "file_write" }
func (t *FileWriteTool) Description() string { return "Create or overwrite a file in the workspace." }
func (t *FileWriteTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Required: true},
		tool.SchemaParam{Name: "content", Type: "string", Required: true},
		tool.SchemaParam{Name: "overwrite", Type: "boolean", Description: "defaults to true"},
	)
}

func (t *FileWriteTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Path      string `json:"path"`
		Content   string `json:"content"`
		Overwrite *bool  `json:"overwrite"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	overwrite := true
	if a.Overwrite != nil {
		overwrite = *a.Overwrite
	}
	if len(a.Content) > maxFileWriteSize {
		return tool.Failure(tool.ErrWriteError, fmt.Sprintf("content is %d bytes, limit is %d", len(a.Content), maxFileWriteSize)), nil
	}
	resolved, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.Path)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}

	_, statErr := os.Stat(resolved)
	existed := statErr == nil
	if existed && !overwrite {
		return tool.Failure(tool.ErrFileExists, "file exists and overwrite=false"), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return tool.Failure(tool.ErrWriteError, err.Error()), nil
	}
	if err := os.WriteFile(resolved, []byte(a.Content), 0o644); err != nil {
		return tool.Failure(tool.ErrWriteError, err.Error()), nil
	}
	return tool.Success(fmt.Sprintf("wrote %d bytes", len(a.Content)), map[string]any{
		"bytes_written": len(a.Content),
		"created":       !existed,
		"overwritten":   existed,
	}), nil
}

// FileEditTool replaces the single occurrence of old_str with new_str.
type FileEditTool struct{ WorkspaceDir string }

func NewFileEditTool(workspaceDir string) *FileEditTool { return &FileEditTool{WorkspaceDir: workspaceDir} }

func (t *FileEditTool) Name() string { return "file_edit" }
func (t *FileEditTool) Description() string {
	return "Replace the single occurrence of old_str with new_str in a file."
}
func (t *FileEditTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Required: true},
		tool.SchemaParam{Name: "old_str", Type: "string", Required: true},
		tool.SchemaParam{Name: "new_str", Type: "string", Required: true},
	)
}

func (t *FileEditTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Path   string `json:"path"`
		OldStr string `json:"old_str"`
		NewStr string `json:"new_str"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	resolved, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.Path)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return tool.Failure(tool.ErrFileNotFound, err.Error()), nil
		}
		return tool.Failure(tool.ErrReadError, err.Error()), nil
	}
	content := string(data)
	count := strings.Count(content, a.OldStr)
	if count == 0 {
		return tool.Failure(tool.ErrMatchNotFound, "old_str not found in file"), nil
	}
	if count > 1 {
		return tool.Failure(tool.ErrAmbiguousMatch, fmt.Sprintf("old_str is not unique (%d occurrences); include more context", count)), nil
	}
	updated := strings.Replace(content, a.OldStr, a.NewStr, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return tool.Failure(tool.ErrWriteError, err.Error()), nil
	}
	return tool.Success("edit applied", nil), nil
}

// hunkSpec is a 1-based, inclusive line range of a file's content to
// replace. end < start denotes a pure insertion before line start, with
// nothing removed.
type hunkSpec struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	ReplaceWith string `json:"replace_with"`
}

type patchFileSpec struct {
	Path     string     `json:"path"`
	Hunks    []hunkSpec `json:"hunks"`
	FileHash string     `json:"file_hash,omitempty"`
}

type rejectedHunk struct {
	Path      string         `json:"path"`
	Start     int            `json:"start"`
	End       int            `json:"end"`
	Reason    string         `json:"reason"`
	ErrorCode tool.ErrorCode `json:"error_code"`
}

// FilePatchTool applies one or more line-range replacements across one or
// more files, either given directly as structured patches or derived from a
// unified diff. Hunks within a file are applied in reverse start order so
// that earlier line numbers stay valid as later ones are rewritten.
type FilePatchTool struct{ WorkspaceDir string }

func NewFilePatchTool(workspaceDir string) *FilePatchTool { return &FilePatchTool{WorkspaceDir: workspaceDir} }

func (t *FilePatchTool) Name() string { return "file_patch" }
func (t *FilePatchTool) Description() string {
	return "Apply a unified diff or a structured set of line-range hunks across one or more files."
}
func (t *FilePatchTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "diff_text", Type: "string", Description: "a unified diff"},
		tool.SchemaParam{Name: "patches", Type: "array", Description: "list of {path, hunks:[{start,end,replace_with}], file_hash?}"},
		tool.SchemaParam{Name: "file_hash", Type: "string", Description: "expected SHA-256 of the single target file, checked before applying"},
	)
}

func (t *FilePatchTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		DiffText string          `json:"diff_text"`
		Patches  []patchFileSpec `json:"patches"`
		FileHash string          `json:"file_hash"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}

	patches := a.Patches
	if a.DiffText != "" {
		parsed, err := parseUnifiedDiff(a.DiffText)
		if err != nil {
			return tool.Failure(tool.ErrParseError, err.Error()), nil
		}
		if len(parsed) == 0 {
			return tool.Failure(tool.ErrNoPatchBackend, "diff_text contained no recognizable hunks"), nil
		}
		patches = append(patches, parsed...)
	}
	if len(patches) == 0 {
		return tool.Failure(tool.ErrInvalidArgs, "one of diff_text or patches is required"), nil
	}
	if len(patches) == 1 && patches[0].FileHash == "" && a.FileHash != "" {
		patches[0].FileHash = a.FileHash
	}

	applied := 0
	filesChanged := 0
	var rejected []rejectedHunk

	for _, pf := range patches {
		resolved, err := guard.ResolveInWorkspace(t.WorkspaceDir, pf.Path)
		if err != nil {
			for _, h := range pf.Hunks {
				rejected = append(rejected, rejectedHunk{Path: pf.Path, Start: h.Start, End: h.End, Reason: err.Error(), ErrorCode: tool.ErrPathOutsideWorkspace})
			}
			continue
		}

		data, err := os.ReadFile(resolved)
		if err != nil {
			code := tool.ErrReadError
			if os.IsNotExist(err) {
				code = tool.ErrFileNotFound
			}
			for _, h := range pf.Hunks {
				rejected = append(rejected, rejectedHunk{Path: pf.Path, Start: h.Start, End: h.End, Reason: err.Error(), ErrorCode: code})
			}
			continue
		}

		if pf.FileHash != "" {
			sum := sha256.Sum256(data)
			if hex.EncodeToString(sum[:]) != pf.FileHash {
				for _, h := range pf.Hunks {
					rejected = append(rejected, rejectedHunk{Path: pf.Path, Start: h.Start, End: h.End, Reason: "file_hash does not match current file contents", ErrorCode: tool.ErrHashMismatch})
				}
				continue
			}
		}

		lines := splitLinesKeepEnds(string(data))

		hunks := make([]hunkSpec, len(pf.Hunks))
		copy(hunks, pf.Hunks)
		sort.Slice(hunks, func(i, j int) bool { return hunks[i].Start > hunks[j].Start })

		changed := false
		for _, h := range hunks {
			if h.Start < 1 || h.Start > len(lines)+1 || h.End > len(lines) || h.End < h.Start-1 {
				rejected = append(rejected, rejectedHunk{Path: pf.Path, Start: h.Start, End: h.End, Reason: "hunk line range is out of bounds", ErrorCode: tool.ErrInvalidArgs})
				continue
			}
			replacement := splitLinesKeepEnds(h.ReplaceWith)
			lo := h.Start - 1
			hi := h.End // exclusive
			if h.End < h.Start {
				hi = lo
			}
			rebuilt := make([]string, 0, len(lines)-(hi-lo)+len(replacement))
			rebuilt = append(rebuilt, lines[:lo]...)
			rebuilt = append(rebuilt, replacement...)
			rebuilt = append(rebuilt, lines[hi:]...)
			lines = rebuilt
			changed = true
			applied++
		}
		if !changed {
			continue
		}
		if err := os.WriteFile(resolved, []byte(strings.Join(lines, "")), 0o644); err != nil {
			for _, h := range pf.Hunks {
				rejected = append(rejected, rejectedHunk{Path: pf.Path, Start: h.Start, End: h.End, Reason: err.Error(), ErrorCode: tool.ErrWriteError})
			}
			continue
		}
		filesChanged++
	}

	result := tool.Success(fmt.Sprintf("applied %d hunk(s) across %d file(s)", applied, filesChanged), map[string]any{
		"applied":       applied,
		"files_changed": filesChanged,
		"rejected_hunks": rejected,
	})
	if len(rejected) > 0 {
		result = result.WithWarnings(fmt.Sprintf("%d hunk(s) were rejected", len(rejected)))
	}
	return result, nil
}

// parseUnifiedDiff converts a unified diff into the same {path, hunks}
// representation structured patches use: each "@@ -start,count +.. @@" hunk
// becomes a {start, end, replace_with} replacement of the original file's
// line range, where replace_with is the concatenation of the hunk's context
// and added lines with their leading " "/"+" markers stripped.
func parseUnifiedDiff(diffText string) ([]patchFileSpec, error) {
	var files []patchFileSpec
	var current *patchFileSpec
	var hunk *hunkSpec
	var body strings.Builder

	flushHunk := func() {
		if hunk == nil || current == nil {
			return
		}
		hunk.ReplaceWith = body.String()
		current.Hunks = append(current.Hunks, *hunk)
		hunk = nil
		body.Reset()
	}
	flushFile := func() {
		flushHunk()
		if current != nil && len(current.Hunks) > 0 {
			files = append(files, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(diffText))
	scanner.Buffer(make([]byte, 0, 64*1024), 10<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "--- "):
			flushFile()
			current = &patchFileSpec{}
		case strings.HasPrefix(line, "+++ "):
			if current == nil {
				current = &patchFileSpec{}
			}
			name := strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
			name = strings.TrimPrefix(name, "b/")
			if idx := strings.IndexByte(name, '\t'); idx >= 0 {
				name = name[:idx]
			}
			current.Path = name
		case strings.HasPrefix(line, "@@"):
			flushHunk()
			start, count, ok := parseHunkHeader(line)
			if !ok {
				return nil, fmt.Errorf("malformed hunk header: %q", line)
			}
			if current == nil {
				return nil, fmt.Errorf("hunk header before file header: %q", line)
			}
			h := hunkSpec{Start: start, End: start + count - 1}
			hunk = &h
		case strings.HasPrefix(line, "\\"):
			// "\ No newline at end of file" — ignored.
		case hunk != nil && strings.HasPrefix(line, "+"):
			body.WriteString(line[1:])
			body.WriteByte('\n')
		case hunk != nil && strings.HasPrefix(line, " "):
			body.WriteString(line[1:])
			body.WriteByte('\n')
		case hunk != nil && strings.HasPrefix(line, "-"):
			// removed line, contributes nothing to replace_with.
		}
	}
	flushFile()
	return files, scanner.Err()
}

// parseHunkHeader parses the original-side range out of
// "@@ -start,count +newstart,newcount @@ ...". count defaults to 1 when
// omitted, per unified diff convention.
func parseHunkHeader(line string) (start, count int, ok bool) {
	rest := strings.TrimPrefix(line, "@@ ")
	parts := strings.Fields(rest)
	if len(parts) == 0 || !strings.HasPrefix(parts[0], "-") {
		return 0, 0, false
	}
	spec := strings.TrimPrefix(parts[0], "-")
	count = 1
	if comma := strings.IndexByte(spec, ','); comma >= 0 {
		if _, err := fmt.Sscanf(spec, "%d,%d", &start, &count); err != nil {
			return 0, 0, false
		}
	} else {
		if _, err := fmt.Sscanf(spec, "%d", &start); err != nil {
			return 0, 0, false
		}
	}
	return start, count, true
}

type fileEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// FileListTool lists a workspace directory as a tree, up to a given depth.
type FileListTool struct{ WorkspaceDir string }

func NewFileListTool(workspaceDir string) *FileListTool { return &FileListTool{WorkspaceDir: workspaceDir} }

func (t *FileListTool) Name() string        { return "file_list" }
func (t *FileListTool) Description() string { return "List entries under a workspace directory as a tree." }
func (t *FileListTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "defaults to workspace root"},
		tool.SchemaParam{Name: "depth", Type: "integer", Description: "recursion depth, defaults to 1"},
		tool.SchemaParam{Name: "include_hidden", Type: "boolean"},
		tool.SchemaParam{Name: "type", Type: "string", Enum: []string{"all", "file", "dir"}},
	)
}

func (t *FileListTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Path          string `json:"path"`
		Depth         int    `json:"depth"`
		IncludeHidden bool   `json:"include_hidden"`
		Type          string `json:"type"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
		}
	}
	if a.Path == "" {
		a.Path = "."
	}
	if a.Depth <= 0 {
		a.Depth = 1
	}
	if a.Depth > maxListDepth {
		a.Depth = maxListDepth
	}
	if a.Type == "" {
		a.Type = "all"
	}

	root, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.Path)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return tool.Failure(tool.ErrDirNotFound, err.Error()), nil
		}
		return tool.Failure(tool.ErrReadError, err.Error()), nil
	}
	if !info.IsDir() {
		return tool.Failure(tool.ErrDirNotFound, "path is not a directory"), nil
	}

	var entries []fileEntry
	truncated := false
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		items, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range items {
			name := e.Name()
			if skipDirs[name] {
				continue
			}
			if !a.IncludeHidden && strings.HasPrefix(name, ".") {
				continue
			}
			rel, _ := filepath.Rel(root, filepath.Join(dir, name))
			isDir := e.IsDir()
			if a.Type == "all" || (a.Type == "file" && !isDir) || (a.Type == "dir" && isDir) {
				if len(entries) >= maxListItems {
					truncated = true
					return nil
				}
				entries = append(entries, fileEntry{Path: rel, IsDir: isDir})
			}
			if isDir && depth < a.Depth {
				if err := walk(filepath.Join(dir, name), depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root, 1); err != nil {
		return tool.Failure(tool.ErrReadError, err.Error()), nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	result := tool.Success("", map[string]any{"entries": entries})
	if truncated {
		result = result.WithWarnings(fmt.Sprintf("listing truncated to %d entries", maxListItems))
	}
	return result, nil
}

// FileMoveTool renames/moves a file or directory within the workspace.
type FileMoveTool struct{ WorkspaceDir string }

func NewFileMoveTool(workspaceDir string) *FileMoveTool { return &FileMoveTool{WorkspaceDir: workspaceDir} }

func (t *FileMoveTool) Name() string        { return "file_move" }
func (t *FileMoveTool) Description() string { return "Move or rename a file within the workspace." }
func (t *FileMoveTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "source path", Required: true},
		tool.SchemaParam{Name: "destination", Type: "string", Required: true},
		tool.SchemaParam{Name: "overwrite", Type: "boolean", Description: "defaults to false"},
	)
}

func (t *FileMoveTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Path        string `json:"path"`
		Destination string `json:"destination"`
		Overwrite   bool   `json:"overwrite"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	src, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.Path)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}
	dst, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.Destination)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return tool.Failure(tool.ErrFileNotFound, err.Error()), nil
		}
		return tool.Failure(tool.ErrReadError, err.Error()), nil
	}
	if _, err := os.Stat(dst); err == nil {
		if !a.Overwrite {
			return tool.Failure(tool.ErrFileExists, "destination already exists"), nil
		}
		if err := os.RemoveAll(dst); err != nil {
			return tool.Failure(tool.ErrDeleteError, err.Error()), nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return tool.Failure(tool.ErrWriteError, err.Error()), nil
	}
	if err := os.Rename(src, dst); err != nil {
		return tool.Failure(tool.ErrWriteError, err.Error()), nil
	}
	return tool.Success("moved", nil), nil
}

// FileDeleteTool removes a file or, with recursive=true, a directory tree.
type FileDeleteTool struct{ WorkspaceDir string }

func NewFileDeleteTool(workspaceDir string) *FileDeleteTool { return &FileDeleteTool{WorkspaceDir: workspaceDir} }

func (t *FileDeleteTool) Name() string        { return "file_delete" }
func (t *FileDeleteTool) Description() string { return "Delete a file, or a directory tree with recursive=true." }
func (t *FileDeleteTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Required: true},
		tool.SchemaParam{Name: "recursive", Type: "boolean", Description: "required to delete a directory"},
	)
}

func (t *FileDeleteTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Path      string `json:"path"`
		Recursive bool   `json:"recursive"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	resolved, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.Path)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return tool.Failure(tool.ErrFileNotFound, err.Error()), nil
		}
		return tool.Failure(tool.ErrReadError, err.Error()), nil
	}
	if info.IsDir() {
		if !a.Recursive {
			return tool.Failure(tool.ErrRecursiveRequired, "path is a directory; pass recursive=true to delete it"), nil
		}
		if err := os.RemoveAll(resolved); err != nil {
			return tool.Failure(tool.ErrDeleteError, err.Error()), nil
		}
		return tool.Success("deleted", nil), nil
	}
	if err := os.Remove(resolved); err != nil {
		return tool.Failure(tool.ErrDeleteError, err.Error()), nil
	}
	return tool.Success("deleted", nil), nil
}

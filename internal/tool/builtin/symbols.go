package builtin

import (
	"context"
	"encoding/json"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/duskline/forge/internal/tool"
)

type symbolMatch struct {
	Symbol     string  `json:"symbol"`
	File       string  `json:"file"`
	Line       int     `json:"line"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

var pySymbolRe = regexp.MustCompile(`^(\s*)(async\s+def|def|class)\s+(\w+)`)
var tsSymbolRe = regexp.MustCompile(`^(\s*)(?:export\s+)?(?:async\s+)?(function|class|const|let|var)\s+(\w+)`)

const symbolsIndexTimeout = 10 * time.Second

// SymbolsIndexTool searches for function, type, and variable declarations
// by name across the workspace. Go files are parsed with go/ast for
// precision; Python and TypeScript/JS fall back to a line-oriented regex.
type SymbolsIndexTool struct{ WorkspaceDir string }

func NewSymbolsIndexTool(workspaceDir string) *SymbolsIndexTool {
	return &SymbolsIndexTool{WorkspaceDir: workspaceDir}
}

func (t *SymbolsIndexTool) Name() string { return "symbols_index" }
func (t *SymbolsIndexTool) Description() string {
	return "Search for symbols (functions, types, variables) by name across the workspace. Uses go/ast for Go files and falls back to pattern matching for Python/TypeScript."
}
func (t *SymbolsIndexTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "query", Type: "string", Required: true},
		tool.SchemaParam{Name: "lang", Type: "string", Enum: []string{"go", "python", "typescript"}},
		tool.SchemaParam{Name: "exact", Type: "boolean"},
		tool.SchemaParam{Name: "max_results", Type: "integer"},
	)
}

func (t *SymbolsIndexTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Query      string `json:"query"`
		Lang       string `json:"lang"`
		Exact      bool   `json:"exact"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
	}
	if a.Query == "" {
		return tool.Failure(tool.ErrEmptyQuery, "query must not be empty"), nil
	}
	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	ctx, cancel := context.WithTimeout(ctx, symbolsIndexTimeout)
	defer cancel()

	root := t.WorkspaceDir
	candidates := t.candidateFiles(ctx, root, a.Query, a.Lang)

	var results []symbolMatch
	for _, path := range candidates {
		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case ext == ".go" && a.Lang != "python" && a.Lang != "typescript":
			results = append(results, parseGoFile(path, a.Query, a.Exact)...)
		case ext == ".py" && a.Lang != "go" && a.Lang != "typescript":
			results = append(results, parseWithRegex(path, a.Query, a.Exact, pySymbolRe, kindFromPyMatch)...)
		case (ext == ".ts" || ext == ".tsx" || ext == ".js" || ext == ".jsx") && a.Lang != "go" && a.Lang != "python":
			results = append(results, parseWithRegex(path, a.Query, a.Exact, tsSymbolRe, kindFromTsMatch)...)
		}
	}

	for i := range results {
		if rel, err := filepath.Rel(root, results[i].File); err == nil {
			results[i].File = filepath.ToSlash(rel)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		if results[i].File != results[j].File {
			return results[i].File < results[j].File
		}
		return results[i].Line < results[j].Line
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	return tool.Success("", map[string]any{
		"query":        a.Query,
		"results":      results,
		"result_count": len(results),
	}), nil
}

func (t *SymbolsIndexTool) candidateFiles(ctx context.Context, root, query, lang string) []string {
	if rgPath, err := exec.LookPath("rg"); err == nil {
		cmdArgs := []string{"--files-with-matches", "--max-count=1", query, root}
		switch lang {
		case "go":
			cmdArgs = append(cmdArgs, "-g", "*.go")
		case "python":
			cmdArgs = append(cmdArgs, "-g", "*.py")
		case "typescript":
			cmdArgs = append(cmdArgs, "-g", "*.ts", "-g", "*.tsx", "-g", "*.js", "-g", "*.jsx")
		}
		cmd := exec.CommandContext(ctx, rgPath, cmdArgs...)
		out, err := cmd.Output()
		if err == nil {
			var files []string
			for _, line := range strings.Split(string(out), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					files = append(files, line)
				}
			}
			return files
		}
	}

	var files []string
	walkSourceFiles(root, func(path string) { files = append(files, path) })
	return files
}

// walkSourceFiles recurses into root collecting file paths, skipping the
// same VCS/vendor directories as the grep and glob tools.
func walkSourceFiles(root string, fn func(path string)) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if e.IsDir() {
			if skipDirs[e.Name()] {
				continue
			}
			walkSourceFiles(path, fn)
			continue
		}
		fn(path)
	}
}

func confidence(name, query string, exact bool) float64 {
	if exact {
		if name == query {
			return 1.0
		}
		return 0
	}
	if name == query {
		return 1.0
	}
	if strings.EqualFold(name, query) {
		return 0.95
	}
	if strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
		return 0.7
	}
	return 0
}

func parseGoFile(path, query string, exact bool) []symbolMatch {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil
	}
	var results []symbolMatch
	ast.Inspect(file, func(n ast.Node) bool {
		switch decl := n.(type) {
		case *ast.FuncDecl:
			if c := confidence(decl.Name.Name, query, exact); c > 0 {
				results = append(results, symbolMatch{
					Symbol: decl.Name.Name, File: path,
					Line: fset.Position(decl.Pos()).Line, Kind: "function", Confidence: c,
				})
			}
		case *ast.TypeSpec:
			if c := confidence(decl.Name.Name, query, exact); c > 0 {
				results = append(results, symbolMatch{
					Symbol: decl.Name.Name, File: path,
					Line: fset.Position(decl.Pos()).Line, Kind: "type", Confidence: c,
				})
			}
		case *ast.ValueSpec:
			for _, name := range decl.Names {
				if c := confidence(name.Name, query, exact); c > 0 {
					results = append(results, symbolMatch{
						Symbol: name.Name, File: path,
						Line: fset.Position(name.Pos()).Line, Kind: "variable", Confidence: c,
					})
				}
			}
		}
		return true
	})
	return results
}

func parseWithRegex(path, query string, exact bool, pattern *regexp.Regexp, kindFn func(string) string) []symbolMatch {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var results []symbolMatch
	for i, line := range strings.Split(string(data), "\n") {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[len(m)-1]
		kind := m[len(m)-2]
		if c := confidence(name, query, exact); c > 0 {
			results = append(results, symbolMatch{Symbol: name, File: path, Line: i + 1, Kind: kindFn(kind), Confidence: c})
		}
	}
	return results
}

func kindFromPyMatch(kind string) string {
	if strings.Contains(kind, "def") {
		return "function"
	}
	return "class"
}

func kindFromTsMatch(kind string) string {
	switch kind {
	case "function":
		return "function"
	case "class":
		return "class"
	default:
		return "variable"
	}
}

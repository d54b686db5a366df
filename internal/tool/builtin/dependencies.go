package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/duskline/forge/internal/guard"
	"github.com/duskline/forge/internal/tool"
)

type dependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dev     bool   `json:"dev"`
}

var goModRequireRe = regexp.MustCompile(`^\s*([^\s]+)\s+(v[\w.\-+]+)\s*(// indirect)?`)
var pyDepRe = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*([><=!~^][^\s;]*)?`)

// DependenciesReadTool parses dependency manifests (go.mod, package.json,
// pyproject.toml, requirements.txt) into a structured dependency list.
type DependenciesReadTool struct{ WorkspaceDir string }

func NewDependenciesReadTool(workspaceDir string) *DependenciesReadTool {
	return &DependenciesReadTool{WorkspaceDir: workspaceDir}
}

func (t *DependenciesReadTool) Name() string { return "dependencies_read" }
func (t *DependenciesReadTool) Description() string {
	return "Parse dependency manifests in the workspace (go.mod, package.json, pyproject.toml, requirements.txt) and return a structured dependency list."
}
func (t *DependenciesReadTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(tool.SchemaParam{Name: "path", Type: "string"})
}

func (t *DependenciesReadTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Path string `json:"path"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Failure(tool.ErrInvalidArgs, "invalid arguments"), nil
		}
	}
	if a.Path == "" {
		a.Path = "."
	}
	target, err := guard.ResolveInWorkspace(t.WorkspaceDir, a.Path)
	if err != nil {
		return tool.Failure(tool.ErrPathOutsideWorkspace, err.Error()), nil
	}

	info, err := os.Stat(target)
	if err != nil {
		return tool.Failure(tool.ErrNotFound, err.Error()), nil
	}
	if !info.IsDir() {
		return t.parseFile(target)
	}

	candidates := []string{"go.mod", "package.json", "pyproject.toml", "requirements.txt"}
	for _, name := range candidates {
		candidate := filepath.Join(target, name)
		if _, err := os.Stat(candidate); err == nil {
			return t.parseFile(candidate)
		}
	}
	return tool.Failure(tool.ErrNoDependencyFile, "no supported dependency file found (go.mod, package.json, pyproject.toml, requirements.txt)"), nil
}

func (t *DependenciesReadTool) parseFile(path string) (tool.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tool.Failure(tool.ErrNotFound, err.Error()), nil
	}
	text := string(data)
	name := strings.ToLower(filepath.Base(path))

	var deps, devDeps []dependency
	var format string

	switch name {
	case "go.mod":
		deps, format = parseGoMod(text), "go.mod"
	case "package.json":
		deps, devDeps, format = parsePackageJSON(text), parsePackageJSONDev(text), "package.json"
	case "pyproject.toml":
		var perr error
		deps, devDeps, perr = parsePyprojectToml(text)
		if perr != nil {
			return tool.Failure(tool.ErrParseError, perr.Error()), nil
		}
		format = "pyproject.toml"
	case "requirements.txt":
		deps, format = parseRequirementsTxt(text), "requirements.txt"
	default:
		return tool.Failure(tool.ErrUnsupportedFormat, "unsupported dependency file: "+name), nil
	}

	return tool.Success("", map[string]any{
		"format":           format,
		"file":             path,
		"dependencies":     deps,
		"dev_dependencies": devDeps,
		"total_count":      len(deps) + len(devDeps),
	}), nil
}

func parseGoMod(text string) []dependency {
	var deps []dependency
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "require (") {
			inBlock = true
			continue
		}
		if inBlock && trimmed == ")" {
			inBlock = false
			continue
		}
		if inBlock {
			if m := goModRequireRe.FindStringSubmatch(trimmed); m != nil {
				deps = append(deps, dependency{Name: m[1], Version: m[2], Dev: m[3] != ""})
			}
			continue
		}
		if strings.HasPrefix(trimmed, "require ") {
			if m := goModRequireRe.FindStringSubmatch(strings.TrimPrefix(trimmed, "require ")); m != nil {
				deps = append(deps, dependency{Name: m[1], Version: m[2], Dev: m[3] != ""})
			}
		}
	}
	return deps
}

func parseRequirementsTxt(text string) []dependency {
	var deps []dependency
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-r") ||
			strings.HasPrefix(line, "-c") || strings.HasPrefix(line, "--") {
			continue
		}
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if m := pyDepRe.FindStringSubmatch(line); m != nil {
			deps = append(deps, dependency{Name: m[1], Version: m[2]})
		}
	}
	return deps
}

type pyprojectDoc struct {
	Project struct {
		Dependencies          []string            `toml:"dependencies"`
		OptionalDependencies  map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any            `toml:"dependencies"`
			DevDependencies map[string]any            `toml:"dev-dependencies"`
			Group           map[string]poetryGroupDoc `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type poetryGroupDoc struct {
	Dependencies map[string]any `toml:"dependencies"`
}

func parsePyprojectToml(text string) ([]dependency, []dependency, error) {
	var doc pyprojectDoc
	if _, err := toml.Decode(text, &doc); err != nil {
		return nil, nil, err
	}

	var deps, devDeps []dependency
	for _, spec := range doc.Project.Dependencies {
		if m := pyDepRe.FindStringSubmatch(spec); m != nil {
			deps = append(deps, dependency{Name: m[1], Version: m[2]})
		}
	}
	for group, specs := range doc.Project.OptionalDependencies {
		isDev := isDevGroupName(group)
		for _, spec := range specs {
			m := pyDepRe.FindStringSubmatch(spec)
			if m == nil {
				continue
			}
			entry := dependency{Name: m[1], Version: m[2], Dev: isDev}
			if isDev {
				devDeps = append(devDeps, entry)
			} else {
				deps = append(deps, entry)
			}
		}
	}
	for name, spec := range doc.Tool.Poetry.Dependencies {
		if name == "python" {
			continue
		}
		deps = append(deps, dependency{Name: name, Version: poetryVersionString(spec)})
	}
	for name, spec := range doc.Tool.Poetry.DevDependencies {
		devDeps = append(devDeps, dependency{Name: name, Version: poetryVersionString(spec), Dev: true})
	}
	for groupName, group := range doc.Tool.Poetry.Group {
		isDev := isDevGroupName(groupName)
		for name, spec := range group.Dependencies {
			entry := dependency{Name: name, Version: poetryVersionString(spec), Dev: isDev}
			if isDev {
				devDeps = append(devDeps, entry)
			} else {
				deps = append(deps, entry)
			}
		}
	}
	return deps, devDeps, nil
}

func isDevGroupName(name string) bool {
	switch strings.ToLower(name) {
	case "dev", "test", "tests", "lint", "typing", "ci":
		return true
	}
	return false
}

func poetryVersionString(spec any) string {
	switch v := spec.(type) {
	case string:
		return v
	case map[string]any:
		if ver, ok := v["version"].(string); ok {
			return ver
		}
	}
	return ""
}

type packageJSONDoc struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(text string) []dependency {
	var doc packageJSONDoc
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil
	}
	var deps []dependency
	for name, version := range doc.Dependencies {
		deps = append(deps, dependency{Name: name, Version: version})
	}
	return deps
}

func parsePackageJSONDev(text string) []dependency {
	var doc packageJSONDoc
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil
	}
	var deps []dependency
	for name, version := range doc.DevDependencies {
		deps = append(deps, dependency{Name: name, Version: version, Dev: true})
	}
	return deps
}

// Package skill discovers workspace skills: small declarative units under
// <workspace>/skills/<name>/skill.yaml that describe an external command the
// agent can be told about. Loading stops at discovery — compiling or
// running a skill's entry point is left to whatever invokes it.
package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	skillsSubdir = "skills"
	skillYAML    = "skill.yaml"
)

// Def is the parsed content of one skill.yaml.
type Def struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Runtime     string `yaml:"runtime"`
	Entry       string `yaml:"entry"`

	// Dir is the absolute path of the skill's directory, set by ScanDir.
	Dir string `yaml:"-"`
}

var validRuntimes = map[string]bool{"python": true, "node": true, "go": true, "binary": true}

// ScanDir scans <workspaceDir>/skills/ and returns every valid skill
// definition found. A missing skills/ directory is not an error. Invalid
// or unreadable skill.yaml files are reported as errors but don't stop the
// scan of the remaining entries.
func ScanDir(workspaceDir string) ([]*Def, []error) {
	skillsDir := filepath.Join(workspaceDir, skillsSubdir)

	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []error{fmt.Errorf("skill: scan %q: %w", skillsDir, err)}
	}

	var defs []*Def
	var errs []error

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(skillsDir, e.Name())
		yamlPath := filepath.Join(dir, skillYAML)

		data, err := os.ReadFile(yamlPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			errs = append(errs, fmt.Errorf("skill: read %q: %w", yamlPath, err))
			continue
		}

		var def Def
		if err := yaml.Unmarshal(data, &def); err != nil {
			errs = append(errs, fmt.Errorf("skill: parse %q: %w", yamlPath, err))
			continue
		}
		if err := validate(&def, e.Name()); err != nil {
			errs = append(errs, err)
			continue
		}
		def.Dir = dir
		defs = append(defs, &def)
	}

	return defs, errs
}

func validate(def *Def, dirName string) error {
	if def.Name == "" {
		return fmt.Errorf("skill %q: name is required", dirName)
	}
	if def.Description == "" {
		return fmt.Errorf("skill %q: description is required", dirName)
	}
	if def.Runtime == "" {
		return fmt.Errorf("skill %q: runtime is required", dirName)
	}
	if !validRuntimes[def.Runtime] {
		return fmt.Errorf("skill %q: unknown runtime %q", dirName, def.Runtime)
	}
	if def.Name != dirName && !strings.HasPrefix(def.Name, dirName+"_") {
		return fmt.Errorf("skill %q: tool name %q must start with %q prefix", dirName, def.Name, dirName+"_")
	}
	return nil
}

package skill

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate_MissingName(t *testing.T) {
	if err := validate(&Def{}, "dir"); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestValidate_UnknownRuntime(t *testing.T) {
	def := &Def{Name: "dir", Description: "d", Runtime: "ruby", Entry: "main.rb"}
	if err := validate(def, "dir"); err == nil {
		t.Error("expected error for unknown runtime")
	}
}

func TestValidate_BadNamePrefix(t *testing.T) {
	def := &Def{Name: "other", Description: "d", Runtime: "python", Entry: "main.py"}
	if err := validate(def, "dir"); err == nil {
		t.Error("expected error when name doesn't match the directory prefix")
	}
}

func TestValidate_ExactNameMatch(t *testing.T) {
	def := &Def{Name: "dir", Description: "d", Runtime: "python", Entry: "main.py"}
	if err := validate(def, "dir"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestScanDir_NoSkillsDir(t *testing.T) {
	defs, errs := ScanDir(t.TempDir())
	if defs != nil || errs != nil {
		t.Errorf("expected nil/nil for a workspace with no skills/, got %+v / %+v", defs, errs)
	}
}

func TestScanDir_SkipsNonDirs(t *testing.T) {
	dir := t.TempDir()
	skillsDir := filepath.Join(dir, "skills")
	os.MkdirAll(skillsDir, 0755)
	os.WriteFile(filepath.Join(skillsDir, "stray.txt"), []byte("x"), 0644)

	defs, errs := ScanDir(dir)
	if len(defs) != 0 || len(errs) != 0 {
		t.Errorf("expected no defs or errors, got %+v / %+v", defs, errs)
	}
}

func TestScanDir_ValidSkill(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "skills", "excel")
	os.MkdirAll(skillDir, 0755)
	content := "name: excel\ndescription: work with spreadsheets\nruntime: python\nentry: main.py\n"
	os.WriteFile(filepath.Join(skillDir, "skill.yaml"), []byte(content), 0644)

	defs, errs := ScanDir(dir)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(defs) != 1 || defs[0].Name != "excel" {
		t.Fatalf("expected 1 skill named excel, got %+v", defs)
	}
	if defs[0].Dir != skillDir {
		t.Errorf("dir = %q, want %q", defs[0].Dir, skillDir)
	}
}

func TestScanDir_ValidationError(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "skills", "excel")
	os.MkdirAll(skillDir, 0755)
	content := "name: wrong_prefix\ndescription: d\nruntime: python\nentry: main.py\n"
	os.WriteFile(filepath.Join(skillDir, "skill.yaml"), []byte(content), 0644)

	defs, errs := ScanDir(dir)
	if len(defs) != 0 {
		t.Errorf("expected no valid defs, got %+v", defs)
	}
	if len(errs) != 1 {
		t.Errorf("expected 1 validation error, got %+v", errs)
	}
}

func TestScanDir_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "skills", "broken")
	os.MkdirAll(skillDir, 0755)
	os.WriteFile(filepath.Join(skillDir, "skill.yaml"), []byte("name: [bad\n  yaml"), 0644)

	_, errs := ScanDir(dir)
	if len(errs) != 1 {
		t.Errorf("expected 1 parse error, got %+v", errs)
	}
}

package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		name, query string
		exact       bool
		want        float64
	}{
		{"Foo", "Foo", false, 1.0},
		{"Foo", "foo", false, 0.95},
		{"MyFooBar", "Foo", false, 0.7},
		{"Bar", "Foo", false, 0},
		{"Foo", "foo", true, 0},
		{"Foo", "Foo", true, 1.0},
	}
	for _, tt := range tests {
		if got := confidence(tt.name, tt.query, tt.exact); got != tt.want {
			t.Errorf("confidence(%q, %q, %v) = %v, want %v", tt.name, tt.query, tt.exact, got, tt.want)
		}
	}
}

func TestKindFromPyMatch(t *testing.T) {
	if kindFromPyMatch("def") != "function" {
		t.Error("def should be function")
	}
	if kindFromPyMatch("async def") != "function" {
		t.Error("async def should be function")
	}
	if kindFromPyMatch("class") != "class" {
		t.Error("class should be class")
	}
}

func TestKindFromTsMatch(t *testing.T) {
	if kindFromTsMatch("function") != "function" {
		t.Error("function should be function")
	}
	if kindFromTsMatch("class") != "class" {
		t.Error("class should be class")
	}
	if kindFromTsMatch("const") != "variable" {
		t.Error("const should be variable")
	}
}

func TestParseGoFile_FindsFuncAndType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	content := `package sample

type Widget struct {
	Name string
}

func ProcessWidget(w Widget) error {
	return nil
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	results := parseGoFile(path, "ProcessWidget", true)
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(results), results)
	}
	if results[0].Kind != "function" {
		t.Errorf("kind = %q, want function", results[0].Kind)
	}

	typeResults := parseGoFile(path, "Widget", true)
	if len(typeResults) != 1 || typeResults[0].Kind != "type" {
		t.Errorf("expected Widget type match, got: %+v", typeResults)
	}
}

func TestSymbolsIndexTool_Execute(t *testing.T) {
	dir := t.TempDir()
	content := `package sample

func FindThisSymbol() {}
`
	if err := os.WriteFile(filepath.Join(dir, "sample.go"), []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	st := NewSymbolsIndexTool(dir)
	args, _ := json.Marshal(map[string]any{"query": "FindThisSymbol", "lang": "go", "exact": true})
	result, err := st.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected success, got: %+v", result)
	}
	data := resultData(t, result)
	count, _ := data["result_count"].(float64)
	if count < 1 {
		t.Errorf("expected at least 1 result, got %v", data["result_count"])
	}
}

func TestSymbolsIndexTool_EmptyQuery(t *testing.T) {
	st := NewSymbolsIndexTool(t.TempDir())
	result, err := st.Execute(context.Background(), json.RawMessage(`{"query":""}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected failure for empty query")
	}
}

package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestTranslateYAMLToJSON(t *testing.T) {
	t.Run("preserves all fields", func(t *testing.T) {
		src := []byte(`
name: sample project
configuration:
  readonly_paths:
    - "protected/.*"
    - "Makefile"
  scoring:
    weight: 3
`)
		out, err := TranslateYAMLToJSON(src)
		if err != nil {
			t.Fatalf("TranslateYAMLToJSON() error = %v", err)
		}

		var doc map[string]any
		if err := json.Unmarshal(out, &doc); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if doc["name"] != "sample project" {
			t.Errorf("name = %v", doc["name"])
		}
		conf := doc["configuration"].(map[string]any)
		if _, ok := conf["scoring"]; !ok {
			t.Error("unconsumed fields must survive translation")
		}
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		if _, err := TranslateYAMLToJSON([]byte("configuration: [")); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})
}

func TestReadPolicy(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), JSONName)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write manifest: %v", err)
		}
		return path
	}

	t.Run("reads readonly paths", func(t *testing.T) {
		p, err := ReadPolicy(write(t, `{"configuration": {"readonly_paths": ["protected/.*", "a.txt"]}}`))
		if err != nil {
			t.Fatalf("ReadPolicy() error = %v", err)
		}
		if len(p.ReadOnlyPaths) != 2 || p.ReadOnlyPaths[0] != "protected/.*" {
			t.Errorf("ReadOnlyPaths = %v", p.ReadOnlyPaths)
		}
	})

	t.Run("missing file is empty policy", func(t *testing.T) {
		p, err := ReadPolicy(filepath.Join(t.TempDir(), "absent.json"))
		if err != nil {
			t.Fatalf("ReadPolicy() error = %v", err)
		}
		if len(p.ReadOnlyPaths) != 0 {
			t.Errorf("ReadOnlyPaths = %v, want empty", p.ReadOnlyPaths)
		}
	})

	t.Run("missing configuration section normalizes", func(t *testing.T) {
		p, err := ReadPolicy(write(t, `{"name": "x"}`))
		if err != nil {
			t.Fatalf("ReadPolicy() error = %v", err)
		}
		if len(p.ReadOnlyPaths) != 0 {
			t.Errorf("ReadOnlyPaths = %v, want empty", p.ReadOnlyPaths)
		}
	})

	t.Run("malformed readonly_paths normalizes", func(t *testing.T) {
		p, err := ReadPolicy(write(t, `{"configuration": {"readonly_paths": "not-a-list"}}`))
		if err != nil {
			t.Fatalf("ReadPolicy() error = %v, malformed field must not be an error", err)
		}
		if len(p.ReadOnlyPaths) != 0 {
			t.Errorf("ReadOnlyPaths = %v, want empty", p.ReadOnlyPaths)
		}
	})

	t.Run("non-string entries are dropped", func(t *testing.T) {
		p, err := ReadPolicy(write(t, `{"configuration": {"readonly_paths": ["ok", 7, null]}}`))
		if err != nil {
			t.Fatalf("ReadPolicy() error = %v", err)
		}
		if len(p.ReadOnlyPaths) != 1 || p.ReadOnlyPaths[0] != "ok" {
			t.Errorf("ReadOnlyPaths = %v, want [ok]", p.ReadOnlyPaths)
		}
	})

	t.Run("unparsable file is an error", func(t *testing.T) {
		if _, err := ReadPolicy(write(t, `{broken`)); err == nil {
			t.Error("expected error for unparsable manifest")
		}
	})
}

func TestCompilePatterns(t *testing.T) {
	p := Policy{ReadOnlyPaths: []string{"protected/.*", "[invalid", "exact.txt"}}
	patterns := p.CompilePatterns()
	if len(patterns) != 2 {
		t.Fatalf("compiled %d patterns, want 2 (invalid dropped)", len(patterns))
	}
	if !patterns[0].MatchString("protected/file.go") {
		t.Error("pattern should match protected/file.go")
	}
}

package admission

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikecalendo/gh-serv/pkg/gitcli"
)

func hookDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestRunRejectsDeletion(t *testing.T) {
	dir := hookDir(t, nil)
	var out strings.Builder

	code := Run(strings.NewReader(oldHash+" "+gitcli.ZeroHash), &out, dir)
	if code == 0 {
		t.Error("deletion push must exit non-zero")
	}
	if !strings.Contains(out.String(), "Deletion of branches is not allowed.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunRejectsOversizedRepo(t *testing.T) {
	dir := hookDir(t, map[string]string{"max_size": "1"})
	if err := os.WriteFile(filepath.Join(dir, "blob"), make([]byte, 4096), 0o644); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder

	code := Run(strings.NewReader(oldHash+" "+newHash), &out, dir)
	if code == 0 {
		t.Error("oversized push must exit non-zero")
	}
	if !strings.Contains(out.String(), "too large") || !strings.Contains(out.String(), "1 KB") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunAcceptsCleanPush(t *testing.T) {
	// No manifest and a generous cap: nothing to reject.
	dir := hookDir(t, map[string]string{"max_size": "20480"})
	var out strings.Builder

	code := Run(strings.NewReader(oldHash+" "+newHash+" refs/heads/master"), &out, dir)
	if code != 0 {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if !strings.Contains(out.String(), "Pushed to Git Server") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunFailsClosedOnUnparsableManifest(t *testing.T) {
	dir := hookDir(t, map[string]string{
		"max_size":        "20480",
		"hackerrank.json": "{broken",
	})
	var out strings.Builder

	code := Run(strings.NewReader(oldHash+" "+newHash), &out, dir)
	if code == 0 {
		t.Error("unparsable manifest must reject the push")
	}
	if !strings.Contains(out.String(), "Unknown server error occurred.") {
		t.Errorf("output = %q, want generic banner", out.String())
	}
	if strings.Contains(out.String(), "broken") {
		t.Error("internal details leaked to the pusher")
	}
}

func TestRunToleratesMalformedPolicyField(t *testing.T) {
	// A malformed readonly_paths field fails open: no patterns, push allowed.
	dir := hookDir(t, map[string]string{
		"max_size":        "20480",
		"hackerrank.json": `{"configuration": {"readonly_paths": 42}}`,
	})
	var out strings.Builder

	if code := Run(strings.NewReader(oldHash+" "+newHash), &out, dir); code != 0 {
		t.Errorf("exit code = %d, output %q", code, out.String())
	}
}

func TestRunRejectsGarbageStdin(t *testing.T) {
	dir := hookDir(t, nil)
	var out strings.Builder

	if code := Run(strings.NewReader(""), &out, dir); code == 0 {
		t.Error("empty stdin must reject the push")
	}
}

func TestRunMissingMaxSizeUsesDefault(t *testing.T) {
	dir := hookDir(t, nil)
	var out strings.Builder

	if code := Run(strings.NewReader(oldHash+" "+newHash), &out, dir); code != 0 {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if !strings.Contains(out.String(), "20MB") {
		t.Errorf("output = %q, want default 20MB cap in gauge", out.String())
	}
}

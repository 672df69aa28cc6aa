package admission

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/mikecalendo/gh-serv/pkg/gitcli"
	"github.com/mikecalendo/gh-serv/pkg/gserr"
)

// fakeGit is a scriptable Git collaborator.
type fakeGit struct {
	diffPaths []string
	diffErr   error
	diffBase  string // records the base Check used
	sizeKB    int64
	sizeErr   error
	root      string
	rootErr   error
}

func (f *fakeGit) DiffPaths(oldHash, newHash string) ([]string, error) {
	f.diffBase = oldHash
	return f.diffPaths, f.diffErr
}

func (f *fakeGit) SizeKB() (int64, error)  { return f.sizeKB, f.sizeErr }
func (f *fakeGit) RootCommit(string) (string, error) { return f.root, f.rootErr }

func patterns(exprs ...string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

const (
	oldHash = "1111111111111111111111111111111111111111"
	newHash = "2222222222222222222222222222222222222222"
)

func TestParseRefUpdate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RefUpdate
		wantErr bool
	}{
		{"plain pair", oldHash + " " + newHash, RefUpdate{oldHash, newHash}, false},
		{"with ref name", oldHash + " " + newHash + " refs/heads/master\n", RefUpdate{oldHash, newHash}, false},
		{"newline separated", oldHash + "\n" + newHash, RefUpdate{oldHash, newHash}, false},
		{"empty", "", RefUpdate{}, true},
		{"single field", oldHash, RefUpdate{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRefUpdate(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRefUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseRefUpdate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCheckDeletion(t *testing.T) {
	c := &Checker{Git: &fakeGit{sizeKB: 1}, MaxSizeKB: 100}

	err := c.Check(RefUpdate{Old: oldHash, New: gitcli.ZeroHash})
	if !gserr.IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if !strings.Contains(err.Error(), "Deletion of branches is not allowed.") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCheckDeletionBeatsOtherChecks(t *testing.T) {
	// Deletion is rejected even when size is over the cap and the diff
	// would fail; the pipeline short-circuits on the first check.
	c := &Checker{
		Git:       &fakeGit{sizeKB: 9999, diffErr: errors.New("diff must not run")},
		MaxSizeKB: 1,
		Patterns:  patterns(".*"),
	}
	err := c.Check(RefUpdate{Old: oldHash, New: gitcli.ZeroHash})
	if !strings.Contains(err.Error(), "Deletion of branches") {
		t.Errorf("error = %v, deletion must win", err)
	}
}

func TestCheckSize(t *testing.T) {
	t.Run("over the cap rejects naming both sizes", func(t *testing.T) {
		c := &Checker{Git: &fakeGit{sizeKB: 2048}, MaxSizeKB: 1024}
		err := c.Check(RefUpdate{Old: oldHash, New: newHash})
		if !gserr.IsValidation(err) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
		if !strings.Contains(err.Error(), "2048 KB") || !strings.Contains(err.Error(), "1024 KB") {
			t.Errorf("message %q must name measured and allowed sizes", err.Error())
		}
	})

	t.Run("at the cap passes", func(t *testing.T) {
		c := &Checker{Git: &fakeGit{sizeKB: 1024}, MaxSizeKB: 1024}
		if err := c.Check(RefUpdate{Old: oldHash, New: newHash}); err != nil {
			t.Errorf("Check() error = %v, want nil at cap", err)
		}
	})

	t.Run("size probe failure is internal", func(t *testing.T) {
		c := &Checker{Git: &fakeGit{sizeErr: errors.New("walk failed")}, MaxSizeKB: 1024}
		err := c.Check(RefUpdate{Old: oldHash, New: newHash})
		if err == nil || gserr.IsValidation(err) {
			t.Errorf("error = %v, want internal error", err)
		}
	})
}

func TestCheckReadOnly(t *testing.T) {
	t.Run("matching path rejects listing every offender", func(t *testing.T) {
		git := &fakeGit{sizeKB: 1, diffPaths: []string{"protected/a.txt", "other/ok.txt", "protected/b.txt"}}
		c := &Checker{Git: git, MaxSizeKB: 100, Patterns: patterns("protected/.*")}

		err := c.Check(RefUpdate{Old: oldHash, New: newHash})
		if !gserr.IsValidation(err) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
		msg := err.Error()
		if !strings.Contains(msg, "protected/a.txt") || !strings.Contains(msg, "protected/b.txt") {
			t.Errorf("message %q must list every offending path", msg)
		}
		if strings.Contains(msg, "other/ok.txt") {
			t.Errorf("message %q lists a non-matching path", msg)
		}
	})

	t.Run("no matching paths passes despite patterns", func(t *testing.T) {
		git := &fakeGit{sizeKB: 1, diffPaths: []string{"other/ok.txt"}}
		c := &Checker{Git: git, MaxSizeKB: 100, Patterns: patterns("protected/.*")}
		if err := c.Check(RefUpdate{Old: oldHash, New: newHash}); err != nil {
			t.Errorf("Check() error = %v, want nil", err)
		}
	})

	t.Run("no patterns skips the diff", func(t *testing.T) {
		git := &fakeGit{sizeKB: 1, diffErr: errors.New("diff must not run")}
		c := &Checker{Git: git, MaxSizeKB: 100}
		if err := c.Check(RefUpdate{Old: oldHash, New: newHash}); err != nil {
			t.Errorf("Check() error = %v, want nil", err)
		}
	})

	t.Run("zero pre-image diffs against root commit", func(t *testing.T) {
		git := &fakeGit{sizeKB: 1, root: oldHash}
		c := &Checker{Git: git, MaxSizeKB: 100, Patterns: patterns("protected/.*")}
		if err := c.Check(RefUpdate{Old: gitcli.ZeroHash, New: newHash}); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if git.diffBase != oldHash {
			t.Errorf("diff base = %s, want root commit %s", git.diffBase, oldHash)
		}
	})

	t.Run("zero pre-image without root falls back to empty tree", func(t *testing.T) {
		git := &fakeGit{sizeKB: 1, rootErr: errors.New("no commits")}
		c := &Checker{Git: git, MaxSizeKB: 100, Patterns: patterns("protected/.*")}
		if err := c.Check(RefUpdate{Old: gitcli.ZeroHash, New: newHash}); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if git.diffBase != gitcli.EmptyTreeHash {
			t.Errorf("diff base = %s, want empty tree", git.diffBase)
		}
	})

	t.Run("size check precedes diff", func(t *testing.T) {
		git := &fakeGit{sizeKB: 500, diffErr: errors.New("diff must not run")}
		c := &Checker{Git: git, MaxSizeKB: 100, Patterns: patterns(".*")}
		err := c.Check(RefUpdate{Old: oldHash, New: newHash})
		if !strings.Contains(err.Error(), "too large") {
			t.Errorf("error = %v, size rejection must short-circuit the diff", err)
		}
	})
}

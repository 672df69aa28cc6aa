// Package gitcli wraps the external git executable behind a narrow,
// substitutable interface: path diffs, disk usage, history and archive
// export. Both the push-admission hook and the HTTP surface consume it; in
// tests it is replaced by fakes.
package gitcli

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/mikecalendo/gh-serv/pkg/repository"
)

const (
	// ZeroHash is the all-zero object id git sends for an absent ref side.
	ZeroHash = "0000000000000000000000000000000000000000"

	// EmptyTreeHash is git's well-known empty tree object, used as a diff
	// base for repositories with no commits.
	EmptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

	// maxDiffOutput caps diff subprocess output so a pathological push
	// cannot balloon hook memory.
	maxDiffOutput = 5 << 20
)

// Commit is one history entry.
type Commit struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// Runner executes git subcommands inside one repository directory.
type Runner struct {
	// Dir is the repository working directory (the bare repo path).
	Dir string

	// Binary is the git executable; empty means "git" from PATH.
	Binary string
}

// New returns a Runner for the repository at dir.
func New(dir string) *Runner {
	return &Runner{Dir: dir}
}

func (r *Runner) git() string {
	if r.Binary != "" {
		return r.Binary
	}
	return "git"
}

// run executes a git subcommand, capping captured stdout at limit bytes.
func (r *Runner) run(limit int64, args ...string) (string, error) {
	cmd := exec.Command(r.git(), args...)
	cmd.Dir = r.Dir

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &out, n: limit}
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}

// DiffPaths returns the set of file paths changed between two commits.
func (r *Runner) DiffPaths(oldHash, newHash string) ([]string, error) {
	out, err := r.run(maxDiffOutput, "diff", oldHash, newHash, "--name-only")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// SizeKB returns the repository's disk usage in KB. It computes the same
// rounded sum as the repository entity so both sides of the size cap agree.
func (r *Runner) SizeKB() (int64, error) {
	return repository.DiskUsageKB(r.Dir)
}

// RootCommit resolves the first commit of a branch. Used as the diff base
// for the first push into an empty branch.
func (r *Runner) RootCommit(branch string) (string, error) {
	out, err := r.run(1<<16, "rev-list", "--max-parents=0", "--first-parent", branch)
	if err != nil {
		return "", err
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		return "", fmt.Errorf("no root commit on branch %q", branch)
	}
	// rev-list may print several roots for octopus histories; the first
	// line is the --first-parent root.
	if i := strings.IndexByte(hash, '\n'); i >= 0 {
		hash = hash[:i]
	}
	return hash, nil
}

// History returns the commit log, newest first.
func (r *Runner) History() ([]Commit, error) {
	out, err := r.run(maxDiffOutput, "log", "--format=%H%x1f%an%x1f%aI%x1f%s")
	if err != nil {
		return nil, err
	}
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\x1f", 4)
		if len(fields) != 4 {
			continue
		}
		commits = append(commits, Commit{
			Hash:    fields[0],
			Author:  fields[1],
			Date:    fields[2],
			Message: fields[3],
		})
	}
	return commits, nil
}

// HeadPatch returns the textual diff introduced by the HEAD commit.
func (r *Runner) HeadPatch() (string, error) {
	return r.run(maxDiffOutput, "show", "--format=", "HEAD")
}

// Archive streams a zip archive of the HEAD tree to w.
func (r *Runner) Archive(w io.Writer) error {
	cmd := exec.Command(r.git(), "archive", "--format=zip", "HEAD")
	cmd.Dir = r.Dir
	cmd.Stdout = w

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git archive: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// limitedWriter writes through to w until n bytes have been written, then
// silently discards the rest. Diff consumers only need path names, so
// truncation past the cap is acceptable.
type limitedWriter struct {
	w io.Writer
	n int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.n <= 0 {
		return len(p), nil
	}
	if int64(len(p)) > lw.n {
		if _, err := lw.w.Write(p[:lw.n]); err != nil {
			return 0, err
		}
		lw.n = 0
		return len(p), nil
	}
	lw.n -= int64(len(p))
	return lw.w.Write(p)
}

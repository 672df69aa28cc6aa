package admission

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mikecalendo/gh-serv/pkg/gitcli"
	"github.com/mikecalendo/gh-serv/pkg/gserr"
)

// Git is the narrow view of the version-control collaborator the checks
// need. gitcli.Runner implements it; tests substitute fakes.
type Git interface {
	DiffPaths(oldHash, newHash string) ([]string, error)
	SizeKB() (int64, error)
	RootCommit(branch string) (string, error)
}

// RefUpdate is one pre-receive stdin line: the pre-image and post-image
// commit hashes of the branch being pushed.
type RefUpdate struct {
	Old string
	New string
}

// ParseRefUpdate reads the single ref-update line git writes to the hook's
// stdin. The ref name, when present, is ignored.
func ParseRefUpdate(r io.Reader) (RefUpdate, error) {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return RefUpdate{}, fmt.Errorf("failed to read ref update: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return RefUpdate{}, fmt.Errorf("malformed ref update line: %q", strings.TrimSpace(string(data)))
	}
	return RefUpdate{Old: fields[0], New: fields[1]}, nil
}

// Checker validates a single push. Checks run in a fixed order and
// short-circuit on the first failure; each failure is a ValidationError
// whose message is shown verbatim on the pusher's terminal.
type Checker struct {
	Git       Git
	MaxSizeKB int64
	Patterns  []*regexp.Regexp
}

// Check runs the admission pipeline: non-deletion, size cap, read-only
// paths. A nil return accepts the push.
func (c *Checker) Check(upd RefUpdate) error {
	if err := c.checkDeletion(upd); err != nil {
		return err
	}
	if err := c.checkSize(); err != nil {
		return err
	}
	return c.checkReadOnly(upd)
}

func (c *Checker) checkDeletion(upd RefUpdate) error {
	if upd.New == gitcli.ZeroHash {
		return gserr.Validationf("Deletion of branches is not allowed.")
	}
	return nil
}

func (c *Checker) checkSize() error {
	size, err := c.Git.SizeKB()
	if err != nil {
		return fmt.Errorf("failed to measure repository size: %w", err)
	}
	if size > c.MaxSizeKB {
		return gserr.Validationf("Repo (%d KB) too large. Maximum allowed: %d KB.", size, c.MaxSizeKB)
	}
	return nil
}

func (c *Checker) checkReadOnly(upd RefUpdate) error {
	if len(c.Patterns) == 0 {
		return nil
	}

	base := upd.Old
	if base == gitcli.ZeroHash {
		// First push into an empty branch: diff against the repository's
		// initial state, or the empty tree if there is none.
		root, err := c.Git.RootCommit("master")
		if err != nil {
			base = gitcli.EmptyTreeHash
		} else {
			base = root
		}
	}

	paths, err := c.Git.DiffPaths(base, upd.New)
	if err != nil {
		return fmt.Errorf("failed to diff %s..%s: %w", base, upd.New, err)
	}

	var matches []string
	for _, path := range paths {
		for _, pattern := range c.Patterns {
			if pattern.MatchString(path) {
				matches = append(matches, path)
				break
			}
		}
	}
	if len(matches) > 0 {
		return gserr.Validationf("Attempting to modify read only files: \n\t%s", strings.Join(matches, "\n\t"))
	}
	return nil
}

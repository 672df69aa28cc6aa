package admission

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mikecalendo/gh-serv/pkg/config"
	"github.com/mikecalendo/gh-serv/pkg/gitcli"
	"github.com/mikecalendo/gh-serv/pkg/gserr"
	"github.com/mikecalendo/gh-serv/pkg/manifest"
)

const maxSizeFile = "max_size"

// Run executes the full pre-receive hook against the repository at dir:
// parse the stdin ref update, load repository-local policy (max_size and
// hackerrank.json), run the checks and render the outcome to stdout.
//
// The returned value is the process exit code: 0 accepts the push, anything
// else rejects it. Internal errors never accept: they render a generic
// banner and reject.
func Run(stdin io.Reader, stdout io.Writer, dir string) int {
	upd, err := ParseRefUpdate(stdin)
	if err != nil {
		RenderError(stdout, "Unknown server error occurred.")
		return 1
	}

	policy, err := manifest.ReadPolicy(filepath.Join(dir, manifest.JSONName))
	if err != nil {
		// An unreadable manifest is fail-closed: without trustworthy
		// policy the push is rejected.
		RenderError(stdout, "Unknown server error occurred.")
		return 1
	}

	checker := &Checker{
		Git:       gitcli.New(dir),
		MaxSizeKB: readMaxSize(dir),
		Patterns:  policy.CompilePatterns(),
	}

	if err := checker.Check(upd); err != nil {
		if gserr.IsValidation(err) {
			RenderError(stdout, err.Error())
		} else {
			RenderError(stdout, "Unknown server error occurred.")
		}
		return 1
	}

	size, err := checker.Git.SizeKB()
	if err != nil {
		// The push already passed every check; a failed gauge read only
		// degrades the banner.
		size = 0
	}
	RenderStatus(stdout, size, checker.MaxSizeKB)
	return 0
}

// readMaxSize loads the size cap from the repository-local max_size file,
// falling back to the built-in default when missing or unparsable.
func readMaxSize(dir string) int64 {
	data, err := os.ReadFile(filepath.Join(dir, maxSizeFile))
	if err != nil {
		return config.DefaultMaxSizeKB
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || n < 0 {
		return config.DefaultMaxSizeKB
	}
	return n
}

package health

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mikecalendo/gh-serv/pkg/config"
)

// Status is the outcome of a health evaluation, already mapped to the HTTP
// status code the check endpoint reports.
type Status struct {
	Code    int
	Message string
}

// Checker evaluates process health: resident memory against the configured
// ceiling and writability of the repository root.
type Checker struct {
	memLimitBytes int64
	gitRoot       string
}

// New creates a health checker for the given limits and storage root.
func New(cfg config.HealthConfig, gitRoot string) *Checker {
	return &Checker{
		memLimitBytes: cfg.MemLimitBytes,
		gitRoot:       gitRoot,
	}
}

// Check runs all health probes. Memory is evaluated first; a process over
// its memory ceiling reports 503 even if storage is also broken.
func (c *Checker) Check() Status {
	if err := c.checkMemory(); err != nil {
		return Status{Code: http.StatusServiceUnavailable, Message: err.Error()}
	}
	if err := c.checkFilesystem(); err != nil {
		return Status{Code: http.StatusInsufficientStorage, Message: err.Error()}
	}
	return Status{Code: http.StatusOK, Message: "OK"}
}

func (c *Checker) checkMemory() error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if int64(m.Sys) > c.memLimitBytes {
		return errors.New("Exceeded memory limit.")
	}
	return nil
}

// checkFilesystem probes the repository root with a throwaway write, the
// same operation provisioning depends on.
func (c *Checker) checkFilesystem() error {
	probe := filepath.Join(c.gitRoot, ".health-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return errors.New("File system unhealthy.")
	}
	os.Remove(probe)
	return nil
}

// Handler serves the health check result as a plain text response.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := c.Check()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status.Code)
		fmt.Fprintln(w, status.Message)
	})
}

package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/google/uuid"

	"github.com/mikecalendo/gh-serv/pkg/auth"
	"github.com/mikecalendo/gh-serv/pkg/config"
	"github.com/mikecalendo/gh-serv/pkg/shard"
)

const (
	// inactiveLock is the sentinel file whose presence marks a repository
	// inactive. Content is irrelevant.
	inactiveLock = "inactive.lock"

	// maxSizeFile persists the size cap in KB as plain integer text.
	maxSizeFile = "max_size"
)

// Repository is a stateless view over one on-disk bare repository. All
// durable state lives on disk and is re-derived on every access; instances
// hold no cache that could diverge from the filesystem.
type Repository struct {
	id  string
	cfg *config.Config
}

// New returns the Repository handle for id. An empty id gets a freshly
// generated one; the underlying directory may not exist yet.
func New(cfg *config.Config, id string) *Repository {
	if id == "" {
		id = uuid.NewString()
	}
	return &Repository{id: id, cfg: cfg}
}

// ID returns the repository id.
func (r *Repository) ID() string {
	return r.id
}

// Path returns the sharded on-disk location of the repository.
func (r *Repository) Path() string {
	return shard.Path(r.cfg.Git.Root, r.id)
}

// Exists reports whether a valid bare git repository is present at the
// shard path.
func (r *Repository) Exists() bool {
	_, err := gogit.PlainOpen(r.Path())
	return err == nil
}

// Active reports whether the repository accepts anonymous access. A
// repository is active exactly when the sentinel lock file is absent.
func (r *Repository) Active() bool {
	_, err := os.Stat(filepath.Join(r.Path(), inactiveLock))
	return os.IsNotExist(err)
}

// SetActive toggles the active flag by creating or removing the sentinel
// file. Setting the current value is a no-op.
func (r *Repository) SetActive(active bool) error {
	lock := filepath.Join(r.Path(), inactiveLock)
	if active {
		if err := os.Remove(lock); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove inactive lock: %w", err)
		}
		return nil
	}
	f, err := os.OpenFile(lock, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create inactive lock: %w", err)
	}
	return f.Close()
}

// Size returns the repository's disk usage in KB, computed on demand.
func (r *Repository) Size() (int64, error) {
	return DiskUsageKB(r.Path())
}

// MaxSize returns the persisted size cap in KB, falling back to the
// configured default when the max_size file is missing or unparsable.
func (r *Repository) MaxSize() int64 {
	data, err := os.ReadFile(filepath.Join(r.Path(), maxSizeFile))
	if err != nil {
		return r.cfg.Git.DefaultMaxSizeKB
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || n < 0 {
		return r.cfg.Git.DefaultMaxSizeKB
	}
	return n
}

// SetMaxSize persists a new size cap. Invalid input (unparsable or
// negative) is silently ignored; the previous value stays in effect.
func (r *Repository) SetMaxSize(value string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	path := filepath.Join(r.Path(), maxSizeFile)
	if err := os.WriteFile(path, []byte(strconv.FormatInt(n, 10)), 0o644); err != nil {
		return fmt.Errorf("failed to persist max_size: %w", err)
	}
	return nil
}

// ManagerKey returns the derived manager secret for this repository.
func (r *Repository) ManagerKey() string {
	return auth.ManagerKey(r.id, r.cfg.Auth.ManagerSecret)
}

// DiskUsageKB sums on-disk usage under path in KB, counting each file as
// ceil(bytes/1024). The push-admission hook computes sizes the same way so
// that entity reads and admission decisions agree on the unit.
func DiskUsageKB(path string) (int64, error) {
	var kb int64
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		kb += (info.Size() + 1023) / 1024
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to compute disk usage of %q: %w", path, err)
	}
	return kb, nil
}

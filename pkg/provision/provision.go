package provision

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/mikecalendo/gh-serv/pkg/config"
	"github.com/mikecalendo/gh-serv/pkg/gserr"
	"github.com/mikecalendo/gh-serv/pkg/manifest"
	"github.com/mikecalendo/gh-serv/pkg/repository"
)

const initialCommitMessage = "Add initial repository"

// Pipeline builds new bare repositories from a zip archive or from an
// existing sibling repository. Pipelines are not atomic: a failed attempt
// may leave a partially-populated shard directory behind, which the
// maintenance sweeper collects later.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a provisioning pipeline.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		logger: slog.Default().With("component", "provision"),
	}
}

// CreateFromArchive provisions a new repository from the zip archive at
// archiveURL. maxSizeKB of 0 means the configured default. The archive must
// contain a hackerrank.yml manifest at its root.
func (p *Pipeline) CreateFromArchive(archiveURL string, maxSizeKB int64) (*repository.Repository, error) {
	repo := repository.New(p.cfg, "")
	fsPath := repo.Path()
	sourcePath := filepath.Join(fsPath, "source")

	ceiling := maxSizeKB
	if ceiling <= 0 {
		ceiling = p.cfg.Git.DefaultMaxSizeKB
	}

	start := time.Now()
	if err := fetchAndExtract(archiveURL, sourcePath, ceiling); err != nil {
		return nil, err
	}

	if err := p.relocateManifests(sourcePath, fsPath); err != nil {
		return nil, err
	}

	if err := commitInitialSource(sourcePath); err != nil {
		return nil, fmt.Errorf("failed to commit initial source: %w", err)
	}

	if err := p.convertToBare(sourcePath, fsPath); err != nil {
		return nil, fmt.Errorf("failed to convert to bare repository: %w", err)
	}

	if err := p.finalize(repo, maxSizeKB); err != nil {
		return nil, err
	}

	p.logger.Info("repository created from archive",
		"repo_id", repo.ID(),
		"max_size_kb", ceiling,
		"duration", time.Since(start),
	)
	return repo, nil
}

// CreateFromGit provisions a new repository by bare-cloning the repository
// identified by the trailing path segment of gitURL.
func (p *Pipeline) CreateFromGit(gitURL string, maxSizeKB int64) (*repository.Repository, error) {
	sourceID := gitURL
	if i := strings.LastIndex(gitURL, "/"); i >= 0 {
		sourceID = gitURL[i+1:]
	}

	source := repository.New(p.cfg, sourceID)
	if !source.Exists() {
		return nil, gserr.NotFoundf("Source Repo Not Found.")
	}

	repo := repository.New(p.cfg, "")
	fsPath := repo.Path()

	if err := os.MkdirAll(filepath.Dir(fsPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create shard directory: %w", err)
	}
	if _, err := gogit.PlainClone(fsPath, true, &gogit.CloneOptions{URL: source.Path()}); err != nil {
		return nil, fmt.Errorf("failed to clone source repository: %w", err)
	}

	for _, name := range []string{manifest.YAMLName, manifest.JSONName} {
		if err := copyFile(filepath.Join(source.Path(), name), filepath.Join(fsPath, name)); err != nil {
			return nil, fmt.Errorf("failed to copy manifest %s: %w", name, err)
		}
	}

	if err := p.finalize(repo, maxSizeKB); err != nil {
		return nil, err
	}

	p.logger.Info("repository cloned",
		"repo_id", repo.ID(),
		"source_id", sourceID,
	)
	return repo, nil
}

// relocateManifests validates the authored manifest, translates it to JSON
// and moves both files from the staged source tree to the repository root,
// keeping them out of version control.
func (p *Pipeline) relocateManifests(sourcePath, fsPath string) error {
	ymlStaged := filepath.Join(sourcePath, manifest.YAMLName)
	jsonStaged := filepath.Join(sourcePath, manifest.JSONName)

	if _, err := os.Stat(ymlStaged); err != nil {
		return gserr.Validationf("Project manifest unreadable.")
	}
	if err := manifest.TranslateFile(ymlStaged, jsonStaged); err != nil {
		return gserr.Validationf("Project manifest unreadable.")
	}

	for _, name := range []string{manifest.YAMLName, manifest.JSONName} {
		if err := os.Rename(filepath.Join(sourcePath, name), filepath.Join(fsPath, name)); err != nil {
			return fmt.Errorf("failed to relocate manifest %s: %w", name, err)
		}
	}
	return nil
}

// commitInitialSource turns the staged source tree into a git repository
// with a single commit.
func commitInitialSource(sourcePath string) error {
	wr, err := gogit.PlainInit(sourcePath, false)
	if err != nil {
		return err
	}
	wt, err := wr.Worktree()
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return err
	}
	_, err = wt.Commit(initialCommitMessage, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Git Server",
			Email: "git-server@localhost",
			When:  time.Now(),
		},
	})
	return err
}

// convertToBare bare-clones the staged working repository and hoists the
// clone's contents up to the repository root, discarding the staging tree
// and any hooks the clone brought along.
func (p *Pipeline) convertToBare(sourcePath, fsPath string) error {
	barePath := filepath.Join(fsPath, "repo")
	if _, err := gogit.PlainClone(barePath, true, &gogit.CloneOptions{URL: sourcePath}); err != nil {
		return err
	}

	entries, err := os.ReadDir(barePath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.Rename(filepath.Join(barePath, entry.Name()), filepath.Join(fsPath, entry.Name())); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(sourcePath); err != nil {
		return err
	}
	return os.RemoveAll(barePath)
}

// finalize installs the push-admission hook, configures the transport-level
// deletion refusal and persists the size cap. It runs for both pipelines.
func (p *Pipeline) finalize(repo *repository.Repository, maxSizeKB int64) error {
	if err := p.installHook(repo.Path()); err != nil {
		return fmt.Errorf("failed to install pre-receive hook: %w", err)
	}
	if err := denyDeletes(repo.Path()); err != nil {
		return fmt.Errorf("failed to configure receive.denyDeletes: %w", err)
	}
	if maxSizeKB > 0 {
		if err := repo.SetMaxSize(strconv.FormatInt(maxSizeKB, 10)); err != nil {
			return err
		}
	}
	return nil
}

// installHook links the configured hook binary as the repository's
// pre-receive hook, replacing whatever hooks the conversion carried over.
func (p *Pipeline) installHook(fsPath string) error {
	hooksDir := filepath.Join(fsPath, "hooks")
	if err := os.RemoveAll(hooksDir); err != nil {
		return err
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return err
	}
	return os.Symlink(p.cfg.Git.HookPath, filepath.Join(hooksDir, "pre-receive"))
}

// denyDeletes sets receive.denyDeletes on the bare repository so git
// refuses ref deletions before the hook runs.
func denyDeletes(fsPath string) error {
	r, err := gogit.PlainOpen(fsPath)
	if err != nil {
		return err
	}
	cfg, err := r.Config()
	if err != nil {
		return err
	}
	cfg.Raw.Section("receive").SetOption("denyDeletes", "true")
	return r.Storer.SetConfig(cfg)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

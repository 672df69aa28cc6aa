package githttp

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/mikecalendo/gh-serv/pkg/auth"
	"github.com/mikecalendo/gh-serv/pkg/config"
	"github.com/mikecalendo/gh-serv/pkg/gitcli"
	"github.com/mikecalendo/gh-serv/pkg/repository"
	"github.com/mikecalendo/gh-serv/pkg/telemetry/metrics"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Git.Root = t.TempDir()
	cfg.Git.DefaultMaxSizeKB = 20480
	cfg.Auth.AdminSecret = "admin-secret"
	cfg.Auth.ManagerSecret = "manager-secret"
	return cfg
}

// seedRepo builds a bare repository with one commit at the sharded path
// for id.
func seedRepo(t *testing.T, cfg *config.Config, id string) *repository.Repository {
	t.Helper()

	work := t.TempDir()
	if err := os.WriteFile(filepath.Join(work, "README"), []byte("seed"), 0o644); err != nil {
		t.Fatal(err)
	}
	wr, err := gogit.PlainInit(work, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := wr.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Commit("seed commit", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Tester", Email: "tester@localhost", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}

	repo := repository.New(cfg, id)
	if err := os.MkdirAll(filepath.Dir(repo.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := gogit.PlainClone(repo.Path(), true, &gogit.CloneOptions{URL: work}); err != nil {
		t.Fatal(err)
	}
	return repo
}

type pushLog struct{ ids []string }

func (p *pushLog) RecordPush(repoID string) { p.ids = append(p.ids, repoID) }

func newTestHandler(cfg *config.Config, rec Recorder) (*Handler, *metrics.Collector) {
	collector := metrics.NewCollector(config.MetricsConfig{Enabled: true, Namespace: "ghserv"})
	return NewHandler(func() *config.Config { return cfg }, collector, rec), collector
}

func scrapeMetrics(t *testing.T, collector *metrics.Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func get(h http.Handler, path string, creds *auth.Credentials) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if creds != nil {
		req.SetBasicAuth(creds.Username, creds.Secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTPAccess(t *testing.T) {
	cfg := testConfig(t)
	h, _ := newTestHandler(cfg, nil)

	t.Run("unknown repository is 404", func(t *testing.T) {
		rec := get(h, "/git/no-such-repo/info/refs?service=git-upload-pack", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("inactive repository demands auth", func(t *testing.T) {
		repo := seedRepo(t, cfg, "inactive-repo")
		if err := repo.SetActive(false); err != nil {
			t.Fatal(err)
		}

		rec := get(h, "/git/inactive-repo/history", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="Git Server"` {
			t.Errorf("WWW-Authenticate = %q", got)
		}
	})

	t.Run("admin reaches an inactive repository", func(t *testing.T) {
		requireGit(t)
		repo := seedRepo(t, cfg, "inactive-admin")
		if err := repo.SetActive(false); err != nil {
			t.Fatal(err)
		}

		creds := &auth.Credentials{Username: "admin", Secret: cfg.Auth.AdminSecret}
		rec := get(h, "/git/inactive-admin/history", creds)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("manager key opens only its own repository", func(t *testing.T) {
		requireGit(t)
		repo := seedRepo(t, cfg, "inactive-mgr")
		if err := repo.SetActive(false); err != nil {
			t.Fatal(err)
		}

		creds := &auth.Credentials{Username: "manager", Secret: auth.ManagerKey("inactive-mgr", cfg.Auth.ManagerSecret)}
		if rec := get(h, "/git/inactive-mgr/history", creds); rec.Code != http.StatusOK {
			t.Errorf("own repo status = %d, want 200", rec.Code)
		}

		other := seedRepo(t, cfg, "inactive-other")
		if err := other.SetActive(false); err != nil {
			t.Fatal(err)
		}
		if rec := get(h, "/git/inactive-other/history", creds); rec.Code != http.StatusUnauthorized {
			t.Errorf("foreign repo status = %d, want 401", rec.Code)
		}
	})

	t.Run("unknown operation is 404", func(t *testing.T) {
		seedRepo(t, cfg, "ops-repo")
		rec := get(h, "/git/ops-repo/not-a-thing", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestInfoRefs(t *testing.T) {
	requireGit(t)
	cfg := testConfig(t)
	h, _ := newTestHandler(cfg, nil)
	seedRepo(t, cfg, "refs-repo")

	t.Run("advertises upload-pack", func(t *testing.T) {
		rec := get(h, "/git/refs-repo/info/refs?service=git-upload-pack", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/x-git-upload-pack-advertisement" {
			t.Errorf("Content-Type = %q", ct)
		}
		body := rec.Body.String()
		if !strings.HasPrefix(body, "001e# service=git-upload-pack\n0000") {
			t.Errorf("body does not start with service announcement: %q", body[:min(len(body), 64)])
		}
	})

	t.Run("refuses dumb protocol", func(t *testing.T) {
		rec := get(h, "/git/refs-repo/info/refs", nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("refuses unknown services", func(t *testing.T) {
		rec := get(h, "/git/refs-repo/info/refs?service=git-evil-pack", nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestHistoryEndpoint(t *testing.T) {
	requireGit(t)
	cfg := testConfig(t)
	h, _ := newTestHandler(cfg, nil)
	seedRepo(t, cfg, "hist-repo")

	rec := get(h, "/git/hist-repo/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var commits []gitcli.Commit
	if err := json.Unmarshal(rec.Body.Bytes(), &commits); err != nil {
		t.Fatalf("history is not JSON: %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("got %d commits, want 1", len(commits))
	}
	if commits[0].Message != "seed commit" {
		t.Errorf("message = %q", commits[0].Message)
	}
	if len(commits[0].Hash) != 40 {
		t.Errorf("hash = %q", commits[0].Hash)
	}
}

func TestDiffEndpoint(t *testing.T) {
	requireGit(t)
	cfg := testConfig(t)
	h, _ := newTestHandler(cfg, nil)
	seedRepo(t, cfg, "diff-repo")

	rec := get(h, "/git/diff-repo/diff", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "README") {
		t.Errorf("patch does not mention the committed file: %q", rec.Body.String())
	}
}

func TestSourceZipEndpoint(t *testing.T) {
	requireGit(t)
	cfg := testConfig(t)
	h, _ := newTestHandler(cfg, nil)
	seedRepo(t, cfg, "zip-repo")

	rec := get(h, "/git/zip-repo/source.zip", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := rec.Body.Bytes(); len(body) < 4 || string(body[:2]) != "PK" {
		t.Error("response is not a zip stream")
	}
}

// gitRun executes git in dir with a deterministic identity.
func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Tester",
		"GIT_AUTHOR_EMAIL=tester@localhost",
		"GIT_COMMITTER_NAME=Tester",
		"GIT_COMMITTER_EMAIL=tester@localhost",
		"GIT_TERMINAL_PROMPT=0",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestPushRoundTrip(t *testing.T) {
	requireGit(t)
	cfg := testConfig(t)
	log := &pushLog{}
	h, collector := newTestHandler(cfg, log)
	seedRepo(t, cfg, "round-trip")

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	remote := srv.URL + "/git/round-trip"

	work := t.TempDir()
	gitRun(t, work, "clone", remote, "clone")
	cloneDir := filepath.Join(work, "clone")

	if err := os.WriteFile(filepath.Join(cloneDir, "feature.txt"), []byte("feature\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	gitRun(t, cloneDir, "add", "feature.txt")
	gitRun(t, cloneDir, "commit", "-m", "add feature file")
	gitRun(t, cloneDir, "push", "origin", "HEAD")

	if len(log.ids) != 1 || log.ids[0] != "round-trip" {
		t.Errorf("recorded pushes = %v, want [round-trip]", log.ids)
	}
	if scrape := scrapeMetrics(t, collector); !strings.Contains(scrape, `ghserv_push_total{outcome="success"} 1`) {
		t.Errorf("push counter missing from scrape:\n%s", scrape)
	}

	gitRun(t, work, "clone", remote, "second")
	if _, err := os.Stat(filepath.Join(work, "second", "feature.txt")); err != nil {
		t.Errorf("pushed file missing from fresh clone: %v", err)
	}
}

func TestServiceRPC(t *testing.T) {
	requireGit(t)
	cfg := testConfig(t)
	h, collector := newTestHandler(cfg, nil)
	seedRepo(t, cfg, "rpc-repo")

	post := func(op string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/git/rpc-repo/"+op, body)
		for k, v := range header {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("plain request gets a result stream", func(t *testing.T) {
		rec := post("git-upload-pack", strings.NewReader("0000"), map[string]string{
			"Content-Type": "application/x-git-upload-pack-request",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/x-git-upload-pack-result" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("gzip request body is decoded", func(t *testing.T) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write([]byte("0000")); err != nil {
			t.Fatal(err)
		}
		if err := gz.Close(); err != nil {
			t.Fatal(err)
		}

		rec := post("git-upload-pack", &buf, map[string]string{
			"Content-Type":     "application/x-git-upload-pack-request",
			"Content-Encoding": "gzip",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/x-git-upload-pack-result" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("malformed gzip body is 400", func(t *testing.T) {
		rec := post("git-upload-pack", strings.NewReader("not gzip"), map[string]string{
			"Content-Type":     "application/x-git-upload-pack-request",
			"Content-Encoding": "gzip",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("mismatched content type is 415", func(t *testing.T) {
		rec := post("git-upload-pack", strings.NewReader("0000"), map[string]string{
			"Content-Type": "text/plain",
		})
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", rec.Code)
		}
	})

	t.Run("rejected receive-pack counts a failed push", func(t *testing.T) {
		rec := post("git-receive-pack", strings.NewReader("0000"), map[string]string{
			"Content-Type": "text/plain",
		})
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("status = %d, want 415", rec.Code)
		}
		if scrape := scrapeMetrics(t, collector); !strings.Contains(scrape, `ghserv_push_total{outcome="failure"} 1`) {
			t.Errorf("failure counter missing from scrape:\n%s", scrape)
		}
	})
}

func TestPktLine(t *testing.T) {
	if got := pktLine("# service=git-upload-pack\n"); got != "001e# service=git-upload-pack\n" {
		t.Errorf("pktLine() = %q", got)
	}
}

package githttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mikecalendo/gh-serv/pkg/auth"
	"github.com/mikecalendo/gh-serv/pkg/config"
	"github.com/mikecalendo/gh-serv/pkg/gitcli"
	"github.com/mikecalendo/gh-serv/pkg/repository"
	"github.com/mikecalendo/gh-serv/pkg/telemetry/metrics"
)

const authRealm = `Basic realm="Git Server"`

// Recorder receives push notifications for auditing. It matches the audit
// store's Record method; a nil Recorder disables recording.
type Recorder interface {
	RecordPush(repoID string)
}

// Handler serves everything under /git/{id}/.
type Handler struct {
	cfg      func() *config.Config
	metrics  *metrics.Collector
	recorder Recorder
	logger   *slog.Logger
}

// NewHandler creates the transport handler. cfg is called per request so a
// reloaded configuration takes effect without restarting.
func NewHandler(cfg func() *config.Config, collector *metrics.Collector, recorder Recorder) *Handler {
	return &Handler{
		cfg:      cfg,
		metrics:  collector,
		recorder: recorder,
		logger:   slog.Default().With("component", "githttp"),
	}
}

// ServeHTTP routes /git/{id}/{operation}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/git/")
	id, op, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "Not found.", http.StatusNotFound)
		return
	}

	cfg := h.cfg()
	repo := repository.New(cfg, id)
	if !repo.Exists() {
		http.Error(w, "Not found.", http.StatusNotFound)
		return
	}

	if !repo.Active() && !auth.Elevated(auth.FromRequest(r), cfg.Auth, id) {
		w.Header().Set("WWW-Authenticate", authRealm)
		http.Error(w, "Authentication required.", http.StatusUnauthorized)
		return
	}

	git := gitcli.New(repo.Path())
	git.Binary = cfg.Git.Binary

	switch {
	case op == "info/refs" && r.Method == http.MethodGet:
		h.infoRefs(w, r, repo)
	case op == "git-upload-pack" && r.Method == http.MethodPost:
		h.serviceRPC(w, r, repo, "git-upload-pack")
	case op == "git-receive-pack" && r.Method == http.MethodPost:
		h.receivePack(w, r, repo)
	case op == "history" && r.Method == http.MethodGet:
		h.history(w, git)
	case op == "diff" && r.Method == http.MethodGet:
		h.diff(w, git)
	case op == "source.zip" && r.Method == http.MethodGet:
		h.sourceZip(w, git)
	default:
		http.Error(w, "Not found.", http.StatusNotFound)
	}
}

func (h *Handler) receivePack(w http.ResponseWriter, r *http.Request, repo *repository.Repository) {
	if err := h.serviceRPC(w, r, repo, "git-receive-pack"); err != nil {
		h.metrics.RecordPush("failure")
		return
	}
	h.metrics.RecordPush("success")
	if h.recorder != nil {
		h.recorder.RecordPush(repo.ID())
	}
}

func (h *Handler) history(w http.ResponseWriter, git *gitcli.Runner) {
	commits, err := git.History()
	if err != nil {
		h.logger.Error("history failed", "error", err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}
	if commits == nil {
		commits = []gitcli.Commit{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commits)
}

func (h *Handler) diff(w http.ResponseWriter, git *gitcli.Runner) {
	patch, err := git.HeadPatch()
	if err != nil {
		h.logger.Error("diff failed", "error", err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(patch))
}

func (h *Handler) sourceZip(w http.ResponseWriter, git *gitcli.Runner) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="source.zip"`)
	if err := git.Archive(w); err != nil {
		// Headers are already gone; all we can do is log.
		h.logger.Error("archive failed", "error", err)
	}
}

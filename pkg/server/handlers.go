package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mikecalendo/gh-serv/pkg/audit"
	"github.com/mikecalendo/gh-serv/pkg/auth"
	"github.com/mikecalendo/gh-serv/pkg/gserr"
	"github.com/mikecalendo/gh-serv/pkg/provision"
	"github.com/mikecalendo/gh-serv/pkg/repository"
)

// requestContext derives the URL-building context from the incoming
// request. Behind a TLS-terminating proxy the forwarded proto decides the
// scheme.
func requestContext(r *http.Request) repository.RequestContext {
	return repository.RequestContext{
		Host:   r.Host,
		Secure: r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
	}
}

// handleCreate provisions a repository from a zip archive or an existing
// repository. Admin only.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	cfg := s.config()

	if auth.Resolve(auth.FromRequest(r), cfg.Auth, "") != auth.RoleAdmin {
		http.Error(w, "Permission denied.", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed request body.", http.StatusBadRequest)
		return
	}
	zipURL := strings.TrimSpace(r.PostFormValue("zip_url"))
	gitURL := strings.TrimSpace(r.PostFormValue("git_url"))
	maxSize := parseSizeKB(r.PostFormValue("max_size"))

	pipeline := provision.New(cfg)

	var repo *repository.Repository
	var err error
	var source string
	switch {
	case zipURL != "":
		source = "archive"
		repo, err = pipeline.CreateFromArchive(zipURL, maxSize)
	case gitURL != "":
		source = "git"
		repo, err = pipeline.CreateFromGit(gitURL, maxSize)
	default:
		http.Error(w, "Source URL is required.", http.StatusBadRequest)
		return
	}

	if err != nil {
		s.collector.RecordProvision(source, "failure")
		s.recordAudit(r.Context(), "", audit.KindRepoCreateFailed, err.Error())
		s.writeError(w, err)
		return
	}

	s.collector.RecordProvision(source, "success")
	s.recordAudit(r.Context(), repo.ID(), audit.KindRepoCreated, "source="+source)
	s.writeSummary(w, http.StatusCreated, repo, requestContext(r))
}

// handleGet returns the summary of one repository. Admin or the
// repository's manager.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.authorizeRepo(w, r)
	if !ok {
		return
	}
	s.writeSummary(w, http.StatusOK, repo, requestContext(r))
}

// handleUpdate toggles the active flag and adjusts the size cap. Admin or
// the repository's manager.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.authorizeRepo(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed request body.", http.StatusBadRequest)
		return
	}

	var changes []string
	if v := r.PostFormValue("active"); v != "" {
		if err := repo.SetActive(v == "true"); err != nil {
			s.writeError(w, err)
			return
		}
		changes = append(changes, "active="+v)
	}
	if v := r.PostFormValue("max_size"); v != "" {
		if err := repo.SetMaxSize(v); err != nil {
			s.writeError(w, err)
			return
		}
		changes = append(changes, "max_size="+v)
	}

	s.recordAudit(r.Context(), repo.ID(), audit.KindRepoUpdated, strings.Join(changes, " "))
	s.writeSummary(w, http.StatusOK, repo, requestContext(r))
}

// authorizeRepo resolves the path repository and enforces elevated access.
// On failure it writes the response and returns ok=false.
func (s *Server) authorizeRepo(w http.ResponseWriter, r *http.Request) (*repository.Repository, bool) {
	cfg := s.config()
	id := r.PathValue("id")

	if !auth.Elevated(auth.FromRequest(r), cfg.Auth, id) {
		http.Error(w, "Permission denied.", http.StatusForbidden)
		return nil, false
	}

	repo := repository.New(cfg, id)
	if !repo.Exists() {
		http.Error(w, "Not found.", http.StatusNotFound)
		return nil, false
	}
	return repo, true
}

func (s *Server) writeSummary(w http.ResponseWriter, status int, repo *repository.Repository, rc repository.RequestContext) {
	summary, err := repo.Summary(rc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(summary)
}

// writeError maps a domain error onto the HTTP response, masking internal
// detail.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := gserr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	http.Error(w, gserr.ClientMessage(err), status)
}

func (s *Server) recordAudit(ctx context.Context, repoID string, kind audit.EventKind, detail string) {
	if s.store == nil {
		return
	}
	if err := s.store.Record(ctx, repoID, kind, detail); err != nil {
		s.logger.Warn("failed to record audit event", "kind", kind, "error", err)
	}
}

// parseSizeKB parses the optional max_size form field (KB). Anything
// unparsable or non-positive means "use the default".
func parseSizeKB(v string) int64 {
	var n int64
	if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err != nil || n < 0 {
		return 0
	}
	return n
}

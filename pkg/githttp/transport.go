package githttp

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"

	"github.com/mikecalendo/gh-serv/pkg/repository"
)

// infoRefs serves the ref advertisement for the requested service. Dumb
// protocol clients (no service parameter) are refused; only the smart
// protocol is spoken.
func (h *Handler) infoRefs(w http.ResponseWriter, r *http.Request, repo *repository.Repository) {
	service := r.URL.Query().Get("service")
	if service != "git-upload-pack" && service != "git-receive-pack" {
		http.Error(w, "Smart HTTP is required.", http.StatusForbidden)
		return
	}
	h.metrics.RecordTransport("info-refs")

	w.Header().Set("Content-Type", fmt.Sprintf("application/x-%s-advertisement", service))
	setNoCache(w)

	// Service announcement precedes the advertisement: one pkt-line plus a
	// flush packet.
	fmt.Fprint(w, pktLine("# service="+service+"\n"), "0000")

	cmd := h.gitCommand(repo, strings.TrimPrefix(service, "git-"), "--stateless-rpc", "--advertise-refs", ".")
	cmd.Stdout = w
	if err := cmd.Run(); err != nil {
		h.logger.Error("ref advertisement failed", "service", service, "repo_id", repo.ID(), "error", err)
	}
}

// serviceRPC runs one stateless-rpc exchange: the request body is the
// client's pack protocol input, the response body is git's output. The
// returned error reports whether the exchange completed; the HTTP response
// is already written either way.
func (h *Handler) serviceRPC(w http.ResponseWriter, r *http.Request, repo *repository.Repository, service string) error {
	expected := fmt.Sprintf("application/x-%s-request", service)
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != expected {
		http.Error(w, "Unsupported media type.", http.StatusUnsupportedMediaType)
		return fmt.Errorf("unexpected content type %q for %s", r.Header.Get("Content-Type"), service)
	}
	h.metrics.RecordTransport(service)

	body := io.Reader(r.Body)
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, "Malformed request body.", http.StatusBadRequest)
			return fmt.Errorf("malformed gzip body: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	w.Header().Set("Content-Type", fmt.Sprintf("application/x-%s-result", service))
	setNoCache(w)

	cmd := h.gitCommand(repo, strings.TrimPrefix(service, "git-"), "--stateless-rpc", ".")
	cmd.Stdin = body
	cmd.Stdout = &flushingWriter{w: w}
	if err := cmd.Run(); err != nil {
		h.logger.Error("stateless rpc failed", "service", service, "repo_id", repo.ID(), "error", err)
		return err
	}
	return nil
}

func (h *Handler) gitCommand(repo *repository.Repository, args ...string) *exec.Cmd {
	binary := h.cfg().Git.Binary
	if binary == "" {
		binary = "git"
	}
	cmd := exec.Command(binary, args...)
	cmd.Dir = repo.Path()
	return cmd
}

func setNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "Fri, 01 Jan 1980 00:00:00 GMT")
}

// pktLine frames s in the git pkt-line format: four hex length digits
// covering the frame, then the payload.
func pktLine(s string) string {
	return fmt.Sprintf("%04x%s", len(s)+4, s)
}

// flushingWriter flushes after every write so pack protocol sideband
// progress reaches the client while the subprocess is still running.
type flushingWriter struct {
	w http.ResponseWriter
}

func (fw *flushingWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if f, ok := fw.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}

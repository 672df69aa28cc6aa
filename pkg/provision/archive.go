package provision

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mikecalendo/gh-serv/pkg/gserr"
)

var errBudgetExceeded = errors.New("extraction budget exceeded")

func sizeExceeded(ceilingKB int64) error {
	return gserr.Validationf("Archive exceeds the maximum allowed size of %d KB.", ceilingKB)
}

// fetchAndExtract downloads the zip archive at url and extracts it into
// dst, enforcing ceilingKB incrementally: both the downloaded archive and
// the cumulative extracted bytes abort mid-operation once the ceiling is
// crossed, so a malicious archive cannot exhaust the disk before failing.
func fetchAndExtract(url, dst string, ceilingKB int64) error {
	ceiling := ceilingKB * 1024

	tmp, err := os.CreateTemp("", "ghserv-archive-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	resp, err := http.Get(url)
	if err != nil {
		return gserr.Validationf("Failed to fetch archive: %v.", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return gserr.Validationf("Failed to fetch archive: status %d.", resp.StatusCode)
	}

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, ceiling+1))
	if err != nil {
		return gserr.Validationf("Failed to fetch archive: %v.", err)
	}
	if n > ceiling {
		return sizeExceeded(ceilingKB)
	}

	return extractZip(tmp.Name(), dst, ceilingKB)
}

// extractZip unpacks the archive at src into dst. The cumulative
// uncompressed size is checked while copying, not after, and entry paths
// are confined to dst.
func extractZip(src, dst string, ceilingKB int64) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return gserr.Validationf("Archive is not a valid zip file.")
	}
	defer r.Close()

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	budget := ceilingKB * 1024
	for _, f := range r.File {
		target, err := safeJoin(dst, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", f.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %q: %w", f.Name, err)
		}

		n, err := extractFile(f, target, budget)
		budget -= n
		if errors.Is(err, errBudgetExceeded) {
			return sizeExceeded(ceilingKB)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string, budget int64) (int64, error) {
	if budget <= 0 {
		return 0, errBudgetExceeded
	}

	rc, err := f.Open()
	if err != nil {
		return 0, gserr.Validationf("Archive entry %q is unreadable.", f.Name)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm()|0o200)
	if err != nil {
		return 0, fmt.Errorf("failed to create %q: %w", target, err)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(rc, budget+1))
	if err != nil {
		return n, fmt.Errorf("failed to extract %q: %w", f.Name, err)
	}
	if n > budget {
		return n, errBudgetExceeded
	}
	return n, nil
}

// safeJoin joins name under dst, rejecting entries that would escape it.
func safeJoin(dst, name string) (string, error) {
	target := filepath.Join(dst, filepath.Clean("/"+name))
	if !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
		return "", gserr.Validationf("Archive entry %q escapes the extraction root.", name)
	}
	return target, nil
}

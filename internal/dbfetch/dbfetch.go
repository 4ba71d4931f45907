// Package dbfetch downloads a prebuilt SQLite database over HTTP into a
// local cache path, atomically, so a partially-written file is never
// mistaken for a complete one.
package dbfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Fetch downloads url into destPath, writing through a uniquely-named
// temp file in the same directory (so the final rename is same-filesystem
// and therefore atomic) before renaming it into place.
func Fetch(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("dbfetch: building request for %s: %w", url, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("dbfetch: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dbfetch: fetching %s: unexpected status %s", url, resp.Status)
	}

	dir := filepath.Dir(destPath)
	tmpPath := filepath.Join(dir, ".dbfetch-"+uuid.NewString()+".tmp")

	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("dbfetch: creating temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("dbfetch: writing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dbfetch: closing %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("dbfetch: renaming %s to %s: %w", tmpPath, destPath, err)
	}
	return nil
}

// ShouldRefresh reports whether the query tool should (re-)download the
// cached database: forced via --refresh, or because destPath does not
// exist yet.
func ShouldRefresh(destPath string, forced bool) bool {
	if forced {
		return true
	}
	_, err := os.Stat(destPath)
	return os.IsNotExist(err)
}

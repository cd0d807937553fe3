package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// progressWriter counts bytes and reports whole-percent changes.
// The percent callback can fire at high frequency downstream, so it is
// only invoked when the integer percentage actually advances.
type progressWriter struct {
	total   int64
	written int64
	lastPct int
	emit    func(percent int)
}

func newProgressWriter(total int64, emit func(int)) *progressWriter {
	return &progressWriter{total: total, lastPct: -1, emit: emit}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.total > 0 && w.emit != nil {
		pct := int(w.written * 100 / w.total)
		if pct > 100 {
			pct = 100
		}
		if pct != w.lastPct {
			w.lastPct = pct
			w.emit(pct)
		}
	}
	return len(p), nil
}

// download fetches the update package into the staging directory and
// returns the staged path. Progress is reported through the callbacks.
func (a *Appcast) download(ctx context.Context, item *FeedItem) (string, error) {
	if err := os.MkdirAll(a.cfg.DownloadDir, 0o700); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := a.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download package: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download package: unexpected status %d", resp.StatusCode)
	}

	total := item.Length
	if total <= 0 {
		total = resp.ContentLength
	}

	staged := filepath.Join(a.cfg.DownloadDir, fmt.Sprintf("update-%s.pkg", item.Version))
	tmp := staged + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	pw := newProgressWriter(total, a.cb.downloadProgress)
	_, copyErr := io.Copy(io.MultiWriter(f, pw), resp.Body)
	closeErr := f.Close()

	if copyErr != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("download package: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close staging file: %w", closeErr)
	}

	if err := os.Rename(tmp, staged); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("stage package: %w", err)
	}
	return staged, nil
}

package portal

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/vijay-2155/VignanEcap/internal/browser"
	apperrors "github.com/vijay-2155/VignanEcap/internal/errors"
	"github.com/vijay-2155/VignanEcap/internal/retry"
)

// exportSelector matches the report page's export button. The page renders
// it as a plain value-attributed input with no stable id.
const exportSelector = `input[value='Export']`

// Export navigates to the attendance register, triggers the export, and
// waits for the browser to finish writing the report into the download
// directory. It returns the path of the downloaded file.
func (c *Client) Export(ctx context.Context, sess *browser.Session) (string, error) {
	run := sess.Context()

	err := retry.Do(ctx, c.attempts, c.backoff, func() error {
		return chromedp.Run(run, chromedp.Navigate(c.cfg.ReportURL))
	})
	if err != nil {
		return "", apperrors.NewNavigationError("failed to load report page", err)
	}

	err = retry.Do(ctx, c.attempts, c.backoff, func() error {
		waitCtx, cancel := context.WithTimeout(run, c.cfg.ElementTimeout)
		defer cancel()
		return chromedp.Run(waitCtx, chromedp.WaitVisible(exportSelector, chromedp.ByQuery))
	})
	if err != nil {
		return "", apperrors.NewExportControlError("export button not found on report page", err)
	}

	if err := os.MkdirAll(c.cfg.DownloadDir, 0o755); err != nil {
		return "", apperrors.NewDownloadTimeoutError("cannot prepare download directory").WithContext("dir", c.cfg.DownloadDir)
	}

	before, err := snapshotDir(c.cfg.DownloadDir)
	if err != nil {
		return "", apperrors.NewDownloadTimeoutError("cannot read download directory").WithContext("dir", c.cfg.DownloadDir)
	}

	if err := chromedp.Run(run, chromedp.Click(exportSelector, chromedp.ByQuery)); err != nil {
		return "", apperrors.NewExportControlError("failed to click export button", err)
	}
	c.logger.Debug("export triggered", slog.String("dir", c.cfg.DownloadDir))

	path, err := waitForDownload(ctx, c.cfg.DownloadDir, before, c.cfg.PollInterval, c.cfg.DownloadTimeout)
	if err != nil {
		return "", err
	}
	c.logger.Info("report downloaded", slog.String("file", filepath.Base(path)))
	return path, nil
}

// snapshotDir records the names currently present in dir so the poll loop
// can tell a fresh download from a leftover.
func snapshotDir(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		names[e.Name()] = struct{}{}
	}
	return names, nil
}

// waitForDownload polls dir until a new spreadsheet file appears with
// non-zero size, or the timeout elapses. Chrome writes downloads through a
// .crdownload temp name, so a file only counts once it carries its final
// extension and has content. When more than one candidate appears the most
// recently modified wins.
func waitForDownload(ctx context.Context, dir string, before map[string]struct{}, interval, timeout time.Duration) (string, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if path := findNewReport(dir, before); path != "" {
			return path, nil
		}
		if time.Now().After(deadline) {
			return "", apperrors.NewDownloadTimeoutError("report download did not complete in time").
				WithContext("timeout", timeout.String())
		}
		select {
		case <-ctx.Done():
			return "", apperrors.NewDownloadTimeoutError("report download interrupted").WithContext("cause", ctx.Err().Error())
		case <-ticker.C:
		}
	}
}

func findNewReport(dir string, before map[string]struct{}) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var (
		newest    string
		newestMod time.Time
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if _, existed := before[name]; existed {
			continue
		}
		if !isReportFile(name) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = name
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return ""
	}
	return filepath.Join(dir, newest)
}

func isReportFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xls" || ext == ".xlsx"
}

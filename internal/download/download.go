package download

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/paths"
)

const (
	// CoreZipURL is the publisher's archive for the tunneling binary.
	CoreZipURL = "https://www.ngrok.cc/sunny/windows_amd64.zip"
	// PageURL is shown to the user when automatic download fails.
	PageURL = "https://www.ngrok.cc/download.html"

	// The publisher's CDN rejects requests without a browser identity.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	referer = "https://www.ngrok.cc/"
)

// Progress reports bytes fetched so far. total is -1 when the server did not
// send a Content-Length.
type Progress func(done, total int64)

// Fetcher downloads the tunneling binary archive and installs the executable
// into the core directory. Cancellation goes through the context; there is no
// retry policy.
type Fetcher struct {
	dirs   paths.AppDirs
	log    logger.Logger
	url    string
	client *http.Client
}

func NewFetcher(dirs paths.AppDirs, log logger.Logger) *Fetcher {
	return &Fetcher{
		dirs:   dirs,
		log:    log,
		url:    CoreZipURL,
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Install downloads, extracts, and moves the executable into place. On
// success the core directory contains only the executable.
func (f *Fetcher) Install(ctx context.Context, progress Progress) error {
	if err := os.MkdirAll(f.dirs.Core, 0o755); err != nil {
		return fmt.Errorf("create core dir: %w", err)
	}

	zipPath := filepath.Join(f.dirs.Core, ".download.zip")
	defer os.Remove(zipPath)

	if err := f.fetch(ctx, zipPath, progress); err != nil {
		return err
	}

	if err := extractZip(zipPath, f.dirs.Core); err != nil {
		return fmt.Errorf("extract archive: %w", err)
	}

	found, err := locateExecutable(f.dirs.Core, paths.ExecutableName())
	if err != nil {
		return err
	}

	target := f.dirs.CoreExecutable()
	if found != target {
		if err := os.Rename(found, target); err != nil {
			return fmt.Errorf("install executable: %w", err)
		}
	}
	if err := os.Chmod(target, 0o755); err != nil {
		return fmt.Errorf("mark executable: %w", err)
	}

	cleanupCoreDir(f.dirs.Core, target, zipPath)

	f.log.Info("download", "core installed", map[string]interface{}{
		"path": target,
	})
	return nil
}

func (f *Fetcher) fetch(ctx context.Context, dest string, progress Progress) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download core: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download core: unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	total := resp.ContentLength
	var done int64
	buf := make([]byte, 256*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("write %s: %w", dest, err)
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("download core: %w", readErr)
		}
	}
}

// extractZip unpacks the archive, refusing entries that would land outside
// the target directory.
func extractZip(zipPath, targetDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	targetAbs, err := filepath.Abs(targetDir)
	if err != nil {
		return err
	}

	for _, member := range r.File {
		dest := filepath.Join(targetAbs, filepath.FromSlash(member.Name))
		if !strings.HasPrefix(dest, targetAbs+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes target dir: %s", member.Name)
		}

		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := extractFile(member, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(member *zip.File, dest string) error {
	in, err := member.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, member.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// locateExecutable finds the named binary anywhere under dir. Publisher
// archives have moved it between the root and a subdirectory over time.
func locateExecutable(dir, name string) (string, error) {
	var found string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(info.Name(), name) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("archive did not contain %s, download it manually from %s", name, PageURL)
	}
	return found, nil
}

// cleanupCoreDir removes everything in the core directory except keep.
func cleanupCoreDir(dir, keep, keepAlso string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if path == keep || path == keepAlso {
			continue
		}
		os.RemoveAll(path)
	}
}

package download

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/paths"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func newTestFetcher(t *testing.T, archive []byte) (*Fetcher, paths.AppDirs) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" || r.Header.Get("Referer") == "" {
			http.Error(w, "bot detected", http.StatusForbidden)
			return
		}
		w.Write(archive)
	}))
	t.Cleanup(srv.Close)

	dirs := paths.At(t.TempDir())
	if err := dirs.Ensure(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	f := NewFetcher(dirs, logger.NewDiscard())
	f.url = srv.URL
	return f, dirs
}

func TestInstallExtractsExecutable(t *testing.T) {
	exeName := paths.ExecutableName()
	archive := buildZip(t, map[string]string{
		"readme.txt":               "docs",
		"release/" + exeName:       "binary-bytes",
		"release/extra/manual.pdf": "manual",
	})
	f, dirs := newTestFetcher(t, archive)

	var lastDone int64
	err := f.Install(context.Background(), func(done, total int64) { lastDone = done })
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if lastDone == 0 {
		t.Fatalf("progress callback never fired")
	}

	data, err := os.ReadFile(dirs.CoreExecutable())
	if err != nil {
		t.Fatalf("installed executable missing: %v", err)
	}
	if string(data) != "binary-bytes" {
		t.Fatalf("installed executable has wrong content: %q", data)
	}

	// Everything except the executable is cleaned up.
	entries, err := os.ReadDir(dirs.Core)
	if err != nil {
		t.Fatalf("read core dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != exeName {
		t.Fatalf("core dir not cleaned: %v", entries)
	}
}

func TestInstallRejectsPathTraversal(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"../evil.sh": "#!/bin/sh",
	})
	f, dirs := newTestFetcher(t, archive)

	if err := f.Install(context.Background(), nil); err == nil {
		t.Fatalf("expected traversal rejection")
	}
	if _, err := os.Stat(filepath.Join(dirs.Base, "evil.sh")); !os.IsNotExist(err) {
		t.Fatalf("traversal entry escaped: %v", err)
	}
}

func TestInstallMissingExecutableInArchive(t *testing.T) {
	archive := buildZip(t, map[string]string{"readme.txt": "no binary here"})
	f, _ := newTestFetcher(t, archive)

	if err := f.Install(context.Background(), nil); err == nil {
		t.Fatalf("expected error when archive lacks the executable")
	}
}

func TestInstallCancelled(t *testing.T) {
	archive := buildZip(t, map[string]string{paths.ExecutableName(): "bin"})
	f, dirs := newTestFetcher(t, archive)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.Install(ctx, nil); err == nil {
		t.Fatalf("expected cancellation error")
	}
	if _, err := os.Stat(dirs.CoreExecutable()); !os.IsNotExist(err) {
		t.Fatalf("cancelled install should not leave an executable")
	}
}

func TestInstallServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	dirs := paths.At(t.TempDir())
	if err := dirs.Ensure(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	f := NewFetcher(dirs, logger.NewDiscard())
	f.url = srv.URL

	if err := f.Install(context.Background(), nil); err == nil {
		t.Fatalf("expected error on 404")
	}
}

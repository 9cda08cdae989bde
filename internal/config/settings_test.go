package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
)

func TestSettingsDefaultsToAsk(t *testing.T) {
	s := NewSettings(filepath.Join(t.TempDir(), "settings.json"), logger.NewDiscard())
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.CloseBehavior() != CloseAsk {
		t.Fatalf("expected ask by default, got %q", s.CloseBehavior())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s := NewSettings(path, logger.NewDiscard())
	if err := s.SetCloseBehavior(CloseMinimize); err != nil {
		t.Fatalf("set: %v", err)
	}

	reloaded := NewSettings(path, logger.NewDiscard())
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.CloseBehavior() != CloseMinimize {
		t.Fatalf("expected minimize, got %q", reloaded.CloseBehavior())
	}
}

func TestSettingsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewSettings(path, logger.NewDiscard())
	if err := s.Load(); err != nil {
		t.Fatalf("load should tolerate malformed file: %v", err)
	}
	if s.CloseBehavior() != CloseAsk {
		t.Fatalf("expected defaults after malformed load")
	}
}

func TestSelectionRoundTrip(t *testing.T) {
	sel := NewSelection(filepath.Join(t.TempDir(), ".last_selection"))

	if _, ok := sel.Load(3); ok {
		t.Fatalf("expected no stored selection")
	}

	sel.Save(2)
	got, ok := sel.Load(3)
	if !ok || got != 2 {
		t.Fatalf("expected 2, got %d (ok=%v)", got, ok)
	}

	// Out of range against a shrunken list.
	if _, ok := sel.Load(2); ok {
		t.Fatalf("expected out-of-range index to be discarded")
	}
}

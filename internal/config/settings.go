package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
)

// CloseBehavior controls what the window close button does.
type CloseBehavior string

const (
	CloseAsk      CloseBehavior = ""
	CloseMinimize CloseBehavior = "minimize"
	CloseExit     CloseBehavior = "exit"
)

type settingsData struct {
	CloseBehavior CloseBehavior `json:"close_behavior"`
}

// Settings holds the small set of application preferences, persisted the same
// way the tunnel list is: whole-file overwrite via temp rename.
type Settings struct {
	path string
	log  logger.Logger

	mu   sync.Mutex
	data settingsData
}

func NewSettings(path string, log logger.Logger) *Settings {
	return &Settings{path: path, log: log}
}

func (s *Settings) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.log.Warning("settings", "settings file is malformed, using defaults", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		s.data = settingsData{}
	}
	return nil
}

func (s *Settings) saveLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *Settings) CloseBehavior() CloseBehavior {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.data.CloseBehavior {
	case CloseMinimize, CloseExit:
		return s.data.CloseBehavior
	}
	return CloseAsk
}

func (s *Settings) SetCloseBehavior(b CloseBehavior) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.CloseBehavior = b
	return s.saveLocked()
}

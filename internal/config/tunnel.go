package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
)

// Tunnel is one named configuration handed to the tunneling executable.
// Names are not required to be unique; the ID is.
type Tunnel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Server    string `json:"server"`
	Key       string `json:"key"`
	AutoStart bool   `json:"auto_start"`
}

var ErrIndexOutOfRange = errors.New("tunnel index out of range")

// Store keeps the ordered tunnel list and mirrors every mutation to disk by
// rewriting the whole file. There is no partial-write protection beyond the
// temp-file rename in Save.
type Store struct {
	path string
	log  logger.Logger

	mu      sync.Mutex
	tunnels []Tunnel
}

func NewStore(path string, log logger.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load reads the tunnel list from disk. A missing file yields an empty list.
// A malformed file also yields an empty list, logged rather than fatal, so a
// corrupt config never prevents the application from starting.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.tunnels = nil
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var loaded []Tunnel
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.Warning("store", "tunnel file is malformed, starting empty", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		s.tunnels = nil
		return nil
	}
	s.tunnels = loaded

	return s.ensureIDsLocked()
}

// ensureIDsLocked backfills IDs for records written by releases that had none.
// The file is rewritten once if anything changed.
func (s *Store) ensureIDsLocked() error {
	changed := false
	for i := range s.tunnels {
		if s.tunnels[i].ID == "" {
			s.tunnels[i].ID = uuid.NewString()
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.saveLocked()
}

func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	list := s.tunnels
	if list == nil {
		list = []Tunnel{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tunnels: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Add appends the record, assigns it an ID, and persists. The stored record
// is returned so callers see the assigned ID.
func (s *Store) Add(t Tunnel) (Tunnel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.NewString()
	s.tunnels = append(s.tunnels, t)
	if err := s.saveLocked(); err != nil {
		s.tunnels = s.tunnels[:len(s.tunnels)-1]
		return Tunnel{}, err
	}
	return t, nil
}

// Update replaces the record at index, keeping its ID, and persists.
func (s *Store) Update(index int, t Tunnel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.tunnels) {
		return ErrIndexOutOfRange
	}
	t.ID = s.tunnels[index].ID
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	previous := s.tunnels[index]
	s.tunnels[index] = t
	if err := s.saveLocked(); err != nil {
		s.tunnels[index] = previous
		return err
	}
	return nil
}

// Delete removes the record at index and persists.
func (s *Store) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.tunnels) {
		return ErrIndexOutOfRange
	}
	removed := s.tunnels[index]
	s.tunnels = append(s.tunnels[:index], s.tunnels[index+1:]...)
	if err := s.saveLocked(); err != nil {
		s.tunnels = append(s.tunnels[:index], append([]Tunnel{removed}, s.tunnels[index:]...)...)
		return err
	}
	return nil
}

func (s *Store) Get(index int) (Tunnel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.tunnels) {
		return Tunnel{}, false
	}
	return s.tunnels[index], true
}

func (s *Store) ByID(id string) (Tunnel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tunnels {
		if t.ID == id {
			return t, true
		}
	}
	return Tunnel{}, false
}

// All returns a copy of the list in persisted order.
func (s *Store) All() []Tunnel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Tunnel, len(s.tunnels))
	copy(out, s.tunnels)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tunnels)
}

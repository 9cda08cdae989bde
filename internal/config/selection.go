package config

import (
	"os"
	"strconv"
	"strings"
)

// Selection remembers the list index selected when the application last ran.
// It is strictly best-effort: failures to read or write are ignored and an
// out-of-range index is treated as no selection.
type Selection struct {
	path string
}

func NewSelection(path string) *Selection {
	return &Selection{path: path}
}

func (s *Selection) Save(index int) {
	if index < 0 {
		os.Remove(s.path)
		return
	}
	os.WriteFile(s.path, []byte(strconv.Itoa(index)), 0o644)
}

// Load returns the remembered index clamped against size. ok is false when
// nothing usable is stored.
func (s *Selection) Load(size int) (int, bool) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return 0, false
	}
	index, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || index < 0 || index >= size {
		return 0, false
	}
	return index, true
}

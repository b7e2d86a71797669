package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/nortechlabs/recall/internal/memory"
)

// JSONStore persists the full snapshot as one pretty-printed JSON document.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads the snapshot. A missing or unreadable file yields an empty
// store; a corrupt document is logged and also yields an empty store, so a
// bad file never blocks startup.
func (s *JSONStore) Load() (*memory.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return memory.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("read store %q: %w", s.path, err)
	}

	snap := memory.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		log.Printf("[store] corrupt store file %s, starting empty: %v", s.path, err)
		return memory.NewSnapshot(), nil
	}
	return snap, nil
}

func (s *JSONStore) Save(snap *memory.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

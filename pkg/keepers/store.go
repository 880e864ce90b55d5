// Package keepers persists the near-certain positions the harness holds on
// purpose, so cleanup never sells or redeems them.
package keepers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// Store is a JSON array of KeeperEntry on disk
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by the JSON file at path
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads every entry. A missing file is an empty list.
func (s *Store) Load() ([]types.KeeperEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]types.KeeperEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []types.KeeperEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []types.KeeperEntry{}, nil
	}

	var entries []types.KeeperEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if entries == nil {
		entries = []types.KeeperEntry{}
	}
	return entries, nil
}

// Save replaces the file with entries. The write goes to a temp file in the
// same directory and is renamed over the target.
func (s *Store) Save(entries []types.KeeperEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(entries)
}

func (s *Store) save(entries []types.KeeperEntry) error {
	if entries == nil {
		entries = []types.KeeperEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".keepers-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Add inserts entry, replacing any entry for the same token
func (s *Store) Add(entry types.KeeperEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	out := entries[:0]
	for _, e := range entries {
		if e.TokenID != entry.TokenID {
			out = append(out, e)
		}
	}
	return s.save(append(out, entry))
}

// Remove deletes the entry for tokenID. Removing an unknown token is a no-op.
func (s *Store) Remove(tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	out := entries[:0]
	removed := false
	for _, e := range entries {
		if e.TokenID == tokenID {
			removed = true
			continue
		}
		out = append(out, e)
	}
	if !removed {
		return nil
	}
	return s.save(out)
}

// Has reports whether tokenID is kept
func (s *Store) Has(tokenID string) (bool, error) {
	set, err := s.TokenSet()
	if err != nil {
		return false, err
	}
	_, ok := set[tokenID]
	return ok, nil
}

// TokenSet returns the kept token ids
func (s *Store) TokenSet() (map[string]struct{}, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e.TokenID] = struct{}{}
	}
	return set, nil
}

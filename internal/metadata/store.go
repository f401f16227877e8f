// Package metadata maps vector ids to the provenance of the chunk they embed.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

// Store is an in-memory id -> MetadataEntry map persisted as JSON with string
// keys. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[uint64]models.MetadataEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[uint64]models.MetadataEntry)}
}

// Append records chunks[i] under ids[i]. Existing keys are overwritten.
func (s *Store) Append(ids []uint64, chunks []models.Chunk) error {
	if len(ids) != len(chunks) {
		return fmt.Errorf("ids and chunks length mismatch: %d != %d", len(ids), len(chunks))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		s.entries[id] = models.MetadataEntry{
			Source: chunks[i].Source,
			Text:   chunks[i].Text,
			Chunk:  chunks[i].Ordinal,
		}
	}
	return nil
}

// Lookup returns the entry for id. A missing entry is not an error.
func (s *Store) Lookup(id uint64) (models.MetadataEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// WriteTo writes the entries as an indented JSON object keyed by decimal id.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	s.mu.RLock()
	out := make(map[string]models.MetadataEntry, len(s.entries))
	for id, e := range s.entries {
		out[strconv.FormatUint(id, 10)] = e
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal metadata: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadFrom replaces the entries with the JSON object read from r. The store
// is left untouched when the input is invalid.
func (s *Store) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("read metadata: %w", err)
	}
	var raw map[string]models.MetadataEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return int64(len(data)), fmt.Errorf("parse metadata: %w", err)
	}
	entries := make(map[uint64]models.MetadataEntry, len(raw))
	for key, e := range raw {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return int64(len(data)), fmt.Errorf("parse metadata id %q: %w", key, err)
		}
		entries[id] = e
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return int64(len(data)), nil
}

// Save writes the store to path atomically.
func (s *Store) Save(path string) error {
	return storage.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := s.WriteTo(w)
		return err
	})
}

// Load replaces the store contents with the JSON file at path.
func (s *Store) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metadata snapshot: %w", err)
	}
	defer f.Close()
	if _, err := s.ReadFrom(f); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"backoffice/internal/repository"

	"go.uber.org/zap"
)

const countersKey = "counters"

// Store implements repository.Store as a single JSON snapshot file.
// The snapshot is loaded once and rewritten wholesale after every mutation.
type Store struct {
	path   string
	logger *zap.Logger

	mu       sync.Mutex
	tables   map[string]map[string]json.RawMessage
	counters map[string]int64
}

// Open loads the snapshot at path. A missing or corrupt file yields an empty store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	s := &Store{
		path:     path,
		logger:   logger,
		tables:   make(map[string]map[string]json.RawMessage),
		counters: make(map[string]int64),
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("Snapshot not found, starting empty", zap.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if err := s.decode(data); err != nil {
		logger.Warn("Snapshot is corrupt, starting empty",
			zap.String("path", path),
			zap.Error(err),
		)
		s.tables = make(map[string]map[string]json.RawMessage)
		s.counters = make(map[string]int64)
	}

	return s, nil
}

func (s *Store) decode(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for name, body := range raw {
		if name == countersKey {
			if err := json.Unmarshal(body, &s.counters); err != nil {
				return fmt.Errorf("counters: %w", err)
			}
			continue
		}
		table := make(map[string]json.RawMessage)
		if err := json.Unmarshal(body, &table); err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
		s.tables[name] = table
	}
	if s.counters == nil {
		s.counters = make(map[string]int64)
	}
	return nil
}

// flush writes the snapshot to a temp file and renames it over the old one
func (s *Store) flush() error {
	snapshot := make(map[string]any, len(s.tables)+1)
	for name, table := range s.tables {
		snapshot[name] = table
	}
	snapshot[countersKey] = s.counters

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Get returns the stored record
func (s *Store) Get(table, id string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.tables[table][id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Put stores the record and flushes
func (s *Store) Put(table, id string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("put %s/%s: invalid json", table, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		t = make(map[string]json.RawMessage)
		s.tables[table] = t
	}
	t[id] = append(json.RawMessage(nil), data...)
	return s.flush()
}

// Delete removes the record and flushes
func (s *Store) Delete(table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table][id]; !ok {
		return nil
	}
	delete(s.tables[table], id)
	return s.flush()
}

// List returns entries sorted by id
func (s *Store) List(table string) ([]repository.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]repository.Entry, 0, len(s.tables[table]))
	for id, data := range s.tables[table] {
		entries = append(entries, repository.Entry{ID: id, Data: append([]byte(nil), data...)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Clear empties the table and flushes
func (s *Store) Clear(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[table] = make(map[string]json.RawMessage)
	return s.flush()
}

// Next increments the counter and flushes
func (s *Store) Next(counter string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[counter]++
	if err := s.flush(); err != nil {
		s.counters[counter]--
		return 0, err
	}
	return s.counters[counter], nil
}

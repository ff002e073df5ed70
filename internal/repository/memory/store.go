package memory

import (
	"sort"
	"sync"

	"backoffice/internal/repository"
)

// Store implements repository.Store in process memory
type Store struct {
	mu       sync.RWMutex
	tables   map[string]map[string][]byte
	counters map[string]int64
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		tables:   make(map[string]map[string][]byte),
		counters: make(map[string]int64),
	}
}

// Get returns a copy of the stored bytes
func (s *Store) Get(table, id string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.tables[table][id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Put stores a copy of data
func (s *Store) Put(table, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		t = make(map[string][]byte)
		s.tables[table] = t
	}
	t[id] = append([]byte(nil), data...)
	return nil
}

// Delete removes the record if present
func (s *Store) Delete(table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tables[table], id)
	return nil
}

// List returns all entries sorted by id
func (s *Store) List(table string) ([]repository.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedEntries(s.tables[table]), nil
}

// Clear drops the whole table
func (s *Store) Clear(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tables, table)
	return nil
}

// Next increments and returns the named counter
func (s *Store) Next(counter string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[counter]++
	return s.counters[counter], nil
}

func sortedEntries(t map[string][]byte) []repository.Entry {
	entries := make([]repository.Entry, 0, len(t))
	for id, data := range t {
		entries = append(entries, repository.Entry{ID: id, Data: append([]byte(nil), data...)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

package repository

import (
	"encoding/json"
	"fmt"
)

// Table names shared by both bots
const (
	TableOrders        = "orders"
	TableSponsors      = "sponsors"
	TableApplications  = "applications"
	TableRegistrations = "registrations"
	TableRecharges     = "recharges"
	TableWithdrawals   = "withdrawals"
	TableUsers         = "users"
	TableAdmins        = "admins"
	TableMenu          = "menu"
	TableCarts         = "carts"
	TableUserStates    = "user_states"
	TableSettings      = "settings"
)

// Entry is one raw record of a table
type Entry struct {
	ID   string
	Data []byte
}

// Store defines key/value persistence for all entities.
// Writes are last-write-wins and flushed before returning.
type Store interface {
	Get(table, id string) ([]byte, bool, error)
	Put(table, id string, data []byte) error
	Delete(table, id string) error
	List(table string) ([]Entry, error)
	Clear(table string) error
	Next(counter string) (int64, error)
}

// Table is a typed view over one store table
type Table[T any] struct {
	store Store
	name  string
}

// NewTable creates a typed table
func NewTable[T any](store Store, name string) *Table[T] {
	return &Table[T]{store: store, name: name}
}

// Name returns the table name
func (t *Table[T]) Name() string {
	return t.name
}

// Get returns the record or nil if it doesn't exist
func (t *Table[T]) Get(id string) (*T, error) {
	data, ok, err := t.store.Get(t.name, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", t.name, id, err)
	}
	return &v, nil
}

// Put stores the record under id
func (t *Table[T]) Put(id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", t.name, id, err)
	}
	return t.store.Put(t.name, id, data)
}

// Delete removes the record
func (t *Table[T]) Delete(id string) error {
	return t.store.Delete(t.name, id)
}

// All returns every decodable record of the table
func (t *Table[T]) All() ([]T, error) {
	entries, err := t.store.List(t.name)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := json.Unmarshal(e.Data, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", t.name, e.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Clear removes every record of the table
func (t *Table[T]) Clear() error {
	return t.store.Clear(t.name)
}

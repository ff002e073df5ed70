package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"backoffice/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type record struct {
	Tbl       string `gorm:"primaryKey"`
	ID        string `gorm:"primaryKey"`
	Data      []byte
	UpdatedAt time.Time `gorm:"index"`
}

type counter struct {
	Name  string `gorm:"primaryKey"`
	Value int64
}

// Store implements repository.Store on an embedded SQLite file
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sqlite handle: %w", err)
	}
	// SQLite allows one writer at a time
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&record{}, &counter{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get returns the record data
func (s *Store) Get(table, id string) ([]byte, bool, error) {
	var r record
	err := s.db.Where("tbl = ? AND id = ?", table, id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Store.Get: %w", err)
	}
	return r.Data, true, nil
}

// Put upserts the record
func (s *Store) Put(table, id string, data []byte) error {
	r := record{Tbl: table, ID: id, Data: data, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tbl"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&r).Error
	if err != nil {
		return fmt.Errorf("Store.Put: %w", err)
	}
	return nil
}

// Delete removes the record
func (s *Store) Delete(table, id string) error {
	if err := s.db.Where("tbl = ? AND id = ?", table, id).Delete(&record{}).Error; err != nil {
		return fmt.Errorf("Store.Delete: %w", err)
	}
	return nil
}

// List returns the table ordered by id
func (s *Store) List(table string) ([]repository.Entry, error) {
	var rows []record
	if err := s.db.Where("tbl = ?", table).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("Store.List: %w", err)
	}

	entries := make([]repository.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, repository.Entry{ID: r.ID, Data: r.Data})
	}
	return entries, nil
}

// Clear deletes every record of the table
func (s *Store) Clear(table string) error {
	if err := s.db.Where("tbl = ?", table).Delete(&record{}).Error; err != nil {
		return fmt.Errorf("Store.Clear: %w", err)
	}
	return nil
}

// Next increments the counter inside a transaction
func (s *Store) Next(name string) (int64, error) {
	var value int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c := counter{Name: name}
		if err := tx.FirstOrCreate(&c, counter{Name: name}).Error; err != nil {
			return err
		}
		c.Value++
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		value = c.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("Store.Next: %w", err)
	}
	return value, nil
}

// Package sqlitestore is an optional persistence backend for a schema
// Snapshot, backed by GORM over a local SQLite file. It is an alternative
// to holding the cached schema purely in memory: a host that wants the
// schema context to survive a process restart can wire this in behind
// Context.ToCache/LoadFromCache instead of re-fetching from the server on
// every startup.
package sqlitestore

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/querycanvas/langservice/internal/schema"
)

// snapshotRow is the GORM model backing a single stored Snapshot. Only one
// row is kept per key; saving replaces it wholesale since a schema
// snapshot is not meaningfully diffable row by row.
type snapshotRow struct {
	Key       string `gorm:"primaryKey"`
	RequestID string
	Payload   []byte
	UpdatedAt time.Time
}

// Store persists schema.Snapshot values keyed by an arbitrary string (a
// connection name, a workspace id, or similar host-defined label).
type Store struct {
	db *gorm.DB
}

// Open creates or migrates a SQLite database file at path and returns a
// Store backed by it.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save writes snap under key, overwriting any prior snapshot for that key.
func (s *Store) Save(key string, snap schema.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	row := snapshotRow{
		Key:       key,
		RequestID: uuid.NewString(),
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	return s.db.Save(&row).Error
}

// Load returns the snapshot stored under key, and false if none exists.
func (s *Store) Load(key string) (schema.Snapshot, bool, error) {
	var row snapshotRow
	err := s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schema.Snapshot{}, false, nil
	}
	if err != nil {
		return schema.Snapshot{}, false, err
	}
	var snap schema.Snapshot
	if err := json.Unmarshal(row.Payload, &snap); err != nil {
		return schema.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Delete removes any snapshot stored under key.
func (s *Store) Delete(key string) error {
	return s.db.Delete(&snapshotRow{}, "key = ?", key).Error
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

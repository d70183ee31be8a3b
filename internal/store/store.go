// Package store persists patient records and reminders in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store provides access to the SQLite-backed document store.
type Store struct {
	db *gorm.DB

	subsOnce sync.Once
	subs     *patientSubscribers
}

// New opens the database at dataDir and migrates the schema.
func New(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, "vitalink.db")

	sqliteDB, err := sql.Open("sqlite", path+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm connection. Tests use this with an
// in-memory database.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&PatientRow{}, &ReminderRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Patients returns the patient-record repository.
func (s *Store) Patients() *PatientStore {
	return &PatientStore{store: s}
}

// Reminders returns the reminder repository.
func (s *Store) Reminders() *ReminderStore {
	return &ReminderStore{db: s.db}
}

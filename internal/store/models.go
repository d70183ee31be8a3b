package store

import "time"

// PatientRow persists one patient's aggregate health record as a versioned
// JSON document. Every save replaces the whole document; the version column
// backs the optimistic concurrency check that turns silent lost updates
// into retryable stale writes.
type PatientRow struct {
	ID        string `gorm:"primaryKey"`
	Document  string `gorm:"type:text"`
	Version   uint64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReminderRow persists a single reminder. Unlike the patient document,
// reminders are row-per-entity so the sweep can transition one reminder
// conditionally without rewriting a list.
type ReminderRow struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"index"`
	PatientID    string `gorm:"index"`
	MedicineName string
	Dosage       string
	Frequency    string
	Days         int
	EveryDay     bool
	WeekdaysJSON string `gorm:"type:text"`
	TimesJSON    string `gorm:"type:text"`
	Status       string `gorm:"index"`
	Enabled      bool   `gorm:"index;default:true"`
	CreatedAtMS  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

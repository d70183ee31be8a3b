package store

import (
	"context"
	"encoding/json"
	"sync"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gmsas95/vitalink/internal/health"
	"gorm.io/gorm"
)

// PatientStore implements health.PatientRepository on the versioned
// document table. It also supports change subscriptions so callers can
// watch a record the way the upstream realtime database allows.
type PatientStore struct {
	store *Store
}

// Get loads a patient's record and its version. An absent patient yields an
// empty record at version 0, never an error: the engines are total over
// empty input.
func (p *PatientStore) Get(ctx context.Context, patientID string) (*health.PatientHealthData, uint64, error) {
	var row PatientRow
	err := p.store.db.WithContext(ctx).Where("id = ?", patientID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return &health.PatientHealthData{ID: patientID}, 0, nil
	}
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "STORE_001", "failed to load patient record")
	}

	var record health.PatientHealthData
	if err := json.Unmarshal([]byte(row.Document), &record); err != nil {
		return nil, 0, apperrors.Wrap(err, "STORE_003", "corrupt patient document")
	}
	record.ID = patientID
	return &record, row.Version, nil
}

// Save replaces the whole record, guarded by the version read at Get time.
// A version mismatch means another writer won the race; the caller gets
// ErrStaleWrite and should retry from a fresh read.
func (p *PatientStore) Save(ctx context.Context, patientID string, data *health.PatientHealthData, version uint64) error {
	doc, err := json.Marshal(data)
	if err != nil {
		return apperrors.Wrap(err, "STORE_004", "failed to encode patient document")
	}

	db := p.store.db.WithContext(ctx)
	if version == 0 {
		row := PatientRow{ID: patientID, Document: string(doc), Version: 1}
		if err := db.Create(&row).Error; err != nil {
			// A concurrent writer created the row first.
			return apperrors.ErrStaleWrite
		}
	} else {
		res := db.Model(&PatientRow{}).
			Where("id = ? AND version = ?", patientID, version).
			Updates(map[string]interface{}{
				"document": string(doc),
				"version":  version + 1,
			})
		if res.Error != nil {
			return apperrors.Wrap(res.Error, "STORE_001", "failed to save patient record")
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrStaleWrite
		}
	}

	p.store.notifyPatient(patientID, data)
	return nil
}

// patientSubscriber is one registered change callback.
type patientSubscriber struct {
	id int
	fn func(*health.PatientHealthData)
}

type patientSubscribers struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]patientSubscriber
}

func (s *Store) patientSubs() *patientSubscribers {
	s.subsOnce.Do(func() {
		s.subs = &patientSubscribers{subs: make(map[string][]patientSubscriber)}
	})
	return s.subs
}

// Subscribe registers fn to run after every successful save of the
// patient's record. The returned function unsubscribes.
func (p *PatientStore) Subscribe(patientID string, fn func(*health.PatientHealthData)) func() {
	subs := p.store.patientSubs()
	subs.mu.Lock()
	defer subs.mu.Unlock()

	subs.nextID++
	id := subs.nextID
	subs.subs[patientID] = append(subs.subs[patientID], patientSubscriber{id: id, fn: fn})

	return func() {
		subs.mu.Lock()
		defer subs.mu.Unlock()
		list := subs.subs[patientID]
		for i, sub := range list {
			if sub.id == id {
				subs.subs[patientID] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notifyPatient(patientID string, data *health.PatientHealthData) {
	subs := s.patientSubs()
	subs.mu.Lock()
	listeners := make([]func(*health.PatientHealthData), 0, len(subs.subs[patientID]))
	for _, sub := range subs.subs[patientID] {
		listeners = append(listeners, sub.fn)
	}
	subs.mu.Unlock()

	for _, fn := range listeners {
		fn(data)
	}
}

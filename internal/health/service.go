package health

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gmsas95/vitalink/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PatientRepository is the document-store boundary for patient records.
// Get returns the record and its version; an absent patient yields an empty
// record at version 0. Save replaces the whole record and must fail with
// ErrStaleWrite when the version no longer matches.
type PatientRepository interface {
	Get(ctx context.Context, patientID string) (*PatientHealthData, uint64, error)
	Save(ctx context.Context, patientID string, data *PatientHealthData, version uint64) error
}

// Service wraps the pure engines with persistence. All mutations go through
// a per-patient lock plus an optimistic version check, so concurrent writers
// on one patient are serialized in-process and conflicting writers from
// other processes surface as retried stale writes instead of silent lost
// updates.
type Service struct {
	repo   PatientRepository
	logger *zap.Logger
	now    func() time.Time

	locks sync.Map // patientID -> *sync.Mutex
}

// NewService creates a health service.
func NewService(repo PatientRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) lock(patientID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(patientID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

const staleWriteRetries = 3

// mutate runs fn against a fresh snapshot of the patient record, recomputes
// the health score, appends the snapshot to the score history, and saves.
// Stale writes are retried with a fresh read.
func (s *Service) mutate(ctx context.Context, patientID string, fn func(*PatientHealthData) error) (*PatientHealthData, error) {
	mu := s.lock(patientID)
	mu.Lock()
	defer mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < staleWriteRetries; attempt++ {
		record, version, err := s.repo.Get(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if record == nil {
			record = &PatientHealthData{}
		}

		if err := fn(record); err != nil {
			return nil, err
		}

		now := s.now()
		result := ComputeHealthScore(record, now)
		record.HealthScoreHistory = append(record.HealthScoreHistory, result.Snapshot(now))
		metrics.ScoreComputations.Inc()
		metrics.HealthScore.Observe(float64(result.Score))

		if err := s.repo.Save(ctx, patientID, record, version); err != nil {
			if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.ErrStaleWrite.Code {
				metrics.StaleWrites.Inc()
				lastErr = err
				continue
			}
			return nil, err
		}
		return record, nil
	}
	return nil, lastErr
}

// Record returns the patient's aggregate record.
func (s *Service) Record(ctx context.Context, patientID string) (*PatientHealthData, error) {
	record, _, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &PatientHealthData{}
	}
	return record, nil
}

// AddVital validates and appends a vital reading, then re-snapshots the
// health score. Malformed numeric input is rejected here, before
// persistence; the scoring engine assumes clean values.
func (s *Service) AddVital(ctx context.Context, patientID string, v VitalRecord) error {
	if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
		return apperrors.ErrInvalidVital
	}
	if v.Type == "" {
		return apperrors.New("VITAL_002", "vital type is required")
	}
	if v.Timestamp == 0 {
		v.Timestamp = s.now().UnixMilli()
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	_, err := s.mutate(ctx, patientID, func(record *PatientHealthData) error {
		if record.VitalsHistory == nil {
			record.VitalsHistory = make(map[VitalType][]VitalRecord)
		}
		record.VitalsHistory[v.Type] = append(record.VitalsHistory[v.Type], v)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Vital recorded",
		zap.String("patient_id", patientID),
		zap.String("type", string(v.Type)),
		zap.Float64("value", v.Value),
	)
	return nil
}

// AddMedication appends a clinician-created medication.
func (s *Service) AddMedication(ctx context.Context, patientID string, med Medication) (*Medication, error) {
	if med.Name == "" {
		return nil, apperrors.New("MED_003", "medication name is required")
	}
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	if med.StartDate == "" {
		med.StartDate = DateOf(s.now())
	}

	_, err := s.mutate(ctx, patientID, func(record *PatientHealthData) error {
		record.Medications = append(record.Medications, med)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &med, nil
}

// UpdateMedication replaces a medication's editable fields by ID. The
// adherence log is append-only and is preserved.
func (s *Service) UpdateMedication(ctx context.Context, patientID string, med Medication) error {
	_, err := s.mutate(ctx, patientID, func(record *PatientHealthData) error {
		for i := range record.Medications {
			if record.Medications[i].ID == med.ID {
				med.AdherenceLog = record.Medications[i].AdherenceLog
				record.Medications[i] = med
				return nil
			}
		}
		return apperrors.ErrMedicationNotFound
	})
	return err
}

// DeleteMedication removes a medication. Only an explicit clinician action
// reaches this.
func (s *Service) DeleteMedication(ctx context.Context, patientID, medicationID string) error {
	_, err := s.mutate(ctx, patientID, func(record *PatientHealthData) error {
		for i := range record.Medications {
			if record.Medications[i].ID == medicationID {
				record.Medications = append(record.Medications[:i], record.Medications[i+1:]...)
				return nil
			}
		}
		return apperrors.ErrMedicationNotFound
	})
	return err
}

// AddCondition appends a diagnosed condition.
func (s *Service) AddCondition(ctx context.Context, patientID string, c MedicalCondition) (*MedicalCondition, error) {
	if c.Condition == "" {
		return nil, apperrors.New("COND_001", "condition name is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = ConditionActive
	}

	_, err := s.mutate(ctx, patientID, func(record *PatientHealthData) error {
		record.Conditions = append(record.Conditions, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AddAllergy appends an allergy.
func (s *Service) AddAllergy(ctx context.Context, patientID string, a Allergy) (*Allergy, error) {
	if a.Allergen == "" {
		return nil, apperrors.New("ALRG_001", "allergen is required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := s.mutate(ctx, patientID, func(record *PatientHealthData) error {
		record.Allergies = append(record.Allergies, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AddReport attaches an uploaded report's asset identifiers to the record.
func (s *Service) AddReport(ctx context.Context, patientID string, r Report) (*Report, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.UploadedAt == "" {
		r.UploadedAt = s.now().Format(time.RFC3339)
	}

	_, err := s.mutate(ctx, patientID, func(record *PatientHealthData) error {
		record.Reports = append(record.Reports, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// EnsureMedicationExists guarantees a medication with the given name exists
// in the canonical list, creating it with reconciliation defaults when
// absent. Matching is case-insensitive on the trimmed name and the whole
// operation is an idempotent upsert.
func (s *Service) EnsureMedicationExists(ctx context.Context, patientID, name, dosage, frequency string) error {
	if patientID == "" || name == "" {
		return nil
	}
	if dosage == "" {
		dosage = DefaultDosage
	}
	if frequency == "" {
		frequency = DefaultFrequency
	}

	created := false
	_, err := s.mutate(ctx, patientID, func(record *PatientHealthData) error {
		for i := range record.Medications {
			if record.Medications[i].NameMatches(name) {
				return nil
			}
		}
		record.Medications = append(record.Medications, Medication{
			ID:           uuid.NewString(),
			Name:         name,
			Dosage:       dosage,
			Frequency:    frequency,
			StartDate:    DateOf(s.now()),
			IsActive:     true,
			PrescribedBy: SelfReminder,
		})
		created = true
		return nil
	})
	if err != nil {
		return err
	}

	if created {
		metrics.MedicationsReconciled.Inc()
		s.logger.Info("Medication reconciled from reminder",
			zap.String("patient_id", patientID),
			zap.String("name", name),
		)
	}
	return nil
}

// LogMedicationIntake appends a dose event to the named medication,
// creating the medication first if it is unknown (same reconciliation path
// as EnsureMedicationExists). A second log for the same calendar date is
// rejected with ErrDuplicateLogEntry.
func (s *Service) LogMedicationIntake(ctx context.Context, patientID, medicineName string, status DoseStatus, at time.Time) error {
	if patientID == "" || medicineName == "" {
		return apperrors.ErrBadRequest
	}
	switch status {
	case DoseTaken, DoseSkipped, DoseMissed:
	default:
		return apperrors.New("MED_004", fmt.Sprintf("unknown dose status %q", status))
	}
	if at.IsZero() {
		at = s.now()
	}

	entry := AdherenceLogEntry{
		Date:   DateOf(at),
		Time:   TimeOf(at),
		Status: status,
	}

	_, err := s.mutate(ctx, patientID, func(record *PatientHealthData) error {
		idx := -1
		for i := range record.Medications {
			if record.Medications[i].NameMatches(medicineName) {
				idx = i
				break
			}
		}
		if idx == -1 {
			record.Medications = append(record.Medications, Medication{
				ID:           uuid.NewString(),
				Name:         medicineName,
				Dosage:       DefaultDosage,
				Frequency:    DefaultFrequency,
				StartDate:    entry.Date,
				IsActive:     true,
				PrescribedBy: SelfReminder,
			})
			idx = len(record.Medications) - 1
			metrics.MedicationsReconciled.Inc()
		}

		for _, existing := range record.Medications[idx].AdherenceLog {
			if existing.Date == entry.Date {
				return apperrors.ErrDuplicateLogEntry
			}
		}

		record.Medications[idx].AdherenceLog = append(record.Medications[idx].AdherenceLog, entry)
		return nil
	})
	if err != nil {
		return err
	}

	metrics.DosesLogged.WithLabelValues(string(status)).Inc()
	s.logger.Info("Dose logged",
		zap.String("patient_id", patientID),
		zap.String("medicine", medicineName),
		zap.String("status", string(status)),
		zap.String("date", entry.Date),
	)
	return nil
}

// Summary bundles the derived engagement metrics the dashboard renders.
type Summary struct {
	Score            ScoreResult    `json:"score"`
	AdherencePercent *int           `json:"adherencePercent"` // nil when no logged doses
	Streak           int            `json:"streak"`
	Weekly           []DayAdherence `json:"weekly"`
	ActiveMeds       int            `json:"activeMedications"`
}

// Summarize computes the dashboard summary from the current record. The
// score here is a live computation and is not appended to history.
func (s *Service) Summarize(ctx context.Context, patientID string) (*Summary, error) {
	record, err := s.Record(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &Summary{
		Score:      ComputeHealthScore(record, now),
		Streak:     CalculateStreak(record, now),
		Weekly:     WeeklyAdherence(record.Medications, now),
		ActiveMeds: len(record.ActiveMedications()),
	}
	if pct, ok := ComputeAdherence(record.Medications, now); ok {
		summary.AdherencePercent = &pct
	}
	return summary, nil
}

package reminder

import (
	"context"
	"time"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gmsas95/vitalink/internal/health"
	"github.com/gmsas95/vitalink/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages reminder lifecycle and keeps the canonical medication list
// in sync: every reminder that enters the system is reconciled into the
// patient's medical record.
type Service struct {
	repo   Repository
	meds   *health.Service
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a reminder service.
func NewService(repo Repository, meds *health.Service, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		meds:   meds,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates and stores a reminder, then reconciles its medicine into
// the patient record. Reconciliation failure does not fail the create; the
// reminder is the user-facing artifact and the sync can be retried on the
// next dose log.
func (s *Service) Create(ctx context.Context, r *Reminder) (*Reminder, error) {
	if r.MedicineName == "" {
		return nil, apperrors.New("REM_004", "medicine name is required")
	}
	if len(r.Times) == 0 {
		return nil, apperrors.New("REM_005", "at least one reminder time is required")
	}
	for _, t := range r.Times {
		if _, ok := atTimeOfDay(t, s.now()); !ok {
			return nil, apperrors.New("REM_006", "reminder time must be HH:MM 24-hour format")
		}
	}
	if !r.EveryDay && len(r.Weekdays) == 0 {
		r.EveryDay = true
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Status = StatusUpcoming
	r.Enabled = true
	if r.CreatedAt == 0 {
		r.CreatedAt = s.now().UnixMilli()
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	if r.PatientID != "" {
		if err := s.meds.EnsureMedicationExists(ctx, r.PatientID, r.MedicineName, r.Dosage, r.Frequency); err != nil {
			s.logger.Warn("Failed to reconcile reminder medication",
				zap.String("reminder_id", r.ID),
				zap.String("medicine", r.MedicineName),
				zap.Error(err),
			)
		}
	}

	metrics.RemindersCreated.WithLabelValues("manual").Inc()
	s.logger.Info("Reminder created",
		zap.String("reminder_id", r.ID),
		zap.String("medicine", r.MedicineName),
		zap.Strings("times", r.Times),
	)
	return r, nil
}

// CreateFromExtraction stores reminders for medications the assistant pulled
// out of a prescription. Extracted names are untrusted input and flow
// through the same reconciliation as manual entry. AI-inferred reminders
// default to every day for a 7-day course.
func (s *Service) CreateFromExtraction(ctx context.Context, userID, patientID string, meds []health.ExtractedMedication) ([]Reminder, error) {
	created := make([]Reminder, 0, len(meds))
	for _, med := range meds {
		times := med.Times
		if len(times) == 0 {
			times = []string{"08:00"}
		}
		r := &Reminder{
			ID:           uuid.NewString(),
			UserID:       userID,
			PatientID:    patientID,
			MedicineName: med.Name,
			Dosage:       med.Dosage,
			Frequency:    med.Frequency,
			Days:         7,
			EveryDay:     true,
			Times:        times,
			Status:       StatusUpcoming,
			Enabled:      true,
			CreatedAt:    s.now().UnixMilli(),
		}
		if err := s.repo.Create(ctx, r); err != nil {
			return created, err
		}
		if patientID != "" {
			if err := s.meds.EnsureMedicationExists(ctx, patientID, med.Name, med.Dosage, med.Frequency); err != nil {
				s.logger.Warn("Failed to reconcile extracted medication",
					zap.String("medicine", med.Name),
					zap.Error(err),
				)
			}
		}
		metrics.RemindersCreated.WithLabelValues("assistant").Inc()
		created = append(created, *r)
	}
	return created, nil
}

// Get loads a single reminder, or nil when absent.
func (s *Service) Get(ctx context.Context, id string) (*Reminder, error) {
	return s.repo.Get(ctx, id)
}

// List returns a user's reminders.
func (s *Service) List(ctx context.Context, userID string) ([]Reminder, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Complete marks an upcoming reminder done for today and logs the dose as
// taken in the adherence log.
func (s *Service) Complete(ctx context.Context, id string) error {
	return s.transitionAndLog(ctx, id, StatusUpcoming, StatusCompleted, health.DoseTaken)
}

// Skip marks an upcoming reminder completed without taking the dose, logging
// it as skipped.
func (s *Service) Skip(ctx context.Context, id string) error {
	return s.transitionAndLog(ctx, id, StatusUpcoming, StatusCompleted, health.DoseSkipped)
}

// Reopen returns a missed or completed reminder to upcoming.
func (s *Service) Reopen(ctx context.Context, id string) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return apperrors.ErrReminderNotFound
	}
	if !r.CanTransition(StatusUpcoming) {
		return apperrors.ErrInvalidTransition
	}

	transitioned, err := s.repo.TransitionStatus(ctx, id, r.Status, StatusUpcoming)
	if err != nil {
		return err
	}
	if !transitioned {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// SetEnabled toggles a reminder without touching its status.
func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return apperrors.ErrReminderNotFound
	}
	r.Enabled = enabled
	return s.repo.Update(ctx, r)
}

// Delete removes a reminder. The reconciled medication stays on the medical
// record; reminders are never the source of medical truth.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) transitionAndLog(ctx context.Context, id string, from, to Status, dose health.DoseStatus) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return apperrors.ErrReminderNotFound
	}

	transitioned, err := s.repo.TransitionStatus(ctx, id, from, to)
	if err != nil {
		return err
	}
	if !transitioned {
		return apperrors.ErrInvalidTransition
	}

	if r.PatientID != "" {
		err := s.meds.LogMedicationIntake(ctx, r.PatientID, r.MedicineName, dose, s.now())
		if err != nil && apperrors.GetCode(err) != apperrors.ErrDuplicateLogEntry.Code {
			return err
		}
	}
	return nil
}

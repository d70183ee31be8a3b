package reminder

import (
	"context"
	"time"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gmsas95/vitalink/internal/health"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Rollover is the nightly job that closes out the previous day: reminders
// the sweep flagged missed get a missed dose written into the adherence
// log, and yesterday's missed and completed reminders are reset to upcoming
// so recurring schedules fire again today.
type Rollover struct {
	repo   Repository
	meds   *health.Service
	logger *zap.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// NewRollover creates the rollover job.
func NewRollover(repo Repository, meds *health.Service, logger *zap.Logger) *Rollover {
	return &Rollover{
		repo:   repo,
		meds:   meds,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the job clock. Used by tests.
func (j *Rollover) WithClock(now func() time.Time) *Rollover {
	j.now = now
	return j
}

// Start schedules the job with the given cron spec (standard 5-field
// syntax, e.g. "10 0 * * *" for 00:10 daily).
func (j *Rollover) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		j.Run(context.Background())
	})
	if err != nil {
		return err
	}
	c.Start()
	j.cron = c
	j.logger.Info("Rollover job scheduled", zap.String("spec", spec))
	return nil
}

// Stop cancels the scheduled job and waits for a running pass to finish.
func (j *Rollover) Stop() {
	if j.cron != nil {
		ctx := j.cron.Stop()
		<-ctx.Done()
		j.logger.Info("Rollover job stopped")
	}
}

// Run executes one rollover pass. Safe to run repeatedly: the adherence log
// rejects duplicate same-day entries and status resets are conditional.
func (j *Rollover) Run(ctx context.Context) {
	now := j.now()
	yesterday := now.AddDate(0, 0, -1)

	reminders, err := j.repo.ListEnabled(ctx)
	if err != nil {
		j.logger.Error("Failed to list reminders for rollover", zap.Error(err))
		return
	}

	for i := range reminders {
		r := &reminders[i]

		// Record the missed dose before resetting the status.
		if r.Status == StatusMissed && r.PatientID != "" && r.ScheduledToday(yesterday) {
			at := yesterday
			if len(r.Times) > 0 {
				if scheduled, ok := atTimeOfDay(r.Times[0], yesterday); ok {
					at = scheduled
				}
			}
			err := j.meds.LogMedicationIntake(ctx, r.PatientID, r.MedicineName, health.DoseMissed, at)
			if err != nil && apperrors.GetCode(err) != apperrors.ErrDuplicateLogEntry.Code {
				j.logger.Error("Failed to log missed dose",
					zap.String("reminder_id", r.ID),
					zap.Error(err),
				)
			}
		}

		if r.Status == StatusUpcoming {
			continue
		}
		if _, err := j.repo.TransitionStatus(ctx, r.ID, r.Status, StatusUpcoming); err != nil {
			j.logger.Error("Failed to reset reminder",
				zap.String("reminder_id", r.ID),
				zap.Error(err),
			)
		}
	}

	j.logger.Info("Rollover pass complete", zap.Int("reminders", len(reminders)))
}

package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gmsas95/vitalink/internal/metrics"
	"go.uber.org/zap"
)

// Repository is the persistence boundary the sweep and service depend on.
// TransitionStatus must be conditional on the current status so that
// overlapping ticks cannot double-transition a reminder.
type Repository interface {
	Get(ctx context.Context, id string) (*Reminder, error)
	ListByUser(ctx context.Context, userID string) ([]Reminder, error)
	ListDue(ctx context.Context) ([]Reminder, error)
	ListEnabled(ctx context.Context) ([]Reminder, error)
	Create(ctx context.Context, r *Reminder) error
	Update(ctx context.Context, r *Reminder) error
	Delete(ctx context.Context, id string) error
	TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error)
}

// Sweeper periodically demotes overdue upcoming reminders to missed. It runs
// server-side over every enabled reminder, so a reminder transitions whether
// or not any client is watching.
type Sweeper struct {
	repo     Repository
	logger   *zap.Logger
	interval time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewSweeper creates a sweeper with the default 30-second interval.
func NewSweeper(repo Repository, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		logger:   logger,
		interval: 30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval sets the tick interval.
func (s *Sweeper) WithInterval(interval time.Duration) *Sweeper {
	s.interval = interval
	return s
}

// Start starts the sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("Starting reminder sweeper", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.run(ctx)

	return nil
}

// Stop stops the sweep loop and waits for the current tick to finish.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Reminder sweeper stopped")

	return nil
}

// IsRunning returns true if the sweeper is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Sweep immediately on start.
	s.Sweep(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now())
		}
	}
}

// Sweep runs one pass over all due reminders. The conditional transition
// makes it safe to call again before a previous pass finished writing.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in reminder sweep", zap.Any("recover", r))
		}
	}()

	metrics.SweepsTotal.Inc()

	reminders, err := s.repo.ListDue(ctx)
	if err != nil {
		s.logger.Error("Failed to list due reminders", zap.Error(err))
		return
	}

	for i := range reminders {
		r := &reminders[i]
		if !Classify(r, now) {
			continue
		}

		transitioned, err := s.repo.TransitionStatus(ctx, r.ID, StatusUpcoming, StatusMissed)
		if err != nil {
			s.logger.Error("Failed to mark reminder missed",
				zap.String("reminder_id", r.ID),
				zap.Error(err),
			)
			continue
		}
		if !transitioned {
			// Another tick or a user action got there first.
			continue
		}

		metrics.RemindersMissed.Inc()
		s.logger.Info("Reminder missed",
			zap.String("reminder_id", r.ID),
			zap.String("medicine", r.MedicineName),
			zap.Strings("times", r.Times),
		)
	}
}

package usecase

import (
	"context"
	"sync"
	"time"

	"queue-maintenance/internal/maintenance/domain/model"
	"queue-maintenance/internal/maintenance/domain/repository"
	"queue-maintenance/internal/shared/contextkeys"
	"queue-maintenance/internal/shared/errors"
	"queue-maintenance/internal/shared/logger"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is the work a Scheduler triggers
type Job interface {
	RunDailyReset(ctx context.Context) (*model.RunReport, error)
}

// ScheduleOptions configures when the job fires
type ScheduleOptions struct {
	Cron        string
	Location    *time.Location
	Description string
	LockTTL     time.Duration
}

// Scheduler fires the job on a cron schedule and never lets two runs overlap.
type Scheduler struct {
	job    Job
	lock   repository.RunLock
	opts   ScheduleOptions
	cron   *gocron.Scheduler
	entry  *gocron.Job
	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler registers job under opts.Cron in opts.Location
func NewScheduler(job Job, lock repository.RunLock, opts ScheduleOptions, log logger.Logger) (*Scheduler, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		job:    job,
		lock:   lock,
		opts:   opts,
		cron:   gocron.NewScheduler(opts.Location),
		logger: log.WithComponent("scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}

	entry, err := s.cron.Cron(opts.Cron).Do(s.trigger)
	if err != nil {
		cancel()
		return nil, errors.NewConfigurationError("invalid reset schedule").
			WithCause(err).
			WithDetail("cron", opts.Cron)
	}
	s.entry = entry
	return s, nil
}

// Start begins firing the job in the background
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	s.logger.Info("Cron job scheduled. Running every day at "+s.opts.Description,
		zap.String("cron", s.opts.Cron),
		zap.String("timezone", s.opts.Location.String()))
	s.logger.Info("Current server time: "+time.Now().In(s.opts.Location).Format(time.RFC1123),
		zap.Time("next_run", s.NextRun()))
}

// NextRun returns the next scheduled fire time in the schedule's zone
func (s *Scheduler) NextRun() time.Time {
	return s.entry.NextRun().In(s.opts.Location)
}

// RunNow runs the job immediately unless a run is already in progress, in
// which case it returns errors.ErrRunInProgress.
func (s *Scheduler) RunNow(ctx context.Context) (*model.RunReport, error) {
	s.wg.Add(1)
	defer s.wg.Done()

	acquired, err := s.lock.TryAcquire(ctx, s.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, errors.NewConflictError("reset run already in progress").
			WithCause(errors.ErrRunInProgress)
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release run lock", zap.Error(err))
		}
	}()

	return s.job.RunDailyReset(ctx)
}

// TriggerAsync fires one run outside the schedule, as the cron would
func (s *Scheduler) TriggerAsync() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.trigger()
	}()
}

// trigger is the cron callback
func (s *Scheduler) trigger() {
	runID := uuid.NewString()
	ctx := context.WithValue(s.ctx, contextkeys.RunIDKey, runID)
	log := s.logger.WithContext(ctx)

	log.Info("Cron job started at: " + time.Now().In(s.opts.Location).Format(time.RFC1123))

	report, err := s.RunNow(ctx)
	switch {
	case errors.IsConflict(err):
		log.Warn("Previous reset run still in progress; skipping this trigger")
	case err != nil:
		log.Error("Scheduled reset run failed", zap.Error(err))
	default:
		log.Info("Scheduled reset run finished", zap.Duration("duration", report.Duration()))
	}
}

// Stop halts the schedule, cancels an in-flight run and waits for it to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()

	// gocron's Stop blocks until running jobs return, so it shares the
	// ctx bound with the in-flight run.
	done := make(chan struct{})
	go func() {
		s.cron.Stop()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

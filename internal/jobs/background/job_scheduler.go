package background

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"linkrental/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	ExpirySweepJob  = "rental-expiry-sweep"
	StalePendingJob = "stale-pending-report"
)

// JobScheduler runs the rental maintenance jobs in the background
type JobScheduler struct {
	scheduler         gocron.Scheduler
	sweepSvc          *jobs.ExpirySweepService
	logger            *zap.Logger
	stalePendingAfter time.Duration
	jobs              map[string]gocron.Job
	mu                sync.RWMutex
}

// NewJobScheduler creates a scheduler with the expiry sweep every sweepInterval and an hourly
// report of requests pending longer than stalePendingAfter.
func NewJobScheduler(sweepSvc *jobs.ExpirySweepService, clock clockwork.Clock, logger *zap.Logger,
	sweepInterval, stalePendingAfter time.Duration) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler:         scheduler,
		sweepSvc:          sweepSvc,
		logger:            logger,
		stalePendingAfter: stalePendingAfter,
		jobs:              make(map[string]gocron.Job),
	}

	if err := js.registerJobs(sweepInterval); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}

	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("Starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (js *JobScheduler) Stop() error {
	js.logger.Info("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(sweepInterval time.Duration) error {
	sweepJob, err := js.scheduler.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(js.sweepExpired),
		gocron.WithName(ExpirySweepJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", ExpirySweepJob, err)
	}
	js.jobs[ExpirySweepJob] = sweepJob

	staleJob, err := js.scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(js.reportStalePending),
		gocron.WithName(StalePendingJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", StalePendingJob, err)
	}
	js.jobs[StalePendingJob] = staleJob

	js.logger.Debug("Registered background jobs",
		zap.Duration("sweep_interval", sweepInterval),
		zap.Duration("stale_pending_after", js.stalePendingAfter))
	return nil
}

func (js *JobScheduler) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := js.sweepSvc.SweepExpired(ctx); err != nil {
		js.logger.Error("Expiry sweep failed", zap.Error(err))
	}
}

func (js *JobScheduler) reportStalePending() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := js.sweepSvc.ReportStalePending(ctx, js.stalePendingAfter); err != nil {
		js.logger.Error("Stale pending report failed", zap.Error(err))
	}
}

// RunNow triggers a registered job outside its schedule
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	return job.RunNow()
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	details := make(map[string]interface{}, len(js.jobs))
	for _, name := range names {
		info := map[string]interface{}{}
		if next, err := js.jobs[name].NextRun(); err == nil && !next.IsZero() {
			info["next_run"] = next.UTC().Format(time.RFC3339)
		}
		if last, err := js.jobs[name].LastRun(); err == nil && !last.IsZero() {
			info["last_run"] = last.UTC().Format(time.RFC3339)
		}
		details[name] = info
	}

	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       names,
		"details":    details,
	}
}

// Package scheduler runs the daemon's periodic maintenance jobs: the
// idle-shutdown check today, with room for others (cache pruning, socket
// health checks) without touching the accept loop itself.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job is one periodic maintenance task.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs a fixed set of jobs, each on its own ticker, until Stop
// or its context is cancelled.
type Scheduler struct {
	logger *slog.Logger
	jobs   []scheduledJob
}

type scheduledJob struct {
	job      Job
	interval time.Duration
	ticker   *time.Ticker
	stop     chan struct{}
}

// NewScheduler creates an empty Scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// AddJob registers job to run every interval once Start is called. Jobs
// added after Start has already run take effect only on the next Start.
func (s *Scheduler) AddJob(job Job, interval time.Duration) {
	s.jobs = append(s.jobs, scheduledJob{
		job:      job,
		interval: interval,
		stop:     make(chan struct{}),
	})
}

// JobCount reports how many jobs are registered.
func (s *Scheduler) JobCount() int { return len(s.jobs) }

// Start launches one goroutine per registered job.
func (s *Scheduler) Start(ctx context.Context) {
	for i := range s.jobs {
		sj := &s.jobs[i]
		sj.ticker = time.NewTicker(sj.interval)

		go func(sj *scheduledJob) {
			s.logger.Debug("scheduler: job started", "job", sj.job.Name(), "interval", sj.interval)

			for {
				select {
				case <-sj.ticker.C:
					if err := sj.job.Run(ctx); err != nil {
						s.logger.Error("scheduler: job failed", "job", sj.job.Name(), "error", err)
					}
				case <-sj.stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}(sj)
	}
}

// Stop halts every running job and waits for none of it; callers that
// need a drained shutdown should cancel the Start context first.
func (s *Scheduler) Stop() {
	for i := range s.jobs {
		if s.jobs[i].ticker != nil {
			s.jobs[i].ticker.Stop()
		}
		select {
		case <-s.jobs[i].stop:
		default:
			close(s.jobs[i].stop)
		}
	}
	s.logger.Debug("scheduler: stopped")
}

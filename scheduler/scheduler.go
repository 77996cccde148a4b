// Package scheduler runs durable delayed jobs. Jobs are persisted through
// the store, so 24-hour reminders and scheduled deletions survive process
// restarts; a polling worker claims due jobs and dispatches them to
// registered handlers. Retry and backoff are deliberately absent: a job
// runs once and is marked done or failed.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"buzzconnect/models"
	"buzzconnect/store"
)

// HandlerFunc executes one job kind.
type HandlerFunc func(ctx context.Context, payload map[string]string) error

type Scheduler struct {
	store    store.Store
	handlers map[string]HandlerFunc
	interval time.Duration
	now      func() time.Time
}

func New(st store.Store, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:    st,
		handlers: make(map[string]HandlerFunc),
		interval: interval,
		now:      time.Now,
	}
}

// SetClock replaces the scheduler's clock. Test hook.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Handle registers the handler for a job kind. Not safe to call once Run
// has started.
func (s *Scheduler) Handle(kind string, fn HandlerFunc) {
	s.handlers[kind] = fn
}

// Schedule persists a job to run at runAt.
func (s *Scheduler) Schedule(ctx context.Context, kind string, payload map[string]string, runAt time.Time) error {
	return s.store.EnqueueJob(ctx, &models.Job{
		Kind:      kind,
		Payload:   payload,
		RunAt:     runAt,
		Status:    models.JobPending,
		CreatedAt: s.now(),
	})
}

// Run polls for due jobs until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll claims and executes every job due at the current clock reading.
func (s *Scheduler) Poll(ctx context.Context) {
	for {
		job, err := s.store.ClaimDueJob(ctx, s.now())
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			log.Printf("[scheduler] claim job: %v", err)
			return
		}
		s.execute(ctx, job)
	}
}

func (s *Scheduler) execute(ctx context.Context, job *models.Job) {
	fn, ok := s.handlers[job.Kind]
	if !ok {
		log.Printf("[scheduler] no handler for job kind %q", job.Kind)
		s.mark(ctx, job, models.JobFailed, "no handler registered")
		return
	}

	if err := fn(ctx, job.Payload); err != nil {
		log.Printf("[scheduler] job %s (%s) failed: %v", job.ID.Hex(), job.Kind, err)
		s.mark(ctx, job, models.JobFailed, err.Error())
		return
	}
	s.mark(ctx, job, models.JobDone, "")
}

func (s *Scheduler) mark(ctx context.Context, job *models.Job, status, errMsg string) {
	if err := s.store.MarkJob(ctx, job.ID, status, errMsg); err != nil {
		log.Printf("[scheduler] mark job %s: %v", job.ID.Hex(), err)
	}
}

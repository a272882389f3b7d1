package sync

import (
	"context"
	"log"
	gosync "sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunState represents the current state of the scheduled job.
type RunState int

const (
	RunIdle RunState = iota
	RunRunning
	RunError
)

func (s RunState) String() string {
	switch s {
	case RunRunning:
		return "running"
	case RunError:
		return "error"
	default:
		return "idle"
	}
}

// Status holds the outcome of the most recent run.
type Status struct {
	State    RunState
	LastRun  time.Time
	Error    error
	Runs     int
	Skipped  int
	Schedule string
}

// RunFunc performs one pass. It is never called concurrently with itself.
type RunFunc func(ctx context.Context) error

// runTimeout bounds a single pass, covering every page of every course.
const runTimeout = 10 * time.Minute

// Scheduler runs a RunFunc on a cron schedule and on demand. A run that is
// requested while another is in progress is skipped.
type Scheduler struct {
	cron   *cron.Cron
	job    cron.Job
	run    RunFunc
	logger *log.Logger

	mu      gosync.Mutex
	status  Status
	ctx     context.Context
	wg      gosync.WaitGroup
	running bool
	busy    bool
}

// New creates a Scheduler for the standard five-field cron spec or
// descriptor (for example "@every 30m" or "0 7 * * *").
func New(spec string, run RunFunc, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.Default()
	}

	s := &Scheduler{
		run:    run,
		logger: logger,
		ctx:    context.Background(),
	}
	s.status.Schedule = spec

	cronLogger := cron.PrintfLogger(logger)
	s.cron = cron.New(cron.WithLogger(cronLogger))
	s.job = cron.NewChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	).Then(cron.FuncJob(s.runOnce))

	if _, err := s.cron.AddJob(spec, s.job); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins scheduling. Runs use ctx as their parent context.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Trigger requests an immediate run without blocking. It is dropped when
// a run is already in progress.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	if s.busy {
		s.status.Skipped++
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
}

// Next returns the next scheduled run time, or the zero time when the
// scheduler is not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Status returns a copy of the current run status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// runOnce performs a single pass and records its outcome.
func (s *Scheduler) runOnce() {
	s.mu.Lock()
	parent := s.ctx
	s.busy = true
	s.status.State = RunRunning
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, runTimeout)
	defer cancel()

	err := s.run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.status.Runs++
	s.status.LastRun = time.Now()
	s.status.Error = err
	if err != nil {
		s.status.State = RunError
		s.logger.Printf("scheduled run failed: %v", err)
		return
	}
	s.status.State = RunIdle
}

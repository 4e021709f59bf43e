package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/baxromumarov/jobfeed/internal/lock"
	"github.com/baxromumarov/jobfeed/internal/observability"
)

const (
	DefaultInterval     = 15 * time.Minute
	DefaultStartupDelay = 10 * time.Second
)

type Runner interface {
	Run(ctx context.Context, limits RunLimits) (RunResult, error)
}

type SchedulerConfig struct {
	Interval     time.Duration
	StartupDelay time.Duration
	Limits       RunLimits
}

// Scheduler fires the pipeline on a fixed interval and once shortly after
// start. A firing that finds the lock held is dropped, not queued.
type Scheduler struct {
	cfg    SchedulerConfig
	runner Runner
	lock   lock.Lock
	cron   *cron.Cron

	mu      sync.Mutex
	startup *time.Timer
	stopped bool
	running sync.WaitGroup
}

func NewScheduler(runner Runner, l lock.Lock, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StartupDelay < 0 {
		cfg.StartupDelay = 0
	}
	logger := cronLogger{}
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		lock:   l,
		cron:   cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
	}
}

// Start registers the recurring trigger and arms the startup trigger. Runs
// use ctx, so cancelling it aborts in-flight fetches.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := "@every " + s.cfg.Interval.String()
	if _, err := s.cron.AddFunc(spec, func() {
		s.RunOnce(ctx, "interval", s.cfg.Limits)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()

	s.mu.Lock()
	s.startup = time.AfterFunc(s.cfg.StartupDelay, func() {
		s.RunOnce(ctx, "startup", s.cfg.Limits)
	})
	s.mu.Unlock()

	slog.Info("scheduler started", "spec", spec, "startup_delay", s.cfg.StartupDelay)
	return nil
}

// Stop cancels pending triggers, refuses new runs and waits for in-flight
// runs to return, including startup and bootstrap runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.startup != nil {
		s.startup.Stop()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.running.Wait()
	slog.Info("scheduler stopped")
}

// RunOnce runs the pipeline if the lock is free. ran is false when another
// run holds the lock. The lock is released even if the pipeline panics.
func (s *Scheduler) RunOnce(ctx context.Context, reason string, limits RunLimits) (res RunResult, ran bool, err error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		slog.Info("run skipped, scheduler stopped", "reason", reason)
		return RunResult{}, false, nil
	}
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	acquired, err := s.lock.TryAcquire(ctx)
	if err != nil {
		slog.Error("run lock unavailable", "reason", reason, "error", err)
		return RunResult{}, false, err
	}
	if !acquired {
		slog.Info("run skipped, previous run still in progress", "reason", reason)
		observability.IncRunSkipped()
		return RunResult{}, false, nil
	}

	observability.IncRunStarted()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panic", "reason", reason, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("pipeline panic: %v", r)
		}
		if err != nil {
			observability.IncRunFailed()
		}
		observability.ObserveRunDuration(time.Since(start).Seconds())
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			slog.Error("run lock release failed", "reason", reason, "error", relErr)
		}
	}()

	ran = true
	res, err = s.runner.Run(ctx, limits)
	if err != nil {
		slog.Error("pipeline run failed", "reason", reason, "run_id", res.RunID, "error", err)
	}
	return res, ran, err
}

// cronLogger routes robfig/cron logs to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// Package sched runs configured backtests on cron schedules and tracks the
// status of each scheduled task.
package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"quantbt/internal/config"
	"quantbt/internal/engine"
	"quantbt/internal/logger"
	"quantbt/internal/monitor"
	"quantbt/internal/types"
)

// TaskStatus represents the status of a scheduled task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task represents one scheduled backtest
type Task struct {
	Backtest    string
	Schedule    string
	LastRunTime time.Time
	Status      TaskStatus
	Error       string
}

// Runner executes a named backtest configuration. Satisfied by the engine
// wrapped with configuration lookup in cmd.
type Runner interface {
	RunBacktest(ctx context.Context, cfg engine.Config) (*types.Results, error)
}

// Scheduler manages cron-driven backtest runs.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	metrics *monitor.Metrics
	log     logger.Logger

	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewScheduler creates a scheduler over the given runner. Metrics may be nil.
func NewScheduler(runner Runner, metrics *monitor.Metrics) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		metrics: metrics,
		log:     logger.GetGlobalLogger(),
		tasks:   make(map[string]*Task),
	}
}

// AddSchedule registers one scheduled backtest. Disabled schedules are
// recorded but never fire.
func (s *Scheduler) AddSchedule(schedule config.ScheduleConfig, cfg engine.Config) error {
	task := &Task{
		Backtest: cfg.Name,
		Schedule: schedule.Cron,
		Status:   TaskStatusPending,
	}

	s.mu.Lock()
	s.tasks[cfg.Name] = task
	s.mu.Unlock()

	if !schedule.Enabled {
		s.log.Info("schedule disabled", "backtest", cfg.Name)
		return nil
	}

	_, err := s.cron.AddFunc(schedule.Cron, func() {
		s.runTask(context.Background(), task, cfg)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job for %s: %w", cfg.Name, err)
	}
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "tasks", len(s.tasks))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// Tasks returns a snapshot of all scheduled tasks.
func (s *Scheduler) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}

func (s *Scheduler) runTask(ctx context.Context, task *Task, cfg engine.Config) {
	s.mu.Lock()
	task.Status = TaskStatusRunning
	task.LastRunTime = time.Now()
	s.mu.Unlock()

	_, err := s.runner.RunBacktest(ctx, cfg)

	s.mu.Lock()
	if err != nil {
		task.Status = TaskStatusFailed
		task.Error = err.Error()
	} else {
		task.Status = TaskStatusCompleted
		task.Error = ""
	}
	s.mu.Unlock()

	status := "success"
	if err != nil {
		status = "failure"
		s.log.Error("scheduled backtest failed", "backtest", cfg.Name, "error", err)
	}
	if s.metrics != nil {
		s.metrics.RecordScheduledRun(cfg.Name, status)
	}
}

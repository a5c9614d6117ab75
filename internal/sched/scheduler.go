package sched

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/logging"
)

// Scheduler is a cancellable periodic-task registry built on cron. Tasks are
// registered by name with an interval; stopping a handle (or pausing the
// scheduler) cancels future runs but never interrupts a run in progress.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	tasks   map[string]*task
	paused  bool
	stopped bool
	logger  *logging.Logger
}

type task struct {
	name     string
	interval time.Duration
	fn       func()
	entry    cron.EntryID
}

// Handle cancels a single scheduled task.
type Handle struct {
	s    *Scheduler
	name string
}

// New creates a scheduler. It starts dispatching immediately.
func New(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := cron.New()
	c.Start()
	return &Scheduler{
		cron:   c,
		tasks:  make(map[string]*task),
		logger: logger.Component("sched"),
	}
}

// Every schedules fn to run at the given interval under a unique name.
// Registering an existing name replaces the previous schedule.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) (Handle, error) {
	if interval <= 0 {
		return Handle{}, fmt.Errorf("invalid interval %v for task %q", interval, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Handle{}, fmt.Errorf("scheduler is stopped")
	}

	if prev, ok := s.tasks[name]; ok {
		s.cron.Remove(prev.entry)
	}

	t := &task{name: name, interval: interval, fn: fn}
	s.tasks[name] = t
	if !s.paused {
		if err := s.schedule(t); err != nil {
			delete(s.tasks, name)
			return Handle{}, err
		}
	}

	s.logger.Debug("task scheduled",
		zap.String("task", name), zap.Duration("interval", interval))
	return Handle{s: s, name: name}, nil
}

// Stop cancels the task owned by this handle. Safe to call more than once.
func (h Handle) Stop() {
	if h.s == nil {
		return
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	if t, ok := h.s.tasks[h.name]; ok {
		h.s.cron.Remove(t.entry)
		delete(h.s.tasks, h.name)
	}
}

// Pause cancels all scheduled entries. Registered tasks are remembered and
// re-established by Resume. A callback already running finishes normally.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused || s.stopped {
		return
	}
	s.paused = true
	for _, t := range s.tasks {
		s.cron.Remove(t.entry)
	}
	s.logger.Info("scheduler paused", zap.Int("tasks", len(s.tasks)))
}

// Resume re-establishes all registered tasks from scratch.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.paused || s.stopped {
		return
	}
	s.paused = false
	for _, t := range s.tasks {
		if err := s.schedule(t); err != nil {
			s.logger.Warn("failed to reschedule task",
				zap.String("task", t.name), zap.Error(err))
		}
	}
	s.logger.Info("scheduler resumed", zap.Int("tasks", len(s.tasks)))
}

// Shutdown stops the scheduler permanently and waits for running callbacks.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
}

// TaskCount returns the number of registered tasks.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// schedule installs a task into cron. Caller holds s.mu.
func (s *Scheduler) schedule(t *task) error {
	spec := fmt.Sprintf("@every %s", t.interval)
	entry, err := s.cron.AddFunc(spec, t.fn)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", t.name, err)
	}
	t.entry = entry
	return nil
}

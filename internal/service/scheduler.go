package service

import (
	"fmt"
	"sync"
	"time"

	"prova_backend/pkg/logger"

	"go.uber.org/zap"
)

// Scheduler owns the deferred, cancellable timers that drive wall-clock
// state transitions (scheduled start, automatic finish). One instance per
// process; every pending timer lives in a keyed registry so a re-schedule
// replaces any timer with the same name. Cancellation is best-effort: a
// timer already mid-fire is not interrupted, its callback must tolerate
// being stale.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer)}
}

// StartTimerName and FinishTimerName are the deterministic registry keys:
// at most one pending start timer and one pending finish timer per
// application.
func StartTimerName(applicationID uint) string {
	return fmt.Sprintf("start:%d", applicationID)
}

func FinishTimerName(applicationID uint) string {
	return fmt.Sprintf("finish:%d", applicationID)
}

// Schedule arms fn to run at the given instant, replacing any pending timer
// with the same name. Instants in the past fire immediately.
func (s *Scheduler) Schedule(name string, at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if existing, ok := s.timers[name]; ok {
		existing.Stop()
		delete(s.timers, name)
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	s.timers[name] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, name)
		s.mu.Unlock()
		fn()
	})

	logger.Log.Debug("Timer armed", zap.String("name", name), zap.Time("at", at))
}

// Cancel removes a pending timer by name.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// CancelAll removes the start and finish timers of an application. Called
// on every terminal transition so no further timers fire for the id.
func (s *Scheduler) CancelAll(applicationID uint) {
	s.Cancel(StartTimerName(applicationID))
	s.Cancel(FinishTimerName(applicationID))
}

// Pending reports whether a timer with the given name is armed.
func (s *Scheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}

// Stop drains the registry on shutdown. Timers armed afterwards are
// ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
	logger.Log.Info("Scheduler stopped")
}

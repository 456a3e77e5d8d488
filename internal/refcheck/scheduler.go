package refcheck

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDebounce is how long the editor must stay quiet before a pending
// validation pass runs. Mid-edit trees are transiently inconsistent (a
// block may have no children for a moment during a drag), so validating on
// every keystroke would thrash.
const DefaultDebounce = 300 * time.Millisecond

// Scheduler debounces validation passes. Each Touch resets the timer; the
// callback runs once after a quiet period. Touches made by the callback's
// own edits are dropped while it is running, so a cleanup pass cannot
// re-trigger itself.
type Scheduler struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	running atomic.Bool
}

// NewScheduler creates a scheduler that invokes fn after delay of quiet.
// A non-positive delay falls back to DefaultDebounce.
func NewScheduler(delay time.Duration, fn func()) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Scheduler{delay: delay, fn: fn}
}

// Touch records an edit: it cancels any pending timer and schedules a new
// validation pass. Calls made while the callback is running are ignored.
func (s *Scheduler) Touch() {
	if s.running.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *Scheduler) fire() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)
	s.fn()
}

// Flush runs any pending pass immediately. Used on shutdown and in tests.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	pending := s.timer != nil && s.timer.Stop()
	s.mu.Unlock()
	if pending {
		s.fire()
	}
}

// Stop cancels any pending pass. The scheduler cannot be reused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

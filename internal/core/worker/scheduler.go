// Package worker runs deferred transaction work, currently the withdrawal
// completion delay. Timers are keyed by transaction id so a pending
// completion can be cancelled, and Stop drains everything on shutdown.
package worker

import (
	"log/slog"
	"sync"
	"time"
)

type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer)}
}

// Arm schedules fn to run after delay, keyed by txID. Arming the same id
// twice resets the delay. fn runs on the timer goroutine; whatever state it
// touches must go through the store's atomic transition path.
func (s *Scheduler) Arm(txID string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		slog.Warn("scheduler stopped, dropping deferred job", "transaction_id", txID)
		return
	}

	if old, ok := s.timers[txID]; ok {
		if old.Stop() {
			s.wg.Done()
		}
	}

	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		// A timer that fired while being replaced or cancelled must not run
		// fn or delete the entry of the generation that superseded it.
		if cur, ok := s.timers[txID]; !ok || cur != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, txID)
		s.mu.Unlock()

		fn()
	})
	s.timers[txID] = t
}

// Cancel disarms a pending job. Reports whether a timer was still pending.
func (s *Scheduler) Cancel(txID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[txID]
	if !ok {
		return false
	}
	delete(s.timers, txID)
	if t.Stop() {
		s.wg.Done()
		return true
	}
	return false
}

// Stop disarms every pending timer and prevents new ones. Jobs already
// running are allowed to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

package menu

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Host tick timing: 20 ticks per second, the Dragonfly server rate.
const (
	tickRate = 50 * time.Millisecond

	// broadcastFlushTicks is the debounce window for shared-session
	// broadcasts.
	broadcastFlushTicks = 2

	// persistFlushTicks batches queued state saves.
	persistFlushTicks = 4
)

// scheduler drives the engine's stateful timers: shared-broadcast debounce
// flushes, drag expirations, title refreshes and auto-saves. Everything runs
// on fixed-interval ticks; nothing blocks.
type scheduler struct {
	manager *Manager

	deadlines *deadlineQueue

	running    atomic.Bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	tickNumber atomic.Uint64
}

func newScheduler(m *Manager) *scheduler {
	return &scheduler{
		manager:   m,
		deadlines: newDeadlineQueue(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the tick loop.
func (s *scheduler) Start() {
	if s.running.Swap(true) {
		return // Already running
	}
	go s.tickLoop()
}

// Stop gracefully shuts the loop down and flushes pending work.
func (s *scheduler) Stop() {
	if !s.running.Swap(false) {
		return // Not running
	}
	close(s.stopCh)
	<-s.doneCh
}

func (s *scheduler) tickLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			// Final flushes so shutdown loses nothing pending.
			s.manager.shared.flushAll()
			s.manager.persist.flush(true)
			return

		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

// tick executes one scheduler tick.
func (s *scheduler) tick(now time.Time) {
	n := s.tickNumber.Add(1)

	for _, d := range s.deadlines.PopDue(now) {
		s.run(d.fn)
	}

	if n%broadcastFlushTicks == 0 {
		s.manager.shared.flushAll()
	}
	if n%persistFlushTicks == 0 {
		s.manager.persist.flush(false)
	}
}

// Schedule queues fn to run on the first tick at or after t.
func (s *scheduler) Schedule(t time.Time, fn func()) *deadline {
	return s.deadlines.Schedule(t, fn)
}

// run executes scheduled work with panic isolation; one broken callback must
// not take the tick loop down.
func (s *scheduler) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("menu: panic in scheduled work: %v", r)
			slog.Error(err.Error(), "stack", string(debug.Stack()))
		}
	}()
	fn()
}

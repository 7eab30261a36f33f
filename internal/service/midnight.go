package service

import (
	"log/slog"
	"sync"
	"time"

	"streak-keeper/internal/streak"
)

// stopper is the part of *time.Timer the watcher needs.
type stopper interface {
	Stop() bool
}

// MidnightWatcher runs check at every local midnight. It holds exactly one
// one-shot timer: each firing arms the next one, and Rearm replaces the
// pending timer instead of adding a second.
type MidnightWatcher struct {
	check func()
	now   func() time.Time
	after func(time.Duration, func()) stopper
	log   *slog.Logger

	mu      sync.Mutex
	timer   stopper
	gen     uint64
	running bool
}

func NewMidnightWatcher(check func(), log *slog.Logger) *MidnightWatcher {
	if log == nil {
		log = slog.Default()
	}
	return &MidnightWatcher{
		check: check,
		now:   time.Now,
		after: func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) },
		log:   log,
	}
}

// Start arms the timer for the next midnight.
func (w *MidnightWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = true
	w.arm()
}

// Rearm invalidates the pending timer and arms a fresh one.
func (w *MidnightWatcher) Rearm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.arm()
}

// Stop cancels the pending timer.
func (w *MidnightWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = false
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// arm requires w.mu.
func (w *MidnightWatcher) arm() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen

	now := w.now()
	next := streak.NextMidnight(now)
	w.timer = w.after(next.Sub(now), func() { w.fire(gen) })
	w.log.Debug("midnight check armed", "at", next)
}

func (w *MidnightWatcher) fire(gen uint64) {
	w.mu.Lock()
	if !w.running || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.check()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running && gen == w.gen {
		w.arm()
	}
}

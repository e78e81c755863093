package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/clock"
)

// Loop drives an Engine on a fixed interval in its own goroutine
// Pause-aware: while the clock is paused no ticks run and the sleep is stretched
type Loop struct {
	engine   *Engine
	clock    *clock.Pausable
	interval time.Duration
	logger   *zap.Logger

	mu           sync.Mutex
	lastTick     time.Time
	nextDeadline time.Time

	tickCount atomic.Uint64
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	running   atomic.Bool

	updateDone chan struct{}
}

// NewLoop creates a loop; the returned channel receives after every tick, non-blocking
func NewLoop(e *Engine, pc *clock.Pausable, interval time.Duration, logger *zap.Logger) (*Loop, <-chan struct{}) {
	if logger == nil {
		logger = zap.NewNop()
	}
	updateDone := make(chan struct{}, 1)
	return &Loop{
		engine:     e,
		clock:      pc,
		interval:   interval,
		logger:     logger.With(zap.String("module", "loop")),
		stopChan:   make(chan struct{}),
		updateDone: updateDone,
	}, updateDone
}

// Start begins ticking
func (l *Loop) Start() {
	if l.running.CompareAndSwap(false, true) {
		l.wg.Add(1)
		go l.run()
	}
}

// Stop halts the loop and waits for the current tick to finish
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		if l.running.CompareAndSwap(true, false) {
			close(l.stopChan)
			l.wg.Wait()
		}
	})
}

// Pause freezes game time
func (l *Loop) Pause() { l.clock.Pause() }

// Resume restarts game time and schedules the next tick one interval out
func (l *Loop) Resume() {
	l.clock.Resume()
	now := l.clock.Now()
	l.mu.Lock()
	l.lastTick = now
	l.nextDeadline = now.Add(l.interval)
	l.mu.Unlock()
}

// Ticks returns the number of ticks run
func (l *Loop) Ticks() uint64 {
	return l.tickCount.Load()
}

func (l *Loop) run() {
	defer l.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("tick loop panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	l.mu.Lock()
	l.lastTick = l.clock.Now()
	l.nextDeadline = l.lastTick.Add(l.interval)
	l.mu.Unlock()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		var sleep time.Duration
		if l.clock.IsPaused() {
			sleep = l.interval * 2
		} else {
			now := l.clock.Now()

			l.mu.Lock()
			deadline := l.nextDeadline
			dt := now.Sub(l.lastTick)
			l.mu.Unlock()

			if !now.Before(deadline) {
				l.engine.Tick(dt)

				l.mu.Lock()
				l.lastTick = now
				l.nextDeadline = l.nextDeadline.Add(l.interval)
				// Resync after a long stall instead of bursting to catch up
				if now.Sub(l.nextDeadline) > l.interval*2 {
					l.nextDeadline = now.Add(l.interval)
				}
				deadline = l.nextDeadline
				l.mu.Unlock()

				l.tickCount.Add(1)
				select {
				case l.updateDone <- struct{}{}:
				default:
				}
				sleep = max(deadline.Sub(l.clock.Now()), 0)
			} else {
				sleep = deadline.Sub(now)
			}
		}

		if sleep > 0 {
			timer.Reset(sleep)
			select {
			case <-timer.C:
			case <-l.stopChan:
				return
			}
		}
	}
}

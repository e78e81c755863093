package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pausable derives simulation time from a source clock, excluding paused spans
// Cooldowns and idle timers measured against it do not expire while paused
type Pausable struct {
	mu sync.RWMutex

	source    Clock
	realStart time.Time

	isPaused        atomic.Bool
	pauseStart      time.Time
	totalPausedTime time.Duration
}

// NewPausable creates a pausable clock over source (Real when nil)
func NewPausable(source Clock) *Pausable {
	source = OrReal(source)
	return &Pausable{
		source:    source,
		realStart: source.Now(),
	}
}

// Now returns simulation time, frozen at the pause point while paused
func (pc *Pausable) Now() time.Time {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.isPaused.Load() {
		return pc.realStart.Add(pc.pauseStart.Sub(pc.realStart) - pc.totalPausedTime)
	}
	elapsed := pc.source.Now().Sub(pc.realStart) - pc.totalPausedTime
	return pc.realStart.Add(elapsed)
}

// RealTime returns the source time, unaffected by pause
func (pc *Pausable) RealTime() time.Time {
	return pc.source.Now()
}

// Pause stops simulation time advancement
func (pc *Pausable) Pause() {
	if pc.isPaused.CompareAndSwap(false, true) {
		pc.mu.Lock()
		pc.pauseStart = pc.source.Now()
		pc.mu.Unlock()
	}
}

// Resume continues simulation time advancement
func (pc *Pausable) Resume() {
	if pc.isPaused.CompareAndSwap(true, false) {
		pc.mu.Lock()
		defer pc.mu.Unlock()
		if !pc.pauseStart.IsZero() {
			pc.totalPausedTime += pc.source.Now().Sub(pc.pauseStart)
			pc.pauseStart = time.Time{}
		}
	}
}

// IsPaused returns current pause state
func (pc *Pausable) IsPaused() bool {
	return pc.isPaused.Load()
}

// TotalPauseDuration returns cumulative pause time, including a pause in progress
func (pc *Pausable) TotalPauseDuration() time.Duration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	total := pc.totalPausedTime
	if pc.isPaused.Load() && !pc.pauseStart.IsZero() {
		total += pc.source.Now().Sub(pc.pauseStart)
	}
	return total
}

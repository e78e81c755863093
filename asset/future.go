// Package asset loads assets through futures resolved on later ticks and
// registers them with the memory budget
package asset

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/perfgov/budget"
)

var (
	ErrLoadTimeout = errors.New("asset load timed out")
	ErrCancelled   = errors.New("asset load cancelled")
	ErrNotFound    = errors.New("asset not found")
)

// Asset is a loaded payload with its estimated footprint
type Asset struct {
	Key         string
	Category    budget.Category
	Size        int64
	Data        []byte
	Placeholder bool
}

// Request describes one load
type Request struct {
	Key        string
	Category   budget.Category
	Priority   int
	Persistent bool
}

// State of a Future
type State int

const (
	StatePending State = iota
	StateResolved
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// Future is the pending result of an async load
// Providers may complete it from any goroutine; callbacks only run when the
// loader observes completion on the tick thread
// The first completion wins, later ones are ignored
type Future struct {
	ID      string
	Request Request
	Started time.Time

	mu    sync.Mutex
	state State
	asset Asset
	err   error
}

func newFuture(req Request, now time.Time) *Future {
	return &Future{
		ID:      uuid.NewString(),
		Request: req,
		Started: now,
	}
}

// Resolve completes the future with a
func (f *Future) Resolve(a Asset) bool {
	return f.complete(StateResolved, a, nil)
}

// Fail completes the future with err
func (f *Future) Fail(err error) bool {
	if err == nil {
		err = errors.New("unspecified load failure")
	}
	return f.complete(StateFailed, Asset{}, err)
}

// Cancel drops the future; its callback never runs
func (f *Future) Cancel() bool {
	return f.complete(StateCancelled, Asset{}, ErrCancelled)
}

// State returns the current state
func (f *Future) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done reports whether the future left the pending state
func (f *Future) Done() bool {
	return f.State() != StatePending
}

// Result returns the outcome; meaningful once Done
func (f *Future) Result() (Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.asset, f.err
}

func (f *Future) complete(s State, a Asset, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StatePending {
		return false
	}
	f.state = s
	f.asset = a
	f.err = err
	return true
}

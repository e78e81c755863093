package event

import (
	"sync/atomic"

	"github.com/lixenwraith/perfgov/parameter"
)

// Queue buffers governor notifications between the components that raise them
// and the bus drain at the end of each tick
// Components on the tick thread and provider goroutines may Push concurrently;
// only the engine consumes. A slot becomes visible once its ready flag is set
// When the ring is full the oldest undelivered notification is lost and
// counted in Dropped
type Queue struct {
	slots   [parameter.EventQueueSize]Event
	ready   [parameter.EventQueueSize]atomic.Bool
	read    atomic.Uint64
	write   atomic.Uint64
	frame   atomic.Int64
	dropped atomic.Uint64
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// SetFrame sets the tick number stamped on notifications pushed without one
func (q *Queue) SetFrame(frame int64) {
	q.frame.Store(frame)
}

// Push stamps ev with the current tick and claims the next slot
func (q *Queue) Push(ev Event) {
	if ev.Frame == 0 {
		ev.Frame = q.frame.Load()
	}
	pos := q.claim()
	idx := pos & parameter.EventBufferMask
	q.slots[idx] = ev
	q.ready[idx].Store(true)
	q.overwrite(pos + 1)
}

// claim reserves a write position
func (q *Queue) claim() uint64 {
	for {
		pos := q.write.Load()
		if q.write.CompareAndSwap(pos, pos+1) {
			return pos
		}
	}
}

// overwrite moves the read position past notifications the writer lapped
func (q *Queue) overwrite(end uint64) {
	start := q.read.Load()
	if end-start <= parameter.EventQueueSize {
		return
	}
	if q.read.CompareAndSwap(start, end-parameter.EventQueueSize) {
		q.dropped.Add(1)
	}
}

// Consume takes every ready notification in push order
// Stops at the first slot whose writer has not finished
func (q *Queue) Consume() []Event {
	for {
		start := q.read.Load()
		end := q.write.Load()
		if end == start {
			return nil
		}
		if end-start > parameter.EventQueueSize {
			start = end - parameter.EventQueueSize
		}

		out := make([]Event, 0, end-start)
		for pos := start; pos < end; pos++ {
			idx := pos & parameter.EventBufferMask
			if !q.ready[idx].Load() {
				break
			}
			out = append(out, q.slots[idx])
			q.ready[idx].Store(false)
		}

		if q.read.CompareAndSwap(start, start+uint64(len(out))) {
			if len(out) == 0 {
				return nil
			}
			return out
		}
	}
}

// Len is the approximate number of undelivered notifications
func (q *Queue) Len() int {
	start, end := q.read.Load(), q.write.Load()
	if end <= start {
		return 0
	}
	return int(min(end-start, parameter.EventQueueSize))
}

// Dropped counts notifications overwritten before the engine drained them
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

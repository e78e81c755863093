package clock

import (
	"container/heap"
	"time"
)

// TimerID identifies a scheduled callback
type TimerID uint64

type timer struct {
	id       TimerID
	deadline time.Time
	seq      uint64
	fn       func()
	index    int
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler runs deferred callbacks on the tick thread
// Nothing fires on its own: Advance is called once per tick and runs every
// timer whose deadline has passed, in deadline order
// Not safe for concurrent use
type Scheduler struct {
	clock  Clock
	timers timerHeap
	byID   map[TimerID]*timer
	nextID TimerID
	seq    uint64
}

// NewScheduler creates a scheduler reading deadlines from c
func NewScheduler(c Clock) *Scheduler {
	return &Scheduler{
		clock: OrReal(c),
		byID:  make(map[TimerID]*timer),
	}
}

// After schedules fn to run on the first Advance at or after now+d
func (s *Scheduler) After(d time.Duration, fn func()) TimerID {
	s.nextID++
	s.seq++
	t := &timer{
		id:       s.nextID,
		deadline: s.clock.Now().Add(d),
		seq:      s.seq,
		fn:       fn,
	}
	heap.Push(&s.timers, t)
	s.byID[t.id] = t
	return t.id
}

// Cancel drops a pending timer, returns false if it already fired or never existed
func (s *Scheduler) Cancel(id TimerID) bool {
	t, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.timers, t.index)
	delete(s.byID, id)
	return true
}

// Advance fires all due timers and returns how many ran
// Timers scheduled by a callback with zero delay run on the next Advance
func (s *Scheduler) Advance() int {
	now := s.clock.Now()
	due := make([]*timer, 0, 4)
	for s.timers.Len() > 0 && !s.timers[0].deadline.After(now) {
		t := heap.Pop(&s.timers).(*timer)
		delete(s.byID, t.id)
		due = append(due, t)
	}
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// Pending returns the number of scheduled timers
func (s *Scheduler) Pending() int {
	return s.timers.Len()
}

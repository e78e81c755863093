package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/status"
)

type recordingSystem struct {
	name     string
	priority int
	log      *[]string
	onUpdate func()
}

func (s *recordingSystem) Name() string  { return s.name }
func (s *recordingSystem) Priority() int { return s.priority }
func (s *recordingSystem) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

func TestEngine_RunsSystemsByPriority(t *testing.T) {
	var log []string
	e := New(nil, nil, nil, nil, nil)
	e.AddSystem(&recordingSystem{name: "memory", priority: 40, log: &log})
	e.AddSystem(&recordingSystem{name: "frame", priority: 10, log: &log})
	e.AddSystem(&recordingSystem{name: "lod", priority: 30, log: &log})
	e.AddSystem(&recordingSystem{name: "quality", priority: 20, log: &log})
	e.AddSystem(&recordingSystem{name: "quality2", priority: 20, log: &log})

	e.Tick(16 * time.Millisecond)
	assert.Equal(t, []string{"frame", "quality", "quality2", "lod", "memory"}, log)
	assert.Equal(t, int64(1), e.Frame())
	assert.Len(t, e.Systems(), 5)
}

func TestEngine_TickOrder(t *testing.T) {
	clk := clock.NewMock(time.Unix(0, 0))
	sched := clock.NewScheduler(clk)
	q := event.NewQueue()
	bus := event.NewBus()
	reg := status.NewRegistry()
	e := New(sched, q, bus, reg, nil)

	var log []string
	sched.After(0, func() { log = append(log, "timer") })
	e.AddSystem(&recordingSystem{name: "system", priority: 10, log: &log, onUpdate: func() {
		q.Push(event.Event{Type: event.EventTierChanged})
	}})

	var frames []int64
	_, err := bus.Subscribe(event.EventTierChanged, func(ev event.Event) {
		log = append(log, "event")
		frames = append(frames, ev.Frame)
	})
	require.NoError(t, err)

	e.Tick(time.Millisecond)
	e.Tick(time.Millisecond)

	assert.Equal(t, []string{"timer", "system", "event", "system", "event"}, log)
	assert.Equal(t, []int64{1, 2}, frames)
	assert.Equal(t, int64(2), reg.Ints.Get("engine.ticks").Load())
	assert.Equal(t, int64(2), reg.Ints.Get("engine.events_total").Load())
}

func TestEngine_DoIsSerializedWithTicks(t *testing.T) {
	e := New(nil, nil, nil, nil, nil)
	ran := false
	e.Do(func() { ran = true })
	assert.True(t, ran)
}

func TestLoop_TicksUntilStopped(t *testing.T) {
	var log []string
	e := New(nil, nil, nil, nil, nil)
	e.AddSystem(&recordingSystem{name: "s", priority: 1, log: &log})

	pc := clock.NewPausable(clock.Real{})
	loop, done := NewLoop(e, pc, time.Millisecond, nil)
	loop.Start()

	for range 3 {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not tick")
		}
	}
	loop.Stop()
	loop.Stop()

	ticks := loop.Ticks()
	assert.GreaterOrEqual(t, ticks, uint64(3))
	assert.Equal(t, int64(ticks), e.Frame())
}

func TestLoop_PauseStopsTicks(t *testing.T) {
	e := New(nil, nil, nil, nil, nil)
	pc := clock.NewPausable(clock.Real{})
	loop, done := NewLoop(e, pc, time.Millisecond, nil)

	loop.Pause()
	loop.Start()
	defer loop.Stop()

	select {
	case <-done:
		t.Fatal("ticked while paused")
	case <-time.After(30 * time.Millisecond):
	}

	loop.Resume()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not resume")
	}
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMock_SetAndAdvance(t *testing.T) {
	m := NewMock(epoch)
	assert.True(t, m.Now().Equal(epoch))

	m.Advance(time.Hour)
	m.Advance(30 * time.Minute)
	assert.Equal(t, 90*time.Minute, m.Now().Sub(epoch))

	later := epoch.Add(24 * time.Hour)
	m.Set(later)
	assert.True(t, m.Now().Equal(later))
}

func TestOrReal(t *testing.T) {
	assert.IsType(t, Real{}, OrReal(nil))
	m := NewMock(epoch)
	assert.Same(t, m, OrReal(m))
}

func TestPausable_ExcludesPausedSpan(t *testing.T) {
	src := NewMock(epoch)
	pc := NewPausable(src)

	src.Advance(2 * time.Second)
	assert.Equal(t, 2*time.Second, pc.Now().Sub(epoch))

	pc.Pause()
	assert.True(t, pc.IsPaused())
	src.Advance(5 * time.Second)
	assert.Equal(t, 2*time.Second, pc.Now().Sub(epoch), "time frozen while paused")
	assert.Equal(t, 5*time.Second, pc.TotalPauseDuration())

	pc.Resume()
	src.Advance(time.Second)
	assert.Equal(t, 3*time.Second, pc.Now().Sub(epoch))
	assert.Equal(t, 5*time.Second, pc.TotalPauseDuration())
	assert.True(t, pc.RealTime().Equal(epoch.Add(8*time.Second)))
}

func TestPausable_DoublePauseResume(t *testing.T) {
	src := NewMock(epoch)
	pc := NewPausable(src)

	pc.Pause()
	src.Advance(time.Second)
	pc.Pause()
	src.Advance(time.Second)
	pc.Resume()
	pc.Resume()

	assert.Equal(t, 2*time.Second, pc.TotalPauseDuration())
	assert.True(t, pc.Now().Equal(epoch))
}

func TestScheduler_FiresInDeadlineOrder(t *testing.T) {
	m := NewMock(epoch)
	s := NewScheduler(m)

	var order []string
	s.After(200*time.Millisecond, func() { order = append(order, "b") })
	s.After(100*time.Millisecond, func() { order = append(order, "a") })
	s.After(200*time.Millisecond, func() { order = append(order, "c") })
	require.Equal(t, 3, s.Pending())

	assert.Equal(t, 0, s.Advance())

	m.Advance(150 * time.Millisecond)
	assert.Equal(t, 1, s.Advance())
	assert.Equal(t, []string{"a"}, order)

	m.Advance(50 * time.Millisecond)
	assert.Equal(t, 2, s.Advance())
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Zero(t, s.Pending())
}

func TestScheduler_Cancel(t *testing.T) {
	m := NewMock(epoch)
	s := NewScheduler(m)

	fired := false
	id := s.After(time.Second, func() { fired = true })
	assert.True(t, s.Cancel(id))
	assert.False(t, s.Cancel(id))

	m.Advance(2 * time.Second)
	s.Advance()
	assert.False(t, fired)
}

func TestScheduler_RescheduleFromCallback(t *testing.T) {
	m := NewMock(epoch)
	s := NewScheduler(m)

	count := 0
	var tick func()
	tick = func() {
		count++
		s.After(0, tick)
	}
	s.After(0, tick)

	s.Advance()
	assert.Equal(t, 1, count, "rescheduled timer waits for next advance")
	s.Advance()
	assert.Equal(t, 2, count)
}

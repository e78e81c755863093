package sampler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/perfgov/parameter"
)

func fps(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / rate)
}

func TestSampler_EmptySnapshot(t *testing.T) {
	s := New(0)
	assert.Equal(t, parameter.FrameSampleWindow, s.Cap())
	assert.Equal(t, Snapshot{}, s.Snapshot())
	assert.Zero(t, s.AverageFPS())
}

func TestSampler_AverageMinMax(t *testing.T) {
	s := New(4)
	s.Record(fps(50))  // 20ms
	s.Record(fps(100)) // 10ms
	s.Record(fps(25))  // 40ms

	snap := s.Snapshot()
	require.Equal(t, 3, snap.Samples)
	assert.InDelta(t, 1/(0.070/3), snap.AverageFPS, 1e-6)
	assert.InDelta(t, 25, snap.MinFPS, 1e-6)
	assert.InDelta(t, 100, snap.MaxFPS, 1e-6)
	assert.InDelta(t, 25, snap.InstantFPS, 1e-6)
	assert.InDelta(t, snap.AverageFPS, s.AverageFPS(), 1e-6)
}

func TestSampler_RingOverwritesOldest(t *testing.T) {
	s := New(3)
	s.Record(fps(10)) // evicted below
	s.Record(fps(60))
	s.Record(fps(60))
	s.Record(fps(60))

	snap := s.Snapshot()
	assert.Equal(t, 3, snap.Samples)
	assert.InDelta(t, 60, snap.AverageFPS, 1e-6)
	assert.InDelta(t, 60, snap.MinFPS, 1e-6)
}

func TestSampler_ClampsNonPositiveDelta(t *testing.T) {
	s := New(2)
	s.Record(0)
	s.Record(-time.Second)

	snap := s.Snapshot()
	assert.InDelta(t, 1/parameter.MinFrameDelta, snap.InstantFPS, 1e-6)
	assert.InDelta(t, 1/parameter.MinFrameDelta, snap.AverageFPS, 1e-6)
}

func TestSampler_Reset(t *testing.T) {
	s := New(5)
	s.Record(fps(30))
	s.Reset()
	assert.Zero(t, s.Len())
	assert.Equal(t, Snapshot{}, s.Snapshot())
}

func TestFrameBudget(t *testing.T) {
	assert.Equal(t, 16666666*time.Nanosecond, FrameBudget(60))
	assert.Zero(t, FrameBudget(0))
}

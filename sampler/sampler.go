// Package sampler keeps a rolling window of frame durations
package sampler

import (
	"math"
	"time"

	"github.com/lixenwraith/perfgov/parameter"
)

// Snapshot summarizes the current window
// Rates are frames per second; zero values mean no samples yet
type Snapshot struct {
	AverageFPS float64 `json:"average"`
	MinFPS     float64 `json:"min"`
	MaxFPS     float64 `json:"max"`
	InstantFPS float64 `json:"instant"`

	// AverageFrameTime is the mean sample duration in seconds
	AverageFrameTime float64 `json:"average_frame_time"`

	Samples int `json:"samples"`
}

// FrameBudget returns the per-frame duration implied by a target rate
func FrameBudget(targetFPS float64) time.Duration {
	if targetFPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / targetFPS)
}

// Sampler is a fixed-capacity ring buffer of frame durations in seconds
// Record is O(1); the oldest sample is overwritten once full
// Not safe for concurrent use, driven from the tick thread
type Sampler struct {
	samples []float64
	head    int // next write index
	count   int
	sum     float64
	latest  float64
}

// New creates a sampler holding capacity samples (parameter.FrameSampleWindow when <= 0)
func New(capacity int) *Sampler {
	if capacity <= 0 {
		capacity = parameter.FrameSampleWindow
	}
	return &Sampler{samples: make([]float64, capacity)}
}

// Record appends one frame duration
// Zero or negative durations are clamped to parameter.MinFrameDelta
func (s *Sampler) Record(dt time.Duration) {
	s.RecordSeconds(dt.Seconds())
}

// RecordSeconds appends one frame duration expressed in seconds
func (s *Sampler) RecordSeconds(sec float64) {
	if !(sec >= parameter.MinFrameDelta) { // also catches NaN
		sec = parameter.MinFrameDelta
	}
	if math.IsInf(sec, 1) {
		sec = math.MaxFloat64 / float64(len(s.samples)+1)
	}

	if s.count == len(s.samples) {
		s.sum -= s.samples[s.head]
	} else {
		s.count++
	}
	s.samples[s.head] = sec
	s.sum += sec
	s.head = (s.head + 1) % len(s.samples)
	s.latest = sec
}

// Snapshot returns average/min/max rate over the window and the latest instantaneous rate
func (s *Sampler) Snapshot() Snapshot {
	if s.count == 0 {
		return Snapshot{}
	}

	minDt, maxDt := math.MaxFloat64, 0.0
	var sum float64
	for i := 0; i < s.count; i++ {
		v := s.samples[i]
		sum += v
		if v < minDt {
			minDt = v
		}
		if v > maxDt {
			maxDt = v
		}
	}
	// Resync the running sum to stop float drift accumulating across overwrites
	s.sum = sum

	avg := sum / float64(s.count)
	return Snapshot{
		AverageFPS:       1 / avg,
		MinFPS:           1 / maxDt,
		MaxFPS:           1 / minDt,
		InstantFPS:       1 / s.latest,
		AverageFrameTime: avg,
		Samples:          s.count,
	}
}

// AverageFPS is the O(1) running average rate
func (s *Sampler) AverageFPS() float64 {
	if s.count == 0 || s.sum <= 0 {
		return 0
	}
	return float64(s.count) / s.sum
}

// Len returns the number of samples held
func (s *Sampler) Len() int {
	return s.count
}

// Cap returns the window capacity
func (s *Sampler) Cap() int {
	return len(s.samples)
}

// Reset drops all samples and the latest delta
func (s *Sampler) Reset() {
	for i := range s.samples {
		s.samples[i] = 0
	}
	s.head, s.count, s.sum, s.latest = 0, 0, 0, 0
}

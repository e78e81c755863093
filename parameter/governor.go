package parameter

import "time"

// Frame Sampling
const (
	// FrameSampleWindow is the ring buffer capacity (~1s at 60Hz)
	FrameSampleWindow = 60

	// MinFrameDelta is the smallest accepted frame duration in seconds
	// Zero or negative deltas are clamped to it
	MinFrameDelta = 1e-4
)

// Quality Governor
const (
	// TargetFrameRate is the default frame rate the governor steers toward
	TargetFrameRate = 60.0

	// DowngradeRatio is the achieved/target ratio below which a frame counts as low
	DowngradeRatio = 0.7

	// UpgradeRatio is the achieved/target ratio above which a frame counts as high
	UpgradeRatio = 0.9

	// CriticalRatio skips the render-scale stage and drops a tier directly
	CriticalRatio = 0.5

	// ConsecutiveLowEvaluations is the sustained low count required to downgrade
	ConsecutiveLowEvaluations = 3

	// ConsecutiveHighEvaluations is the sustained high count required to upgrade
	ConsecutiveHighEvaluations = 5

	// QualityCooldown is the minimum spacing between two adjustments
	QualityCooldown = 3 * time.Second

	// QualityEvaluationInterval is how often the governor consumes a sampler snapshot
	QualityEvaluationInterval = 500 * time.Millisecond

	// RenderScaleStep is the fixed continuous-scale adjustment
	RenderScaleStep = 0.1
)

// System priorities, lower runs first within a tick
const (
	PriorityFrame   = 10
	PriorityAsset   = 15
	PriorityQuality = 20
	PriorityLOD     = 30
	PriorityMemory  = 40
	PriorityPool    = 50
)

// Tick loop
const (
	// TickInterval is the default fixed tick of the engine loop (~60Hz)
	TickInterval = 16 * time.Millisecond

	// EventQueueSize is the fixed capacity of the notification ring buffer
	EventQueueSize = 1024

	// EventBufferMask is the bitmask for fast modulo operations (1024 - 1)
	EventBufferMask = EventQueueSize - 1
)

package parameter

import "time"

// Object Pool
const (
	// PoolCleanupInterval is the cadence of idle-slot cleanup, off the hot path
	PoolCleanupInterval = 30 * time.Second

	// PoolMaxIdle is how long a free slot may idle before it is destroyed
	PoolMaxIdle = 60 * time.Second

	// PoolDefaultMaxSize bounds pools that do not configure a size
	PoolDefaultMaxSize = 256
)

// Warning throttle for misuse logged from tick paths
const WarnThrottleInterval = 5 * time.Second

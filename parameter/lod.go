package parameter

import "time"

// Level of Detail
const (
	// LODUpdateInterval bounds how often tracked objects are re-banded
	LODUpdateInterval = 100 * time.Millisecond

	// MaxLODBands is the largest accepted threshold count
	MaxLODBands = 4
)

// DefaultLODBands are the tier0→1, tier1→2 and tier2→cull distances in meters
var DefaultLODBands = []float64{15, 35, 75}

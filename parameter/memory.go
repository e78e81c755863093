package parameter

import "time"

// Memory Budget
const (
	// WarningRatio marks memory pressure
	WarningRatio = 0.8

	// CriticalMemoryRatio triggers eviction down to the warning line without a cap
	CriticalMemoryRatio = 0.9

	// EmergencyRatio triggers a full sweep of non-persistent assets
	EmergencyRatio = 0.95

	// MaxEvictionsPerCycle caps evictions under plain pressure
	MaxEvictionsPerCycle = 10

	// MemoryCheckInterval is how often budgets are classified
	MemoryCheckInterval = 500 * time.Millisecond

	// MinCategoryBudget is the floor applied to configured budgets
	MinCategoryBudget = 1 << 20

	// DefaultTotalBudgetMB is used when physical memory cannot be detected
	DefaultTotalBudgetMB = 1024

	// MaxDetectedBudgetMB caps a budget derived from physical memory
	MaxDetectedBudgetMB = 8192
)

// Default category splits of the total budget, heuristic
const (
	TextureBudgetSplit = 0.6
	MeshBudgetSplit    = 0.2
	AudioBudgetSplit   = 0.1
	OtherBudgetSplit   = 0.1
)

// Size estimation constants
const (
	// MipChainFactor approximates a full mip chain (1 + 1/4 + 1/16 + ...)
	MipChainFactor = 4.0 / 3.0

	// BytesPerVertex assumes position, normal, uv and tangent
	BytesPerVertex = 48

	// BytesPerIndex assumes 32-bit indices
	BytesPerIndex = 4
)

// Package platform classifies the host into a device class that selects
// LOD multipliers, the initial quality tier and the default memory budget
package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pbnjay/memory"

	"github.com/lixenwraith/perfgov/parameter"
	"github.com/lixenwraith/perfgov/quality"
)

// Class is a coarse device capability bucket
type Class int

const (
	ClassLow Class = iota
	ClassMid
	ClassHigh
)

func (c Class) String() string {
	switch c {
	case ClassLow:
		return "low"
	case ClassHigh:
		return "high"
	default:
		return "mid"
	}
}

// ParseClass accepts low, mid or high; auto and empty return ok=false
func ParseClass(s string) (Class, bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ClassMid, false, nil
	case "low":
		return ClassLow, true, nil
	case "mid", "medium":
		return ClassMid, true, nil
	case "high":
		return ClassHigh, true, nil
	}
	return ClassMid, false, fmt.Errorf("unknown device class %q", s)
}

// Profile holds per-class tuning
type Profile struct {
	LODMultiplier  float64
	BudgetFraction float64
	InitialTier    quality.Tier
}

var profiles = [...]Profile{
	ClassLow:  {LODMultiplier: 0.75, BudgetFraction: 0.25, InitialTier: quality.TierLow},
	ClassMid:  {LODMultiplier: 1.0, BudgetFraction: 0.33, InitialTier: quality.TierMedium},
	ClassHigh: {LODMultiplier: 1.25, BudgetFraction: 0.5, InitialTier: quality.TierHigh},
}

// Info describes the host
type Info struct {
	Class       Class
	TotalMemory uint64
	CPUs        int
	OS          string
	Arch        string
}

// Detect inspects the running host
func Detect() Info {
	return Classify(memory.TotalMemory(), runtime.NumCPU())
}

// Classify builds Info from raw capabilities; unknown memory (0) is treated as mid
func Classify(totalMemory uint64, cpus int) Info {
	const gb = 1 << 30
	info := Info{
		TotalMemory: totalMemory,
		CPUs:        cpus,
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
	}
	switch {
	case totalMemory == 0:
		info.Class = ClassMid
	case totalMemory < 4*gb || cpus <= 2:
		info.Class = ClassLow
	case totalMemory >= 16*gb && cpus >= 8:
		info.Class = ClassHigh
	default:
		info.Class = ClassMid
	}
	return info
}

// WithClass returns a copy forced to c
func (i Info) WithClass(c Class) Info {
	i.Class = c
	return i
}

// Profile returns the tuning for the detected class
func (i Info) Profile() Profile {
	if i.Class < ClassLow || i.Class > ClassHigh {
		return profiles[ClassMid]
	}
	return profiles[i.Class]
}

// DefaultBudget is the total asset budget in bytes for this host
// A class fraction of physical memory, capped; a fixed default when memory is unknown
func (i Info) DefaultBudget() int64 {
	if i.TotalMemory == 0 {
		return parameter.DefaultTotalBudgetMB << 20
	}
	b := int64(float64(i.TotalMemory) * i.Profile().BudgetFraction)
	return min(b, int64(parameter.MaxDetectedBudgetMB)<<20)
}

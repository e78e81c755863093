package event

import (
	"fmt"
	"strings"
)

var typeNames = [eventTypeCount]string{
	EventNone:               "none",
	EventTierChanged:        "tier_changed",
	EventRenderScaleChanged: "render_scale_changed",
	EventLODChanged:         "lod_changed",
	EventLODPruned:          "lod_pruned",
	EventMemoryPressure:     "memory_pressure",
	EventMemoryCritical:     "memory_critical",
	EventMemoryEmergency:    "memory_emergency",
	EventMemoryRelieved:     "memory_relieved",
	EventAssetEvicted:       "asset_evicted",
	EventReclaimRequested:   "reclaim_requested",
	EventAssetLoaded:        "asset_loaded",
	EventAssetLoadFailed:    "asset_load_failed",
	EventPoolRecycled:       "pool_recycled",
}

// String returns the snake_case name used as bus topic and in logs
func (t Type) String() string {
	if t < 0 || t >= eventTypeCount {
		return fmt.Sprintf("event(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType resolves a name produced by String, case-insensitive
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range typeNames {
		if n == name && Type(i) != EventNone {
			return Type(i), true
		}
	}
	return EventNone, false
}

// AllTypes returns every emittable type in declaration order
func AllTypes() []Type {
	types := make([]Type, 0, eventTypeCount-1)
	for t := EventNone + 1; t < eventTypeCount; t++ {
		types = append(types, t)
	}
	return types
}

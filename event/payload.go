package event

import "time"

// Event is a single notification, stamped with the tick it was raised on
type Event struct {
	Type    Type
	Payload any
	Frame   int64
}

// Emitter accepts notifications from components
// Components push during the tick; the engine flushes to subscribers afterwards
type Emitter interface {
	Push(ev Event)
}

// Discard drops every event, used when a component is built without an emitter
type Discard struct{}

// Push implements Emitter
func (Discard) Push(Event) {}

// OrDiscard returns e, or Discard when e is nil
func OrDiscard(e Emitter) Emitter {
	if e == nil {
		return Discard{}
	}
	return e
}

// TierChangedPayload describes a discrete quality transition
type TierChangedPayload struct {
	From        int
	To          int
	FromName    string
	ToName      string
	RenderScale float64
	Reason      string // downgrade, upgrade, critical, manual
}

// RenderScaleChangedPayload describes a continuous scale step
type RenderScaleChangedPayload struct {
	Tier     int
	OldScale float64
	NewScale float64
}

// LODChangedPayload describes an object moving between LOD tiers
// Culled is true when NewTier equals the cull ordinal
type LODChangedPayload struct {
	Handle   uint64
	OldTier  int
	NewTier  int
	Culled   bool
	Distance float64
	Cost     int64
}

// LODPrunedPayload lists handles removed because their owner was destroyed
type LODPrunedPayload struct {
	Handles []uint64
}

// MemoryPressurePayload describes a pressure transition for a scope
// Scope is a category name or "total"
type MemoryPressurePayload struct {
	Scope    string
	Level    string
	Previous string
	Usage    int64
	Budget   int64
	Ratio    float64
}

// AssetEvictedPayload describes one evicted asset
type AssetEvictedPayload struct {
	ID       string
	Category string
	Size     int64
	Priority int
	Level    string
}

// ReclaimRequestedPayload accompanies an emergency sweep
type ReclaimRequestedPayload struct {
	FreedBytes int64
	Evicted    int
}

// AssetLoadPayload describes an async load outcome
type AssetLoadPayload struct {
	RequestID string
	Key       string
	Category  string
	Size      int64
	Elapsed   time.Duration
	Error     string
}

// PoolRecycledPayload describes a live item taken back from its holder
type PoolRecycledPayload struct {
	Pool       string
	ActiveFor  time.Duration
	UsageCount int64
}

package event

// Type identifies a governor notification
type Type int

const (
	// EventNone is the zero value and is never emitted
	EventNone Type = iota

	// === Quality ===

	// EventTierChanged reports a discrete quality tier transition
	// Trigger: quality.Governor downgrade, upgrade or SetTier
	// Payload: *TierChangedPayload
	EventTierChanged

	// EventRenderScaleChanged reports a continuous render-scale step within a tier
	// Trigger: quality.Governor scale stage
	// Payload: *RenderScaleChangedPayload
	EventRenderScaleChanged

	// === Level of Detail ===

	// EventLODChanged reports a per-object LOD tier change
	// Trigger: lod.Calculator update pass
	// Payload: *LODChangedPayload
	EventLODChanged

	// EventLODPruned reports tracked objects dropped because their owner is gone
	// Trigger: lod.Calculator update pass
	// Payload: *LODPrunedPayload
	EventLODPruned

	// === Memory ===

	// EventMemoryPressure is emitted when a scope crosses the warning ratio
	// Payload: *MemoryPressurePayload
	EventMemoryPressure

	// EventMemoryCritical is emitted when a scope crosses the critical ratio
	// Payload: *MemoryPressurePayload
	EventMemoryCritical

	// EventMemoryEmergency is emitted when a scope crosses the emergency ratio
	// Payload: *MemoryPressurePayload
	EventMemoryEmergency

	// EventMemoryRelieved is emitted when a scope drops back under warning
	// Payload: *MemoryPressurePayload
	EventMemoryRelieved

	// EventAssetEvicted reports a single eviction
	// Payload: *AssetEvictedPayload
	EventAssetEvicted

	// EventReclaimRequested asks collaborators to release memory (GC pass)
	// Trigger: emergency sweep
	// Payload: *ReclaimRequestedPayload
	EventReclaimRequested

	// === Assets ===

	// EventAssetLoaded reports a resolved async load
	// Payload: *AssetLoadPayload
	EventAssetLoaded

	// EventAssetLoadFailed reports a failed or timed out load, a placeholder was substituted
	// Payload: *AssetLoadPayload
	EventAssetLoadFailed

	// === Pool ===

	// EventPoolRecycled reports a forced reuse of a live pooled item
	// Payload: *PoolRecycledPayload
	EventPoolRecycled

	eventTypeCount
)

// Package lod assigns distance-banded level-of-detail tiers to tracked objects
package lod

import (
	"sort"

	"github.com/lixenwraith/perfgov/parameter"
	"github.com/lixenwraith/perfgov/vmath"
)

// Tier is a detail ordinal; 0 is full detail
// With N bands the visible tiers are 0..N-1 and N means culled
type Tier int

// Unassigned marks an object that has not been through an update pass
const Unassigned Tier = -1

// Handle identifies a registered object
type Handle uint64

// Trackable is the owner side of a tracked object
// Alive returning false prunes the object on the next update pass
type Trackable interface {
	Position() vmath.Vec3F
	Bounds() vmath.AABB
	Alive() bool
}

// CameraProvider supplies the viewpoint for an update pass
type CameraProvider interface {
	CameraPosition() vmath.Vec3F
	Frustum() vmath.Frustum
}

// ScaleSource provides the global band multiplier, normally the quality governor
type ScaleSource interface {
	LODMultiplier() float64
}

// FixedScale is a constant ScaleSource
type FixedScale float64

// LODMultiplier implements ScaleSource
func (f FixedScale) LODMultiplier() float64 { return float64(f) }

// StaticCamera is a fixed CameraProvider
type StaticCamera struct {
	Pos  vmath.Vec3F
	View vmath.Frustum
}

func (c StaticCamera) CameraPosition() vmath.Vec3F { return c.Pos }
func (c StaticCamera) Frustum() vmath.Frustum      { return c.View }

// NormalizeBands returns a sorted copy of positive thresholds, at most parameter.MaxLODBands
// An empty result falls back to parameter.DefaultLODBands
func NormalizeBands(bands []float64) []float64 {
	out := make([]float64, 0, len(bands))
	for _, b := range bands {
		if b > 0 {
			out = append(out, b)
		}
	}
	sort.Float64s(out)
	if len(out) > parameter.MaxLODBands {
		out = out[:parameter.MaxLODBands]
	}
	if len(out) == 0 {
		out = append(out, parameter.DefaultLODBands...)
	}
	return out
}

// Band returns the tier for distance given already-scaled thresholds
// Thresholds are compared ascending; the first one the distance falls
// under wins, beyond the last is culled
func Band(distance float64, thresholds []float64) Tier {
	for i, th := range thresholds {
		if distance < th {
			return Tier(i)
		}
	}
	return Tier(len(thresholds))
}

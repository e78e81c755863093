package vmath

// AABB is an axis-aligned bounding box
type AABB struct {
	Min, Max Vec3F
}

// AABBAround builds a box of the given half extents centered on c
func AABBAround(c, half Vec3F) AABB {
	return AABB{Min: V3FSub(c, half), Max: V3FAdd(c, half)}
}

// Center returns the box midpoint
func (b AABB) Center() Vec3F {
	return V3FScale(V3FAdd(b.Min, b.Max), 0.5)
}

// Translate returns the box moved by d
func (b AABB) Translate(d Vec3F) AABB {
	return AABB{Min: V3FAdd(b.Min, d), Max: V3FAdd(b.Max, d)}
}

// Plane is n·p + D = 0 with the normal pointing into the inside half-space
type Plane struct {
	Normal Vec3F
	D      float64
}

// PlaneFromPoint builds a plane through p facing normal
func PlaneFromPoint(normal, p Vec3F) Plane {
	n := V3FNormalize(normal)
	return Plane{Normal: n, D: -V3FDot(n, p)}
}

// SignedDistance is positive on the inside
func (p Plane) SignedDistance(v Vec3F) float64 {
	return V3FDot(p.Normal, v) + p.D
}

// Frustum is a set of inward-facing planes, usually six
// An empty frustum contains everything
type Frustum struct {
	Planes []Plane
}

// IntersectsAABB reports whether any part of b is inside the frustum
// Conservative: uses the positive vertex per plane, so boxes straddling a
// corner outside the volume may still report true
func (f Frustum) IntersectsAABB(b AABB) bool {
	for _, p := range f.Planes {
		pv := b.Min
		if p.Normal.X >= 0 {
			pv.X = b.Max.X
		}
		if p.Normal.Y >= 0 {
			pv.Y = b.Max.Y
		}
		if p.Normal.Z >= 0 {
			pv.Z = b.Max.Z
		}
		if p.SignedDistance(pv) < 0 {
			return false
		}
	}
	return true
}

// BoxFrustum builds an axis-aligned viewing volume, useful for orthographic
// cameras and tests
func BoxFrustum(b AABB) Frustum {
	return Frustum{Planes: []Plane{
		PlaneFromPoint(Vec3F{X: 1}, b.Min),
		PlaneFromPoint(Vec3F{X: -1}, b.Max),
		PlaneFromPoint(Vec3F{Y: 1}, b.Min),
		PlaneFromPoint(Vec3F{Y: -1}, b.Max),
		PlaneFromPoint(Vec3F{Z: 1}, b.Min),
		PlaneFromPoint(Vec3F{Z: -1}, b.Max),
	}}
}

package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis aligned box in world space. Y is up.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any Expand call will snap to the first point.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// FromVerts computes the bounds of a flat xyz vertex array.
func FromVerts(verts []float32) AABB {
	b := EmptyAABB()
	for i := 0; i+2 < len(verts); i += 3 {
		b = b.Expand(mgl32.Vec3{verts[i], verts[i+1], verts[i+2]})
	}
	return b
}

// IsEmpty reports whether the box has a negative extent on any axis.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Size returns the extent of the box along each axis.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Contains reports whether p lies inside the box, boundary included.
func (b AABB) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// ContainsXZ is Contains on the horizontal plane only.
func (b AABB) ContainsXZ(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Expand grows the box to include p.
func (b AABB) Expand(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Union grows the box to include o.
func (b AABB) Union(o AABB) AABB {
	return b.Expand(o.Min).Expand(o.Max)
}

// PadXZ grows the box by d on both horizontal axes, leaving y untouched.
func (b AABB) PadXZ(d float32) AABB {
	b.Min[0] -= d
	b.Min[2] -= d
	b.Max[0] += d
	b.Max[2] += d
	return b
}

// OverlapsXZ reports whether the horizontal projections of both boxes intersect.
func (b AABB) OverlapsXZ(o AABB) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

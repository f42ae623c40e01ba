package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// TriNormal returns the unit normal of the counter clockwise triangle (a, b, c).
// Degenerate triangles yield a NaN normal, which never classifies as walkable.
func TriNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l == 0 {
		nan := float32(math.NaN())
		return mgl32.Vec3{nan, nan, nan}
	}
	return n.Mul(1 / l)
}

// WalkableThreshold is the minimum normal y component of a walkable face for the
// given maximum slope in degrees.
func WalkableThreshold(maxSlopeDeg float32) float32 {
	return float32(math.Cos(float64(mgl32.DegToRad(maxSlopeDeg))))
}

// IsWalkable reports whether a face with unit normal n is flatter than the threshold.
func IsWalkable(n mgl32.Vec3, threshold float32) bool {
	return n[1] > threshold
}

// SlopeAngle returns the angle between n and +Y in degrees.
func SlopeAngle(n mgl32.Vec3) float32 {
	y := float64(mgl32.Clamp(n[1], -1, 1))
	return mgl32.RadToDeg(float32(math.Acos(y)))
}

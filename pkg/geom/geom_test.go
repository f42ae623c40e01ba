package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAABBExpandAndContains(t *testing.T) {
	b := FromVerts([]float32{
		0, 0, 0,
		10, 2, 4,
		-3, 1, 8,
	})
	if !b.Min.ApproxEqual(mgl32.Vec3{-3, 0, 0}) || !b.Max.ApproxEqual(mgl32.Vec3{10, 2, 8}) {
		t.Fatalf("unexpected bounds %v %v", b.Min, b.Max)
	}

	tests := []struct {
		p    mgl32.Vec3
		in   bool
		inXZ bool
	}{
		{mgl32.Vec3{0, 1, 1}, true, true},
		{mgl32.Vec3{10, 2, 8}, true, true},
		{mgl32.Vec3{0, 5, 1}, false, true},
		{mgl32.Vec3{11, 1, 1}, false, false},
	}
	for _, tt := range tests {
		if got := b.Contains(tt.p); got != tt.in {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.in)
		}
		if got := b.ContainsXZ(tt.p); got != tt.inXZ {
			t.Errorf("ContainsXZ(%v) = %v, want %v", tt.p, got, tt.inXZ)
		}
	}
}

func TestAABBEmptyAndPad(t *testing.T) {
	e := EmptyAABB()
	if !e.IsEmpty() {
		t.Fatal("EmptyAABB should be empty")
	}
	b := e.Expand(mgl32.Vec3{1, 1, 1})
	if b.IsEmpty() || b.Min != b.Max {
		t.Fatalf("single point box: %v %v", b.Min, b.Max)
	}
	p := b.PadXZ(2)
	want := AABB{Min: mgl32.Vec3{-1, 1, -1}, Max: mgl32.Vec3{3, 1, 3}}
	if p != want {
		t.Errorf("PadXZ = %v, want %v", p, want)
	}
	if !p.OverlapsXZ(AABB{Min: mgl32.Vec3{3, 100, 3}, Max: mgl32.Vec3{4, 200, 4}}) {
		t.Error("touching boxes should overlap on xz")
	}
	if p.OverlapsXZ(AABB{Min: mgl32.Vec3{3.5, 0, 0}, Max: mgl32.Vec3{4, 1, 1}}) {
		t.Error("disjoint boxes should not overlap")
	}
}

func TestSlopeClassification(t *testing.T) {
	thr := WalkableThreshold(45)
	tests := []struct {
		name     string
		a, b, c  mgl32.Vec3
		walkable bool
		angle    float32
	}{
		{"flat", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, true, 0},
		{"30deg", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, float32(math.Tan(math.Pi / 6)), 0}, true, 30},
		{"60deg", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, float32(math.Tan(math.Pi / 3)), 0}, false, 60},
		{"wall", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, false, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := TriNormal(tt.a, tt.b, tt.c)
			if got := IsWalkable(n, thr); got != tt.walkable {
				t.Errorf("IsWalkable = %v, want %v (normal %v)", got, tt.walkable, n)
			}
			if got := SlopeAngle(n); math.Abs(float64(got-tt.angle)) > 0.01 {
				t.Errorf("SlopeAngle = %v, want %v", got, tt.angle)
			}
		})
	}
}

func TestDegenerateTriangleIsNotWalkable(t *testing.T) {
	n := TriNormal(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{2, 2, 2})
	if IsWalkable(n, WalkableThreshold(89)) {
		t.Error("degenerate triangle classified walkable")
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		s      Scale
		meters float32
		units  float32
	}{
		{0, 1.8, 180},
		{100, 0.5, 50},
		{1, 3, 3},
	}
	for _, tt := range tests {
		if got := tt.s.ToUnits(tt.meters); math.Abs(float64(got-tt.units)) > 1e-4 {
			t.Errorf("Scale(%v).ToUnits(%v) = %v, want %v", tt.s, tt.meters, got, tt.units)
		}
		if got := tt.s.ToMeters(tt.units); math.Abs(float64(got-tt.meters)) > 1e-4 {
			t.Errorf("Scale(%v).ToMeters(%v) = %v, want %v", tt.s, tt.units, got, tt.meters)
		}
	}
}

func TestScaleToUnitsExact(t *testing.T) {
	tests := []struct {
		meters float32
		units  float32
	}{
		{0.3, 30},
		{0.6, 60},
		{1.2, 120},
		{0.41, 41},
		{1.8, 180},
	}
	for _, tt := range tests {
		if got := Scale(100).ToUnits(tt.meters); got != tt.units {
			t.Errorf("ToUnits(%v) = %v, want exactly %v", tt.meters, got, tt.units)
		}
	}
}

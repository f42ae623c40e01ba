package recast

import (
	"errors"
	"sort"
	"testing"

	"navbuild/pkg/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// strip returns n unit squares of size 10 laid along x, two triangles each.
func strip(n int) ([]float32, []int) {
	var verts []float32
	var tris []int
	for i := 0; i <= n; i++ {
		x := float32(i * 10)
		verts = append(verts, x, 0, 0, x, 0, 10)
	}
	for i := 0; i < n; i++ {
		a, b, c, d := i*2, i*2+1, i*2+2, i*2+3
		tris = append(tris, a, b, c, c, b, d)
	}
	return verts, tris
}

func TestNewInputGeomRejectsBadIndices(t *testing.T) {
	tests := []struct {
		name  string
		verts []float32
		tris  []int
	}{
		{"index out of range", []float32{0, 0, 0, 1, 0, 0, 0, 0, 1}, []int{0, 1, 3}},
		{"negative index", []float32{0, 0, 0, 1, 0, 0, 0, 0, 1}, []int{0, -1, 2}},
		{"partial vertex", []float32{0, 0, 0, 1}, nil},
		{"partial triangle", []float32{0, 0, 0, 1, 0, 0, 0, 0, 1}, []int{0, 1}},
	}
	for _, tt := range tests {
		if _, err := NewInputGeom(tt.verts, tt.tris); !errors.Is(err, ErrBadGeometry) {
			t.Errorf("%s: error = %v, want ErrBadGeometry", tt.name, err)
		}
	}
}

func TestChunkyTrianglesOverlapping(t *testing.T) {
	verts, tris := strip(64)
	cm := NewChunkyTriMesh(verts, tris, 8)
	if cm.MaxTrisPerChunk() > 8 {
		t.Fatalf("leaf holds %d triangles", cm.MaxTrisPerChunk())
	}
	ids := cm.TrianglesOverlapping(mgl32.Vec2{205, 0}, mgl32.Vec2{235, 10})
	if !sort.IntsAreSorted(ids) {
		t.Errorf("ids not ascending: %v", ids)
	}
	have := make(map[int]bool, len(ids))
	for _, id := range ids {
		have[id] = true
	}
	// Squares 20..23 overlap x in [205, 235].
	for sq := 20; sq <= 23; sq++ {
		for _, id := range []int{sq * 2, sq*2 + 1} {
			if !have[id] {
				t.Errorf("triangle %d missing from %v", id, ids)
			}
		}
	}
	if len(ids) >= len(tris)/3 {
		t.Errorf("query returned every triangle")
	}
}

func TestExtractTile(t *testing.T) {
	verts, tris := strip(10)
	g, err := NewInputGeom(verts, tris)
	if err != nil {
		t.Fatal(err)
	}
	lv, lt := g.ExtractTile(geom.AABB{Min: mgl32.Vec3{25, -1, -1}, Max: mgl32.Vec3{45, 1, 11}})
	// Vertices at x = 30 and x = 40 are inside, touching squares 2..4.
	if got, want := len(lt)/3, 6; got != want {
		t.Fatalf("extracted %d triangles, want %d", got, want)
	}
	for i, idx := range lt {
		if idx < 0 || idx >= len(lv)/3 {
			t.Fatalf("local index %d at %d out of range", idx, i)
		}
	}
	// Source order: the first kept triangle is square 2's first triangle.
	first := vertAt(lv, lt[0])
	if first != (mgl32.Vec3{20, 0, 0}) {
		t.Errorf("first vertex %v, want (20, 0, 0)", first)
	}

	if lv, lt := g.ExtractTile(geom.AABB{Min: mgl32.Vec3{500, -1, -1}, Max: mgl32.Vec3{600, 1, 11}}); len(lv) != 0 || len(lt) != 0 {
		t.Errorf("far tile extracted %d triangles", len(lt)/3)
	}
}

func TestMarkWalkableTriangles(t *testing.T) {
	verts := []float32{
		0, 0, 0, 0, 0, 10, 10, 0, 0, // flat, facing up
		0, 0, 0, 10, 0, 0, 0, 0, 10, // flat, facing down
		0, 0, 0, 0, 10, 0, 10, 0, 0, // vertical
	}
	tris := []int{0, 1, 2, 3, 4, 5, 6, 7, 8}
	areas := MarkWalkableTriangles(45, verts, tris)
	want := []int{AreaWalkable, AreaNull, AreaNull}
	for i := range want {
		if areas[i] != want[i] {
			t.Errorf("triangle %d area %d, want %d", i, areas[i], want[i])
		}
	}
}

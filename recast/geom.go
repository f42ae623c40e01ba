package recast

import (
	"fmt"

	"navbuild/pkg/geom"

	"github.com/go-gl/mathgl/mgl32"
)

const trisPerChunk = 256

// InputGeom is the world triangle mesh of one level. It is immutable after
// construction and safe to share between tile workers.
type InputGeom struct {
	verts  []float32
	tris   []int
	bounds geom.AABB
	chunky *ChunkyTriMesh
}

// NewInputGeom validates the indices and builds the spatial index.
func NewInputGeom(verts []float32, tris []int) (*InputGeom, error) {
	if len(verts)%3 != 0 || len(tris)%3 != 0 {
		return nil, fmt.Errorf("%w: %d coordinates, %d indices", ErrBadGeometry, len(verts), len(tris))
	}
	nv := len(verts) / 3
	for i, t := range tris {
		if t < 0 || t >= nv {
			return nil, fmt.Errorf("%w: index %d at %d out of range [0, %d)", ErrBadGeometry, t, i, nv)
		}
	}
	g := &InputGeom{
		verts:  verts,
		tris:   tris,
		bounds: geom.FromVerts(verts),
	}
	g.chunky = NewChunkyTriMesh(verts, tris, trisPerChunk)
	return g, nil
}

func (g *InputGeom) Verts() []float32 { return g.verts }
func (g *InputGeom) Tris() []int { return g.tris }
func (g *InputGeom) Bounds() geom.AABB { return g.bounds }
func (g *InputGeom) VertCount() int { return len(g.verts) / 3 }
func (g *InputGeom) TriCount() int { return len(g.tris) / 3 }

// ExtractTile returns the triangles with at least one vertex inside bounds on
// the xz-plane, in source order and re-indexed into a compact local mesh.
func (g *InputGeom) ExtractTile(bounds geom.AABB) (verts []float32, tris []int) {
	candidates := g.chunky.TrianglesOverlapping(
		mgl32.Vec2{bounds.Min[0], bounds.Min[2]},
		mgl32.Vec2{bounds.Max[0], bounds.Max[2]},
	)
	remap := make(map[int]int)
	for _, t := range candidates {
		src := g.tris[t*3 : t*3+3]
		inside := false
		for _, vi := range src {
			if bounds.ContainsXZ(vertAt(g.verts, vi)) {
				inside = true
				break
			}
		}
		if !inside {
			continue
		}
		for _, vi := range src {
			li, ok := remap[vi]
			if !ok {
				li = len(verts) / 3
				remap[vi] = li
				verts = append(verts, g.verts[vi*3], g.verts[vi*3+1], g.verts[vi*3+2])
			}
			tris = append(tris, li)
		}
	}
	return verts, tris
}

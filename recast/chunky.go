package recast

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkyTriMesh is a 2D bounding volume tree over triangles on the xz-plane.
// Leaves hold at most trisPerChunk triangle ids in source order.
type ChunkyTriMesh struct {
	nodes           []chunkyNode
	maxTrisPerChunk int
}

type chunkyNode struct {
	bmin mgl32.Vec2
	bmax mgl32.Vec2
	// Leaf: triangle ids. Inner: nil, with escape holding the subtree size.
	tris   []int
	escape int
}

type chunkyItem struct {
	bmin mgl32.Vec2
	bmax mgl32.Vec2
	i    int
}

// NewChunkyTriMesh builds the tree over the triangles of verts/tris.
func NewChunkyTriMesh(verts []float32, tris []int, trisPerChunk int) *ChunkyTriMesh {
	ntris := len(tris) / 3
	cm := &ChunkyTriMesh{}
	if ntris == 0 {
		return cm
	}
	items := make([]chunkyItem, ntris)
	for i := range items {
		it := &items[i]
		it.i = i
		v := tris[i*3] * 3
		it.bmin = mgl32.Vec2{verts[v], verts[v+2]}
		it.bmax = it.bmin
		for j := 1; j < 3; j++ {
			v = tris[i*3+j] * 3
			it.bmin[0] = min(it.bmin[0], verts[v])
			it.bmin[1] = min(it.bmin[1], verts[v+2])
			it.bmax[0] = max(it.bmax[0], verts[v])
			it.bmax[1] = max(it.bmax[1], verts[v+2])
		}
	}
	cm.subdivide(items, trisPerChunk)
	for _, n := range cm.nodes {
		cm.maxTrisPerChunk = max(cm.maxTrisPerChunk, len(n.tris))
	}
	return cm
}

func (cm *ChunkyTriMesh) subdivide(items []chunkyItem, trisPerChunk int) {
	icur := len(cm.nodes)
	cm.nodes = append(cm.nodes, chunkyNode{})
	bmin, bmax := items[0].bmin, items[0].bmax
	for _, it := range items[1:] {
		bmin[0] = min(bmin[0], it.bmin[0])
		bmin[1] = min(bmin[1], it.bmin[1])
		bmax[0] = max(bmax[0], it.bmax[0])
		bmax[1] = max(bmax[1], it.bmax[1])
	}

	if len(items) <= trisPerChunk {
		ids := make([]int, len(items))
		for i, it := range items {
			ids[i] = it.i
		}
		// Ids stay ascending so extraction preserves source order.
		sort.Ints(ids)
		cm.nodes[icur] = chunkyNode{bmin: bmin, bmax: bmax, tris: ids}
		return
	}

	axis := 0
	if bmax[1]-bmin[1] > bmax[0]-bmin[0] {
		axis = 1
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].bmin[axis] < items[b].bmin[axis] })
	split := len(items) / 2
	cm.subdivide(items[:split], trisPerChunk)
	cm.subdivide(items[split:], trisPerChunk)
	cm.nodes[icur] = chunkyNode{bmin: bmin, bmax: bmax, escape: len(cm.nodes) - icur}
}

// TrianglesOverlapping returns the ids of triangles whose chunk overlaps the
// xz rectangle, ascending.
func (cm *ChunkyTriMesh) TrianglesOverlapping(bmin, bmax mgl32.Vec2) []int {
	var ids []int
	for i := 0; i < len(cm.nodes); {
		n := &cm.nodes[i]
		overlap := !(bmin[0] > n.bmax[0] || bmax[0] < n.bmin[0] || bmin[1] > n.bmax[1] || bmax[1] < n.bmin[1])
		leaf := n.escape == 0
		if leaf && overlap {
			ids = append(ids, n.tris...)
		}
		if overlap || leaf {
			i++
		} else {
			i += n.escape
		}
	}
	sort.Ints(ids)
	return ids
}

// MaxTrisPerChunk returns the size of the largest leaf.
func (cm *ChunkyTriMesh) MaxTrisPerChunk() int { return cm.maxTrisPerChunk }

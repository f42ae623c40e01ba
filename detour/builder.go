package detour

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Outcodes of a point relative to the tile, used to classify off-mesh endpoints.
const (
	xp = 1 << 0
	zp = 1 << 1
	xm = 1 << 2
	zm = 1 << 3
)

// CreateNavMeshData assembles a tile from the polygon and detail meshes in params.
// Off-mesh links are stored only when their start point lies on this tile.
func CreateNavMeshData(params *NavMeshCreateParams) (*MeshData, error) {
	if params.Nvp < 3 || params.Nvp > VertsPerPolygon {
		return nil, fmt.Errorf("%w: nvp %d", ErrInvalidParams, params.Nvp)
	}
	if params.VertCount >= 0xffff {
		return nil, fmt.Errorf("%w: %d", ErrTooManyVertices, params.VertCount)
	}
	if params.VertCount == 0 || len(params.Verts) < params.VertCount*3 {
		return nil, fmt.Errorf("%w: no vertices", ErrInvalidParams)
	}
	if params.PolyCount == 0 || len(params.Polys) < params.PolyCount*params.Nvp*2 {
		return nil, fmt.Errorf("%w: no polygons", ErrInvalidParams)
	}
	if len(params.PolyFlags) < params.PolyCount || len(params.PolyAreas) < params.PolyCount {
		return nil, fmt.Errorf("%w: flags or areas shorter than polygon count", ErrInvalidParams)
	}
	if !(params.Cs > 0) || !(params.Ch > 0) {
		return nil, fmt.Errorf("%w: cell size", ErrInvalidParams)
	}
	nvp := params.Nvp

	offClass, storedOffMeshCons, offMeshLinkCount := classifyOffMeshLinks(params)

	totPolyCount := params.PolyCount + storedOffMeshCons
	totVertCount := params.VertCount + storedOffMeshCons*2
	if totVertCount >= 0xffff {
		return nil, fmt.Errorf("%w: %d with off-mesh links", ErrTooManyVertices, totVertCount)
	}

	edgeCount, portalCount := 0, 0
	for i := 0; i < params.PolyCount; i++ {
		p := params.Polys[i*2*nvp:]
		for j := 0; j < nvp && p[j] != meshNullIdx; j++ {
			edgeCount++
			if p[nvp+j]&0x8000 != 0 && p[nvp+j]&0xf != 0xf {
				portalCount++
			}
		}
	}
	maxLinkCount := edgeCount + portalCount*2 + offMeshLinkCount*2

	uniqueDetailVerts, detailTriCount := 0, 0
	if params.DetailMeshes != nil {
		detailTriCount = params.DetailTriCount
		for i := 0; i < params.PolyCount; i++ {
			uniqueDetailVerts += params.DetailMeshes[i*4+1] - polyVertCount(params.Polys[i*2*nvp:], nvp)
		}
	} else {
		for i := 0; i < params.PolyCount; i++ {
			detailTriCount += polyVertCount(params.Polys[i*2*nvp:], nvp) - 2
		}
	}

	d := &MeshData{
		Header: MeshHeader{
			Magic:           NavMeshMagic,
			Version:         NavMeshVersion,
			X:               int32(params.TileX),
			Y:               int32(params.TileY),
			Layer:           int32(params.TileLayer),
			UserID:          params.UserID,
			PolyCount:       int32(totPolyCount),
			VertCount:       int32(totVertCount),
			MaxLinkCount:    int32(maxLinkCount),
			DetailMeshCount: int32(params.PolyCount),
			DetailVertCount: int32(uniqueDetailVerts),
			DetailTriCount:  int32(detailTriCount),
			OffMeshConCount: int32(storedOffMeshCons),
			OffMeshBase:     int32(params.PolyCount),
			WalkableHeight:  params.WalkableHeight,
			WalkableRadius:  params.WalkableRadius,
			WalkableClimb:   params.WalkableClimb,
			Bmin:            params.Bmin,
			Bmax:            params.Bmax,
			BvQuantFactor:   1 / params.Cs,
		},
		Verts:        make([]float32, 0, totVertCount*3),
		Polys:        make([]Poly, totPolyCount),
		Links:        make([]Link, maxLinkCount),
		DetailMeshes: make([]PolyDetail, params.PolyCount),
		DetailVerts:  make([]float32, 0, uniqueDetailVerts*3),
		DetailTris:   make([]uint8, 0, detailTriCount*4),
		OffMeshCons:  make([]OffMeshConnection, 0, storedOffMeshCons),
	}

	for i := 0; i < params.VertCount; i++ {
		v := params.Verts[i*3:]
		d.Verts = append(d.Verts,
			params.Bmin[0]+float32(v[0])*params.Cs,
			params.Bmin[1]+float32(v[1])*params.Ch,
			params.Bmin[2]+float32(v[2])*params.Cs)
	}
	for i, l := range params.OffMeshLinks {
		if offClass[i*2] == 0xff {
			d.Verts = append(d.Verts, l.Start[0], l.Start[1], l.Start[2], l.End[0], l.End[1], l.End[2])
		}
	}

	for i := 0; i < params.PolyCount; i++ {
		src := params.Polys[i*2*nvp:]
		p := &d.Polys[i]
		p.Flags = uint16(params.PolyFlags[i])
		p.SetArea(uint8(params.PolyAreas[i]))
		p.SetType(PolyTypeGround)
		for j := 0; j < nvp && src[j] != meshNullIdx; j++ {
			p.Verts[j] = uint16(src[j])
			nei := src[nvp+j]
			if nei&0x8000 != 0 {
				p.Neis[j] = portalNei(nei & 0xf)
			} else {
				p.Neis[j] = uint16(nei + 1)
			}
			p.VertCount++
		}
	}
	offVertBase := params.VertCount
	n := 0
	for i, l := range params.OffMeshLinks {
		if offClass[i*2] != 0xff {
			continue
		}
		p := &d.Polys[params.PolyCount+n]
		p.VertCount = 2
		p.Verts[0] = uint16(offVertBase + n*2)
		p.Verts[1] = uint16(offVertBase + n*2 + 1)
		p.Flags = l.Flags
		p.SetArea(l.Area)
		p.SetType(PolyTypeOffMeshConnection)
		n++
	}

	// Polygon vertices lead every detail sub-mesh; only the extra vertices are stored.
	if params.DetailMeshes != nil {
		vbase := 0
		for i := 0; i < params.PolyCount; i++ {
			dm := params.DetailMeshes[i*4 : i*4+4]
			nv := int(d.Polys[i].VertCount)
			extra := dm[1] - nv
			d.DetailMeshes[i] = PolyDetail{
				VertBase:  uint32(vbase),
				VertCount: uint8(extra),
				TriBase:   uint32(dm[2]),
				TriCount:  uint8(dm[3]),
			}
			if extra > 0 {
				d.DetailVerts = append(d.DetailVerts, params.DetailVerts[(dm[0]+nv)*3:(dm[0]+dm[1])*3]...)
				vbase += extra
			}
		}
		for _, t := range params.DetailTris[:params.DetailTriCount*4] {
			d.DetailTris = append(d.DetailTris, uint8(t))
		}
	} else {
		tbase := 0
		for i := 0; i < params.PolyCount; i++ {
			nv := int(d.Polys[i].VertCount)
			d.DetailMeshes[i] = PolyDetail{TriBase: uint32(tbase), TriCount: uint8(nv - 2)}
			for j := 2; j < nv; j++ {
				flags := uint8(1 << 2)
				if j == 2 {
					flags |= 1 << 0
				}
				if j == nv-1 {
					flags |= 1 << 4
				}
				d.DetailTris = append(d.DetailTris, 0, uint8(j-1), uint8(j), flags)
				tbase++
			}
		}
	}

	if params.BuildBvTree {
		d.BvTree = createBVTree(params)
		d.Header.BvNodeCount = int32(len(d.BvTree))
	}

	n = 0
	for i, l := range params.OffMeshLinks {
		if offClass[i*2] != 0xff {
			continue
		}
		con := OffMeshConnection{
			Pos:    [6]float32{l.Start[0], l.Start[1], l.Start[2], l.End[0], l.End[1], l.End[2]},
			Rad:    l.Radius,
			Poly:   uint16(params.PolyCount + n),
			Side:   uint8(offClass[i*2+1]),
			UserID: l.UserID,
		}
		if l.Bidir {
			con.Flags = OffMeshConBidir
		}
		d.OffMeshCons = append(d.OffMeshCons, con)
		n++
	}
	return d, nil
}

// portalNei maps a mesh border side to the portal link side of Detour's
// 8-way neighbour numbering.
func portalNei(dir int) uint16 {
	switch dir {
	case 0: // x-
		return ExtLink | 4
	case 1: // z+
		return ExtLink | 2
	case 2: // x+
		return ExtLink | 0
	case 3: // z-
		return ExtLink | 6
	}
	return 0
}

func polyVertCount(p []int, nvp int) int {
	for j := 0; j < nvp; j++ {
		if p[j] == meshNullIdx {
			return j
		}
	}
	return nvp
}

// classifyOffMeshLinks returns the outcode side per endpoint (0xff inside),
// the number of links starting on the tile and the number of link slots they need.
func classifyOffMeshLinks(params *NavMeshCreateParams) ([]int, int, int) {
	if len(params.OffMeshLinks) == 0 {
		return nil, 0, 0
	}
	// Tight height bounds cull start points that cannot touch the mesh.
	hmin := float32(math.MaxFloat32)
	hmax := float32(-math.MaxFloat32)
	if params.DetailMeshes != nil && params.DetailVertsCount > 0 {
		for i := 0; i < params.DetailVertsCount; i++ {
			h := params.DetailVerts[i*3+1]
			hmin = min(hmin, h)
			hmax = max(hmax, h)
		}
	} else {
		for i := 0; i < params.VertCount; i++ {
			h := params.Bmin[1] + float32(params.Verts[i*3+1])*params.Ch
			hmin = min(hmin, h)
			hmax = max(hmax, h)
		}
	}
	bmin, bmax := params.Bmin, params.Bmax
	bmin[1] = hmin - params.WalkableClimb
	bmax[1] = hmax + params.WalkableClimb

	class := make([]int, len(params.OffMeshLinks)*2)
	stored, links := 0, 0
	for i, l := range params.OffMeshLinks {
		class[i*2] = classifyOffMeshPoint(l.Start, bmin, bmax)
		class[i*2+1] = classifyOffMeshPoint(l.End, bmin, bmax)
		if class[i*2] == 0xff && (l.Start[1] < bmin[1] || l.Start[1] > bmax[1]) {
			class[i*2] = 0
		}
		if class[i*2] == 0xff {
			links++
			stored++
		}
		if class[i*2+1] == 0xff {
			links++
		}
	}
	return class, stored, links
}

func classifyOffMeshPoint(pt, bmin, bmax mgl32.Vec3) int {
	outcode := 0
	if pt[0] >= bmax[0] {
		outcode |= xp
	}
	if pt[2] >= bmax[2] {
		outcode |= zp
	}
	if pt[0] < bmin[0] {
		outcode |= xm
	}
	if pt[2] < bmin[2] {
		outcode |= zm
	}
	switch outcode {
	case xp:
		return 0
	case xp | zp:
		return 1
	case zp:
		return 2
	case xm | zp:
		return 3
	case xm:
		return 4
	case xm | zm:
		return 5
	case zm:
		return 6
	case xp | zm:
		return 7
	}
	return 0xff
}

type bvItem struct {
	bmin [3]int
	bmax [3]int
	i    int
}

func createBVTree(params *NavMeshCreateParams) []BVNode {
	quant := 1 / params.Cs
	items := make([]bvItem, params.PolyCount)
	for i := range items {
		it := &items[i]
		it.i = i
		if params.DetailMeshes != nil {
			vb, ndv := params.DetailMeshes[i*4], params.DetailMeshes[i*4+1]
			dv := params.DetailVerts[vb*3 : (vb+ndv)*3]
			bmin := mgl32.Vec3{dv[0], dv[1], dv[2]}
			bmax := bmin
			for j := 1; j < ndv; j++ {
				for k := 0; k < 3; k++ {
					bmin[k] = min(bmin[k], dv[j*3+k])
					bmax[k] = max(bmax[k], dv[j*3+k])
				}
			}
			// Quantized with cs on every axis.
			for k := 0; k < 3; k++ {
				it.bmin[k] = clampInt(int((bmin[k]-params.Bmin[k])*quant), 0, 0xffff)
				it.bmax[k] = clampInt(int((bmax[k]-params.Bmin[k])*quant), 0, 0xffff)
			}
			continue
		}
		p := params.Polys[i*params.Nvp*2:]
		v := params.Verts[p[0]*3:]
		it.bmin = [3]int{v[0], v[1], v[2]}
		it.bmax = it.bmin
		for j := 1; j < params.Nvp && p[j] != meshNullIdx; j++ {
			v = params.Verts[p[j]*3:]
			for k := 0; k < 3; k++ {
				it.bmin[k] = min(it.bmin[k], v[k])
				it.bmax[k] = max(it.bmax[k], v[k])
			}
		}
		it.bmin[1] = int(math.Floor(float64(float32(it.bmin[1]) * params.Ch / params.Cs)))
		it.bmax[1] = int(math.Ceil(float64(float32(it.bmax[1]) * params.Ch / params.Cs)))
	}
	nodes := make([]BVNode, 0, params.PolyCount*2)
	return subdivide(items, nodes)
}

// subdivide appends the subtree over items to nodes in depth first order.
func subdivide(items []bvItem, nodes []BVNode) []BVNode {
	icur := len(nodes)
	nodes = append(nodes, BVNode{})
	if len(items) == 1 {
		nodes[icur] = BVNode{Bmin: toU16(items[0].bmin), Bmax: toU16(items[0].bmax), I: int32(items[0].i)}
		return nodes
	}

	bmin, bmax := items[0].bmin, items[0].bmax
	for _, it := range items[1:] {
		for k := 0; k < 3; k++ {
			bmin[k] = min(bmin[k], it.bmin[k])
			bmax[k] = max(bmax[k], it.bmax[k])
		}
	}
	axis := longestAxis(bmax[0]-bmin[0], bmax[1]-bmin[1], bmax[2]-bmin[2])
	sort.SliceStable(items, func(a, b int) bool { return items[a].bmin[axis] < items[b].bmin[axis] })

	split := len(items) / 2
	nodes = subdivide(items[:split], nodes)
	nodes = subdivide(items[split:], nodes)
	nodes[icur] = BVNode{Bmin: toU16(bmin), Bmax: toU16(bmax), I: -int32(len(nodes) - icur)}
	return nodes
}

func toU16(v [3]int) [3]uint16 {
	return [3]uint16{uint16(v[0]), uint16(v[1]), uint16(v[2])}
}

func longestAxis(x, y, z int) int {
	axis, maxVal := 0, x
	if y > maxVal {
		axis, maxVal = 1, y
	}
	if z > maxVal {
		axis = 2
	}
	return axis
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

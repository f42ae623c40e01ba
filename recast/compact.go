package recast

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CompactCell indexes the spans of one column.
type CompactCell struct {
	index int
	count int
}

// CompactSpan is a walkable span with its open space above it.
type CompactSpan struct {
	y   int // lower extent, from the field base
	reg int // region id, 0 when unassigned
	con int // 6 bits per direction
	h   int // clearance above y
}

func (s *CompactSpan) setCon(dir, i int) {
	shift := uint(dir * 6)
	s.con = (s.con &^ (0x3f << shift)) | ((i & 0x3f) << shift)
}

func (s *CompactSpan) getCon(dir int) int {
	return (s.con >> uint(dir*6)) & 0x3f
}

// CompactHeightfield keeps only the open space above walkable spans plus
// neighbour connectivity.
type CompactHeightfield struct {
	width          int
	height         int
	spanCount      int
	walkableHeight int
	walkableClimb  int
	borderSize     int
	maxDistance    int
	maxRegions     int
	bmin           mgl32.Vec3
	bmax           mgl32.Vec3
	cs             float32
	ch             float32
	cells          []CompactCell
	spans          []CompactSpan
	dist           []int
	areas          []int
}

// SpanCount returns the number of walkable spans.
func (chf *CompactHeightfield) SpanCount() int { return chf.spanCount }

// MaxRegions returns the largest region id assigned plus one.
func (chf *CompactHeightfield) MaxRegions() int { return chf.maxRegions }

// WalkableSpans counts spans that still carry an area after erosion.
func (chf *CompactHeightfield) WalkableSpans() int {
	n := 0
	for _, a := range chf.areas {
		if a != AreaNull {
			n++
		}
	}
	return n
}

// neighbour returns the span index connected to span s of cell (x, y) in dir.
func (chf *CompactHeightfield) neighbour(x, y, dir int, s *CompactSpan) (nx, ny, ni int) {
	nx = x + dirOffX(dir)
	ny = y + dirOffY(dir)
	ni = chf.cells[nx+ny*chf.width].index + s.getCon(dir)
	return
}

// BuildCompactHeightfield converts the walkable spans of hf to compact form.
func BuildCompactHeightfield(walkableHeight, walkableClimb int, hf *Heightfield) *CompactHeightfield {
	w, h := hf.width, hf.height
	spanCount := hf.SpanCount()
	chf := &CompactHeightfield{
		width:          w,
		height:         h,
		spanCount:      spanCount,
		walkableHeight: walkableHeight,
		walkableClimb:  walkableClimb,
		bmin:           hf.bmin,
		bmax:           hf.bmax,
		cs:             hf.cs,
		ch:             hf.ch,
		cells:          make([]CompactCell, w*h),
		spans:          make([]CompactSpan, spanCount),
		areas:          make([]int, spanCount),
	}
	chf.bmax[1] += float32(walkableHeight) * hf.ch

	idx := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := hf.spans[x+y*w]
			if s == nil {
				continue
			}
			c := &chf.cells[x+y*w]
			c.index = idx
			for ; s != nil; s = s.next {
				if s.area == AreaNull {
					continue
				}
				bot := s.smax
				top := maxHeight
				if s.next != nil {
					top = s.next.smin
				}
				chf.spans[idx].y = clampInt(bot, 0, 0xffff)
				chf.spans[idx].h = clampInt(top-bot, 0, 0xff)
				chf.areas[idx] = s.area
				idx++
				c.count++
			}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				for dir := 0; dir < 4; dir++ {
					s.setCon(dir, notConnected)
					nx := x + dirOffX(dir)
					ny := y + dirOffY(dir)
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					nc := &chf.cells[nx+ny*w]
					for k := nc.index; k < nc.index+nc.count; k++ {
						ns := &chf.spans[k]
						bot := max(s.y, ns.y)
						top := min(s.y+s.h, ns.y+ns.h)
						if top-bot >= walkableHeight && absInt(ns.y-s.y) <= walkableClimb {
							// Columns deeper than the connection field can index stay unconnected.
							if lidx := k - nc.index; lidx <= maxLayers {
								s.setCon(dir, lidx)
								break
							}
						}
					}
				}
			}
		}
	}
	return chf
}

// ErodeWalkableArea clears every span closer than radius cells to a boundary.
func ErodeWalkableArea(radius int, chf *CompactHeightfield) {
	w, h := chf.width, chf.height
	dist := make([]int, chf.spanCount)
	for i := range dist {
		dist[i] = 255
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] == AreaNull {
					dist[i] = 0
					continue
				}
				s := &chf.spans[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if s.getCon(dir) == notConnected {
						continue
					}
					_, _, ni := chf.neighbour(x, y, dir, s)
					if chf.areas[ni] != AreaNull {
						nc++
					}
				}
				if nc != 4 {
					dist[i] = 0
				}
			}
		}
	}

	chf.chamfer(dist, 255)

	thr := radius * 2
	for i := 0; i < chf.spanCount; i++ {
		if dist[i] < thr {
			chf.areas[i] = AreaNull
		}
	}
}

// chamfer runs the two pass 2/3 weighted distance transform over dist,
// saturating at limit.
func (chf *CompactHeightfield) chamfer(dist []int, limit int) {
	w, h := chf.width, chf.height
	relax := func(i, ai, cost int) {
		if nd := min(dist[ai]+cost, limit); nd < dist[i] {
			dist[i] = nd
		}
	}
	// step relaxes against the neighbour in dir and its diagonal in dir2.
	step := func(x, y, i int, s *CompactSpan, dir, dir2 int) {
		if s.getCon(dir) == notConnected {
			return
		}
		ax, ay, ai := chf.neighbour(x, y, dir, s)
		relax(i, ai, 2)
		as := &chf.spans[ai]
		if as.getCon(dir2) != notConnected {
			_, _, aai := chf.neighbour(ax, ay, dir2, as)
			relax(i, aai, 3)
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				step(x, y, i, s, 0, 3) // (-1,0), (-1,-1)
				step(x, y, i, s, 3, 2) // (0,-1), (1,-1)
			}
		}
	}
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				step(x, y, i, s, 2, 1) // (1,0), (1,1)
				step(x, y, i, s, 1, 0) // (0,1), (-1,1)
			}
		}
	}
}

// ConvexVolume is an xz polygon extruded between two heights.
type ConvexVolume struct {
	Verts []float32 // xyz triples, y ignored
	HMin  float32
	HMax  float32
	Area  int
}

// MarkConvexPolyArea assigns vol.Area to walkable spans whose cell center lies
// inside the volume.
func MarkConvexPolyArea(vol ConvexVolume, chf *CompactHeightfield) {
	nverts := len(vol.Verts) / 3
	if nverts < 3 {
		return
	}
	bmin := vertAt(vol.Verts, 0)
	bmax := bmin
	for i := 1; i < nverts; i++ {
		v := vertAt(vol.Verts, i)
		for k := 0; k < 3; k++ {
			bmin[k] = min(bmin[k], v[k])
			bmax[k] = max(bmax[k], v[k])
		}
	}
	bmin[1] = vol.HMin
	bmax[1] = vol.HMax

	minx := int((bmin[0] - chf.bmin[0]) / chf.cs)
	miny := int((bmin[1] - chf.bmin[1]) / chf.ch)
	minz := int((bmin[2] - chf.bmin[2]) / chf.cs)
	maxx := int((bmax[0] - chf.bmin[0]) / chf.cs)
	maxy := int((bmax[1] - chf.bmin[1]) / chf.ch)
	maxz := int((bmax[2] - chf.bmin[2]) / chf.cs)
	if maxx < 0 || minx >= chf.width || maxz < 0 || minz >= chf.height {
		return
	}
	minx = max(minx, 0)
	maxx = min(maxx, chf.width-1)
	minz = max(minz, 0)
	maxz = min(maxz, chf.height-1)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			c := &chf.cells[x+z*chf.width]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] == AreaNull {
					continue
				}
				s := &chf.spans[i]
				if s.y < miny || s.y > maxy {
					continue
				}
				px := chf.bmin[0] + (float32(x)+0.5)*chf.cs
				pz := chf.bmin[2] + (float32(z)+0.5)*chf.cs
				if pointInPoly(vol.Verts, px, pz) {
					chf.areas[i] = vol.Area
				}
			}
		}
	}
}

func pointInPoly(verts []float32, px, pz float32) bool {
	n := len(verts) / 3
	c := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := i*3, j*3
		if (verts[vi+2] > pz) != (verts[vj+2] > pz) &&
			px < (verts[vj]-verts[vi])*(pz-verts[vi+2])/(verts[vj+2]-verts[vi+2])+verts[vi] {
			c = !c
		}
	}
	return c
}

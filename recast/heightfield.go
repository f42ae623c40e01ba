package recast

import (
	"math"

	"navbuild/pkg/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Span is a solid vertical run of voxels in one heightfield column.
type Span struct {
	smin int // [Limit: < smax]
	smax int // [Limit: <= spanMaxHeight]
	area int
	next *Span
}

const spansPerPool = 2048

// Heightfield is a 2.5D grid of span columns.
type Heightfield struct {
	width  int
	height int
	bmin   mgl32.Vec3
	bmax   mgl32.Vec3
	cs     float32
	ch     float32
	spans  []*Span

	pool     []Span
	freelist *Span
}

// NewHeightfield allocates an empty w by h field over [bmin, bmax].
func NewHeightfield(w, h int, bmin, bmax mgl32.Vec3, cs, ch float32) *Heightfield {
	return &Heightfield{
		width:  w,
		height: h,
		bmin:   bmin,
		bmax:   bmax,
		cs:     cs,
		ch:     ch,
		spans:  make([]*Span, w*h),
	}
}

func (hf *Heightfield) allocSpan() *Span {
	if hf.freelist != nil {
		s := hf.freelist
		hf.freelist = s.next
		*s = Span{}
		return s
	}
	if len(hf.pool) == 0 {
		hf.pool = make([]Span, spansPerPool)
	}
	s := &hf.pool[0]
	hf.pool = hf.pool[1:]
	return s
}

func (hf *Heightfield) freeSpan(s *Span) {
	s.next = hf.freelist
	hf.freelist = s
}

// MarkWalkableTriangles assigns AreaWalkable to every triangle flatter than
// the slope limit and AreaNull to the rest.
func MarkWalkableTriangles(walkableSlopeAngle float32, verts []float32, tris []int) []int {
	nt := len(tris) / 3
	areas := make([]int, nt)
	thr := geom.WalkableThreshold(walkableSlopeAngle)
	for i := 0; i < nt; i++ {
		n := geom.TriNormal(vertAt(verts, tris[i*3]), vertAt(verts, tris[i*3+1]), vertAt(verts, tris[i*3+2]))
		if geom.IsWalkable(n, thr) {
			areas[i] = AreaWalkable
		}
	}
	return areas
}

// flattestSlope returns the smallest slope angle in degrees over all triangles.
func flattestSlope(verts []float32, tris []int) float32 {
	flattest := float32(180)
	for i := 0; i+2 < len(tris); i += 3 {
		n := geom.TriNormal(vertAt(verts, tris[i]), vertAt(verts, tris[i+1]), vertAt(verts, tris[i+2]))
		flattest = min(flattest, geom.SlopeAngle(n))
	}
	return flattest
}

func vertAt(verts []float32, i int) mgl32.Vec3 {
	return mgl32.Vec3{verts[i*3], verts[i*3+1], verts[i*3+2]}
}

// RasterizeTriangles voxelizes the triangles into hf. Spans whose tops are
// within flagMergeThr keep the larger area id when merged.
func RasterizeTriangles(verts []float32, tris []int, areas []int, hf *Heightfield, flagMergeThr int) error {
	if len(areas)*3 != len(tris) {
		return ErrBadGeometry
	}
	nv := len(verts) / 3
	ics := 1 / hf.cs
	ich := 1 / hf.ch
	var buf [7 * 3 * 4]float32
	for i := 0; i < len(areas); i++ {
		v0, v1, v2 := tris[i*3], tris[i*3+1], tris[i*3+2]
		if v0 < 0 || v1 < 0 || v2 < 0 || v0 >= nv || v1 >= nv || v2 >= nv {
			return ErrBadGeometry
		}
		hf.rasterizeTri(vertAt(verts, v0), vertAt(verts, v1), vertAt(verts, v2), areas[i], ics, ich, flagMergeThr, buf[:])
	}
	return nil
}

func (hf *Heightfield) rasterizeTri(a, b, c mgl32.Vec3, area int, ics, ich float32, flagMergeThr int, buf []float32) {
	w, h := hf.width, hf.height
	bmin, bmax := hf.bmin, hf.bmax
	cs := hf.cs
	by := bmax[1] - bmin[1]

	tri := geom.EmptyAABB().Expand(a).Expand(b).Expand(c)
	if !(geom.AABB{Min: bmin, Max: bmax}).OverlapsXZ(tri) || tri.Min[1] > bmax[1] || tri.Max[1] < bmin[1] {
		return
	}

	y0 := clampInt(int((tri.Min[2]-bmin[2])*ics), 0, h-1)
	y1 := clampInt(int((tri.Max[2]-bmin[2])*ics), 0, h-1)

	// Four 7-vertex polygons share buf: the remaining input, the current row,
	// and two scratch outputs.
	const stride = 7 * 3
	in, inrow, p1, p2 := 0, stride, stride*2, stride*3
	copy(buf[0:3], a[:])
	copy(buf[3:6], b[:])
	copy(buf[6:9], c[:])
	nvIn := 3

	for y := y0; y <= y1; y++ {
		cz := bmin[2] + float32(y)*cs
		var nvrow int
		nvrow, nvIn = dividePoly(buf, in, nvIn, inrow, p1, cz+cs, 2)
		in, p1 = p1, in
		if nvrow < 3 {
			continue
		}
		minX, maxX := buf[inrow], buf[inrow]
		for i := 1; i < nvrow; i++ {
			minX = min(minX, buf[inrow+i*3])
			maxX = max(maxX, buf[inrow+i*3])
		}
		x0 := clampInt(int((minX-bmin[0])*ics), 0, w-1)
		x1 := clampInt(int((maxX-bmin[0])*ics), 0, w-1)

		nv2 := nvrow
		for x := x0; x <= x1; x++ {
			cx := bmin[0] + float32(x)*cs
			var nv int
			nv, nv2 = dividePoly(buf, inrow, nv2, p1, p2, cx+cs, 0)
			inrow, p2 = p2, inrow
			if nv < 3 {
				continue
			}
			smin, smax := buf[p1+1], buf[p1+1]
			for i := 1; i < nv; i++ {
				smin = min(smin, buf[p1+i*3+1])
				smax = max(smax, buf[p1+i*3+1])
			}
			smin -= bmin[1]
			smax -= bmin[1]
			if smax < 0 || smin > by {
				continue
			}
			smin = max(smin, 0)
			smax = min(smax, by)

			ismin := clampInt(int(math.Floor(float64(smin*ich))), 0, spanMaxHeight)
			ismax := clampInt(int(math.Ceil(float64(smax*ich))), ismin+1, spanMaxHeight)
			hf.addSpan(x, y, ismin, ismax, area, flagMergeThr)
		}
	}
}

// dividePoly splits the polygon at in by the plane buf[axis] == x. The part on
// the low side goes to out1, the rest to out2.
func dividePoly(buf []float32, in, nin, out1, out2 int, x float32, axis int) (int, int) {
	var d [12]float32
	for i := 0; i < nin; i++ {
		d[i] = x - buf[in+i*3+axis]
	}
	m, n := 0, 0
	for i, j := 0, nin-1; i < nin; j, i = i, i+1 {
		ina := d[j] >= 0
		inb := d[i] >= 0
		if ina != inb {
			s := d[j] / (d[j] - d[i])
			for k := 0; k < 3; k++ {
				buf[out1+m*3+k] = buf[in+j*3+k] + (buf[in+i*3+k]-buf[in+j*3+k])*s
			}
			copy(buf[out2+n*3:out2+n*3+3], buf[out1+m*3:out1+m*3+3])
			m++
			n++
			// Points on the dividing line were added above.
			if d[i] > 0 {
				copy(buf[out1+m*3:out1+m*3+3], buf[in+i*3:in+i*3+3])
				m++
			} else if d[i] < 0 {
				copy(buf[out2+n*3:out2+n*3+3], buf[in+i*3:in+i*3+3])
				n++
			}
			continue
		}
		if d[i] >= 0 {
			copy(buf[out1+m*3:out1+m*3+3], buf[in+i*3:in+i*3+3])
			m++
			if d[i] != 0 {
				continue
			}
		}
		copy(buf[out2+n*3:out2+n*3+3], buf[in+i*3:in+i*3+3])
		n++
	}
	return m, n
}

func (hf *Heightfield) addSpan(x, y, smin, smax, area, flagMergeThr int) {
	idx := x + y*hf.width
	s := hf.allocSpan()
	s.smin, s.smax, s.area = smin, smax, area

	var prev *Span
	cur := hf.spans[idx]
	for cur != nil {
		if cur.smin > s.smax {
			break
		}
		if cur.smax < s.smin {
			prev = cur
			cur = cur.next
			continue
		}
		// Overlap: merge cur into s.
		s.smin = min(s.smin, cur.smin)
		s.smax = max(s.smax, cur.smax)
		if absInt(s.smax-cur.smax) <= flagMergeThr {
			s.area = max(s.area, cur.area)
		}
		next := cur.next
		hf.freeSpan(cur)
		if prev != nil {
			prev.next = next
		} else {
			hf.spans[idx] = next
		}
		cur = next
	}
	if prev != nil {
		s.next = prev.next
		prev.next = s
	} else {
		s.next = hf.spans[idx]
		hf.spans[idx] = s
	}
}

// SpanCount returns the number of walkable spans.
func (hf *Heightfield) SpanCount() int {
	n := 0
	for _, s := range hf.spans {
		for ; s != nil; s = s.next {
			if s.area != AreaNull {
				n++
			}
		}
	}
	return n
}

package recast

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// PolyMeshDetail holds a height detail triangle mesh per polygon. Meshes
// stores vertBase, vertCount, triBase, triCount for each polygon; triangles
// are 3 local vertex indices plus edge flags.
type PolyMeshDetail struct {
	meshes []int
	verts  []float32
	tris   []int
	nverts int
	ntris  int
}

func (d *PolyMeshDetail) NMeshes() int { return len(d.meshes) / 4 }
func (d *PolyMeshDetail) Meshes() []int { return d.meshes }
func (d *PolyMeshDetail) NVerts() int { return d.nverts }
func (d *PolyMeshDetail) Verts() []float32 { return d.verts[:d.nverts*3] }
func (d *PolyMeshDetail) NTris() int { return d.ntris }
func (d *PolyMeshDetail) Tris() []int { return d.tris[:d.ntris*4] }

type heightPatch struct {
	data   []int
	xmin   int
	ymin   int
	width  int
	height int
}

// BuildPolyMeshDetail samples chf inside every polygon of mesh and adds
// vertices until the surface is within sampleMaxError of the field.
func BuildPolyMeshDetail(log *BuildLog, mesh *PolyMesh, chf *CompactHeightfield, sampleDist, sampleMaxError float32) (*PolyMeshDetail, error) {
	dmesh := &PolyMeshDetail{}
	if mesh.nverts == 0 || mesh.npolys == 0 {
		return dmesh, nil
	}
	nvp := mesh.nvp
	cs, ch := mesh.cs, mesh.ch
	orig := mesh.bmin
	borderSize := mesh.borderSize
	heightSearchRadius := max(1, int(math.Ceil(float64(mesh.maxEdgeErr))))

	bounds := make([]int, mesh.npolys*4)
	nPolyVerts := 0
	maxhw, maxhh := 0, 0
	for i := 0; i < mesh.npolys; i++ {
		p := i * nvp * 2
		b := bounds[i*4 : i*4+4]
		b[0], b[1], b[2], b[3] = chf.width, 0, chf.height, 0
		for j := 0; j < nvp && mesh.polys[p+j] != meshNullIdx; j++ {
			v := mesh.verts[mesh.polys[p+j]*3:]
			b[0] = min(b[0], v[0])
			b[1] = max(b[1], v[0])
			b[2] = min(b[2], v[2])
			b[3] = max(b[3], v[2])
			nPolyVerts++
		}
		b[0] = max(0, b[0]-1)
		b[1] = min(chf.width, b[1]+1)
		b[2] = max(0, b[2]-1)
		b[3] = min(chf.height, b[3]+1)
		if b[0] >= b[1] || b[2] >= b[3] {
			continue
		}
		maxhw = max(maxhw, b[1]-b[0])
		maxhh = max(maxhh, b[3]-b[2])
	}

	hp := &heightPatch{data: make([]int, maxhw*maxhh)}
	poly := make([]float32, nvp*3)
	verts := make([]float32, 256*3)
	var tris []int

	dmesh.meshes = make([]int, mesh.npolys*4)
	vcap := nPolyVerts + nPolyVerts/2
	dmesh.verts = make([]float32, 0, vcap*3)
	dmesh.tris = make([]int, 0, vcap*2*4)

	for i := 0; i < mesh.npolys; i++ {
		p := i * nvp * 2
		npoly := 0
		for j := 0; j < nvp && mesh.polys[p+j] != meshNullIdx; j++ {
			v := mesh.verts[mesh.polys[p+j]*3:]
			poly[j*3] = float32(v[0]) * cs
			poly[j*3+1] = float32(v[1]) * ch
			poly[j*3+2] = float32(v[2]) * cs
			npoly++
		}

		hp.xmin = bounds[i*4]
		hp.ymin = bounds[i*4+2]
		hp.width = bounds[i*4+1] - bounds[i*4]
		hp.height = bounds[i*4+3] - bounds[i*4+2]
		getHeightData(log, chf, mesh.polys[p:p+npoly], mesh.verts, borderSize, hp, mesh.regs[i])

		nverts, t, err := buildPolyDetail(log, poly, npoly, sampleDist, sampleMaxError, heightSearchRadius, chf, hp, verts, tris[:0])
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		tris = t

		for j := 0; j < nverts; j++ {
			verts[j*3] += orig[0]
			verts[j*3+1] += orig[1] + chf.ch
			verts[j*3+2] += orig[2]
		}
		for j := 0; j < npoly; j++ {
			poly[j*3] += orig[0]
			poly[j*3+1] += orig[1]
			poly[j*3+2] += orig[2]
		}

		ntris := len(tris) / 4
		dmesh.meshes[i*4] = dmesh.nverts
		dmesh.meshes[i*4+1] = nverts
		dmesh.meshes[i*4+2] = dmesh.ntris
		dmesh.meshes[i*4+3] = ntris

		dmesh.verts = append(dmesh.verts, verts[:nverts*3]...)
		dmesh.nverts += nverts
		for j := 0; j < ntris; j++ {
			t := tris[j*4:]
			flags := triEdgeFlags(verts[t[0]*3:], verts[t[1]*3:], verts[t[2]*3:], poly[:npoly*3])
			dmesh.tris = append(dmesh.tris, t[0], t[1], t[2], flags)
		}
		dmesh.ntris += ntris
	}
	return dmesh, nil
}

// triEdgeFlags marks, 2 bits per edge, which triangle edges lie on the polygon boundary.
func triEdgeFlags(va, vb, vc, poly []float32) int {
	return edgeFlag(va, vb, poly) | edgeFlag(vb, vc, poly)<<2 | edgeFlag(vc, va, poly)<<4
}

func edgeFlag(va, vb, poly []float32) int {
	const thrSqr = 0.001 * 0.001
	n := len(poly) / 3
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if distancePtSeg2d(va, poly[j*3:], poly[i*3:]) < thrSqr &&
			distancePtSeg2d(vb, poly[j*3:], poly[i*3:]) < thrSqr {
			return 1
		}
	}
	return 0
}

func buildPolyDetail(log *BuildLog, in []float32, nin int, sampleDist, sampleMaxError float32, heightSearchRadius int,
	chf *CompactHeightfield, hp *heightPatch, verts []float32, tris []int) (int, []int, error) {
	var edge [(maxVertsEdge + 1) * 3]float32
	var idx [maxVertsEdge]int
	hull := make([]int, 0, maxDetailVert)

	nverts := nin
	copy(verts, in[:nin*3])

	cs := chf.cs
	ics := 1 / cs
	minExtent := polyMinExtent(verts[:nverts*3])

	// Tessellate the outline first so neighbouring polygons share edge heights.
	if sampleDist > 0 {
		for i, j := 0, nin-1; i < nin; j, i = i, i+1 {
			vj := in[j*3 : j*3+3]
			vi := in[i*3 : i*3+3]
			swapped := false
			// Lexicographic order keeps both sides of an edge identical.
			if mgl32.Abs(vj[0]-vi[0]) < 1e-6 {
				if vj[2] > vi[2] {
					vi, vj = vj, vi
					swapped = true
				}
			} else if vj[0] > vi[0] {
				vi, vj = vj, vi
				swapped = true
			}

			dx, dy, dz := vi[0]-vj[0], vi[1]-vj[1], vi[2]-vj[2]
			d := float32(math.Sqrt(float64(dx*dx + dz*dz)))
			nn := 1 + int(math.Floor(float64(d/sampleDist)))
			if nn >= maxVertsEdge {
				nn = maxVertsEdge - 1
			}
			if nverts+nn >= maxDetailVert {
				nn = maxDetailVert - 1 - nverts
			}
			for k := 0; k <= nn; k++ {
				u := float32(k) / float32(nn)
				pos := edge[k*3 : k*3+3]
				pos[0] = vj[0] + dx*u
				pos[1] = vj[1] + dy*u
				pos[2] = vj[2] + dz*u
				pos[1] = float32(sampleHeight(pos[0], pos[1], pos[2], cs, ics, chf.ch, heightSearchRadius, hp)) * chf.ch
			}

			idx[0], idx[1] = 0, nn
			nidx := 2
			for k := 0; k < nidx-1; {
				a, b := idx[k], idx[k+1]
				maxd := float32(0)
				maxi := -1
				for m := a + 1; m < b; m++ {
					if dev := distancePtSeg3d(edge[m*3:], edge[a*3:], edge[b*3:]); dev > maxd {
						maxd = dev
						maxi = m
					}
				}
				if maxi != -1 && maxd > sampleMaxError*sampleMaxError {
					copy(idx[k+2:nidx+1], idx[k+1:nidx])
					idx[k+1] = maxi
					nidx++
				} else {
					k++
				}
			}

			hull = append(hull, j)
			if swapped {
				for k := nidx - 2; k > 0; k-- {
					copy(verts[nverts*3:nverts*3+3], edge[idx[k]*3:])
					hull = append(hull, nverts)
					nverts++
				}
			} else {
				for k := 1; k < nidx-1; k++ {
					copy(verts[nverts*3:nverts*3+3], edge[idx[k]*3:])
					hull = append(hull, nverts)
					nverts++
				}
			}
		}
	}

	if len(hull) == 0 {
		for i := 0; i < nin; i++ {
			hull = append(hull, i)
		}
	}

	if minExtent < sampleDist*2 {
		return nverts, triangulateHull(verts, hull, tris), nil
	}

	tris = triangulateHull(verts, hull, tris)
	if len(tris) == 0 {
		return 0, nil, fmt.Errorf("%w: detail hull of %d vertices", ErrTriangulation, nverts)
	}

	if sampleDist > 0 {
		bmin := mgl32.Vec3{in[0], in[1], in[2]}
		bmax := bmin
		for i := 1; i < nin; i++ {
			for k := 0; k < 3; k++ {
				bmin[k] = min(bmin[k], in[i*3+k])
				bmax[k] = max(bmax[k], in[i*3+k])
			}
		}
		x0 := int(math.Floor(float64(bmin[0] / sampleDist)))
		x1 := int(math.Ceil(float64(bmax[0] / sampleDist)))
		z0 := int(math.Floor(float64(bmin[2] / sampleDist)))
		z1 := int(math.Ceil(float64(bmax[2] / sampleDist)))
		var samples []int
		for z := z0; z < z1; z++ {
			for x := x0; x < x1; x++ {
				pt := mgl32.Vec3{float32(x) * sampleDist, (bmax[1] + bmin[1]) * 0.5, float32(z) * sampleDist}
				if distToPoly(in[:nin*3], pt[:]) > -sampleDist/2 {
					continue
				}
				samples = append(samples, x, sampleHeight(pt[0], pt[1], pt[2], cs, ics, chf.ch, heightSearchRadius, hp), z, 0)
			}
		}

		// Add the sample with the largest error until all are within tolerance.
		nsamples := len(samples) / 4
		for iter := 0; iter < nsamples && nverts < maxDetailVert; iter++ {
			var bestpt mgl32.Vec3
			bestd := float32(0)
			besti := -1
			for i := 0; i < nsamples; i++ {
				s := samples[i*4 : i*4+4]
				if s[3] != 0 {
					continue
				}
				// Jitter breaks the symmetry of the sample grid.
				pt := mgl32.Vec3{
					float32(s[0])*sampleDist + jitterX(i)*cs*0.1,
					float32(s[1]) * chf.ch,
					float32(s[2])*sampleDist + jitterY(i)*cs*0.1,
				}
				d := distToTriMesh(pt[:], verts, tris)
				if d < 0 {
					continue
				}
				if d > bestd {
					bestd = d
					besti = i
					bestpt = pt
				}
			}
			if bestd <= sampleMaxError || besti == -1 {
				break
			}
			samples[besti*4+3] = 1
			copy(verts[nverts*3:nverts*3+3], bestpt[:])
			nverts++

			var err error
			if tris, err = delaunayHull(log, verts[:nverts*3], hull, tris[:0]); err != nil {
				return 0, nil, err
			}
		}
	}

	if ntris := len(tris) / 4; ntris > maxDetailTris {
		log.Warnf("detail: shrinking triangle count from %d to %d", ntris, maxDetailTris)
		tris = tris[:maxDetailTris*4]
	}
	return nverts, tris, nil
}

// triangulateHull fans the hull starting from the ear with the shortest
// perimeter, then advances whichever side yields the shorter triangle.
func triangulateHull(verts []float32, hull []int, tris []int) []int {
	nhull := len(hull)
	if nhull < 3 {
		return tris
	}
	start, left, right := 0, 1, nhull-1
	dmin := float32(math.MaxFloat32)
	for i := 0; i < nhull; i++ {
		pi, ni := prev(i, nhull), next(i, nhull)
		pv, cv, nv := verts[hull[pi]*3:], verts[hull[i]*3:], verts[hull[ni]*3:]
		d := dist2d(pv, cv) + dist2d(cv, nv) + dist2d(nv, pv)
		if d < dmin {
			start, left, right = i, ni, pi
			dmin = d
		}
	}
	tris = append(tris, hull[start], hull[left], hull[right], 0)

	for next(left, nhull) != right {
		nleft := next(left, nhull)
		nright := prev(right, nhull)
		cvleft, nvleft := verts[hull[left]*3:], verts[hull[nleft]*3:]
		cvright, nvright := verts[hull[right]*3:], verts[hull[nright]*3:]
		dleft := dist2d(cvleft, nvleft) + dist2d(nvleft, cvright)
		dright := dist2d(cvright, nvright) + dist2d(cvleft, nvright)
		if dleft < dright {
			tris = append(tris, hull[left], hull[nleft], hull[right], 0)
			left = nleft
		} else {
			tris = append(tris, hull[left], hull[nright], hull[right], 0)
			right = nright
		}
	}
	return tris
}

// delaunayEdges stores s, t, left face, right face per edge.
type delaunayEdges struct {
	e   []int
	max int
}

func (de *delaunayEdges) n() int { return len(de.e) / 4 }

func (de *delaunayEdges) find(s, t int) int {
	for i := 0; i < de.n(); i++ {
		e := de.e[i*4:]
		if (e[0] == s && e[1] == t) || (e[0] == t && e[1] == s) {
			return i
		}
	}
	return evUndef
}

func (de *delaunayEdges) add(s, t, l, r int) error {
	if de.n() >= de.max {
		return fmt.Errorf("%w: more than %d delaunay edges", ErrDetailOverflow, de.max)
	}
	if de.find(s, t) == evUndef {
		de.e = append(de.e, s, t, l, r)
	}
	return nil
}

func (de *delaunayEdges) updateLeftFace(i, s, t, f int) {
	e := de.e[i*4:]
	if e[0] == s && e[1] == t && e[2] == evUndef {
		e[2] = f
	} else if e[1] == s && e[0] == t && e[3] == evUndef {
		e[3] = f
	}
}

func (de *delaunayEdges) overlaps(pts []float32, s1, t1 int) bool {
	for i := 0; i < de.n(); i++ {
		s0, t0 := de.e[i*4], de.e[i*4+1]
		if s0 == s1 || s0 == t1 || t0 == s1 || t0 == t1 {
			continue
		}
		if overlapSegSeg2d(pts[s0*3:], pts[t0*3:], pts[s1*3:], pts[t1*3:]) {
			return true
		}
	}
	return false
}

func delaunayHull(log *BuildLog, pts []float32, hull []int, tris []int) ([]int, error) {
	npts := len(pts) / 3
	de := &delaunayEdges{max: npts * 10}
	for i, j := 0, len(hull)-1; i < len(hull); j, i = i, i+1 {
		if err := de.add(hull[j], hull[i], evHull, evUndef); err != nil {
			return nil, err
		}
	}
	nfaces := 0
	for cur := 0; cur < de.n(); cur++ {
		var err error
		if de.e[cur*4+2] == evUndef {
			if nfaces, err = completeFacet(pts, de, nfaces, cur); err != nil {
				return nil, err
			}
		}
		if de.e[cur*4+3] == evUndef {
			if nfaces, err = completeFacet(pts, de, nfaces, cur); err != nil {
				return nil, err
			}
		}
	}

	for i := 0; i < nfaces; i++ {
		tris = append(tris, -1, -1, -1, -1)
	}
	for i := 0; i < de.n(); i++ {
		e := de.e[i*4:]
		if e[3] >= 0 {
			t := tris[e[3]*4:]
			switch {
			case t[0] == -1:
				t[0], t[1] = e[0], e[1]
			case t[0] == e[1]:
				t[2] = e[0]
			case t[1] == e[0]:
				t[2] = e[1]
			}
		}
		if e[2] >= 0 {
			t := tris[e[2]*4:]
			switch {
			case t[0] == -1:
				t[0], t[1] = e[1], e[0]
			case t[0] == e[0]:
				t[2] = e[1]
			case t[1] == e[1]:
				t[2] = e[0]
			}
		}
	}
	for i := 0; i < len(tris)/4; i++ {
		t := tris[i*4 : i*4+4]
		if t[0] == -1 || t[1] == -1 || t[2] == -1 {
			log.Warnf("detail: removing dangling face %d [%d,%d,%d]", i, t[0], t[1], t[2])
			copy(t, tris[len(tris)-4:])
			tris = tris[:len(tris)-4]
			i--
		}
	}
	return tris, nil
}

func completeFacet(pts []float32, de *delaunayEdges, nfaces, e int) (int, error) {
	const eps = 1e-5
	const tol = 0.001
	edge := de.e[e*4:]
	var s, t int
	switch {
	case edge[2] == evUndef:
		s, t = edge[0], edge[1]
	case edge[3] == evUndef:
		s, t = edge[1], edge[0]
	default:
		return nfaces, nil
	}

	npts := len(pts) / 3
	pt := npts
	var c mgl32.Vec3
	r := float32(-1)
	for u := 0; u < npts; u++ {
		if u == s || u == t {
			continue
		}
		if cross2d(pts[s*3:], pts[t*3:], pts[u*3:]) <= eps {
			continue
		}
		if r < 0 {
			pt = u
			c, r = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:])
			continue
		}
		d := dist2d(c[:], pts[u*3:])
		switch {
		case d > r*(1+tol):
			continue
		case d < r*(1-tol):
			pt = u
			c, r = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:])
		default:
			if de.overlaps(pts, s, u) || de.overlaps(pts, t, u) {
				continue
			}
			pt = u
			c, r = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:])
		}
	}

	if pt >= npts {
		de.updateLeftFace(e, s, t, evHull)
		return nfaces, nil
	}
	de.updateLeftFace(e, s, t, nfaces)
	if ei := de.find(pt, s); ei == evUndef {
		if err := de.add(pt, s, nfaces, evUndef); err != nil {
			return nfaces, err
		}
	} else {
		de.updateLeftFace(ei, pt, s, nfaces)
	}
	if ei := de.find(t, pt); ei == evUndef {
		if err := de.add(t, pt, nfaces, evUndef); err != nil {
			return nfaces, err
		}
	} else {
		de.updateLeftFace(ei, t, pt, nfaces)
	}
	return nfaces + 1, nil
}

func circumCircle(p1, p2, p3 []float32) (mgl32.Vec3, float32) {
	const eps = 1e-6
	// Relative to p1 for precision.
	v2 := mgl32.Vec3{p2[0] - p1[0], p2[1] - p1[1], p2[2] - p1[2]}
	v3 := mgl32.Vec3{p3[0] - p1[0], p3[1] - p1[1], p3[2] - p1[2]}
	cp := v2[0]*v3[2] - v2[2]*v3[0]
	if mgl32.Abs(cp) <= eps {
		return mgl32.Vec3{p1[0], p1[1], p1[2]}, 0
	}
	v2Sq := v2[0]*v2[0] + v2[2]*v2[2]
	v3Sq := v3[0]*v3[0] + v3[2]*v3[2]
	c := mgl32.Vec3{
		(v2Sq*v3[2] - v3Sq*v2[2]) / (2 * cp),
		0,
		(v3Sq*v2[0] - v2Sq*v3[0]) / (2 * cp),
	}
	r := float32(math.Sqrt(float64(c[0]*c[0] + c[2]*c[2])))
	return c.Add(mgl32.Vec3{p1[0], p1[1], p1[2]}), r
}

func cross2d(p1, p2, p3 []float32) float32 {
	u1, v1 := p2[0]-p1[0], p2[2]-p1[2]
	u2, v2 := p3[0]-p1[0], p3[2]-p1[2]
	return u1*v2 - v1*u2
}

func overlapSegSeg2d(a, b, c, d []float32) bool {
	a1 := cross2d(a, b, d)
	a2 := cross2d(a, b, c)
	if a1*a2 < 0 {
		a3 := cross2d(c, d, a)
		a4 := a3 + a2 - a1
		if a3*a4 < 0 {
			return true
		}
	}
	return false
}

func dist2d(p, q []float32) float32 {
	dx, dz := q[0]-p[0], q[2]-p[2]
	return float32(math.Sqrt(float64(dx*dx + dz*dz)))
}

// distToTriMesh returns the vertical distance from p to the triangle below
// or above it, or -1 when p is outside every triangle.
func distToTriMesh(p, verts []float32, tris []int) float32 {
	dmin := float32(math.MaxFloat32)
	for i := 0; i < len(tris)/4; i++ {
		t := tris[i*4:]
		if d := distPtTri(p, verts[t[0]*3:], verts[t[1]*3:], verts[t[2]*3:]); d < dmin {
			dmin = d
		}
	}
	if dmin == math.MaxFloat32 {
		return -1
	}
	return dmin
}

func distPtTri(p, a, b, c []float32) float32 {
	v0 := mgl32.Vec3{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	v1 := mgl32.Vec3{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	v2 := mgl32.Vec3{p[0] - a[0], p[1] - a[1], p[2] - a[2]}
	dot2 := func(u, v mgl32.Vec3) float32 { return u[0]*v[0] + u[2]*v[2] }
	dot00, dot01, dot02 := dot2(v0, v0), dot2(v0, v1), dot2(v0, v2)
	dot11, dot12 := dot2(v1, v1), dot2(v1, v2)

	invDenom := 1 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom
	const eps = 1e-4
	if u >= -eps && v >= -eps && u+v <= 1+eps {
		y := a[1] + v0[1]*u + v1[1]*v
		return mgl32.Abs(y - p[1])
	}
	return math.MaxFloat32
}

func jitterX(i int) float32 { return float32(uint32(i)*0x8da6b343&0xffff)/65535*2 - 1 }
func jitterY(i int) float32 { return float32(uint32(i)*0xd8163841&0xffff)/65535*2 - 1 }

// distToPoly returns the xz distance from p to the polygon outline, negative inside.
func distToPoly(poly, p []float32) float32 {
	n := len(poly) / 3
	dmin := float32(math.MaxFloat32)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := poly[i*3:], poly[j*3:]
		if (vi[2] > p[2]) != (vj[2] > p[2]) &&
			p[0] < (vj[0]-vi[0])*(p[2]-vi[2])/(vj[2]-vi[2])+vi[0] {
			inside = !inside
		}
		dmin = min(dmin, distancePtSeg2d(p, vj, vi))
	}
	if inside {
		return -dmin
	}
	return dmin
}

func polyMinExtent(verts []float32) float32 {
	n := len(verts) / 3
	minDist := float32(math.MaxFloat32)
	for i := 0; i < n; i++ {
		ni := (i + 1) % n
		maxEdgeDist := float32(0)
		for j := 0; j < n; j++ {
			if j == i || j == ni {
				continue
			}
			maxEdgeDist = max(maxEdgeDist, distancePtSeg2d(verts[j*3:], verts[i*3:], verts[ni*3:]))
		}
		minDist = min(minDist, maxEdgeDist)
	}
	return float32(math.Sqrt(float64(minDist)))
}

func distancePtSeg2d(pt, p, q []float32) float32 {
	pqx, pqz := q[0]-p[0], q[2]-p[2]
	dx, dz := pt[0]-p[0], pt[2]-p[2]
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = mgl32.Clamp(t, 0, 1)
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz
}

func distancePtSeg3d(pt, p, q []float32) float32 {
	pq := mgl32.Vec3{q[0] - p[0], q[1] - p[1], q[2] - p[2]}
	dp := mgl32.Vec3{pt[0] - p[0], pt[1] - p[1], pt[2] - p[2]}
	d := pq.Dot(pq)
	t := pq.Dot(dp)
	if d > 0 {
		t /= d
	}
	t = mgl32.Clamp(t, 0, 1)
	return pq.Mul(t).Sub(dp).LenSqr()
}

// sampleHeight returns the patch height under (fx, fz). Unset cells are
// resolved by a spiral search that stops at the first ring holding a height.
func sampleHeight(fx, fy, fz, cs, ics, ch float32, radius int, hp *heightPatch) int {
	ix := int(math.Floor(float64(fx*ics + 0.01)))
	iz := int(math.Floor(float64(fz*ics + 0.01)))
	ix = clampInt(ix-hp.xmin, 0, hp.width-1)
	iz = clampInt(iz-hp.ymin, 0, hp.height-1)
	h := hp.data[ix+iz*hp.width]
	if h != unsetHeight {
		return h
	}

	x, z, dx, dz := 1, 0, 1, 0
	maxSize := radius*2 + 1
	maxIter := maxSize*maxSize - 1
	nextRingIterStart := 8
	nextRingIters := 16
	dmin := float32(math.MaxFloat32)
	for i := 0; i < maxIter; i++ {
		nx, nz := ix+x, iz+z
		if nx >= 0 && nz >= 0 && nx < hp.width && nz < hp.height {
			if nh := hp.data[nx+nz*hp.width]; nh != unsetHeight {
				if d := mgl32.Abs(float32(nh)*ch - fy); d < dmin {
					h = nh
					dmin = d
				}
			}
		}
		if i+1 == nextRingIterStart {
			if h != unsetHeight {
				break
			}
			nextRingIterStart += nextRingIters
			nextRingIters += 8
		}
		if x == z || (x < 0 && x == -z) || (x > 0 && x == 1-z) {
			dx, dz = -dz, dx
		}
		x += dx
		z += dz
	}
	return h
}

// getHeightData fills hp with span heights of the polygon's region, flooding
// outward from region borders. Polygon vertices exclude the border, field
// reads add it back.
func getHeightData(log *BuildLog, chf *CompactHeightfield, poly, verts []int, bs int, hp *heightPatch, region int) {
	data := hp.data[:hp.width*hp.height]
	for i := range data {
		data[i] = unsetHeight
	}
	var queue []int
	empty := true

	// Merged polygons spanning several regions may overlap others; seed from the centre instead.
	if region != multipleRegs {
		for hy := 0; hy < hp.height; hy++ {
			y := hp.ymin + hy + bs
			for hx := 0; hx < hp.width; hx++ {
				x := hp.xmin + hx + bs
				c := &chf.cells[x+y*chf.width]
				for i := c.index; i < c.index+c.count; i++ {
					s := &chf.spans[i]
					if s.reg != region {
						continue
					}
					data[hx+hy*hp.width] = s.y
					empty = false
					border := false
					for dir := 0; dir < 4; dir++ {
						if s.getCon(dir) == notConnected {
							continue
						}
						if _, _, ai := chf.neighbour(x, y, dir, s); chf.spans[ai].reg != region {
							border = true
							break
						}
					}
					if border {
						queue = append(queue, x, y, i)
					}
					break
				}
			}
		}
	}

	if empty {
		queue = seedWithPolyCenter(log, chf, poly, verts, bs, hp, queue[:0])
	}

	for head := 0; head*3 < len(queue); head++ {
		cx, cy, ci := queue[head*3], queue[head*3+1], queue[head*3+2]
		cs := &chf.spans[ci]
		for dir := 0; dir < 4; dir++ {
			if cs.getCon(dir) == notConnected {
				continue
			}
			ax, ay, ai := chf.neighbour(cx, cy, dir, cs)
			hx := ax - hp.xmin - bs
			hy := ay - hp.ymin - bs
			if hx < 0 || hx >= hp.width || hy < 0 || hy >= hp.height {
				continue
			}
			if data[hx+hy*hp.width] != unsetHeight {
				continue
			}
			data[hx+hy*hp.width] = chf.spans[ai].y
			queue = append(queue, ax, ay, ai)
		}
	}
}

// seedWithPolyCenter walks from the span closest to a polygon vertex to the
// polygon centre and returns that span as the single flood seed.
func seedWithPolyCenter(log *BuildLog, chf *CompactHeightfield, poly, verts []int, bs int, hp *heightPatch, stack []int) []int {
	offset := [18]int{0, 0, -1, -1, 0, -1, 1, -1, 1, 0, 1, 1, 0, 1, -1, 1, -1, 0}
	npoly := len(poly)

	startX, startY, startSpan := 0, 0, -1
	dmin := unsetHeight
	for j := 0; j < npoly && dmin > 0; j++ {
		v := verts[poly[j]*3:]
		for k := 0; k < 9 && dmin > 0; k++ {
			ax := v[0] + offset[k*2]
			ay := v[1]
			az := v[2] + offset[k*2+1]
			if ax < hp.xmin || ax >= hp.xmin+hp.width || az < hp.ymin || az >= hp.ymin+hp.height {
				continue
			}
			c := &chf.cells[(ax+bs)+(az+bs)*chf.width]
			for i := c.index; i < c.index+c.count && dmin > 0; i++ {
				if d := absInt(ay - chf.spans[i].y); d < dmin {
					startX, startY, startSpan = ax, az, i
					dmin = d
				}
			}
		}
	}
	if startSpan < 0 {
		log.Warnf("detail: no span under polygon to seed height data")
		return stack
	}

	pcx, pcy := 0, 0
	for _, vi := range poly {
		pcx += verts[vi*3]
		pcy += verts[vi*3+2]
	}
	pcx /= npoly
	pcy /= npoly

	data := hp.data[:hp.width*hp.height]
	for i := range data {
		data[i] = 0
	}
	stack = append(stack, startX, startY, startSpan)
	dirs := [4]int{0, 1, 2, 3}
	cx, cy, ci := startX, startY, startSpan

	// Depth first so a walk blocked by simplification can back out.
	for {
		if len(stack) < 3 {
			log.Warnf("detail: walk towards polygon centre failed")
			break
		}
		n := len(stack)
		cx, cy, ci = stack[n-3], stack[n-2], stack[n-1]
		stack = stack[:n-3]
		if cx == pcx && cy == pcy {
			break
		}

		var directDir int
		if cx == pcx {
			if pcy > cy {
				directDir = dirForOffset(0, 1)
			} else {
				directDir = dirForOffset(0, -1)
			}
		} else if pcx > cx {
			directDir = dirForOffset(1, 0)
		} else {
			directDir = dirForOffset(-1, 0)
		}

		// The direct direction goes last so it is popped first.
		dirs[3], dirs[directDir] = dirs[directDir], dirs[3]
		cs := &chf.spans[ci]
		for _, dir := range dirs {
			if cs.getCon(dir) == notConnected {
				continue
			}
			nx := cx + dirOffX(dir)
			ny := cy + dirOffY(dir)
			hpx, hpy := nx-hp.xmin, ny-hp.ymin
			if hpx < 0 || hpx >= hp.width || hpy < 0 || hpy >= hp.height {
				continue
			}
			if data[hpx+hpy*hp.width] != 0 {
				continue
			}
			data[hpx+hpy*hp.width] = 1
			stack = append(stack, nx, ny, chf.cells[(nx+bs)+(ny+bs)*chf.width].index+cs.getCon(dir))
		}
		dirs[3], dirs[directDir] = dirs[directDir], dirs[3]
	}

	for i := range data {
		data[i] = unsetHeight
	}
	data[cx-hp.xmin+(cy-hp.ymin)*hp.width] = chf.spans[ci].y
	return append(stack[:0], cx+bs, cy+bs, ci)
}

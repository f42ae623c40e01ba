package recast

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Contour is a simplified region outline. Vertices are 4 ints each:
// x, y, z in cells and the neighbour region id plus vertex flags.
type Contour struct {
	verts  []int
	rverts []int
	reg    int
	area   int
}

func (c *Contour) nverts() int { return len(c.verts) / 4 }

// ContourSet holds the contours of one tile with the border offset removed.
type ContourSet struct {
	conts      []*Contour
	bmin       mgl32.Vec3
	bmax       mgl32.Vec3
	cs         float32
	ch         float32
	width      int
	height     int
	borderSize int
	maxError   float32
}

// Len returns the number of contours.
func (cset *ContourSet) Len() int { return len(cset.conts) }

// BuildContours traces the boundary of every region in chf and simplifies it
// so that no raw vertex deviates more than maxError cells. Edges longer than
// maxEdgeLen are split when the tessellation flags allow it, 0 disables splitting.
func BuildContours(log *BuildLog, chf *CompactHeightfield, maxError float32, maxEdgeLen int, buildFlags int) (*ContourSet, error) {
	w, h := chf.width, chf.height
	borderSize := chf.borderSize
	cset := &ContourSet{
		bmin:       chf.bmin,
		bmax:       chf.bmax,
		cs:         chf.cs,
		ch:         chf.ch,
		width:      chf.width - borderSize*2,
		height:     chf.height - borderSize*2,
		borderSize: borderSize,
		maxError:   maxError,
	}
	if borderSize > 0 {
		pad := float32(borderSize) * chf.cs
		cset.bmin[0] += pad
		cset.bmin[2] += pad
		cset.bmax[0] -= pad
		cset.bmax[2] -= pad
	}

	// Mark the edges that face another region.
	flags := make([]int, chf.spanCount)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				if s.reg == 0 || s.reg&borderReg != 0 {
					continue
				}
				res := 0
				for dir := 0; dir < 4; dir++ {
					r := 0
					if s.getCon(dir) != notConnected {
						_, _, ai := chf.neighbour(x, y, dir, s)
						r = chf.spans[ai].reg
					}
					if r == s.reg {
						res |= 1 << uint(dir)
					}
				}
				flags[i] = res ^ 0xf
			}
		}
	}

	var verts, simplified []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				if flags[i] == 0 || flags[i] == 0xf {
					flags[i] = 0
					continue
				}
				reg := chf.spans[i].reg
				if reg == 0 || reg&borderReg != 0 {
					continue
				}
				verts = walkRegionContour(x, y, i, chf, flags, verts[:0])
				simplified = simplifyContour(verts, simplified[:0], maxError, maxEdgeLen, buildFlags)
				simplified = removeDegenerateSegments(simplified)
				if len(simplified)/4 < 3 {
					continue
				}
				cont := &Contour{
					verts:  append([]int(nil), simplified...),
					rverts: append([]int(nil), verts...),
					reg:    reg,
					area:   chf.areas[i],
				}
				if borderSize > 0 {
					for j := 0; j < len(cont.verts); j += 4 {
						cont.verts[j] -= borderSize
						cont.verts[j+2] -= borderSize
					}
					for j := 0; j < len(cont.rverts); j += 4 {
						cont.rverts[j] -= borderSize
						cont.rverts[j+2] -= borderSize
					}
				}
				cset.conts = append(cset.conts, cont)
			}
		}
	}

	if err := mergeHoles(log, cset, chf.maxRegions); err != nil {
		return nil, err
	}
	return cset, nil
}

// walkRegionContour walks the outline of the region containing span i and
// appends the raw corner vertices to points.
func walkRegionContour(x, y, i int, chf *CompactHeightfield, flags []int, points []int) []int {
	dir := 0
	for flags[i]&(1<<uint(dir)) == 0 {
		dir++
	}
	startDir := dir
	starti := i
	area := chf.areas[i]

	for iter := 1; iter < maxContourWalk; iter++ {
		s := &chf.spans[i]
		if flags[i]&(1<<uint(dir)) != 0 {
			py, isBorderVertex := cornerHeight(x, y, i, dir, chf)
			px, pz := x, y
			switch dir {
			case 0:
				pz++
			case 1:
				px++
				pz++
			case 2:
				px++
			}
			r := 0
			isAreaBorder := false
			if s.getCon(dir) != notConnected {
				_, _, ai := chf.neighbour(x, y, dir, s)
				r = chf.spans[ai].reg
				isAreaBorder = area != chf.areas[ai]
			}
			if isBorderVertex {
				r |= borderVertex
			}
			if isAreaBorder {
				r |= areaBorder
			}
			points = append(points, px, py, pz, r)
			flags[i] &^= 1 << uint(dir)
			dir = (dir + 1) & 0x3
		} else {
			if s.getCon(dir) == notConnected {
				return points
			}
			x, y, i = chf.neighbour(x, y, dir, s)
			dir = (dir + 3) & 0x3
		}
		if starti == i && startDir == dir {
			break
		}
	}
	return points
}

// cornerHeight returns the highest floor around the corner of span i in dir,
// and whether the corner sits on the tile border between two interior cells
// of the same area. Such vertices are removed later.
func cornerHeight(x, y, i, dir int, chf *CompactHeightfield) (int, bool) {
	s := &chf.spans[i]
	ch := s.y
	dirp := (dir + 1) & 0x3

	// Region and area are combined so vertices between two areas survive.
	var regs [4]int
	regs[0] = s.reg | chf.areas[i]<<16

	if s.getCon(dir) != notConnected {
		ax, ay, ai := chf.neighbour(x, y, dir, s)
		as := &chf.spans[ai]
		ch = max(ch, as.y)
		regs[1] = as.reg | chf.areas[ai]<<16
		if as.getCon(dirp) != notConnected {
			_, _, ai2 := chf.neighbour(ax, ay, dirp, as)
			ch = max(ch, chf.spans[ai2].y)
			regs[2] = chf.spans[ai2].reg | chf.areas[ai2]<<16
		}
	}
	if s.getCon(dirp) != notConnected {
		ax, ay, ai := chf.neighbour(x, y, dirp, s)
		as := &chf.spans[ai]
		ch = max(ch, as.y)
		regs[3] = as.reg | chf.areas[ai]<<16
		if as.getCon(dir) != notConnected {
			_, _, ai2 := chf.neighbour(ax, ay, dir, as)
			ch = max(ch, chf.spans[ai2].y)
			regs[2] = chf.spans[ai2].reg | chf.areas[ai2]<<16
		}
	}

	for j := 0; j < 4; j++ {
		a := j
		b := (j + 1) & 0x3
		c := (j + 2) & 0x3
		d := (j + 3) & 0x3
		twoSameExts := regs[a]&regs[b]&borderReg != 0 && regs[a] == regs[b]
		twoInts := (regs[c]|regs[d])&borderReg == 0
		intsSameArea := regs[c]>>16 == regs[d]>>16
		noZeros := regs[a] != 0 && regs[b] != 0 && regs[c] != 0 && regs[d] != 0
		if twoSameExts && twoInts && intsSameArea && noZeros {
			return ch, true
		}
	}
	return ch, false
}

func simplifyContour(points, simplified []int, maxError float32, maxEdgeLen, buildFlags int) []int {
	pn := len(points) / 4

	hasConnections := false
	for i := 0; i < len(points); i += 4 {
		if points[i+3]&contourRegMsk != 0 {
			hasConnections = true
			break
		}
	}
	if hasConnections {
		// Seed with every vertex where the neighbouring region or area changes.
		for i := 0; i < pn; i++ {
			ii := (i + 1) % pn
			differentRegs := points[i*4+3]&contourRegMsk != points[ii*4+3]&contourRegMsk
			areaBorders := points[i*4+3]&areaBorder != points[ii*4+3]&areaBorder
			if differentRegs || areaBorders {
				simplified = append(simplified, points[i*4], points[i*4+1], points[i*4+2], i)
			}
		}
	}
	if len(simplified) == 0 {
		// Closed island: seed with the lower-left and upper-right vertices.
		lli, uri := 0, 0
		for i := 0; i < pn; i++ {
			x, z := points[i*4], points[i*4+2]
			if x < points[lli*4] || (x == points[lli*4] && z < points[lli*4+2]) {
				lli = i
			}
			if x > points[uri*4] || (x == points[uri*4] && z > points[uri*4+2]) {
				uri = i
			}
		}
		simplified = append(simplified,
			points[lli*4], points[lli*4+1], points[lli*4+2], lli,
			points[uri*4], points[uri*4+1], points[uri*4+2], uri)
	}

	// Insert the furthest raw point until every segment is within tolerance.
	maxErrSq := maxError * maxError
	for i := 0; i < len(simplified)/4; {
		ii := (i + 1) % (len(simplified) / 4)
		ax, az, ai := simplified[i*4], simplified[i*4+2], simplified[i*4+3]
		bx, bz, bi := simplified[ii*4], simplified[ii*4+2], simplified[ii*4+3]

		maxd := float32(0)
		maxi := -1
		var ci, cinc, endi int
		// Walk in lexicographic order so opposite segments simplify identically.
		if bx > ax || (bx == ax && bz > az) {
			cinc = 1
			ci = (ai + cinc) % pn
			endi = bi
		} else {
			cinc = pn - 1
			ci = (bi + cinc) % pn
			endi = ai
			ax, bx = bx, ax
			az, bz = bz, az
		}
		if points[ci*4+3]&contourRegMsk == 0 || points[ci*4+3]&areaBorder != 0 {
			for ci != endi {
				if d := distancePtSeg(points[ci*4], points[ci*4+2], ax, az, bx, bz); d > maxd {
					maxd = d
					maxi = ci
				}
				ci = (ci + cinc) % pn
			}
		}
		if maxi != -1 && maxd > maxErrSq {
			simplified = insertVert(simplified, i+1, points[maxi*4], points[maxi*4+1], points[maxi*4+2], maxi)
		} else {
			i++
		}
	}

	if maxEdgeLen > 0 && buildFlags&(contourTessWallEdges|contourTessAreaEdges) != 0 {
		for i := 0; i < len(simplified)/4; {
			ii := (i + 1) % (len(simplified) / 4)
			ax, az, ai := simplified[i*4], simplified[i*4+2], simplified[i*4+3]
			bx, bz, bi := simplified[ii*4], simplified[ii*4+2], simplified[ii*4+3]

			maxi := -1
			ci := (ai + 1) % pn
			tess := false
			if buildFlags&contourTessWallEdges != 0 && points[ci*4+3]&contourRegMsk == 0 {
				tess = true
			}
			if buildFlags&contourTessAreaEdges != 0 && points[ci*4+3]&areaBorder != 0 {
				tess = true
			}
			if tess {
				dx, dz := bx-ax, bz-az
				if dx*dx+dz*dz > maxEdgeLen*maxEdgeLen {
					n := bi - ai
					if bi < ai {
						n = bi + pn - ai
					}
					if n > 1 {
						if bx > ax || (bx == ax && bz > az) {
							maxi = (ai + n/2) % pn
						} else {
							maxi = (ai + (n+1)/2) % pn
						}
					}
				}
			}
			if maxi != -1 {
				simplified = insertVert(simplified, i+1, points[maxi*4], points[maxi*4+1], points[maxi*4+2], maxi)
			} else {
				i++
			}
		}
	}

	for i := 0; i < len(simplified)/4; i++ {
		// Edge flags come from the current raw point, the neighbour region from the next one.
		ai := (simplified[i*4+3] + 1) % pn
		bi := simplified[i*4+3]
		simplified[i*4+3] = points[ai*4+3]&(contourRegMsk|areaBorder) | points[bi*4+3]&borderVertex
	}
	return simplified
}

func insertVert(verts []int, at int, x, y, z, flags int) []int {
	verts = append(verts, 0, 0, 0, 0)
	copy(verts[(at+1)*4:], verts[at*4:len(verts)-4])
	verts[at*4] = x
	verts[at*4+1] = y
	verts[at*4+2] = z
	verts[at*4+3] = flags
	return verts
}

func distancePtSeg(x, z, px, pz, qx, qz int) float32 {
	pqx := float32(qx - px)
	pqz := float32(qz - pz)
	dx := float32(x - px)
	dz := float32(z - pz)
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = mgl32.Clamp(t, 0, 1)
	dx = float32(px) + t*pqx - float32(x)
	dz = float32(pz) + t*pqz - float32(z)
	return dx*dx + dz*dz
}

// removeDegenerateSegments drops vertices equal on the xz-plane to their
// successor; the triangulator cannot handle them.
func removeDegenerateSegments(simplified []int) []int {
	npts := len(simplified) / 4
	for i := 0; i < npts; i++ {
		ni := next(i, npts)
		if vequal(simplified[i*4:], simplified[ni*4:]) {
			simplified = append(simplified[:i*4], simplified[i*4+4:]...)
			npts--
		}
	}
	return simplified
}

func calcAreaOfPolygon2D(verts []int) int {
	n := len(verts) / 4
	area := 0
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := verts[i*4:], verts[j*4:]
		area += vi[0]*vj[2] - vj[0]*vi[2]
	}
	return (area + 1) / 2
}

type contourHole struct {
	contour    *Contour
	minx, minz int
	leftmost   int
}

type contourRegion struct {
	outline *Contour
	holes   []contourHole
}

type potentialDiagonal struct {
	vert int
	dist int
}

// mergeHoles splices every clockwise (hole) contour into the outline of its region.
func mergeHoles(log *BuildLog, cset *ContourSet, maxRegions int) error {
	if len(cset.conts) == 0 {
		return nil
	}
	winding := make([]int, len(cset.conts))
	nholes := 0
	for i, cont := range cset.conts {
		winding[i] = 1
		if calcAreaOfPolygon2D(cont.verts) < 0 {
			winding[i] = -1
			nholes++
		}
	}
	if nholes == 0 {
		return nil
	}

	regions := make([]contourRegion, maxRegions+1)
	for i, cont := range cset.conts {
		if cont.reg >= len(regions) {
			return fmt.Errorf("%w: region %d out of range", ErrBadContour, cont.reg)
		}
		reg := &regions[cont.reg]
		if winding[i] > 0 {
			if reg.outline != nil {
				return fmt.Errorf("%w: multiple outlines for region %d", ErrBadContour, cont.reg)
			}
			reg.outline = cont
		} else {
			reg.holes = append(reg.holes, contourHole{contour: cont})
		}
	}

	for i := range regions {
		reg := &regions[i]
		if len(reg.holes) == 0 {
			continue
		}
		if reg.outline == nil {
			// Self overlapping contours from too aggressive simplification end up here.
			return fmt.Errorf("%w: holes without outline for region %d", ErrBadContour, i)
		}
		mergeRegionHoles(log, reg)
	}
	return nil
}

func mergeRegionHoles(log *BuildLog, reg *contourRegion) {
	for i := range reg.holes {
		h := &reg.holes[i]
		h.minx, h.minz, h.leftmost = findLeftMostVertex(h.contour)
	}
	sort.SliceStable(reg.holes, func(a, b int) bool {
		ha, hb := reg.holes[a], reg.holes[b]
		if ha.minx == hb.minx {
			return ha.minz < hb.minz
		}
		return ha.minx < hb.minx
	})

	maxVerts := reg.outline.nverts()
	for _, h := range reg.holes {
		maxVerts += h.contour.nverts()
	}
	diags := make([]potentialDiagonal, 0, maxVerts)
	outline := reg.outline

	for i := range reg.holes {
		hole := reg.holes[i].contour
		index := -1
		bestVertex := reg.holes[i].leftmost
		for iter := 0; iter < hole.nverts(); iter++ {
			// The best vertex must lie in the cone of three consecutive outline vertices.
			diags = diags[:0]
			corner := hole.verts[bestVertex*4 : bestVertex*4+4]
			on := outline.nverts()
			for j := 0; j < on; j++ {
				if inCone(j, on, outline.verts, corner) {
					dx := outline.verts[j*4] - corner[0]
					dz := outline.verts[j*4+2] - corner[2]
					diags = append(diags, potentialDiagonal{vert: j, dist: dx*dx + dz*dz})
				}
			}
			sort.SliceStable(diags, func(a, b int) bool { return diags[a].dist < diags[b].dist })

			// Take the shortest diagonal that crosses neither the outline nor a remaining hole.
			index = -1
			for _, dg := range diags {
				pt := outline.verts[dg.vert*4 : dg.vert*4+4]
				crosses := intersectSegContour(pt, corner, dg.vert, outline.verts)
				for k := i; k < len(reg.holes) && !crosses; k++ {
					crosses = intersectSegContour(pt, corner, -1, reg.holes[k].contour.verts)
				}
				if !crosses {
					index = dg.vert
					break
				}
			}
			if index != -1 {
				break
			}
			bestVertex = (bestVertex + 1) % hole.nverts()
		}
		if index == -1 {
			log.Warnf("contours: no merge point for hole of region %d", outline.reg)
			continue
		}
		mergeContours(outline, hole, index, bestVertex)
	}
}

func findLeftMostVertex(c *Contour) (minx, minz, leftmost int) {
	minx, minz = c.verts[0], c.verts[2]
	for i := 1; i < c.nverts(); i++ {
		x, z := c.verts[i*4], c.verts[i*4+2]
		if x < minx || (x == minx && z < minz) {
			minx, minz, leftmost = x, z, i
		}
	}
	return
}

// intersectSegContour reports whether segment d0-d1 crosses any edge of the
// contour verts, skipping edges incident to vertex skip.
func intersectSegContour(d0, d1 []int, skip int, verts []int) bool {
	n := len(verts) / 4
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if skip == k || skip == k1 {
			continue
		}
		p0 := verts[k*4 : k*4+4]
		p1 := verts[k1*4 : k1*4+4]
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if intersect(d0, d1, p0, p1) {
			return true
		}
	}
	return false
}

// inCone reports whether pj lies in the cone of outline vertex i.
func inCone(i, n int, verts []int, pj []int) bool {
	pi := verts[i*4 : i*4+4]
	pi1 := verts[next(i, n)*4:]
	pin1 := verts[prev(i, n)*4:]
	if leftOn(pin1, pi, pi1) {
		return left(pi, pj, pin1) && left(pj, pi, pi1)
	}
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

// mergeContours appends cb to ca, joined by a doubled diagonal between ca[ia] and cb[ib].
func mergeContours(ca, cb *Contour, ia, ib int) {
	na, nb := ca.nverts(), cb.nverts()
	verts := make([]int, 0, (na+nb+2)*4)
	for i := 0; i <= na; i++ {
		src := ((ia + i) % na) * 4
		verts = append(verts, ca.verts[src:src+4]...)
	}
	for i := 0; i <= nb; i++ {
		src := ((ib + i) % nb) * 4
		verts = append(verts, cb.verts[src:src+4]...)
	}
	ca.verts = verts
	cb.verts = nil
}

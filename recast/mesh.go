package recast

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// PolyMesh is the convex polygon mesh of one tile. Vertices are cell
// coordinates relative to Bmin; each polygon takes 2*NVP indices, the
// vertex indices followed by the neighbour polygon per edge.
type PolyMesh struct {
	verts      []int
	polys      []int
	regs       []int
	flags      []int
	areas      []int
	nverts     int
	npolys     int
	maxpolys   int
	nvp        int
	bmin       mgl32.Vec3
	bmax       mgl32.Vec3
	cs         float32
	ch         float32
	borderSize int
	maxEdgeErr float32
}

func (m *PolyMesh) Verts() []int { return m.verts[:m.nverts*3] }
func (m *PolyMesh) NVerts() int { return m.nverts }
func (m *PolyMesh) Polys() []int { return m.polys[:m.npolys*m.nvp*2] }
func (m *PolyMesh) NPolys() int { return m.npolys }
func (m *PolyMesh) Regs() []int { return m.regs[:m.npolys] }
func (m *PolyMesh) Areas() []int { return m.areas[:m.npolys] }
func (m *PolyMesh) Flags() []int { return m.flags[:m.npolys] }
func (m *PolyMesh) NVP() int { return m.nvp }
func (m *PolyMesh) Bmin() mgl32.Vec3 { return m.bmin }
func (m *PolyMesh) Bmax() mgl32.Vec3 { return m.bmax }
func (m *PolyMesh) Cs() float32 { return m.cs }
func (m *PolyMesh) Ch() float32 { return m.ch }
func (m *PolyMesh) BorderSize() int { return m.borderSize }
func (m *PolyMesh) MaxEdgeError() float32 { return m.maxEdgeErr }

// PolyVertCount returns the number of used vertex slots of polygon i.
func (m *PolyMesh) PolyVertCount(i int) int {
	return countPolyVerts(m.polys, i*m.nvp*2, m.nvp)
}

// SetAreaFlags assigns PolyFlagWalk to every walkable polygon and clears the rest.
func (m *PolyMesh) SetAreaFlags() {
	for i := 0; i < m.npolys; i++ {
		if m.areas[i] == AreaWalkable {
			m.flags[i] = PolyFlagWalk
		} else {
			m.flags[i] = 0
		}
	}
}

// BuildPolyMesh triangulates every contour and merges the triangles into
// convex polygons of at most nvp vertices.
func BuildPolyMesh(log *BuildLog, cset *ContourSet, nvp int) (*PolyMesh, error) {
	if nvp < 3 || nvp > MaxVertsPerPoly {
		return nil, configError("verts_per_poly", "%d not in [3, %d]", nvp, MaxVertsPerPoly)
	}
	mesh := &PolyMesh{
		bmin:       cset.bmin,
		bmax:       cset.bmax,
		cs:         cset.cs,
		ch:         cset.ch,
		borderSize: cset.borderSize,
		maxEdgeErr: cset.maxError,
		nvp:        nvp,
	}

	maxVertices, maxTris, maxVertsPerCont := 0, 0, 0
	for _, c := range cset.conts {
		if c.nverts() < 3 {
			continue
		}
		maxVertices += c.nverts()
		maxTris += c.nverts() - 2
		maxVertsPerCont = max(maxVertsPerCont, c.nverts())
	}
	if maxVertices >= 0xfffe {
		return nil, fmt.Errorf("%w: %d contour vertices", ErrTooManyVertices, maxVertices)
	}

	vflags := make([]bool, maxVertices)
	mesh.verts = make([]int, maxVertices*3)
	mesh.polys = make([]int, maxTris*nvp*2)
	fillNull(mesh.polys)
	mesh.regs = make([]int, maxTris)
	mesh.areas = make([]int, maxTris)
	mesh.maxpolys = maxTris

	vh := newVertexHash(maxVertices)
	indices := make([]int, maxVertsPerCont)
	tris := make([]int, maxVertsPerCont*3)
	pm := newPolyMerger(maxVertsPerCont, nvp)

	for ci, cont := range cset.conts {
		n := cont.nverts()
		if n < 3 {
			continue
		}
		for j := 0; j < n; j++ {
			indices[j] = j
		}
		ntris := triangulate(n, cont.verts, indices, tris)
		if ntris <= 0 {
			log.Warnf("polymesh: bad triangulation of contour %d", ci)
			ntris = -ntris
		}

		for j := 0; j < n; j++ {
			v := cont.verts[j*4 : j*4+4]
			indices[j], mesh.nverts = vh.add(v[0], v[1], v[2], mesh.verts, mesh.nverts)
			if v[3]&borderVertex != 0 {
				vflags[indices[j]] = true
			}
		}

		pm.reset()
		for j := 0; j < ntris; j++ {
			t := tris[j*3 : j*3+3]
			if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
				pm.addTri(indices[t[0]], indices[t[1]], indices[t[2]], cont.reg, cont.area)
			}
		}
		if pm.npolys == 0 {
			continue
		}
		pm.merge(mesh.verts)

		for j := 0; j < pm.npolys; j++ {
			if mesh.npolys >= maxTris {
				return nil, fmt.Errorf("%w: more than %d", ErrTooManyPolygons, maxTris)
			}
			p := mesh.npolys * nvp * 2
			copy(mesh.polys[p:p+nvp], pm.poly(j))
			mesh.regs[mesh.npolys] = cont.reg
			mesh.areas[mesh.npolys] = cont.area
			mesh.npolys++
		}
	}

	// Remove the vertices that sat on the tile border inside the same area.
	for i := 0; i < mesh.nverts; i++ {
		if !vflags[i] || !mesh.canRemoveVertex(i) {
			continue
		}
		if err := mesh.removeVertex(log, i); err != nil {
			return nil, err
		}
		copy(vflags[i:], vflags[i+1:])
		i--
	}

	buildMeshAdjacency(mesh.polys, mesh.npolys, mesh.nverts, nvp)

	if mesh.borderSize > 0 {
		mesh.markPortalEdges(cset.width, cset.height)
	}

	mesh.flags = make([]int, mesh.npolys)
	if mesh.nverts > 0xffff {
		return nil, fmt.Errorf("%w: %d", ErrTooManyVertices, mesh.nverts)
	}
	if mesh.npolys > 0xffff {
		return nil, fmt.Errorf("%w: %d", ErrTooManyPolygons, mesh.npolys)
	}
	return mesh, nil
}

// markPortalEdges tags open edges lying on the tile boundary with 0x8000|side,
// side 0 for x=0, 1 for z=h, 2 for x=w and 3 for z=0.
func (m *PolyMesh) markPortalEdges(w, h int) {
	nvp := m.nvp
	for i := 0; i < m.npolys; i++ {
		p := i * 2 * nvp
		for j := 0; j < nvp; j++ {
			if m.polys[p+j] == meshNullIdx {
				break
			}
			if m.polys[p+nvp+j] != meshNullIdx {
				continue
			}
			nj := j + 1
			if nj >= nvp || m.polys[p+nj] == meshNullIdx {
				nj = 0
			}
			va := m.verts[m.polys[p+j]*3:]
			vb := m.verts[m.polys[p+nj]*3:]
			switch {
			case va[0] == 0 && vb[0] == 0:
				m.polys[p+nvp+j] = 0x8000 | 0
			case va[2] == h && vb[2] == h:
				m.polys[p+nvp+j] = 0x8000 | 1
			case va[0] == w && vb[0] == w:
				m.polys[p+nvp+j] = 0x8000 | 2
			case va[2] == 0 && vb[2] == 0:
				m.polys[p+nvp+j] = 0x8000 | 3
			}
		}
	}
}

func fillNull(s []int) {
	for i := range s {
		s[i] = meshNullIdx
	}
}

func countPolyVerts(polys []int, p, nvp int) int {
	for i := 0; i < nvp; i++ {
		if polys[p+i] == meshNullIdx {
			return i
		}
	}
	return nvp
}

// vertexHash welds vertices with equal x and z and a y within 2 cells.
type vertexHash struct {
	first []int
	next  []int
}

func newVertexHash(maxVerts int) *vertexHash {
	vh := &vertexHash{
		first: make([]int, vertexBucketCount),
		next:  make([]int, maxVerts),
	}
	for i := range vh.first {
		vh.first[i] = -1
	}
	return vh
}

func vertexBucket(x, y, z int) int {
	const h1, h2, h3 = 0x8da6b343, 0xd8163841, 0xcb1ab31f
	n := uint32(h1)*uint32(x) + uint32(h2)*uint32(y) + uint32(h3)*uint32(z)
	return int(n & (vertexBucketCount - 1))
}

func (vh *vertexHash) add(x, y, z int, verts []int, nv int) (int, int) {
	bucket := vertexBucket(x, 0, z)
	for i := vh.first[bucket]; i != -1; i = vh.next[i] {
		v := verts[i*3:]
		if v[0] == x && absInt(v[1]-y) <= 2 && v[2] == z {
			return i, nv
		}
	}
	i := nv
	verts[i*3] = x
	verts[i*3+1] = y
	verts[i*3+2] = z
	vh.next[i] = vh.first[bucket]
	vh.first[bucket] = i
	return i, nv + 1
}

// polyMerger greedily merges triangles sharing their longest common edge
// while the result stays convex.
type polyMerger struct {
	nvp    int
	polys  []int
	regs   []int
	areas  []int
	tmp    []int
	npolys int
}

func newPolyMerger(maxPolys, nvp int) *polyMerger {
	return &polyMerger{
		nvp:   nvp,
		polys: make([]int, maxPolys*nvp),
		regs:  make([]int, maxPolys),
		areas: make([]int, maxPolys),
		tmp:   make([]int, nvp),
	}
}

func (pm *polyMerger) reset() {
	fillNull(pm.polys)
	pm.npolys = 0
}

func (pm *polyMerger) poly(i int) []int { return pm.polys[i*pm.nvp : (i+1)*pm.nvp] }

func (pm *polyMerger) addTri(a, b, c, reg, area int) {
	p := pm.poly(pm.npolys)
	p[0], p[1], p[2] = a, b, c
	pm.regs[pm.npolys] = reg
	pm.areas[pm.npolys] = area
	pm.npolys++
}

func (pm *polyMerger) merge(verts []int) {
	if pm.nvp <= 3 {
		return
	}
	for {
		bestVal, bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0, 0
		for j := 0; j < pm.npolys-1; j++ {
			for k := j + 1; k < pm.npolys; k++ {
				v, ea, eb := polyMergeValue(pm.poly(j), pm.poly(k), verts, pm.nvp)
				if v > bestVal {
					bestVal, bestPa, bestPb, bestEa, bestEb = v, j, k, ea, eb
				}
			}
		}
		if bestVal <= 0 {
			return
		}
		mergePolyVerts(pm.poly(bestPa), pm.poly(bestPb), bestEa, bestEb, pm.tmp, pm.nvp)
		if pm.regs[bestPa] != pm.regs[bestPb] {
			pm.regs[bestPa] = multipleRegs
		}
		last := pm.npolys - 1
		if bestPb != last {
			copy(pm.poly(bestPb), pm.poly(last))
		}
		pm.regs[bestPb] = pm.regs[last]
		pm.areas[bestPb] = pm.areas[last]
		fillNull(pm.poly(last))
		pm.npolys--
	}
}

// polyMergeValue returns the squared length of the shared edge of pa and pb
// and its index in each, or -1 when the merge would be too large or concave.
func polyMergeValue(pa, pb, verts []int, nvp int) (int, int, int) {
	na := countPolyVerts(pa, 0, nvp)
	nb := countPolyVerts(pb, 0, nvp)
	if na+nb-2 > nvp {
		return -1, -1, -1
	}
	ea, eb := -1, -1
	for i := 0; i < na && ea == -1; i++ {
		va0, va1 := pa[i], pa[(i+1)%na]
		if va0 > va1 {
			va0, va1 = va1, va0
		}
		for j := 0; j < nb; j++ {
			vb0, vb1 := pb[j], pb[(j+1)%nb]
			if vb0 > vb1 {
				vb0, vb1 = vb1, vb0
			}
			if va0 == vb0 && va1 == vb1 {
				ea, eb = i, j
				break
			}
		}
	}
	if ea == -1 {
		return -1, -1, -1
	}
	v3 := func(i int) []int { return verts[i*3 : i*3+3] }
	if !left3(v3(pa[(ea+na-1)%na]), v3(pa[ea]), v3(pb[(eb+2)%nb])) {
		return -1, ea, eb
	}
	if !left3(v3(pb[(eb+nb-1)%nb]), v3(pb[eb]), v3(pa[(ea+2)%na])) {
		return -1, ea, eb
	}
	a, b := v3(pa[ea]), v3(pa[(ea+1)%na])
	dx, dz := a[0]-b[0], a[2]-b[2]
	return dx*dx + dz*dz, ea, eb
}

func left3(a, b, c []int) bool { return area2(a, b, c) < 0 }

// mergePolyVerts replaces pa with the union of pa and pb joined at edges ea and eb.
func mergePolyVerts(pa, pb []int, ea, eb int, tmp []int, nvp int) {
	na := countPolyVerts(pa, 0, nvp)
	nb := countPolyVerts(pb, 0, nvp)
	fillNull(tmp)
	n := 0
	for i := 0; i < na-1; i++ {
		tmp[n] = pa[(ea+1+i)%na]
		n++
	}
	for i := 0; i < nb-1; i++ {
		tmp[n] = pb[(eb+1+i)%nb]
		n++
	}
	copy(pa[:nvp], tmp)
}

type meshEdge struct {
	vert     [2]int
	poly     [2]int
	polyEdge [2]int
}

// buildMeshAdjacency fills the neighbour half of every polygon with the
// polygon sharing that edge.
func buildMeshAdjacency(polys []int, npolys, nverts, nvp int) {
	maxEdges := npolys * nvp
	firstEdge := make([]int, nverts)
	nextEdge := make([]int, maxEdges)
	for i := range firstEdge {
		firstEdge[i] = meshNullIdx
	}
	edges := make([]meshEdge, 0, maxEdges)

	edgeVerts := func(t, j int) (int, int) {
		v0 := polys[t+j]
		if j+1 >= nvp || polys[t+j+1] == meshNullIdx {
			return v0, polys[t]
		}
		return v0, polys[t+j+1]
	}

	for i := 0; i < npolys; i++ {
		t := i * nvp * 2
		for j := 0; j < nvp && polys[t+j] != meshNullIdx; j++ {
			v0, v1 := edgeVerts(t, j)
			if v0 < v1 {
				nextEdge[len(edges)] = firstEdge[v0]
				firstEdge[v0] = len(edges)
				edges = append(edges, meshEdge{vert: [2]int{v0, v1}, poly: [2]int{i, i}, polyEdge: [2]int{j, 0}})
			}
		}
	}
	for i := 0; i < npolys; i++ {
		t := i * nvp * 2
		for j := 0; j < nvp && polys[t+j] != meshNullIdx; j++ {
			v0, v1 := edgeVerts(t, j)
			if v0 <= v1 {
				continue
			}
			for e := firstEdge[v1]; e != meshNullIdx; e = nextEdge[e] {
				edge := &edges[e]
				if edge.vert[1] == v0 && edge.poly[0] == edge.poly[1] {
					edge.poly[1] = i
					edge.polyEdge[1] = j
					break
				}
			}
		}
	}
	for _, e := range edges {
		if e.poly[0] != e.poly[1] {
			polys[e.poly[0]*nvp*2+nvp+e.polyEdge[0]] = e.poly[1]
			polys[e.poly[1]*nvp*2+nvp+e.polyEdge[1]] = e.poly[0]
		}
	}
}

// canRemoveVertex reports whether removing rem leaves a hole that can be
// re-triangulated: enough remaining edges and at most two open ones.
func (m *PolyMesh) canRemoveVertex(rem int) bool {
	nvp := m.nvp
	numTouched, numRemaining := 0, 0
	for i := 0; i < m.npolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(m.polys, p, nvp)
		removed := 0
		for j := 0; j < nv; j++ {
			if m.polys[p+j] == rem {
				numTouched++
				removed++
			}
		}
		if removed != 0 {
			numRemaining += nv - (removed + 1)
		}
	}
	if numRemaining <= 2 {
		return false
	}

	// Edges touching rem, keyed by the other endpoint, with a share count.
	type shared struct{ b, count int }
	edges := make([]shared, 0, numTouched*2)
	for i := 0; i < m.npolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(m.polys, p, nvp)
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			a, b := m.polys[p+j], m.polys[p+k]
			if a != rem && b != rem {
				continue
			}
			if b == rem {
				b = a
			}
			exists := false
			for e := range edges {
				if edges[e].b == b {
					edges[e].count++
					exists = true
				}
			}
			if !exists {
				edges = append(edges, shared{b: b, count: 1})
			}
		}
	}
	open := 0
	for _, e := range edges {
		if e.count < 2 {
			open++
		}
	}
	return open <= 2
}

// removeVertex deletes vertex rem and every polygon using it, then
// re-triangulates the hole left behind.
func (m *PolyMesh) removeVertex(log *BuildLog, rem int) error {
	nvp := m.nvp

	type holeEdge struct{ a, b, reg, area int }
	var edges []holeEdge
	for i := 0; i < m.npolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(m.polys, p, nvp)
		hasRem := false
		for j := 0; j < nv; j++ {
			if m.polys[p+j] == rem {
				hasRem = true
			}
		}
		if !hasRem {
			continue
		}
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			if m.polys[p+j] != rem && m.polys[p+k] != rem {
				edges = append(edges, holeEdge{m.polys[p+k], m.polys[p+j], m.regs[i], m.areas[i]})
			}
		}
		last := (m.npolys - 1) * nvp * 2
		if p != last {
			copy(m.polys[p:p+nvp*2], m.polys[last:last+nvp*2])
		}
		fillNull(m.polys[last : last+nvp*2])
		m.regs[i] = m.regs[m.npolys-1]
		m.areas[i] = m.areas[m.npolys-1]
		m.npolys--
		i--
	}

	copy(m.verts[rem*3:m.nverts*3], m.verts[(rem+1)*3:m.nverts*3])
	m.nverts--

	for i := 0; i < m.npolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(m.polys, p, nvp)
		for j := 0; j < nv; j++ {
			if m.polys[p+j] > rem {
				m.polys[p+j]--
			}
		}
	}
	for i := range edges {
		if edges[i].a > rem {
			edges[i].a--
		}
		if edges[i].b > rem {
			edges[i].b--
		}
	}
	if len(edges) == 0 {
		return nil
	}

	// Chain the edges into the hole boundary, growing at both ends.
	hole := []int{edges[0].a}
	hreg := []int{edges[0].reg}
	harea := []int{edges[0].area}
	for len(edges) > 0 {
		match := false
		for i := 0; i < len(edges); i++ {
			e := edges[i]
			switch {
			case hole[0] == e.b:
				hole = append([]int{e.a}, hole...)
				hreg = append([]int{e.reg}, hreg...)
				harea = append([]int{e.area}, harea...)
			case hole[len(hole)-1] == e.a:
				hole = append(hole, e.b)
				hreg = append(hreg, e.reg)
				harea = append(harea, e.area)
			default:
				continue
			}
			edges[i] = edges[len(edges)-1]
			edges = edges[:len(edges)-1]
			match = true
			i--
		}
		if !match {
			break
		}
	}

	nhole := len(hole)
	tris := make([]int, nhole*3)
	tverts := make([]int, nhole*4)
	thole := make([]int, nhole)
	for i, pi := range hole {
		copy(tverts[i*4:i*4+3], m.verts[pi*3:pi*3+3])
		thole[i] = i
	}
	ntris := triangulate(nhole, tverts, thole, tris)
	if ntris < 0 {
		log.Warnf("polymesh: bad triangulation of hole at vertex %d", rem)
		ntris = -ntris
	}

	pm := newPolyMerger(ntris+1, nvp)
	pm.reset()
	for j := 0; j < ntris; j++ {
		t := tris[j*3 : j*3+3]
		if t[0] == t[1] || t[0] == t[2] || t[1] == t[2] {
			continue
		}
		reg := hreg[t[0]]
		if hreg[t[0]] != hreg[t[1]] || hreg[t[1]] != hreg[t[2]] {
			reg = multipleRegs
		}
		pm.addTri(hole[t[0]], hole[t[1]], hole[t[2]], reg, harea[t[0]])
	}
	if pm.npolys == 0 {
		return nil
	}
	pm.merge(m.verts)

	for i := 0; i < pm.npolys; i++ {
		if m.npolys >= m.maxpolys {
			return fmt.Errorf("%w: more than %d while removing vertex", ErrTooManyPolygons, m.maxpolys)
		}
		p := m.npolys * nvp * 2
		fillNull(m.polys[p : p+nvp*2])
		copy(m.polys[p:p+nvp], pm.poly(i))
		m.regs[m.npolys] = pm.regs[i]
		m.areas[m.npolys] = pm.areas[i]
		m.npolys++
	}
	return nil
}

// Area returns the summed xz area of all polygons in world units.
func (m *PolyMesh) Area() float32 {
	total := 0
	for i := 0; i < m.npolys; i++ {
		p := i * m.nvp * 2
		nv := countPolyVerts(m.polys, p, m.nvp)
		a := 0
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			vj := m.verts[m.polys[p+j]*3:]
			vk := m.verts[m.polys[p+k]*3:]
			a += vk[0]*vj[2] - vj[0]*vk[2]
		}
		total += absInt(a)
	}
	return float32(total) / 2 * m.cs * m.cs
}

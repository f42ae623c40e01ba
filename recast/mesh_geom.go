package recast

// Integer xz-plane predicates over vertices stored as (x, y, z, ...) slices.

func next(i, n int) int {
	if i+1 < n {
		return i + 1
	}
	return 0
}

func prev(i, n int) int {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}

func area2(a, b, c []int) int {
	return (b[0]-a[0])*(c[2]-a[2]) - (c[0]-a[0])*(b[2]-a[2])
}

// left reports whether c is strictly left of the directed line a->b.
func left(a, b, c []int) bool {
	return area2(a, b, c) < 0
}

func leftOn(a, b, c []int) bool {
	return area2(a, b, c) <= 0
}

func collinear(a, b, c []int) bool {
	return area2(a, b, c) == 0
}

func vequal(a, b []int) bool {
	return a[0] == b[0] && a[2] == b[2]
}

// intersectProp reports a proper intersection of ab and cd, one where the
// segments share an interior point.
func intersectProp(a, b, c, d []int) bool {
	if collinear(a, b, c) || collinear(a, b, d) || collinear(c, d, a) || collinear(c, d, b) {
		return false
	}
	return (left(a, b, c) != left(a, b, d)) && (left(c, d, a) != left(c, d, b))
}

// between reports whether c lies on the closed segment ab.
func between(a, b, c []int) bool {
	if !collinear(a, b, c) {
		return false
	}
	if a[0] != b[0] {
		return (a[0] <= c[0] && c[0] <= b[0]) || (a[0] >= c[0] && c[0] >= b[0])
	}
	return (a[2] <= c[2] && c[2] <= b[2]) || (a[2] >= c[2] && c[2] >= b[2])
}

func intersect(a, b, c, d []int) bool {
	if intersectProp(a, b, c, d) {
		return true
	}
	return between(a, b, c) || between(a, b, d) || between(c, d, a) || between(c, d, b)
}

// Triangulation indices carry a removable-ear flag in the top bit.
const (
	earFlag   = 0x80000000
	indexMask = 0x0fffffff
)

func polyVert(verts, indices []int, i int) []int {
	p := (indices[i] & indexMask) * 4
	return verts[p : p+4]
}

// diagonalie reports whether (i, j) crosses no polygon edge, ignoring edges
// incident to i or j.
func diagonalie(i, j, n int, verts, indices []int, loose bool) bool {
	d0 := polyVert(verts, indices, i)
	d1 := polyVert(verts, indices, j)
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := polyVert(verts, indices, k)
		p1 := polyVert(verts, indices, k1)
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if loose {
			if intersectProp(d0, d1, p0, p1) {
				return false
			}
		} else if intersect(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

// inConeIdx reports whether j lies in the cone formed by the vertex i and its neighbours.
func inConeIdx(i, j, n int, verts, indices []int, loose bool) bool {
	pi := polyVert(verts, indices, i)
	pj := polyVert(verts, indices, j)
	pi1 := polyVert(verts, indices, next(i, n))
	pin1 := polyVert(verts, indices, prev(i, n))
	if leftOn(pin1, pi, pi1) {
		if loose {
			return leftOn(pi, pj, pin1) && leftOn(pj, pi, pi1)
		}
		return left(pi, pj, pin1) && left(pj, pi, pi1)
	}
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

func diagonal(i, j, n int, verts, indices []int) bool {
	return inConeIdx(i, j, n, verts, indices, false) && diagonalie(i, j, n, verts, indices, false)
}

func diagonalLoose(i, j, n int, verts, indices []int) bool {
	return inConeIdx(i, j, n, verts, indices, true) && diagonalie(i, j, n, verts, indices, true)
}

// triangulate ear clips the polygon (verts indexed through indices) into tris.
// It returns the number of triangles, negated when the outline was
// self-intersecting and only a partial triangulation was produced.
func triangulate(n int, verts, indices, tris []int) int {
	ntris := 0

	for i := 0; i < n; i++ {
		i1 := next(i, n)
		i2 := next(i1, n)
		if diagonal(i, i2, n, verts, indices) {
			indices[i1] |= earFlag
		}
	}

	for n > 3 {
		minLen := -1
		mini := -1
		for i := 0; i < n; i++ {
			i1 := next(i, n)
			if indices[i1]&earFlag == 0 {
				continue
			}
			p0 := polyVert(verts, indices, i)
			p2 := polyVert(verts, indices, next(i1, n))
			dx, dz := p2[0]-p0[0], p2[2]-p0[2]
			if l := dx*dx + dz*dz; minLen < 0 || l < minLen {
				minLen = l
				mini = i
			}
		}

		if mini == -1 {
			// Overlapping segments can leave no strict ear; retry with a looser cone test.
			for i := 0; i < n; i++ {
				i1 := next(i, n)
				i2 := next(i1, n)
				if !diagonalLoose(i, i2, n, verts, indices) {
					continue
				}
				p0 := polyVert(verts, indices, i)
				p2 := polyVert(verts, indices, next(i2, n))
				dx, dz := p2[0]-p0[0], p2[2]-p0[2]
				if l := dx*dx + dz*dz; minLen < 0 || l < minLen {
					minLen = l
					mini = i
				}
			}
			if mini == -1 {
				return -ntris
			}
		}

		i := mini
		i1 := next(i, n)
		i2 := next(i1, n)
		tris[ntris*3] = indices[i] & indexMask
		tris[ntris*3+1] = indices[i1] & indexMask
		tris[ntris*3+2] = indices[i2] & indexMask
		ntris++

		n--
		copy(indices[i1:n], indices[i1+1:n+1])
		if i1 >= n {
			i1 = 0
		}
		i = prev(i1, n)
		if diagonal(prev(i, n), i1, n, verts, indices) {
			indices[i] |= earFlag
		} else {
			indices[i] &= indexMask
		}
		if diagonal(i, next(i1, n), n, verts, indices) {
			indices[i1] |= earFlag
		} else {
			indices[i1] &= indexMask
		}
	}

	tris[ntris*3] = indices[0] & indexMask
	tris[ntris*3+1] = indices[1] & indexMask
	tris[ntris*3+2] = indices[2] & indexMask
	ntris++
	return ntris
}

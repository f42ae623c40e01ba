package recast

// region collects the merge bookkeeping for one watershed region.
type region struct {
	spanCount   int
	id          int
	areaType    int
	remap       bool
	visited     bool
	overlap     bool
	connections []int
	floors      []int
}

const maxContourWalk = 40000

func (rb *regionBuilder) mergeAndFilter(minRegionArea, mergeRegionSize, maxRegionID int) int {
	chf := rb.chf
	srcReg := rb.srcReg
	w, h := chf.width, chf.height
	nreg := maxRegionID + 1
	regions := make([]*region, nreg)
	for i := range regions {
		regions[i] = &region{id: i}
	}

	// Gather neighbours and overlapping floors of every region.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				r := srcReg[i]
				if r == 0 || r >= nreg {
					continue
				}
				reg := regions[r]
				reg.spanCount++

				for j := c.index; j < c.index+c.count; j++ {
					if i == j {
						continue
					}
					floorID := srcReg[j]
					if floorID == 0 || floorID >= nreg {
						continue
					}
					if floorID == r {
						reg.overlap = true
					}
					reg.addUniqueFloor(floorID)
				}

				if len(reg.connections) > 0 {
					continue
				}
				reg.areaType = chf.areas[i]

				for dir := 0; dir < 4; dir++ {
					if rb.isSolidEdge(x, y, i, dir) {
						reg.connections = rb.walkContour(x, y, i, dir, reg.connections)
						break
					}
				}
			}
		}
	}

	// Remove connected groups that are too small.
	var stack, trace []int
	for i := 0; i < nreg; i++ {
		reg := regions[i]
		if reg.id == 0 || reg.id&borderReg != 0 || reg.spanCount == 0 || reg.visited {
			continue
		}
		connectsToBorder := false
		spanCount := 0
		stack = append(stack[:0], i)
		trace = trace[:0]
		reg.visited = true
		for len(stack) > 0 {
			ri := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			creg := regions[ri]
			spanCount += creg.spanCount
			trace = append(trace, ri)
			for _, con := range creg.connections {
				if con&borderReg != 0 {
					connectsToBorder = true
					continue
				}
				nei := regions[con]
				if nei.visited || nei.id == 0 || nei.id&borderReg != 0 {
					continue
				}
				stack = append(stack, nei.id)
				nei.visited = true
			}
		}
		// Regions touching the tile border cannot be sized correctly, keep them.
		if spanCount < minRegionArea && !connectsToBorder {
			for _, t := range trace {
				regions[t].spanCount = 0
				regions[t].id = 0
			}
		}
	}

	// Merge small regions into their smallest mergeable neighbour.
	for {
		mergeCount := 0
		for i := 0; i < nreg; i++ {
			reg := regions[i]
			if reg.id == 0 || reg.id&borderReg != 0 || reg.overlap || reg.spanCount == 0 {
				continue
			}
			if reg.spanCount > mergeRegionSize && reg.connectedToBorder() {
				continue
			}
			smallest := 0xfffffff
			mergeID := reg.id
			for _, con := range reg.connections {
				if con&borderReg != 0 {
					continue
				}
				mreg := regions[con]
				if mreg.id == 0 || mreg.id&borderReg != 0 || mreg.overlap {
					continue
				}
				if mreg.spanCount < smallest && reg.canMergeWith(mreg) && mreg.canMergeWith(reg) {
					smallest = mreg.spanCount
					mergeID = mreg.id
				}
			}
			if mergeID == reg.id {
				continue
			}
			oldID := reg.id
			if !regions[mergeID].merge(reg) {
				continue
			}
			for _, other := range regions {
				if other.id == 0 || other.id&borderReg != 0 {
					continue
				}
				if other.id == oldID {
					other.id = mergeID
				}
				other.replaceNeighbour(oldID, mergeID)
			}
			mergeCount++
		}
		if mergeCount == 0 {
			break
		}
	}

	// Compress region ids.
	for _, reg := range regions {
		reg.remap = reg.id != 0 && reg.id&borderReg == 0
	}
	regIDGen := 0
	for i := 0; i < nreg; i++ {
		if !regions[i].remap {
			continue
		}
		oldID := regions[i].id
		regIDGen++
		for j := i; j < nreg; j++ {
			if regions[j].id == oldID {
				regions[j].id = regIDGen
				regions[j].remap = false
			}
		}
	}
	for i := 0; i < chf.spanCount; i++ {
		if srcReg[i]&borderReg == 0 {
			srcReg[i] = regions[srcReg[i]].id
		}
	}
	return regIDGen
}

func (rb *regionBuilder) isSolidEdge(x, y, i, dir int) bool {
	s := &rb.chf.spans[i]
	r := 0
	if s.getCon(dir) != notConnected {
		_, _, ai := rb.chf.neighbour(x, y, dir, s)
		r = rb.srcReg[ai]
	}
	return r != rb.srcReg[i]
}

// walkContour follows the region boundary clockwise from (x, y, i, dir) and
// appends the sequence of neighbouring region ids to cont.
func (rb *regionBuilder) walkContour(x, y, i, dir int, cont []int) []int {
	chf := rb.chf
	startDir := dir
	starti := i

	ss := &chf.spans[i]
	curReg := 0
	if ss.getCon(dir) != notConnected {
		_, _, ai := chf.neighbour(x, y, dir, ss)
		curReg = rb.srcReg[ai]
	}
	cont = append(cont, curReg)

	for iter := 1; iter < maxContourWalk; iter++ {
		s := &chf.spans[i]
		if rb.isSolidEdge(x, y, i, dir) {
			r := 0
			if s.getCon(dir) != notConnected {
				_, _, ai := chf.neighbour(x, y, dir, s)
				r = rb.srcReg[ai]
			}
			if r != curReg {
				curReg = r
				cont = append(cont, curReg)
			}
			dir = (dir + 1) & 0x3
		} else {
			if s.getCon(dir) == notConnected {
				return cont
			}
			x, y, i = chf.neighbour(x, y, dir, s)
			dir = (dir + 3) & 0x3
		}
		if starti == i && startDir == dir {
			break
		}
	}

	if len(cont) > 1 {
		for j := 0; j < len(cont); {
			nj := (j + 1) % len(cont)
			if cont[j] == cont[nj] {
				cont = append(cont[:j], cont[j+1:]...)
			} else {
				j++
			}
		}
	}
	return cont
}

func (r *region) addUniqueFloor(n int) {
	for _, f := range r.floors {
		if f == n {
			return
		}
	}
	r.floors = append(r.floors, n)
}

func (r *region) connectedToBorder() bool {
	for _, c := range r.connections {
		if c == 0 {
			return true
		}
	}
	return false
}

func (r *region) canMergeWith(o *region) bool {
	if r.areaType != o.areaType {
		return false
	}
	n := 0
	for _, c := range r.connections {
		if c == o.id {
			n++
		}
	}
	if n > 1 {
		return false
	}
	for _, f := range r.floors {
		if f == o.id {
			return false
		}
	}
	return true
}

// merge splices the neighbour ring of b into r at their shared edge.
func (r *region) merge(b *region) bool {
	aid, bid := r.id, b.id
	acon := append([]int(nil), r.connections...)
	bcon := b.connections

	insa := indexOf(acon, bid)
	if insa == -1 {
		return false
	}
	insb := indexOf(bcon, aid)
	if insb == -1 {
		return false
	}

	r.connections = r.connections[:0]
	for i, n := 0, len(acon); i < n-1; i++ {
		r.connections = append(r.connections, acon[(insa+1+i)%n])
	}
	for i, n := 0, len(bcon); i < n-1; i++ {
		r.connections = append(r.connections, bcon[(insb+1+i)%n])
	}
	r.removeAdjacentNeighbours()

	for _, f := range b.floors {
		r.addUniqueFloor(f)
	}
	r.spanCount += b.spanCount
	b.spanCount = 0
	b.connections = nil
	return true
}

func (r *region) removeAdjacentNeighbours() {
	for i := 0; i < len(r.connections) && len(r.connections) > 1; {
		ni := (i + 1) % len(r.connections)
		if r.connections[i] == r.connections[ni] {
			r.connections = append(r.connections[:i], r.connections[i+1:]...)
		} else {
			i++
		}
	}
}

func (r *region) replaceNeighbour(oldID, newID int) {
	changed := false
	for i, c := range r.connections {
		if c == oldID {
			r.connections[i] = newID
			changed = true
		}
	}
	for i, f := range r.floors {
		if f == oldID {
			r.floors[i] = newID
		}
	}
	if changed {
		r.removeAdjacentNeighbours()
	}
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

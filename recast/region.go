package recast

import (
	"fmt"
)

// BuildDistanceField computes each span's distance to the nearest area
// boundary and smooths it with a 3x3 box blur.
func BuildDistanceField(chf *CompactHeightfield) {
	src := make([]int, chf.spanCount)
	for i := range src {
		src[i] = 0xffff
	}
	w, h := chf.width, chf.height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if s.getCon(dir) == notConnected {
						continue
					}
					_, _, ai := chf.neighbour(x, y, dir, s)
					if chf.areas[ai] == chf.areas[i] {
						nc++
					}
				}
				if nc != 4 {
					src[i] = 0
				}
			}
		}
	}
	chf.chamfer(src, 0xffff)

	chf.maxDistance = 0
	for _, d := range src {
		chf.maxDistance = max(chf.maxDistance, d)
	}
	chf.dist = boxBlur(chf, 1, src)
}

func boxBlur(chf *CompactHeightfield, thr int, src []int) []int {
	w, h := chf.width, chf.height
	dst := make([]int, chf.spanCount)
	thr *= 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				cd := src[i]
				if cd <= thr {
					dst[i] = cd
					continue
				}
				d := cd
				for dir := 0; dir < 4; dir++ {
					if s.getCon(dir) == notConnected {
						d += cd * 2
						continue
					}
					ax, ay, ai := chf.neighbour(x, y, dir, s)
					d += src[ai]
					as := &chf.spans[ai]
					dir2 := (dir + 1) & 0x3
					if as.getCon(dir2) != notConnected {
						_, _, ai2 := chf.neighbour(ax, ay, dir2, as)
						d += src[ai2]
					} else {
						d += cd
					}
				}
				dst[i] = (d + 5) / 9
			}
		}
	}
	return dst
}

type levelStackEntry struct {
	x, y  int
	index int // -1 once the span has a region
}

type dirtyEntry struct {
	index    int
	region   int
	distance int
}

// regionBuilder holds the watershed state of one compact heightfield.
type regionBuilder struct {
	chf     *CompactHeightfield
	srcReg  []int
	srcDist []int
	dirty   []dirtyEntry
	stack   []levelStackEntry
}

// BuildRegions partitions the walkable area into watershed regions. A
// borderSize wide frame is painted with border regions first so tiles stitch.
// Connected groups smaller than minRegionArea are removed unless they touch
// the border; regions smaller than mergeRegionArea are merged into a neighbour.
func BuildRegions(chf *CompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) error {
	w, h := chf.width, chf.height
	rb := &regionBuilder{
		chf:     chf,
		srcReg:  make([]int, chf.spanCount),
		srcDist: make([]int, chf.spanCount),
	}
	var lvlStacks [nbStacks][]levelStackEntry

	regionID := 1
	level := (chf.maxDistance + 1) &^ 1

	if borderSize > 0 {
		bw := min(w, borderSize)
		bh := min(h, borderSize)
		rb.paintRect(0, bw, 0, h, regionID|borderReg)
		regionID++
		rb.paintRect(w-bw, w, 0, h, regionID|borderReg)
		regionID++
		rb.paintRect(0, w, 0, bh, regionID|borderReg)
		regionID++
		rb.paintRect(0, w, h-bh, h, regionID|borderReg)
		regionID++
	}
	chf.borderSize = borderSize

	sID := -1
	for level > 0 {
		if level >= 2 {
			level -= 2
		} else {
			level = 0
		}
		sID = (sID + 1) & (nbStacks - 1)
		if sID == 0 {
			rb.sortCellsByLevel(level, &lvlStacks, 1)
		} else {
			// Carry over the leftovers of the previous level.
			lvlStacks[sID] = rb.appendStack(lvlStacks[sID-1], lvlStacks[sID])
		}

		rb.expandRegions(expandIters, level, lvlStacks[sID], false)

		for _, e := range lvlStacks[sID] {
			if e.index >= 0 && rb.srcReg[e.index] == 0 {
				if rb.floodRegion(e.x, e.y, e.index, level, regionID) {
					if regionID == 0xffff {
						return fmt.Errorf("%w: region id overflow", ErrTooManyPolygons)
					}
					regionID++
				}
			}
		}
	}

	rb.expandRegions(expandIters*8, 0, nil, true)

	chf.maxRegions = rb.mergeAndFilter(minRegionArea, mergeRegionArea, regionID)
	for i := 0; i < chf.spanCount; i++ {
		chf.spans[i].reg = rb.srcReg[i]
	}
	return nil
}

func (rb *regionBuilder) paintRect(minx, maxx, miny, maxy, regID int) {
	chf := rb.chf
	for y := miny; y < maxy; y++ {
		for x := minx; x < maxx; x++ {
			c := &chf.cells[x+y*chf.width]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] != AreaNull {
					rb.srcReg[i] = regID
				}
			}
		}
	}
}

// sortCellsByLevel buckets unassigned spans into stacks covering
// 1<<logLevelsPerStack distance levels each, starting at startLevel.
func (rb *regionBuilder) sortCellsByLevel(startLevel int, stacks *[nbStacks][]levelStackEntry, logLevelsPerStack uint) {
	chf := rb.chf
	startLevel >>= logLevelsPerStack
	for j := range stacks {
		stacks[j] = stacks[j][:0]
	}
	for y := 0; y < chf.height; y++ {
		for x := 0; x < chf.width; x++ {
			c := &chf.cells[x+y*chf.width]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] == AreaNull || rb.srcReg[i] != 0 {
					continue
				}
				sID := startLevel - chf.dist[i]>>logLevelsPerStack
				if sID >= nbStacks {
					continue
				}
				sID = max(sID, 0)
				stacks[sID] = append(stacks[sID], levelStackEntry{x, y, i})
			}
		}
	}
}

func (rb *regionBuilder) appendStack(src, dst []levelStackEntry) []levelStackEntry {
	for _, e := range src {
		if e.index < 0 || rb.srcReg[e.index] != 0 {
			continue
		}
		dst = append(dst, e)
	}
	return dst
}

// expandRegions grows existing regions into unassigned spans at or above level.
// With fillStack the candidate set is rebuilt from the whole field.
func (rb *regionBuilder) expandRegions(maxIter, level int, stack []levelStackEntry, fillStack bool) {
	chf := rb.chf
	if fillStack {
		stack = rb.stack[:0]
		for y := 0; y < chf.height; y++ {
			for x := 0; x < chf.width; x++ {
				c := &chf.cells[x+y*chf.width]
				for i := c.index; i < c.index+c.count; i++ {
					if chf.dist[i] >= level && rb.srcReg[i] == 0 && chf.areas[i] != AreaNull {
						stack = append(stack, levelStackEntry{x, y, i})
					}
				}
			}
		}
		rb.stack = stack
	} else {
		for j := range stack {
			if i := stack[j].index; i >= 0 && rb.srcReg[i] != 0 {
				stack[j].index = -1
			}
		}
	}

	iter := 0
	for len(stack) > 0 {
		failed := 0
		rb.dirty = rb.dirty[:0]
		for j := range stack {
			e := &stack[j]
			i := e.index
			if i < 0 {
				failed++
				continue
			}
			r := rb.srcReg[i]
			d2 := 0xffff
			area := chf.areas[i]
			s := &chf.spans[i]
			for dir := 0; dir < 4; dir++ {
				if s.getCon(dir) == notConnected {
					continue
				}
				_, _, ai := chf.neighbour(e.x, e.y, dir, s)
				if chf.areas[ai] != area {
					continue
				}
				if rb.srcReg[ai] > 0 && rb.srcReg[ai]&borderReg == 0 && rb.srcDist[ai]+2 < d2 {
					r = rb.srcReg[ai]
					d2 = rb.srcDist[ai] + 2
				}
			}
			if r != 0 {
				e.index = -1
				rb.dirty = append(rb.dirty, dirtyEntry{i, r, d2})
			} else {
				failed++
			}
		}
		// Apply after the sweep so every span in this pass sees the same state.
		for _, d := range rb.dirty {
			rb.srcReg[d.index] = d.region
			rb.srcDist[d.index] = d.distance
		}
		if failed == len(stack) {
			break
		}
		if level > 0 {
			iter++
			if iter >= maxIter {
				break
			}
		}
	}
}

func (rb *regionBuilder) floodRegion(x, y, i, level, r int) bool {
	chf := rb.chf
	area := chf.areas[i]

	stack := rb.stack[:0]
	stack = append(stack, levelStackEntry{x, y, i})
	rb.srcReg[i] = r
	rb.srcDist[i] = 0

	lev := 0
	if level >= 2 {
		lev = level - 2
	}
	count := 0
	for len(stack) > 0 {
		back := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cx, cy, ci := back.x, back.y, back.index
		cs := &chf.spans[ci]

		// Give up on the span when an 8-connected neighbour already belongs to another region.
		ar := 0
		for dir := 0; dir < 4; dir++ {
			if cs.getCon(dir) == notConnected {
				continue
			}
			ax, ay, ai := chf.neighbour(cx, cy, dir, cs)
			if chf.areas[ai] != area {
				continue
			}
			nr := rb.srcReg[ai]
			if nr&borderReg != 0 {
				continue
			}
			if nr != 0 && nr != r {
				ar = nr
				break
			}
			as := &chf.spans[ai]
			dir2 := (dir + 1) & 0x3
			if as.getCon(dir2) != notConnected {
				_, _, ai2 := chf.neighbour(ax, ay, dir2, as)
				if chf.areas[ai2] != area {
					continue
				}
				if nr2 := rb.srcReg[ai2]; nr2 != 0 && nr2 != r {
					ar = nr2
					break
				}
			}
		}
		if ar != 0 {
			rb.srcReg[ci] = 0
			continue
		}
		count++

		for dir := 0; dir < 4; dir++ {
			if cs.getCon(dir) == notConnected {
				continue
			}
			ax, ay, ai := chf.neighbour(cx, cy, dir, cs)
			if chf.areas[ai] != area {
				continue
			}
			if chf.dist[ai] >= lev && rb.srcReg[ai] == 0 {
				rb.srcReg[ai] = r
				rb.srcDist[ai] = 0
				stack = append(stack, levelStackEntry{ax, ay, ai})
			}
		}
	}
	rb.stack = stack
	return count > 0
}

package recast

// Area ids.
const (
	AreaNull     = 0
	AreaWalkable = 63
)

// Flag written to polygons whose area is AreaWalkable.
const PolyFlagWalk = 1

const (
	spanHeightBits = 13
	spanMaxHeight  = (1 << spanHeightBits) - 1
	maxHeight      = 0xffff

	notConnected = 0x3f
	maxLayers    = notConnected - 1

	// Region ids with this bit set belong to the tile border and never produce polygons.
	borderReg = 0x8000

	// Contour tessellation flags.
	contourTessWallEdges = 0x01
	contourTessAreaEdges = 0x02

	// Contour vertex flags packed above the region id.
	borderVertex  = 0x10000
	areaBorder    = 0x20000
	contourRegMsk = 0xffff

	meshNullIdx  = 0xffff
	multipleRegs = 0

	vertexBucketCount = 1 << 12

	nbStacks      = 8
	logNbStacks   = 3
	expandIters   = 8
	unsetHeight   = 0xffff
	retractSize   = 256
	maxVertsEdge  = 32
	maxDetailVert = 127
	maxDetailTris = 255

	evUndef = -1
	evHull  = -2
)

// MaxVertsPerPoly is the largest polygon the serialized tile format can carry.
const MaxVertsPerPoly = 6

var (
	dirOffsetX = [4]int{-1, 0, 1, 0}
	dirOffsetY = [4]int{0, 1, 0, -1}
)

func dirOffX(dir int) int { return dirOffsetX[dir&0x03] }
func dirOffY(dir int) int { return dirOffsetY[dir&0x03] }

// dirForOffset maps a unit grid offset back to its direction.
func dirForOffset(x, y int) int {
	dirs := [5]int{3, 0, -1, 2, 1}
	return dirs[((y+1)<<1)+x]
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

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sqr(v float32) float32 { return v * v }

package detour

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// NavMeshMagic identifies tile data: 'D' 'N' 'A' 'V'.
	NavMeshMagic int32 = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'
	// NavMeshVersion is the tile data format version.
	NavMeshVersion int32 = 7

	// VertsPerPolygon is the fixed polygon slot count of the tile format.
	VertsPerPolygon = 6

	// ExtLink marks a polygon edge that is a portal to a neighbouring tile.
	ExtLink = 0x8000
	// NullLink terminates a link list.
	NullLink uint32 = 0xffffffff

	// OffMeshConBidir flags an off-mesh connection traversable both ways.
	OffMeshConBidir = 1

	// MaxAreas is the number of user area ids a polygon can carry.
	MaxAreas = 64

	meshNullIdx = 0xffff
)

// Polygon types.
const (
	PolyTypeGround            = 0
	PolyTypeOffMeshConnection = 1
)

// MeshHeader is the fixed size header that starts every tile.
type MeshHeader struct {
	Magic           int32
	Version         int32
	X               int32
	Y               int32
	Layer           int32
	UserID          uint32
	PolyCount       int32
	VertCount       int32
	MaxLinkCount    int32
	DetailMeshCount int32
	// Unique detail vertices, polygon vertices excluded.
	DetailVertCount int32
	DetailTriCount  int32
	BvNodeCount     int32
	OffMeshConCount int32
	// Index of the first off-mesh connection polygon.
	OffMeshBase    int32
	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32
	Bmin           [3]float32
	Bmax           [3]float32
	// Converts world units to BV tree node units.
	BvQuantFactor float32
}

// Poly is a convex polygon or a two vertex off-mesh connection.
type Poly struct {
	FirstLink uint32
	Verts     [VertsPerPolygon]uint16
	// Neighbour polygon + 1 per edge, 0 for a wall, ExtLink|side for a portal.
	Neis        [VertsPerPolygon]uint16
	Flags       uint16
	VertCount   uint8
	AreaAndType uint8
}

func (p *Poly) SetArea(a uint8) { p.AreaAndType = p.AreaAndType&0xc0 | a&0x3f }
func (p *Poly) SetType(t uint8) { p.AreaAndType = p.AreaAndType&0x3f | t<<6 }
func (p *Poly) Area() uint8     { return p.AreaAndType & 0x3f }
func (p *Poly) Type() uint8     { return p.AreaAndType >> 6 }

// Link is filled in when a tile is attached to a navmesh. Built tiles carry
// a zeroed pool of MaxLinkCount entries.
type Link struct {
	Ref  uint32
	Next uint32
	Edge uint8
	Side uint8
	Bmin uint8
	Bmax uint8
}

// PolyDetail locates the detail sub-mesh of one polygon.
type PolyDetail struct {
	VertBase  uint32
	TriBase   uint32
	VertCount uint8
	TriCount  uint8
	_         [2]uint8
}

// BVNode is a node of the tile's polygon bounding volume tree, in quantized units.
type BVNode struct {
	Bmin [3]uint16
	Bmax [3]uint16
	// Polygon index for leaves, negative escape offset for inner nodes.
	I int32
}

// OffMeshConnection is a point to point link starting inside the tile.
type OffMeshConnection struct {
	Pos    [6]float32
	Rad    float32
	Poly   uint16
	Flags  uint8
	Side   uint8
	UserID uint32
}

// MeshData is a decoded tile.
type MeshData struct {
	Header       MeshHeader
	Verts        []float32
	Polys        []Poly
	Links        []Link
	DetailMeshes []PolyDetail
	DetailVerts  []float32
	DetailTris   []uint8
	BvTree       []BVNode
	OffMeshCons  []OffMeshConnection
}

// Bounds returns the tile bounds from the header.
func (d *MeshData) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	return mgl32.Vec3(d.Header.Bmin), mgl32.Vec3(d.Header.Bmax)
}

package detour

import (
	"github.com/go-gl/mathgl/mgl32"
)

// OffMeshLink is a user defined connection between two points.
type OffMeshLink struct {
	Start  mgl32.Vec3
	End    mgl32.Vec3
	Radius float32
	Bidir  bool
	Area   uint8
	Flags  uint16
	UserID uint32
}

// NavMeshCreateParams collects the polygon and detail meshes of one tile.
type NavMeshCreateParams struct {
	// Polygon mesh in cells relative to Bmin. [(x, y, z) * VertCount]
	Verts     []int
	VertCount int
	// 2*Nvp entries per polygon: vertex indices then neighbour info.
	Polys     []int
	PolyFlags []int
	PolyAreas []int
	PolyCount int
	Nvp       int

	// Optional detail mesh. Meshes holds vertBase, vertCount, triBase, triCount per polygon.
	DetailMeshes     []int
	DetailVerts      []float32 // wu
	DetailVertsCount int
	DetailTris       []int // 3 indices and edge flags per triangle
	DetailTriCount   int

	OffMeshLinks []OffMeshLink

	UserID    uint32
	TileX     int
	TileY     int
	TileLayer int
	Bmin      mgl32.Vec3
	Bmax      mgl32.Vec3

	// Agent dimensions in world units.
	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32
	Cs             float32
	Ch             float32

	BuildBvTree bool
}

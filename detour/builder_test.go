package detour

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// twoQuads is a 2x1 cell strip of two quads sharing an edge. The left quad's
// x- edge is a tile portal.
func twoQuads() *NavMeshCreateParams {
	const n = meshNullIdx
	return &NavMeshCreateParams{
		Verts: []int{
			0, 0, 0,
			0, 0, 1,
			1, 0, 1,
			1, 0, 0,
			2, 0, 1,
			2, 0, 0,
		},
		VertCount: 6,
		Polys: []int{
			0, 1, 2, 3, n, n, 0x8000 | 0, n, 1, n, n, n,
			3, 2, 4, 5, n, n, n, 0, n, n, n, n,
		},
		PolyFlags: []int{1, 1},
		PolyAreas: []int{63, 63},
		PolyCount: 2,
		Nvp:       6,
		TileX:     3,
		TileY:     4,
		Bmin:      mgl32.Vec3{0, 0, 0},
		Bmax:      mgl32.Vec3{20, 5, 10},
		Cs:        10,
		Ch:        5,

		WalkableHeight: 180,
		WalkableRadius: 40,
		WalkableClimb:  50,
		BuildBvTree:    true,
	}
}

func TestSectionSizes(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want int
	}{
		{"header", MeshHeader{}, 100},
		{"poly", Poly{}, 32},
		{"link", Link{}, 12},
		{"poly detail", PolyDetail{}, 12},
		{"bv node", BVNode{}, 16},
		{"off-mesh connection", OffMeshConnection{}, 36},
	}
	for _, tt := range tests {
		if got := binary.Size(tt.v); got != tt.want {
			t.Errorf("%s: %d bytes, want %d", tt.name, got, tt.want)
		}
	}
}

func TestCreateNavMeshData(t *testing.T) {
	d, err := CreateNavMeshData(twoQuads())
	if err != nil {
		t.Fatal(err)
	}
	h := d.Header
	if h.Magic != NavMeshMagic || h.Version != NavMeshVersion {
		t.Errorf("magic %x version %d", h.Magic, h.Version)
	}
	if h.X != 3 || h.Y != 4 {
		t.Errorf("tile (%d, %d), want (3, 4)", h.X, h.Y)
	}
	if h.PolyCount != 2 || h.VertCount != 6 {
		t.Errorf("polys %d verts %d", h.PolyCount, h.VertCount)
	}
	// 8 edges plus two slots for the single portal.
	if h.MaxLinkCount != 10 {
		t.Errorf("max links %d, want 10", h.MaxLinkCount)
	}
	if h.BvQuantFactor != 0.1 {
		t.Errorf("bv quant factor %v", h.BvQuantFactor)
	}
	if h.BvNodeCount != 3 {
		t.Errorf("bv nodes %d, want 3", h.BvNodeCount)
	}
	if h.DetailTriCount != 4 {
		t.Errorf("detail tris %d, want 4", h.DetailTriCount)
	}

	p := d.Polys[0]
	if p.Neis[0] != ExtLink|4 {
		t.Errorf("portal edge nei %#x, want %#x", p.Neis[0], ExtLink|4)
	}
	if p.Neis[2] != 2 {
		t.Errorf("internal edge nei %d, want 2", p.Neis[2])
	}
	if p.Neis[1] != 0 {
		t.Errorf("wall edge nei %d, want 0", p.Neis[1])
	}
	if p.Area() != 63 || p.Type() != PolyTypeGround || p.Flags != 1 {
		t.Errorf("area %d type %d flags %d", p.Area(), p.Type(), p.Flags)
	}
	if v := d.Verts[4*3:]; v[0] != 20 || v[2] != 10 {
		t.Errorf("vertex 4 at %v, want world (20, 0, 10)", v[:3])
	}
}

func TestPortalNeighbours(t *testing.T) {
	want := map[int]uint16{0: ExtLink | 4, 1: ExtLink | 2, 2: ExtLink | 0, 3: ExtLink | 6, 0xf: 0}
	for dir, w := range want {
		if got := portalNei(dir); got != w {
			t.Errorf("portalNei(%d) = %#x, want %#x", dir, got, w)
		}
	}
}

func TestCreateNavMeshDataInvalid(t *testing.T) {
	tests := []struct {
		name string
		mod  func(p *NavMeshCreateParams)
		want error
	}{
		{"nvp", func(p *NavMeshCreateParams) { p.Nvp = 2 }, ErrInvalidParams},
		{"no polygons", func(p *NavMeshCreateParams) { p.PolyCount = 0 }, ErrInvalidParams},
		{"no vertices", func(p *NavMeshCreateParams) { p.VertCount = 0 }, ErrInvalidParams},
		{"cell size", func(p *NavMeshCreateParams) { p.Cs = 0 }, ErrInvalidParams},
		{"short flags", func(p *NavMeshCreateParams) { p.PolyFlags = p.PolyFlags[:1] }, ErrInvalidParams},
		{"vertex limit", func(p *NavMeshCreateParams) { p.VertCount = 0xffff }, ErrTooManyVertices},
	}
	for _, tt := range tests {
		p := twoQuads()
		tt.mod(p)
		if _, err := CreateNavMeshData(p); !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestOffMeshLinkStoredOnStartTile(t *testing.T) {
	p := twoQuads()
	p.OffMeshLinks = []OffMeshLink{
		{Start: mgl32.Vec3{5, 0, 5}, End: mgl32.Vec3{50, 0, 5}, Radius: 2, Bidir: true, Area: 63, Flags: 1, UserID: 7},
		{Start: mgl32.Vec3{50, 0, 5}, End: mgl32.Vec3{5, 0, 5}, Radius: 2, Area: 63, Flags: 1},
	}
	d, err := CreateNavMeshData(p)
	if err != nil {
		t.Fatal(err)
	}
	if d.Header.OffMeshConCount != 1 || d.Header.PolyCount != 3 || d.Header.VertCount != 8 {
		t.Fatalf("off-mesh %d polys %d verts %d", d.Header.OffMeshConCount, d.Header.PolyCount, d.Header.VertCount)
	}
	con := d.OffMeshCons[0]
	if con.Poly != 2 || con.Flags != OffMeshConBidir || con.UserID != 7 {
		t.Errorf("connection %+v", con)
	}
	if d.Polys[2].Type() != PolyTypeOffMeshConnection || d.Polys[2].VertCount != 2 {
		t.Errorf("off-mesh poly %+v", d.Polys[2])
	}
}

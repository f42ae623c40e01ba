package recast

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"navbuild/detour"
	"navbuild/pkg/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// flatQuad is a square floor of side l at height y, wound so its normal points up.
func flatQuad(l, y float32) ([]float32, []int) {
	verts := []float32{
		0, y, 0,
		l, y, 0,
		l, y, l,
		0, y, l,
	}
	return verts, []int{0, 3, 1, 1, 3, 2}
}

func testSettings() Settings {
	s := DefaultSettings()
	s.TileSize = 64
	return s
}

func mustWorld(t *testing.T, s Settings, g *InputGeom) *Config {
	t.Helper()
	cfg, err := NewConfig(s)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	cfg, err = cfg.ForWorld(g.Bounds())
	if err != nil {
		t.Fatalf("ForWorld: %v", err)
	}
	return cfg
}

func tileBounds(cfg *Config, tx, ty int) geom.AABB {
	ts := cfg.TileWorldSize()
	min := mgl32.Vec3{cfg.Bounds.Min[0] + float32(tx)*ts, cfg.Bounds.Min[1], cfg.Bounds.Min[2] + float32(ty)*ts}
	max := mgl32.Vec3{min[0] + ts, cfg.Bounds.Max[1], min[2] + ts}
	return geom.AABB{Min: min, Max: max}
}

func buildFlat(t *testing.T, s Settings) *TileResult {
	t.Helper()
	verts, tris := flatQuad(600, 0)
	g, err := NewInputGeom(verts, tris)
	if err != nil {
		t.Fatalf("NewInputGeom: %v", err)
	}
	cfg := mustWorld(t, s, g)
	res, err := (&Builder{}).BuildTile(context.Background(), g, cfg, tileBounds(cfg, 0, 0), 0, 0)
	if err != nil {
		t.Fatalf("BuildTile: %v", err)
	}
	return res
}

func TestBuildTileFlatFloor(t *testing.T) {
	res := buildFlat(t, testSettings())
	if res.Empty {
		t.Fatalf("flat floor produced an empty tile: %s", res.Reason)
	}
	if res.Mesh.NPolys() < 1 {
		t.Fatal("expected at least one polygon")
	}
	for i, f := range res.Mesh.Flags() {
		if f != PolyFlagWalk {
			t.Errorf("poly %d flag = %d, want %d", i, f, PolyFlagWalk)
		}
	}

	data, err := detour.Decode(res.Data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if int(data.Header.PolyCount) != res.Mesh.NPolys() {
		t.Errorf("header poly count %d, mesh has %d", data.Header.PolyCount, res.Mesh.NPolys())
	}
	if data.Header.X != 0 || data.Header.Y != 0 {
		t.Errorf("tile coordinate (%d, %d), want (0, 0)", data.Header.X, data.Header.Y)
	}
	for i := range data.Polys {
		if data.Polys[i].Area() != AreaWalkable {
			t.Errorf("poly %d area %d", i, data.Polys[i].Area())
		}
	}
}

func TestBuildTileDeterministic(t *testing.T) {
	a := buildFlat(t, testSettings())
	b := buildFlat(t, testSettings())
	if !bytes.Equal(a.Data, b.Data) {
		t.Fatalf("two builds differ: %d vs %d bytes", len(a.Data), len(b.Data))
	}
}

func TestBuildTileEmpty(t *testing.T) {
	verts, tris := flatQuad(600, 0)
	g, err := NewInputGeom(verts, tris)
	if err != nil {
		t.Fatal(err)
	}
	cfg := mustWorld(t, testSettings(), g)
	res, err := (&Builder{}).BuildTile(context.Background(), g, cfg, tileBounds(cfg, 8, 8), 8, 8)
	if err != nil {
		t.Fatalf("BuildTile: %v", err)
	}
	if !res.Empty || res.Reason != ReasonNoTriangles {
		t.Errorf("got empty=%v reason=%q, want %q", res.Empty, res.Reason, ReasonNoTriangles)
	}
	if res.Data != nil {
		t.Error("empty tile carries data")
	}
}

func TestBuildTileSteepOnly(t *testing.T) {
	// A wall: every triangle is vertical so nothing is walkable.
	verts := []float32{
		0, 0, 100,
		600, 0, 100,
		600, 600, 100,
		0, 600, 100,
	}
	g, err := NewInputGeom(verts, []int{0, 1, 2, 0, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	bounds := g.Bounds()
	bounds.Max[2] = 600
	cfg, err := NewConfig(testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if cfg, err = cfg.ForWorld(bounds); err != nil {
		t.Fatal(err)
	}
	res, err := (&Builder{}).BuildTile(context.Background(), g, cfg, tileBounds(cfg, 0, 0), 0, 0)
	if err != nil {
		t.Fatalf("BuildTile: %v", err)
	}
	if !res.Empty || res.Reason != ReasonNoPolygons {
		t.Errorf("got empty=%v reason=%q, want %q", res.Empty, res.Reason, ReasonNoPolygons)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "no walkable triangle, flattest slope 90.0 deg") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %q lack the steepness report", res.Warnings)
	}
}

func TestBuildTileCancelled(t *testing.T) {
	verts, tris := flatQuad(600, 0)
	g, err := NewInputGeom(verts, tris)
	if err != nil {
		t.Fatal(err)
	}
	cfg := mustWorld(t, testSettings(), g)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&Builder{}).BuildTile(ctx, g, cfg, tileBounds(cfg, 0, 0), 0, 0)
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestErosionNeverGrowsArea(t *testing.T) {
	var last float32 = -1
	for _, radius := range []float32{0, 0.2, 0.5, 0.8} {
		s := testSettings()
		s.AgentRadius = radius
		res := buildFlat(t, s)
		if res.Empty {
			t.Fatalf("radius %v: empty tile", radius)
		}
		area := res.Mesh.Area()
		if last >= 0 && area > last {
			t.Errorf("radius %v: area %v grew from %v", radius, area, last)
		}
		last = area
	}
}

func TestBuildTileConvexVolumeHole(t *testing.T) {
	full := buildFlat(t, testSettings())

	verts, tris := flatQuad(600, 0)
	g, err := NewInputGeom(verts, tris)
	if err != nil {
		t.Fatal(err)
	}
	cfg := mustWorld(t, testSettings(), g)
	b := &Builder{Volumes: []ConvexVolume{{
		Verts: []float32{200, 0, 200, 400, 0, 200, 400, 0, 400, 200, 0, 400},
		HMin:  -10,
		HMax:  10,
		Area:  AreaNull,
	}}}
	res, err := b.BuildTile(context.Background(), g, cfg, tileBounds(cfg, 0, 0), 0, 0)
	if err != nil {
		t.Fatalf("BuildTile: %v", err)
	}
	if res.Empty {
		t.Fatal("carved floor should still have polygons")
	}
	if res.Mesh.Area() >= full.Mesh.Area() {
		t.Errorf("carved area %v not smaller than %v", res.Mesh.Area(), full.Mesh.Area())
	}
}

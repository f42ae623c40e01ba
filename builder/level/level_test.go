package level

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flswld/halo/logger"
	"github.com/vmihailenco/msgpack/v5"
)

func TestMain(m *testing.M) {
	logger.InitLogger(&logger.Config{AppName: "level_test", Level: logger.ParseLevel("DEBUG"), DisableColor: true})
	code := m.Run()
	logger.CloseLogger()
	os.Exit(code)
}

const quadObj = `# floor
o floor
v 0 0 0
v 100 0 0
v 100 0 100
v 0 0 100
vn 0 1 0
f 1//1 4//1 3//1 2//1
`

func TestReadObj(t *testing.T) {
	verts, tris, err := ReadObj(strings.NewReader(quadObj))
	if err != nil {
		t.Fatal(err)
	}
	if len(verts) != 12 {
		t.Fatalf("%d coordinates, want 12", len(verts))
	}
	want := []int{0, 3, 2, 0, 2, 1}
	if len(tris) != len(want) {
		t.Fatalf("tris %v, want %v", tris, want)
	}
	for i := range want {
		if tris[i] != want[i] {
			t.Fatalf("tris %v, want %v", tris, want)
		}
	}
}

func TestReadObjNegativeIndices(t *testing.T) {
	_, tris, err := ReadObj(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 0 1\nf -3 -1 -2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tris[0] != 0 || tris[1] != 2 || tris[2] != 1 {
		t.Errorf("tris %v", tris)
	}
}

func TestReadObjErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"short vertex", "v 1 2\n"},
		{"bad float", "v 1 x 2\n"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 0 1\nf 0 1 2\n"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 0 1\nf 1 2 4\n"},
	}
	for _, tt := range tests {
		if _, _, err := ReadObj(strings.NewReader(tt.in)); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const catalogHjson = `
{
  levels: [
    {
      package: "dungeon_01"
      world_id: 7
      world_guid: "b1c2"
      mesh: "floor.obj"
      start_x: -512
      start_y: 0
      tile_size: 64
      tile_pitch: 64
      convex_volumes: [
        { verts: [0, 0, 0, 10, 0, 0, 10, 0, 10], hmin: -1, hmax: 1, area: 0 }
      ]
      off_mesh_links: [
        { start: [1, 0, 1], end: [9, 0, 9], radius: 2, bidir: true, area: 63, flags: 1 }
      ]
    }
    { package: "dungeon_02", world_id: 8, world_guid: "d3e4", mesh: "/abs/other.obj" }
  ]
}
`

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "levels.hjson", "\xEF\xBB\xBF"+catalogHjson)
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	l, err := c.Find("dungeon_01")
	if err != nil {
		t.Fatal(err)
	}
	if l.MeshPath() != filepath.Join(dir, "floor.obj") {
		t.Errorf("mesh path %q", l.MeshPath())
	}
	if lg := l.Legacy(); lg.StartX != -512 || lg.TileSize != 64 {
		t.Errorf("legacy %+v", lg)
	}
	if v := l.Volumes(); len(v) != 1 || v[0].Area != 0 || len(v[0].Verts) != 9 {
		t.Errorf("volumes %+v", v)
	}
	if o := l.Links(); len(o) != 1 || !o[0].Bidir || o[0].End[2] != 9 {
		t.Errorf("links %+v", o)
	}
	if other, _ := c.Find("dungeon_02"); other.MeshPath() != "/abs/other.obj" {
		t.Errorf("absolute mesh path rewritten: %q", other.MeshPath())
	}

	if _, err := c.Find("missing"); !errors.Is(err, ErrLevelNotFound) {
		t.Errorf("Find error = %v", err)
	}
	if sel, err := c.Select("d3e4"); err != nil || len(sel) != 1 || sel[0].Package != "dungeon_02" {
		t.Errorf("Select = %v, %v", sel, err)
	}
	if sel, _ := c.Select(""); len(sel) != 2 {
		t.Errorf("Select all = %d levels", len(sel))
	}
	if _, err := c.Select("none"); !errors.Is(err, ErrLevelNotFound) {
		t.Errorf("Select error = %v", err)
	}
}

func TestLoadCatalogRejectsIncompleteLevel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "levels.hjson", `{ levels: [ { package: "x" } ] }`)
	if _, err := LoadCatalog(path); err == nil {
		t.Error("expected an error for a level without mesh")
	}
}

func TestLoaderCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "floor.obj", quadObj)
	cache := NewCache()
	loader := NewLoader(cache)
	a, err := loader.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := loader.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("second load did not hit the cache")
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Fatal("Clear left meshes behind")
	}
	c, err := loader.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("load after Clear returned the old mesh")
	}

	if _, err := loader.Load(filepath.Join(dir, "missing.obj")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing mesh error = %v", err)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	g, err := LoadObj(writeFile(t, dir, "floor.obj", quadObj))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteObj(&buf, g); err != nil {
		t.Fatal(err)
	}
	verts, tris, err := ReadObj(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(verts) != len(g.Verts()) || len(tris) != len(g.Tris()) {
		t.Errorf("obj export lost data: %d/%d coordinates, %d/%d indices", len(verts), len(g.Verts()), len(tris), len(g.Tris()))
	}

	out := filepath.Join(dir, "floor.mpk")
	if err := Export(g, out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	dump := new(MeshDump)
	if err := msgpack.Unmarshal(data, dump); err != nil {
		t.Fatal(err)
	}
	if len(dump.Tris) != 6 || dump.Bmax[0] != 100 || dump.Bmin[2] != 0 {
		t.Errorf("msgpack dump %+v", dump)
	}
}

func TestLinkBounds(t *testing.T) {
	l := &Level{}
	if !l.LinkBounds().IsEmpty() {
		t.Errorf("level without links has bounds %v", l.LinkBounds())
	}
	l.OffMeshLinks = []*OffMeshLink{
		{Start: [3]float32{-100, 0, 50}, End: [3]float32{50, 30, 50}},
		{Start: [3]float32{10, -5, 400}, End: [3]float32{20, 0, 10}},
	}
	b := l.LinkBounds()
	if b.Min != [3]float32{-100, -5, 10} || b.Max != [3]float32{50, 30, 400} {
		t.Errorf("link bounds %v", b)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"navbuild/builder/dao"
	"navbuild/builder/level"
	"navbuild/builder/tile"
	"navbuild/common/config"
	"navbuild/recast"

	"github.com/flswld/halo/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger(&logger.Config{AppName: "app_test", Level: logger.ParseLevel("WARN"), DisableColor: true})
	code := m.Run()
	logger.CloseLogger()
	os.Exit(code)
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(&config.DefaultConfig().Build)
	if s != recast.DefaultSettings() {
		t.Errorf("default build section %+v\ndiffers from default settings %+v", s, recast.DefaultSettings())
	}
	b := config.DefaultConfig().Build
	b.VertsPerPoly = 12
	if _, err := recast.NewConfig(SettingsFromConfig(&b)); !errors.Is(err, recast.ErrInvalidConfig) {
		t.Errorf("verts_per_poly 12: %v", err)
	}
}

// writeFloor writes an OBJ floor of side l split into n x n quads.
func writeFloor(t *testing.T, path string, l float32, n int) {
	t.Helper()
	sb := strings.Builder{}
	step := l / float32(n)
	for z := 0; z <= n; z++ {
		for x := 0; x <= n; x++ {
			fmt.Fprintf(&sb, "v %v 0 %v\n", float32(x)*step, float32(z)*step)
		}
	}
	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			a := z*(n+1) + x + 1
			fmt.Fprintf(&sb, "f %d %d %d %d\n", a, a+n+1, a+n+2, a+1)
		}
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

const testCatalog = `{
  levels: [
    {
      package: floor_01
      world_id: 1
      world_guid: guid-floor
      mesh: floor.obj
      start_x: -1
      start_y: 2
      tile_size: 64
      tile_pitch: 64
    }
    {
      package: missing_01
      world_id: 2
      world_guid: guid-missing
      mesh: missing.obj
    }
  ]
}
`

// setup writes a catalog with one buildable and one broken level and points
// the config at it.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFloor(t, filepath.Join(dir, "floor.obj"), 600, 8)
	catalogPath := filepath.Join(dir, "levels.hjson")
	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	config.CONF = config.DefaultConfig()
	config.CONF.Catalog.Path = catalogPath
	config.CONF.Build.TileSize = 32
	config.CONF.Persist.BackoffMs = 1
	config.CONF.Persist.BackoffMaxMs = 1
	return dir
}

func TestGenerateDryRun(t *testing.T) {
	setup(t)
	err := generate(context.Background(), &GenerateOptions{World: "guid-floor", DryRun: true, Workers: 2})
	if err != nil {
		t.Fatalf("floor level: %v", err)
	}
	err = generate(context.Background(), &GenerateOptions{DryRun: true})
	if err == nil || !strings.Contains(err.Error(), "1 of 2 levels failed") {
		t.Errorf("catalog with a missing mesh: %v", err)
	}
	err = generate(context.Background(), &GenerateOptions{World: "guid-unknown", DryRun: true})
	if !errors.Is(err, level.ErrLevelNotFound) {
		t.Errorf("unknown world: %v", err)
	}
}

func TestGenerateRejectsConfig(t *testing.T) {
	setup(t)
	config.CONF.Build.AgentMaxSlope = 90
	err := generate(context.Background(), &GenerateOptions{DryRun: true})
	if !errors.Is(err, recast.ErrInvalidConfig) {
		t.Errorf("slope 90: %v", err)
	}
}

func newGenerator(t *testing.T, store *dao.MemoryStore) *Generator {
	t.Helper()
	base, err := recast.NewConfig(SettingsFromConfig(&config.GetConfig().Build))
	if err != nil {
		t.Fatal(err)
	}
	progress := tile.NewProgress()
	return &Generator{
		Client:       store,
		Locker:       store,
		Base:         base,
		Loader:       level.NewLoader(level.NewCache()),
		Orchestrator: &tile.Orchestrator{Client: store, Workers: 4, Progress: progress},
		Progress:     progress,
	}
}

func TestBuildLevelIdempotent(t *testing.T) {
	setup(t)
	catalog, err := level.LoadCatalog(config.GetConfig().Catalog.Path)
	if err != nil {
		t.Fatal(err)
	}
	l, err := catalog.Find("floor_01")
	if err != nil {
		t.Fatal(err)
	}
	store := dao.NewMemoryStore()
	g := newGenerator(t, store)

	first, err := g.BuildLevel(context.Background(), l)
	if err != nil {
		t.Fatal(err)
	}
	if !first.OK() || first.Persisted == 0 {
		t.Fatalf("first build: %v", first)
	}
	if g.Loader.Cache.Len() != 0 {
		t.Errorf("cache holds %d meshes after the level", g.Loader.Cache.Len())
	}
	records, _ := store.QueryNavMeshes(context.Background(), "guid-floor")
	if len(records) != 1 {
		t.Fatalf("%d records", len(records))
	}
	r := records[0]
	if r.Package != "floor_01" || r.WorldID != 1 || r.TileWidth != 320 || r.TileHeight != 320 {
		t.Errorf("record %+v", r)
	}
	if r.Legacy.StartX != -1 || r.Legacy.StartY != 2 || r.Legacy.TileSize != 64 {
		t.Errorf("legacy layout %+v", r.Legacy)
	}
	if r.Params.TileSize != 32 || r.Params.BorderSize != 7 || r.Params.CellSize != 10 {
		t.Errorf("build params %+v", r.Params)
	}
	if r.Origin.X != 0 || r.Origin.Z != 0 {
		t.Errorf("origin %v", r.Origin)
	}

	creates := store.TileCreates()
	second, err := g.BuildLevel(context.Background(), l)
	if err != nil {
		t.Fatal(err)
	}
	if store.TileCreates() != creates || store.MeshCreates() != 1 {
		t.Errorf("second build created %d tiles, %d meshes", store.TileCreates()-creates, store.MeshCreates())
	}
	if second.MeshID != first.MeshID || second.Existing != first.Persisted {
		t.Errorf("second build: %v", second)
	}
}

func TestBuildLevelLocked(t *testing.T) {
	setup(t)
	catalog, err := level.LoadCatalog(config.GetConfig().Catalog.Path)
	if err != nil {
		t.Fatal(err)
	}
	store := dao.NewMemoryStore()
	g := newGenerator(t, store)
	if ok, _ := store.DistLock(context.Background(), "guid-floor", 0); !ok {
		t.Fatal("lock not acquired")
	}
	failed := g.BuildLevels(context.Background(), catalog.Levels)
	if failed != 2 {
		t.Errorf("%d levels failed, want 2", failed)
	}
	lp, ok := g.Progress.Level("guid-floor")
	if !ok || !strings.Contains(lp.Error, ErrLevelLocked.Error()) {
		t.Errorf("locked level progress %+v", lp)
	}
	if store.TileCreates() != 0 {
		t.Errorf("locked level created %d tiles", store.TileCreates())
	}
}

// downLocker is a lock store that cannot be reached.
type downLocker struct{}

var errLockStore = errors.New("lock store unreachable")

func (downLocker) DistLock(ctx context.Context, worldGUID string, ttl time.Duration) (bool, error) {
	return false, errLockStore
}

func (downLocker) DistUnlock(ctx context.Context, worldGUID string) {}

func TestBuildLevelLockStoreDown(t *testing.T) {
	setup(t)
	catalog, err := level.LoadCatalog(config.GetConfig().Catalog.Path)
	if err != nil {
		t.Fatal(err)
	}
	l, _ := catalog.Find("floor_01")
	g := newGenerator(t, dao.NewMemoryStore())
	g.Locker = downLocker{}
	_, err = g.BuildLevel(context.Background(), l)
	if !errors.Is(err, errLockStore) || errors.Is(err, ErrLevelLocked) {
		t.Errorf("lock store down: %v", err)
	}
}

func TestBuildLevelCoversLinks(t *testing.T) {
	setup(t)
	catalog, err := level.LoadCatalog(config.GetConfig().Catalog.Path)
	if err != nil {
		t.Fatal(err)
	}
	l, _ := catalog.Find("floor_01")
	l.OffMeshLinks = append(l.OffMeshLinks, &level.OffMeshLink{
		Start:  [3]float32{-100, 0, 50},
		End:    [3]float32{50, 0, 50},
		Radius: 20,
		Area:   63,
		Flags:  1,
	})
	store := dao.NewMemoryStore()
	if _, err := newGenerator(t, store).BuildLevel(context.Background(), l); err != nil {
		t.Fatal(err)
	}
	records, _ := store.QueryNavMeshes(context.Background(), "guid-floor")
	if len(records) != 1 || records[0].Origin.X != -100 || records[0].Origin.Z != 0 {
		t.Errorf("origin does not cover the link start: %+v", records)
	}
}

func TestExport(t *testing.T) {
	dir := setup(t)
	for _, name := range []string{"floor.out.obj", "floor.mpk"} {
		out := filepath.Join(dir, name)
		if err := export(context.Background(), "floor_01", out); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
			t.Errorf("%s: %v", name, err)
		}
	}
	if err := export(context.Background(), "nope", filepath.Join(dir, "x.obj")); !errors.Is(err, level.ErrLevelNotFound) {
		t.Errorf("unknown package: %v", err)
	}
}

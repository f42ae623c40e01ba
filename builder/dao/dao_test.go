package dao

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"navbuild/builder/model"
	"navbuild/common/config"

	"github.com/flswld/halo/logger"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

func TestMain(m *testing.M) {
	logger.InitLogger(&logger.Config{AppName: "dao_test", Level: logger.ParseLevel("DEBUG"), DisableColor: true})
	code := m.Run()
	logger.CloseLogger()
	os.Exit(code)
}

// flakyClient fails the first n calls of every operation.
type flakyClient struct {
	*MemoryStore
	failures int32
	calls    atomic.Int32
}

var errUnavailable = errors.New("store unavailable")

func (f *flakyClient) CreateNavMeshTile(ctx context.Context, tile *model.NavMeshTileBlob) error {
	if f.calls.Add(1) <= f.failures {
		return errUnavailable
	}
	return f.MemoryStore.CreateNavMeshTile(ctx, tile)
}

func newTile(meshID string, x, y int32) *model.NavMeshTileBlob {
	return &model.NavMeshTileBlob{ID: uuid.NewString(), MeshID: meshID, TileX: x, TileY: y, Data: "AAAA"}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		attempts  int
		wantErr   bool
		wantCalls int32
	}{
		{"first try", 0, 3, false, 1},
		{"recovers", 2, 3, false, 3},
		{"exhausted", 5, 3, true, 3},
		{"single attempt", 1, 1, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &flakyClient{MemoryStore: NewMemoryStore(), failures: tt.failures}
			r := NewRetry(f, tt.attempts, time.Millisecond, 4*time.Millisecond)
			err := r.CreateNavMeshTile(context.Background(), newTile("m", 0, 0))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errUnavailable) {
				t.Errorf("error %v does not wrap the last failure", err)
			}
			if got := f.calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	f := &flakyClient{MemoryStore: NewMemoryStore(), failures: 100}
	r := NewRetry(f, 100, time.Hour, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := r.CreateNavMeshTile(ctx, newTile("m", 0, 0))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("retry did not stop when the context expired")
	}
}

func TestRetryDelay(t *testing.T) {
	r := NewRetry(NewMemoryStore(), 10, 100*time.Millisecond, time.Second)
	want := []time.Duration{100, 200, 400, 800, 1000, 1000}
	for i, w := range want {
		if got := r.delay(i + 1); got != w*time.Millisecond {
			t.Errorf("delay(%d) = %v, want %v", i+1, got, w*time.Millisecond)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	rec := &model.NavMeshRecord{ID: uuid.NewString(), WorldGUID: "g1", Origin: r3.Vector{X: 1, Y: 2, Z: 3}}
	if _, err := m.CreateNavMesh(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := m.QueryNavMeshes(ctx, "g1")
	if err != nil || len(got) != 1 || got[0].ID != rec.ID {
		t.Fatalf("QueryNavMeshes = %v, %v", got, err)
	}
	if got, _ := m.QueryNavMeshes(ctx, "other"); len(got) != 0 {
		t.Errorf("unexpected meshes for another world: %v", got)
	}

	if err := m.CreateNavMeshTile(ctx, newTile(rec.ID, 1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateNavMeshTile(ctx, newTile(rec.ID, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateNavMeshTile(ctx, newTile(rec.ID, 1, 0)); err == nil {
		t.Error("duplicate tile accepted")
	}
	if m.TileCreates() != 2 {
		t.Errorf("tile creates = %d, want 2", m.TileCreates())
	}
	tiles := m.Tiles(rec.ID)
	if len(tiles) != 2 || tiles[0].TileX != 0 || tiles[1].TileX != 1 {
		t.Errorf("tiles out of order: %+v", tiles)
	}
	if found, _ := m.QueryNavMeshTiles(ctx, rec.ID, 0, 1); len(found) != 0 {
		t.Errorf("found a tile that was never created")
	}

	if ok, err := m.DistLock(ctx, "g1", time.Minute); !ok || err != nil {
		t.Fatalf("first lock = %v, %v", ok, err)
	}
	if ok, err := m.DistLock(ctx, "g1", time.Minute); ok || err != nil {
		t.Errorf("second lock of the same level = %v, %v", ok, err)
	}
	m.DistUnlock(ctx, "g1")
	if ok, _ := m.DistLock(ctx, "g1", time.Minute); !ok {
		t.Error("lock not released")
	}
}

func TestDaoSqlite(t *testing.T) {
	config.CONF = config.DefaultConfig()
	config.CONF.Database.Url = "sqlite://" + filepath.Join(t.TempDir(), "navbuild.db")
	d, err := NewDao()
	if err != nil {
		t.Fatalf("NewDao: %v", err)
	}
	defer d.CloseDao()

	ctx := context.Background()
	rec := &model.NavMeshRecord{
		ID:         uuid.NewString(),
		WorldID:    3,
		WorldGUID:  "guid-3",
		Package:    "pkg3",
		Origin:     r3.Vector{X: -100, Y: 0, Z: 50},
		TileWidth:  2560,
		TileHeight: 2560,
		Legacy:     model.LegacyLayout{StartX: 1, StartY: 2, TileSize: 64, TilePitch: 64},
		Params:     model.BuildParams{CellSize: 10, TileSize: 256},
		CreateTime: time.Now().UnixMilli(),
	}
	if _, err := d.CreateNavMesh(ctx, rec); err != nil {
		t.Fatal(err)
	}
	meshes, err := d.QueryNavMeshes(ctx, "guid-3")
	if err != nil || len(meshes) != 1 {
		t.Fatalf("QueryNavMeshes = %v, %v", meshes, err)
	}
	if meshes[0].Origin != rec.Origin || meshes[0].Legacy != rec.Legacy || meshes[0].Params != rec.Params {
		t.Errorf("record changed on the way through: %+v", meshes[0])
	}

	tile := newTile(rec.ID, 2, 5)
	if err := d.CreateNavMeshTile(ctx, tile); err != nil {
		t.Fatal(err)
	}
	tiles, err := d.QueryNavMeshTiles(ctx, rec.ID, 2, 5)
	if err != nil || len(tiles) != 1 || tiles[0].Data != tile.Data {
		t.Fatalf("QueryNavMeshTiles = %v, %v", tiles, err)
	}
	if tiles, _ := d.QueryNavMeshTiles(ctx, rec.ID, 5, 2); len(tiles) != 0 {
		t.Errorf("swapped coordinate matched: %v", tiles)
	}
	if ok, err := d.DistLock(ctx, "guid-3", time.Minute); !ok || err != nil {
		t.Errorf("lock without redis = %v, %v, want true", ok, err)
	}
}

func TestNewDaoUnsupported(t *testing.T) {
	config.CONF = config.DefaultConfig()
	config.CONF.Database.Url = "postgres://localhost"
	if _, err := NewDao(); err == nil {
		t.Error("expected an error for an unsupported url")
	}
}

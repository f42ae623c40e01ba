package dao

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"navbuild/builder/model"
)

type tileKey struct {
	meshID string
	x, y   int32
}

// MemoryStore is an in-process Client for dry runs and tests.
type MemoryStore struct {
	lock        sync.RWMutex
	meshes      []*model.NavMeshRecord
	tiles       map[tileKey]*model.NavMeshTileBlob
	tileCreates atomic.Int64
	meshCreates atomic.Int64
	locks       map[string]bool
}

var _ Client = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tiles: make(map[tileKey]*model.NavMeshTileBlob),
		locks: make(map[string]bool),
	}
}

func (m *MemoryStore) QueryNavMeshes(ctx context.Context, worldGUID string) ([]*model.NavMeshRecord, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	result := make([]*model.NavMeshRecord, 0)
	for _, mesh := range m.meshes {
		if mesh.WorldGUID == worldGUID {
			result = append(result, mesh)
		}
	}
	return result, nil
}

func (m *MemoryStore) CreateNavMesh(ctx context.Context, record *model.NavMeshRecord) (*model.NavMeshRecord, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, mesh := range m.meshes {
		if mesh.ID == record.ID {
			return nil, fmt.Errorf("navmesh %v already exists", record.ID)
		}
	}
	if record.CreateTime == 0 {
		record.CreateTime = time.Now().UnixMilli()
	}
	m.meshes = append(m.meshes, record)
	m.meshCreates.Add(1)
	return record, nil
}

func (m *MemoryStore) QueryNavMeshTiles(ctx context.Context, meshID string, x, y int32) ([]*model.NavMeshTileBlob, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	tile, ok := m.tiles[tileKey{meshID, x, y}]
	if !ok {
		return nil, nil
	}
	return []*model.NavMeshTileBlob{tile}, nil
}

func (m *MemoryStore) CreateNavMeshTile(ctx context.Context, tile *model.NavMeshTileBlob) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	key := tileKey{tile.MeshID, tile.TileX, tile.TileY}
	if _, ok := m.tiles[key]; ok {
		return fmt.Errorf("navmesh tile (%v, %v) of %v already exists", tile.TileX, tile.TileY, tile.MeshID)
	}
	m.tiles[key] = tile
	m.tileCreates.Add(1)
	return nil
}

// TileCreates returns the number of successful CreateNavMeshTile calls.
func (m *MemoryStore) TileCreates() int64 {
	return m.tileCreates.Load()
}

func (m *MemoryStore) MeshCreates() int64 {
	return m.meshCreates.Load()
}

// Tiles returns the stored tiles of a mesh ordered by (y, x).
func (m *MemoryStore) Tiles(meshID string) []*model.NavMeshTileBlob {
	m.lock.RLock()
	defer m.lock.RUnlock()
	result := make([]*model.NavMeshTileBlob, 0)
	for k, tile := range m.tiles {
		if k.meshID == meshID {
			result = append(result, tile)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TileY != result[j].TileY {
			return result[i].TileY < result[j].TileY
		}
		return result[i].TileX < result[j].TileX
	})
	return result
}

func (m *MemoryStore) DistLock(ctx context.Context, worldGUID string, ttl time.Duration) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.locks[worldGUID] {
		return false, nil
	}
	m.locks[worldGUID] = true
	return true, nil
}

func (m *MemoryStore) DistUnlock(ctx context.Context, worldGUID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.locks, worldGUID)
}

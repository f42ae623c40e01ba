package level

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"navbuild/builder/model"
	"navbuild/detour"
	"navbuild/pkg/geom"
	"navbuild/recast"

	"github.com/flswld/halo/logger"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hjson/hjson-go/v4"
)

var ErrLevelNotFound = errors.New("level not found")

// ConvexVolume re-marks the area of the cells inside an extruded xz polygon.
// Area 0 carves a hole.
type ConvexVolume struct {
	Verts []float32 `json:"verts"` // x y z per point
	HMin  float32   `json:"hmin"`
	HMax  float32   `json:"hmax"`
	Area  int32     `json:"area"`
}

type OffMeshLink struct {
	Start  [3]float32 `json:"start"`
	End    [3]float32 `json:"end"`
	Radius float32    `json:"radius"`
	Bidir  bool       `json:"bidir"`
	Area   uint8      `json:"area"`
	Flags  uint16     `json:"flags"`
	UserID uint32     `json:"user_id"`
}

// Level is one entry of the level catalog.
type Level struct {
	Package       string          `json:"package"`
	WorldID       int32           `json:"world_id"`
	WorldGUID     string          `json:"world_guid"`
	Mesh          string          `json:"mesh"` // OBJ, relative to the catalog file
	StartX        float64         `json:"start_x"`
	StartY        float64         `json:"start_y"`
	TileSize      float64         `json:"tile_size"`
	TilePitch     float64         `json:"tile_pitch"`
	ConvexVolumes []*ConvexVolume `json:"convex_volumes"`
	OffMeshLinks  []*OffMeshLink  `json:"off_mesh_links"`

	dir string
}

type Catalog struct {
	Levels []*Level `json:"levels"`
}

// LoadCatalog reads an hjson level catalog.
func LoadCatalog(filePath string) (*Catalog, error) {
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if len(fileData) >= 3 && fileData[0] == 0xEF && fileData[1] == 0xBB && fileData[2] == 0xBF {
		fileData = fileData[3:]
	}
	catalog := new(Catalog)
	err = hjson.Unmarshal(fileData, catalog)
	if err != nil {
		logger.Error("parse file error: %v, path: %v", err, filePath)
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	dir := filepath.Dir(filePath)
	for i, l := range catalog.Levels {
		if l == nil || l.Package == "" || l.WorldGUID == "" || l.Mesh == "" {
			return nil, fmt.Errorf("%s: level %d needs package, world_guid and mesh", filePath, i)
		}
		l.dir = dir
	}
	logger.Info("Level Catalog Count: %v", len(catalog.Levels))
	return catalog, nil
}

// Find returns the level with the given package id.
func (c *Catalog) Find(pkg string) (*Level, error) {
	for _, l := range c.Levels {
		if l.Package == pkg {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: package %v", ErrLevelNotFound, pkg)
}

// Select returns the levels of one world, or every level when guid is empty.
func (c *Catalog) Select(guid string) ([]*Level, error) {
	if guid == "" {
		return c.Levels, nil
	}
	result := make([]*Level, 0)
	for _, l := range c.Levels {
		if l.WorldGUID == guid {
			result = append(result, l)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: world guid %v", ErrLevelNotFound, guid)
	}
	return result, nil
}

func (l *Level) MeshPath() string {
	if filepath.IsAbs(l.Mesh) {
		return l.Mesh
	}
	return filepath.Join(l.dir, l.Mesh)
}

func (l *Level) Legacy() model.LegacyLayout {
	return model.LegacyLayout{StartX: l.StartX, StartY: l.StartY, TileSize: l.TileSize, TilePitch: l.TilePitch}
}

func (l *Level) Volumes() []recast.ConvexVolume {
	result := make([]recast.ConvexVolume, 0, len(l.ConvexVolumes))
	for _, v := range l.ConvexVolumes {
		result = append(result, recast.ConvexVolume{Verts: v.Verts, HMin: v.HMin, HMax: v.HMax, Area: int(v.Area)})
	}
	return result
}

// LinkBounds returns the box around every off-mesh link endpoint, empty when
// the level has none.
func (l *Level) LinkBounds() geom.AABB {
	b := geom.EmptyAABB()
	for _, o := range l.OffMeshLinks {
		b = b.Expand(mgl32.Vec3(o.Start)).Expand(mgl32.Vec3(o.End))
	}
	return b
}

func (l *Level) Links() []detour.OffMeshLink {
	result := make([]detour.OffMeshLink, 0, len(l.OffMeshLinks))
	for _, o := range l.OffMeshLinks {
		result = append(result, detour.OffMeshLink{
			Start:  mgl32.Vec3(o.Start),
			End:    mgl32.Vec3(o.End),
			Radius: o.Radius,
			Bidir:  o.Bidir,
			Area:   o.Area,
			Flags:  o.Flags,
			UserID: o.UserID,
		})
	}
	return result
}

package tile

import (
	"fmt"

	"navbuild/pkg/geom"
	"navbuild/recast"

	"github.com/go-gl/mathgl/mgl32"
)

// Coord addresses a tile in [0, TilesW) x [0, TilesH).
type Coord struct {
	X, Y int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// Grid is the tiling of a world's voxel grid.
type Grid struct {
	Bounds    geom.AABB
	CellSize  float32
	TileSize  int // voxels
	GridW     int // voxels
	GridH     int
	TilesW    int
	TilesH    int
	TileWorld float32 // world units
}

// Partition derives the tile grid covering bounds.
func Partition(bounds geom.AABB, cellSize float32, tileSize int) (*Grid, error) {
	if !(cellSize > 0) {
		return nil, fmt.Errorf("%w: cell_size must be positive, got %v", recast.ErrInvalidConfig, cellSize)
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("%w: tile_size must be positive, got %v", recast.ErrInvalidConfig, tileSize)
	}
	size := bounds.Size()
	if bounds.IsEmpty() || !(size[0] > 0) || !(size[2] > 0) {
		return nil, fmt.Errorf("%w: world extent %v has no horizontal area", recast.ErrInvalidConfig, size)
	}
	gw, gh := recast.GridSize(bounds, cellSize)
	return &Grid{
		Bounds:    bounds,
		CellSize:  cellSize,
		TileSize:  tileSize,
		GridW:     gw,
		GridH:     gh,
		TilesW:    (gw + tileSize - 1) / tileSize,
		TilesH:    (gh + tileSize - 1) / tileSize,
		TileWorld: float32(tileSize) * cellSize,
	}, nil
}

func (g *Grid) Len() int {
	return g.TilesW * g.TilesH
}

// Coords returns every tile coordinate, y outer and x inner.
func (g *Grid) Coords() []Coord {
	coords := make([]Coord, 0, g.Len())
	for y := 0; y < g.TilesH; y++ {
		for x := 0; x < g.TilesW; x++ {
			coords = append(coords, Coord{X: x, Y: y})
		}
	}
	return coords
}

// TileBounds returns the un-padded bounds of c. The y range is the world's.
func (g *Grid) TileBounds(c Coord) geom.AABB {
	min := mgl32.Vec3{
		g.Bounds.Min[0] + float32(c.X)*g.TileWorld,
		g.Bounds.Min[1],
		g.Bounds.Min[2] + float32(c.Y)*g.TileWorld,
	}
	max := mgl32.Vec3{min[0] + g.TileWorld, g.Bounds.Max[1], min[2] + g.TileWorld}
	return geom.AABB{Min: min, Max: max}
}

package recast

import (
	"math"

	"navbuild/pkg/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Settings are the build parameters in the units an operator thinks in.
// Cell sizes are engine units, agent dimensions and detail tolerances are meters.
type Settings struct {
	CellSize             float32
	CellHeight           float32
	AgentHeight          float32
	AgentRadius          float32
	AgentMaxClimb        float32
	AgentMaxSlope        float32 // degrees
	RegionMinSize        int     // vx, squared into an area
	RegionMergeSize      int     // vx, squared into an area
	EdgeMaxLen           float32 // meters, 0 disables long edge splitting
	EdgeMaxError         float32 // vx
	VertsPerPoly         int
	DetailSampleDist     float32 // meters
	DetailSampleMaxError float32 // meters
	TileSize             int     // vx
	UnitsPerMeter        geom.Scale
}

// DefaultSettings mirrors the parameters used for shipped levels.
func DefaultSettings() Settings {
	return Settings{
		CellSize:             10,
		CellHeight:           5,
		AgentHeight:          1.8,
		AgentRadius:          0.4,
		AgentMaxClimb:        0.5,
		AgentMaxSlope:        45,
		RegionMinSize:        8,
		RegionMergeSize:      20,
		EdgeMaxLen:           0,
		EdgeMaxError:         1.3,
		VertsPerPoly:         MaxVertsPerPoly,
		DetailSampleDist:     0.6,
		DetailSampleMaxError: 0.1,
		TileSize:             256,
		UnitsPerMeter:        geom.DefaultUnitsPerMeter,
	}
}

// Config holds the voxel space parameters shared by every tile of a level.
type Config struct {
	// The xz-plane cell size. [Limit: > 0] [Units: wu]
	Cs float32
	// The y-axis cell size. [Limit: > 0] [Units: wu]
	Ch float32
	// The maximum slope that is considered walkable. [Limits: 0 <= value < 90] [Units: degrees]
	WalkableSlopeAngle float32
	// Minimum floor to ceiling height that still allows the floor to be walked. [Limit: >= 3] [Units: vx]
	WalkableHeight int
	// Maximum ledge height that is still traversable. [Limit: >= 0] [Units: vx]
	WalkableClimb int
	// Distance to erode the walkable area away from obstructions. [Limit: >= 0] [Units: vx]
	WalkableRadius int
	// Guard band around each tile. [Units: vx]
	BorderSize int
	// Width and depth of a tile in cells. [Limit: > 0] [Units: vx]
	TileSize int
	// Maximum contour edge length along mesh borders, 0 is unlimited. [Units: vx]
	MaxEdgeLen int
	// Maximum deviation of a simplified contour from the raw one. [Units: vx]
	MaxSimplificationError float32
	// Isolated regions smaller than this are removed. [Units: vx]
	MinRegionArea int
	// Regions smaller than this are merged into a neighbour when possible. [Units: vx]
	MergeRegionArea int
	// [Limit: 3..MaxVertsPerPoly]
	MaxVertsPerPoly int
	// Detail mesh sampling distance, 0 disables interior sampling. [Units: wu]
	DetailSampleDist float32
	// Maximum detail surface deviation from the heightfield. [Units: wu]
	DetailSampleMaxError float32

	// Agent dimensions in world units, written to tile headers.
	AgentHeight float32
	AgentRadius float32
	AgentClimb  float32

	// World grid, only set by ForWorld.
	Bounds geom.AABB
	Width  int
	Height int
}

// NewConfig validates s and converts it to voxel units.
func NewConfig(s Settings) (*Config, error) {
	if !(s.CellSize > 0) {
		return nil, configError("cell_size", "must be positive, got %v", s.CellSize)
	}
	if !(s.CellHeight > 0) {
		return nil, configError("cell_height", "must be positive, got %v", s.CellHeight)
	}
	if s.AgentMaxSlope < 0 || s.AgentMaxSlope >= 90 {
		return nil, configError("agent_max_slope", "must be in [0, 90), got %v", s.AgentMaxSlope)
	}
	if s.AgentHeight <= 0 || s.AgentRadius < 0 || s.AgentMaxClimb < 0 {
		return nil, configError("agent", "height must be positive and radius/climb non negative")
	}
	if s.TileSize <= 0 {
		return nil, configError("tile_size", "must be positive, got %v", s.TileSize)
	}
	if s.VertsPerPoly < 3 || s.VertsPerPoly > MaxVertsPerPoly {
		return nil, configError("verts_per_poly", "must be in [3, %v], got %v", MaxVertsPerPoly, s.VertsPerPoly)
	}
	if s.RegionMinSize < 0 || s.RegionMergeSize < 0 || s.EdgeMaxError < 0 || s.EdgeMaxLen < 0 {
		return nil, configError("region", "sizes and edge tolerances must be non negative")
	}
	if s.DetailSampleDist < 0 || s.DetailSampleMaxError < 0 {
		return nil, configError("detail", "sample distance and error must be non negative")
	}

	scale := s.UnitsPerMeter
	c := &Config{
		Cs:                     s.CellSize,
		Ch:                     s.CellHeight,
		WalkableSlopeAngle:     s.AgentMaxSlope,
		AgentHeight:            scale.ToUnits(s.AgentHeight),
		AgentRadius:            scale.ToUnits(s.AgentRadius),
		AgentClimb:             scale.ToUnits(s.AgentMaxClimb),
		TileSize:               s.TileSize,
		MaxEdgeLen:             int(scale.ToUnits(s.EdgeMaxLen) / s.CellSize),
		MaxSimplificationError: s.EdgeMaxError,
		MinRegionArea:          s.RegionMinSize * s.RegionMinSize,
		MergeRegionArea:        s.RegionMergeSize * s.RegionMergeSize,
		MaxVertsPerPoly:        s.VertsPerPoly,
		DetailSampleMaxError:   scale.ToUnits(s.DetailSampleMaxError),
	}
	c.WalkableHeight = ceilDiv(c.AgentHeight, c.Ch)
	c.WalkableClimb = ceilDiv(c.AgentClimb, c.Ch)
	c.WalkableRadius = ceilDiv(c.AgentRadius, c.Cs)
	c.BorderSize = c.WalkableRadius + 3
	if d := scale.ToUnits(s.DetailSampleDist); float64(d) >= 0.9*float64(c.Cs)-ceilEpsilon {
		c.DetailSampleDist = d
	}
	if c.WalkableHeight < 3 {
		return nil, configError("agent_height", "%v wu is less than three cells of %v", c.AgentHeight, c.Ch)
	}
	return c, nil
}

// ForWorld returns a copy of c with the voxel grid derived from the world bounds.
func (c *Config) ForWorld(bounds geom.AABB) (*Config, error) {
	size := bounds.Size()
	if bounds.IsEmpty() || !(size[0] > 0) || !(size[2] > 0) {
		return nil, configError("bounds", "world extent %v has no horizontal area", size)
	}
	w := *c
	w.Bounds = bounds
	w.Width, w.Height = GridSize(bounds, c.Cs)
	return &w, nil
}

// TileWorldSize is the edge length of one tile in world units.
func (c *Config) TileWorldSize() float32 {
	return float32(c.TileSize) * c.Cs
}

// GridSize returns the number of cells covering bounds on x and z.
func GridSize(bounds geom.AABB, cs float32) (w, h int) {
	size := bounds.Size()
	return int(math.Ceil(float64(size[0] / cs))), int(math.Ceil(float64(size[2] / cs)))
}

// ceilEpsilon absorbs float noise so exact multiples of step do not round up.
const ceilEpsilon = 1e-4

func ceilDiv(v, step float32) int {
	return int(math.Ceil(float64(v)/float64(step) - ceilEpsilon))
}

// TileConfig is the per tile view of a Config: the padded field bounds and
// the heightfield dimensions including the border.
type TileConfig struct {
	*Config
	TX, TY     int
	TileBounds geom.AABB // un-padded
	FieldMin   mgl32.Vec3
	FieldMax   mgl32.Vec3
	FieldW     int
	FieldH     int
}

// NewTileConfig pads tileBounds by the border so neighbouring tiles connect and
// obstacles close to an edge erode the same way on both sides.
func NewTileConfig(cfg *Config, tileBounds geom.AABB, tx, ty int) *TileConfig {
	padded := tileBounds.PadXZ(float32(cfg.BorderSize) * cfg.Cs)
	return &TileConfig{
		Config:     cfg,
		TX:         tx,
		TY:         ty,
		TileBounds: tileBounds,
		FieldMin:   padded.Min,
		FieldMax:   padded.Max,
		FieldW:     cfg.TileSize + cfg.BorderSize*2,
		FieldH:     cfg.TileSize + cfg.BorderSize*2,
	}
}

// FieldBounds returns the padded bounds as a box.
func (tc *TileConfig) FieldBounds() geom.AABB {
	return geom.AABB{Min: tc.FieldMin, Max: tc.FieldMax}
}

package recast

import (
	"context"

	"navbuild/detour"
	"navbuild/pkg/geom"
)

// Reasons reported for tiles that produce no navmesh.
const (
	ReasonNoTriangles = "no triangles"
	ReasonNoPolygons  = "no polygons"
)

// TileResult is the outcome of one tile build: either Empty with a reason or
// the serialized tile.
type TileResult struct {
	TX, TY   int
	Empty    bool
	Reason   string
	Data     []byte
	Mesh     *PolyMesh
	Warnings []string
}

// Builder runs the voxel pipeline for single tiles. Its fields are read only
// during builds so one Builder can serve every worker.
type Builder struct {
	// Volumes re-mark the areas of cells inside them after erosion.
	Volumes []ConvexVolume
	// OffMeshLinks are stored on the tile holding their start point.
	OffMeshLinks []detour.OffMeshLink
}

// BuildTile voxelizes the triangles of g around tileBounds and serializes the
// resulting polygon and detail meshes. Cancellation of ctx is observed between stages.
func (b *Builder) BuildTile(ctx context.Context, g *InputGeom, cfg *Config, tileBounds geom.AABB, tx, ty int) (*TileResult, error) {
	tc := NewTileConfig(cfg, tileBounds, tx, ty)
	log := &BuildLog{}
	res := &TileResult{TX: tx, TY: ty}
	fail := func(stage Stage, err error) (*TileResult, error) {
		return nil, &StageError{Stage: stage, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(StageExtract, err)
	}
	verts, tris := g.ExtractTile(tc.FieldBounds())
	if len(tris) == 0 {
		res.Empty, res.Reason = true, ReasonNoTriangles
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return fail(StageRasterize, err)
	}
	hf := NewHeightfield(tc.FieldW, tc.FieldH, tc.FieldMin, tc.FieldMax, cfg.Cs, cfg.Ch)
	areas := MarkWalkableTriangles(cfg.WalkableSlopeAngle, verts, tris)
	if !hasWalkable(areas) {
		log.Warnf("rasterize: no walkable triangle, flattest slope %.1f deg, limit %v deg",
			flattestSlope(verts, tris), cfg.WalkableSlopeAngle)
	}
	if err := RasterizeTriangles(verts, tris, areas, hf, cfg.WalkableClimb); err != nil {
		return fail(StageRasterize, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageFilter, err)
	}
	FilterLowHangingWalkableObstacles(cfg.WalkableClimb, hf)
	FilterLedgeSpans(cfg.WalkableHeight, cfg.WalkableClimb, hf)
	FilterWalkableLowHeightSpans(cfg.WalkableHeight, hf)

	if err := ctx.Err(); err != nil {
		return fail(StageCompact, err)
	}
	chf := BuildCompactHeightfield(cfg.WalkableHeight, cfg.WalkableClimb, hf)
	hf = nil

	if err := ctx.Err(); err != nil {
		return fail(StageErode, err)
	}
	ErodeWalkableArea(cfg.WalkableRadius, chf)
	for _, vol := range b.Volumes {
		MarkConvexPolyArea(vol, chf)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageDistance, err)
	}
	BuildDistanceField(chf)

	if err := ctx.Err(); err != nil {
		return fail(StageRegions, err)
	}
	if err := BuildRegions(chf, cfg.BorderSize, cfg.MinRegionArea, cfg.MergeRegionArea); err != nil {
		return fail(StageRegions, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageContours, err)
	}
	cset, err := BuildContours(log, chf, cfg.MaxSimplificationError, cfg.MaxEdgeLen, contourTessWallEdges)
	if err != nil {
		return fail(StageContours, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(StagePolyMesh, err)
	}
	pmesh, err := BuildPolyMesh(log, cset, cfg.MaxVertsPerPoly)
	if err != nil {
		return fail(StagePolyMesh, err)
	}
	cset = nil
	if pmesh.NPolys() == 0 {
		res.Empty, res.Reason = true, ReasonNoPolygons
		res.Warnings = log.Warnings()
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return fail(StageDetail, err)
	}
	dmesh, err := BuildPolyMeshDetail(log, pmesh, chf, cfg.DetailSampleDist, cfg.DetailSampleMaxError)
	if err != nil {
		return fail(StageDetail, err)
	}
	chf = nil
	pmesh.SetAreaFlags()

	if err := ctx.Err(); err != nil {
		return fail(StageSerialize, err)
	}
	data, err := serializeTile(tc, pmesh, dmesh, b.OffMeshLinks)
	if err != nil {
		return fail(StageSerialize, err)
	}
	res.Data = data
	res.Mesh = pmesh
	res.Warnings = log.Warnings()
	return res, nil
}

func serializeTile(tc *TileConfig, pmesh *PolyMesh, dmesh *PolyMeshDetail, links []detour.OffMeshLink) ([]byte, error) {
	params := &detour.NavMeshCreateParams{
		Verts:            pmesh.Verts(),
		VertCount:        pmesh.NVerts(),
		Polys:            pmesh.Polys(),
		PolyAreas:        pmesh.Areas(),
		PolyFlags:        pmesh.Flags(),
		PolyCount:        pmesh.NPolys(),
		Nvp:              pmesh.NVP(),
		DetailMeshes:     dmesh.Meshes(),
		DetailVerts:      dmesh.Verts(),
		DetailVertsCount: dmesh.NVerts(),
		DetailTris:       dmesh.Tris(),
		DetailTriCount:   dmesh.NTris(),
		OffMeshLinks:     links,
		TileX:            tc.TX,
		TileY:            tc.TY,
		Bmin:             pmesh.Bmin(),
		Bmax:             pmesh.Bmax(),
		WalkableHeight:   tc.AgentHeight,
		WalkableRadius:   tc.AgentRadius,
		WalkableClimb:    tc.AgentClimb,
		Cs:               tc.Cs,
		Ch:               tc.Ch,
		BuildBvTree:      true,
	}
	data, err := detour.CreateNavMeshData(params)
	if err != nil {
		return nil, err
	}
	return data.MarshalBinary()
}

func hasWalkable(areas []int) bool {
	for _, a := range areas {
		if a != AreaNull {
			return true
		}
	}
	return false
}

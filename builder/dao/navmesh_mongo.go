package dao

import (
	"context"

	"navbuild/builder/model"

	"github.com/flswld/halo/logger"
	"go.mongodb.org/mongo-driver/bson"
)

func (d *Dao) QueryNavMeshes(ctx context.Context, worldGUID string) ([]*model.NavMeshRecord, error) {
	if d.mongo == nil {
		return d.QueryNavMeshesGorm(ctx, worldGUID)
	}
	db := d.mongoDb.Collection("navmesh")
	find, err := db.Find(
		ctx,
		bson.D{
			{"world_guid", worldGUID},
		},
	)
	if err != nil {
		return nil, err
	}
	defer find.Close(ctx)
	result := make([]*model.NavMeshRecord, 0)
	for find.Next(ctx) {
		item := new(model.NavMeshRecord)
		err := find.Decode(item)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, find.Err()
}

func (d *Dao) CreateNavMesh(ctx context.Context, record *model.NavMeshRecord) (*model.NavMeshRecord, error) {
	if d.mongo == nil {
		return d.CreateNavMeshGorm(ctx, record)
	}
	db := d.mongoDb.Collection("navmesh")
	_, err := db.InsertOne(ctx, record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// QueryNavMeshTiles consults the redis tile cache first. A cache hit returns
// a blob without data.
func (d *Dao) QueryNavMeshTiles(ctx context.Context, meshID string, x, y int32) ([]*model.NavMeshTileBlob, error) {
	if d.hasRedis() {
		tileID, ok := d.GetCachedTile(ctx, meshID, x, y)
		if ok {
			return []*model.NavMeshTileBlob{{ID: tileID, MeshID: meshID, TileX: x, TileY: y}}, nil
		}
	}
	if d.mongo == nil {
		return d.QueryNavMeshTilesGorm(ctx, meshID, x, y)
	}
	db := d.mongoDb.Collection("navmesh_tile")
	find, err := db.Find(
		ctx,
		bson.D{
			{"mesh_id", meshID},
			{"tile_x", x},
			{"tile_y", y},
		},
	)
	if err != nil {
		return nil, err
	}
	defer find.Close(ctx)
	result := make([]*model.NavMeshTileBlob, 0)
	for find.Next(ctx) {
		item := new(model.NavMeshTileBlob)
		err := find.Decode(item)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, find.Err()
}

func (d *Dao) CreateNavMeshTile(ctx context.Context, tile *model.NavMeshTileBlob) error {
	var err error = nil
	if d.mongo == nil {
		err = d.CreateNavMeshTileGorm(ctx, tile)
	} else {
		db := d.mongoDb.Collection("navmesh_tile")
		_, err = db.InsertOne(ctx, tile)
	}
	if err != nil {
		return err
	}
	if d.hasRedis() {
		if err := d.SetCachedTile(ctx, tile.MeshID, tile.TileX, tile.TileY, tile.ID); err != nil {
			logger.Warn("cache tile error: %v, mesh: %v, tile: (%v, %v)", err, tile.MeshID, tile.TileX, tile.TileY)
		}
	}
	return nil
}

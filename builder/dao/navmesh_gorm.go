package dao

import (
	"context"

	"navbuild/builder/model"

	"github.com/golang/geo/r3"
	"github.com/vmihailenco/msgpack/v5"
)

// NavMeshMeta is the msgpack payload of the gorm meta column.
type NavMeshMeta struct {
	Legacy model.LegacyLayout `msgpack:"legacy"`
	Params model.BuildParams  `msgpack:"params"`
}

func (d *Dao) QueryNavMeshesGorm(ctx context.Context, worldGUID string) ([]*model.NavMeshRecord, error) {
	navMeshGormList := make([]*model.NavMeshRecordGorm, 0)
	err := d.gormDb.WithContext(ctx).Where("world_guid = ?", worldGUID).Order("create_time").Find(&navMeshGormList).Error
	if err != nil {
		return nil, err
	}
	result := make([]*model.NavMeshRecord, 0, len(navMeshGormList))
	for _, navMeshGorm := range navMeshGormList {
		meta := new(NavMeshMeta)
		err = msgpack.Unmarshal(navMeshGorm.Meta, meta)
		if err != nil {
			return nil, err
		}
		result = append(result, &model.NavMeshRecord{
			ID:         navMeshGorm.ID,
			WorldID:    navMeshGorm.WorldID,
			WorldGUID:  navMeshGorm.WorldGUID,
			Package:    navMeshGorm.Package,
			Origin:     r3.Vector{X: navMeshGorm.OriginX, Y: navMeshGorm.OriginY, Z: navMeshGorm.OriginZ},
			TileWidth:  navMeshGorm.TileWidth,
			TileHeight: navMeshGorm.TileHeight,
			Legacy:     meta.Legacy,
			Params:     meta.Params,
			CreateTime: navMeshGorm.CreateTime,
		})
	}
	return result, nil
}

func (d *Dao) CreateNavMeshGorm(ctx context.Context, record *model.NavMeshRecord) (*model.NavMeshRecord, error) {
	meta, err := msgpack.Marshal(&NavMeshMeta{Legacy: record.Legacy, Params: record.Params})
	if err != nil {
		return nil, err
	}
	err = d.gormDb.WithContext(ctx).Create(&model.NavMeshRecordGorm{
		ID:         record.ID,
		WorldID:    record.WorldID,
		WorldGUID:  record.WorldGUID,
		Package:    record.Package,
		OriginX:    record.Origin.X,
		OriginY:    record.Origin.Y,
		OriginZ:    record.Origin.Z,
		TileWidth:  record.TileWidth,
		TileHeight: record.TileHeight,
		Meta:       meta,
		CreateTime: record.CreateTime,
	}).Error
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (d *Dao) QueryNavMeshTilesGorm(ctx context.Context, meshID string, x, y int32) ([]*model.NavMeshTileBlob, error) {
	tileGormList := make([]*model.NavMeshTileBlobGorm, 0)
	err := d.gormDb.WithContext(ctx).Where("mesh_id = ? AND tile_x = ? AND tile_y = ?", meshID, x, y).Find(&tileGormList).Error
	if err != nil {
		return nil, err
	}
	result := make([]*model.NavMeshTileBlob, 0, len(tileGormList))
	for _, tileGorm := range tileGormList {
		result = append(result, &model.NavMeshTileBlob{
			ID:         tileGorm.ID,
			MeshID:     tileGorm.MeshID,
			TileX:      tileGorm.TileX,
			TileY:      tileGorm.TileY,
			Data:       tileGorm.Data,
			CreateTime: tileGorm.CreateTime,
		})
	}
	return result, nil
}

func (d *Dao) CreateNavMeshTileGorm(ctx context.Context, tile *model.NavMeshTileBlob) error {
	err := d.gormDb.WithContext(ctx).Create(&model.NavMeshTileBlobGorm{
		ID:         tile.ID,
		MeshID:     tile.MeshID,
		TileX:      tile.TileX,
		TileY:      tile.TileY,
		Data:       tile.Data,
		CreateTime: tile.CreateTime,
	}).Error
	if err != nil {
		return err
	}
	return nil
}

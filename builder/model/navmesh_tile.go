package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NavMeshTileBlob is one serialized tile. Written once per (mesh id, x, y).
type NavMeshTileBlob struct {
	ObjectID   primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID         string             `bson:"id" json:"id"` // uuid
	MeshID     string             `bson:"mesh_id" json:"mesh_id"`
	TileX      int32              `bson:"tile_x" json:"tile_x"`
	TileY      int32              `bson:"tile_y" json:"tile_y"`
	Data       string             `bson:"data" json:"data"` // base64 tile blob
	CreateTime int64              `bson:"create_time" json:"create_time"`
}

type NavMeshTileBlobGorm struct {
	ID         string `gorm:"column:id;type:varchar(36);primaryKey"`
	MeshID     string `gorm:"column:mesh_id;type:varchar(36);uniqueIndex:idx_mesh_tile"`
	TileX      int32  `gorm:"column:tile_x;type:int(11);uniqueIndex:idx_mesh_tile"`
	TileY      int32  `gorm:"column:tile_y;type:int(11);uniqueIndex:idx_mesh_tile"`
	Data       string `gorm:"column:data;type:longtext"`
	CreateTime int64  `gorm:"column:create_time;type:bigint(20)"`
}

func (n NavMeshTileBlobGorm) TableName() string {
	return "navmesh_tile"
}

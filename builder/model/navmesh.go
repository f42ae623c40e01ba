package model

import (
	"github.com/golang/geo/r3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LegacyLayout is copied verbatim from the level catalog for older consumers.
type LegacyLayout struct {
	StartX    float64 `bson:"start_x" msgpack:"start_x" json:"start_x"`
	StartY    float64 `bson:"start_y" msgpack:"start_y" json:"start_y"`
	TileSize  float64 `bson:"tile_size" msgpack:"tile_size" json:"tile_size"`
	TilePitch float64 `bson:"tile_pitch" msgpack:"tile_pitch" json:"tile_pitch"`
}

// BuildParams records the voxel settings a navmesh was built with.
type BuildParams struct {
	CellSize             float32 `bson:"cell_size" msgpack:"cell_size" json:"cell_size"`
	CellHeight           float32 `bson:"cell_height" msgpack:"cell_height" json:"cell_height"`
	AgentHeight          float32 `bson:"agent_height" msgpack:"agent_height" json:"agent_height"`
	AgentRadius          float32 `bson:"agent_radius" msgpack:"agent_radius" json:"agent_radius"`
	AgentMaxClimb        float32 `bson:"agent_max_climb" msgpack:"agent_max_climb" json:"agent_max_climb"`
	AgentMaxSlope        float32 `bson:"agent_max_slope" msgpack:"agent_max_slope" json:"agent_max_slope"`
	TileSize             int32   `bson:"tile_size" msgpack:"tile_size" json:"tile_size"`
	BorderSize           int32   `bson:"border_size" msgpack:"border_size" json:"border_size"`
	VertsPerPoly         int32   `bson:"verts_per_poly" msgpack:"verts_per_poly" json:"verts_per_poly"`
	DetailSampleDist     float32 `bson:"detail_sample_dist" msgpack:"detail_sample_dist" json:"detail_sample_dist"`
	DetailSampleMaxError float32 `bson:"detail_sample_max_error" msgpack:"detail_sample_max_error" json:"detail_sample_max_error"`
}

// NavMeshRecord describes the tiled navmesh of one level. Created once, never updated.
type NavMeshRecord struct {
	ObjectID   primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID         string             `bson:"id" json:"id"` // uuid
	WorldID    int32              `bson:"world_id" json:"world_id"`
	WorldGUID  string             `bson:"world_guid" json:"world_guid"`
	Package    string             `bson:"package" json:"package"`
	Origin     r3.Vector          `bson:"origin" json:"origin"`
	TileWidth  float64            `bson:"tile_width" json:"tile_width"`   // world units
	TileHeight float64            `bson:"tile_height" json:"tile_height"` // world units
	Legacy     LegacyLayout       `bson:"legacy" json:"legacy"`
	Params     BuildParams        `bson:"params" json:"params"`
	CreateTime int64              `bson:"create_time" json:"create_time"` // ms
}

// NavMeshRecordGorm stores Legacy and Params as one msgpack blob in Meta.
type NavMeshRecordGorm struct {
	ID         string  `gorm:"column:id;type:varchar(36);primaryKey"`
	WorldID    int32   `gorm:"column:world_id;type:int(11)"`
	WorldGUID  string  `gorm:"column:world_guid;type:varchar(255);index"`
	Package    string  `gorm:"column:package;type:varchar(255)"`
	OriginX    float64 `gorm:"column:origin_x;type:double"`
	OriginY    float64 `gorm:"column:origin_y;type:double"`
	OriginZ    float64 `gorm:"column:origin_z;type:double"`
	TileWidth  float64 `gorm:"column:tile_width;type:double"`
	TileHeight float64 `gorm:"column:tile_height;type:double"`
	Meta       []byte  `gorm:"column:meta;type:longblob"`
	CreateTime int64   `gorm:"column:create_time;type:bigint(20)"`
}

func (n NavMeshRecordGorm) TableName() string {
	return "navmesh"
}

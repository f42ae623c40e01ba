package config

import (
	"fmt"
	"os"

	"github.com/hjson/hjson-go/v4"
)

var CONF *Config = nil

// Config is the application config loaded from an hjson file.
type Config struct {
	Logger   Logger   `json:"logger"`
	Database Database `json:"database"`
	Redis    Redis    `json:"redis"`
	Status   Status   `json:"status"`
	Build    Build    `json:"build"`
	Persist  Persist  `json:"persist"`
	Catalog  Catalog  `json:"catalog"`
}

type Logger struct {
	Level        string `json:"level"`
	TrackLine    bool   `json:"track_line"`
	TrackThread  bool   `json:"track_thread"`
	EnableFile   bool   `json:"enable_file"`
	DisableColor bool   `json:"disable_color"`
	EnableJson   bool   `json:"enable_json"`
}

// Database url prefix selects the backend: mongodb://, mysql:// or sqlite://.
type Database struct {
	Url string `json:"url"`
	Db  string `json:"db"`
}

// Redis is optional. An empty addr disables it, a comma separated list selects cluster mode.
type Redis struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	LockTtlSec int32  `json:"lock_ttl_sec"`
}

// Status serves the http status endpoint when addr is set.
type Status struct {
	Addr string `json:"addr"`
}

// Build holds the navmesh build parameters. Agent and detail values are meters.
type Build struct {
	Workers              int32   `json:"workers"`
	TileTimeoutSec       int32   `json:"tile_timeout_sec"`
	CellSize             float32 `json:"cell_size"`   // engine units
	CellHeight           float32 `json:"cell_height"` // engine units
	AgentHeight          float32 `json:"agent_height"`
	AgentRadius          float32 `json:"agent_radius"`
	AgentMaxClimb        float32 `json:"agent_max_climb"`
	AgentMaxSlope        float32 `json:"agent_max_slope"` // degrees
	RegionMinSize        int32   `json:"region_min_size"`
	RegionMergeSize      int32   `json:"region_merge_size"`
	EdgeMaxLen           float32 `json:"edge_max_len"`
	EdgeMaxError         float32 `json:"edge_max_error"`
	VertsPerPoly         int32   `json:"verts_per_poly"`
	DetailSampleDist     float32 `json:"detail_sample_dist"`
	DetailSampleMaxError float32 `json:"detail_sample_max_error"`
	TileSize             int32   `json:"tile_size"` // voxels
	UnitsPerMeter        float32 `json:"units_per_meter"`
}

type Persist struct {
	MaxAttempts  int32 `json:"max_attempts"`
	BackoffMs    int32 `json:"backoff_ms"`
	BackoffMaxMs int32 `json:"backoff_max_ms"`
}

type Catalog struct {
	Path string `json:"path"`
}

// DefaultConfig holds the values used for fields missing from the file.
func DefaultConfig() *Config {
	return &Config{
		Logger: Logger{
			Level:       "INFO",
			TrackLine:   true,
			TrackThread: true,
		},
		Database: Database{
			Url: "sqlite://navbuild.db",
			Db:  "navbuild",
		},
		Redis: Redis{
			LockTtlSec: 3600,
		},
		Build: Build{
			Workers:              4,
			TileTimeoutSec:       300,
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
			VertsPerPoly:         6,
			DetailSampleDist:     0.6,
			DetailSampleMaxError: 0.1,
			TileSize:             256,
			UnitsPerMeter:        100,
		},
		Persist: Persist{
			MaxAttempts:  5,
			BackoffMs:    200,
			BackoffMaxMs: 5000,
		},
		Catalog: Catalog{
			Path: "levels.hjson",
		},
	}
}

func InitConfig(filePath string) {
	CONF = DefaultConfig()
	CONF.loadConfigFile(filePath)
}

func GetConfig() *Config {
	return CONF
}

func (c *Config) loadConfigFile(filePath string) {
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		info := fmt.Sprintf("config file load error: %v", err)
		panic(info)
	}
	if len(fileData) >= 3 && fileData[0] == 0xEF && fileData[1] == 0xBB && fileData[2] == 0xBF {
		fileData = fileData[3:]
	}
	err = hjson.Unmarshal(fileData, c)
	if err != nil {
		info := fmt.Sprintf("config file parse error: %v", err)
		panic(info)
	}
}

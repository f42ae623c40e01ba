package app

import (
	"navbuild/common/config"
	"navbuild/pkg/geom"
	"navbuild/recast"

	"github.com/flswld/halo/logger"
)

var APPVERSION string

func initLogger(appName string) {
	logger.InitLogger(&logger.Config{
		AppName:      appName,
		Level:        logger.ParseLevel(config.GetConfig().Logger.Level),
		TrackLine:    config.GetConfig().Logger.TrackLine,
		TrackThread:  config.GetConfig().Logger.TrackThread,
		EnableFile:   config.GetConfig().Logger.EnableFile,
		DisableColor: config.GetConfig().Logger.DisableColor,
		EnableJson:   config.GetConfig().Logger.EnableJson,
	})
}

// logConfig logs the derived voxel values next to the meters they came from.
func logConfig(scale geom.Scale, c *recast.Config) {
	logger.Info("voxel config, cs: %v, ch: %v, tile: %v vx, border: %v vx", c.Cs, c.Ch, c.TileSize, c.BorderSize)
	logger.Info("agent height: %vm -> %v vx, radius: %vm -> %v vx, climb: %vm -> %v vx",
		scale.ToMeters(c.AgentHeight), c.WalkableHeight,
		scale.ToMeters(c.AgentRadius), c.WalkableRadius,
		scale.ToMeters(c.AgentClimb), c.WalkableClimb)
}

// SettingsFromConfig converts the build section of the application config.
func SettingsFromConfig(b *config.Build) recast.Settings {
	return recast.Settings{
		CellSize:             b.CellSize,
		CellHeight:           b.CellHeight,
		AgentHeight:          b.AgentHeight,
		AgentRadius:          b.AgentRadius,
		AgentMaxClimb:        b.AgentMaxClimb,
		AgentMaxSlope:        b.AgentMaxSlope,
		RegionMinSize:        int(b.RegionMinSize),
		RegionMergeSize:      int(b.RegionMergeSize),
		EdgeMaxLen:           b.EdgeMaxLen,
		EdgeMaxError:         b.EdgeMaxError,
		VertsPerPoly:         int(b.VertsPerPoly),
		DetailSampleDist:     b.DetailSampleDist,
		DetailSampleMaxError: b.DetailSampleMaxError,
		TileSize:             int(b.TileSize),
		UnitsPerMeter:        geom.Scale(b.UnitsPerMeter),
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"navbuild/builder/controller"
	"navbuild/builder/dao"
	"navbuild/builder/level"
	"navbuild/builder/model"
	"navbuild/builder/tile"
	"navbuild/common/config"
	"navbuild/recast"

	"github.com/flswld/halo/logger"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

var ErrLevelLocked = errors.New("level is being built by another process")

type GenerateOptions struct {
	Endpoint string // overrides database.url
	World    string // world guid, empty builds every level
	Workers  int    // overrides build.workers when positive
	DryRun   bool   // build into memory, persist nothing
}

// RunGenerate builds the navmesh of every selected level. SIGINT and SIGTERM
// cancel the run; tiles not yet finished are reported failed.
func RunGenerate(ctx context.Context, opts *GenerateOptions) error {
	initLogger("navbuild")
	defer func() {
		logger.CloseLogger()
	}()
	logger.Warn("navbuild generate start, version: %v", APPVERSION)
	defer func() {
		logger.Warn("navbuild generate exit")
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(c)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-c:
				logger.Warn("get a signal %s", s.String())
				switch s {
				case syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT:
					cancel()
					return
				case syscall.SIGHUP:
				default:
					cancel()
					return
				}
			}
		}
	}()

	return generate(ctx, opts)
}

func generate(ctx context.Context, opts *GenerateOptions) error {
	conf := config.GetConfig()
	if opts.Endpoint != "" {
		conf.Database.Url = opts.Endpoint
	}
	workers := int(conf.Build.Workers)
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	settings := SettingsFromConfig(&conf.Build)
	base, err := recast.NewConfig(settings)
	if err != nil {
		logger.Error("build config error: %v", err)
		return err
	}
	logConfig(settings.UnitsPerMeter, base)
	catalog, err := level.LoadCatalog(conf.Catalog.Path)
	if err != nil {
		return err
	}
	levels, err := catalog.Select(opts.World)
	if err != nil {
		return err
	}

	var store dao.Client
	var locker dao.Locker
	if opts.DryRun {
		memory := dao.NewMemoryStore()
		store, locker = memory, memory
		logger.Warn("dry run, nothing is persisted")
	} else {
		d, err := dao.NewDao()
		if err != nil {
			return err
		}
		defer d.CloseDao()
		store, locker = d, d
	}
	client := dao.NewRetry(store,
		int(conf.Persist.MaxAttempts),
		time.Millisecond*time.Duration(conf.Persist.BackoffMs),
		time.Millisecond*time.Duration(conf.Persist.BackoffMaxMs))

	progress := tile.NewProgress()
	if conf.Status.Addr != "" {
		ctrl := controller.NewController(progress)
		ctrl.Start(conf.Status.Addr)
		defer ctrl.Close()
	}

	g := &Generator{
		Client:  client,
		Locker:  locker,
		LockTTL: time.Second * time.Duration(conf.Redis.LockTtlSec),
		Base:    base,
		Loader:  level.NewLoader(level.NewCache()),
		Orchestrator: &tile.Orchestrator{
			Client:      client,
			Workers:     workers,
			TileTimeout: time.Second * time.Duration(conf.Build.TileTimeoutSec),
			Progress:    progress,
		},
		Progress: progress,
	}
	failed := g.BuildLevels(ctx, levels)
	if failed > 0 {
		return fmt.Errorf("%d of %d levels failed", failed, len(levels))
	}
	return nil
}

// Generator builds levels one after another, each on the orchestrator's worker pool.
type Generator struct {
	Client       dao.Client
	Locker       dao.Locker
	LockTTL      time.Duration
	Base         *recast.Config
	Loader       *level.Loader
	Orchestrator *tile.Orchestrator
	Progress     *tile.Progress
}

// BuildLevels builds every level and returns how many failed. A level error
// never stops the levels after it.
func (g *Generator) BuildLevels(ctx context.Context, levels []*level.Level) int {
	failed := 0
	for _, l := range levels {
		summary, err := g.BuildLevel(ctx, l)
		if err != nil {
			logger.Error("level: %v, guid: %v, build error: %v", l.Package, l.WorldGUID, err)
			g.Progress.Abort(l.WorldGUID, l.Package, err)
			failed++
			continue
		}
		if !summary.OK() {
			failed++
		}
	}
	logger.Info("generate finish, levels: %v, failed: %v", len(levels), failed)
	return failed
}

// BuildLevel loads the mesh of l, ensures its navmesh record and builds its tiles.
func (g *Generator) BuildLevel(ctx context.Context, l *level.Level) (*tile.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locked, err := g.Locker.DistLock(ctx, l.WorldGUID, g.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("level lock %v: %w", l.WorldGUID, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %v", ErrLevelLocked, l.WorldGUID)
	}
	defer g.Locker.DistUnlock(context.Background(), l.WorldGUID)
	g.Loader.Cache.Clear()
	defer g.Loader.Cache.Clear()

	geom, err := g.Loader.Load(l.MeshPath())
	if err != nil {
		return nil, err
	}
	// Links reaching past the mesh still need a tile to hold their start.
	cfg, err := g.Base.ForWorld(geom.Bounds().Union(l.LinkBounds()))
	if err != nil {
		return nil, err
	}
	grid, err := tile.Partition(cfg.Bounds, cfg.Cs, cfg.TileSize)
	if err != nil {
		return nil, err
	}
	logger.Info("level: %v, grid: %vx%v, tiles: %vx%v", l.Package, grid.GridW, grid.GridH, grid.TilesW, grid.TilesH)

	record, err := g.navMesh(ctx, l, cfg, grid)
	if err != nil {
		return nil, err
	}
	summary := g.Orchestrator.Run(ctx, &tile.Job{
		Level:     l.Package,
		WorldGUID: l.WorldGUID,
		MeshID:    record.ID,
		Geom:      geom,
		Config:    cfg,
		Grid:      grid,
		Builder:   &recast.Builder{Volumes: l.Volumes(), OffMeshLinks: l.Links()},
	})
	return &summary, nil
}

// navMesh returns the record of the level, creating it on the first build.
func (g *Generator) navMesh(ctx context.Context, l *level.Level, cfg *recast.Config, grid *tile.Grid) (*model.NavMeshRecord, error) {
	records, err := g.Client.QueryNavMeshes(ctx, l.WorldGUID)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		logger.Info("level: %v, reuse navmesh: %v", l.Package, records[0].ID)
		return records[0], nil
	}
	origin := cfg.Bounds.Min
	record := &model.NavMeshRecord{
		ID:         uuid.NewString(),
		WorldID:    l.WorldID,
		WorldGUID:  l.WorldGUID,
		Package:    l.Package,
		Origin:     r3.Vector{X: float64(origin[0]), Y: float64(origin[1]), Z: float64(origin[2])},
		TileWidth:  float64(grid.TileWorld),
		TileHeight: float64(grid.TileWorld),
		Legacy:     l.Legacy(),
		Params:     buildParams(cfg),
		CreateTime: time.Now().UnixMilli(),
	}
	record, err = g.Client.CreateNavMesh(ctx, record)
	if err != nil {
		return nil, err
	}
	logger.Info("level: %v, create navmesh: %v", l.Package, record.ID)
	return record, nil
}

func buildParams(cfg *recast.Config) model.BuildParams {
	return model.BuildParams{
		CellSize:             cfg.Cs,
		CellHeight:           cfg.Ch,
		AgentHeight:          cfg.AgentHeight,
		AgentRadius:          cfg.AgentRadius,
		AgentMaxClimb:        cfg.AgentClimb,
		AgentMaxSlope:        cfg.WalkableSlopeAngle,
		TileSize:             int32(cfg.TileSize),
		BorderSize:           int32(cfg.BorderSize),
		VertsPerPoly:         int32(cfg.MaxVertsPerPoly),
		DetailSampleDist:     cfg.DetailSampleDist,
		DetailSampleMaxError: cfg.DetailSampleMaxError,
	}
}

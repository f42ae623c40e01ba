package tile

import (
	"context"
	"encoding/base64"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"navbuild/builder/dao"
	"navbuild/builder/model"
	"navbuild/recast"

	"github.com/flswld/halo/logger"
	"github.com/google/uuid"
)

const DefaultWorkers = 4

// Job is the tile work of one level. Geom, Config and Builder are shared
// read-only by every worker.
type Job struct {
	Level     string
	WorldGUID string
	MeshID    string
	Geom      *recast.InputGeom
	Config    *recast.Config
	Grid      *Grid
	Builder   *recast.Builder
}

// Orchestrator builds the tiles of a level on a fixed pool of workers and
// persists each built tile. Tiles already persisted are skipped.
type Orchestrator struct {
	Client      dao.Client
	Workers     int
	TileTimeout time.Duration // 0 disables
	Progress    *Progress     // optional
}

type tileResult struct {
	index  int
	status TileStatus
}

// Run builds every tile of job. A failing tile never stops its siblings;
// cancellation of ctx fails the tiles that have not finished.
func (o *Orchestrator) Run(ctx context.Context, job *Job) Summary {
	coords := job.Grid.Coords()
	summary := Summary{Level: job.Level, MeshID: job.MeshID, Total: len(coords), Tiles: make([]TileStatus, len(coords))}
	if o.Progress != nil {
		o.Progress.Start(job.WorldGUID, job.Level, len(coords))
	}
	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, max(len(coords), 1))

	jobCh := make(chan int)
	resultCh := make(chan tileResult)
	wg := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobCh {
				resultCh <- tileResult{index: index, status: o.runTile(ctx, job, coords[index])}
			}
		}()
	}
	go func() {
		defer close(jobCh)
		for i := range coords {
			jobCh <- i
		}
	}()
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for r := range resultCh {
		summary.Tiles[r.index] = r.status
		summary.add(r.status)
		if o.Progress != nil {
			o.Progress.Record(job.WorldGUID, r.status)
		}
		if r.status.Kind == StatusFailed {
			logger.Error("level: %v, tile: %v, %v", job.Level, r.status.Coord, r.status)
		} else {
			logger.Info("level: %v, tile: %v, %v", job.Level, r.status.Coord, r.status)
		}
	}
	if o.Progress != nil {
		o.Progress.Finish(job.WorldGUID)
	}
	if summary.OK() {
		logger.Info("%v", &summary)
	} else {
		logger.Error("%v", &summary)
	}
	return summary
}

func (o *Orchestrator) runTile(ctx context.Context, job *Job, c Coord) (st TileStatus) {
	st.Coord = c
	fail := func(stage recast.Stage, err error) TileStatus {
		return TileStatus{Coord: c, Kind: StatusFailed, Err: newTileError(c, stage, err)}
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("tile %v panic: %v\n%s", c, r, debug.Stack())
			st = fail(StagePanic, fmt.Errorf("%v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return fail(recast.StageExtract, err)
	}

	existing, err := o.Client.QueryNavMeshTiles(ctx, job.MeshID, int32(c.X), int32(c.Y))
	if err != nil {
		return fail(StagePersist, err)
	}
	if len(existing) > 0 {
		st.Kind = StatusExisting
		return st
	}

	buildCtx := ctx
	if o.TileTimeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, o.TileTimeout)
		defer cancel()
	}
	res, err := job.Builder.BuildTile(buildCtx, job.Geom, job.Config, job.Grid.TileBounds(c), c.X, c.Y)
	if err != nil {
		return fail(recast.StageExtract, err)
	}
	for _, w := range res.Warnings {
		logger.Warn("level: %v, tile: %v, %v", job.Level, c, w)
	}
	if res.Empty {
		st.Kind = StatusEmpty
		st.Reason = res.Reason
		return st
	}

	blob := &model.NavMeshTileBlob{
		ID:         uuid.NewString(),
		MeshID:     job.MeshID,
		TileX:      int32(c.X),
		TileY:      int32(c.Y),
		Data:       base64.StdEncoding.EncodeToString(res.Data),
		CreateTime: time.Now().UnixMilli(),
	}
	if err := o.Client.CreateNavMeshTile(ctx, blob); err != nil {
		return fail(StagePersist, err)
	}
	st.Kind = StatusPersisted
	st.Bytes = len(res.Data)
	return st
}

package dao

import (
	"context"
	"errors"
	"time"

	"navbuild/builder/model"

	"github.com/flswld/halo/logger"
)

// Retry wraps a Client and retries failed calls with exponential backoff.
// It gives up early when ctx is done.
type Retry struct {
	client      Client
	maxAttempts int
	backoff     time.Duration
	backoffMax  time.Duration
}

var _ Client = (*Retry)(nil)

func NewRetry(client Client, maxAttempts int, backoff, backoffMax time.Duration) *Retry {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoffMax < backoff {
		backoffMax = backoff
	}
	return &Retry{client: client, maxAttempts: maxAttempts, backoff: backoff, backoffMax: backoffMax}
}

// delay returns the wait before attempt n+1, doubling from the base.
func (r *Retry) delay(n int) time.Duration {
	d := r.backoff
	for i := 1; i < n && d < r.backoffMax; i++ {
		d *= 2
	}
	return min(d, r.backoffMax)
}

func (r *Retry) do(ctx context.Context, op string, fn func() error) error {
	var err error
	for n := 1; ; n++ {
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || n >= r.maxAttempts {
			return err
		}
		wait := r.delay(n)
		logger.Warn("%v failed, attempt: %v/%v, retry in %v, err: %v", op, n, r.maxAttempts, wait, err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

func (r *Retry) QueryNavMeshes(ctx context.Context, worldGUID string) ([]*model.NavMeshRecord, error) {
	var result []*model.NavMeshRecord
	err := r.do(ctx, "query navmesh", func() error {
		var err error
		result, err = r.client.QueryNavMeshes(ctx, worldGUID)
		return err
	})
	return result, err
}

func (r *Retry) CreateNavMesh(ctx context.Context, record *model.NavMeshRecord) (*model.NavMeshRecord, error) {
	var result *model.NavMeshRecord
	err := r.do(ctx, "create navmesh", func() error {
		var err error
		result, err = r.client.CreateNavMesh(ctx, record)
		return err
	})
	return result, err
}

func (r *Retry) QueryNavMeshTiles(ctx context.Context, meshID string, x, y int32) ([]*model.NavMeshTileBlob, error) {
	var result []*model.NavMeshTileBlob
	err := r.do(ctx, "query navmesh tile", func() error {
		var err error
		result, err = r.client.QueryNavMeshTiles(ctx, meshID, x, y)
		return err
	})
	return result, err
}

func (r *Retry) CreateNavMeshTile(ctx context.Context, tile *model.NavMeshTileBlob) error {
	return r.do(ctx, "create navmesh tile", func() error {
		return r.client.CreateNavMeshTile(ctx, tile)
	})
}

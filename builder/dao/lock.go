package dao

import (
	"context"
	"time"
)

// Locker guards a level so that two builders never build it at once.
type Locker interface {
	// DistLock reports false when another builder holds the lock and an error
	// when the lock store could not be reached.
	DistLock(ctx context.Context, worldGUID string, ttl time.Duration) (bool, error)
	DistUnlock(ctx context.Context, worldGUID string)
}

var (
	_ Locker = (*Dao)(nil)
	_ Locker = (*MemoryStore)(nil)
)

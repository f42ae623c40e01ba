package tile

import (
	"errors"
	"fmt"
	"strconv"

	"navbuild/recast"
)

type StatusKind int

const (
	StatusPersisted StatusKind = iota
	StatusExisting
	StatusEmpty
	StatusFailed
)

// Stages reported for failures outside the voxel pipeline.
const (
	StagePersist recast.Stage = "persist"
	StagePanic   recast.Stage = "panic"
)

// TileError attributes a failure to one tile.
type TileError struct {
	Coord Coord
	Stage recast.Stage
	Err   error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile %v %s: %v", e.Coord, e.Stage, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}

func newTileError(c Coord, stage recast.Stage, err error) *TileError {
	var se *recast.StageError
	if errors.As(err, &se) {
		return &TileError{Coord: c, Stage: se.Stage, Err: se.Err}
	}
	return &TileError{Coord: c, Stage: stage, Err: err}
}

// TileStatus is the outcome of one tile of a run.
type TileStatus struct {
	Coord  Coord
	Kind   StatusKind
	Bytes  int
	Reason string // empty reason
	Err    *TileError
}

func (s TileStatus) String() string {
	switch s.Kind {
	case StatusExisting:
		return "already exists"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed: " + string(s.Err.Stage) + ": " + s.Err.Err.Error()
	default:
		return strconv.Itoa(s.Bytes) + " bytes"
	}
}

// Summary counts the tile outcomes of one level.
type Summary struct {
	Level     string
	MeshID    string
	Total     int
	Persisted int
	Existing  int
	Empty     int
	Failed    int
	Tiles     []TileStatus // row-major
}

func (s *Summary) add(st TileStatus) {
	switch st.Kind {
	case StatusPersisted:
		s.Persisted++
	case StatusExisting:
		s.Existing++
	case StatusEmpty:
		s.Empty++
	case StatusFailed:
		s.Failed++
	}
}

// OK reports whether every tile was persisted, existing or empty.
func (s *Summary) OK() bool {
	return s.Failed == 0
}

func (s *Summary) String() string {
	return fmt.Sprintf("level: %v, mesh: %v, tiles: %v, persisted: %v, existing: %v, empty: %v, failed: %v",
		s.Level, s.MeshID, s.Total, s.Persisted, s.Existing, s.Empty, s.Failed)
}

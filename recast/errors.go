package recast

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for parameters that would produce a degenerate grid.
	ErrInvalidConfig = errors.New("invalid build config")

	ErrTooManyVertices = errors.New("too many vertices")
	ErrTooManyPolygons = errors.New("too many polygons")
	ErrBadContour      = errors.New("malformed contour")
	ErrTriangulation   = errors.New("triangulation failed")
	ErrDetailOverflow  = errors.New("detail mesh overflow")
	ErrBadGeometry     = errors.New("malformed input geometry")
)

// Stage names a step of the per tile build.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageRasterize Stage = "rasterize"
	StageFilter    Stage = "filter"
	StageCompact   Stage = "compact"
	StageErode     Stage = "erode"
	StageDistance  Stage = "distance"
	StageRegions   Stage = "regions"
	StageContours  Stage = "contours"
	StagePolyMesh  Stage = "polymesh"
	StageDetail    Stage = "detail"
	StageSerialize Stage = "serialize"
)

// StageError attributes a build failure to the step that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func configError(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

// BuildLog collects non fatal diagnostics of one tile build. A nil log drops them.
type BuildLog struct {
	warnings []string
}

func (l *BuildLog) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *BuildLog) Warnings() []string {
	if l == nil {
		return nil
	}
	return l.warnings
}

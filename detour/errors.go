package detour

import (
	"errors"
	"fmt"
)

var ErrFailure = errors.New("operation failed")
var ErrWrongMagic = fmt.Errorf("%w: input data is not recognized", ErrFailure)
var ErrWrongVersion = fmt.Errorf("%w: input data is in wrong version", ErrFailure)
var ErrInvalidParams = fmt.Errorf("%w: an input parameter was invalid", ErrFailure)
var ErrTooManyVertices = fmt.Errorf("%w: vertex count exceeds 16 bit indices", ErrFailure)
var ErrTruncated = fmt.Errorf("%w: tile data is truncated", ErrFailure)

package peaks

import "errors"

// Sentinel kinds for detector configuration errors.
var (
	ErrBadKernel = errors.New("kernel must be positive")
	ErrBadStride = errors.New("stride must be positive")
	ErrBadTopK   = errors.New("invalid top-K")
)

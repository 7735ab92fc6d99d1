package pickdir

import "errors"

// Sentinel kinds for merge I/O errors.
var (
	ErrMergeIO = errors.New("pick merge I/O failed")
)

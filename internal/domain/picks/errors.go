package picks

import "errors"

// Sentinel kinds for extraction errors.
var (
	ErrBadTimestamp   = errors.New("malformed anchor timestamp")
	ErrBadInterval    = errors.New("invalid sample interval")
	ErrMetadataLength = errors.New("metadata length mismatch")
	ErrPhaseCount     = errors.New("more detection classes than phase labels")
	ErrAmpWindowCount = errors.New("amplitude window count mismatch")
)

package pickfile

import "errors"

// Sentinel kinds for pick file errors.
var (
	ErrWriteFile    = errors.New("write pick file failed")
	ErrBadChannelID = errors.New("non-numeric channel id")
)

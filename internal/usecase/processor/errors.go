package processor

import "errors"

var (
	ErrInvalidDimensions = errors.New("width and height must be positive")
	ErrTooLarge          = errors.New("requested thumbnail is too large")
	ErrDecode            = errors.New("failed to decode image")
	ErrEncode            = errors.New("failed to encode image")
)

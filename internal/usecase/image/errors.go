package image

import "errors"

var (
	ErrImageNotFound   = errors.New("image not found")
	ErrIncompleteQuery = errors.New("file, width and height are required")
	ErrResizeFailed    = errors.New("resize failed")
	ErrThumbDir        = errors.New("thumbnail directory unavailable")
)

// ResizeError carries the resize failure as is; its message is the message
// of the underlying error.
type ResizeError struct {
	Err error
}

func (e *ResizeError) Error() string { return e.Err.Error() }

func (e *ResizeError) Unwrap() error { return e.Err }

func (e *ResizeError) Is(target error) bool { return target == ErrResizeFailed }

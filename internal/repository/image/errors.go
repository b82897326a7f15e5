package image

import "errors"

var (
	ErrFileNotFound  = errors.New("file not found")
	ErrStorageError  = errors.New("storage error")
	ErrInvalidTarget = errors.New("invalid target path")
)

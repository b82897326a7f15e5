package domain

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrFileRequired     = errors.New("file is required")
	ErrInvalidFile      = errors.New("file must not contain path separators")
	ErrInvalidDimension = errors.New("width and height must be positive integers no larger than 65535")
)

// ValidFile reports whether file can name an image inside a single directory.
func ValidFile(file string) bool {
	return file != "" && !strings.ContainsAny(file, "/\\\x00")
}

// ValidDimension accepts decimal strings within 1..MaxDimension. Leading
// zeros are allowed and kept as supplied.
func ValidDimension(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0 && n <= MaxDimension
}

// Validate checks the query before any path is built from it. Width and
// Height are optional, but each must be valid when present.
func (q ImageQuery) Validate() error {
	if q.File == "" {
		return ErrFileRequired
	}
	if !ValidFile(q.File) {
		return ErrInvalidFile
	}
	for _, d := range []string{q.Width, q.Height} {
		if d != "" && !ValidDimension(d) {
			return ErrInvalidDimension
		}
	}
	return nil
}

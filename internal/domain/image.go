package domain

import (
	"fmt"
	"strconv"
	"time"
)

// ImageQuery describes a request for a full image or one of its thumbnails.
// Width and Height are kept as supplied by the caller; "010" and "10" name
// different cache entries.
type ImageQuery struct {
	File   string
	Width  string
	Height string
}

// IsThumb reports whether the query names a thumbnail rather than the full image.
func (q ImageQuery) IsThumb() bool {
	return q.Width != "" && q.Height != ""
}

// Complete reports whether every field needed for a thumbnail is present.
func (q ImageQuery) Complete() bool {
	return q.File != "" && q.IsThumb()
}

// Dimensions parses Width and Height as integers.
func (q ImageQuery) Dimensions() (int, int, error) {
	width, err := strconv.Atoi(q.Width)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width %q: %w", q.Width, err)
	}

	height, err := strconv.Atoi(q.Height)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height %q: %w", q.Height, err)
	}

	return width, height, nil
}

// Key identifies the thumbnail cache entry for the query.
func (q ImageQuery) Key() string {
	return ThumbFilename(q.File, q.Width, q.Height)
}

func FullFilename(file string) string {
	return file + ImageExt
}

func ThumbFilename(file, width, height string) string {
	return fmt.Sprintf("%s-%sx%s%s", file, width, height, ImageExt)
}

// ResizeTask is the input of a single resample and encode run.
type ResizeTask struct {
	Source string
	Target string
	Width  int
	Height int
}

type ThumbStatus string

const (
	StatusCreated ThumbStatus = "created"
	StatusCached  ThumbStatus = "cached"
	StatusFailed  ThumbStatus = "failed"
)

const (
	ImageExt         = ".jpg"
	ImageContentType = "image/jpeg"
)

// MaxDimension is the largest side a JPEG can carry.
const MaxDimension = 65535

const (
	DefaultJPEGQuality      = 85
	DefaultMaxPixels        = 4096 * 4096
	DefaultWatermarkOpacity = 0.5
	DefaultWatermarkSize    = 12
)

// ThumbnailEvent reports the outcome of a warm task.
type ThumbnailEvent struct {
	TaskID    string      `json:"task_id"`
	File      string      `json:"file"`
	Width     string      `json:"width"`
	Height    string      `json:"height"`
	Path      string      `json:"path,omitempty"`
	Status    ThumbStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

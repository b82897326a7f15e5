package domain

import "time"

// WarmTask asks a worker to make sure a thumbnail exists before it is requested.
type WarmTask struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	Width     string    `json:"width"`
	Height    string    `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

func (t WarmTask) Query() ImageQuery {
	return ImageQuery{File: t.File, Width: t.Width, Height: t.Height}
}

type WatermarkPosition string

const (
	WatermarkTopLeft      WatermarkPosition = "top-left"
	WatermarkTopRight     WatermarkPosition = "top-right"
	WatermarkTopCenter    WatermarkPosition = "top-center"
	WatermarkBottomLeft   WatermarkPosition = "bottom-left"
	WatermarkBottomRight  WatermarkPosition = "bottom-right"
	WatermarkBottomCenter WatermarkPosition = "bottom-center"
	WatermarkCenter       WatermarkPosition = "center"
)

const (
	PathPrefixThumbnail = "thumbnails/"
)

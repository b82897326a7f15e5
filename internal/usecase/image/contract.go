package image

import (
	"context"
	"io"

	"thumbnail-server/internal/domain"
)

type fileRepository interface {
	Exists(ctx context.Context, path string) bool
	List(ctx context.Context, dir string) ([]string, error)
	EnsureDir(ctx context.Context, dir string) error
	GetObject(ctx context.Context, path string) (io.ReadCloser, error)
}

type imageResizer interface {
	Resize(ctx context.Context, task domain.ResizeTask) error
}

type thumbMirror interface {
	SaveThumbnail(ctx context.Context, name string, data []byte) error
}

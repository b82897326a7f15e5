package image

import (
	"context"
	"io"

	"thumbnail-server/internal/domain"
)

type imageUsecase interface {
	GetImagePath(ctx context.Context, q domain.ImageQuery) (string, bool)
	AvailableImageNames(ctx context.Context) []string
	IsImageAvailable(ctx context.Context, file string) bool
	EnsureThumb(ctx context.Context, q domain.ImageQuery) (string, domain.ThumbStatus, error)
	OpenImage(ctx context.Context, path string) (io.ReadCloser, error)
}

type warmUsecase interface {
	Enqueue(ctx context.Context, q domain.ImageQuery) (*domain.WarmTask, error)
}

package processor

import (
	"context"
	"io"
)

type fileRepository interface {
	GetObject(ctx context.Context, path string) (io.ReadCloser, error)
	SaveProcessed(ctx context.Context, path string, data io.Reader) (int64, error)
}

package app

import (
	"context"
	"fmt"
	"path/filepath"

	"thumbnail-server/internal/config"
	minio_repo "thumbnail-server/internal/repository/image/cloud/minio"
	local_repo "thumbnail-server/internal/repository/image/local"
	image_uc "thumbnail-server/internal/usecase/image"
	"thumbnail-server/internal/usecase/processor"

	"github.com/wb-go/wbf/zlog"
)

// NewImageUsecase wires storage, the processor and the optional mirror, and
// makes sure the thumbnail directory exists before anything is served.
func NewImageUsecase(ctx context.Context, cfg *config.Config, logger *zlog.Zerolog) (*image_uc.ImageUsecase, error) {
	storage, err := absStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	fileRepo := local_repo.NewOSFileRepository()

	imageProcessor, err := processor.NewImageProcessor(fileRepo, cfg.Thumbnail, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create image processor: %w", err)
	}

	images := image_uc.NewImageUsecase(storage, fileRepo, imageProcessor, logger)

	if cfg.MinIO.Enabled {
		mirror, err := minio_repo.NewMinIORepository(ctx, cfg, cfg.DefaultRetryStrategy(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create thumbnail mirror: %w", err)
		}
		images.WithMirror(mirror)
	}

	if err := images.EnsureThumbDir(ctx); err != nil {
		return nil, err
	}

	logger.Info().
		Str("full_dir", storage.FullDir).
		Str("thumb_dir", storage.ThumbDir).
		Bool("mirror", cfg.MinIO.Enabled).
		Msg("Image storage ready")

	return images, nil
}

func absStorage(s config.Storage) (config.Storage, error) {
	full, err := filepath.Abs(s.FullDir)
	if err != nil {
		return s, fmt.Errorf("failed to resolve full image dir: %w", err)
	}
	thumb, err := filepath.Abs(s.ThumbDir)
	if err != nil {
		return s, fmt.Errorf("failed to resolve thumbnail dir: %w", err)
	}
	return config.Storage{FullDir: full, ThumbDir: thumb}, nil
}

package minio

import (
	"bytes"
	"context"
	"fmt"

	"thumbnail-server/internal/config"
	"thumbnail-server/internal/domain"
	"thumbnail-server/internal/repository/image"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// FileRepository mirrors generated thumbnails into an S3 compatible bucket.
type FileRepository struct {
	client  *minio.Client
	bucket  string
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewMinIORepository(ctx context.Context, cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (*FileRepository, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	repo := &FileRepository{
		client:  client,
		bucket:  cfg.MinIO.Bucket,
		retries: retries,
		logger:  logger,
	}

	if err := repo.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *FileRepository) ensureBucket(ctx context.Context) error {
	return retry.Do(func() error {
		exists, err := r.client.BucketExists(ctx, r.bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", r.bucket, err)
		}
		if exists {
			return nil
		}
		if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", r.bucket, err)
		}
		r.logger.Info().Str("bucket", r.bucket).Msg("Bucket created")
		return nil
	}, r.retries)
}

// SaveThumbnail uploads a thumbnail under the thumbnails/ prefix.
func (r *FileRepository) SaveThumbnail(ctx context.Context, name string, data []byte) error {
	objectName := domain.PathPrefixThumbnail + name

	err := retry.Do(func() error {
		_, err := r.client.PutObject(ctx, r.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: domain.ImageContentType,
		})
		return err
	}, r.retries)
	if err != nil {
		return fmt.Errorf("%w: failed to upload %s: %v", image.ErrStorageError, objectName, err)
	}

	r.logger.Debug().Str("bucket", r.bucket).Str("object", objectName).Int("size", len(data)).Msg("Thumbnail mirrored")
	return nil
}

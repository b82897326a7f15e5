package image

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"thumbnail-server/internal/config"
	"thumbnail-server/internal/domain"

	"github.com/wb-go/wbf/zlog"
)

// ImageUsecase resolves image and thumbnail paths and fills the thumbnail
// cache on a miss.
type ImageUsecase struct {
	fullDir  string
	thumbDir string
	fileRepo fileRepository
	resizer  imageResizer
	mirror   thumbMirror
	locks    *keyLocks
	logger   *zlog.Zerolog
}

func NewImageUsecase(storage config.Storage, fileRepo fileRepository, resizer imageResizer, logger *zlog.Zerolog) *ImageUsecase {
	return &ImageUsecase{
		fullDir:  storage.FullDir,
		thumbDir: storage.ThumbDir,
		fileRepo: fileRepo,
		resizer:  resizer,
		locks:    newKeyLocks(),
		logger:   logger,
	}
}

// WithMirror uploads every newly created thumbnail to m as well.
func (i *ImageUsecase) WithMirror(m thumbMirror) *ImageUsecase {
	i.mirror = m
	return i
}

// ImagePath computes where the image named by q lives without touching the
// filesystem.
func (i *ImageUsecase) ImagePath(q domain.ImageQuery) (string, bool) {
	if q.File == "" {
		return "", false
	}
	if q.IsThumb() {
		return i.thumbPath(q), true
	}
	return i.fullPath(q.File), true
}

// GetImagePath returns the resolved path only if something is there.
func (i *ImageUsecase) GetImagePath(ctx context.Context, q domain.ImageQuery) (string, bool) {
	path, ok := i.ImagePath(q)
	if !ok {
		return "", false
	}
	if !i.fileRepo.Exists(ctx, path) {
		return "", false
	}
	return path, true
}

// AvailableImageNames lists the full image directory with everything from the
// first dot on cut off. A directory that cannot be read yields no names.
func (i *ImageUsecase) AvailableImageNames(ctx context.Context) []string {
	entries, err := i.fileRepo.List(ctx, i.fullDir)
	if err != nil {
		i.logger.Debug().Err(err).Str("dir", i.fullDir).Msg("Failed to list images")
		return []string{}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name, _, _ := strings.Cut(entry, ".")
		names = append(names, name)
	}
	return names
}

// IsImageAvailable checks file against the directory listing rather than the
// computed full path.
func (i *ImageUsecase) IsImageAvailable(ctx context.Context, file string) bool {
	if file == "" {
		return false
	}
	return slices.Contains(i.AvailableImageNames(ctx), file)
}

func (i *ImageUsecase) IsThumbAvailable(ctx context.Context, q domain.ImageQuery) bool {
	if !q.Complete() {
		return false
	}
	return i.fileRepo.Exists(ctx, i.thumbPath(q))
}

// EnsureThumbDir creates the thumbnail root if it is missing.
func (i *ImageUsecase) EnsureThumbDir(ctx context.Context) error {
	if err := i.fileRepo.EnsureDir(ctx, i.thumbDir); err != nil {
		return fmt.Errorf("%w: %v", ErrThumbDir, err)
	}
	return nil
}

// CreateThumb renders the thumbnail for q from its full image. An incomplete
// query is a no-op. Concurrent calls for the same key are serialised.
func (i *ImageUsecase) CreateThumb(ctx context.Context, q domain.ImageQuery) (string, error) {
	if !q.Complete() {
		return "", nil
	}

	unlock := i.locks.lock(q.Key())
	defer unlock()

	return i.createThumb(ctx, q)
}

// EnsureThumb returns the cached thumbnail for q, creating it on a miss. Only
// one caller per key renders; the others find the finished file. Queries that
// could resolve outside the thumbnail directory are refused.
func (i *ImageUsecase) EnsureThumb(ctx context.Context, q domain.ImageQuery) (string, domain.ThumbStatus, error) {
	if !q.Complete() {
		return "", domain.StatusFailed, ErrIncompleteQuery
	}
	if err := q.Validate(); err != nil {
		return "", domain.StatusFailed, err
	}

	target := i.thumbPath(q)
	if i.fileRepo.Exists(ctx, target) {
		return target, domain.StatusCached, nil
	}

	unlock := i.locks.lock(q.Key())
	defer unlock()

	if i.fileRepo.Exists(ctx, target) {
		return target, domain.StatusCached, nil
	}

	path, err := i.createThumb(ctx, q)
	if err != nil {
		return "", domain.StatusFailed, err
	}
	return path, domain.StatusCreated, nil
}

func (i *ImageUsecase) createThumb(ctx context.Context, q domain.ImageQuery) (string, error) {
	width, height, err := q.Dimensions()
	if err != nil {
		return "", &ResizeError{Err: err}
	}

	task := domain.ResizeTask{
		Source: i.fullPath(q.File),
		Target: i.thumbPath(q),
		Width:  width,
		Height: height,
	}

	i.logger.Info().Str("path", task.Target).Msg("Creating thumb")

	if err := i.resizer.Resize(ctx, task); err != nil {
		return "", &ResizeError{Err: err}
	}

	if i.mirror != nil {
		i.mirrorThumb(ctx, task.Target)
	}

	return task.Target, nil
}

func (i *ImageUsecase) mirrorThumb(ctx context.Context, path string) {
	reader, err := i.fileRepo.GetObject(ctx, path)
	if err != nil {
		i.logger.Error().Err(err).Str("path", path).Msg("Failed to open thumbnail for mirroring")
		return
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		i.logger.Error().Err(err).Str("path", path).Msg("Failed to read thumbnail for mirroring")
		return
	}

	if err := i.mirror.SaveThumbnail(ctx, filepath.Base(path), data); err != nil {
		i.logger.Error().Err(err).Str("path", path).Msg("Failed to mirror thumbnail")
	}
}

func (i *ImageUsecase) fullPath(file string) string {
	return filepath.Join(i.fullDir, domain.FullFilename(file))
}

func (i *ImageUsecase) thumbPath(q domain.ImageQuery) string {
	return filepath.Join(i.thumbDir, domain.ThumbFilename(q.File, q.Width, q.Height))
}

func (i *ImageUsecase) OpenImage(ctx context.Context, path string) (io.ReadCloser, error) {
	reader, err := i.fileRepo.GetObject(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageNotFound, err)
	}
	return reader, nil
}
